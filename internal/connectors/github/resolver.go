package github

// WebURL returns the browsable https URL for a persona directory inside a
// pack. Used when showing where an imported persona came from.
func WebURL(ref PackRef, personaID string) string {
	branch := ref.Ref
	if branch == "" {
		branch = "HEAD"
	}

	url := "https://github.com/" + ref.Owner + "/" + ref.Repo + "/tree/" + branch
	if ref.Path != "" {
		url += "/" + ref.Path
	}
	return url + "/" + personaID
}
