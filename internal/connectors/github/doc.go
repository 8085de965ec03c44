// Package github imports persona packs from GitHub repositories.
//
// A pack is a repository (or a directory inside one) whose top-level
// directories are persona directories: each contains a persona.toml
// descriptor and a reference document, exactly as they would appear in the
// local personas directory. The importer reads the whole pack in one tree
// call plus one blob call per file.
//
// # Pack references
//
// Packs are addressed as owner/repo[/path][@ref]:
//
//   - custodia-labs/persona-packs
//   - custodia-labs/persona-packs/packs/detectives
//   - custodia-labs/persona-packs@v2
//
// A "github:" scheme or "https://github.com/" prefix is tolerated. When no
// ref is given, the repository's default branch is used.
//
// # Authentication
//
// A personal access token is optional. Without one, only public
// repositories are reachable and the API allows 60 requests per hour;
// with one, private repositories work and the limit is 5,000 per hour.
//
// # Rate limiting
//
// The client throttles proactively with a token bucket (roughly one
// request per second) and reactively by honouring the X-RateLimit-*
// response headers, waiting for the reset when the remaining quota runs
// low.
package github
