package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, retrieval tuning, and other options.

Use subcommands to change specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single settings key",
	Long: `Set one settings key to a value. Keys use the config file's dotted
names, for example:

  fabula settings set retrieval.top_k 16
  fabula settings set generation.params.temperature 0.8
  fabula settings set cache.backend redis
  fabula settings set personas.dir ~/stories/personas

Run 'fabula settings set' without arguments to list the supported keys.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSettingsSet,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key [target]",
	Short: "Set an API key or token without echoing it",
	Long: `Reads a secret from the terminal with echo disabled and stores it.
Targets:

  embedding   embedding provider API key
  story       primary story model API key
  fallback    fallback story model API key
  rerank      reranker API key
  github      persona pack import token`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetKey,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all providers step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Personas]")
	cmd.Printf("  Directory: %s\n", orUnset(settings.Personas.Dir))
	if settings.Personas.GitHubToken != "" {
		cmd.Printf("  GitHub token: %s\n", maskAPIKey(settings.Personas.GitHubToken))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	printProviderBlock(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[Story Model]")
	printProviderBlock(cmd, settings.Generation.Primary.Provider, settings.Generation.Primary.Model,
		settings.Generation.Primary.BaseURL, settings.Generation.Primary.APIKey,
		settings.Generation.Primary.IsConfigured())
	if settings.Generation.Fallback.IsConfigured() {
		cmd.Printf("  Fallback: %s (%s)\n",
			settings.Generation.Fallback.Provider.Description(), settings.Generation.Fallback.Model)
	} else {
		cmd.Println("  Fallback: (not set)")
	}
	cmd.Println()

	cmd.Println("[Rerank]")
	if settings.Rerank.IsConfigured() {
		cmd.Printf("  Provider: %s\n", settings.Rerank.Provider)
		cmd.Printf("  Model: %s\n", settings.Rerank.Model)
	} else {
		cmd.Println("  Provider: none (retrieval order is used as-is)")
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d candidates, %d kept\n", settings.Retrieval.TopK, settings.Retrieval.FinalK)
	cmd.Printf("  Threshold: %.2f\n", settings.Retrieval.Threshold)
	cmd.Printf("  Chunking: %d runes, %d overlap\n", settings.Chunking.Size, settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Generation]")
	cmd.Printf("  Temperature: %.2f, top_p %.2f, top_k %d\n",
		settings.Generation.Params.Temperature, settings.Generation.Params.TopP,
		settings.Generation.Params.TopK)
	cmd.Printf("  Max output tokens: %d\n", settings.Generation.Params.MaxOutputTokens)
	cmd.Printf("  Timeouts: %s per call, %s overall\n",
		settings.Generation.CallTimeout, settings.Generation.OverallTimeout)
	cmd.Println()

	cmd.Println("[Safety]")
	if len(settings.Safety.Blocked) == 0 {
		cmd.Println("  Blocked categories: (none)")
	} else {
		blocked := make([]string, len(settings.Safety.Blocked))
		for i, category := range settings.Safety.Blocked {
			blocked[i] = string(category)
		}
		cmd.Printf("  Blocked categories: %s\n", strings.Join(blocked, ", "))
	}
	cmd.Println()

	cmd.Println("[Image]")
	cmd.Printf("  Providers: %s\n", strings.Join(settings.Image.Providers, ", "))
	if settings.Image.Model != "" {
		cmd.Printf("  Model: %s\n", settings.Image.Model)
	}
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend)
	cmd.Printf("  TTL: %s\n", settings.Cache.TTL)
	if settings.Cache.Backend == domain.CacheRedis {
		cmd.Printf("  Redis URL: %s\n", orUnset(settings.Cache.RedisURL))
	} else {
		cmd.Printf("  Max entries: %d\n", settings.Cache.MaxEntries)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'fabula settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProviderBlock(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", orUnset(baseURL))
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

// settableKeys lists what 'settings set' accepts, with a hint per key.
// List-valued and secret keys have their own commands or live in the
// config file directly.
var settableKeys = []struct{ key, hint string }{
	{"chunking.size", "chunk window in runes"},
	{"chunking.overlap", "chunk overlap in runes"},
	{"retrieval.top_k", "candidates fetched from the index"},
	{"retrieval.final_k", "chunks kept for the prompt"},
	{"retrieval.threshold", "minimum rerank score (0..1)"},
	{"embedding.model", "embedding model name"},
	{"generation.params.temperature", "sampling temperature"},
	{"generation.params.top_p", "nucleus sampling mass"},
	{"generation.params.top_k", "sampling candidate bound"},
	{"generation.params.max_output_tokens", "output length bound"},
	{"generation.max_context_chars", "assembled context bound"},
	{"generation.call_timeout", "per-call timeout (e.g. 90s)"},
	{"generation.overall_timeout", "per-request timeout (e.g. 5m)"},
	{"generation.requests_per_minute", "model call throttle (0 = off)"},
	{"image.model", "image model name"},
	{"cache.backend", "memory or redis"},
	{"cache.ttl", "cached response lifetime (e.g. 24h)"},
	{"cache.max_entries", "memory backend capacity"},
	{"cache.redis_url", "redis connection URL"},
	{"personas.dir", "local personas directory"},
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if len(args) < 2 {
		cmd.Println("Settable keys:")
		for _, entry := range settableKeys {
			cmd.Printf("  %-38s %s\n", entry.key, entry.hint)
		}
		return nil
	}

	key, value := args[0], args[1]

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if err := applySetting(settings, key, value); err != nil {
		return err
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

// applySetting mutates one settings field addressed by its dotted key.
//
//nolint:gocyclo // One arm per settable key; splitting it would obscure the mapping.
func applySetting(settings *domain.AppSettings, key, value string) error {
	switch key {
	case "chunking.size":
		return setInt(&settings.Chunking.Size, value)
	case "chunking.overlap":
		return setInt(&settings.Chunking.Overlap, value)
	case "retrieval.top_k":
		return setInt(&settings.Retrieval.TopK, value)
	case "retrieval.final_k":
		return setInt(&settings.Retrieval.FinalK, value)
	case "retrieval.threshold":
		return setFloat(&settings.Retrieval.Threshold, value)
	case "embedding.model":
		settings.Embedding.Model = value
	case "generation.params.temperature":
		return setFloat(&settings.Generation.Params.Temperature, value)
	case "generation.params.top_p":
		return setFloat(&settings.Generation.Params.TopP, value)
	case "generation.params.top_k":
		return setInt(&settings.Generation.Params.TopK, value)
	case "generation.params.max_output_tokens":
		return setInt(&settings.Generation.Params.MaxOutputTokens, value)
	case "generation.max_context_chars":
		return setInt(&settings.Generation.MaxContextChars, value)
	case "generation.call_timeout":
		return setDuration(&settings.Generation.CallTimeout, value)
	case "generation.overall_timeout":
		return setDuration(&settings.Generation.OverallTimeout, value)
	case "generation.requests_per_minute":
		return setInt(&settings.Generation.RequestsPerMinute, value)
	case "image.model":
		settings.Image.Model = value
	case "cache.backend":
		backend := domain.CacheBackend(value)
		if !backend.IsValid() {
			return fmt.Errorf("%w: cache backend %q (memory or redis)", domain.ErrInvalidInput, value)
		}
		settings.Cache.Backend = backend
	case "cache.ttl":
		return setDuration(&settings.Cache.TTL, value)
	case "cache.max_entries":
		return setInt(&settings.Cache.MaxEntries, value)
	case "cache.redis_url":
		settings.Cache.RedisURL = value
	case "personas.dir":
		settings.Personas.Dir = value
	default:
		return fmt.Errorf("%w: unknown settings key %q (run 'fabula settings set' for the list)",
			domain.ErrInvalidInput, key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, value)
	}
	*dst = parsed
	return nil
}

func setFloat(dst *float64, value string) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, value)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %q is not a duration (e.g. 90s, 5m)", domain.ErrInvalidInput, value)
	}
	*dst = parsed
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	target := args[0]

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Enter %s key: ", target)
	secret := readPassword()
	cmd.Println()
	if secret == "" {
		return errors.New("no key entered")
	}

	switch target {
	case "embedding":
		if err := settingsService.SetEmbeddingProvider(
			settings.Embedding.Provider, settings.Embedding.Model, secret); err != nil {
			return fmt.Errorf("failed to store embedding key: %w", err)
		}
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")

	case "story":
		if err := settingsService.SetStoryProvider(
			settings.Generation.Primary.Provider, settings.Generation.Primary.Model, secret); err != nil {
			return fmt.Errorf("failed to store story model key: %w", err)
		}
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateStoryConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("story model configuration validation failed: %w", err)
		}
		cmd.Println("OK")

	case "fallback":
		if err := settingsService.SetFallbackProvider(
			settings.Generation.Fallback.Provider, settings.Generation.Fallback.Model, secret); err != nil {
			return fmt.Errorf("failed to store fallback model key: %w", err)
		}

	case "rerank":
		if err := settingsService.SetRerankProvider(
			settings.Rerank.Provider, settings.Rerank.Model, secret); err != nil {
			return fmt.Errorf("failed to store rerank key: %w", err)
		}

	case "github":
		settings.Personas.GitHubToken = secret
		if err := settingsService.Save(settings); err != nil {
			return fmt.Errorf("failed to store GitHub token: %w", err)
		}

	default:
		return fmt.Errorf("%w: unknown target %q (embedding, story, fallback, rerank or github)",
			domain.ErrInvalidInput, target)
	}

	cmd.Printf("Stored %s key.\n", target)
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("Fabula Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Println("Embeddings ground stories in the persona's reference document.")
	cmd.Println()
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Story Model")
	cmd.Println("-------------------")
	if err := configureStoryProvider(cmd, reader, false); err != nil {
		return err
	}

	cmd.Println("Step 3: Fallback Model (optional)")
	cmd.Println("---------------------------------")
	cmd.Println("Used when the primary model exhausts its retries.")
	cmd.Println()
	cmd.Print("Configure a fallback model? [y/N]: ")
	if strings.EqualFold(readLine(reader), "y") {
		if err := configureStoryProvider(cmd, reader, true); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped.")
		cmd.Println()
	}

	cmd.Println("Step 4: Reranker (optional)")
	cmd.Println("---------------------------")
	if err := configureRerankProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 5: Response Cache")
	cmd.Println("----------------------")
	if err := configureCacheBackend(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

func configureStoryProvider(cmd *cobra.Command, reader *bufio.Reader, fallback bool) error {
	cmd.Println("Select Story Provider")
	providers := domain.AllStoryProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultStoryModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if fallback {
		if err := settingsService.SetFallbackProvider(selectedProvider, model, apiKey); err != nil {
			return fmt.Errorf("failed to configure fallback provider: %w", err)
		}
		cmd.Printf("Fallback model configured: %s (%s)\n\n", selectedProvider.Description(), model)
		return nil
	}

	if err := settingsService.SetStoryProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure story provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateStoryConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("story model configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Story model configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

func configureRerankProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Reranker")
	cmd.Println("  1. none (keep retrieval order)")
	cmd.Println("  2. Cohere rerank API")
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, 2, 1)

	if idx == 1 {
		if err := settingsService.SetRerankProvider(domain.RerankNone, "", ""); err != nil {
			return fmt.Errorf("failed to disable reranker: %w", err)
		}
		cmd.Println("Reranker disabled.")
		cmd.Println()
		return nil
	}

	defaultModel := settingsService.GetDefaults().Rerank.Model
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	cmd.Print("Enter API key: ")
	apiKey := readPassword()
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key is required for the Cohere reranker")
	}

	if err := settingsService.SetRerankProvider(domain.RerankCohere, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure reranker: %w", err)
	}

	cmd.Printf("Reranker configured: cohere (%s)\n\n", model)
	return nil
}

func configureCacheBackend(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Cache Backend")
	cmd.Println("  1. memory (in-process, per run)")
	cmd.Println("  2. redis (shared, survives restarts)")
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, 2, 1)

	if idx == 1 {
		if err := settingsService.SetCacheBackend(domain.CacheMemory, ""); err != nil {
			return fmt.Errorf("failed to configure cache: %w", err)
		}
		cmd.Println("Using the in-memory response cache.")
		cmd.Println()
		return nil
	}

	cmd.Print("Enter Redis URL [redis://localhost:6379/0]: ")
	redisURL := readLine(reader)
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	if err := settingsService.SetCacheBackend(domain.CacheRedis, redisURL); err != nil {
		return fmt.Errorf("failed to configure cache: %w", err)
	}

	cmd.Printf("Using the Redis response cache at %s.\n\n", redisURL)
	return nil
}

// Helper functions.

func orUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
