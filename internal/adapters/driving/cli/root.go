// Package cli implements the fabula command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fabula/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/fabula/internal/adapters/driven/config/file"
	memoryindex "github.com/custodia-labs/fabula/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/fabula/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/fabula/internal/connectors/filesystem"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
	"github.com/custodia-labs/fabula/internal/core/services"
	"github.com/custodia-labs/fabula/internal/logger"
	"github.com/custodia-labs/fabula/internal/normalisers"
	"github.com/custodia-labs/fabula/internal/postprocessors"
)

// version is overridden at build time via ldflags.
var version = "dev"

// Services used by the commands. Initialise wires the real implementations;
// tests assign mocks directly.
var (
	settingsService driving.SettingsService
	personaService  driving.PersonaService
	indexService    driving.IndexOrchestrator
	storyAgent      driving.StoryAgent
)

// Shared state behind the services. Populated by Initialise.
var (
	appSettings *domain.AppSettings
	dataStore   *sqlite.Store
	localSource driven.PersonaSource
	aiServices  *ai.InitResult
	fabulaHome  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "fabula",
	Short: "Character-persona storytelling from the terminal",
	Long: `Fabula turns a character's reference document into short stories.

Drop a persona (a persona.toml plus a reference document) into the personas
directory, index it, and generate stories told in that character's voice.
Retrieval keeps the output grounded in the reference text.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// Execute wires the service graph and runs the root command. The exit code
// mapping is left to the caller.
func Execute(v string) error {
	version = v

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Initialise(); err != nil {
		return err
	}
	defer Shutdown()

	return rootCmd.ExecuteContext(ctx)
}

// Initialise builds the core services: settings, persona storage and the
// local persona source. The AI pipeline is brought up lazily by the commands
// that need it, so browsing personas or editing settings never waits on a
// provider ping.
func Initialise() error {
	home, err := resolveHome()
	if err != nil {
		return err
	}
	fabulaHome = home

	configStore, err := configfile.NewConfigStore(home)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())

	appSettings, err = settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if appSettings.Personas.Dir == "" {
		appSettings.Personas.Dir = filepath.Join(home, "personas")
	}
	if err := os.MkdirAll(appSettings.Personas.Dir, 0o700); err != nil {
		return fmt.Errorf("creating personas directory: %w", err)
	}

	dataStore, err = sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return fmt.Errorf("opening persona store: %w", err)
	}

	localSource = filesystem.New(appSettings.Personas.Dir, normalisers.DefaultRegistry())
	personaService = services.NewPersonaService(
		dataStore.PersonaStore(),
		[]driven.PersonaSource{localSource},
		changeRelay{},
	)

	return nil
}

// ensureAgent brings up the AI pipeline on first use: embedding, story and
// image models, reranker, response cache, and the services that tie them
// together. Degraded slots surface as warnings; a missing story model is
// only an error once generation is actually attempted.
func ensureAgent(ctx context.Context) error {
	if storyAgent != nil || indexService != nil {
		return nil
	}

	if appSettings == nil {
		return fmt.Errorf("%w: services not initialised", domain.ErrInvalidConfig)
	}

	aiServices = ai.InitServices(ctx, appSettings)
	for _, warning := range aiServices.Warnings {
		logger.Warn("%s", warning)
	}

	indexer := services.NewIndexerService(
		dataStore.PersonaStore(),
		aiServices.EmbeddingService,
		memoryindex.NewBuilder(),
		appSettings.Chunking,
	)
	retriever := services.NewContextService(
		aiServices.EmbeddingService,
		aiServices.RerankService,
		appSettings.Retrieval,
	)

	assembler := services.NewAssemblerService(appSettings.Safety, appSettings.Generation.MaxContextChars)
	if promptStore, err := configfile.NewPromptStore(filepath.Join(fabulaHome, "prompts")); err == nil {
		assembler.SetPromptStore(promptStore)
	} else {
		logger.Warn("Prompt store unavailable, using built-in prompts: %v", err)
	}

	generator := services.NewGeneratorService(
		aiServices.StoryModel,
		aiServices.FallbackModel,
		postprocessors.DefaultPipeline(),
		aiServices.ImageProviders,
		appSettings.Generation,
	)

	agent := services.NewAgentService(
		dataStore.PersonaStore(),
		indexer,
		retriever,
		assembler,
		generator,
		aiServices.ResponseCache,
		appSettings.Generation,
	)

	indexService = indexer
	storyAgent = agent
	return nil
}

// Shutdown releases everything Initialise and ensureAgent opened. Safe to
// call with a partially initialised graph.
func Shutdown() {
	if storyAgent != nil {
		if err := storyAgent.Close(); err != nil {
			logger.Warn("Closing agent: %v", err)
		}
	}
	if aiServices != nil {
		// The agent already closed the response cache; the model clients
		// remain ours to close.
		aiServices.ResponseCache = nil
		aiServices.Close()
	}
	if localSource != nil {
		if err := localSource.Close(); err != nil {
			logger.Warn("Closing persona source: %v", err)
		}
	}
	if dataStore != nil {
		if err := dataStore.Close(); err != nil {
			logger.Warn("Closing persona store: %v", err)
		}
	}
}

// resolveHome returns the fabula home directory, honouring FABULA_HOME.
func resolveHome() (string, error) {
	if dir := os.Getenv("FABULA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".fabula"), nil
}

// changeRelay forwards persona invalidations to the agent. Imports can run
// before the AI pipeline exists; with no agent there is nothing to
// invalidate in-process, and persistent cache entries age out by TTL.
type changeRelay struct{}

func (changeRelay) PersonaChanged(ctx context.Context, personaID string) error {
	if storyAgent == nil {
		return nil
	}
	return storyAgent.PersonaChanged(ctx, personaID)
}
