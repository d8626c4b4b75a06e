package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/petal-labs/anthropic-go/cli/config"
	"github.com/petal-labs/anthropic-go/cli/keystore"
	"github.com/petal-labs/anthropic-go/providers"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// ClientFactory creates a client for a registered backend.
type ClientFactory func(ctx context.Context, backend string, s providers.Settings) (*anthropic.Client, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig  ConfigLoader
	newClient   ClientFactory
	newKeystore KeystoreFactory
	getenv      func(string) string
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer

	cfgFile    string
	profile    string
	model      string
	jsonOutput bool
	verbose    bool
	logFile    string

	cfg       *config.Config
	logger    *slog.Logger
	logWriter io.Closer
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithClientFactory injects a client factory dependency.
func WithClientFactory(factory ClientFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithEnv replaces environment lookups.
func WithEnv(getenv func(string) string) AppOption {
	return func(a *App) {
		if getenv != nil {
			a.getenv = getenv
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:  config.LoadConfig,
		newClient:   providers.Create,
		newKeystore: keystore.NewKeystore,
		getenv:      os.Getenv,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "anthropic",
		Short: "Command-line client for the Anthropic Messages API",
		Long: `anthropic sends messages, counts tokens, lists models and manages
message batches against the Anthropic API or a cloud deployment of it.

Backends and defaults are grouped into profiles in ~/.anthropic/config.yaml.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	// Global flags available to all commands.
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.anthropic/config.yaml)")
	root.PersistentFlags().StringVarP(&a.profile, "profile", "p", "", "config profile to use")
	root.PersistentFlags().StringVarP(&a.model, "model", "m", "", "model ID or alias (opus, sonnet, haiku)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	root.AddCommand(a.newMessagesCommand())
	root.AddCommand(a.newModelsCommand())
	root.AddCommand(a.newBatchesCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newInitCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	defer a.closeLog()
	return a.root.ExecuteContext(ctx)
}

// Run executes the app with explicit arguments.
func (a *App) Run(ctx context.Context, args ...string) error {
	a.root.SetArgs(args)
	return a.ExecuteContext(ctx)
}

func (a *App) initConfig() error {
	if wd, err := os.Getwd(); err == nil {
		if err := godotenv.Load(filepath.Join(wd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return usageErrorf("load .env: %v", err)
		}
	}

	cfg, err := a.loadConfig(a.configPath())
	if err != nil {
		return usageErrorf("load config: %v", err)
	}
	a.cfg = cfg
	a.initLogger()
	return nil
}

func (a *App) initLogger() {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if a.logFile != "" {
		w := &lumberjack.Logger{
			Filename:   a.logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		a.logWriter = w
		a.logger = slog.New(slog.NewJSONHandler(w, opts))
		return
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, opts))
}

func (a *App) closeLog() {
	if a.logWriter != nil {
		_ = a.logWriter.Close()
		a.logWriter = nil
	}
}

// configPath returns the config file in use.
func (a *App) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return config.DefaultConfigPath()
}

var defaultApp = NewApp()

// Execute runs the default app root command.
func Execute() error {
	return defaultApp.Execute()
}
