package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	owuiconfig "github.com/owui-tools/owui/config"
	"github.com/owui-tools/owui/openwebui"
	"github.com/owui-tools/owui/rest/server"
	"github.com/owui-tools/owui/types"
)

// POSIX-compliant exit codes
const (
	ExitSuccess      = 0   // Successful completion
	ExitGeneralError = 1   // General error
	ExitMisuse       = 2   // Misuse of shell command
	ExitSIGINT       = 130 // Terminated by Ctrl+C (128 + 2)
	ExitSIGTERM      = 143 // Terminated by SIGTERM (128 + 15)
)

// Build-time variables set via ldflags
var (
	Version   string = "v0.1.0"
	BuildTime string = "unknown"
	GitCommit string = "unknown"
	BuildMode string = "dev"
)

// Configuration
type Config struct {
	// Mode
	Mode string // "server", "cli"
	Port string

	// Common flags - QUIET IS DEFAULT
	Quiet   bool // Default: true
	Verbose bool
	Normal  bool

	// Output format for command results: "text" or "json"
	Output string

	// Open WebUI connection overrides (flags beat env beats config files)
	ServerURL string
	APIKey    string

	// File logging support
	LogFile    string
	ConfigFile string
}

const (
	PROGRAM_NAME = "owui"
)

var (
	logger     *zap.Logger
	rootConfig = &Config{}

	// Client cache for connection reuse across subcommand handlers
	cachedClient    types.Client
	cachedClientKey string
	cacheTime       time.Time
	cacheTimeout    = 30 * time.Minute
)

// Root command
var rootCmd = &cobra.Command{
	Use:   PROGRAM_NAME,
	Short: "Open WebUI command line client",
	Long: `Open WebUI command line client

Manage chats, folders and knowledge bases on an Open WebUI server, with an
optional retrieval step that augments prompts with context from your
knowledge bases before they reach the model.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		initLogger(rootConfig.Verbose, rootConfig.Quiet && !rootConfig.Normal, rootConfig.LogFile)

		// Setup signal handling
		setupSignalHandling()

		if rootConfig.Output != "text" && rootConfig.Output != "json" {
			return fmt.Errorf("invalid --output %q: must be 'text' or 'json'", rootConfig.Output)
		}

		// Log startup
		logger.Info("Application starting",
			zap.String("version", Version),
			zap.String("build_mode", BuildMode),
			zap.String("build_time", BuildTime),
			zap.String("git_commit", GitCommit),
			zap.String("mode", rootConfig.Mode))

		return nil
	},
}

// Server command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as REST API proxy server",
	Long:  "Start a local REST API server that proxies chat, folder and knowledge base operations to the configured Open WebUI instance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "server"
		return runServerMode(rootConfig)
	},
}

// Enhanced logger with file support and quiet mode default
func initLogger(verbose, quiet bool, logFile string) {
	var outputPaths, errorPaths []string

	// Configure output based on flags and log file
	if logFile != "" {
		// Create log directory if needed
		logDir := filepath.Dir(logFile)
		if logDir != "." && logDir != "" {
			os.MkdirAll(logDir, 0755)
		}

		outputPaths = []string{logFile}
		errorPaths = []string{logFile}

		// In verbose mode, also output to stderr
		if verbose {
			outputPaths = append(outputPaths, "stderr")
			errorPaths = append(errorPaths, "stderr")
		}
	} else if !quiet {
		// Only output to stderr if not in quiet mode
		outputPaths = []string{"stderr"}
		errorPaths = []string{"stderr"}
	} else {
		// Quiet mode: only errors to stderr
		outputPaths = []string{}
		errorPaths = []string{"stderr"}
	}

	var config zap.Config

	if verbose {
		// Verbose mode
		config = zap.Config{
			Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
			Development: true,
			Encoding:    "console",
			EncoderConfig: zapcore.EncoderConfig{
				TimeKey:        "T",
				LevelKey:       "L",
				NameKey:        "N",
				CallerKey:      "C",
				MessageKey:     "M",
				StacktraceKey:  "S",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    zapcore.CapitalColorLevelEncoder,
				EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeCaller:   zapcore.ShortCallerEncoder,
			},
			OutputPaths:      outputPaths,
			ErrorOutputPaths: errorPaths,
		}
	} else if quiet {
		// Quiet mode: minimal logging
		config = zap.Config{
			Level:            zap.NewAtomicLevelAt(zap.WarnLevel),
			Development:      false,
			Encoding:         "json",
			OutputPaths:      outputPaths,
			ErrorOutputPaths: errorPaths,
			EncoderConfig: zapcore.EncoderConfig{
				TimeKey:     "timestamp",
				LevelKey:    "level",
				MessageKey:  "message",
				LineEnding:  zapcore.DefaultLineEnding,
				EncodeLevel: zapcore.LowercaseLevelEncoder,
				EncodeTime:  zapcore.ISO8601TimeEncoder,
			},
		}
	} else {
		// Normal mode
		config = zap.Config{
			Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
			Development: false,
			Encoding:    "json",
			EncoderConfig: zapcore.EncoderConfig{
				TimeKey:        "ts",
				LevelKey:       "level",
				NameKey:        "logger",
				CallerKey:      "caller",
				MessageKey:     "msg",
				StacktraceKey:  "stacktrace",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    zapcore.LowercaseLevelEncoder,
				EncodeTime:     zapcore.EpochTimeEncoder,
				EncodeDuration: zapcore.SecondsDurationEncoder,
				EncodeCaller:   zapcore.ShortCallerEncoder,
			},
			OutputPaths:      outputPaths,
			ErrorOutputPaths: errorPaths,
		}
	}

	var err error
	logger, err = config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to initialize logger: %v\n", PROGRAM_NAME, err)
		os.Exit(ExitGeneralError)
	}

	// Only show log file info if not in quiet mode
	if logFile != "" && !quiet {
		fmt.Printf("📄 Logging to: %s\n", logFile)
	}
}

// Signal handling
func setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down gracefully", zap.String("signal", sig.String()))

		logger.Sync()

		switch sig {
		case os.Interrupt:
			os.Exit(ExitSIGINT)
		case syscall.SIGTERM:
			os.Exit(ExitSIGTERM)
		default:
			os.Exit(ExitGeneralError)
		}
	}()
}

// resolveClientConfig loads the layered configuration and applies any
// command-line overrides on top.
func resolveClientConfig(config *Config) (*owuiconfig.Config, error) {
	cfg, err := owuiconfig.Load(config.ConfigFile)
	if err != nil {
		// Overrides on the command line can satisfy what the files are
		// missing, so validate again after applying them.
		if config.ServerURL == "" && config.APIKey == "" {
			return nil, err
		}
		cfg = &owuiconfig.Config{Timeout: owuiconfig.DefaultTimeout}
	}

	if config.ServerURL != "" {
		cfg.ServerURL = config.ServerURL
	}
	if config.APIKey != "" {
		cfg.APIKey = config.APIKey
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("no server URL configured: set --server-url, %s, or server.url in a config file", owuiconfig.EnvServerURL)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured: set --api-key, %s, or server.api_key in a config file", owuiconfig.EnvAPIKey)
	}
	return cfg, nil
}

// getCachedClient returns the cached client if still valid, creating a new
// one otherwise.
func getCachedClient(config *Config) (types.Client, error) {
	cfg, err := resolveClientConfig(config)
	if err != nil {
		return nil, err
	}

	clientKey := fmt.Sprintf("%s|%s", cfg.ServerURL, cfg.APIKey)

	if cachedClient != nil &&
		cachedClientKey == clientKey &&
		time.Since(cacheTime) < cacheTimeout {
		logger.Debug("Using cached client",
			zap.String("server_url", cfg.ServerURL),
			zap.Duration("cache_age", time.Since(cacheTime)))
		return cachedClient, nil
	}

	if cachedClient != nil {
		logger.Info("Client cache miss",
			zap.Bool("cache_expired", time.Since(cacheTime) >= cacheTimeout),
			zap.Bool("config_changed", cachedClientKey != clientKey))
	} else {
		logger.Debug("Creating first client", zap.String("server_url", cfg.ServerURL))
	}

	client := openwebui.New(cfg, openwebui.WithLogger(logger))

	cachedClient = client
	cachedClientKey = clientKey
	cacheTime = time.Now()

	return client, nil
}

// runServerMode starts the REST proxy with the configured upstream client
func runServerMode(config *Config) error {
	logger.Info("Starting in server mode", zap.String("port", config.Port))

	client, err := getCachedClient(config)
	if err != nil {
		logger.Error("Failed to create client for server mode", zap.Error(err))
		return fmt.Errorf("failed to create client for server: %w", err)
	}

	serverConfig := &server.Config{
		Verbose: config.Verbose,
		Quiet:   config.Quiet && !config.Normal,
	}

	restServer := server.NewRestServer(serverConfig, logger, client)
	restServer.Start(config.Port)
	return nil
}

// Error handling helper
func exitWithError(err error, exitCode int) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", PROGRAM_NAME, err)
	if logger != nil {
		logger.Error("Application error", zap.Error(err), zap.Int("exit_code", exitCode))
		logger.Sync()
	}
	os.Exit(exitCode)
}

func init() {
	// Initialize configuration with defaults
	rootConfig.Mode = "cli"
	rootConfig.Port = "8080"
	rootConfig.Quiet = true // DEFAULT TO QUIET MODE
	rootConfig.Output = "text"
	rootConfig.LogFile = os.Getenv("OWUI_LOG_FILE")

	// Add persistent flags
	rootCmd.PersistentFlags().BoolVarP(&rootConfig.Quiet, "quiet", "q", true, "Quiet mode (DEFAULT - minimal CLI output)")
	rootCmd.PersistentFlags().BoolVar(&rootConfig.Normal, "normal", false, "Normal mode (show standard output)")
	rootCmd.PersistentFlags().BoolVarP(&rootConfig.Verbose, "verbose", "v", false, "Verbose mode (detailed output + debug info)")
	rootCmd.PersistentFlags().StringVarP(&rootConfig.Output, "output", "o", "text", "Output format: text or json")
	rootCmd.PersistentFlags().StringVar(&rootConfig.LogFile, "log-file", rootConfig.LogFile, "Log to specified file (auto-creates directory)")
	rootCmd.PersistentFlags().StringVar(&rootConfig.ServerURL, "server-url", "", "Open WebUI server URL (or set "+owuiconfig.EnvServerURL+")")
	rootCmd.PersistentFlags().StringVar(&rootConfig.APIKey, "api-key", "", "Open WebUI API key (or set "+owuiconfig.EnvAPIKey+")")
	rootCmd.PersistentFlags().StringVar(&rootConfig.ConfigFile, "config", "", "Configuration file path")

	// Server command flags
	serveCmd.Flags().StringVarP(&rootConfig.Port, "port", "p", "8080", "Port for server mode")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(docsCmd)

	// Customize version template
	rootCmd.SetVersionTemplate(`{{.Use}} {{.Version}}
Built: ` + BuildTime + `
Commit: ` + GitCommit + `
Mode: ` + BuildMode + `
Features: CLI and REST Services
POSIX Compliant: Yes
`)
}
