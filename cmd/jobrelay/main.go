package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jobrelay/jobrelay/internal/api"
	"github.com/jobrelay/jobrelay/internal/genai"
	"github.com/jobrelay/jobrelay/internal/messaging"
	"github.com/jobrelay/jobrelay/internal/store"
	"github.com/jobrelay/jobrelay/internal/util"
	"github.com/jobrelay/jobrelay/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for JobRelay state data
	DefaultStateDir = "/var/lib/jobrelay"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "jobrelay.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device store filename
	DefaultWhatsAppDBFileName = "whatsapp.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags, config)
	apiOpts := buildAPIOptions(flags, config)

	msgService, err := buildMessagingService(config, flags)
	if err != nil {
		slog.Error("Failed to build messaging service", "error", err, "provider", config.Provider)
		os.Exit(1)
	}

	// Start the service
	slog.Info("Bootstrapping JobRelay with configured modules", "provider", config.Provider)
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(msgService, storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("JobRelay failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("JobRelay exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	OpenAIModel     string
	APIAddr         string
	AllowedGroups   []string
	DedupWindowSecs int
	EvalConcurrency int
	EvalTimeoutSecs int
	Provider        string
	WhapiToken      string
	WhapiAPIURL     string
	WebhookURL      string
	SetupWebhook    bool
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	WhatsAppDSN     string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput  *string
	numeric   *bool
	stateDir  *string
	dbDSN     *string
	openaiKey *string
	apiAddr   *string
}

// initializeLogger sets up structured logging at the level given by LOG_LEVEL
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("JOBRELAY_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		APIAddr:         os.Getenv("API_ADDR"),
		AllowedGroups:   util.SplitListEnv("ALLOWED_GROUP_IDS"),
		DedupWindowSecs: util.ParseIntEnv("DEDUP_WINDOW_SECONDS", 120),
		EvalConcurrency: util.ParseIntEnv("EVAL_CONCURRENCY", 4),
		EvalTimeoutSecs: util.ParseIntEnv("EVAL_TIMEOUT_SECONDS", 30),
		Provider:        os.Getenv("MESSAGING_PROVIDER"),
		WhapiToken:      os.Getenv("WHAPI_TOKEN"),
		WhapiAPIURL:     os.Getenv("WHAPI_API_URL"),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		SetupWebhook:    util.ParseBoolEnv("SETUP_WEBHOOK", false),
		TwilioSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:      os.Getenv("TWILIO_FROM_NUMBER"),
		WhatsAppDSN:     os.Getenv("WHATSAPP_DB_DSN"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No JOBRELAY_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("JOBRELAY_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	// The whatsmeow device store defaults to its own SQLite file alongside the
	// subscriber database
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)
	}

	if config.Provider == "" {
		config.Provider = "whapi"
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"JOBRELAY_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"ALLOWED_GROUP_IDS", len(config.AllowedGroups),
		"MESSAGING_PROVIDER", config.Provider,
		"SETUP_WEBHOOK", config.SetupWebhook)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:  flag.String("qr-output", "", "path to write login QR code (whatsmeow provider)"),
		numeric:   flag.Bool("numeric-code", false, "use numeric login code instead of QR code (whatsmeow provider)"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for JobRelay data (overrides $JOBRELAY_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN for the subscriber directory (overrides $DATABASE_URL)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if config.OpenAIModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(config.OpenAIModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server and pipeline configuration options
func buildAPIOptions(flags Flags, config Config) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if config.WebhookURL != "" {
		apiOpts = append(apiOpts, api.WithWebhookURL(config.WebhookURL))
	}
	if config.SetupWebhook {
		apiOpts = append(apiOpts, api.WithSetupWebhook())
	}
	if len(config.AllowedGroups) > 0 {
		apiOpts = append(apiOpts, api.WithAllowedGroups(config.AllowedGroups))
	}
	apiOpts = append(apiOpts,
		api.WithDedupWindow(time.Duration(config.DedupWindowSecs)*time.Second),
		api.WithEvalConcurrency(config.EvalConcurrency),
		api.WithEvalTimeout(time.Duration(config.EvalTimeoutSecs)*time.Second),
	)
	return apiOpts
}

// buildMessagingService selects and constructs the outbound delivery backend
func buildMessagingService(config Config, flags Flags) (messaging.Service, error) {
	switch config.Provider {
	case "whapi":
		var opts []messaging.WhapiOption
		if config.WhapiToken != "" {
			opts = append(opts, messaging.WithWhapiToken(config.WhapiToken))
		}
		if config.WhapiAPIURL != "" {
			opts = append(opts, messaging.WithWhapiBaseURL(config.WhapiAPIURL))
		}
		return messaging.NewWhapiService(opts...), nil
	case "twilio":
		return messaging.NewTwilioService(
			messaging.WithTwilioCredentials(config.TwilioSID, config.TwilioToken),
			messaging.WithTwilioFromNumber(config.TwilioFrom),
		)
	case "whatsmeow":
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(config.WhatsAppDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsMeowService(client), nil
	default:
		return nil, fmt.Errorf("unknown messaging provider: %q", config.Provider)
	}
}
