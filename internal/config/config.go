package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"eventstream/internal/ledger"
	"eventstream/internal/ledger/retry"
)

// Streaming modes
const (
	ModeAuto    = "auto"
	ModeLive    = "live"
	ModeArchive = "archive"
)

// Archive backends
const (
	ArchiveLedgers = "ledgers" // getLedgers, one ledger per call
	ArchiveBackend = "backend" // ledgerbackend.RPCLedgerBackend
	ArchiveNone    = "none"
)

type Config struct {
	// RPC Server URL
	RPCServerURL string
	RPCTimeout   time.Duration

	// Buffer size for the ledger backend
	BufferSize int

	// Session bounds ( 0 start means latest, 0 stop means unbounded )
	StreamName              string
	Mode                    string
	StartLedger             uint32
	StopLedger              uint32
	SkipWaitWhileCatchingUp bool
	Resume                  bool // start after the last stored ledger

	Archive string

	// Streamer timing
	PagingInterval     time.Duration
	LedgerWaitInterval time.Duration
	ArchivalInterval   time.Duration
	PageLimit          uint

	// YAML filter file, empty delivers everything
	FiltersFile string

	// Sinks
	DatabaseURL  string
	AMQPURL      string
	AMQPExchange string
	LogEvents    bool

	APIPort  int
	LogLevel string

	Retry retry.Config
}

// Load returns the configuration read from environment variables
func Load() *Config {
	defaults := retry.DefaultConfig()

	return &Config{
		RPCServerURL: getEnv("RPC_SERVER_URL", "https://soroban-testnet.stellar.org"),
		RPCTimeout:   getEnvAsDuration("RPC_TIMEOUT", 30*time.Second),
		BufferSize:   getEnvAsInt("BUFFER_SIZE", 10),

		StreamName:              getEnv("STREAM_NAME", "eventstream"),
		Mode:                    strings.ToLower(getEnv("STREAM_MODE", ModeAuto)),
		StartLedger:             getEnvAsUint32("START_LEDGER", 0),
		StopLedger:              getEnvAsUint32("STOP_LEDGER", 0),
		SkipWaitWhileCatchingUp: getEnvAsBool("SKIP_WAIT_WHILE_CATCHING_UP", false),
		Resume:                  getEnvAsBool("RESUME", true),

		Archive: strings.ToLower(getEnv("ARCHIVE_SOURCE", ArchiveLedgers)),

		PagingInterval:     getEnvAsDuration("PAGING_INTERVAL", ledger.DefaultPagingInterval),
		LedgerWaitInterval: getEnvAsDuration("LEDGER_WAIT_INTERVAL", ledger.DefaultLedgerWaitInterval),
		ArchivalInterval:   getEnvAsDuration("ARCHIVAL_INTERVAL", ledger.DefaultArchivalInterval),
		PageLimit:          uint(getEnvAsInt("PAGE_LIMIT", ledger.DefaultPageLimit)),

		FiltersFile: os.Getenv("FILTERS_FILE"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "stellar.events"),
		LogEvents:    getEnvAsBool("LOG_EVENTS", false),

		APIPort:  getEnvAsInt("API_PORT", 2112),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		Retry: retry.Config{
			Enabled:      getEnvAsBool("RETRY_ENABLED", defaults.Enabled),
			MaxRetries:   getEnvAsInt("RETRY_MAX_RETRIES", defaults.MaxRetries),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", defaults.InitialDelay),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", defaults.MaxDelay),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.RPCServerURL == "" {
		return fmt.Errorf("RPCServerURL is required")
	}

	switch c.Mode {
	case ModeAuto, ModeLive:
	case ModeArchive:
		if c.StartLedger == 0 || c.StopLedger == 0 {
			return fmt.Errorf("archive mode needs START_LEDGER and STOP_LEDGER")
		}
		if c.Archive == ArchiveNone {
			return fmt.Errorf("archive mode needs an archive source")
		}
	default:
		return fmt.Errorf("unknown STREAM_MODE %q", c.Mode)
	}

	switch c.Archive {
	case ArchiveLedgers, ArchiveBackend, ArchiveNone:
	default:
		return fmt.Errorf("unknown ARCHIVE_SOURCE %q", c.Archive)
	}

	if c.StopLedger != 0 && c.StartLedger > c.StopLedger {
		return fmt.Errorf("START_LEDGER %d is after STOP_LEDGER %d", c.StartLedger, c.StopLedger)
	}
	if c.PagingInterval > c.LedgerWaitInterval {
		return fmt.Errorf("PAGING_INTERVAL %s exceeds LEDGER_WAIT_INTERVAL %s", c.PagingInterval, c.LedgerWaitInterval)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid API_PORT %d", c.APIPort)
	}

	return c.Retry.Validate()
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get bool from env
func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get ledger sequence from env
func getEnvAsUint32(key string, defaultVal uint32) uint32 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseUint(valStr, 10, 32)
	if err != nil {
		return defaultVal
	}
	return uint32(val)
}

// Helper: get duration from env ( "250ms", "5s" )
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
