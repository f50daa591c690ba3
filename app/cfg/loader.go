package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP service
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Parsing limits
	MaxBodyBytes    int64 `long:"max-body-bytes" env:"MAX_BODY_BYTES" default:"10485760" description:"Maximum accepted request body size in bytes"`
	MaxEntries      int   `long:"max-entries" env:"MAX_ENTRIES" default:"0" description:"Maximum number of entries returned per feed (0 means unlimited)"`
	StreamQueueSize int   `long:"stream-queue-size" env:"STREAM_QUEUE_SIZE" default:"16" description:"Number of parsed entries buffered ahead of a streaming consumer"`

	// Application metadata
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"json" choice:"json" choice:"text" description:"Log output format"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

var ErrHelp = errors.New("help requested")

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses the given command line arguments on top of the
// environment and stores the result as the global configuration.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, ErrHelp
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("invalid max body size %d: must be positive", raw.MaxBodyBytes)
	}
	if raw.MaxEntries < 0 {
		return nil, fmt.Errorf("invalid max entries %d: must not be negative", raw.MaxEntries)
	}
	if raw.StreamQueueSize < 0 {
		return nil, fmt.Errorf("invalid stream queue size %d: must not be negative", raw.StreamQueueSize)
	}

	cfg := &Cfg{
		Port:            raw.Port,
		APIAccessKey:    raw.APIAccessKey,
		MaxBodyBytes:    raw.MaxBodyBytes,
		MaxEntries:      raw.MaxEntries,
		StreamQueueSize: raw.StreamQueueSize,
		LogFormat:       raw.LogFormat,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
