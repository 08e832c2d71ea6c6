package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/glomers/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// DefaultConfigName is the name of the optional configuration file, without
// extension, looked up in DataDir.
const DefaultConfigName = "glomers"

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultLogFile        = ""
	DefaultGossipInterval = 100 * time.Millisecond
	DefaultMetricsAddr    = ""
	DefaultSimNodes       = 5
	DefaultSimLoss        = 0.0
	DefaultSimSeed        = 1
	DefaultSimValues      = 25
	DefaultSimDuration    = 3 * time.Second
	DefaultSimTopology    = "grid"
)

// Config contains all the configuration properties of a node process.
type Config struct {
	// DataDir is the directory where the optional glomers.toml (or .yaml,
	// .json) configuration file is looked up.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output. Logs are always
	// written to stderr since stdout carries the protocol.
	LogLevel string `mapstructure:"log" validate:"oneof=debug info warn error fatal panic"`

	// LogFile, when set, receives a JSON copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// GossipInterval is the period of the anti-entropy rounds of broadcast
	// nodes.
	GossipInterval time.Duration `mapstructure:"gossip-interval" validate:"gt=0"`

	// MetricsAddr is the address:port of the optional HTTP service exposing
	// prometheus metrics. Empty disables the service.
	MetricsAddr string `mapstructure:"metrics-listen" validate:"omitempty,hostname_port"`

	// Simulation holds the options of the simulate command.
	Simulation SimulationConfig `mapstructure:",squash"`

	logger *logrus.Logger
}

// SimulationConfig controls the in-process cluster run by the simulate
// command.
type SimulationConfig struct {
	// Nodes is the number of broadcast nodes.
	Nodes int `mapstructure:"nodes" validate:"min=1"`

	// Loss is the probability that a message between two nodes is dropped.
	Loss float64 `mapstructure:"loss" validate:"gte=0,lt=1"`

	// Seed seeds the loss decisions and the choice of broadcast targets.
	Seed int64 `mapstructure:"seed"`

	// Values is the number of distinct values broadcast to random nodes.
	Values int `mapstructure:"values" validate:"min=0"`

	// Duration bounds how long the simulation waits for convergence.
	Duration time.Duration `mapstructure:"duration" validate:"gt=0"`

	// Topology is one of line, grid or full.
	Topology string `mapstructure:"topology" validate:"oneof=line grid full"`
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:        DefaultDataDir(),
		LogLevel:       DefaultLogLevel,
		LogFile:        DefaultLogFile,
		GossipInterval: DefaultGossipInterval,
		MetricsAddr:    DefaultMetricsAddr,
		Simulation: SimulationConfig{
			Nodes:    DefaultSimNodes,
			Loss:     DefaultSimLoss,
			Seed:     DefaultSimSeed,
			Values:   DefaultSimValues,
			Duration: DefaultSimDuration,
			Topology: DefaultSimTopology,
		},
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// Logger returns a formatted logrus Entry, with prefix set to "glomers".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Out = os.Stderr
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.AddHook(lfshook.NewHook(c.LogFile, &logrus.JSONFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "glomers")
}

// DefaultDataDir return the default directory name for top-level glomers
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Glomers")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Glomers")
		} else {
			return filepath.Join(home, ".glomers")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
