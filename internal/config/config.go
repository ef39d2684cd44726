package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/genricoloni/adskip/internal/classifier"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	AppName   = "adskip"
	envPrefix = "ADSKIP"

	defaultPlayerBinary   = "spotify"
	defaultServiceName    = "org.mpris.MediaPlayer2.spotify"
	defaultObjectPath     = "/org/mpris/MediaPlayer2"
	defaultKillGrace      = 3 * time.Second
	defaultStartupTimeout = 5 * time.Second
	defaultRestartTimeout = 2 * time.Second
	defaultProbeInterval  = 200 * time.Millisecond
	defaultLogLevel       = "info"

	minProbeInterval = 50 * time.Millisecond
	maxProbeInterval = 200 * time.Millisecond
)

// AppConfig holds application configuration
type AppConfig struct {
	playerBinary    string
	playerArgs      []string
	serviceName     string
	objectPath      string
	killGrace       time.Duration
	startupTimeout  time.Duration
	restartTimeout  time.Duration
	probeInterval   time.Duration
	lenientCommands bool
	classifierMode  string
	logLevel        string
	configFile      string
}

// Flags returns the command-line flags understood by Load
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("player.binary", defaultPlayerBinary, "player executable to supervise")
	fs.String("log.level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.Bool("commands.lenient", false, "keep going when Play/Next fail after a restart")
	fs.String("classifier.mode", classifier.ModeMembership, "ad classifier (membership, positional)")
	return fs
}

// Load reads defaults, an optional config file, ADSKIP_* environment
// variables and the given flags, in increasing order of precedence
func Load(flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
		v.AddConfigPath(filepath.Join("/etc", AppName))
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional unless explicitly requested
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.GetString("config") != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &AppConfig{
		playerBinary:    v.GetString("player.binary"),
		playerArgs:      v.GetStringSlice("player.args"),
		serviceName:     v.GetString("player.service"),
		objectPath:      v.GetString("player.path"),
		killGrace:       v.GetDuration("player.kill_grace"),
		startupTimeout:  v.GetDuration("ready.startup_timeout"),
		restartTimeout:  v.GetDuration("ready.restart_timeout"),
		probeInterval:   clampInterval(v.GetDuration("ready.interval")),
		lenientCommands: v.GetBool("commands.lenient"),
		classifierMode:  v.GetString("classifier.mode"),
		logLevel:        v.GetString("log.level"),
		configFile:      v.ConfigFileUsed(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("player.binary", defaultPlayerBinary)
	v.SetDefault("player.args", []string{"--minimized"})
	v.SetDefault("player.service", defaultServiceName)
	v.SetDefault("player.path", defaultObjectPath)
	v.SetDefault("player.kill_grace", defaultKillGrace)
	v.SetDefault("ready.startup_timeout", defaultStartupTimeout)
	v.SetDefault("ready.restart_timeout", defaultRestartTimeout)
	v.SetDefault("ready.interval", defaultProbeInterval)
	v.SetDefault("commands.lenient", false)
	v.SetDefault("classifier.mode", classifier.ModeMembership)
	v.SetDefault("log.level", defaultLogLevel)
}

func clampInterval(d time.Duration) time.Duration {
	switch {
	case d < minProbeInterval:
		return minProbeInterval
	case d > maxProbeInterval:
		return maxProbeInterval
	default:
		return d
	}
}

func (c *AppConfig) validate() error {
	switch {
	case c.playerBinary == "":
		return errors.New("player.binary must not be empty")
	case c.serviceName == "":
		return errors.New("player.service must not be empty")
	case !strings.HasPrefix(c.objectPath, "/"):
		return fmt.Errorf("player.path must be an absolute object path, got %q", c.objectPath)
	case c.killGrace <= 0:
		return fmt.Errorf("player.kill_grace must be positive, got %s", c.killGrace)
	case c.startupTimeout <= 0:
		return fmt.Errorf("ready.startup_timeout must be positive, got %s", c.startupTimeout)
	case c.restartTimeout <= 0:
		return fmt.Errorf("ready.restart_timeout must be positive, got %s", c.restartTimeout)
	}
	if _, err := classifier.ForMode(c.classifierMode); err != nil {
		return err
	}
	return nil
}

// Log writes the effective configuration
func (c *AppConfig) Log(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("configFile", c.configFile),
		zap.String("binary", c.playerBinary),
		zap.Strings("args", c.playerArgs),
		zap.String("service", c.serviceName),
		zap.String("path", c.objectPath),
		zap.Duration("startupTimeout", c.startupTimeout),
		zap.Duration("restartTimeout", c.restartTimeout),
		zap.Duration("probeInterval", c.probeInterval),
		zap.Bool("lenientCommands", c.lenientCommands),
		zap.String("classifier", c.classifierMode))

	if c.classifierMode == classifier.ModePositional {
		logger.Warn("Positional ad classifier is deprecated and misses ads whose marker is not segment 3")
	}
}

// GetPlayerBinary returns the executable spawned for the player
func (c *AppConfig) GetPlayerBinary() string { return c.playerBinary }

// GetPlayerArgs returns the arguments passed to the player
func (c *AppConfig) GetPlayerArgs() []string { return c.playerArgs }

// GetServiceName returns the well-known bus name of the player
func (c *AppConfig) GetServiceName() string { return c.serviceName }

// GetObjectPath returns the MPRIS object path of the player
func (c *AppConfig) GetObjectPath() string { return c.objectPath }

// GetKillGrace returns how long to wait after SIGTERM before SIGKILL
func (c *AppConfig) GetKillGrace() time.Duration { return c.killGrace }

// GetStartupTimeout returns the readiness bound for the first start
func (c *AppConfig) GetStartupTimeout() time.Duration { return c.startupTimeout }

// GetRestartTimeout returns the readiness bound after a restart
func (c *AppConfig) GetRestartTimeout() time.Duration { return c.restartTimeout }

// GetProbeInterval returns the delay between readiness probes
func (c *AppConfig) GetProbeInterval() time.Duration { return c.probeInterval }

// GetLenientCommands reports whether Play/Next failures after a restart are swallowed
func (c *AppConfig) GetLenientCommands() bool { return c.lenientCommands }

// GetClassifierMode returns the ad classifier to use
func (c *AppConfig) GetClassifierMode() string { return c.classifierMode }

// GetLogLevel returns the configured zap level name
func (c *AppConfig) GetLogLevel() string { return c.logLevel }
