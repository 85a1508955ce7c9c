package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"
	DefaultLrclibGetURL = "https://lrclib.net/api/get"
	HTTPTimeoutSeconds  = 10
	PollInterval        = 100 * time.Millisecond
	DefaultContextLines = 2

	envPrefix     = "LYRIFLOAT"
	configDirName = "lyrifloat"
)

const (
	KeyMprisService = "mpris_service"
	KeyLrclibURL    = "lrclib_url"
	KeyOffsetMs     = "offset_ms"
	KeyHideHeader   = "hide_header"
	KeyNoCache      = "no_cache"
	KeyPollInterval = "poll_interval"
	KeyContextLines = "context_lines"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
)

// names used before the LYRIFLOAT_ prefix existed
var legacyEnv = map[string]string{
	KeyMprisService: "MPRIS_SERVICE",
	KeyLrclibURL:    "LRCLIB_GET_URL",
	KeyOffsetMs:     "SYNC_OFFSET_MS",
	KeyHideHeader:   "HIDE_HEADER",
}

type Config struct {
	MprisService string
	LrclibURL    string
	// OffsetMs is subtracted from playback progress before line lookup.
	OffsetMs     int64
	HideHeader   bool
	NoCache      bool
	PollInterval time.Duration
	ContextLines int
	LogLevel     string
	LogFile      string
	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyMprisService, DefaultMprisService)
	v.SetDefault(KeyLrclibURL, DefaultLrclibGetURL)
	v.SetDefault(KeyOffsetMs, 0)
	v.SetDefault(KeyHideHeader, false)
	v.SetDefault(KeyNoCache, false)
	v.SetDefault(KeyPollInterval, PollInterval)
	v.SetDefault(KeyContextLines, DefaultContextLines)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, envPrefix+"_"+strings.ToUpper(key), legacy)
	}

	return v
}

// Load reads defaults, the optional config file, environment variables and
// any flags registered with BindFlags, in increasing priority.
func Load() (*Config, error) {
	return load(newViper(), nil)
}

// LoadWithFlags is Load with flag overrides taken from fs.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	return load(newViper(), fs)
}

func load(v *viper.Viper, fs *pflag.FlagSet) (*Config, error) {
	if dir, err := configDirectory(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if fs != nil {
		if err := bindChangedFlags(v, fs); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		MprisService: v.GetString(KeyMprisService),
		LrclibURL:    v.GetString(KeyLrclibURL),
		OffsetMs:     v.GetInt64(KeyOffsetMs),
		HideHeader:   v.GetBool(KeyHideHeader),
		NoCache:      v.GetBool(KeyNoCache),
		PollInterval: v.GetDuration(KeyPollInterval),
		ContextLines: v.GetInt(KeyContextLines),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFile:      v.GetString(KeyLogFile),
		ConfigFile:   v.ConfigFileUsed(),
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = PollInterval
	}
	if cfg.ContextLines < 0 {
		cfg.ContextLines = 0
	}

	return cfg, nil
}

// flag names use dashes, config keys use underscores
var flagKeys = map[string]string{
	"mpris-service": KeyMprisService,
	"lrclib-url":    KeyLrclibURL,
	"offset":        KeyOffsetMs,
	"hide-header":   KeyHideHeader,
	"no-cache":      KeyNoCache,
	"poll-interval": KeyPollInterval,
	"context-lines": KeyContextLines,
	"log-level":     KeyLogLevel,
	"log-file":      KeyLogFile,
}

// BindFlags registers the flags that override configuration values.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP("mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	fs.String("lrclib-url", "", "custom lrclib api url")
	fs.Int64P("offset", "o", 0, "presentation offset in milliseconds (positive highlights later)")
	fs.BoolP("hide-header", "H", false, "hide header section")
	fs.Bool("no-cache", false, "disable cache reads (always fetch fresh)")
	fs.Duration("poll-interval", PollInterval, "player polling interval")
	fs.Int("context-lines", DefaultContextLines, "lines shown above and below the current one")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "write logs to this file")
}

// only flags the user actually set may override lower layers, otherwise the
// flag defaults would mask config files and the environment
func bindChangedFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func configDirectory() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", configDirName), nil
}
