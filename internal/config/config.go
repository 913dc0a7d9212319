// Package config loads mediaprobe configuration from YAML files and the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the struct used to contain the various user config supplied
// by file or environment.
type Config struct {
	Tools     ToolsConfig     `yaml:"tools"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Cover     CoverConfig     `yaml:"cover"`
	Redis     RedisConfig     `yaml:"redis"`

	MetricsAddr string `yaml:"metrics_addr" env:"MEDIAPROBE_METRICS_ADDR"`
	LogLevel    string `yaml:"log_level" env:"MEDIAPROBE_LOG_LEVEL" env-default:"info"`
}

// ToolsConfig locates the external binaries and toggles the backends that use them.
type ToolsConfig struct {
	MediaInfoPath   string `yaml:"mediainfo_path" env:"MEDIAPROBE_MEDIAINFO" env-default:"mediainfo"`
	FFmpegPath      string `yaml:"ffmpeg_path" env:"MEDIAPROBE_FFMPEG" env-default:"ffmpeg"`
	DCRawPath       string `yaml:"dcraw_path" env:"MEDIAPROBE_DCRAW" env-default:"dcraw"`
	MPlayerPath     string `yaml:"mplayer_path" env:"MEDIAPROBE_MPLAYER" env-default:"mplayer"`
	EnableMediaInfo bool   `yaml:"enable_mediainfo" env:"MEDIAPROBE_ENABLE_MEDIAINFO" env-default:"true"`
	EnableDCRaw     bool   `yaml:"enable_dcraw" env:"MEDIAPROBE_ENABLE_DCRAW" env-default:"true"`
	EnableMPlayer   bool   `yaml:"enable_mplayer" env:"MEDIAPROBE_ENABLE_MPLAYER" env-default:"false"`
}

// TimeoutConfig bounds the time spent waiting on external work.
type TimeoutConfig struct {
	Probe     time.Duration `yaml:"probe" env:"MEDIAPROBE_PROBE_TIMEOUT" env-default:"10s"`
	Thumbnail time.Duration `yaml:"thumbnail" env:"MEDIAPROBE_THUMBNAIL_TIMEOUT" env-default:"3s"`
	Wait      time.Duration `yaml:"wait" env:"MEDIAPROBE_WAIT_TIMEOUT" env-default:"5s"`
}

type ThumbnailConfig struct {
	Enabled bool `yaml:"enabled" env:"MEDIAPROBE_THUMBNAILS" env-default:"true"`

	// Seek position in seconds for frame extraction.
	SeekSeconds float64 `yaml:"seek_seconds" env:"MEDIAPROBE_THUMBNAIL_SEEK" env-default:"4"`
}

// CoverConfig configures the remote cover art provider.
type CoverConfig struct {
	Enabled        bool   `yaml:"enabled" env:"MEDIAPROBE_COVER_ENABLED" env-default:"false"`
	UserAgent      string `yaml:"user_agent" env:"MEDIAPROBE_COVER_USER_AGENT"`
	MusicBrainzURL string `yaml:"musicbrainz_url" env:"MEDIAPROBE_MUSICBRAINZ_URL" env-default:"https://musicbrainz.org/ws/2"`
	CoverArtURL    string `yaml:"coverart_url" env:"MEDIAPROBE_COVERART_URL" env-default:"https://coverartarchive.org"`
}

// RedisConfig enables the shared thumbnail store and cover lookup cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"MEDIAPROBE_REDIS_ADDR"`
	Password string        `yaml:"password" env:"MEDIAPROBE_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"MEDIAPROBE_REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"MEDIAPROBE_REDIS_TTL" env-default:"24h"`
}

// Load reads the configuration from the YAML file at path, with environment
// variables taking precedence. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", path, err)
	}
	return cfg, nil
}
