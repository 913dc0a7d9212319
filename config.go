package mediaprobe

import (
	"github.com/redis/go-redis/v9"

	"github.com/simonhull/mediaprobe/internal/config"
	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/mediainfo"
	"github.com/simonhull/mediaprobe/internal/probe"
	"github.com/simonhull/mediaprobe/internal/tagaudio"
	"github.com/simonhull/mediaprobe/internal/thumbnail"
)

// Config is the mediaprobe configuration, read from YAML and the environment.
type Config = config.Config

// LoadConfig reads the configuration from the YAML file at path, with
// environment variables taking precedence. An empty path reads the
// environment only.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Options turns cfg into coordinator options: the enabled backends, the
// wait timeout and, when thumbnails are enabled, a resolver backed by
// memory or by redis when an address is configured.
func Options(cfg *config.Config) []Option {
	tags := tagaudio.New()
	ffmpeg := probe.NewFFmpeg(cfg.Tools.FFmpegPath, cfg.Timeouts.Probe, cfg.Timeouts.Thumbnail)

	opts := []Option{
		WithTagReader(tags),
		WithFFmpeg(ffmpeg),
		WithWaitTimeout(cfg.Timeouts.Wait),
	}
	if cfg.Tools.EnableMediaInfo {
		cli := mediainfo.NewCLI(cfg.Tools.MediaInfoPath, cfg.Timeouts.Probe)
		opts = append(opts, WithMediaInfo(mediainfo.NewAdapter(cli, tags)))
	}
	if cfg.Tools.EnableDCRaw {
		opts = append(opts, WithDCRaw(probe.NewDCRaw(cfg.Tools.DCRawPath, cfg.Timeouts.Probe)))
	}
	if cfg.Tools.EnableMPlayer {
		opts = append(opts, WithMPlayer(probe.NewMPlayer(cfg.Tools.MPlayerPath, cfg.Timeouts.Probe), 1))
	}

	if !cfg.Thumbnail.Enabled {
		return opts
	}

	resolver := &thumbnail.Resolver{
		Store:       thumbnail.NewMemoryStore(),
		Frames:      ffmpeg,
		SeekSeconds: cfg.Thumbnail.SeekSeconds,
	}
	var cache thumbnail.Cache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		resolver.Store = thumbnail.NewRedisStore(client, cfg.Redis.TTL)
		cache = thumbnail.NewRedisCache(client, cfg.Redis.TTL)
		opts = append(opts, withCloser(client))
	}
	if cfg.Cover.Enabled {
		agent := cfg.Cover.UserAgent
		if agent == "" {
			agent = UserAgent()
		}
		resolver.Covers = thumbnail.NewCoverProvider(thumbnail.CoverOptions{
			MusicBrainzURL: cfg.Cover.MusicBrainzURL,
			CoverArtURL:    cfg.Cover.CoverArtURL,
			UserAgent:      agent,
			Cache:          cache,
		})
	}
	return append(opts, WithThumbnails(resolver))
}

// FromConfig applies the configured log level and returns a Coordinator
// built from cfg. Close it to release the redis connection, if any.
func FromConfig(cfg *config.Config) *Coordinator {
	logger.Log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	return New(Options(cfg)...)
}
