package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simonhull/mediaprobe"
	"github.com/simonhull/mediaprobe/internal/metrics"
)

var (
	errStyle  = color.New(color.FgRed, color.Bold)
	warnStyle = color.New(color.FgYellow)
	pathStyle = color.New(color.FgCyan, color.Bold)
)

type output struct {
	Path       string                 `json:"path"`
	Hint       mediaprobe.FormatID    `json:"hint,omitempty"`
	Descriptor *mediaprobe.Descriptor `json:"descriptor"`
}

// Parses each file given and prints its descriptor as JSON.
func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	mediaType := flag.String("type", "", "media type of every file: audio, video or image (guessed when empty)")
	metricsAddr := flag.String("metrics", "", "serve prometheus metrics on this address and keep running until interrupted")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: mediaprobe [flags] <file>...")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		printJSON(mediaprobe.GetVersionInfo())
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := mediaprobe.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	forced, err := parseMediaType(*mediaType)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = serveMetrics(cfg.MetricsAddr)
	}

	c := mediaprobe.FromConfig(cfg)
	defer c.Close()

	reqs := make([]mediaprobe.Request, flag.NArg())
	for i, path := range flag.Args() {
		hint, err := mediaprobe.DetectFile(path)
		if err != nil {
			errStyle.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
		mt := forced
		if mt == mediaprobe.MediaUnknown {
			mt = mediaprobe.GuessMediaType(hint)
		}
		reqs[i] = mediaprobe.Request{Item: mediaprobe.FileItem(path), Hint: hint, MediaType: mt}
	}

	results, err := c.ParseMany(ctx, reqs...)
	for i, d := range results {
		if d == nil {
			continue
		}
		path := reqs[i].Item.Path
		pathStyle.Fprintln(os.Stderr, path)
		for _, w := range d.Warnings {
			warnStyle.Fprintf(os.Stderr, "  warning: %s\n", w)
		}
		printJSON(output{Path: path, Hint: reqs[i].Hint, Descriptor: d})
	}
	if err != nil {
		errStyle.Fprintf(os.Stderr, "Stopped early: %v\n", err)
	}

	if srv != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string) *http.Server {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errStyle.Fprintf(os.Stderr, "Metrics server failed: %v\n", err)
		}
	}()
	return srv
}

func parseMediaType(s string) (mediaprobe.MediaType, error) {
	switch s {
	case "":
		return mediaprobe.MediaUnknown, nil
	case "audio":
		return mediaprobe.MediaAudio, nil
	case "video":
		return mediaprobe.MediaVideo, nil
	case "image":
		return mediaprobe.MediaImage, nil
	}
	return mediaprobe.MediaUnknown, fmt.Errorf("unknown media type %q", s)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	errStyle.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
