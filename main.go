//go:build !js

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/config"
	"gotypeset/pkg/ctxlog"
	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/export"
	"gotypeset/pkg/layout"
	"gotypeset/pkg/publish"
	"gotypeset/pkg/render"
	"gotypeset/pkg/utils"
	"gotypeset/pkg/world"
)

type inputFlags map[string]eval.Value

func (f inputFlags) String() string { return "" }

func (f inputFlags) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	f[key] = eval.Str(value)
	return nil
}

func main() {
	inPath := flag.String("in", "", "main document (default: main from the config)")
	configPath := flag.String("config", "", "project file (default: "+config.FileName+" next to the document)")
	outPath := flag.String("out", "", "export path ending in .json or .json.zst")
	pngPrefix := flag.String("png", "", "write every page to <prefix>-<n>.png")
	scale := flag.Float64("scale", 0, "pixels per point for -png")
	publishURL := flag.String("publish", "", "socket.io server to publish the document to")
	room := flag.String("room", "", "room to publish into")
	watch := flag.Bool("watch", false, "recompile whenever a project file changes")
	interval := flag.Duration("interval", 500*time.Millisecond, "polling interval for -watch")
	fingerprint := flag.Bool("fingerprint", false, "print the document fingerprint")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	logFormat := flag.String("log-format", "", "text or json")
	inputs := inputFlags{}
	flag.Var(inputs, "input", "document input key=value, available as sys.inputs (repeatable)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	override(&cfg.Output.Path, *outPath)
	override(&cfg.Output.PNG, *pngPrefix)
	override(&cfg.Publish.URL, *publishURL)
	override(&cfg.Publish.Room, *room)
	override(&cfg.LogLevel, *logLevel)
	override(&cfg.LogFormat, *logFormat)
	if *scale > 0 {
		cfg.Output.Scale = *scale
	}
	for k, v := range inputs {
		cfg.Inputs[k] = v
	}

	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := run(ctx, cfg, *watch, *interval, *fingerprint); err != nil && !errors.Is(err, context.Canceled) {
		var ds diag.Diagnostics
		if !errors.As(err, &ds) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the project file. A document given on the command line
// sets the root and main unless the project file names a root.
func loadConfig(configPath, inPath string) (*config.Config, error) {
	dir := "."
	var root, main string
	if inPath != "" {
		var err error
		root, main, err = utils.SplitMain(inPath)
		if err != nil {
			return nil, err
		}
		dir = root
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Find(dir)
	}
	if err != nil {
		return nil, err
	}
	if inPath != "" {
		if rel, ok := utils.RelToRoot(cfg.Root, filepath.Join(root, main)); ok {
			cfg.Main = rel
		} else {
			cfg.Root, cfg.Main = root, main
		}
	}
	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func run(ctx context.Context, cfg *config.Config, watch bool, interval time.Duration, printFingerprint bool) error {
	logger := ctxlog.FromContext(ctx)
	w, err := world.NewSystem(cfg.Root, cfg.MainPath(), world.WithLibrary(cfg.Library()))
	if err != nil {
		return err
	}
	c := compiler.New(compiler.WithLogger(logger))

	var pub *publish.Publisher
	if cfg.Publish.URL != "" {
		client, err := publish.Dial(ctx, cfg.Publish.URL, publish.DialOptions{
			Namespace: cfg.Publish.Namespace,
			Room:      cfg.Publish.Room,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		pub = publish.New(client, publish.WithRoom(cfg.Publish.Room), publish.WithBook(w.Book()))
	}

	build := func() error {
		doc, err := c.Compile(ctx, w)
		if err != nil {
			var ds diag.Diagnostics
			if errors.As(err, &ds) {
				diag.Print(os.Stderr, ds, w)
			}
			return err
		}
		diag.Print(os.Stderr, doc.Diagnostics, w)
		return emit(ctx, cfg, w, doc, pub, printFingerprint)
	}

	err = build()
	if !watch {
		return err
	}
	if err != nil {
		logger.Warn("compilation failed", "error", err)
	}

	outputs := outputNames(cfg)
	logger.Info("watching", "root", cfg.Root, "interval", interval)
	return w.Watch(ctx, interval, func(changed []string) {
		if onlyOutputs(changed, outputs) {
			return
		}
		logger.Info("recompiling", "changed", changed)
		if err := build(); err != nil {
			logger.Warn("compilation failed", "error", err)
		}
	})
}

func emit(ctx context.Context, cfg *config.Config, w *world.System, doc *layout.Document, pub *publish.Publisher, printFingerprint bool) error {
	logger := ctxlog.FromContext(ctx)
	if path := cfg.Output.Path; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := export.WriteFile(path, doc, export.WithBook(w.Book())); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		logger.Info("exported", "path", path, "pages", len(doc.Pages))
	}
	if prefix := cfg.Output.PNG; prefix != "" {
		r := render.New(w)
		for i, page := range doc.Pages {
			path := fmt.Sprintf("%s-%d.png", prefix, i+1)
			if err := writePNG(path, r, page, cfg.Output.Scale); err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}
		}
		logger.Info("rendered", "prefix", prefix, "pages", len(doc.Pages), "scale", cfg.Output.Scale)
	}
	if printFingerprint {
		fp, err := export.Fingerprint(doc)
		if err != nil {
			return err
		}
		fmt.Println(fp)
	}
	if pub != nil {
		if _, err := pub.Publish(ctx, doc); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	logger.Debug("done", slog.Int("pages", len(doc.Pages)), slog.Int("diagnostics", len(doc.Diagnostics)))
	return nil
}

func writePNG(path string, r *render.Renderer, page *layout.Page, scale float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WritePNG(f, r.Page(page, scale, color.White)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// outputNames lists the project-relative names of files the build writes.
func outputNames(cfg *config.Config) []string {
	var names []string
	if cfg.Output.Path != "" {
		if rel, ok := utils.RelToRoot(cfg.Root, cfg.Output.Path); ok {
			names = append(names, rel)
		}
	}
	if cfg.Output.PNG != "" {
		if rel, ok := utils.RelToRoot(cfg.Root, cfg.Output.PNG); ok {
			names = append(names, rel+"-")
		}
	}
	return names
}

func onlyOutputs(changed, outputs []string) bool {
	for _, name := range changed {
		own := false
		for _, out := range outputs {
			if name == out || (strings.HasSuffix(out, "-") && strings.HasPrefix(name, out) && strings.HasSuffix(name, ".png")) {
				own = true
				break
			}
		}
		if !own {
			return false
		}
	}
	return true
}
