package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/config"
	"gotypeset/pkg/ctxlog"
	"gotypeset/pkg/utils"
	"gotypeset/pkg/world"
)

func main() {
	scale := flag.Float64("scale", 2, "pixels per point")
	cols := flag.Int("cols", 4, "pages per row in the overview")
	interval := flag.Duration("interval", 300*time.Millisecond, "polling interval for file changes")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <document>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	root, main, err := utils.SplitMain(flag.Arg(0))
	if err != nil {
		log.Fatalf("resolve %s: %v", flag.Arg(0), err)
	}
	cfg, err := config.Find(root)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if rel, ok := utils.RelToRoot(cfg.Root, filepath.Join(root, main)); ok {
		main = rel
	} else {
		cfg.Root = root
	}

	logger := ctxlog.New(*logLevel, cfg.LogFormat, os.Stderr)
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))
	defer cancel()

	w, err := world.NewSystem(cfg.Root, main, world.WithLibrary(cfg.Library()))
	if err != nil {
		log.Fatalf("load project: %v", err)
	}
	s := newSession(w, compiler.New(compiler.WithLogger(logger)), *scale)

	// Recompile in the background whenever a project file changes.
	go func() {
		s.rebuild(ctx)
		if err := w.Watch(ctx, *interval, func(changed []string) {
			logger.Info("recompiling", "changed", changed)
			s.rebuild(ctx)
		}); err != nil && ctx.Err() == nil {
			logger.Error("watch stopped", "error", err)
		}
	}()

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(800, 1000)
	ebiten.SetWindowTitle("gotypeset preview: " + main)

	if err := ebiten.RunGame(newGame(s, *cols)); err != nil {
		log.Fatal(err)
	}
}
