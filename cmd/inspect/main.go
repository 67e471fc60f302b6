package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/config"
	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/utils"
	"gotypeset/pkg/world"
)

func main() {
	showTokens := flag.Bool("tokens", false, "dump tokens")
	showTree := flag.Bool("tree", false, "dump the syntax tree")
	showContent := flag.Bool("content", false, "dump the evaluated content")
	showFrames := flag.Bool("frames", false, "dump the typeset frames")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-tokens] [-tree] [-content] [-frames] <document>")
		os.Exit(2)
	}
	all := !*showTokens && !*showTree && !*showContent && !*showFrames

	root, main, err := utils.SplitMain(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve error:", err)
		os.Exit(1)
	}
	cfg, err := config.Find(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	w, err := world.NewSystem(root, main, world.WithLibrary(cfg.Library()))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load error:", err)
		os.Exit(1)
	}
	src, err := w.Source(w.Main())
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}

	if all || *showTokens {
		fmt.Println("Tokens")
		dumpTokens(os.Stdout, src.Root())
		fmt.Println()
	}
	if all || *showTree {
		fmt.Println("Tree")
		fmt.Print(src.Root().Dump())
		fmt.Println()
	}
	if all || *showContent {
		tracer := diag.NewTracer()
		mod, err := eval.Eval(w, eval.NewRoute(), tracer, src)
		fmt.Println("Content")
		if err != nil {
			report(w, err)
		} else {
			dumpContent(os.Stdout, mod.Content, 0)
		}
		fmt.Println()
	}
	if all || *showFrames {
		doc, err := compiler.New().Compile(context.Background(), w)
		fmt.Println("Frames")
		if err != nil {
			report(w, err)
			os.Exit(1)
		}
		dumpFrames(os.Stdout, doc)
		fmt.Println()
		diag.Print(os.Stderr, doc.Diagnostics, w)
	}
}

func report(w *world.System, err error) {
	var ds diag.Diagnostics
	if errors.As(err, &ds) {
		diag.Print(os.Stderr, ds, w)
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
}
