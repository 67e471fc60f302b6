// Package config loads the project file gotypeset.hcl.
//
//	main       = "main.typ"
//	log_level  = "debug"
//	inputs     = { title = "Report", draft = true }
//
//	page {
//	  paper  = "a4"
//	  margin = "2cm"
//	}
//
//	text {
//	  font = "Go"
//	  size = "11pt"
//	}
//
//	output {
//	  path  = "out/doc.json.zst"
//	  png   = "out/page"
//	  scale = 2
//	}
//
//	publish {
//	  url       = "http://localhost:3000"
//	  namespace = "/preview"
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"gotypeset/pkg/eval"
	"gotypeset/pkg/library"
	"gotypeset/pkg/model"
)

// FileName is the name of the project file in a project root.
const FileName = "gotypeset.hcl"

// ErrInvalidConfig wraps every parse and validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is a resolved project configuration.
type Config struct {
	Main      string
	Root      string
	LogLevel  string
	LogFormat string
	Page      Page
	Text      Text
	Output    Output
	Publish   Publish
	Inputs    map[string]eval.Value
}

// Page holds page dimensions in points. Nil fields keep the defaults.
type Page struct {
	Width  *float64
	Height *float64
	Margin *float64
}

type Text struct {
	Font string
	Size *float64
}

type Output struct {
	Path  string
	PNG   string
	Scale float64
}

type Publish struct {
	URL       string
	Namespace string
	Room      string
}

// hclFile is the decoding target of a project file.
type hclFile struct {
	Main      string      `hcl:"main,optional"`
	Root      string      `hcl:"root,optional"`
	LogLevel  string      `hcl:"log_level,optional"`
	LogFormat string      `hcl:"log_format,optional"`
	Inputs    cty.Value   `hcl:"inputs,optional"`
	Page      *hclPage    `hcl:"page,block"`
	Text      *hclText    `hcl:"text,block"`
	Output    *hclOutput  `hcl:"output,block"`
	Publish   *hclPublish `hcl:"publish,block"`
}

type hclPage struct {
	Paper  string `hcl:"paper,optional"`
	Width  string `hcl:"width,optional"`
	Height string `hcl:"height,optional"`
	Margin string `hcl:"margin,optional"`
}

type hclText struct {
	Font string `hcl:"font,optional"`
	Size string `hcl:"size,optional"`
}

type hclOutput struct {
	Path  string  `hcl:"path,optional"`
	PNG   string  `hcl:"png,optional"`
	Scale float64 `hcl:"scale,optional"`
}

type hclPublish struct {
	URL       string `hcl:"url"`
	Namespace string `hcl:"namespace,optional"`
	Room      string `hcl:"room,optional"`
}

// Default returns the configuration used without a project file.
func Default() *Config {
	return &Config{
		Main:      "main.typ",
		Root:      ".",
		LogLevel:  "info",
		LogFormat: "text",
		Output:    Output{Scale: 1},
		Publish:   Publish{Namespace: "/"},
		Inputs:    map[string]eval.Value{},
	}
}

// Load reads the project file at path. Relative root and output paths
// are resolved against the file's directory.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for _, p := range []*string{&cfg.Root, &cfg.Output.Path, &cfg.Output.PNG} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return cfg, nil
}

// Find loads FileName from dir, or returns the defaults rooted at dir if
// there is none.
func Find(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.Root = dir
		return cfg, nil
	}
	return cfg, err
}

// Parse decodes a project file. filename only labels diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, filename, diags)
	}
	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, filename, diags)
	}

	cfg := Default()
	setString(&cfg.Main, raw.Main)
	setString(&cfg.Root, raw.Root)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)
	if err := cfg.decodePage(raw.Page); err != nil {
		return nil, err
	}
	if t := raw.Text; t != nil {
		cfg.Text.Font = t.Font
		if t.Size != "" {
			size, err := ParseLength(t.Size)
			if err != nil {
				return nil, fmt.Errorf("%w: text size: %w", ErrInvalidConfig, err)
			}
			cfg.Text.Size = &size
		}
	}
	if o := raw.Output; o != nil {
		cfg.Output = Output{Path: o.Path, PNG: o.PNG, Scale: o.Scale}
		if cfg.Output.Scale <= 0 {
			cfg.Output.Scale = 1
		}
	}
	if p := raw.Publish; p != nil {
		cfg.Publish = Publish{URL: p.URL, Namespace: p.Namespace, Room: p.Room}
		setString(&cfg.Publish.Namespace, "/")
	}
	if !raw.Inputs.IsNull() {
		v, err := FromCty(raw.Inputs)
		if err != nil {
			return nil, fmt.Errorf("%w: inputs: %w", ErrInvalidConfig, err)
		}
		d, ok := v.(*eval.Dict)
		if !ok {
			return nil, fmt.Errorf("%w: inputs must be an object", ErrInvalidConfig)
		}
		for _, k := range d.Keys() {
			cfg.Inputs[k], _ = d.Get(k)
		}
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, cfg.LogFormat)
	}
	return cfg, nil
}

func (c *Config) decodePage(p *hclPage) error {
	if p == nil {
		return nil
	}
	if p.Paper != "" {
		w, h, ok := library.Paper(p.Paper)
		if !ok {
			return fmt.Errorf("%w: unknown paper %q", ErrInvalidConfig, p.Paper)
		}
		c.Page.Width, c.Page.Height = &w, &h
	}
	for _, f := range []struct {
		name string
		src  string
		dst  **float64
	}{
		{"width", p.Width, &c.Page.Width},
		{"height", p.Height, &c.Page.Height},
		{"margin", p.Margin, &c.Page.Margin},
	} {
		if f.src == "" {
			continue
		}
		v, err := ParseLength(f.src)
		if err != nil {
			return fmt.Errorf("%w: page %s: %w", ErrInvalidConfig, f.name, err)
		}
		*f.dst = &v
	}
	return nil
}

// setString keeps the default unless v is set.
func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

var lengthPattern = regexp.MustCompile(`^\s*(-?[0-9]+(?:\.[0-9]+)?)\s*(pt|mm|cm|in)?\s*$`)

// ParseLength reads an absolute length such as "12pt", "2.5cm" or "1in"
// and returns it in points. A bare number is in points.
func ParseLength(s string) (float64, error) {
	m := lengthPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	switch m[2] {
	case "mm":
		v = v * 72 / 25.4
	case "cm":
		v = v * 72 / 2.54
	case "in":
		v *= 72
	}
	return v, nil
}

// Styles returns the style overrides the configuration sets.
func (c *Config) Styles() model.Style {
	var s model.Style
	s.PageWidth, s.PageHeight, s.PageMargin = c.Page.Width, c.Page.Height, c.Page.Margin
	if c.Text.Font != "" {
		font := c.Text.Font
		s.Font = &font
	}
	if c.Text.Size != nil {
		size := model.Pt(*c.Text.Size)
		s.Size = &size
	}
	return s
}

// Library builds the standard library with the configured inputs and
// styles.
func (c *Config) Library() *eval.Library {
	return library.Build(library.WithInputs(c.Inputs), library.WithStyles(c.Styles()))
}

// MainPath returns the main file relative to the root.
func (c *Config) MainPath() string { return filepath.ToSlash(c.Main) }
