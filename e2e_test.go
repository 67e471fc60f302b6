package main

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gotypeset/pkg/config"
	"gotypeset/pkg/export"
)

const projectFile = `
inputs = {
  title = "Quarterly"
}

output {
  path  = "out/doc.json.zst"
  png   = "out/page"
  scale = 0.5
}
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(text), 0o644))
	}
	return dir
}

func collectText(items []export.Item) string {
	var parts []string
	for _, it := range items {
		switch it.Kind {
		case "text":
			parts = append(parts, it.Text)
		case "group":
			parts = append(parts, collectText(it.Frame.Items))
		}
	}
	return strings.Join(parts, " ")
}

func TestEndToEnd(t *testing.T) {
	dir := writeProject(t, map[string]string{
		config.FileName: projectFile,
		"main.typ":      "= #sys.inputs.title\n#import \"lib.typ\": total\nRevenue grew to #total.",
		"lib.typ":       "#let total = 40 + 2",
	})

	cfg, err := loadConfig("", filepath.Join(dir, "main.typ"))
	require.NoError(t, err)
	require.Equal(t, "main.typ", cfg.Main)
	require.NoError(t, run(context.Background(), cfg, false, 0, false))

	data, err := os.ReadFile(filepath.Join(dir, "out", "doc.json.zst"))
	require.NoError(t, err)
	require.True(t, export.IsCompressed(data))
	doc, err := export.Decode(data)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	require.Empty(t, doc.Diagnostics)

	var text []string
	for _, f := range doc.Pages[0].Frames {
		text = append(text, collectText(f.Items))
	}
	joined := strings.Join(text, " ")
	require.Contains(t, joined, "Quarterly")
	require.Contains(t, joined, "42.")

	f, err := os.Open(filepath.Join(dir, "out", "page-1.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 298, img.Width)
	require.Equal(t, 421, img.Height)
}

func TestLoadConfigFromDocumentPath(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"docs/report.typ": "Report",
	})
	cfg, err := loadConfig("", filepath.Join(dir, "docs", "report.typ"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "docs"), cfg.Root)
	require.Equal(t, "report.typ", cfg.Main)
}

func TestEndToEndFatal(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"main.typ": "#import \"b.typ\"\nA",
		"b.typ":    "#import \"main.typ\"\nB",
	})
	cfg, err := loadConfig("", filepath.Join(dir, "main.typ"))
	require.NoError(t, err)
	cfg.Output.Path = filepath.Join(dir, "doc.json")
	require.Error(t, run(context.Background(), cfg, false, 0, false))
	_, err = os.Stat(cfg.Output.Path)
	require.True(t, os.IsNotExist(err))
}

func TestInputFlags(t *testing.T) {
	f := inputFlags{}
	require.NoError(t, f.Set("draft=yes"))
	require.NoError(t, f.Set("title=a=b"))
	require.Error(t, f.Set("novalue"))
	require.Len(t, f, 2)
}

func TestOnlyOutputs(t *testing.T) {
	outputs := []string{"out/doc.json", "out/page-"}
	require.True(t, onlyOutputs([]string{"out/doc.json", "out/page-3.png"}, outputs))
	require.False(t, onlyOutputs([]string{"out/doc.json", "main.typ"}, outputs))
	require.False(t, onlyOutputs([]string{"out/page-notes.typ"}, outputs))
}
