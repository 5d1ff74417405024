package buildcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Dev())
	assert.Equal(t, filepath.Join("dist", "app.html"), cfg.Output.File())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
mode: development
title: Demo
hello: Go
datastar: vendor/datastar.js
output:
  filename: index.html
lint:
  exclude: [vendor]
`))
	require.NoError(t, err)

	want := Default()
	want.Mode = Development
	want.Title = "Demo"
	want.Hello = "Go"
	want.Datastar = "vendor/datastar.js"
	want.Output.Filename = "index.html"
	want.Lint.Exclude = []string{"vendor"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, cfg.Dev())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "mode: [unclosed"},
		{"bad mode", "mode: staging"},
		{"relative entry", "entry: home"},
		{"nested filename", "output: {filename: a/b.html}"},
		{"extension without dot", "lint: {extensions: [go]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("mode: staging"))
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "hellovia.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mount: app\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Mount)
}
