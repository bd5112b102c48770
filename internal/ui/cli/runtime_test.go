package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreapp "lazyresolve/internal/core/app"
	"lazyresolve/internal/core/config"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"lazyresolve.toml":       "[sources]\nroots = [\"src\"]\n",
		"src/com/acme/Base.java": "package com.acme;\npublic class Base {}\n",
		"src/com/acme/Cart.java": "package com.acme;\nimport com.acme.missing.Thing;\npublic class Cart extends Base {\n  int size() { return 0; }\n}\n",
		"README.md":              "# Project\n<!-- lazyresolve:tree:start -->\n<!-- lazyresolve:tree:end -->\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestApplyModeOptions(t *testing.T) {
	tests := []struct {
		name string
		opts cliOptions
		db   bool
		want string
	}{
		{name: "once and watch", opts: cliOptions{once: true, watch: true}, want: "cannot be combined"},
		{name: "negative depth", opts: cliOptions{tree: true, depth: -1}, want: "--depth"},
		{name: "members without tree", opts: cliOptions{members: true}, want: "require --tree"},
		{name: "records without lookup", opts: cliOptions{recordsTSV: "out.tsv"}, db: true, want: "requires --lookup"},
		{name: "runs without db", opts: cliOptions{runs: true}, want: "require db.enabled"},
		{name: "bad inject", opts: cliOptions{inject: "README.md"}, want: "<file>:<marker>"},
		{name: "ok", opts: cliOptions{tree: true, members: true, inject: "README.md:tree"}},
		{name: "runs with db", opts: cliOptions{runs: true}, db: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.DB.Enabled = tt.db
			err := applyModeOptions(&tt.opts, cfg)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyModeOptions_PositionalRootsOverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := cliOptions{args: []string{"./a", "./b"}}
	require.NoError(t, applyModeOptions(&opts, cfg))
	assert.Equal(t, []string{"./a", "./b"}, cfg.Sources.Roots)
}

func TestParseInject(t *testing.T) {
	file, marker, err := parseInject(`C:\docs\README.md:tree`)
	require.NoError(t, err)
	assert.Equal(t, `C:\docs\README.md`, file)
	assert.Equal(t, "tree", marker)

	_, _, err = parseInject(":tree")
	assert.Error(t, err)
	_, _, err = parseInject("README.md:")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cwd := t.TempDir()

	cfg, path, err := loadConfig(defaultConfigPath, cwd)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, config.DefaultConfig().Sources.Roots, cfg.Sources.Roots)

	_, _, err = loadConfig("other.toml", cwd)
	assert.Error(t, err, "an explicit config must exist")

	require.NoError(t, os.WriteFile(filepath.Join(cwd, "other.toml"), []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	cfg, path, err = loadConfig("other.toml", cwd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "other.toml"), path)
	assert.Equal(t, "debug", cfg.Log.Level)

	nested := filepath.Join(cwd, "sub", "dir")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "lazyresolve.toml"), []byte("[log]\nlevel = \"warn\"\n"), 0o644))
	cfg, path, err = loadConfig(defaultConfigPath, nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "lazyresolve.toml"), path, "default config is found in a parent")
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"-version"}, &out, io.Discard))
	assert.Equal(t, "lazyresolve v"+versionString+"\n", out.String())
}

func TestRun_BadFlag(t *testing.T) {
	assert.Equal(t, 2, run(context.Background(), []string{"-no-such-flag"}, io.Discard, io.Discard))
}

func TestRun_OnceWritesReports(t *testing.T) {
	root := writeProject(t)
	tsv := filepath.Join(root, "out", "unresolved.tsv")
	readme := filepath.Join(root, "README.md")

	var out bytes.Buffer
	code := run(context.Background(), []string{
		"-config", filepath.Join(root, "lazyresolve.toml"),
		"-once",
		"-tree",
		"-unresolved-tsv", tsv,
		"-inject", readme + ":tree",
	}, &out, io.Discard)
	require.Equal(t, 0, code, out.String())

	assert.Contains(t, out.String(), "package com.acme")
	assert.Contains(t, out.String(), "Unresolved imports (1)")
	assert.Contains(t, out.String(), "com/acme/Cart.java:2 import com.acme.missing.Thing")

	data, err := os.ReadFile(tsv)
	require.NoError(t, err)
	assert.Contains(t, string(data), "unresolved_import\tcom/acme/Cart.java\t2\timport com.acme.missing.Thing")

	data, err = os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(data), "```text\n")
	assert.Contains(t, string(data), "class com.acme.Cart")
}

func TestRun_Lookup(t *testing.T) {
	root := writeProject(t)
	cfgPath := filepath.Join(root, "lazyresolve.toml")

	var out bytes.Buffer
	code := run(context.Background(), []string{"-config", cfgPath, "-once", "-lookup", "com.acme.Cart.size"}, &out, io.Discard)
	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "com.acme.Cart.size (1)")

	out.Reset()
	code = run(context.Background(), []string{"-config", cfgPath, "-once", "-lookup", "com.acme.Nope"}, &out, io.Discard)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "symbol not found")
}

func TestRun_PersistedRuns(t *testing.T) {
	root := writeProject(t)
	cfgPath := filepath.Join(root, "lazyresolve.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[sources]\nroots = [\"src\"]\n\n[db]\nenabled = true\n"), 0o644))
	records := filepath.Join(root, "records.tsv")

	code := run(context.Background(), []string{"-config", cfgPath, "-once", "-lookup", "com.acme.Cart", "-records-tsv", records}, io.Discard, io.Discard)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), "com.acme.Cart\tclass\tcom.acme\tcom/acme/Cart.java")

	var out bytes.Buffer
	code = run(context.Background(), []string{"-config", cfgPath, "-runs"}, &out, io.Discard)
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2, "header and one run")
}

func TestObservabilityServer_Health(t *testing.T) {
	root := writeProject(t)
	cfg := config.DefaultConfig()
	cfg.Sources.Roots = []string{"src"}
	a, err := coreapp.New(cfg, root, nil)
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(NewObservabilityServer("", a).handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = a.Build(context.Background())
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status healthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, 2, status.Files)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
