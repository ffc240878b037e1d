package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/modshim/loader"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvNoWarnings, "")

	cfg, err := Load("", "test")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Path)
	assert.Equal(t, loader.DefaultNamespace, cfg.Namespace)
	assert.False(t, cfg.Warnings.Silent)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.hcl"), "test")
	require.Error(t, err)
}

func TestLoadFull(t *testing.T) {
	t.Setenv(EnvNoWarnings, "")
	t.Setenv("MODSHIM_TEST_REASON", "needs a native driver")
	path := writeConfig(t, `
shim_dir = "${cwd}/vendor/shims"

warnings {
  keep_internal = true
  trace         = true
}

virtual "bun:sqlite" {
  unsupported = env("MODSHIM_TEST_REASON")
}

virtual "bun:extra" {
  redirect = "./shims/extra.js"
}

virtual "bun:answer" {
  source = "export default 42; // ${version}"
}
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Join(dir, "vendor", "shims"), cfg.ShimDir)
	assert.Equal(t, Warnings{KeepInternal: true, Trace: true}, cfg.Warnings)
	require.Len(t, cfg.Virtual, 3)

	assert.Equal(t, "needs a native driver", *cfg.Virtual[0].Unsupported)
	assert.Equal(t, filepath.Join(dir, "shims", "extra.js"), *cfg.Virtual[1].Redirect)
	assert.Equal(t, "export default 42; // 1.2.3", *cfg.Virtual[2].Source)
}

func TestLoadRejectsAmbiguousVirtual(t *testing.T) {
	tests := map[string]string{
		"none": `virtual "bun:x" {}`,
		"two": `
virtual "bun:x" {
  source   = "export {}"
  redirect = "/x.js"
}`,
		"duplicate": `
virtual "bun:x" {
  source = "export {}"
}
virtual "bun:x" {
  source = "export {}"
}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body), "test")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bun:x")
		})
	}
}

func TestLoadSyntaxError(t *testing.T) {
	_, err := Load(writeConfig(t, `namespace = `), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestEnvSilencesWarnings(t *testing.T) {
	t.Chdir(t.TempDir())
	for value, want := range map[string]bool{"1": true, "yes": true, "0": false, "false": false, "": false} {
		t.Run(value, func(t *testing.T) {
			t.Setenv(EnvNoWarnings, value)
			cfg, err := Load("", "test")
			require.NoError(t, err)
			assert.Equal(t, want, cfg.Warnings.Silent)
		})
	}
}

func TestTableMergesProjectEntries(t *testing.T) {
	t.Setenv(EnvNoWarnings, "")
	path := writeConfig(t, `
virtual "bun:sqlite" {
  source = "export default {};"
}
virtual "bun:answer" {
  source = "export default 42;"
}
`)
	cfg, err := Load(path, "test")
	require.NoError(t, err)

	table, err := cfg.Table("/shims")
	require.NoError(t, err)

	e, match := table.Lookup("bun:sqlite")
	require.Equal(t, loader.MatchFound, match)
	assert.IsType(t, loader.Inline{}, e.Dispatch, "project entry should replace the built-in one")

	_, match = table.Lookup("bun:answer")
	assert.Equal(t, loader.MatchFound, match)
	_, match = table.Lookup("bun:ffi")
	assert.Equal(t, loader.MatchFound, match)
}

func TestTableCustomNamespace(t *testing.T) {
	t.Setenv(EnvNoWarnings, "")
	path := writeConfig(t, `
namespace = "deno"
virtual "deno:kv" {
  unsupported = ""
}
`)
	cfg, err := Load(path, "test")
	require.NoError(t, err)

	table, err := cfg.Table("/shims")
	require.NoError(t, err)
	assert.Equal(t, []string{"deno:kv"}, table.Names())

	_, match := table.Lookup("bun")
	assert.Equal(t, loader.MatchNone, match)
}

func TestTableRejectsForeignNames(t *testing.T) {
	t.Setenv(EnvNoWarnings, "")
	path := writeConfig(t, `
virtual "other:thing" {
  source = "export {}"
}
`)
	cfg, err := Load(path, "test")
	require.NoError(t, err)
	_, err = cfg.Table("/shims")
	require.Error(t, err)
}
