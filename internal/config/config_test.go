package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every environment input so the host cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CXX", "GYP_MSVS_VERSION",
		"HDRGEN_PROBE_MODE", "HDRGEN_PROBE_ORDER", "HDRGEN_PROBE_TIMEOUT",
		"HDRGEN_COMMIT_COMMAND", "HDRGEN_VERSION_TIMEOUT", "HDRGEN_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".hdrgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Probe.Compiler != "g++" {
		t.Errorf("expected Compiler=g++, got %s", cfg.Probe.Compiler)
	}
	if cfg.Version.CommitCommand != "git log --pretty=format:%H -1" {
		t.Errorf("unexpected CommitCommand %q", cfg.Version.CommitCommand)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	assert.Equal(t, 30*time.Second, cfg.GetProbeTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetVersionTimeout())
	assert.Equal(t, []string{"std", "tr1"}, cfg.Probe.Order)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
probe:
  mode: active
  compiler: clang++
  flags: ["-std=c++11"]
  order: [tr1, std, boost]
  timeout: 5s
  static_tiers:
    "2010": tr1
version:
  commit_command: hg id -i
  timeout: 2s
  commit_fallback: unknown
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "active", cfg.Probe.Mode)
	assert.Equal(t, "clang++", cfg.Probe.Compiler)
	assert.Equal(t, []string{"-std=c++11"}, cfg.Probe.Flags)
	assert.Equal(t, []string{"tr1", "std", "boost"}, cfg.Probe.Order)
	assert.Equal(t, 5*time.Second, cfg.GetProbeTimeout())
	assert.Equal(t, "tr1", cfg.Probe.StaticTiers["2010"])
	assert.Equal(t, "tr1", cfg.Probe.StaticTiers["2008"], "default table entries are kept")
	assert.Equal(t, "hg id -i", cfg.Version.CommitCommand)
	assert.Equal(t, 2*time.Second, cfg.GetVersionTimeout())
	assert.Equal(t, "unknown", cfg.Version.CommitFallback)
	assert.Equal(t, "package-version", cfg.Version.DefaultVersionID)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "probe:\n  compiler: clang++\n")

	t.Setenv("CXX", "ccache g++-12")
	t.Setenv("GYP_MSVS_VERSION", "2008")
	t.Setenv("HDRGEN_PROBE_MODE", "static")
	t.Setenv("HDRGEN_PROBE_ORDER", "boost, std")
	t.Setenv("HDRGEN_PROBE_TIMEOUT", "1m")
	t.Setenv("HDRGEN_COMMIT_COMMAND", "git rev-parse HEAD")
	t.Setenv("HDRGEN_VERSION_TIMEOUT", "3s")
	t.Setenv("HDRGEN_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ccache g++-12", cfg.Probe.Compiler)
	assert.Equal(t, "2008", cfg.Probe.ToolchainVersion)
	assert.Equal(t, "static", cfg.Probe.Mode)
	assert.Equal(t, []string{"boost", "std"}, cfg.Probe.Order)
	assert.Equal(t, time.Minute, cfg.GetProbeTimeout())
	assert.Equal(t, "git rev-parse HEAD", cfg.Version.CommitCommand)
	assert.Equal(t, 3*time.Second, cfg.GetVersionTimeout())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvAppliesWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CXX", "clang++")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "clang++", cfg.Probe.Compiler)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "probe: [",
		"unknown mode":    "probe:\n  mode: cross\n",
		"unknown tier":    "probe:\n  order: [std, auto_ptr]\n",
		"duplicate tier":  "probe:\n  order: [std, std]\n",
		"none tier":       "probe:\n  order: [none]\n",
		"empty order":     "probe:\n  order: []\n",
		"bad timeout":     "probe:\n  timeout: soon\n",
		"zero timeout":    "version:\n  timeout: 0s\n",
		"blank compiler":  "probe:\n  compiler: \"  \"\n",
		"bad static tier": "probe:\n  static_tiers:\n    \"2012\": cxx11\n",
		"bad log format":  "logging:\n  format: xml\n",
		"blank commit":    "version:\n  commit_command: \"\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, content))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HDRGEN_PROBE_MODE", "sometimes")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_UnreadableFile(t *testing.T) {
	clearEnv(t)
	// A directory cannot be read as a file.
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("HDRGEN_PROBE_TIMEOUT")
	t.Setenv("CXX", "already-set")

	path := filepath.Join(t.TempDir(), "build.env")
	require.NoError(t, os.WriteFile(path, []byte("HDRGEN_PROBE_TIMEOUT=45s\nCXX=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("HDRGEN_PROBE_TIMEOUT") })

	require.NoError(t, LoadEnvFile(path))
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.GetProbeTimeout())
	assert.Equal(t, "already-set", cfg.Probe.Compiler, "existing variables win over the env file")
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCompilerCommand(t *testing.T) {
	bin, args := ProbeConfig{Compiler: "g++"}.CompilerCommand()
	assert.Equal(t, "g++", bin)
	assert.Empty(t, args)

	bin, args = ProbeConfig{Compiler: "ccache  g++", Flags: []string{"-std=c++11"}}.CompilerCommand()
	assert.Equal(t, "ccache", bin)
	assert.Equal(t, []string{"g++", "-std=c++11"}, args)
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg := &Config{Probe: ProbeConfig{Timeout: "junk"}, Version: VersionConfig{Timeout: "-1s"}}
	assert.Equal(t, 30*time.Second, cfg.GetProbeTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetVersionTimeout())
}
