package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"hdrgen/internal/config"
	"hdrgen/internal/subst"
	"hdrgen/internal/version"

	"go.uber.org/zap"
)

const memoryTemplate = "#ifndef LINEAR_MEMORY_H_\n@HAVE_STD_SHARED_PTR@\n@HAVE_TR1_SHARED_PTR@\n@HAVE_BOOST_SHARED_PTR@\n#endif\n"

const versionTemplate = "#define LINEAR_VERSION_ID \"@LINEAR_VERSION_ID@\"\n#define LINEAR_COMMIT_ID \"@LINEAR_COMMIT_ID@\"\n"

// resetGlobals clears flag state left by a previous Execute.
func resetGlobals(t *testing.T) {
	t.Helper()
	verbose = false
	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	envFile = ""
	logFormat = ""
	replaceIn, replaceOut, replaceMapping = "", "", ""
	memoryIn, memoryOut = "", ""
	versionMetadata, versionIn, versionOut = "", "", ""
	allMemoryIn, allMemoryOut, allVersionIn, allVersionOut, allMetadata = "", "", "", "", ""
	logger = zap.NewNop()
}

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

// execute runs the root command with args and returns the exit status.
func execute(t *testing.T, args ...string) int {
	t.Helper()
	resetGlobals(t)
	rootCmd.SetArgs(append([]string{"--config", configPath, "--log-format", "json"}, args...))
	return exitCode(rootCmd.ExecuteContext(context.Background()))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat err=%v", path, err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{argErrorf("missing --input"), exitArgument},
		{fmt.Errorf("wrapped: %w", argErrorf("x")), exitArgument},
		{fmt.Errorf("%w: bad mode", config.ErrInvalid), exitConfig},
		{&version.MetadataError{Reason: "no AC_INIT declaration found"}, exitMetadata},
		{&subst.FileError{Op: "write", Path: "out.h", Err: os.ErrPermission}, exitFileIO},
		{fmt.Errorf("%w: %w", version.ErrMetadataRead, os.ErrNotExist), exitFileIO},
		{context.Canceled, exitUnexpected},
		{errors.New("boom"), exitUnexpected},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRequireFlags(t *testing.T) {
	if err := requireFlags(requiredFlag{"input", "a"}, requiredFlag{"output", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := requireFlags(requiredFlag{"input", ""}, requiredFlag{"output", "b"}, requiredFlag{"replace", " "})
	if exitCode(err) != exitArgument {
		t.Fatalf("expected argument error, got %v", err)
	}
	if !strings.Contains(err.Error(), "--input, --replace") {
		t.Fatalf("expected both missing flags named, got %q", err)
	}
}

func TestReplace(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "config.h.in", "#define FOO @X@\n#define BAR @Y@")
	out := filepath.Join(dir, "config.h")

	if code := execute(t, "replace", "-i", in, "-o", out, "-r", `{'@X@': '1', '@Y@': '2'}`); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := readFile(t, out); got != "#define FOO 1\n#define BAR 2" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestReplace_MissingFlagWritesNothing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "config.h.in", "@X@")
	out := filepath.Join(dir, "config.h")

	if code := execute(t, "replace", "-i", in, "-o", out); code != exitArgument {
		t.Fatalf("expected exit %d, got %d", exitArgument, code)
	}
	assertNotExist(t, out)
}

func TestReplace_InvalidMapping(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "config.h.in", "@X@")
	out := filepath.Join(dir, "config.h")

	if code := execute(t, "replace", "-i", in, "-o", out, "-r", "[1, 2]"); code != exitArgument {
		t.Fatalf("expected exit %d, got %d", exitArgument, code)
	}
	assertNotExist(t, out)
}

func TestReplace_MissingInput(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	code := execute(t, "replace", "-i", filepath.Join(dir, "nope.in"), "-o", filepath.Join(dir, "out.h"), "-r", "{}")
	if code != exitFileIO {
		t.Fatalf("expected exit %d, got %d", exitFileIO, code)
	}
}

func TestUsageErrors(t *testing.T) {
	clearEnv(t)
	for name, args := range map[string][]string{
		"unknown flag":    {"memory", "--bogus"},
		"unknown command": {"bogus"},
		"positional":      {"memory", "-i", "a", "-o", "b", "extra"},
		"no command":      {},
	} {
		t.Run(name, func(t *testing.T) {
			if code := execute(t, args...); code != exitArgument {
				t.Fatalf("expected exit %d, got %d", exitArgument, code)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("HDRGEN_PROBE_MODE", "sometimes")
	dir := t.TempDir()
	in := writeFile(t, dir, "memory.h.in", memoryTemplate)
	out := filepath.Join(dir, "memory.h")

	if code := execute(t, "memory", "-i", in, "-o", out); code != exitConfig {
		t.Fatalf("expected exit %d, got %d", exitConfig, code)
	}
	assertNotExist(t, out)
}

func TestReplace_IgnoresBrokenConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, ".hdrgen.yaml", "probe:\n  mode: [not, a, mode\n")
	t.Setenv("HDRGEN_PROBE_MODE", "sometimes")
	in := writeFile(t, dir, "config.h.in", "#define PATH_SEP \"@SEP@\"")
	out := filepath.Join(dir, "config.h")

	if code := execute(t, "--config", cfgFile, "replace", "-i", in, "-o", out, "-r", `{"@SEP@": "\/"}`); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := readFile(t, out); got != `#define PATH_SEP "/"` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestMemory_BrokenConfigIsFatal(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, ".hdrgen.yaml", "probe:\n  mode: [not, a, mode\n")
	in := writeFile(t, dir, "memory.h.in", memoryTemplate)
	out := filepath.Join(dir, "memory.h")

	if code := execute(t, "--config", cfgFile, "memory", "-i", in, "-o", out); code != exitConfig {
		t.Fatalf("expected exit %d, got %d", exitConfig, code)
	}
	assertNotExist(t, out)
}

func TestMemory_NoCompiler(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("CXX", filepath.Join(dir, "no-such-compiler"))
	t.Setenv("HDRGEN_PROBE_MODE", "active")
	in := writeFile(t, dir, "memory.h.in", memoryTemplate)
	out := filepath.Join(dir, "memory.h")

	if code := execute(t, "memory", "-i", in, "-o", out); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	want := "#ifndef LINEAR_MEMORY_H_\n#undef HAVE_STD_SHARED_PTR\n#undef HAVE_TR1_SHARED_PTR\n#undef HAVE_BOOST_SHARED_PTR\n#endif\n"
	if got := readFile(t, out); got != want {
		t.Fatalf("unexpected header:\n%s", got)
	}
}

func TestMemory_StaticTable(t *testing.T) {
	clearEnv(t)
	t.Setenv("HDRGEN_PROBE_MODE", "static")
	t.Setenv("GYP_MSVS_VERSION", "2008")
	dir := t.TempDir()
	in := writeFile(t, dir, "memory.h.in", memoryTemplate)
	out := filepath.Join(dir, "memory.h")

	if code := execute(t, "memory", "-i", in, "-o", out); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := readFile(t, out); !strings.Contains(got, "#define HAVE_TR1_SHARED_PTR\t(1)") {
		t.Fatalf("expected tr1 defined, got:\n%s", got)
	}
}

func TestMemory_FakeCompiler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	clearEnv(t)
	dir := t.TempDir()
	cxx := writeFile(t, dir, "fake-cxx", "#!/bin/sh\ncat >/dev/null\nexit 0\n")
	if err := os.Chmod(cxx, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CXX", cxx)
	t.Setenv("HDRGEN_PROBE_MODE", "active")
	t.Setenv("HDRGEN_PROBE_ORDER", "tr1,std")
	in := writeFile(t, dir, "memory.h.in", memoryTemplate)
	out := filepath.Join(dir, "memory.h")

	if code := execute(t, "memory", "-i", in, "-o", out); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	got := readFile(t, out)
	if !strings.Contains(got, "#define HAVE_TR1_SHARED_PTR\t(1)") || !strings.Contains(got, "#undef HAVE_STD_SHARED_PTR") {
		t.Fatalf("configured order not honored:\n%s", got)
	}
}

func TestVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake history tool is a shell script")
	}
	clearEnv(t)
	dir := t.TempDir()
	tool := writeFile(t, dir, "fake-git", "#!/bin/sh\necho 0a1b2c3d\n")
	if err := os.Chmod(tool, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HDRGEN_COMMIT_COMMAND", tool+" log -1")
	ac := writeFile(t, dir, "configure.ac", "AC_INIT([mylib], [1.2.3])\n")
	in := writeFile(t, dir, "version.h.in", versionTemplate)
	out := filepath.Join(dir, "version.h")

	if code := execute(t, "version", "-c", ac, "-i", in, "-o", out); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	want := "#define LINEAR_VERSION_ID \"mylib-1.2.3\"\n#define LINEAR_COMMIT_ID \"0a1b2c3d\"\n"
	if got := readFile(t, out); got != want {
		t.Fatalf("unexpected header:\n%s", got)
	}
}

func TestVersion_NoHistoryTool(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("HDRGEN_COMMIT_COMMAND", filepath.Join(dir, "gite")+" log --pretty=format:%H -1")
	ac := writeFile(t, dir, "configure.ac", "AC_INIT([mylib], [1.2.3])\n")
	in := writeFile(t, dir, "version.h.in", versionTemplate)
	out := filepath.Join(dir, "version.h")

	if code := execute(t, "version", "-c", ac, "-i", in, "-o", out); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := readFile(t, out); !strings.Contains(got, `LINEAR_COMMIT_ID ""`) {
		t.Fatalf("expected empty commit id, got:\n%s", got)
	}
}

func TestVersion_Failures(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "version.h.in", versionTemplate)
	noInit := writeFile(t, dir, "configure.ac", "AC_PREREQ([2.69])\n")

	cases := map[string]struct {
		metadata string
		want     int
	}{
		"no AC_INIT":       {noInit, exitMetadata},
		"missing metadata": {filepath.Join(dir, "missing.ac"), exitFileIO},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "version.h")
			if code := execute(t, "version", "-c", tc.metadata, "-i", in, "-o", out); code != tc.want {
				t.Fatalf("expected exit %d, got %d", tc.want, code)
			}
			assertNotExist(t, out)
		})
	}
}

func TestAll(t *testing.T) {
	clearEnv(t)
	t.Setenv("HDRGEN_PROBE_MODE", "static")
	dir := t.TempDir()
	t.Setenv("HDRGEN_COMMIT_COMMAND", filepath.Join(dir, "missing-vcs"))
	ac := writeFile(t, dir, "configure.ac", "AC_INIT([linear], [0.9.4])\n")
	memIn := writeFile(t, dir, "memory.h.in", memoryTemplate)
	verIn := writeFile(t, dir, "version.h.in", versionTemplate)
	memOut := filepath.Join(dir, "memory.h")
	verOut := filepath.Join(dir, "version.h")

	code := execute(t, "all", "-c", ac,
		"--memory-in", memIn, "--memory-out", memOut,
		"--version-in", verIn, "--version-out", verOut)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := readFile(t, memOut); !strings.Contains(got, "#define HAVE_STD_SHARED_PTR\t(1)") {
		t.Fatalf("unexpected memory.h:\n%s", got)
	}
	if got := readFile(t, verOut); !strings.Contains(got, `"linear-0.9.4"`) {
		t.Fatalf("unexpected version.h:\n%s", got)
	}
}

func TestAll_MissingFlags(t *testing.T) {
	clearEnv(t)
	if code := execute(t, "all", "-c", "configure.ac"); code != exitArgument {
		t.Fatalf("expected exit %d, got %d", exitArgument, code)
	}
}

func TestConfigFileAndEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "hdrgen.yaml", "probe:\n  mode: static\n  static_tiers:\n    \"2015\": boost\n")
	envPath := writeFile(t, dir, "build.env", "GYP_MSVS_VERSION=2015\n")
	os.Unsetenv("GYP_MSVS_VERSION")
	t.Cleanup(func() { os.Unsetenv("GYP_MSVS_VERSION") })
	in := writeFile(t, dir, "memory.h.in", memoryTemplate)
	out := filepath.Join(dir, "memory.h")

	resetGlobals(t)
	rootCmd.SetArgs([]string{"--config", cfgFile, "--env-file", envPath, "memory", "-i", in, "-o", out})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := readFile(t, out); !strings.Contains(got, "#define HAVE_BOOST_SHARED_PTR\t(1)") {
		t.Fatalf("expected boost for the toolchain named in the env file, got:\n%s", got)
	}
}
