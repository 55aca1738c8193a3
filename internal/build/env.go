// Package build assembles the environment handed to external tools.
// The compiler probe inherits the build shell so it sees the same toolchain
// the build uses (loader paths, SDK selection, ccache). The history query
// runs with an allow-listed environment.
package build

import (
	"os"
	"strings"
)

// historyVars are passed through to the source-control query when set.
var historyVars = []string{
	"PATH",
	"HOME",
	"USERPROFILE",
	"GIT_DIR",
	"GIT_WORK_TREE",
	"GIT_CEILING_DIRECTORIES",
}

// CompilerEnv returns the environment for the compiler probe: the full
// process environment with diagnostics pinned to the C locale.
func CompilerEnv(extra ...string) []string {
	env := setEnvKey(os.Environ(), "LC_ALL", "C")
	return MergeEnv(env, extra...)
}

// HistoryEnv returns the environment for the source-control query.
// Prompts and pagers are disabled so the query can never wait on a terminal.
func HistoryEnv(extra ...string) []string {
	env := passthrough(historyVars)
	env = setEnvKey(env, "GIT_TERMINAL_PROMPT", "0")
	env = setEnvKey(env, "GIT_PAGER", "cat")
	env = setEnvKey(env, "LC_ALL", "C")
	return MergeEnv(env, extra...)
}

func passthrough(keys []string) []string {
	env := make([]string, 0, len(keys))
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// setEnvKey sets or updates an environment variable.
func setEnvKey(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = key + "=" + value
			return env
		}
	}
	return append(env, key+"="+value)
}

// MergeEnv merges additional environment variables into base env.
// Later values override earlier ones. Entries without '=' are ignored.
func MergeEnv(base []string, additional ...string) []string {
	result := make([]string, len(base))
	copy(result, base)

	for _, add := range additional {
		parts := strings.SplitN(add, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			result = setEnvKey(result, parts[0], parts[1])
		}
	}

	return result
}
