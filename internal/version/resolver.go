package version

import (
	"context"
	"strings"
	"time"

	"hdrgen/internal/logging"
	"hdrgen/internal/tactile"
)

// DefaultCommitCommand prints the hash of the checked-out revision.
const DefaultCommitCommand = "git log --pretty=format:%H -1"

// DefaultTimeout bounds the revision lookup.
const DefaultTimeout = 10 * time.Second

// Info is the resolved version of a working tree. Empty fields are valid.
type Info struct {
	VersionID string
	CommitID  string
	// CommitKnown is false when the revision lookup failed.
	CommitKnown bool
}

// Resolver reads version metadata and queries source control.
type Resolver struct {
	Executor tactile.Executor
	// Command is the revision query, split on whitespace. Empty means
	// DefaultCommitCommand.
	Command string
	Timeout time.Duration
	Dir     string
	Env     []string
}

// VersionID parses the metadata file at path.
func (r *Resolver) VersionID(path string) (string, error) {
	id, err := ReadVersionID(path)
	if err != nil {
		return "", err
	}
	logging.VersionDebug("Version id %q from %s", id, path)
	return id, nil
}

// CommitID runs the revision query and returns the first non-blank line of
// its output. ok is false on any failure; the lookup is never fatal.
func (r *Resolver) CommitID(ctx context.Context) (string, bool) {
	command := r.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultCommitCommand
	}
	argv := strings.Fields(command)

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmd := tactile.Command{
		Binary:           argv[0],
		Arguments:        argv[1:],
		WorkingDirectory: r.Dir,
		Environment:      r.Env,
		Timeout:          timeout,
	}

	result, err := r.Executor.Execute(ctx, cmd)
	if err != nil {
		logging.VersionWarn("Revision lookup rejected: %v", err)
		return "", false
	}
	if !result.Succeeded() {
		logging.VersionWarn("Revision lookup %q failed: outcome=%s exit=%d %s",
			cmd.CommandString(), result.Outcome, result.ExitCode, strings.TrimSpace(result.Error))
		return "", false
	}

	commit := result.FirstLine()
	if commit == "" {
		logging.VersionWarn("Revision lookup %q printed nothing", cmd.CommandString())
		return "", false
	}
	return commit, true
}

// Resolve combines the metadata version id with the revision. Only a
// metadata failure is returned.
func (r *Resolver) Resolve(ctx context.Context, metadataPath string) (Info, error) {
	id, err := r.VersionID(metadataPath)
	if err != nil {
		return Info{}, err
	}
	commit, ok := r.CommitID(ctx)
	logging.Version("Resolved %s (commit %q, known=%t)", id, commit, ok)
	return Info{VersionID: id, CommitID: commit, CommitKnown: ok}, nil
}
