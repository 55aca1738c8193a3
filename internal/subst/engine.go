package subst

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"hdrgen/internal/logging"
)

// ErrFileIO is matched by every *FileError.
var ErrFileIO = errors.New("file I/O failure")

// FileError reports a template that could not be read or an output that
// could not be written.
type FileError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFileIO) hold for any FileError.
func (e *FileError) Is(target error) bool { return target == ErrFileIO }

// Template pairs an input template with the header it renders to.
type Template struct {
	InputPath  string
	OutputPath string
}

// Apply replaces every occurrence of every token of m in text.
// Replacement is a single left-to-right pass: values are not rescanned.
func Apply(text string, m PlaceholderMap) string {
	if m.replacer == nil {
		return text
	}
	return m.replacer.Replace(text)
}

// ApplyFile renders t.InputPath through m and writes t.OutputPath.
// The output is replaced atomically, so a failed run leaves any previous
// output in place and never a partial file.
func ApplyFile(ctx context.Context, t Template, m PlaceholderMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(t.InputPath)
	if err != nil {
		return &FileError{Op: "read", Path: t.InputPath, Err: err}
	}

	out := Apply(string(data), m)
	if left := Unresolved(out); len(left) > 0 {
		logging.SubstWarn("%s: %d placeholder(s) left unresolved: %v", t.OutputPath, len(left), left)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteFileAtomic(t.OutputPath, []byte(out), 0o644); err != nil {
		return &FileError{Op: "write", Path: t.OutputPath, Err: err}
	}

	logging.SubstDebug("rendered %s -> %s (%d tokens, %d bytes)", t.InputPath, t.OutputPath, m.Len(), len(out))
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`@[A-Za-z_][A-Za-z0-9_]*@`)

// Unresolved lists the distinct @NAME@ placeholders still present in text,
// in order of first appearance.
func Unresolved(text string) []string {
	matches := placeholderPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
