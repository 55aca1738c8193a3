// Package version resolves the package version identifier from autoconf
// metadata and the source-control revision of the working tree.
package version

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrMetadataParse is matched by every *MetadataError.
	ErrMetadataParse = errors.New("metadata parse failure")
	// ErrMetadataRead wraps failures to open or read the metadata file.
	ErrMetadataRead = errors.New("metadata read failure")
)

// MetadataError reports metadata that carries no usable version declaration.
type MetadataError struct {
	Path   string
	Line   int // 1-based; 0 when no declaration was found
	Reason string
}

func (e *MetadataError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "metadata"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", loc, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

// Is makes errors.Is(err, ErrMetadataParse) hold for any MetadataError.
func (e *MetadataError) Is(target error) bool { return target == ErrMetadataParse }

var (
	acInitRe  = regexp.MustCompile(`AC_INIT\((.*)\)`)
	bracketRe = regexp.MustCompile(`\[(.+?)\]`)
)

// maxLineBytes bounds a single metadata line.
const maxLineBytes = 1 << 20

// ParseVersionID scans r for the first AC_INIT(...) declaration and returns
// "name-version" built from its first two bracketed fields. Later
// declarations are ignored.
func ParseVersionID(r io.Reader) (string, error) {
	return parse(r, "")
}

// ReadVersionID opens path and parses its version declaration.
func ReadVersionID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMetadataRead, err)
	}
	defer f.Close()
	return parse(f, path)
}

func parse(r io.Reader, path string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		inner := acInitRe.FindStringSubmatch(scanner.Text())
		if inner == nil {
			continue
		}
		fields := bracketRe.FindAllStringSubmatch(inner[1], -1)
		if len(fields) < 2 {
			return "", &MetadataError{
				Path:   path,
				Line:   lineNo,
				Reason: fmt.Sprintf("AC_INIT needs [name] and [version], found %d bracketed field(s)", len(fields)),
			}
		}
		return fields[0][1] + "-" + fields[1][1], nil
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", &MetadataError{
				Path:   path,
				Line:   lineNo + 1,
				Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes),
			}
		}
		return "", fmt.Errorf("%w: %s: %w", ErrMetadataRead, displayPath(path), err)
	}
	return "", &MetadataError{Path: path, Reason: "no AC_INIT declaration found"}
}

func displayPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "metadata"
	}
	return path
}
