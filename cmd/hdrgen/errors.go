package main

import (
	"errors"
	"fmt"
	"strings"

	"hdrgen/internal/config"
	"hdrgen/internal/subst"
	"hdrgen/internal/version"
)

// Process exit codes.
const (
	exitOK         = 0
	exitUnexpected = 1
	exitArgument   = 2
	exitMetadata   = 3
	exitFileIO     = 4
	exitConfig     = 5
)

// argumentError is a usage error detected before any file is touched.
type argumentError struct {
	err error
}

func (e *argumentError) Error() string { return e.err.Error() }

func (e *argumentError) Unwrap() error { return e.err }

func argErrorf(format string, args ...interface{}) error {
	return &argumentError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	var argErr *argumentError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &argErr):
		return exitArgument
	case errors.Is(err, config.ErrInvalid):
		return exitConfig
	case errors.Is(err, version.ErrMetadataParse):
		return exitMetadata
	case errors.Is(err, subst.ErrFileIO), errors.Is(err, version.ErrMetadataRead):
		return exitFileIO
	}
	return exitUnexpected
}

type requiredFlag struct {
	name  string
	value string
}

// requireFlags reports every required flag left empty.
func requireFlags(flags ...requiredFlag) error {
	var missing []string
	for _, f := range flags {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, "--"+f.name)
		}
	}
	if len(missing) > 0 {
		return argErrorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}

// noPositional rejects positional arguments.
func noPositional(cmdPath string, args []string) error {
	if len(args) > 0 {
		return argErrorf("%s takes no positional arguments, got %q", cmdPath, args)
	}
	return nil
}
