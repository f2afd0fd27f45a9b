// Package codes defines the failure kinds reported while reading solution and
// project descriptors, and the process exit codes the CLI maps them to.
package codes

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when an input file is missing or unreadable
	ErrNotFound = errors.New("file not found")

	// ErrSyntax is matched by every *SyntaxError
	ErrSyntax = errors.New("syntax error")

	// ErrConfigurationNotFound is returned when the requested configuration|platform
	// is not declared by a solution, or a project has no ActiveCfg mapping for it
	ErrConfigurationNotFound = errors.New("configuration not found")

	// ErrIO is returned for read failures other than a missing file
	ErrIO = errors.New("i/o failure")

	// ErrParse is returned for any other structural failure
	ErrParse = errors.New("parse failure")
)

// SyntaxError reports malformed markup. Line is zero when the reader could not
// tell where the error occurred.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: syntax error: %s", e.File, e.Line, e.Msg)
	}

	return fmt.Sprintf("%s: syntax error: %s", e.File, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// FromFileError classifies an error returned while opening or reading path.
func FromFileError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
}

// Exit codes returned by the vsmeta command
const (
	ExitSuccess               = 0
	ExitFailure               = 1
	ExitNotFound              = 2
	ExitSyntax                = 3
	ExitConfigurationNotFound = 4
	ExitIO                    = 5
	ExitParse                 = 6
)

// ErrorCodes maps vsmeta exit codes to their descriptions
var ErrorCodes = map[int]string{
	ExitSuccess:               "Success",
	ExitFailure:               "General failure",
	ExitNotFound:              "Descriptor file not found",
	ExitSyntax:                "Descriptor file is malformed",
	ExitConfigurationNotFound: "Configuration or platform not declared",
	ExitIO:                    "Cannot read descriptor file",
	ExitParse:                 "Cannot parse descriptor file",
}

// IsSuccess returns true if the exit code indicates a successful run
func IsSuccess(code int) bool {
	return code == ExitSuccess
}

// GetErrorMessage returns the message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// ExitCode returns the exit code matching the kind of err
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrSyntax):
		return ExitSyntax
	case errors.Is(err, ErrConfigurationNotFound):
		return ExitConfigurationNotFound
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrParse):
		return ExitParse
	default:
		return ExitFailure
	}
}
