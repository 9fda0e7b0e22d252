package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillctl/pkg/skillapi"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitConnection = 3
	exitRemoteCall = 4
)

// UsageError reports bad or missing command-line arguments. It is raised
// before any client exists, so the endpoint is never contacted.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

func unknownCommandError(name string) *UsageError {
	return usageErrorf("unknown command %q; supported commands: %s", name, strings.Join(skillCommandNames(), ", "))
}

// exitCode maps an error returned by the command tree to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var usageErr *UsageError
	switch {
	case errors.As(err, &usageErr):
		return exitUsage
	case skillapi.IsConnectionError(err):
		return exitConnection
	case skillapi.IsRemoteCallError(err):
		return exitRemoteCall
	default:
		return exitFailure
	}
}
