package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if Log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")

	// ErrUnknownLevel is returned if Log.LogLevel is not a zerolog level.
	ErrUnknownLevel = errors.New("unknown log level")
)

// errOut receives events zerolog failed to write.
var errOut io.Writer = os.Stderr //nolint:gochecknoglobals

// ErrorHandler reports a log event that could not be written to any output.
// The settings service keeps serving, so the failure is only printed.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(errOut, "confetti: dropped log event: %v\n", err)
}
