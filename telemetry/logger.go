package telemetry

import (
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const Name = "attendance_app_backend"

// NewLogger returns the OpenTelemetry slog bridge when the SDK is set up,
// otherwise a plain text logger on stdout.
func NewLogger(otelEnabled bool) *slog.Logger {
	if otelEnabled {
		return otelslog.NewLogger(Name)
	}
	return newTextLogger(os.Stdout)
}

func newTextLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
