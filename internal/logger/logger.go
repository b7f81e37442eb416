package logger

import (
	"log/slog"
	"os"

	slogotel "github.com/remychantenay/slog-otel"
)

// LogLevel is adjustable at runtime; config applies the configured level
// after the logger is already live.
var LogLevel = new(slog.LevelVar)

// Handler emits JSON records to stderr, decorated with the otel trace and
// span ids of the surrounding context.
var Handler = slogotel.NewOtelHandler(slogotel.WithNoTraceEvents(true))(
	slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{AddSource: true, Level: LogLevel}),
)

var Logger = slog.New(Handler)

func InitSlog() {
	slog.SetDefault(Logger)
	LogLevel.Set(slog.LevelDebug)
}
