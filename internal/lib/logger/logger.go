package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/linemk/jewelry-shop/internal/lib/logger/handlers/slogpretty"
)

// switching logger
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// SetupLogger инициализирует логгер в зависимости от переданного окружения
// для локальной разработки используется цветной вывод (pretty), а для dev/prod – JSON
func SetupLogger(env string) *slog.Logger {
	return New(env, os.Stdout)
}

// New то же, что SetupLogger, но с выбранным выводом
func New(env string, out io.Writer) *slog.Logger {
	var handler slog.Handler

	switch env {
	case EnvLocal:
		handler = prettyHandler(out)
	case EnvDev:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		// prod и неизвестные окружения
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(handler).With(slog.String("env", env))
}

func prettyHandler(out io.Writer) slog.Handler {
	color.NoColor = false

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}
	return opts.NewPrettyHandler(out)
}
