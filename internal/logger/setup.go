package logger

import (
	"io"
	"log/slog"

	"pkgupload/internal/config"
)

// SetupDefault настраивает slog по умолчанию. Логи пишутся в w (stderr),
// stdout остается для отчета о ходе загрузки.
func SetupDefault(w io.Writer, cfg config.Logger) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Plaintext {
		slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
	}
}
