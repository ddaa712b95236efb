package remote

import (
	"io"
	"log/slog"
)

func newDiscardSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
