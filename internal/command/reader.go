// reader.go

package command

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/reddashi/SbD/internal/override"
)

// RunReader consumes line-delimited JSON commands from r (normally stdin)
// until EOF or context cancellation. It blocks only while waiting for the
// next line and never touches any control loop.
func RunReader(ctx context.Context, r io.Reader, store *override.Store, log *slog.Logger) {
	log = log.With(slog.String("component", "command-reader"))
	sc := bufio.NewScanner(r)
	log.Info("command reader started")
	for sc.Scan() {
		if ctx.Err() != nil {
			log.Info("command reader stopped")
			return
		}
		ApplyLine(store, sc.Text(), log)
	}
	if err := sc.Err(); err != nil {
		log.Warn("command stream read error", "err", err)
	}
	log.Info("command stream closed")
}
