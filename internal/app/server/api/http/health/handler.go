package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the record store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the probe clients use to decide they are online. A server
// whose record store is down answers 503, so clients keep records queued.
type Handler struct {
	db         Pinger
	log        *slog.Logger
	middleware huma.Middlewares
}

// NewHandler builds the probe. A nil db skips the store check.
func NewHandler(db Pinger, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:         db,
		log:        log.With("component", "health_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	if h.db == nil {
		return &Output{Body: Response{Status: "OK", Database: "unchecked"}}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := h.db.Ping(pingCtx); err != nil {
		h.log.Warn("record store unreachable", "error", err)
		return nil, huma.Error503ServiceUnavailable("record store unavailable")
	}

	return &Output{Body: Response{Status: "OK", Database: "up"}}, nil
}
