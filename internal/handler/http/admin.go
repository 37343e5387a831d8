package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/catalog-search/internal/indexsync"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/httputil"
)

// reindexStarter starts a background rebuild of the search index.
type reindexStarter interface {
	Start(ctx context.Context) error
}

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	reindexer reindexStarter
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(reindexer reindexStarter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{reindexer: reindexer, logger: logger}
}

// Reindex handles POST /api/admin/reindex. The rebuild runs in the
// background; a second request while one is running gets 409.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.reindexer.Start(r.Context()); err != nil {
		if indexsync.IsLocked(err) {
			err = apperrors.Conflict("a reindex is already running")
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: map[string]string{"status": "reindex started"},
	})
}
