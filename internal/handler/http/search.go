package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/httputil"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

// searcher runs product searches.
type searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResultPage, error)
}

// SearchHandler handles HTTP requests for product search.
type SearchHandler struct {
	service searcher
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/product_search/?q=&category_id=&page=
//
// Malformed category ids and pages are ignored rather than rejected.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.SearchRequest{
		Text:       q.Get("q"),
		CategoryID: q.Get("category_id"),
		Page:       pagination.FromRequest(r, domain.PageSize),
	}

	page, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSearchResponse(page))
}
