package web

import (
	"net/http"
	"strconv"

	"github.com/errsolve/errsolve/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
}

// HandleList handles GET /solutions, the paginated record listing.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(r.Context(), h.env, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Solutions",
			Version: h.renderer.version,
			Nav:     "solutions",
		},
		Items:      result.Solutions,
		Pagination: result.Pagination,
	})
}

// HandleSearch handles GET /solutions/search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	mode := r.URL.Query().Get("mode")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:    query,
		Mode:     mode,
		HasQuery: query != "",
	}

	if query == "" {
		h.renderer.renderPage(w, "search", data)
		return
	}

	result, err := ops.Search(r.Context(), h.env, ops.SearchInput{
		Query: query,
		Limit: parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Mode:  mode,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data.Items = result.Results
	data.Strategy = result.Strategy
	h.renderer.renderPage(w, "search", data)
}

// HandleDetail handles GET /solutions/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s, err := ops.Fetch(r.Context(), h.env, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   s.Title,
			Version: h.renderer.version,
			Nav:     "solutions",
		},
		Solution:     s,
		SolutionHTML: renderMarkdown(s.Solution),
	}
	if s.CodeChanges != "" {
		data.ChangesHTML = renderMarkdown("```\n" + s.CodeChanges + "\n```")
	}
	h.renderer.renderPage(w, "detail", data)
}

// HandleDelete handles DELETE /solutions/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existed, err := ops.Delete(r.Context(), h.env, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"deleted": existed,
		"id":      id,
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := ops.HealthCheck(r.Context(), h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	status := http.StatusOK
	if !report.OK {
		status = http.StatusInternalServerError
	}
	renderJSON(w, status, report)
}

// parseIntParam reads a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
