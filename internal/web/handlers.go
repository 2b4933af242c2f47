package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hpungsan/flowdeck/internal/auth"
	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/ops"
)

// Handlers contains HTTP route handlers for the read API.
type Handlers struct {
	deps ops.Deps
}

// HandleTodo handles GET /api/todo — the outstanding-todos projection.
func (h *Handlers) HandleTodo(w http.ResponseWriter, r *http.Request) {
	_, token, err := auth.FromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, err)
		return
	}

	input := ops.TodoListInput{
		Token:  token,
		DocID:  r.URL.Query().Get("docId"),
		Mode:   r.URL.Query().Get("mode"),
		Cursor: parseIntParam(r, "cursor", 0),
		Limit:  parseIntParam(r, "limit", 0),
	}

	out, err := ops.TodoList(r.Context(), h.deps, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// HandlePreflight answers CORS preflight for the todo endpoint. Headers are
// set by the middleware; the preflight itself carries no body.
func (h *Handlers) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseIntParam parses an integer query parameter with a fallback default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders any error as the JSON error shape, carrying the
// allowed-mode list through for mode validation failures.
func writeError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	if fe, ok := err.(*errors.FlowError); ok {
		body["error"] = fe.Message
		if allowed, ok := fe.Details["allowed_modes"]; ok {
			body["allowedModes"] = allowed
		}
	}
	writeJSON(w, errors.StatusOf(err), body)
}
