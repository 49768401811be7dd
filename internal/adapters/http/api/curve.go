package api

import (
	"context"
	"net/http"

	"github.com/okian/recovery/internal/domain/types"
)

// CurveDependencies defines the interface for chart data.
type CurveDependencies interface {
	Curve(ctx context.Context, req types.EstimateRequest, themeName string) (types.CurveResponse, error)
}

// CurveHandler handles curve requests.
type CurveHandler struct {
	deps CurveDependencies
}

// NewCurveHandler creates a new curve handler.
func NewCurveHandler(deps CurveDependencies) *CurveHandler {
	return &CurveHandler{deps: deps}
}

// HandleCurve handles GET /curve requests. It accepts the /estimate query
// parameters plus theme=light|dark.
func (h *CurveHandler) HandleCurve(w http.ResponseWriter, r *http.Request) {
	const op = "api.curve"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	req, err := parseQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resp, err := h.deps.Curve(r.Context(), req, q.Get("theme"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
