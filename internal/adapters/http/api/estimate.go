package api

import (
	"context"
	"net/http"

	"github.com/okian/recovery/internal/domain/types"
)

// EstimateDependencies defines the interface for estimation.
type EstimateDependencies interface {
	Estimate(ctx context.Context, req types.EstimateRequest) (types.EstimateResponse, error)
}

// EstimateHandler handles estimate requests.
type EstimateHandler struct {
	deps EstimateDependencies
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(deps EstimateDependencies) *EstimateHandler {
	return &EstimateHandler{deps: deps}
}

// HandleEstimate handles GET /estimate?intensity=..&duration_min=..&hours_since=..
// and POST /estimate with a JSON body.
func (h *EstimateHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "api.estimate"

	var (
		req types.EstimateRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = parseQuery(r.URL.Query())
	case http.MethodPost:
		req, err = decodeBody(w, r)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resp, err := h.deps.Estimate(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
