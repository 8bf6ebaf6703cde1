package http

import (
	"encoding/json"
	"net/http"

	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// LimitHandler exposes the plan limit gate to the creation flows (menu and
// user management call it right before inserting).
type LimitHandler struct {
	service interfaces.LimitService
	logger  logger.Logger
}

func NewLimitHandler(service interfaces.LimitService, logger logger.Logger) *LimitHandler {
	return &LimitHandler{service: service, logger: logger}
}

type LimitResponse struct {
	Allowed  bool   `json:"allowed"`
	Code     string `json:"code,omitempty"`
	Current  int    `json:"current"`
	Max      *int   `json:"max"`
	PlanName string `json:"plan_name,omitempty"`
}

func (h *LimitHandler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	kind := domain.ResourceKind(r.PathValue("kind"))
	if !kind.Valid() {
		http.Error(w, "unknown resource kind", http.StatusBadRequest)
		return
	}

	decision, err := h.service.CheckLimit(r.Context(), p.TenantID, kind)
	if err != nil {
		h.logger.Error("limit_check_failed", "Limit check failed", "", nil, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LimitResponse{
		Allowed:  decision.Allowed,
		Code:     decision.Code,
		Current:  decision.Current,
		Max:      decision.Max,
		PlanName: decision.PlanName,
	})
}
