package http

import (
	"net/http"

	"github.com/shopspring/decimal"
)

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var body struct {
		Category string          `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.limits.Set(r.Context(), userID, body.Category, body.Limit); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLimits(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	userLimits, err := s.limits.ListForUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if userLimits == nil {
		userLimits = map[string]decimal.Decimal{}
	}
	writeJSON(w, http.StatusOK, userLimits)
}
