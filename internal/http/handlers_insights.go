package http

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// handleLeaderboard returns per-member totals for a group, keyed by
// display name. Two members sharing a display name merge under one key;
// see insights.Service.GroupLeaderboard.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	board, err := s.insights.GroupLeaderboard(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if board == nil {
		board = map[string]decimal.Decimal{}
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	goalID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	progress, err := s.insights.GoalProgress(r.Context(), goalID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		GoalID             int64           `json:"goalId"`
		ProgressPercentage decimal.Decimal `json:"progressPercentage"`
	}{GoalID: goalID, ProgressPercentage: progress})
}
