package http

import (
	"net/http"

	"buckets/internal/core"
	"buckets/internal/log"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request, userID string) {
	prefs, err := s.svc.Preferences(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(prefs).Write(w)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request, userID string) {
	var prefs core.UserPreferences
	if err := decodeJSON(r, &prefs); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	saved, err := s.svc.SavePreferences(r.Context(), userID, prefs)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleListWeeks(w http.ResponseWriter, r *http.Request, userID string) {
	weeks, err := s.svc.ListWeeks(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if weeks == nil {
		weeks = []core.WeeklyIncome{}
	}
	NewJSONResponse().Body(weeks).Write(w)
}

type setIncomeRequest struct {
	// Date is any day of the week; empty means today.
	Date   core.Date  `json:"date"`
	Amount core.Money `json:"amount"`
}

// handleSetIncome stores the week's income and reallocates its budgets.
func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request, userID string) {
	var req setIncomeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpAllocate, err)
		return
	}
	if req.Date.IsZero() {
		req.Date = core.Today()
	}
	alloc, err := s.svc.SetWeeklyIncome(r.Context(), userID, req.Date, req.Amount)
	if err != nil {
		s.writeError(w, r, log.OpAllocate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(alloc).Write(w)
}

func (s *Server) handleWeekSummary(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.svc.WeekSummary(r.Context(), userID, week)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleDeleteWeek(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.DeleteWeek(r.Context(), userID, week); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
