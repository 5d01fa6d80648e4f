package http

import (
	"net/http"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/services"
)

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request, userID string) {
	mappings, err := s.svc.ListMappings(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if mappings == nil {
		mappings = []core.CategoryMapping{}
	}
	NewJSONResponse().Body(mappings).Write(w)
}

type mappingRequest struct {
	Raw    string `json:"raw"`
	Bucket string `json:"bucket"`
}

func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request, userID string) {
	var req mappingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	bucket, err := core.ParseBucket(req.Bucket)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	m, err := s.svc.SetMapping(r.Context(), userID, sanitizeInput(req.Raw), bucket)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(m).Write(w)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request, userID string) {
	raw := sanitizeInput(r.URL.Query().Get("raw"))
	if raw == "" {
		s.writeError(w, r, log.OpDelete, core.ErrEmptyCategory)
		return
	}
	if err := s.svc.DeleteMapping(r.Context(), userID, raw); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type suggestionResponse struct {
	Found      bool             `json:"found"`
	Suggestion *core.Suggestion `json:"suggestion,omitempty"`
}

func (s *Server) handleSuggestMapping(w http.ResponseWriter, r *http.Request, userID string) {
	raw := sanitizeInput(r.URL.Query().Get("raw"))
	if raw == "" {
		s.writeError(w, r, log.OpRead, core.ErrEmptyCategory)
		return
	}
	sug, ok, err := s.svc.SuggestMapping(r.Context(), userID, raw)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	resp := suggestionResponse{Found: ok}
	if ok {
		resp.Suggestion = &sug
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, userID string) {
	goals, err := s.svc.Goals(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(goals).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, userID string) {
	var in services.GoalInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	in.Title = sanitizeInput(in.Title)
	goal, err := s.svc.CreateGoal(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(goal).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, userID string) {
	var patch services.GoalPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	goal, err := s.svc.UpdateGoal(r.Context(), userID, r.PathValue("key"), patch)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(goal).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.svc.DeleteGoal(r.Context(), userID, r.PathValue("key")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
