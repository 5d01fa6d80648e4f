package http

import (
	"net/http"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/services"
)

type transactionRequest struct {
	Date        core.Date  `json:"date"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	// Bucket, when set, locks the transaction to that bucket.
	Bucket string `json:"bucket,omitempty"`
}

func (t transactionRequest) input() (services.TransactionInput, error) {
	bucket, err := optionalBucket(t.Bucket)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		Date:        t.Date,
		Amount:      t.Amount,
		Category:    sanitizeInput(t.Category),
		Description: sanitizeInput(t.Description),
		Bucket:      bucket,
	}, nil
}

func (s *Server) decodeTransaction(r *http.Request) (services.TransactionInput, error) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return services.TransactionInput{}, err
	}
	return req.input()
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := s.decodeTransaction(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.svc.AddTransaction(r.Context(), userID, week, in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	in, err := s.decodeTransaction(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	tx, err := s.svc.EditTransaction(r.Context(), userID, id, in)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), userID, id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type coverRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Amount defaults to the smaller of the overspend and what From has left.
	Amount *core.Money `json:"amount,omitempty"`
}

func (s *Server) handleCoverOverspend(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	var req coverRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	from, err := core.ParseBucket(req.From)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	to, err := core.ParseBucket(req.To)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	transfer, err := s.svc.CoverOverspend(r.Context(), userID, week, core.CoverRequest{From: from, To: to, Amount: req.Amount})
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(transfer).Write(w)
}

// handleCoverSources lists the buckets able to cover {bucket}'s overspend.
func (s *Server) handleCoverSources(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	target, err := pathBucket(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	rows, err := s.svc.CoverSources(r.Context(), userID, week, target)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	if rows == nil {
		rows = []core.LedgerRow{}
	}
	NewJSONResponse().Body(rows).Write(w)
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpCollect, err)
		return
	}
	bucket, err := pathBucket(r)
	if err != nil {
		s.writeError(w, r, log.OpCollect, err)
		return
	}
	c, err := s.svc.Collect(r.Context(), userID, week, bucket)
	if err != nil {
		s.writeError(w, r, log.OpCollect, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleUndoCollect(w http.ResponseWriter, r *http.Request, userID string) {
	week, err := pathWeek(r)
	if err != nil {
		s.writeError(w, r, log.OpUndo, err)
		return
	}
	bucket, err := pathBucket(r)
	if err != nil {
		s.writeError(w, r, log.OpUndo, err)
		return
	}
	res, err := s.svc.UndoCollect(r.Context(), userID, week, bucket)
	if err != nil {
		s.writeError(w, r, log.OpUndo, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleAdjustment(w http.ResponseWriter, r *http.Request, userID string) {
	var adj core.Adjustment
	if err := decodeJSON(r, &adj); err != nil {
		s.writeError(w, r, log.OpAdjust, err)
		return
	}
	adj.Label = sanitizeInput(adj.Label)
	c, err := s.svc.AddAdjustment(r.Context(), userID, adj)
	if err != nil {
		s.writeError(w, r, log.OpAdjust, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}
