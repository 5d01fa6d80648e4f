package services

import (
	"context"
	"fmt"
	"strings"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/ports"
)

func (s *BudgetService) ListMappings(ctx context.Context, userID string) ([]core.CategoryMapping, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out []core.CategoryMapping
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		out, err = tx.ListMappings(userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return out, nil
}

// SetMapping binds raw to bucket, replacing any existing binding for the
// same normalized label. Every cached week of the user is invalidated.
func (s *BudgetService) SetMapping(ctx context.Context, userID, raw string, bucket core.Bucket) (core.CategoryMapping, error) {
	if err := requireUser(userID); err != nil {
		return core.CategoryMapping{}, err
	}
	m := core.CategoryMapping{UserID: userID, Raw: strings.TrimSpace(raw), Bucket: bucket}
	if err := m.Validate(); err != nil {
		return core.CategoryMapping{}, err
	}
	if err := s.store.Update(ctx, func(tx ports.Tx) error { return tx.UpsertMapping(m) }); err != nil {
		return core.CategoryMapping{}, fmt.Errorf("set mapping: %w", err)
	}
	s.mappingsChanged(ctx, userID)
	return m, nil
}

func (s *BudgetService) DeleteMapping(ctx context.Context, userID, raw string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if core.NormalizeLabel(raw) == "" {
		return core.ErrEmptyCategory
	}
	if err := s.store.Update(ctx, func(tx ports.Tx) error { return tx.DeleteMapping(userID, raw) }); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	s.mappingsChanged(ctx, userID)
	return nil
}

// SuggestMapping proposes a bucket for an unmapped label. The boolean is
// false when nothing is similar enough.
func (s *BudgetService) SuggestMapping(ctx context.Context, userID, raw string) (core.Suggestion, bool, error) {
	if core.NormalizeLabel(raw) == "" {
		return core.Suggestion{}, false, core.ErrEmptyCategory
	}
	mappings, err := s.ListMappings(ctx, userID)
	if err != nil {
		return core.Suggestion{}, false, err
	}
	suggestion, ok := core.SuggestBucket(raw, mappings)
	return suggestion, ok, nil
}

// mappingsChanged invalidates every cached week of the user and announces
// each recorded week, since classification may have moved spending.
func (s *BudgetService) mappingsChanged(ctx context.Context, userID string) {
	s.invalidateUser(userID)
	if s.publisher == nil {
		return
	}
	weeks, err := s.ListWeeks(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to list weeks after mapping change",
			log.FieldUserID, userID,
			log.FieldError, err)
		return
	}
	for _, w := range weeks {
		s.afterChange(ctx, log.OpUpdate, ports.ReasonMappingChanged, userID, w.WeekStart, "", core.Money{})
	}
}
