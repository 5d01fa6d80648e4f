package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"buckets/internal/core"
	"buckets/internal/ports"
)

// GoalInput creates a custom goal.
type GoalInput struct {
	Key       string     `json:"key"`
	Title     string     `json:"title"`
	Target    core.Money `json:"target"`
	RingColor string     `json:"ring_color"`
	SortOrder int        `json:"sort_order"`
}

// GoalPatch updates the supplied fields of a goal.
type GoalPatch struct {
	Title     *string     `json:"title,omitempty"`
	Target    *core.Money `json:"target,omitempty"`
	RingColor *string     `json:"ring_color,omitempty"`
	SortOrder *int        `json:"sort_order,omitempty"`
	Active    *bool       `json:"active,omitempty"`
}

func goalKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// Goals returns the user's active goals with progress, seeding the
// permanent goals the first time.
func (s *BudgetService) Goals(ctx context.Context, userID string) ([]core.GoalView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var goals []core.Goal
	var collections []core.BucketCollection
	read := func(tx ports.Tx) error {
		var err error
		if goals, err = tx.ListGoals(userID); err != nil {
			return err
		}
		collections, err = tx.ListCollections(userID, nil)
		return err
	}
	if err := s.store.View(ctx, read); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	if len(goals) == 0 {
		err := s.store.Update(ctx, func(tx ports.Tx) error {
			existing, err := tx.ListGoals(userID)
			if err != nil || len(existing) > 0 {
				return err
			}
			for _, g := range core.DefaultGoals(userID) {
				g.CreatedAt = s.now()
				if _, err := tx.InsertGoal(g); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("seed goals: %w", err)
		}
		if err := s.store.View(ctx, read); err != nil {
			return nil, fmt.Errorf("list goals: %w", err)
		}
	}

	return core.GoalViews(goals, core.SumTrackers(collections)), nil
}

func (s *BudgetService) CreateGoal(ctx context.Context, userID string, in GoalInput) (core.Goal, error) {
	if err := requireUser(userID); err != nil {
		return core.Goal{}, err
	}
	g := core.Goal{
		UserID:    userID,
		Key:       goalKey(in.Key),
		Title:     strings.TrimSpace(in.Title),
		Target:    in.Target,
		RingColor: strings.TrimSpace(in.RingColor),
		SortOrder: in.SortOrder,
		Active:    true,
		CreatedAt: s.now(),
	}
	if g.Key == "" {
		g.Key = goalKey(g.Title)
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	err := s.store.Update(ctx, func(tx ports.Tx) error {
		if _, err := tx.GetGoal(userID, g.Key); err == nil {
			return core.Validationf("goal %q already exists", g.Key)
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		var err error
		g.ID, err = tx.InsertGoal(g)
		return err
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *BudgetService) UpdateGoal(ctx context.Context, userID, key string, patch GoalPatch) (core.Goal, error) {
	if err := requireUser(userID); err != nil {
		return core.Goal{}, err
	}
	var g core.Goal
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		var err error
		if g, err = tx.GetGoal(userID, goalKey(key)); err != nil {
			return err
		}
		if patch.Title != nil {
			g.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Target != nil {
			g.Target = *patch.Target
		}
		if patch.RingColor != nil {
			g.RingColor = strings.TrimSpace(*patch.RingColor)
		}
		if patch.SortOrder != nil {
			g.SortOrder = *patch.SortOrder
		}
		if patch.Active != nil {
			if !*patch.Active && !g.Deletable() {
				return core.ErrProtectedGoal
			}
			g.Active = *patch.Active
		}
		if err := g.Validate(); err != nil {
			return err
		}
		return tx.UpdateGoal(g)
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

// DeleteGoal removes a custom goal. Permanent goals cannot be deleted.
func (s *BudgetService) DeleteGoal(ctx context.Context, userID, key string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	key = goalKey(key)
	if core.IsPermanentGoal(key) {
		return core.ErrProtectedGoal
	}
	if err := s.store.Update(ctx, func(tx ports.Tx) error { return tx.DeleteGoal(userID, key) }); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
