// Package allowlist implements single-rule mutations and listings of the
// allow-list.
//
// Every mutation runs in its own session, commits, and then triggers one
// reconciliation pass so pending requests that the change now allows are
// endorsed straight away.
package allowlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/roach88/endorser/internal/reconcile"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
)

// ErrInvalidPage rejects a listing request with bad paging values.
var ErrInvalidPage = errors.New("invalid page")

// MaxPageSize bounds a single listing page.
const MaxPageSize = 1000

// Default paging when a caller supplies none.
const (
	DefaultPageNum  = 1
	DefaultPageSize = 10
)

var validate = validator.New()

// PageRequest is a 1-indexed page of a listing.
type PageRequest struct {
	Num  int `json:"page_num" validate:"gte=1"`
	Size int `json:"page_size" validate:"gt=0,lte=1000"`
}

// Validate checks the paging bounds.
func (p PageRequest) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return nil
}

// Listing is one page of rules.
type Listing struct {
	PageNum    int          `json:"page_num"`
	PageSize   int          `json:"page_size"`
	TotalCount int          `json:"total_count"`
	Count      int          `json:"count"`
	Rules      []rules.Rule `json:"rules"`
}

// Reconciler is notified after every committed mutation.
type Reconciler interface {
	OnRuleSetChanged(ctx context.Context) reconcile.Report
}

// Service mutates and lists rules.
type Service struct {
	store      *store.Store
	reconciler Reconciler
	logger     *slog.Logger
}

// NewService creates a service. reconciler may be nil.
func NewService(s *store.Store, reconciler Reconciler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, reconciler: reconciler, logger: logger}
}

// Add stores one rule. A rule whose identity already exists fails with
// store.ErrDuplicateRule and triggers nothing.
func (s *Service) Add(ctx context.Context, r rules.Rule) (rules.Rule, error) {
	err := s.mutate(ctx, func(sess *store.Session) error {
		return sess.InsertRule(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("rule added", "kind", r.Kind(), "id", r.RuleID())
	s.changed(ctx)
	return r, nil
}

// Delete removes one rule by identity and reports whether it existed.
// Deleting an absent rule is not an error.
func (s *Service) Delete(ctx context.Context, kind rules.Kind, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.mutate(ctx, func(sess *store.Session) error {
		var err error
		deleted, err = sess.DeleteRule(ctx, kind, id)
		return err
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("rule deleted", "kind", kind, "id", id, "existed", deleted)
	s.changed(ctx)
	return deleted, nil
}

// List returns one page of rules of kind matching filter.
func (s *Service) List(ctx context.Context, kind rules.Kind, filter rules.Filter, page PageRequest) (Listing, error) {
	if err := page.Validate(); err != nil {
		return Listing{}, err
	}
	sess, err := s.store.Begin(ctx)
	if err != nil {
		return Listing{}, err
	}
	defer sess.Rollback()

	total, found, err := sess.ListRules(ctx, kind, filter, store.Page{Num: page.Num, Size: page.Size})
	if err != nil {
		return Listing{}, err
	}
	return Listing{
		PageNum:    page.Num,
		PageSize:   page.Size,
		TotalCount: total,
		Count:      len(found),
		Rules:      found,
	}, nil
}

func (s *Service) mutate(ctx context.Context, fn func(*store.Session) error) error {
	sess, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	if err := fn(sess); err != nil {
		return err
	}
	return sess.Commit()
}

// changed runs the reconciliation hook. The mutation's session is already
// closed, so the pass opens its own.
func (s *Service) changed(ctx context.Context) {
	if s.reconciler != nil {
		s.reconciler.OnRuleSetChanged(ctx)
	}
}
