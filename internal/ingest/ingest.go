package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/endorser/internal/reconcile"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
)

var (
	// ErrNoUploads rejects a batch without any file.
	ErrNoUploads = errors.New("no allow-list files supplied")
	// ErrDuplicateUpload rejects a batch with two files for one kind.
	ErrDuplicateUpload = errors.New("more than one file for a rule kind")
)

// Mode selects how a batch treats existing rules.
type Mode int

const (
	// Replace truncates each supplied kind before inserting.
	Replace Mode = iota
	// Append keeps existing rules.
	Append
)

func (m Mode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// ParseMode resolves "replace" or "append".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "replace":
		return Replace, nil
	case "append":
		return Append, nil
	default:
		return Replace, fmt.Errorf("unknown ingest mode %q (want replace or append)", s)
	}
}

// Upload is one CSV file destined for one rule table.
type Upload struct {
	Kind     rules.Kind
	FileName string
	Body     io.Reader
}

// Summary reports what a batch did to one table.
type Summary struct {
	FileName       string       `json:"file_name"`
	Contents       []rules.Rule `json:"contents"`
	Inserted       int          `json:"inserted"`
	AlreadyPresent int          `json:"already_present"`
	Removed        int64        `json:"removed"`
}

// Session is the slice of a store session a batch needs.
type Session interface {
	InsertRule(ctx context.Context, r rules.Rule) error
	DeleteAllRules(ctx context.Context, kind rules.Kind) (int64, error)
	Commit() error
	Rollback() error
}

// Opener starts a new session.
type Opener func(ctx context.Context) (Session, error)

// StoreOpener opens sessions on a SQLite store.
func StoreOpener(s *store.Store) Opener {
	return func(ctx context.Context) (Session, error) {
		sess, err := s.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// Reconciler is notified once after every committed batch.
type Reconciler interface {
	OnRuleSetChanged(ctx context.Context) reconcile.Report
}

// Ingestor applies bulk uploads.
type Ingestor struct {
	open       Opener
	reconciler Reconciler
	logger     *slog.Logger
}

// NewIngestor creates an ingestor. reconciler may be nil.
func NewIngestor(open Opener, reconciler Reconciler, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{open: open, reconciler: reconciler, logger: logger}
}

type parsedUpload struct {
	upload Upload
	rules  []rules.Rule
}

// Ingest applies a batch and returns one summary per supplied table, keyed
// by the kind's summary key.
func (in *Ingestor) Ingest(ctx context.Context, uploads []Upload, mode Mode) (map[string]Summary, error) {
	if len(uploads) == 0 {
		return nil, ErrNoUploads
	}

	batch, err := parseAll(uploads)
	if err != nil {
		batchesTotal.WithLabelValues(mode.String(), resultRejected).Inc()
		return nil, err
	}

	summaries, err := in.apply(ctx, batch, mode)
	if err != nil {
		batchesTotal.WithLabelValues(mode.String(), resultRolledBack).Inc()
		in.logger.Warn("ingest rolled back", "mode", mode, "error", err)
		return nil, err
	}
	batchesTotal.WithLabelValues(mode.String(), resultCommitted).Inc()
	in.logger.Info("ingest committed", "mode", mode, "tables", len(summaries))

	if in.reconciler != nil {
		in.reconciler.OnRuleSetChanged(ctx)
	}
	return summaries, nil
}

// parseAll parses every upload up front, in rule-kind order.
func parseAll(uploads []Upload) ([]parsedUpload, error) {
	byKind := make(map[rules.Kind]Upload, len(uploads))
	for _, u := range uploads {
		if !u.Kind.Valid() {
			return nil, &ParseError{FileName: u.FileName, Err: fmt.Errorf("unknown rule kind %q", u.Kind)}
		}
		if _, dup := byKind[u.Kind]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUpload, u.Kind)
		}
		byKind[u.Kind] = u
	}

	batch := make([]parsedUpload, 0, len(byKind))
	for _, kind := range rules.Kinds {
		u, ok := byKind[kind]
		if !ok {
			continue
		}
		parsed, err := Parse(kind, u.FileName, u.Body)
		if err != nil {
			return nil, err
		}
		batch = append(batch, parsedUpload{upload: u, rules: parsed})
	}
	return batch, nil
}

func (in *Ingestor) apply(ctx context.Context, batch []parsedUpload, mode Mode) (map[string]Summary, error) {
	sess, err := in.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer sess.Rollback()

	summaries := make(map[string]Summary, len(batch))
	for _, p := range batch {
		kind := p.upload.Kind
		sum := Summary{FileName: p.upload.FileName, Contents: p.rules}
		if mode == Replace {
			removed, err := sess.DeleteAllRules(ctx, kind)
			if err != nil {
				return nil, fmt.Errorf("ingest %s: %w", p.upload.FileName, err)
			}
			sum.Removed = removed
		}

		for _, r := range p.rules {
			err := sess.InsertRule(ctx, r)
			switch {
			case errors.Is(err, store.ErrDuplicateRule):
				sum.AlreadyPresent++
			case err != nil:
				return nil, fmt.Errorf("ingest %s: %w", p.upload.FileName, err)
			default:
				sum.Inserted++
			}
		}
		rulesInserted.WithLabelValues(string(kind)).Add(float64(sum.Inserted))
		summaries[kind.SummaryKey()] = sum
	}

	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return summaries, nil
}

// Kinds returns the kinds present in a summary map, in ingestion order.
func Kinds(summaries map[string]Summary) []rules.Kind {
	var kinds []rules.Kind
	for _, k := range rules.Kinds {
		if _, ok := summaries[k.SummaryKey()]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
