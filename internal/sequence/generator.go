// Package sequence issues per-tenant document numbers of the form
// PREFIX-YYYY-NNNN. Numbers never repeat within a (tenant, prefix, year);
// gaps left by rolled back transactions are accepted.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/lock"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

var (
	ErrInvalidPrefix = errors.New("document prefix must be 1-10 letters or digits")
	ErrInvalidYear   = errors.New("document year out of range")
	// ErrExhausted is returned when the counter could not be advanced
	// within the retry budget.
	ErrExhausted = errors.New("sequence retries exhausted")
)

const maxAttempts = 5

var prefixRE = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// Generator hands out sequence numbers from the document_sequences table.
type Generator struct {
	seqs *repository.SequenceRepo
	keys *lock.Local
}

func NewGenerator(seqs *repository.SequenceRepo) *Generator {
	return &Generator{seqs: seqs, keys: lock.NewLocal()}
}

// Format renders a document number.
func Format(prefix string, year int, n uint64) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, n)
}

// NormalizePrefix upper-cases and validates a prefix.
func NormalizePrefix(prefix string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if !prefixRE.MatchString(p) {
		return "", fmt.Errorf("%q: %w", prefix, ErrInvalidPrefix)
	}
	return p, nil
}

// Next reserves the next number inside the caller's transaction. The number
// is only final once tx commits; a rollback leaves a gap.
func (g *Generator) Next(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, prefix string, year int) (string, error) {
	if tid == 0 {
		return "", repository.ErrTenantRequired
	}
	p, err := NormalizePrefix(prefix)
	if err != nil {
		return "", err
	}
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("%d: %w", year, ErrInvalidYear)
	}

	release, err := g.keys.Lock(ctx, fmt.Sprintf("%d:%s:%d", tid, p, year))
	if err != nil {
		return "", err
	}
	defer release()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		last, found, err := g.seqs.LockTx(ctx, tx, tid, p, year)
		if err != nil {
			return "", err
		}
		if !found {
			err := g.seqs.StartTx(ctx, tx, tid, p, year)
			if errors.Is(err, repository.ErrDuplicate) {
				// started concurrently by another process; read it again
				continue
			}
			if err != nil {
				return "", err
			}
			return Format(p, year, 1), nil
		}
		ok, err := g.seqs.AdvanceTx(ctx, tx, tid, p, year, last)
		if err != nil {
			return "", err
		}
		if ok {
			return Format(p, year, last+1), nil
		}
	}
	return "", fmt.Errorf("%s-%d for tenant %d: %w", p, year, tid, ErrExhausted)
}

// Issue reserves a number in its own transaction.
func (g *Generator) Issue(ctx context.Context, tid tenant.ID, prefix string, year int) (string, error) {
	var out string
	err := database.InTx(ctx, g.seqs.DB(), func(tx *sqlx.Tx) error {
		n, err := g.Next(ctx, tx, tid, prefix, year)
		out = n
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
