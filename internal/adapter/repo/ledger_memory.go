package repo

import (
	"context"
	"sync"
	"time"

	"lifelink/internal/domain"
)

// LedgerMemory is an in-process domain.LedgerStore. It is injected wherever a
// ledger is needed instead of living in package state.
type LedgerMemory struct {
	mu  sync.RWMutex
	doc *domain.LedgerDocument
	now func() time.Time
}

// NewLedgerMemory returns an empty in-memory ledger.
func NewLedgerMemory() *LedgerMemory {
	return &LedgerMemory{doc: domain.NewLedgerDocument(), now: time.Now}
}

func (l *LedgerMemory) Append(ctx context.Context, rec domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.Append(rec, l.now())
}

func (l *LedgerMemory) Ping(context.Context) error { return nil }

func (l *LedgerMemory) ReadAll(ctx context.Context) (*domain.LedgerDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.doc.Clone(), nil
}
