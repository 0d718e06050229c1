package repo

import (
	"context"
	"time"

	"lifelink/internal/domain"
	"lifelink/internal/storage"
)

// LedgerFileName is the key of the ledger document inside the data directory.
const LedgerFileName = "ledger.json"

// LedgerFile implements domain.LedgerStore on a JSON file. All access is
// funnelled through the document's single writer.
type LedgerFile struct {
	doc *storage.JSONDocument[domain.LedgerDocument]
	now func() time.Time
}

// NewLedgerFile opens (or lazily creates) the ledger file in fs.
func NewLedgerFile(fs *storage.FileStore) (*LedgerFile, error) {
	doc, err := storage.OpenJSONDocument(fs, LedgerFileName, domain.NewLedgerDocument)
	if err != nil {
		return nil, err
	}
	return &LedgerFile{doc: doc, now: time.Now}, nil
}

// Append adds rec to its collection and rewrites the file.
func (l *LedgerFile) Append(ctx context.Context, rec domain.Record) error {
	return l.doc.Update(ctx, func(d *domain.LedgerDocument) error {
		return d.Append(rec, l.now())
	})
}

// ReadAll returns a copy of the whole document.
func (l *LedgerFile) ReadAll(ctx context.Context) (*domain.LedgerDocument, error) {
	var out *domain.LedgerDocument
	err := l.doc.View(ctx, func(d *domain.LedgerDocument) {
		// Files written by hand may carry stale counters; never trust them.
		d.Statistics = domain.ComputeStatistics(d.Donations, d.Supplies)
		out = d.Clone()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping round-trips through the writer without touching the document.
func (l *LedgerFile) Ping(ctx context.Context) error {
	return l.doc.View(ctx, func(*domain.LedgerDocument) {})
}

// Close stops the writer.
func (l *LedgerFile) Close() error {
	return l.doc.Close()
}
