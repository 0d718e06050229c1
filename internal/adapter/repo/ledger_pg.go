package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
	"lifelink/internal/sqlinline"
)

// EnsurePostgresSchema creates the ledger tables when missing.
func EnsurePostgresSchema(ctx context.Context, sql infra.SQLExecutor) error {
	for _, stmt := range sqlinline.PostgresSchema {
		if _, err := sql.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LedgerPG implements domain.LedgerStore on PostgreSQL. Each append is one
// insert guarded by the (collection, id) primary key; statistics are folded
// on read so they can never drift from the rows.
type LedgerPG struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewLedgerPG creates a postgres-backed ledger.
func NewLedgerPG(sql infra.SQLExecutor) *LedgerPG {
	return &LedgerPG{sql: sql, now: time.Now}
}

func (l *LedgerPG) Append(ctx context.Context, rec domain.Record) error {
	payload, createdAt, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = l.sql.Exec(ctx, sqlinline.QInsertLedgerRecord, rec.RecordID(), string(rec.Collection()), payload, createdAt)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s already recorded", domain.ErrConflict, rec.Collection().RecordType(), rec.RecordID())
		}
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (l *LedgerPG) Ping(ctx context.Context) error {
	var one int
	if err := l.sql.QueryRow(ctx, sqlinline.QPing).Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (l *LedgerPG) ReadAll(ctx context.Context) (*domain.LedgerDocument, error) {
	rows, err := l.sql.Query(ctx, sqlinline.QListLedgerRecords)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	defer rows.Close()

	doc := domain.NewLedgerDocument()
	for rows.Next() {
		var collection string
		var payload []byte
		if err := rows.Scan(&collection, &payload); err != nil {
			return nil, err
		}
		if err := decodeInto(doc, domain.Collection(collection), payload); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	doc.Refresh(lastActivity(doc, l.now))
	return doc, nil
}

func encodeRecord(rec domain.Record) ([]byte, time.Time, error) {
	var createdAt time.Time
	switch r := rec.(type) {
	case *domain.DonationRecord:
		createdAt = r.CreatedAt
	case *domain.SupplyRecord:
		createdAt = r.CreatedAt
	default:
		return nil, time.Time{}, fmt.Errorf("ledger: unsupported record type %T", rec)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("encode record: %w", err)
	}
	return payload, createdAt.UTC(), nil
}

func decodeInto(doc *domain.LedgerDocument, collection domain.Collection, payload []byte) error {
	switch collection {
	case domain.CollectionDonations:
		var d domain.DonationRecord
		if err := json.Unmarshal(payload, &d); err != nil {
			return fmt.Errorf("decode donation: %w", err)
		}
		doc.Donations = append(doc.Donations, d)
	case domain.CollectionSupplies:
		var s domain.SupplyRecord
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("decode supply: %w", err)
		}
		doc.Supplies = append(doc.Supplies, s)
	default:
		return fmt.Errorf("unknown ledger collection %q", collection)
	}
	return nil
}

// lastActivity picks the newest record timestamp for the metadata block,
// falling back to now for an empty ledger.
func lastActivity(doc *domain.LedgerDocument, now func() time.Time) time.Time {
	var last time.Time
	for i := range doc.Donations {
		if doc.Donations[i].CreatedAt.After(last) {
			last = doc.Donations[i].CreatedAt
		}
	}
	for i := range doc.Supplies {
		if doc.Supplies[i].CreatedAt.After(last) {
			last = doc.Supplies[i].CreatedAt
		}
	}
	if last.IsZero() {
		return now()
	}
	return last
}
