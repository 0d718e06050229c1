// Package mirror copies ledger records onto an external ledger service.
package mirror

import (
	"context"
	"time"

	"lifelink/internal/domain"
)

// Mirror records an entry externally and returns the resulting receipt.
type Mirror interface {
	Mirror(ctx context.Context, entry Entry) (*domain.ChainReceipt, error)
}

// Entry is the flattened view of a record sent to external ledgers.
type Entry struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	TrackingCode string         `json:"trackingCode"`
	CreatedBy    string         `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	Amount       *domain.Amount `json:"amount,omitempty"`
	Currency     string         `json:"currency,omitempty"`
	Purpose      string         `json:"purpose,omitempty"`
	Item         string         `json:"item,omitempty"`
	Quantity     int64          `json:"quantity,omitempty"`
	Unit         string         `json:"unit,omitempty"`
	From         string         `json:"from,omitempty"`
	To           string         `json:"to,omitempty"`
}

// EntryFor flattens a donation or supply record.
func EntryFor(rec domain.Record) Entry {
	e := Entry{ID: rec.RecordID(), Type: rec.Collection().RecordType()}
	switch r := rec.(type) {
	case *domain.DonationRecord:
		amount := r.Details.Amount
		e.TrackingCode = r.TrackingCode
		e.CreatedBy = r.CreatedBy
		e.CreatedAt = r.CreatedAt
		e.Amount = &amount
		e.Currency = r.Details.Currency
		e.Purpose = r.Details.Purpose
	case *domain.SupplyRecord:
		e.TrackingCode = r.TrackingCode
		e.CreatedBy = r.CreatedBy
		e.CreatedAt = r.CreatedAt
		e.Item = r.Details.Item
		e.Quantity = r.Details.Quantity
		e.Unit = r.Details.Unit
		e.From = r.Details.From
		e.To = r.Details.To
	}
	return e
}
