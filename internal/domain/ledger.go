package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSchemaVersion is written into the metadata block of every document.
const LedgerSchemaVersion = "2.0"

// Statistics are the aggregate counters of a ledger. They are always derived
// from the collections with ComputeStatistics and never updated in place.
type Statistics struct {
	TotalDonations      Amount            `json:"totalDonations"`
	DonationCount       int               `json:"donationCount"`
	DonationsByCurrency map[string]Amount `json:"donationsByCurrency"`
	TotalSupplies       int               `json:"totalSupplies"`
	SupplyQuantity      int64             `json:"supplyQuantity"`
	SupplyDistribution  map[string]int    `json:"supplyDistribution"`
	LastDonationAt      *time.Time        `json:"lastDonationAt"`
	LastSupplyAt        *time.Time        `json:"lastSupplyAt"`
}

// LedgerMetadata describes the document itself.
type LedgerMetadata struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Version     string    `json:"version"`
}

// LedgerDocument is the whole durable ledger state.
type LedgerDocument struct {
	Donations  []DonationRecord `json:"donations"`
	Supplies   []SupplyRecord   `json:"supplies"`
	Statistics Statistics       `json:"statistics"`
	Metadata   LedgerMetadata   `json:"metadata"`
}

// NewLedgerDocument returns an empty document with zeroed statistics.
func NewLedgerDocument() *LedgerDocument {
	return &LedgerDocument{
		Donations:  []DonationRecord{},
		Supplies:   []SupplyRecord{},
		Statistics: ComputeStatistics(nil, nil),
		Metadata:   LedgerMetadata{Version: LedgerSchemaVersion},
	}
}

// ComputeStatistics folds both collections into aggregate counters.
func ComputeStatistics(donations []DonationRecord, supplies []SupplyRecord) Statistics {
	total := decimal.Zero
	byCurrency := map[string]decimal.Decimal{}
	var lastDonation, lastSupply *time.Time
	for i := range donations {
		d := &donations[i]
		total = total.Add(d.Details.Amount.Decimal)
		byCurrency[d.Details.Currency] = byCurrency[d.Details.Currency].Add(d.Details.Amount.Decimal)
		if lastDonation == nil || d.CreatedAt.After(*lastDonation) {
			t := d.CreatedAt
			lastDonation = &t
		}
	}

	var quantity int64
	distribution := map[string]int{}
	for i := range supplies {
		s := &supplies[i]
		quantity += s.Details.Quantity
		distribution[string(s.Status)]++
		if lastSupply == nil || s.CreatedAt.After(*lastSupply) {
			t := s.CreatedAt
			lastSupply = &t
		}
	}

	currencies := make(map[string]Amount, len(byCurrency))
	for code, sum := range byCurrency {
		currencies[code] = NewAmount(sum)
	}

	return Statistics{
		TotalDonations:      NewAmount(total),
		DonationCount:       len(donations),
		DonationsByCurrency: currencies,
		TotalSupplies:       len(supplies),
		SupplyQuantity:      quantity,
		SupplyDistribution:  distribution,
		LastDonationAt:      lastDonation,
		LastSupplyAt:        lastSupply,
	}
}

// Refresh recomputes statistics and stamps the metadata block.
func (d *LedgerDocument) Refresh(now time.Time) {
	if d.Donations == nil {
		d.Donations = []DonationRecord{}
	}
	if d.Supplies == nil {
		d.Supplies = []SupplyRecord{}
	}
	d.Statistics = ComputeStatistics(d.Donations, d.Supplies)
	d.Metadata.LastUpdated = now.UTC()
	d.Metadata.Version = LedgerSchemaVersion
}

// Append pushes rec onto its collection and refreshes the statistics.
// Identifiers must be unique within their collection.
func (d *LedgerDocument) Append(rec Record, now time.Time) error {
	switch r := rec.(type) {
	case *DonationRecord:
		for i := range d.Donations {
			if d.Donations[i].ID == r.ID {
				return fmt.Errorf("%w: donation %s already recorded", ErrConflict, r.ID)
			}
		}
		d.Donations = append(d.Donations, *r)
	case *SupplyRecord:
		for i := range d.Supplies {
			if d.Supplies[i].ID == r.ID {
				return fmt.Errorf("%w: supply %s already recorded", ErrConflict, r.ID)
			}
		}
		d.Supplies = append(d.Supplies, *r)
	default:
		return fmt.Errorf("ledger: unsupported record type %T", rec)
	}
	d.Refresh(now)
	return nil
}

// Clone returns a deep enough copy for callers that must not alias the
// collections of a live document.
func (d *LedgerDocument) Clone() *LedgerDocument {
	out := *d
	out.Donations = append([]DonationRecord(nil), d.Donations...)
	out.Supplies = append([]SupplyRecord(nil), d.Supplies...)
	if out.Donations == nil {
		out.Donations = []DonationRecord{}
	}
	if out.Supplies == nil {
		out.Supplies = []SupplyRecord{}
	}
	return &out
}
