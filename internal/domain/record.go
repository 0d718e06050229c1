package domain

import "time"

// Collection names one of the two append-only record sequences of the ledger.
type Collection string

const (
	CollectionDonations Collection = "donations"
	CollectionSupplies  Collection = "supplies"
)

// RecordType returns the verification discriminator for the collection.
func (c Collection) RecordType() string {
	switch c {
	case CollectionDonations:
		return "donation"
	case CollectionSupplies:
		return "supply"
	default:
		return string(c)
	}
}

// Record is implemented by every ledger entry.
type Record interface {
	RecordID() string
	Collection() Collection
}

// DonationStatus enumerates donation lifecycle states.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
)

// SupplyStatus enumerates dispatch lifecycle states.
type SupplyStatus string

const (
	SupplyPending   SupplyStatus = "pending"
	SupplyInTransit SupplyStatus = "in_transit"
	SupplyDelivered SupplyStatus = "delivered"
)

// ChainReceipt is the metadata returned by the external ledger mirror.
type ChainReceipt struct {
	Hash       string    `json:"hash"`
	Network    string    `json:"network"`
	Reference  string    `json:"reference,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// DonationDetails holds the donor supplied fields of a donation.
type DonationDetails struct {
	DonorName     string `json:"donorName"`
	Amount        Amount `json:"amount"`
	Currency      string `json:"currency"`
	Purpose       string `json:"purpose"`
	PaymentMethod string `json:"paymentMethod"`
}

// DonationRecord is an aid fund transaction.
type DonationRecord struct {
	ID           string          `json:"id"`
	TrackingCode string          `json:"trackingCode"`
	Details      DonationDetails `json:"details"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	Status       DonationStatus  `json:"status"`
	Blockchain   *ChainReceipt   `json:"blockchain"`
}

func (d *DonationRecord) RecordID() string       { return d.ID }
func (d *DonationRecord) Collection() Collection { return CollectionDonations }

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SupplyDetails holds the dispatch fields of a supply record.
type SupplyDetails struct {
	Item     string    `json:"item"`
	Quantity int64     `json:"quantity"`
	Unit     string    `json:"unit"`
	Category string    `json:"category"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Location *GeoPoint `json:"location,omitempty"`
}

// SupplyRecord is a relief supply dispatch log entry.
type SupplyRecord struct {
	ID           string        `json:"id"`
	TrackingCode string        `json:"trackingCode"`
	Details      SupplyDetails `json:"details"`
	CreatedBy    string        `json:"createdBy"`
	CreatedAt    time.Time     `json:"createdAt"`
	Status       SupplyStatus  `json:"status"`
	Blockchain   *ChainReceipt `json:"blockchain"`
}

func (s *SupplyRecord) RecordID() string       { return s.ID }
func (s *SupplyRecord) Collection() Collection { return CollectionSupplies }
