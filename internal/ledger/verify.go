package ledger

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"

	"lifelink/internal/domain"
	"lifelink/internal/qr"
)

// Verification is a record found by identifier.
type Verification struct {
	Type string        `json:"type"`
	Data domain.Record `json:"data"`
}

// Verify looks id up in the donations and then in the supplies. Hits are
// cached; records never change once appended.
func (s *Service) Verify(ctx context.Context, id string) (*Verification, error) {
	if cached, ok := s.verified.Get(id); ok {
		return cached.(*Verification), nil
	}

	doc, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var found *Verification
	for i := range doc.Donations {
		if doc.Donations[i].ID == id {
			rec := doc.Donations[i]
			found = &Verification{Type: domain.CollectionDonations.RecordType(), Data: &rec}
			break
		}
	}
	if found == nil {
		for i := range doc.Supplies {
			if doc.Supplies[i].ID == id {
				rec := doc.Supplies[i]
				found = &Verification{Type: domain.CollectionSupplies.RecordType(), Data: &rec}
				break
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: record %s", domain.ErrNotFound, id)
	}
	s.verified.Set(id, found, cache.DefaultExpiration)
	return found, nil
}

// QRCode is the shareable verification payload of a record.
type QRCode struct {
	TxHash    string `json:"txHash"`
	VerifyURL string `json:"verifyUrl"`
	QRCode    string `json:"qrCode"`
}

// QR renders the verification link of a known record.
func (s *Service) QR(ctx context.Context, id string) (*QRCode, error) {
	if _, err := s.Verify(ctx, id); err != nil {
		return nil, err
	}
	link := s.VerifyURL(id)
	code, err := qr.DataURL(link)
	if err != nil {
		return nil, err
	}
	return &QRCode{TxHash: id, VerifyURL: link, QRCode: code}, nil
}
