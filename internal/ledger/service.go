// Package ledger records donations and supply dispatches and verifies them
// by identifier.
package ledger

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
	"lifelink/internal/mirror"
	"lifelink/internal/qr"
)

const (
	DefaultCurrency      = "INR"
	DefaultPaymentMethod = "unspecified"
	DefaultUnit          = "units"
	DefaultCategory      = "general"
	DefaultMirrorTimeout = 30 * time.Second

	// maxAmountDigits caps the integer part of a donation amount.
	maxAmountDigits = 15
	// maxAmountDecimals bounds the written fraction before currency scale
	// is checked, so trailing zeros cannot force huge rescales.
	maxAmountDecimals = 18
)

var maxAmount = decimal.New(1, maxAmountDigits)

// Options configures a Service.
type Options struct {
	PublicBaseURL string
	MirrorTimeout time.Duration
}

// Service owns record creation and lookup. Mirror may be nil.
type Service struct {
	store         domain.LedgerStore
	mirror        mirror.Mirror
	logger        infra.Logger
	baseURL       string
	mirrorTimeout time.Duration
	verified      *cache.Cache
	now           func() time.Time
}

func NewService(store domain.LedgerStore, m mirror.Mirror, logger infra.Logger, opts Options) *Service {
	timeout := opts.MirrorTimeout
	if timeout <= 0 {
		timeout = DefaultMirrorTimeout
	}
	return &Service{
		store:         store,
		mirror:        m,
		logger:        logger,
		baseURL:       strings.TrimRight(opts.PublicBaseURL, "/"),
		mirrorTimeout: timeout,
		verified:      cache.New(30*time.Minute, 0),
		now:           time.Now,
	}
}

// DonationInput is the body of a donation request.
type DonationInput struct {
	DonorName     string        `json:"donorName"`
	Amount        domain.Amount `json:"amount"`
	Currency      string        `json:"currency"`
	Purpose       string        `json:"purpose"`
	PaymentMethod string        `json:"paymentMethod"`
}

// DispatchInput is the body of a dispatch request.
type DispatchInput struct {
	Item     string   `json:"item"`
	Quantity int64    `json:"quantity"`
	Unit     string   `json:"unit"`
	Category string   `json:"category"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

// Receipt is returned for every recorded entry.
type Receipt struct {
	Record    domain.Record `json:"record"`
	VerifyURL string        `json:"verifyUrl"`
	QRDataURL string        `json:"qrDataUrl"`
}

func (in DonationInput) details() (domain.DonationDetails, error) {
	d := domain.DonationDetails{
		DonorName:     strings.TrimSpace(in.DonorName),
		Amount:        in.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		Purpose:       strings.TrimSpace(in.Purpose),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
	}
	var missing []string
	if d.DonorName == "" {
		missing = append(missing, "donorName")
	}
	if d.Purpose == "" {
		missing = append(missing, "purpose")
	}
	if len(missing) > 0 {
		return d, fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if !d.Amount.IsPositive() {
		return d, fmt.Errorf("%w: amount must be greater than zero", domain.ErrValidation)
	}
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	unit, err := currency.ParseISO(d.Currency)
	if err != nil {
		return d, fmt.Errorf("%w: unknown currency %q", domain.ErrValidation, d.Currency)
	}
	if err := checkAmount(d.Amount, unit); err != nil {
		return d, err
	}
	if d.PaymentMethod == "" {
		d.PaymentMethod = DefaultPaymentMethod
	}
	return d, nil
}

// checkAmount keeps amounts within what the mirror and every store can
// represent exactly: at most maxAmountDigits integer digits and no more
// decimals than the currency's minor unit.
func checkAmount(a domain.Amount, unit currency.Unit) error {
	exp := a.Exponent()
	if exp > maxAmountDigits || a.Coefficient().BitLen() > 64 {
		return fmt.Errorf("%w: amount must be below %s", domain.ErrValidation, maxAmount.String())
	}
	scale, _ := currency.Standard.Rounding(unit)
	if exp < -maxAmountDecimals || !a.Equal(a.Truncate(int32(scale))) {
		return fmt.Errorf("%w: amount has more than %d decimals for %s", domain.ErrValidation, scale, unit)
	}
	if a.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: amount must be below %s", domain.ErrValidation, maxAmount.String())
	}
	return nil
}

func (in DispatchInput) details() (domain.SupplyDetails, error) {
	d := domain.SupplyDetails{
		Item:     strings.TrimSpace(in.Item),
		Quantity: in.Quantity,
		Unit:     strings.TrimSpace(in.Unit),
		Category: strings.TrimSpace(in.Category),
		From:     strings.TrimSpace(in.From),
		To:       strings.TrimSpace(in.To),
	}
	var missing []string
	for _, f := range []struct{ name, value string }{{"item", d.Item}, {"from", d.From}, {"to", d.To}} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return d, fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if d.Quantity <= 0 {
		return d, fmt.Errorf("%w: quantity must be greater than zero", domain.ErrValidation)
	}
	if d.Unit == "" {
		d.Unit = DefaultUnit
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}

	switch {
	case in.Lat == nil && in.Lng == nil:
	case in.Lat == nil || in.Lng == nil:
		return d, fmt.Errorf("%w: lat and lng must be given together", domain.ErrValidation)
	default:
		lat, lng := *in.Lat, *in.Lng
		if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return d, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
		}
		d.Location = &domain.GeoPoint{Lat: lat, Lng: lng}
	}
	return d, nil
}

// RecordDonation validates in, mirrors the donation when a mirror is
// configured and appends it to the ledger.
func (s *Service) RecordDonation(ctx context.Context, actor string, in DonationInput) (*Receipt, error) {
	details, err := in.details()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	id, err := GenerateID(struct {
		Type      string                 `json:"type"`
		Details   domain.DonationDetails `json:"details"`
		CreatedBy string                 `json:"createdBy"`
	}{"donation", details, actor})
	if err != nil {
		return nil, err
	}
	rec := &domain.DonationRecord{
		ID:           id,
		TrackingCode: TrackingCode("DON", now),
		Details:      details,
		CreatedBy:    actor,
		CreatedAt:    now,
		Status:       domain.DonationCompleted,
	}
	if err := s.commit(ctx, rec, &rec.Blockchain); err != nil {
		return nil, err
	}
	return s.receipt(rec)
}

// RecordDispatch validates in, mirrors the dispatch when a mirror is
// configured and appends it to the ledger.
func (s *Service) RecordDispatch(ctx context.Context, actor string, in DispatchInput) (*Receipt, error) {
	details, err := in.details()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	id, err := GenerateID(struct {
		Type      string               `json:"type"`
		Details   domain.SupplyDetails `json:"details"`
		CreatedBy string               `json:"createdBy"`
	}{"supply", details, actor})
	if err != nil {
		return nil, err
	}
	rec := &domain.SupplyRecord{
		ID:           id,
		TrackingCode: TrackingCode("SUP", now),
		Details:      details,
		CreatedBy:    actor,
		CreatedAt:    now,
		Status:       domain.SupplyInTransit,
	}
	if err := s.commit(ctx, rec, &rec.Blockchain); err != nil {
		return nil, err
	}
	return s.receipt(rec)
}

// commit mirrors rec first and appends it only after the mirror succeeded,
// so a failed mirror leaves the ledger untouched. Client cancellation does
// not reach either step.
func (s *Service) commit(ctx context.Context, rec domain.Record, receipt **domain.ChainReceipt) error {
	ctx = context.WithoutCancel(ctx)
	kind := rec.Collection().RecordType()

	if s.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
		r, err := s.mirror.Mirror(mctx, mirror.EntryFor(rec))
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("id", rec.RecordID()).Str("type", kind).Msg("mirror failed")
			return fmt.Errorf("%w: %v", domain.ErrMirrorFailed, err)
		}
		*receipt = r
	}

	if err := s.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append %s: %w", kind, err)
	}
	s.logger.Info().Str("id", rec.RecordID()).Str("type", kind).Bool("mirrored", *receipt != nil).Msg("record appended")
	return nil
}

func (s *Service) receipt(rec domain.Record) (*Receipt, error) {
	verifyURL := s.VerifyURL(rec.RecordID())
	code, err := qr.DataURL(verifyURL)
	if err != nil {
		return nil, err
	}
	return &Receipt{Record: rec, VerifyURL: verifyURL, QRDataURL: code}, nil
}

// VerifyURL is the public lookup link of id.
func (s *Service) VerifyURL(id string) string {
	return s.baseURL + "/verifyRecord/" + url.PathEscape(id)
}

// Ledger returns the full document with statistics folded from its
// collections.
func (s *Service) Ledger(ctx context.Context) (*domain.LedgerDocument, error) {
	doc, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	doc.Statistics = domain.ComputeStatistics(doc.Donations, doc.Supplies)
	return doc, nil
}

// Ping checks that the store answers. Stores without a cheaper probe of
// their own are read once, without folding statistics.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(domain.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.ReadAll(ctx)
	return err
}

// Summary is the compact statistics view.
type Summary struct {
	TotalDonations     domain.Amount  `json:"totalDonations"`
	TransactionCount   int            `json:"transactionCount"`
	ActiveSupplies     int            `json:"activeSupplies"`
	SupplyDistribution map[string]int `json:"supplyDistribution"`
}

// Summarize condenses doc. Supplies still in transit or pending count as
// active.
func Summarize(doc *domain.LedgerDocument) Summary {
	stats := domain.ComputeStatistics(doc.Donations, doc.Supplies)
	return Summary{
		TotalDonations:     stats.TotalDonations,
		TransactionCount:   stats.DonationCount + stats.TotalSupplies,
		ActiveSupplies:     stats.SupplyDistribution[string(domain.SupplyInTransit)] + stats.SupplyDistribution[string(domain.SupplyPending)],
		SupplyDistribution: stats.SupplyDistribution,
	}
}
