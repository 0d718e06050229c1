package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"golang.org/x/text/currency"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
)

// Donations move money from @world into the relief fund; dispatches move
// units out of the relief stock. Metadata is set in the script so the
// Formance transaction is self-describing.
const numscriptDonation = `vars {
  asset $asset
  number $amount
  string $record_id
  string $tracking_code
  string $created_by
  string $purpose
}

send [$asset $amount] (
  source = @world
  destination = @relief:donations
)

set_tx_meta("record_type", "donation")
set_tx_meta("record_id", $record_id)
set_tx_meta("tracking_code", $tracking_code)
set_tx_meta("created_by", $created_by)
set_tx_meta("purpose", $purpose)
`

const numscriptDispatch = `vars {
  number $quantity
  string $record_id
  string $tracking_code
  string $created_by
  string $item
  string $from
  string $to
}

send [UNITS $quantity] (
  source = @relief:stock allowing unbounded overdraft
  destination = @relief:dispatched
)

set_tx_meta("record_type", "supply")
set_tx_meta("record_id", $record_id)
set_tx_meta("tracking_code", $tracking_code)
set_tx_meta("created_by", $created_by)
set_tx_meta("item", $item)
set_tx_meta("from", $from)
set_tx_meta("to", $to)
`

// FormanceConfig selects the stack and ledger.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	Ledger       string
}

// FormanceMirror records entries as Numscript transactions on a Formance
// ledger. The record id is the transaction reference, so replays are no-ops.
type FormanceMirror struct {
	client *v3.Formance
	ledger string
	logger infra.Logger
	now    func() time.Time
}

// NewFormanceMirror connects to the stack and creates the ledger when missing.
func NewFormanceMirror(ctx context.Context, cfg FormanceConfig, logger infra.Logger) (*FormanceMirror, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance mirror requires stack url, client id and client secret")
	}
	if cfg.Ledger == "" {
		cfg.Ledger = "lifelink"
	}

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)
	m := &FormanceMirror{client: client, ledger: cfg.Ledger, logger: logger, now: time.Now}
	if err := m.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("ensure formance ledger: %w", err)
	}
	logger.Info().Str("stack_url", cfg.StackURL).Str("ledger", cfg.Ledger).Msg("formance mirror ready")
	return m, nil
}

func (m *FormanceMirror) ensureLedger(ctx context.Context) error {
	_, err := m.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: m.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{"application": "lifelink"},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			return nil
		}
		return err
	}
	return nil
}

func (m *FormanceMirror) Mirror(ctx context.Context, entry Entry) (*domain.ChainReceipt, error) {
	script, err := numscriptFor(entry)
	if err != nil {
		return nil, err
	}
	createdAt := entry.CreatedAt.UTC()
	_, err = m.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: m.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(entry.ID),
			Script:    script,
			Timestamp: &createdAt,
		},
	})
	if err != nil && !isConflict(err) {
		return nil, fmt.Errorf("formance transaction: %w", err)
	}
	return &domain.ChainReceipt{
		Hash:       entry.ID,
		Network:    "formance:" + m.ledger,
		Reference:  entry.ID,
		RecordedAt: m.now().UTC(),
	}, nil
}

func numscriptFor(entry Entry) (*shared.V2PostTransactionScript, error) {
	switch entry.Type {
	case "donation":
		if entry.Amount == nil {
			return nil, fmt.Errorf("donation entry %s has no amount", entry.ID)
		}
		asset, minor, err := monetary(entry.Currency, *entry.Amount)
		if err != nil {
			return nil, err
		}
		return &shared.V2PostTransactionScript{
			Plain: numscriptDonation,
			Vars: map[string]string{
				"asset":         asset,
				"amount":        minor,
				"record_id":     entry.ID,
				"tracking_code": entry.TrackingCode,
				"created_by":    entry.CreatedBy,
				"purpose":       entry.Purpose,
			},
		}, nil
	case "supply":
		return &shared.V2PostTransactionScript{
			Plain: numscriptDispatch,
			Vars: map[string]string{
				"quantity":      strconv.FormatInt(entry.Quantity, 10),
				"record_id":     entry.ID,
				"tracking_code": entry.TrackingCode,
				"created_by":    entry.CreatedBy,
				"item":          entry.Item,
				"from":          entry.From,
				"to":            entry.To,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported entry type %q", entry.Type)
	}
}

// monetary returns the UMN asset (e.g. "INR/2") and the amount in minor units.
func monetary(code string, amount domain.Amount) (string, string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", "", fmt.Errorf("currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	minor := amount.Shift(int32(scale))
	if !minor.Equal(minor.Truncate(0)) {
		return "", "", fmt.Errorf("amount %s has more than %d decimals for %s", amount, scale, unit)
	}
	return fmt.Sprintf("%s/%d", strings.ToUpper(unit.String()), scale), minor.BigInt().String(), nil
}

func isConflict(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func strPtr(s string) *string { return &s }
