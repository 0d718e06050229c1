package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lifelink/internal/domain"
)

// HTTPMirror posts entries to a contract gateway that answers with the
// resulting transaction hash.
type HTTPMirror struct {
	endpoint string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

// NewHTTPMirror builds a mirror for endpoint. apiKey is optional.
func NewHTTPMirror(endpoint, apiKey string, client *http.Client) *HTTPMirror {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPMirror{endpoint: strings.TrimSpace(endpoint), apiKey: strings.TrimSpace(apiKey), client: client, now: time.Now}
}

type contractResponse struct {
	TxHash  string `json:"txHash"`
	Network string `json:"network"`
}

func (m *HTTPMirror) Mirror(ctx context.Context, entry Entry) (*domain.ChainReceipt, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contract call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read contract response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("contract call status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out contractResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode contract response: %w", err)
	}
	if out.TxHash == "" {
		return nil, fmt.Errorf("contract response missing txHash")
	}
	if out.Network == "" {
		out.Network = "contract"
	}
	return &domain.ChainReceipt{
		Hash:       out.TxHash,
		Network:    out.Network,
		Reference:  entry.ID,
		RecordedAt: m.now().UTC(),
	}, nil
}
