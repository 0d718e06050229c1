package ledger

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GenerateID hashes the JSON form of payload together with a random nonce and
// the current time. The result is "0x" followed by 64 hex characters.
func GenerateID(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode id payload: %w", err)
	}
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	h := sha256.New()
	h.Write(raw)
	h.Write([]byte(hex.EncodeToString(nonce)))
	h.Write([]byte(time.Now().UTC().Format(time.RFC3339Nano)))
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// TrackingCode returns a human readable PREFIX-YYYYMMDD-NNNN code. Codes are
// for display only and may collide.
func TrackingCode(prefix string, now time.Time) string {
	var suffix int64
	if n, err := rand.Int(rand.Reader, big.NewInt(10000)); err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("%s-%s-%04d", strings.ToUpper(prefix), now.UTC().Format("20060102"), suffix)
}
