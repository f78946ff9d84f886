package idempotency

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TTL is how long a stored response suppresses duplicates.
const TTL = 24 * time.Hour

// Store maps a request fingerprint to the exact response bytes previously
// returned, so a retried checkout replays the original response instead of
// creating a second gateway order or reservation.
type Store interface {
	// Lookup returns the stored response for the hash, or nil when absent.
	// Read-only.
	Lookup(ctx context.Context, hash string) (json.RawMessage, error)

	// Save records the response under the hash. Best-effort: callers must
	// not fail the primary operation when Save errors.
	Save(ctx context.Context, hash string, response json.RawMessage) error
}

// Fingerprinter derives deterministic request fingerprints. The hash is keyed
// with a server secret so clients can neither predict nor forge collisions.
type Fingerprinter struct {
	secret []byte
}

func NewFingerprinter(secret string) *Fingerprinter {
	return &Fingerprinter{secret: []byte(secret)}
}

// Fingerprint hashes (buyerID, items-as-serialized, timestamp). Item order is
// significant: the serialization is taken as-is from the request.
func (f *Fingerprinter) Fingerprint(buyerID string, items interface{}, timestamp int64) (string, error) {
	serialized, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("serialize items: %w", err)
	}
	mac := hmac.New(sha256.New, f.secret)
	fmt.Fprintf(mac, "%s-%s-%d", buyerID, serialized, timestamp)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
