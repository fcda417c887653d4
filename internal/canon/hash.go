package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep fingerprints of different kinds of values apart.
const (
	DomainState  = "threadview/state/v1"
	DomainForest = "threadview/forest/v1"
	DomainEvent  = "threadview/event/v1"
)

// Fingerprint returns the hex SHA-256 of domain || 0x00 || canonical(v).
func Fingerprint(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// FingerprintRaw fingerprints an already encoded JSON document.
func FingerprintRaw(domain string, raw []byte) (string, error) {
	data, err := Canonicalize(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
