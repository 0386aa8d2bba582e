package track

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"
)

const sourceHashLength = 16

// SourceHasher irreversibly anonymises source addresses. The same address
// always maps to the same hash under one secret, so repeat visits can be
// correlated without storing the address.
type SourceHasher struct {
	secret []byte
}

// NewSourceHasher creates a hasher keyed by secret
func NewSourceHasher(secret string) *SourceHasher {
	return &SourceHasher{secret: []byte(secret)}
}

// Hash returns the truncated keyed hash of addr, or "" when addr is empty.
// Ports are dropped so a client hashes identically across connections.
func (h *SourceHasher) Hash(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	if ap, err := netip.ParseAddrPort(addr); err == nil {
		addr = ap.Addr().Unmap().String()
	} else if ip, err := netip.ParseAddr(addr); err == nil {
		addr = ip.Unmap().String()
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(addr))
	return hex.EncodeToString(mac.Sum(nil))[:sourceHashLength]
}
