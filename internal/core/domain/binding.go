package domain

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ClientInfo describes the caller as seen by the transport.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Empty reports whether no client attribute was supplied.
func (c *ClientInfo) Empty() bool {
	return c == nil || (c.IP == "" && c.UserAgent == "")
}

// ClientBinding pins a token to the client that requested it.
type ClientBinding struct {
	IP          string `json:"ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// NewClientBinding captures a binding from c, or returns nil when c carries
// nothing to bind to.
func NewClientBinding(c *ClientInfo) *ClientBinding {
	if c.Empty() {
		return nil
	}
	return &ClientBinding{
		IP:          c.IP,
		UserAgent:   c.UserAgent,
		Fingerprint: Fingerprint(c),
	}
}

// Fingerprint is a hex BLAKE2b-256 digest over IP and User-Agent.
func Fingerprint(c *ClientInfo) string {
	var ip, ua string
	if c != nil {
		ip, ua = c.IP, c.UserAgent
	}
	h, _ := blake2b.New256(nil)
	h.Write([]byte(ip))
	h.Write([]byte{0})
	h.Write([]byte(ua))
	return hex.EncodeToString(h.Sum(nil))
}

// Matches reports whether c produces the bound fingerprint.
func (b *ClientBinding) Matches(c *ClientInfo) bool {
	if b == nil {
		return true
	}
	got := Fingerprint(c)
	return subtle.ConstantTimeCompare([]byte(got), []byte(b.Fingerprint)) == 1
}
