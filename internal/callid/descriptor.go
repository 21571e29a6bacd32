package callid

import (
	"crypto/sha256"
	"encoding/base64"
)

// Descriptor is the stable identity of a declared graph function: its name
// plus a content hash of its declarations. Immutable once registered.
type Descriptor struct {
	Name string
	Hash string
}

// HashContent computes the content hash for a function from its name,
// parameter list, declaration sources, and declared channel names. The
// digest is truncated and base64url-encoded so it stays readable inside
// call keys and store keys.
func HashContent(name string, params []string, sources [][]byte, channels []string) string {
	h := sha256.New()
	h.Write([]byte(name))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	for _, src := range sources {
		h.Write([]byte{1})
		h.Write(src)
	}
	for _, ch := range channels {
		h.Write([]byte{2})
		h.Write([]byte(ch))
	}
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
