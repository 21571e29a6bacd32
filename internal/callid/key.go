package callid

import (
	"fmt"
	"regexp"
	"strings"
)

// Key is the deterministic identity of one call: function name, function
// content hash, a digest over the canonicalized arguments, and an optional
// channel name for keys that address a named auxiliary output rather than
// the call's primary result.
//
// Key is a comparable value type and is used directly as a map key by the
// graph, the scheduler, and the stores.
type Key struct {
	Function     string
	FunctionHash string
	Digest       string
	Channel      string
}

// keyRegex parses the canonical string form produced by String.
var keyRegex = regexp.MustCompile(`^([^@+:]+)@([A-Za-z0-9_-]+):([0-9a-f]+)(?:\+(.+))?$`)

// String serializes the Key into its canonical form
// "function@funchash:digest" with "+channel" appended for channel keys.
// The form contains no path separators, so POSIX stores may use it
// directly as a file name; the ":" makes it unusable as an NTFS name.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Function)
	sb.WriteByte('@')
	sb.WriteString(k.FunctionHash)
	sb.WriteByte(':')
	sb.WriteString(k.Digest)
	if k.Channel != "" {
		sb.WriteByte('+')
		sb.WriteString(k.Channel)
	}
	return sb.String()
}

// IsZero reports whether the key is the zero value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// WithChannel returns a derived key addressing the named output channel of
// the same call. The scheduler stores each channel of an execution under
// its derived key so downstream consumers fetch only the channel they use.
func (k Key) WithChannel(channel string) Key {
	k.Channel = channel
	return k
}

// Primary returns the key of the call's primary result, stripping any
// channel component.
func (k Key) Primary() Key {
	k.Channel = ""
	return k
}

// ParseKey parses the canonical string form back into a Key.
func ParseKey(s string) (Key, error) {
	matches := keyRegex.FindStringSubmatch(s)
	if matches == nil {
		return Key{}, fmt.Errorf("invalid call key format: %q", s)
	}
	return Key{
		Function:     matches[1],
		FunctionHash: matches[2],
		Digest:       matches[3],
		Channel:      matches[4],
	}, nil
}
