package callid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_StringRoundTrip(t *testing.T) {
	t.Run("primary key", func(t *testing.T) {
		key := Key{Function: "fib", FunctionHash: "AbC123_-", Digest: "00ff17"}
		parsed, err := ParseKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	})

	t.Run("channel key", func(t *testing.T) {
		key := Key{Function: "report", FunctionHash: "AbC123_-", Digest: "00ff17", Channel: "summary"}
		assert.Equal(t, "report@AbC123_-:00ff17+summary", key.String())
		parsed, err := ParseKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	})
}

func TestParseKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "fib", "fib@hash", "fib:digest", "@h:d"} {
		_, err := ParseKey(s)
		assert.Error(t, err, "should reject %q", s)
	}
}

func TestKey_ChannelDerivation(t *testing.T) {
	key := Key{Function: "f", FunctionHash: "h", Digest: "d"}

	ch := key.WithChannel("out")
	assert.Equal(t, "out", ch.Channel)
	assert.Equal(t, key, ch.Primary())
	assert.NotEqual(t, key, ch, "channel keys address distinct store entries")
}

func TestKey_IsZero(t *testing.T) {
	assert.True(t, Key{}.IsZero())
	assert.False(t, Key{Function: "f"}.IsZero())
}
