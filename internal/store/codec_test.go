package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
)

func TestEncodeDecode_PreservesType(t *testing.T) {
	// A set would decode as a list without the type half of the envelope.
	value := cty.SetVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})

	data, err := Encode(value)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, value.RawEquals(got))
	assert.True(t, got.Type().IsSetType())
}

func TestEncode_RejectsReferences(t *testing.T) {
	// References are a build-time construct; by execution time they have
	// been resolved, so the codec has no serialization for them.
	ref := callid.RefVal(callid.Key{Function: "f", FunctionHash: "h", Digest: "d"})
	_, err := Encode(ref)
	assert.Error(t, err)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("not an envelope"))
	assert.Error(t, err)
}
