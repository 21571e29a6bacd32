package callid

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testDescriptor(name string) Descriptor {
	return Descriptor{Name: name, Hash: HashContent(name, []string{"n"}, nil, nil)}
}

func TestFingerprint_Deterministic(t *testing.T) {
	desc := testDescriptor("fib")
	args := []cty.Value{cty.NumberIntVal(10)}

	k1, err := Fingerprint(desc, args, nil)
	require.NoError(t, err)
	k2, err := Fingerprint(desc, args, nil)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Equal(t, "fib", k1.Function)
	assert.NotEmpty(t, k1.Digest)
}

func TestFingerprint_DistinguishesArguments(t *testing.T) {
	desc := testDescriptor("fib")

	k1, err := Fingerprint(desc, []cty.Value{cty.NumberIntVal(1)}, nil)
	require.NoError(t, err)
	k2, err := Fingerprint(desc, []cty.Value{cty.NumberIntVal(2)}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, k1.Digest, k2.Digest)
}

func TestFingerprint_DistinguishesFunctionContent(t *testing.T) {
	// Same name, different declaration sources: calls must not collide.
	d1 := Descriptor{Name: "f", Hash: HashContent("f", []string{"n"}, [][]byte{[]byte("a=g(n)")}, nil)}
	d2 := Descriptor{Name: "f", Hash: HashContent("f", []string{"n"}, [][]byte{[]byte("a=h(n)")}, nil)}

	k1, err := Fingerprint(d1, []cty.Value{cty.NumberIntVal(1)}, nil)
	require.NoError(t, err)
	k2, err := Fingerprint(d2, []cty.Value{cty.NumberIntVal(1)}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.Equal(t, k1.Digest, k2.Digest, "argument digest should not depend on function content")
}

func TestFingerprint_KwargOrderInsensitive(t *testing.T) {
	desc := testDescriptor("f")

	k1, err := Fingerprint(desc, nil, map[string]cty.Value{
		"a": cty.StringVal("x"),
		"b": cty.NumberIntVal(2),
	})
	require.NoError(t, err)
	k2, err := Fingerprint(desc, nil, map[string]cty.Value{
		"b": cty.NumberIntVal(2),
		"a": cty.StringVal("x"),
	})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
}

func TestFingerprint_SetOrderInsensitive(t *testing.T) {
	desc := testDescriptor("f")

	s1 := cty.SetVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b"), cty.StringVal("c")})
	s2 := cty.SetVal([]cty.Value{cty.StringVal("c"), cty.StringVal("a"), cty.StringVal("b")})

	k1, err := Fingerprint(desc, []cty.Value{s1}, nil)
	require.NoError(t, err)
	k2, err := Fingerprint(desc, []cty.Value{s2}, nil)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
}

func TestFingerprint_ListOrderSensitive(t *testing.T) {
	desc := testDescriptor("f")

	l1 := cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)})
	l2 := cty.TupleVal([]cty.Value{cty.NumberIntVal(2), cty.NumberIntVal(1)})

	k1, err := Fingerprint(desc, []cty.Value{l1}, nil)
	require.NoError(t, err)
	k2, err := Fingerprint(desc, []cty.Value{l2}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, k1.Digest, k2.Digest)
}

func TestFingerprint_NestedCallReference(t *testing.T) {
	// A reference argument encodes as the referenced key, so two calls
	// embedding the same subcall agree and two embedding different
	// subcalls differ.
	desc := testDescriptor("outer")
	inner := testDescriptor("inner")

	innerKey1, err := Fingerprint(inner, []cty.Value{cty.NumberIntVal(1)}, nil)
	require.NoError(t, err)
	innerKey2, err := Fingerprint(inner, []cty.Value{cty.NumberIntVal(2)}, nil)
	require.NoError(t, err)

	same1, err := Fingerprint(desc, []cty.Value{RefVal(innerKey1)}, nil)
	require.NoError(t, err)
	same2, err := Fingerprint(desc, []cty.Value{RefVal(innerKey1)}, nil)
	require.NoError(t, err)
	other, err := Fingerprint(desc, []cty.Value{RefVal(innerKey2)}, nil)
	require.NoError(t, err)

	assert.Equal(t, same1, same2)
	assert.NotEqual(t, same1, other)
}

func TestFingerprint_RefInsideContainer(t *testing.T) {
	desc := testDescriptor("outer")
	inner := testDescriptor("inner")

	innerKey, err := Fingerprint(inner, []cty.Value{cty.NumberIntVal(1)}, nil)
	require.NoError(t, err)

	arg := cty.TupleVal([]cty.Value{cty.StringVal("x"), RefVal(innerKey)})
	_, err = Fingerprint(desc, []cty.Value{arg}, nil)
	assert.NoError(t, err)
}

func TestFingerprint_RejectsUnknown(t *testing.T) {
	desc := testDescriptor("f")

	_, err := Fingerprint(desc, []cty.Value{cty.UnknownVal(cty.String)}, nil)
	require.Error(t, err)
	var nonCanonical *NonCanonicalError
	assert.ErrorAs(t, err, &nonCanonical)
	assert.Equal(t, "f", nonCanonical.Function)
}

func TestFingerprint_RejectsForeignCapsule(t *testing.T) {
	type opaque struct{ x int }
	foreignType := cty.Capsule("opaque", reflect.TypeOf(opaque{}))
	desc := testDescriptor("f")

	_, err := Fingerprint(desc, []cty.Value{cty.CapsuleVal(foreignType, &opaque{x: 1})}, nil)
	var nonCanonical *NonCanonicalError
	assert.ErrorAs(t, err, &nonCanonical)
}

func TestFingerprint_NullIsCanonical(t *testing.T) {
	desc := testDescriptor("f")

	k1, err := Fingerprint(desc, []cty.Value{cty.NullVal(cty.String)}, nil)
	require.NoError(t, err)
	k2, err := Fingerprint(desc, []cty.Value{cty.NullVal(cty.Number)}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, k1.Digest, k2.Digest, "typed nulls are distinct values")
}
