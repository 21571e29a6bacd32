package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParseRootCall(t *testing.T) {
	t.Run("number argument", func(t *testing.T) {
		name, args, err := parseRootCall("fibonacci_number(10)")
		require.NoError(t, err)
		assert.Equal(t, "fibonacci_number", name)
		require.Len(t, args, 1)
		assert.True(t, cty.NumberIntVal(10).RawEquals(args[0]))
	})

	t.Run("mixed literal arguments", func(t *testing.T) {
		name, args, err := parseRootCall(`load("2024-01-01", true, [1, 2])`)
		require.NoError(t, err)
		assert.Equal(t, "load", name)
		require.Len(t, args, 3)
		assert.Equal(t, cty.StringVal("2024-01-01"), args[0])
		assert.Equal(t, cty.True, args[1])
	})

	t.Run("no arguments", func(t *testing.T) {
		name, args, err := parseRootCall("refresh()")
		require.NoError(t, err)
		assert.Equal(t, "refresh", name)
		assert.Empty(t, args)
	})

	t.Run("not a call", func(t *testing.T) {
		_, _, err := parseRootCall("42")
		assert.ErrorContains(t, err, "must be a call expression")
	})

	t.Run("syntax error", func(t *testing.T) {
		_, _, err := parseRootCall("fib(")
		assert.ErrorContains(t, err, "cannot parse")
	})

	t.Run("non-literal argument", func(t *testing.T) {
		_, _, err := parseRootCall("fib(x + 1)")
		assert.ErrorContains(t, err, "literal value")
	})
}
