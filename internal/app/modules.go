package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/registry"
)

// coreModules are the handlers shipped with the binary for the bundled
// example workflows. Each binds only when a loaded workflow declares the
// matching function, so unrelated workflows are unaffected.
var coreModules = []HandlerModule{
	{Function: "fibonacci_number", Handler: fibonacciNumber},
	{Function: "fibonacci_sequence", Handler: fibonacciSequence},
}

// fibonacciNumber computes one Fibonacci number. For n > 1 the two
// preceding numbers arrive through the f_a and f_b dependency bindings.
func fibonacciNumber(ctx context.Context, call *registry.Call) (cty.Value, map[string]cty.Value, error) {
	if len(call.Args) != 1 {
		return cty.NilVal, nil, fmt.Errorf("fibonacci_number takes one argument, got %d", len(call.Args))
	}
	n, acc := call.Args[0].AsBigFloat().Int64()
	if acc != big.Exact {
		return cty.NilVal, nil, fmt.Errorf("fibonacci_number requires an integer argument")
	}
	if n < 0 {
		return cty.NilVal, nil, fmt.Errorf("fibonacci_number is undefined for negative %d", n)
	}
	if n <= 1 {
		return cty.NumberIntVal(n), nil, nil
	}

	sum := new(big.Float).Add(
		call.Binding("f_a").AsBigFloat(),
		call.Binding("f_b").AsBigFloat(),
	)
	return cty.NumberVal(sum), nil, nil
}

// fibonacciSequence returns the first `length` Fibonacci numbers. The
// numbers binding already holds them, computed by fibonacci_number calls
// fanned out in the workflow's depends block.
func fibonacciSequence(ctx context.Context, call *registry.Call) (cty.Value, map[string]cty.Value, error) {
	numbers := call.Binding("numbers")
	if numbers == cty.NilVal {
		return cty.NilVal, nil, fmt.Errorf("fibonacci_sequence requires a numbers dependency binding")
	}
	return numbers, nil, nil
}
