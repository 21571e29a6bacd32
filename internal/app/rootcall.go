package app

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// parseRootCall interprets the user's root call string as a single call
// expression with literal arguments. Anything symbolic belongs inside a
// workflow's depends block, not on the command line.
func parseRootCall(src string) (string, []cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "root-call", hcl.InitialPos)
	if diags.HasErrors() {
		return "", nil, fmt.Errorf("cannot parse root call %q: %s", src, diags.Error())
	}
	call, ok := expr.(*hclsyntax.FunctionCallExpr)
	if !ok {
		return "", nil, fmt.Errorf("root call %q must be a call expression, e.g. 'fibonacci_number(10)'", src)
	}

	args := make([]cty.Value, 0, len(call.Args))
	for i, argExpr := range call.Args {
		val, diags := argExpr.Value(nil)
		if diags.HasErrors() {
			return "", nil, fmt.Errorf("root call argument %d must be a literal value: %s", i, diags.Error())
		}
		args = append(args, val)
	}
	return call.Name, args, nil
}
