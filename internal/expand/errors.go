package expand

import (
	"fmt"
	"strings"
)

// SymbolicUseError reports a dependency-block expression that tried to
// compute on a symbolic call result at build time.
type SymbolicUseError struct {
	Function string
	Detail   string
}

func (e *SymbolicUseError) Error() string {
	return fmt.Sprintf("dependency block of %q uses a symbolic call result in a concrete context: %s",
		e.Function, e.Detail)
}

// UnresolvableError reports a dependency block whose declarations could
// not all be resolved: a round completed with no progress, which means the
// remaining assignments form a cycle with no concrete base case. This is
// detected during construction, distinct from the validator's post-hoc
// acyclicity check on the finished graph.
type UnresolvableError struct {
	Function  string
	Remaining []string
}

func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("dependency block of %q cannot be resolved: declarations [%s] depend on each other with no concrete base case",
		e.Function, strings.Join(e.Remaining, ", "))
}

// BoundExceededError reports an expansion that outgrew the configured node
// bound, which indicates runaway recursion in the definitions.
type BoundExceededError struct {
	Function string
	Limit    int
}

func (e *BoundExceededError) Error() string {
	return fmt.Sprintf("expansion of %q exceeded the %d node bound", e.Function, e.Limit)
}

// unresolvedNameError marks an expression that referenced a declaration
// target not yet bound in the current round. It is internal control flow:
// the declaration is retried on the next round.
type unresolvedNameError struct {
	name string
}

func (e *unresolvedNameError) Error() string {
	return fmt.Sprintf("name %q is not resolved yet", e.name)
}
