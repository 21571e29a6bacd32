// Package depspec holds the structured form of one function's declared
// dependencies: the list of assignments and free expressions that describe
// which other calls feed the function, already parsed out of whatever
// front-end the definitions were written in.
package depspec

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Declaration is a single statement in a dependency block: either a pure
// assignment (Name is the target) or a free expression (Name is empty).
// Source carries the original expression text and feeds the owning
// function's content hash.
type Declaration struct {
	Name   string
	Expr   hcl.Expression
	Source []byte
}

// Spec is the complete dependency specification of one function. Exactly
// one Spec exists per declared function; its statements are
// order-independent and referentially transparent by contract, which is
// what allows the expander to evaluate them eagerly and repeatedly.
type Spec struct {
	Function     string
	Params       []string
	Declarations []Declaration
}

var nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MalformedError reports a dependency specification that violates the
// input contract, before any graph is built from it.
type MalformedError struct {
	Function string
	Detail   string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed dependency specification for %q: %s", e.Function, e.Detail)
}

// New parses declaration sources into a Spec. Each assignment is given as
// name + expression source; a free expression has an empty name. Parsing
// keeps the raw source alongside the expression so function identity can
// be derived from it.
func New(function string, params []string, decls map[string]string, free []string) (*Spec, error) {
	spec := &Spec{Function: function, Params: params}
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := decls[name]
		expr, err := parseExpr(function, name, src)
		if err != nil {
			return nil, err
		}
		spec.Declarations = append(spec.Declarations, Declaration{
			Name:   name,
			Expr:   expr,
			Source: []byte(src),
		})
	}
	for i, src := range free {
		expr, err := parseExpr(function, fmt.Sprintf("free expression %d", i), src)
		if err != nil {
			return nil, err
		}
		spec.Declarations = append(spec.Declarations, Declaration{
			Expr:   expr,
			Source: []byte(src),
		})
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseExpr(function, target, src string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), function+".hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &MalformedError{
			Function: function,
			Detail:   fmt.Sprintf("cannot parse %s: %s", target, diags.Error()),
		}
	}
	return expr, nil
}

// Validate enforces the input contract: assignment targets are well-formed
// names, no target is reassigned, and no target shadows a parameter.
func (s *Spec) Validate() error {
	params := make(map[string]struct{}, len(s.Params))
	for _, p := range s.Params {
		if !nameRegex.MatchString(p) {
			return &MalformedError{Function: s.Function, Detail: fmt.Sprintf("invalid parameter name %q", p)}
		}
		if _, dup := params[p]; dup {
			return &MalformedError{Function: s.Function, Detail: fmt.Sprintf("duplicate parameter %q", p)}
		}
		params[p] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, decl := range s.Declarations {
		if decl.Expr == nil {
			return &MalformedError{Function: s.Function, Detail: "declaration with no expression"}
		}
		if decl.Name == "" {
			continue
		}
		if !nameRegex.MatchString(decl.Name) {
			return &MalformedError{Function: s.Function, Detail: fmt.Sprintf("invalid assignment target %q", decl.Name)}
		}
		if _, isParam := params[decl.Name]; isParam {
			return &MalformedError{Function: s.Function, Detail: fmt.Sprintf("assignment target %q shadows a parameter", decl.Name)}
		}
		if _, dup := seen[decl.Name]; dup {
			return &MalformedError{Function: s.Function, Detail: fmt.Sprintf("assignment target %q is reassigned", decl.Name)}
		}
		seen[decl.Name] = struct{}{}
	}
	return nil
}

// Sources returns the declaration sources in a deterministic order,
// assignments sorted by target name followed by free expressions in
// declaration order. Function content hashes are computed over this.
func (s *Spec) Sources() [][]byte {
	assigned := make([]Declaration, 0, len(s.Declarations))
	var free []Declaration
	for _, d := range s.Declarations {
		if d.Name == "" {
			free = append(free, d)
		} else {
			assigned = append(assigned, d)
		}
	}
	sort.Slice(assigned, func(i, j int) bool { return assigned[i].Name < assigned[j].Name })
	out := make([][]byte, 0, len(s.Declarations))
	for _, d := range assigned {
		out = append(out, append([]byte(d.Name+"="), d.Source...))
	}
	for _, d := range free {
		out = append(out, d.Source)
	}
	return out
}
