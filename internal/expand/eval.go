package expand

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/registry"
)

// pendingCall records a call discovered while evaluating a dependency
// block, before it has a node in the graph.
type pendingCall struct {
	key      callid.Key
	function string
	args     []cty.Value
}

// evaluator symbolically evaluates one function's dependency block. env
// maps parameters and already-resolved declaration targets to values;
// discovered accumulates every graph call the block makes.
type evaluator struct {
	reg        *registry.Registry
	function   string
	env        map[string]cty.Value
	discovered map[callid.Key]*pendingCall
	order      []callid.Key
}

func newEvaluator(reg *registry.Registry, function string, env map[string]cty.Value) *evaluator {
	return &evaluator{
		reg:        reg,
		function:   function,
		env:        env,
		discovered: make(map[callid.Key]*pendingCall),
	}
}

// calls returns the calls discovered so far, in discovery order.
func (ev *evaluator) calls() []*pendingCall {
	out := make([]*pendingCall, 0, len(ev.order))
	for _, key := range ev.order {
		out = append(out, ev.discovered[key])
	}
	return out
}

// resolveCall turns a graph-function or interface invocation into a call
// reference. Interface calls resolve to a reference to the producing
// function's call, bound to the interface's channel, so that distinct
// interfaces over the same producer share one node.
func (ev *evaluator) resolveCall(name string, args []cty.Value) (cty.Value, error) {
	if fn, ok := ev.reg.Function(name); ok {
		key, err := callid.Fingerprint(fn.Descriptor(), args, nil)
		if err != nil {
			return cty.NilVal, err
		}
		ev.record(key, name, args)
		return callid.RefVal(key), nil
	}

	iface, ok := ev.reg.Interface(name)
	if !ok {
		return cty.NilVal, fmt.Errorf("call to undeclared function %q", name)
	}
	producer, err := ev.reg.Producer(iface)
	if err != nil {
		return cty.NilVal, err
	}
	key, err := callid.Fingerprint(producer.Descriptor(), args, nil)
	if err != nil {
		return cty.NilVal, err
	}
	ev.record(key, producer.Name, args)
	return callid.RefVal(key.WithChannel(iface.Channel)), nil
}

func (ev *evaluator) record(key callid.Key, function string, args []cty.Value) {
	if _, seen := ev.discovered[key]; seen {
		return
	}
	ev.discovered[key] = &pendingCall{key: key, function: function, args: args}
	ev.order = append(ev.order, key)
}

// isGraphCall reports whether a function name refers to a declared graph
// function or interface rather than an ordinary core function.
func (ev *evaluator) isGraphCall(name string) bool {
	if _, ok := ev.reg.Function(name); ok {
		return true
	}
	_, ok := ev.reg.Interface(name)
	return ok
}

func (ev *evaluator) symbolicErr(detail string) error {
	return &SymbolicUseError{Function: ev.function, Detail: detail}
}

// eval evaluates one expression of the dependency block. Graph calls
// become references; everything else evaluates to a concrete value now.
func (ev *evaluator) eval(expr hcl.Expression) (cty.Value, error) {
	syntaxExpr, ok := expr.(hclsyntax.Expression)
	if !ok {
		return cty.NilVal, fmt.Errorf("unsupported expression implementation %T", expr)
	}
	return ev.walk(syntaxExpr)
}

func (ev *evaluator) walk(expr hclsyntax.Expression) (cty.Value, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return e.Val, nil

	case *hclsyntax.ParenthesesExpr:
		return ev.walk(e.Expression)

	case *hclsyntax.ScopeTraversalExpr:
		return ev.walkTraversal(e)

	case *hclsyntax.FunctionCallExpr:
		return ev.walkFunctionCall(e)

	case *hclsyntax.ConditionalExpr:
		return ev.walkConditional(e)

	case *hclsyntax.TupleConsExpr:
		vals := make([]cty.Value, 0, len(e.Exprs))
		for _, itemExpr := range e.Exprs {
			val, err := ev.walk(itemExpr)
			if err != nil {
				return cty.NilVal, err
			}
			vals = append(vals, val)
		}
		if len(vals) == 0 {
			return cty.EmptyTupleVal, nil
		}
		return cty.TupleVal(vals), nil

	case *hclsyntax.ObjectConsExpr:
		return ev.walkObjectCons(e)

	case *hclsyntax.ForExpr:
		return ev.walkFor(e)

	case *hclsyntax.BinaryOpExpr:
		lhs, err := ev.walk(e.LHS)
		if err != nil {
			return cty.NilVal, err
		}
		rhs, err := ev.walk(e.RHS)
		if err != nil {
			return cty.NilVal, err
		}
		if callid.ContainsRef(lhs) || callid.ContainsRef(rhs) {
			return cty.NilVal, ev.symbolicErr("operand of a binary operation")
		}
		result, err := e.Op.Impl.Call([]cty.Value{lhs, rhs})
		if err != nil {
			return cty.NilVal, fmt.Errorf("in dependency block of %q: %w", ev.function, err)
		}
		return result, nil

	case *hclsyntax.UnaryOpExpr:
		val, err := ev.walk(e.Val)
		if err != nil {
			return cty.NilVal, err
		}
		if callid.ContainsRef(val) {
			return cty.NilVal, ev.symbolicErr("operand of a unary operation")
		}
		result, err := e.Op.Impl.Call([]cty.Value{val})
		if err != nil {
			return cty.NilVal, fmt.Errorf("in dependency block of %q: %w", ev.function, err)
		}
		return result, nil

	case *hclsyntax.IndexExpr:
		coll, err := ev.walk(e.Collection)
		if err != nil {
			return cty.NilVal, err
		}
		if _, isRef := callid.RefFromValue(coll); isRef {
			return cty.NilVal, ev.symbolicErr("indexing into a call result")
		}
		key, err := ev.walk(e.Key)
		if err != nil {
			return cty.NilVal, err
		}
		if callid.ContainsRef(key) {
			return cty.NilVal, ev.symbolicErr("index key derived from a call result")
		}
		val, diags := hcl.Index(coll, key, &e.SrcRange)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("in dependency block of %q: %s", ev.function, diags.Error())
		}
		return val, nil

	default:
		return ev.walkOpaque(expr)
	}
}

// walkTraversal resolves a variable reference against the environment. A
// bare name returns the bound value as-is, references included; traversing
// further into a reference is a symbolic use.
func (ev *evaluator) walkTraversal(e *hclsyntax.ScopeTraversalExpr) (cty.Value, error) {
	root := e.Traversal.RootName()
	val, bound := ev.env[root]
	if !bound {
		return cty.NilVal, &unresolvedNameError{name: root}
	}
	if len(e.Traversal) == 1 {
		return val, nil
	}
	if _, isRef := callid.RefFromValue(val); isRef {
		return cty.NilVal, ev.symbolicErr(fmt.Sprintf("traversal into call result %q", root))
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{root: val}}
	result, diags := e.Traversal.TraverseAbs(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: %s", ev.function, diags.Error())
	}
	return result, nil
}

func (ev *evaluator) walkFunctionCall(e *hclsyntax.FunctionCallExpr) (cty.Value, error) {
	args := make([]cty.Value, 0, len(e.Args))
	for _, argExpr := range e.Args {
		val, err := ev.walk(argExpr)
		if err != nil {
			return cty.NilVal, err
		}
		args = append(args, val)
	}

	if ev.isGraphCall(e.Name) {
		return ev.resolveCall(e.Name, args)
	}

	fn, ok := coreFunctions[e.Name]
	if !ok {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: call to unknown function %q", ev.function, e.Name)
	}
	for _, arg := range args {
		if callid.ContainsRef(arg) {
			return cty.NilVal, ev.symbolicErr(fmt.Sprintf("call result passed to ordinary function %q", e.Name))
		}
	}
	result, err := fn.Call(args)
	if err != nil {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: %s(): %w", ev.function, e.Name, err)
	}
	return result, nil
}

// walkConditional evaluates the condition concretely and walks only the
// taken branch. Walking both branches would never terminate for recursive
// definitions, whose base cases live in the untaken branch.
func (ev *evaluator) walkConditional(e *hclsyntax.ConditionalExpr) (cty.Value, error) {
	cond, err := ev.walk(e.Condition)
	if err != nil {
		return cty.NilVal, err
	}
	if callid.ContainsRef(cond) {
		return cty.NilVal, ev.symbolicErr("condition derived from a call result")
	}
	condBool, err := convert.Convert(cond, cty.Bool)
	if err != nil {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: condition: %w", ev.function, err)
	}
	if condBool.True() {
		return ev.walk(e.TrueResult)
	}
	return ev.walk(e.FalseResult)
}

func (ev *evaluator) walkObjectCons(e *hclsyntax.ObjectConsExpr) (cty.Value, error) {
	attrs := make(map[string]cty.Value, len(e.Items))
	for _, item := range e.Items {
		keyVal, err := ev.walkObjectKey(item.KeyExpr)
		if err != nil {
			return cty.NilVal, err
		}
		val, err := ev.walk(item.ValueExpr)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[keyVal] = val
	}
	return cty.ObjectVal(attrs), nil
}

// walkObjectKey handles the naked-identifier form of object keys, which
// hclsyntax wraps specially.
func (ev *evaluator) walkObjectKey(expr hclsyntax.Expression) (string, error) {
	if keyExpr, ok := expr.(*hclsyntax.ObjectConsKeyExpr); ok {
		if name := hcl.ExprAsKeyword(keyExpr.Wrapped); name != "" {
			return name, nil
		}
		expr = keyExpr.Wrapped
	}
	val, err := ev.walk(expr)
	if err != nil {
		return "", err
	}
	if callid.ContainsRef(val) {
		return "", ev.symbolicErr("object key derived from a call result")
	}
	strVal, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("in dependency block of %q: object key: %w", ev.function, err)
	}
	return strVal.AsString(), nil
}

// walkFor iterates a concrete collection, evaluating the value expression
// once per element with the iteration variables bound. Elements produced
// by the value expression may be call references, which is what makes
// fan-out over graph calls expressible.
func (ev *evaluator) walkFor(e *hclsyntax.ForExpr) (cty.Value, error) {
	coll, err := ev.walk(e.CollExpr)
	if err != nil {
		return cty.NilVal, err
	}
	if callid.ContainsRef(coll) {
		return cty.NilVal, ev.symbolicErr("iterating over a call result")
	}
	if !coll.CanIterateElements() {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: for expression over non-iterable %s",
			ev.function, coll.Type().FriendlyName())
	}
	if e.Group {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: grouped for expressions are not supported", ev.function)
	}

	child := &evaluator{
		reg:        ev.reg,
		function:   ev.function,
		discovered: ev.discovered,
		order:      ev.order,
	}
	defer func() { ev.order = child.order }()

	var tupleVals []cty.Value
	objectVals := make(map[string]cty.Value)

	for it := coll.ElementIterator(); it.Next(); {
		k, v := it.Element()
		child.env = make(map[string]cty.Value, len(ev.env)+2)
		for name, val := range ev.env {
			child.env[name] = val
		}
		if e.KeyVar != "" {
			child.env[e.KeyVar] = k
		}
		child.env[e.ValVar] = v

		if e.CondExpr != nil {
			cond, err := child.walk(e.CondExpr)
			if err != nil {
				return cty.NilVal, err
			}
			if callid.ContainsRef(cond) {
				return cty.NilVal, ev.symbolicErr("for-expression filter derived from a call result")
			}
			condBool, err := convert.Convert(cond, cty.Bool)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in dependency block of %q: for filter: %w", ev.function, err)
			}
			if condBool.False() {
				continue
			}
		}

		val, err := child.walk(e.ValExpr)
		if err != nil {
			return cty.NilVal, err
		}

		if e.KeyExpr != nil {
			keyVal, err := child.walk(e.KeyExpr)
			if err != nil {
				return cty.NilVal, err
			}
			keyStr, err := convert.Convert(keyVal, cty.String)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in dependency block of %q: for key: %w", ev.function, err)
			}
			objectVals[keyStr.AsString()] = val
		} else {
			tupleVals = append(tupleVals, val)
		}
	}

	if e.KeyExpr != nil {
		return cty.ObjectVal(objectVals), nil
	}
	if len(tupleVals) == 0 {
		return cty.EmptyTupleVal, nil
	}
	return cty.TupleVal(tupleVals), nil
}

// walkOpaque evaluates expression forms with no special symbolic handling
// (templates, splats, relative traversals) directly through HCL, after
// proving nothing symbolic can leak in.
func (ev *evaluator) walkOpaque(expr hclsyntax.Expression) (cty.Value, error) {
	var graphCalls []string
	walkForCalls(expr, func(name string) {
		if ev.isGraphCall(name) {
			graphCalls = append(graphCalls, name)
		}
	})
	if len(graphCalls) > 0 {
		return cty.NilVal, ev.symbolicErr(
			fmt.Sprintf("graph call %q inside an unsupported expression form %T", graphCalls[0], expr))
	}

	vars := make(map[string]cty.Value)
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		val, bound := ev.env[name]
		if !bound {
			return cty.NilVal, &unresolvedNameError{name: name}
		}
		if callid.ContainsRef(val) {
			return cty.NilVal, ev.symbolicErr(fmt.Sprintf("call result %q inside an expression form %T", name, expr))
		}
		vars[name] = val
	}

	evalCtx := &hcl.EvalContext{Variables: vars, Functions: coreFunctions}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("in dependency block of %q: %s", ev.function, diags.Error())
	}
	return val, nil
}

// walkForCalls visits every function call name in an expression tree.
func walkForCalls(expr hclsyntax.Expression, visit func(name string)) {
	hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		if call, ok := node.(*hclsyntax.FunctionCallExpr); ok {
			visit(call.Name)
		}
		return nil
	})
}
