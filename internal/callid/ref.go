package callid

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Ref is a symbolic reference to another call's result. During graph
// expansion, a call to a graph function inside a dependency block does not
// execute; it evaluates to a Ref wrapped in a cty capsule value. Refs may
// be placed in containers or passed as arguments to further graph calls,
// but any attempt to compute on one is a build error, because the value it
// stands for does not exist until execution.
type Ref struct {
	Key Key
}

// RefType is the cty capsule type carrying *Ref values through cty
// containers and expressions.
var RefType = cty.Capsule("call reference", reflect.TypeOf(Ref{}))

// RefVal wraps a call key as a cty capsule value.
func RefVal(key Key) cty.Value {
	return cty.CapsuleVal(RefType, &Ref{Key: key})
}

// RefFromValue extracts the Ref from a capsule value, reporting false for
// any value that is not a call reference.
func RefFromValue(v cty.Value) (*Ref, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(RefType) {
		return nil, false
	}
	ref, ok := v.EncapsulatedValue().(*Ref)
	return ref, ok
}

// ContainsRef reports whether the value, or any value nested inside it,
// is a call reference.
func ContainsRef(v cty.Value) bool {
	found := false
	cty.Walk(v, func(path cty.Path, val cty.Value) (bool, error) {
		if _, ok := RefFromValue(val); ok {
			found = true
			return false, nil
		}
		return !found, nil
	})
	return found
}

// CollectRefs returns the keys of every call reference nested anywhere in
// the given values, in encounter order and without duplicates.
func CollectRefs(values ...cty.Value) []Key {
	var keys []Key
	seen := make(map[Key]struct{})
	for _, v := range values {
		cty.Walk(v, func(path cty.Path, val cty.Value) (bool, error) {
			if ref, ok := RefFromValue(val); ok {
				if _, dup := seen[ref.Key]; !dup {
					seen[ref.Key] = struct{}{}
					keys = append(keys, ref.Key)
				}
			}
			return true, nil
		})
	}
	return keys
}
