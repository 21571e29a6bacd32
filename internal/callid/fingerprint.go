package callid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// NonCanonicalError reports an argument value that cannot participate in a
// call fingerprint. It is a build-time failure: expansion stops before any
// execution happens.
type NonCanonicalError struct {
	Function string
	Reason   string
}

func (e *NonCanonicalError) Error() string {
	return fmt.Sprintf("call to %q has a non-canonicalizable argument: %s", e.Function, e.Reason)
}

// Fingerprint computes the Key for a call of desc with the given positional
// and keyword arguments. The digest is a pure function of the structural
// content of the arguments: keyword arguments are folded in sorted by name,
// and container values are encoded deterministically regardless of how they
// were constructed. Call references encode as the key of the call they
// stand for, so calls whose arguments embed other calls still have a stable
// structural identity.
func Fingerprint(desc Descriptor, args []cty.Value, kwargs map[string]cty.Value) (Key, error) {
	h := sha256.New()
	for _, arg := range args {
		if err := writeValue(h, arg); err != nil {
			return Key{}, &NonCanonicalError{Function: desc.Name, Reason: err.Error()}
		}
	}
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeTag(h, 'k', name)
		if err := writeValue(h, kwargs[name]); err != nil {
			return Key{}, &NonCanonicalError{Function: desc.Name, Reason: err.Error()}
		}
	}
	sum := h.Sum(nil)
	return Key{
		Function:     desc.Name,
		FunctionHash: desc.Hash,
		Digest:       hex.EncodeToString(sum[:16]),
	}, nil
}

// writeTag writes a kind byte plus a length-prefixed string, keeping the
// encoding free of ambiguity between adjacent fields.
func writeTag(h hash.Hash, kind byte, s string) {
	h.Write([]byte{kind})
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}

// writeValue folds one cty value into the hash. It returns an error for
// values with no canonical form: unknown values, and capsules other than
// call references.
func writeValue(h hash.Hash, v cty.Value) error {
	if !v.IsKnown() {
		return fmt.Errorf("value is unknown at build time")
	}
	if v.IsNull() {
		writeTag(h, 'z', v.Type().FriendlyName())
		return nil
	}
	if ref, ok := RefFromValue(v); ok {
		writeTag(h, 'r', ref.Key.String())
		return nil
	}

	ty := v.Type()
	switch {
	case ty == cty.Bool:
		if v.True() {
			writeTag(h, 'b', "true")
		} else {
			writeTag(h, 'b', "false")
		}
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			writeTag(h, 'n', bf.Text('f', 0))
		} else {
			writeTag(h, 'n', bf.Text('g', -1))
		}
	case ty == cty.String:
		writeTag(h, 's', v.AsString())
	case ty.IsListType() || ty.IsTupleType():
		writeTag(h, 'l', "")
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			if err := writeValue(h, ev); err != nil {
				return err
			}
		}
		writeTag(h, 'e', "")
	case ty.IsSetType():
		// Set iteration order is an implementation detail of cty, so the
		// element encodings are sorted before being folded in.
		var elems []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			eh := sha256.New()
			if err := writeValue(eh, ev); err != nil {
				return err
			}
			elems = append(elems, hex.EncodeToString(eh.Sum(nil)))
		}
		sort.Strings(elems)
		writeTag(h, 'S', "")
		for _, e := range elems {
			writeTag(h, 'x', e)
		}
		writeTag(h, 'e', "")
	case ty.IsMapType() || ty.IsObjectType():
		// cty iterates maps and object attributes in sorted key order,
		// which keeps this encoding deterministic.
		writeTag(h, 'm', "")
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			writeTag(h, 'K', kv.AsString())
			if err := writeValue(h, ev); err != nil {
				return err
			}
		}
		writeTag(h, 'e', "")
	case ty.IsCapsuleType():
		return fmt.Errorf("value of type %s cannot be canonicalized", ty.FriendlyName())
	default:
		return fmt.Errorf("unsupported argument type %s", ty.FriendlyName())
	}
	return nil
}
