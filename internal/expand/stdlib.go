package expand

import (
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// coreFunctions is the allow-list of ordinary functions available inside
// dependency blocks. They run eagerly during expansion and therefore must
// be pure; all of them come from the cty standard library.
var coreFunctions = map[string]function.Function{
	"abs":       stdlib.AbsoluteFunc,
	"ceil":      stdlib.CeilFunc,
	"chunklist": stdlib.ChunklistFunc,
	"coalesce":  stdlib.CoalesceFunc,
	"concat":    stdlib.ConcatFunc,
	"contains":  stdlib.ContainsFunc,
	"distinct":  stdlib.DistinctFunc,
	"element":   stdlib.ElementFunc,
	"flatten":   stdlib.FlattenFunc,
	"floor":     stdlib.FloorFunc,
	"format":    stdlib.FormatFunc,
	"int":       stdlib.IntFunc,
	"join":      stdlib.JoinFunc,
	"keys":      stdlib.KeysFunc,
	"length":    stdlib.LengthFunc,
	"lookup":    stdlib.LookupFunc,
	"lower":     stdlib.LowerFunc,
	"max":       stdlib.MaxFunc,
	"merge":     stdlib.MergeFunc,
	"min":       stdlib.MinFunc,
	"range":     stdlib.RangeFunc,
	"reverse":   stdlib.ReverseListFunc,
	"slice":     stdlib.SliceFunc,
	"sort":      stdlib.SortFunc,
	"split":     stdlib.SplitFunc,
	"strlen":    stdlib.StrlenFunc,
	"upper":     stdlib.UpperFunc,
	"values":    stdlib.ValuesFunc,
	"zipmap":    stdlib.ZipmapFunc,
}
