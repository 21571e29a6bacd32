package hclspec

import (
	"github.com/hashicorp/hcl/v2"
)

// hclDepends represents the content of the 'depends' block within a
// function definition. Its attributes are dependency declarations and are
// extracted from the raw body, not decoded, because their expressions stay
// unevaluated until graph construction.
type hclDepends struct {
	Body hcl.Body `hcl:",remain"`
}

// hclFunction represents a `function` block from a user's workflow file.
type hclFunction struct {
	Name     string      `hcl:"name,label"`
	Params   []string    `hcl:"params,optional"`
	Channels []string    `hcl:"channels,optional"`
	Depends  *hclDepends `hcl:"depends,block"`
}

// hclInterface represents an `interface` block: a named entry point that
// resolves to another function's output channel.
type hclInterface struct {
	Name    string `hcl:"name,label"`
	Channel string `hcl:"channel"`
}

// hclWorkflowFile represents the top-level structure of a workflow file.
type hclWorkflowFile struct {
	Functions  []*hclFunction  `hcl:"function,block"`
	Interfaces []*hclInterface `hcl:"interface,block"`
}
