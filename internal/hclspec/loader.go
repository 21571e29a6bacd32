// Package hclspec loads workflow definitions from .hcl files into a
// registry. A workflow file declares graph functions and interfaces:
//
//	function "fibonacci_number" {
//	  params = ["n"]
//	  depends {
//	    f_a = fibonacci_number(n - 1)
//	    f_b = fibonacci_number(n - 2)
//	  }
//	}
//
//	interface "latest_report" {
//	  channel = "report"
//	}
//
// Dependency declarations are kept as raw expression source. They are
// never evaluated here; the expander interprets them symbolically during
// graph construction, and the raw source feeds each function's content
// hash. Handlers are bound separately by the host program.
package hclspec

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/depspec"
	"github.com/vk/loomgo/internal/fsutil"
	"github.com/vk/loomgo/internal/registry"
)

// requiresAttr names the one attribute of a depends block whose tuple
// elements are free dependency expressions rather than named assignments.
const requiresAttr = "requires"

// LoadPath finds all .hcl workflow files under path and registers every
// function and interface they declare. Handlers still have to be bound
// before the registry validates.
func LoadPath(ctx context.Context, reg *registry.Registry, path string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading workflow definitions.", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return fmt.Errorf("failed to find workflow files in %s: %w", path, err)
	}
	if len(files) == 0 {
		logger.Warn("No .hcl workflow files found in path.", "path", path)
		return nil
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		if err := loadFile(ctx, reg, parser, file); err != nil {
			return err
		}
	}
	return nil
}

// loadFile parses a single workflow file and registers its contents.
func loadFile(ctx context.Context, reg *registry.Registry, parser *hclparse.Parser, filePath string) error {
	logger := ctxlog.FromContext(ctx)

	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse workflow file %s: %w", filePath, diags)
	}

	var parsed hclWorkflowFile
	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode workflow file %s: %w", filePath, diags)
	}

	for _, fn := range parsed.Functions {
		spec, err := functionSpec(fn, hclFile.Bytes, filePath)
		if err != nil {
			return err
		}
		err = reg.RegisterFunction(&registry.Function{
			Name:     fn.Name,
			Params:   fn.Params,
			Spec:     spec,
			Channels: fn.Channels,
		})
		if err != nil {
			return fmt.Errorf("in %s: %w", filePath, err)
		}
		logger.Debug("Loaded function definition.", "name", fn.Name, "file", filePath)
	}

	for _, iface := range parsed.Interfaces {
		err := reg.RegisterInterface(&registry.Interface{
			Name:    iface.Name,
			Channel: iface.Channel,
		})
		if err != nil {
			return fmt.Errorf("in %s: %w", filePath, err)
		}
		logger.Debug("Loaded interface definition.", "name", iface.Name, "file", filePath)
	}

	return nil
}

// functionSpec extracts one function's dependency specification from its
// depends block. Each attribute becomes a named declaration; the tuple
// elements of a `requires` attribute become free expressions. Sources are
// sliced out of the file bytes so the registered spec hashes exactly what
// the user wrote.
func functionSpec(fn *hclFunction, fileBytes []byte, filePath string) (*depspec.Spec, error) {
	decls := map[string]string{}
	var free []string

	if fn.Depends != nil {
		body, ok := fn.Depends.Body.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("in %s: depends block of %q is not native HCL syntax", filePath, fn.Name)
		}
		if len(body.Blocks) > 0 {
			return nil, fmt.Errorf("in %s: depends block of %q must not contain nested blocks", filePath, fn.Name)
		}
		for name, attr := range body.Attributes {
			if name == requiresAttr {
				tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
				if !ok {
					return nil, fmt.Errorf("in %s: %s of %q must be a list of expressions", filePath, requiresAttr, fn.Name)
				}
				for _, elem := range tuple.Exprs {
					free = append(free, exprSource(elem, fileBytes))
				}
				continue
			}
			decls[name] = exprSource(attr.Expr, fileBytes)
		}
	}

	spec, err := depspec.New(fn.Name, fn.Params, decls, free)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", filePath, err)
	}
	return spec, nil
}

// exprSource returns the raw text of an expression as written in the file.
func exprSource(expr hclsyntax.Expression, fileBytes []byte) string {
	rng := expr.Range()
	return string(fileBytes[rng.Start.Byte:rng.End.Byte])
}
