package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// builtinKeys are the parameter keys every built-in analyzer accepts.
var builtinKeys = []string{"query", "path", "scope", "focus"}

// RegisterBuiltins registers an analyzer function for every tool in the
// catalog. The built-in analyzers are self-contained: they summarize the
// request against the tool's declared capabilities rather than calling an
// external service, so plans are runnable without extra wiring. Callers
// that integrate real analyzers overwrite individual entries afterwards.
func RegisterBuiltins(r *Registry, cat *catalog.Catalog) {
	for _, name := range cat.Names() {
		tool, err := cat.Lookup(name)
		if err != nil {
			continue
		}
		r.Register(name, builtinKeys, builtinFunc(tool))
	}
}

func builtinFunc(tool *models.ToolDescriptor) Func {
	return func(ctx context.Context, params models.ToolParameters) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s: analyzed", tool.Name)
		if q := params["query"]; q != "" {
			fmt.Fprintf(&b, " %q", q)
		}
		if p := params["path"]; p != "" {
			fmt.Fprintf(&b, " in %s", p)
		}
		fmt.Fprintf(&b, " (capabilities: %s)", strings.Join(tool.Capabilities, ", "))
		return b.String(), nil
	}
}
