// Package passes holds the transformations run on lowered IR before
// code generation.
package passes

import (
	"fmt"
	"io"
	"os"

	"github.com/you-not-fish/clox/internal/ir"
)

// Pass describes a single IR pass.
type Pass struct {
	Name string
	Fn   func(f *ir.Func)
}

// Config controls pass execution behavior.
type Config struct {
	DumpBefore string    // dump IR before this pass ("*" for all)
	DumpAfter  string    // dump IR after this pass ("*" for all)
	Verify     bool      // verify IR before/after each pass
	DumpFunc   string    // restrict dumps to this function name
	Out        io.Writer // where dumps go; os.Stderr if nil
}

// Default is the pipeline run by the compiler.
var Default = []Pass{
	{Name: "deadblocks", Fn: DeadBlocks},
	{Name: "mem2reg", Fn: Mem2Reg},
	{Name: "deadcode", Fn: DeadCode},
}

// Lookup returns the pass of Default called name.
func Lookup(name string) (Pass, bool) {
	for _, p := range Default {
		if p.Name == name {
			return p, true
		}
	}
	return Pass{}, false
}

// Run executes the given passes on f in order.
func Run(f *ir.Func, passes []Pass, cfg Config) error {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	for _, p := range passes {
		if shouldDump(cfg.DumpBefore, p.Name) && matchFunc(cfg.DumpFunc, f.Name) {
			fmt.Fprintf(out, "--- before %s (%s) ---\n", p.Name, f.Name)
			ir.Fprint(out, f)
			fmt.Fprintln(out)
		}

		if cfg.Verify {
			if err := ir.Verify(f); err != nil {
				return fmt.Errorf("verify before %s: %w", p.Name, err)
			}
		}

		p.Fn(f)

		if cfg.Verify {
			if err := ir.VerifyDom(f); err != nil {
				return fmt.Errorf("verify after %s: %w", p.Name, err)
			}
		}

		if shouldDump(cfg.DumpAfter, p.Name) && matchFunc(cfg.DumpFunc, f.Name) {
			fmt.Fprintf(out, "--- after %s (%s) ---\n", p.Name, f.Name)
			ir.Fprint(out, f)
			fmt.Fprintln(out)
		}
	}
	return nil
}

// RunModule runs passes on every function of m that has a body.
func RunModule(m *ir.Module, passes []Pass, cfg Config) error {
	for _, f := range m.Funcs {
		if f.Extern {
			continue
		}
		if err := Run(f, passes, cfg); err != nil {
			return fmt.Errorf("func %s: %w", f.Name, err)
		}
	}
	return nil
}

func shouldDump(pattern, name string) bool {
	return pattern == "*" || pattern == name
}

func matchFunc(filter, name string) bool {
	return filter == "" || filter == name
}
