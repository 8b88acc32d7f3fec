package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/you-not-fish/clox/internal/types"
)

// Fprint writes the IR of a function to w.
//
// Format:
//
//	func add(x int, y int) int:
//	  b0: (entry)
//	    v0 = Arg <int> {x}
//	    v1 = Arg <int> [1] {y}
//	    v2 = AddInt <int> v0 v1
//	    Return v2
func Fprint(w io.Writer, f *Func) {
	if f.Extern {
		fmt.Fprintf(w, "extern func %s%s\n", f.Name, signature(f))
		return
	}
	fmt.Fprintf(w, "func %s%s:\n", f.Name, signature(f))
	for _, b := range f.Blocks {
		fprintBlock(w, b, f)
	}
}

// FprintModule writes the globals and functions of m to w.
func FprintModule(w io.Writer, m *Module) {
	for _, g := range m.Globals {
		fmt.Fprintf(w, "global %s %s\n", g.Name, g.Type)
	}
	if len(m.Globals) > 0 {
		fmt.Fprintln(w)
	}
	for i, f := range m.Funcs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		Fprint(w, f)
	}
}

func signature(f *Func) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range f.Sig.Params() {
		if i > 0 {
			sb.WriteString(", ")
		}
		if i < len(f.Params) {
			sb.WriteString(f.Params[i])
			sb.WriteByte(' ')
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	if r := f.Result(); r.Kind() != types.Void {
		sb.WriteByte(' ')
		sb.WriteString(r.String())
	}
	return sb.String()
}

func fprintBlock(w io.Writer, b *Block, f *Func) {
	label := ""
	if b == f.Entry {
		label = " (entry)"
	} else if b.Comment != "" {
		label = " (" + b.Comment + ")"
	}

	preds := ""
	if len(b.Preds) > 0 {
		names := make([]string, len(b.Preds))
		for i, p := range b.Preds {
			names[i] = p.String()
		}
		preds = " <- " + strings.Join(names, " ")
	}

	fmt.Fprintf(w, "  %s:%s%s\n", b, label, preds)
	for _, v := range b.Values {
		fmt.Fprintf(w, "    %s\n", formatValue(v))
	}
	fmt.Fprintf(w, "    %s\n", formatTerminator(b))
}

func formatValue(v *Value) string {
	var sb strings.Builder
	if v.Op.IsVoid() || (v.Op == OpCall && v.Type == nil) {
		sb.WriteString(v.Op.String())
	} else {
		fmt.Fprintf(&sb, "v%d = %s", v.ID, v.Op)
	}

	if v.Type != nil {
		fmt.Fprintf(&sb, " <%s>", v.Type)
	}

	switch v.Op {
	case OpConstInt, OpConstBool, OpZero, OpMove:
		fmt.Fprintf(&sb, " [%d]", v.AuxInt)
	case OpConstDouble:
		fmt.Fprintf(&sb, " [%s]", strconv.FormatFloat(v.AuxFloat, 'g', -1, 64))
	default:
		if v.AuxInt != 0 {
			fmt.Fprintf(&sb, " [%d]", v.AuxInt)
		}
	}

	if v.Aux != nil {
		aux := formatAux(v.Aux)
		if v.Op == OpConstString || v.Op == OpAssert {
			aux = strconv.Quote(aux)
		}
		fmt.Fprintf(&sb, " {%s}", aux)
	}

	for _, arg := range v.Args {
		if arg == nil {
			sb.WriteString(" <nil>")
			continue
		}
		fmt.Fprintf(&sb, " v%d", arg.ID)
	}
	return sb.String()
}

func formatTerminator(b *Block) string {
	switch b.Kind {
	case BlockPlain:
		if len(b.Succs) > 0 {
			return fmt.Sprintf("Plain -> %s", b.Succs[0])
		}
		return "Plain"
	case BlockIf:
		if len(b.Controls) > 0 && b.Controls[0] != nil && len(b.Succs) >= 2 {
			return fmt.Sprintf("If v%d -> %s %s", b.Controls[0].ID, b.Succs[0], b.Succs[1])
		}
		return "If (malformed)"
	case BlockReturn:
		if len(b.Controls) > 0 && b.Controls[0] != nil {
			return fmt.Sprintf("Return v%d", b.Controls[0].ID)
		}
		return "Return"
	}
	return "???"
}

func formatAux(aux interface{}) string {
	switch a := aux.(type) {
	case *Func:
		return a.Name
	case *Global:
		return a.Name
	case string:
		return a
	}
	return fmt.Sprintf("%v", aux)
}

// Sprint returns the IR of a function as a string.
func Sprint(f *Func) string {
	var sb strings.Builder
	Fprint(&sb, f)
	return sb.String()
}

// SprintModule returns the IR of a module as a string.
func SprintModule(m *Module) string {
	var sb strings.Builder
	FprintModule(&sb, m)
	return sb.String()
}
