// Package codegen emits textual LLVM IR for a lowered clox module. The
// output links against the C library alone: printing goes through printf
// and failed runtime checks end in abort.
package codegen

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/you-not-fish/clox/internal/ir"
	"github.com/you-not-fish/clox/internal/rtabi"
	"github.com/you-not-fish/clox/internal/types"
)

// generator holds the state of one Generate call. Function bodies are
// written to body first, since they discover the string constants that
// must be declared ahead of them.
type generator struct {
	mod  *ir.Module
	e    *emitter
	body bytes.Buffer

	strings   []string
	stringMap map[string]int

	// exit maps each block to the label its terminator is emitted
	// under, which differs from the block's own label once a runtime
	// check splits it.
	exit map[*ir.Block]string

	usesMemset bool
	usesMemcpy bool
}

// Generate writes the LLVM IR for m to w. Functions must be in the form
// produced by ir.Lower, optionally transformed by the passes package.
func Generate(w io.Writer, m *ir.Module) error {
	g := &generator{
		mod:       m,
		stringMap: make(map[string]int),
	}
	g.e = &emitter{w: &g.body}

	for _, f := range m.Funcs {
		if f.Extern {
			continue
		}
		g.e.emitLine()
		g.lowerFunc(f)
	}
	if g.e.err != nil {
		return fmt.Errorf("codegen: %w", g.e.err)
	}

	// Globals may refer to the empty string, so they are rendered before
	// the string table is written out.
	var globals bytes.Buffer
	ge := &emitter{w: &globals}
	for _, gl := range m.Globals {
		ge.emit("@%s = global %s %s, align %d", globalName(gl), memType(gl.Type), g.globalInit(gl.Type),
			types.DefaultSizes.Alignof(gl.Type))
	}

	out := &emitter{w: w}
	out.emitComment("clox module")
	out.emit("target datalayout = \"%s\"", rtabi.DataLayout)
	out.emit("target triple = \"%s\"", rtabi.TargetTriple)
	out.emitLine()
	for i, s := range g.strings {
		out.emit("@.str.%d = private unnamed_addr constant [%d x i8] c\"%s\\00\"", i, len(s)+1, llvmEscapeString(s))
	}
	if len(g.strings) > 0 {
		out.emitLine()
	}
	if globals.Len() > 0 {
		out.emit("%s", strings.TrimSuffix(globals.String(), "\n"))
		out.emitLine()
	}
	g.emitDeclares(out)
	if out.err == nil {
		_, out.err = w.Write(g.body.Bytes())
	}
	if out.err != nil {
		return fmt.Errorf("codegen: %w", out.err)
	}
	return nil
}

// emitDeclares declares the external functions of the module, the C
// library functions and the intrinsics used by the emitted code.
func (g *generator) emitDeclares(e *emitter) {
	declared := make(map[string]bool)
	for _, f := range g.mod.Funcs {
		if !f.Extern {
			continue
		}
		declared[f.Name] = true
		e.emit("declare %s @%s(%s)", llvmReturnType(f.Sig), f.Name, llvmParams(f.Sig, false))
	}
	for _, fn := range rtabi.RuntimeFunctions() {
		if declared[fn.Name] {
			continue
		}
		params := append([]string(nil), fn.ParamTypes...)
		if fn.Variadic {
			params = append(params, "...")
		}
		attrs := ""
		if fn.NoReturn {
			attrs = " noreturn"
		}
		e.emit("declare %s @%s(%s)%s", fn.ReturnType, fn.Name, strings.Join(params, ", "), attrs)
	}
	if g.usesMemset {
		e.emit("declare void @llvm.memset.p0.i64(ptr, i8, i64, i1)")
	}
	if g.usesMemcpy {
		e.emit("declare void @llvm.memcpy.p0.p0.i64(ptr, ptr, i64, i1)")
	}
}

func globalName(gl *ir.Global) string {
	return rtabi.GlobalPrefix + gl.Name
}

// globalInit returns the initializer of a global of type t: zero, except
// that strings point at the empty string.
func (g *generator) globalInit(t types.Type) string {
	switch t := t.(type) {
	case *types.Basic:
		if t.Kind() == types.String {
			return g.stringRef("")
		}
	case *types.Array:
		if t.Elem().Kind() == types.String {
			elems := make([]string, t.Len())
			for i := range elems {
				elems[i] = "ptr " + g.stringRef("")
			}
			return "[" + strings.Join(elems, ", ") + "]"
		}
	}
	return "zeroinitializer"
}

// stringIndex returns the index of a string in the global string table,
// adding it if not present.
func (g *generator) stringIndex(s string) int {
	if idx, ok := g.stringMap[s]; ok {
		return idx
	}
	idx := len(g.strings)
	g.strings = append(g.strings, s)
	g.stringMap[s] = idx
	return idx
}

// stringRef returns the global holding the NUL-terminated bytes of s.
func (g *generator) stringRef(s string) string {
	return fmt.Sprintf("@.str.%d", g.stringIndex(s))
}

// llvmEscapeString returns an LLVM IR escaped string literal.
// Non-printable characters, quotes and backslash are escaped as \HH.
func llvmEscapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' || c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}
