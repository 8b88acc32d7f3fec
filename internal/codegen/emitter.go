package codegen

import (
	"fmt"
	"io"

	"github.com/you-not-fish/clox/internal/ir"
)

// emitter writes LLVM IR text line by line. The first write error is
// kept and every later write becomes a no-op.
type emitter struct {
	w   io.Writer
	err error
	tmp int // next %tN
}

func (e *emitter) write(indent, format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, indent+format+"\n", args...)
}

// emit writes an unindented line: a definition, declaration or global.
func (e *emitter) emit(format string, args ...interface{}) {
	e.write("", format, args...)
}

// emitInst writes an instruction inside a function body.
func (e *emitter) emitInst(format string, args ...interface{}) {
	e.write("  ", format, args...)
}

func (e *emitter) emitLine() {
	e.write("", "")
}

func (e *emitter) emitComment(format string, args ...interface{}) {
	e.write("; ", format, args...)
}

// emitLabel starts a basic block. A non-empty note is appended as a
// trailing comment.
func (e *emitter) emitLabel(name, note string) {
	if note == "" {
		e.write("", "%s:", name)
		return
	}
	e.write("", "%s: ; %s", name, note)
}

// nextTmp returns a fresh name for an instruction that has no IR value.
func (e *emitter) nextTmp() string {
	e.tmp++
	return fmt.Sprintf("%%t%d", e.tmp-1)
}

func valueName(v *ir.Value) string {
	return fmt.Sprintf("%%v%d", v.ID)
}

// blockName is "entry" for the first block and bN for the rest.
func blockName(b *ir.Block) string {
	if b.ID == 0 {
		return "entry"
	}
	return fmt.Sprintf("b%d", b.ID)
}

func argName(i int64) string {
	return fmt.Sprintf("%%arg%d", i)
}
