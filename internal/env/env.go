// Package env implements the lexical scopes of clox as an arena of frames.
//
// Frames are addressed by ScopeID and link to their parent by ID, so a
// scope chain is a walk over a slice rather than a graph of pointers. A
// frame lives from Wrap to Release; released IDs are reused.
//
// The arena is generic in the storage a binding carries (a runtime value
// for the evaluator, a stack slot for the lowering) and in the payload of
// the control-flow slots owned by function and loop frames.
package env

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/types"
)

// ScopeID identifies a frame in an Arena.
type ScopeID int

// NoScope is the parent of the global frame.
const NoScope ScopeID = -1

// Global is the ID of the frame created by NewArena.
const Global ScopeID = 0

// FrameKind tells what construct created a frame.
type FrameKind uint8

const (
	GlobalFrame   FrameKind = iota
	BlockFrame              // block statement
	FunctionFrame           // function call; owns the return slot
	LoopFrame               // loop body; owns the break/continue slot
)

var frameKindNames = [...]string{
	GlobalFrame:   "global",
	BlockFrame:    "block",
	FunctionFrame: "function",
	LoopFrame:     "loop",
}

func (k FrameKind) String() string {
	if int(k) < len(frameKindNames) {
		return frameKindNames[k]
	}
	return fmt.Sprintf("FrameKind(%d)", k)
}

// Binding is a name bound in a frame.
type Binding[S any] struct {
	Name    string
	Type    types.Type
	Storage S

	// Inferred marks a var declaration, typed by its initializer. Such a
	// binding accepts only values of exactly its type.
	Inferred bool
}

type frame[S, X any] struct {
	parent   ScopeID
	kind     FrameKind
	bindings *linkedhashmap.Map // name -> *Binding[S], in declaration order
	slot     X                  // meaningful for function and loop frames
	live     bool
}

// Arena owns every frame of one evaluation or lowering run.
type Arena[S, X any] struct {
	frames        []frame[S, X]
	free          []ScopeID
	allowRedefine bool
}

// NewArena returns an arena holding only the global frame. When
// allowRedefine is set, Define overwrites an existing binding in the
// same frame instead of failing.
func NewArena[S, X any](allowRedefine bool) *Arena[S, X] {
	a := &Arena[S, X]{allowRedefine: allowRedefine}
	a.alloc(NoScope, GlobalFrame)
	return a
}

func (a *Arena[S, X]) alloc(parent ScopeID, kind FrameKind) ScopeID {
	f := frame[S, X]{
		parent:   parent,
		kind:     kind,
		bindings: linkedhashmap.New(),
		live:     true,
	}
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.frames[id] = f
		return id
	}
	a.frames = append(a.frames, f)
	return ScopeID(len(a.frames) - 1)
}

func (a *Arena[S, X]) frame(id ScopeID) *frame[S, X] {
	if id < 0 || int(id) >= len(a.frames) || !a.frames[id].live {
		panic(fmt.Sprintf("env: use of dead scope %d", id))
	}
	return &a.frames[id]
}

// Wrap returns a new block frame whose parent is id. Slot lookups from
// the new frame reach the same slots as lookups from id.
func (a *Arena[S, X]) Wrap(id ScopeID) ScopeID {
	a.frame(id)
	return a.alloc(id, BlockFrame)
}

// WrapWithSignal returns a new frame of the given kind, which must be
// FunctionFrame or LoopFrame, owning a fresh slot holding x.
func (a *Arena[S, X]) WrapWithSignal(id ScopeID, kind FrameKind, x X) ScopeID {
	if kind != FunctionFrame && kind != LoopFrame {
		panic("env: WrapWithSignal with " + kind.String() + " frame")
	}
	a.frame(id)
	child := a.alloc(id, kind)
	a.frames[child].slot = x
	return child
}

// Release frees id for reuse. The global frame is never released.
func (a *Arena[S, X]) Release(id ScopeID) {
	if id == Global {
		return
	}
	f := a.frame(id)
	f.live = false
	f.bindings.Clear()
	var zero X
	f.slot = zero
	a.free = append(a.free, id)
}

// Parent returns the parent of id, or NoScope for the global frame.
func (a *Arena[S, X]) Parent(id ScopeID) ScopeID {
	return a.frame(id).parent
}

// Kind returns the kind of frame id.
func (a *Arena[S, X]) Kind(id ScopeID) FrameKind {
	return a.frame(id).kind
}

// Live reports the number of frames currently in use.
func (a *Arena[S, X]) Live() int {
	return len(a.frames) - len(a.free)
}

// Define binds name in frame id. It fails with a redefinition error if
// name is already bound in that same frame and redefinition is not
// allowed; bindings in enclosing frames are shadowed, never touched.
func (a *Arena[S, X]) Define(id ScopeID, name string, typ types.Type, storage S) error {
	f := a.frame(id)
	if _, found := f.bindings.Get(name); found && !a.allowRedefine {
		return diag.Errorf(diag.Redefinition, 0, "%s redeclared in this scope", name)
	}
	f.bindings.Put(name, &Binding[S]{Name: name, Type: typ, Storage: storage})
	return nil
}

// DefineInferred is Define for a binding that took the type of its
// initial value.
func (a *Arena[S, X]) DefineInferred(id ScopeID, name string, typ types.Type, storage S) error {
	if err := a.Define(id, name, typ, storage); err != nil {
		return err
	}
	a.Lookup(id, name).Inferred = true
	return nil
}

// Lookup returns the binding for name in frame id only, or nil.
func (a *Arena[S, X]) Lookup(id ScopeID, name string) *Binding[S] {
	if b, found := a.frame(id).bindings.Get(name); found {
		return b.(*Binding[S])
	}
	return nil
}

// LookupParent searches id and then its ancestors for name. It returns
// the binding and the frame it was found in, or (nil, NoScope).
func (a *Arena[S, X]) LookupParent(id ScopeID, name string) (*Binding[S], ScopeID) {
	for s := id; s != NoScope; s = a.frames[s].parent {
		if b, found := a.frame(s).bindings.Get(name); found {
			return b.(*Binding[S]), s
		}
	}
	return nil, NoScope
}

// Get resolves name from frame id outward. It fails with an undefined
// name error when no enclosing frame binds it.
func (a *Arena[S, X]) Get(id ScopeID, name string) (*Binding[S], error) {
	b, _ := a.LookupParent(id, name)
	if b == nil {
		return nil, diag.Errorf(diag.UndefinedName, 0, "undefined: %s", name)
	}
	return b, nil
}

// Set stores into the innermost binding of name visible from id. The
// binding keeps its type: typ must be identical to it, or Set fails with
// a bind error.
func (a *Arena[S, X]) Set(id ScopeID, name string, typ types.Type, storage S) error {
	b, err := a.Get(id, name)
	if err != nil {
		return err
	}
	if b.Type != nil && !types.Identical(b.Type, typ) {
		return diag.Errorf(diag.Bind, 0, "cannot assign %s to %s of type %s", typ, name, b.Type)
	}
	b.Storage = storage
	return nil
}

// Slot returns the payload of the nearest frame of the given kind
// enclosing id. A loop slot is never found across a function frame, so
// break and continue cannot escape a call. It fails with a control flow
// misuse error when no such frame exists.
func (a *Arena[S, X]) Slot(id ScopeID, kind FrameKind) (X, error) {
	for s := id; s != NoScope; s = a.frames[s].parent {
		f := a.frame(s)
		if f.kind == kind {
			return f.slot, nil
		}
		if f.kind == FunctionFrame {
			break
		}
	}
	var zero X
	if kind == FunctionFrame {
		return zero, diag.Errorf(diag.ControlFlowMisuse, 0, "return outside function")
	}
	return zero, diag.Errorf(diag.ControlFlowMisuse, 0, "not inside a loop")
}

// InFunction reports whether id is nested inside a function frame.
func (a *Arena[S, X]) InFunction(id ScopeID) bool {
	for s := id; s != NoScope; s = a.frames[s].parent {
		if a.frame(s).kind == FunctionFrame {
			return true
		}
	}
	return false
}

// Names returns the names bound in frame id, in declaration order.
func (a *Arena[S, X]) Names(id ScopeID) []string {
	keys := a.frame(id).bindings.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.(string)
	}
	return names
}

// String returns the chain of frames from id outward, for debugging.
func (a *Arena[S, X]) String(id ScopeID) string {
	var buf strings.Builder
	for s := id; s != NoScope; s = a.frames[s].parent {
		f := a.frame(s)
		fmt.Fprintf(&buf, "%s scope %d {", f.kind, s)
		for i, name := range a.Names(s) {
			if i > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(" " + name)
		}
		buf.WriteString(" }\n")
	}
	return buf.String()
}
