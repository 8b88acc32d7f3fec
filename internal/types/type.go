// Package types implements the type model of clox.
//
// Types are values compared with Identical. Basic types are shared
// singletons in Typ; arrays and function signatures are built on demand
// from declarations.
package types

// Type is the interface implemented by all types.
type Type interface {
	// String returns the type as it would be spelled in source.
	String() string

	// aType is a marker method to restrict implementations to this package.
	aType()
}

// typ is a base struct for all type implementations.
type typ struct{}

func (typ) aType() {}
