// Package rtabi defines the ABI constants shared between the compiler and
// the C runtime that compiled clox programs link against.
package rtabi

// Target configuration
const (
	// TargetTriple is the LLVM target triple for code generation.
	TargetTriple = "x86_64-unknown-linux-gnu"

	// DataLayout is the LLVM data layout string matching the target.
	DataLayout = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128"
)

// Basic type sizes in bytes
const (
	SizeInt    = 4 // int32_t
	SizeDouble = 8 // double
	SizeChar   = 1 // char
	SizeBool   = 1 // int8_t (stored), i1 (in registers)
	SizePtr    = 8 // pointer
)

// Basic type alignments in bytes
const (
	AlignInt    = 4
	AlignDouble = 8
	AlignChar   = 1
	AlignBool   = 1
	AlignPtr    = 8
)

// LLVM type names for code generation
const (
	LLVMTypeInt    = "i32"
	LLVMTypeDouble = "double"
	LLVMTypeChar   = "i8"
	LLVMTypeBool   = "i8" // in memory
	LLVMTypeBoolI1 = "i1" // in registers
	LLVMTypePtr    = "ptr"
	LLVMTypeVoid   = "void"
)
