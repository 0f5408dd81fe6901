package gklee

import (
	"fmt"

	"github.com/cespare/xxhash"
)

// Array represents a named, byte-addressed memory object. Contents are
// either fully symbolic or fixed constant bytes; the array itself never
// changes after construction. Writes live in UpdateLists layered on top.
type Array struct {
	Name string
	Size uint

	// ConstantValues holds the initial bytes for a constant array, or is
	// empty for a symbolic array.
	ConstantValues []*ConstantExpr

	hashValue uint32
}

// NewArray returns a new symbolic Array of the given size.
func NewArray(name string, size uint) *Array {
	a := &Array{Name: name, Size: size}
	a.hashValue = a.computeHash()
	return a
}

// NewConstantArray returns a new Array initialized with constant bytes.
func NewConstantArray(name string, values []*ConstantExpr) *Array {
	for _, v := range values {
		assert(v.Width == WidthRange, "constant array value width: %d != %d", v.Width, WidthRange)
	}
	a := &Array{Name: name, Size: uint(len(values)), ConstantValues: values}
	a.hashValue = a.computeHash()
	return a
}

// IsSymbolic returns true if the array has no constant initial contents.
func (a *Array) IsSymbolic() bool { return len(a.ConstantValues) == 0 }

// IsConstant returns true if the array has constant initial contents.
func (a *Array) IsConstant() bool { return !a.IsSymbolic() }

// Domain returns the width of the array's index values.
func (a *Array) Domain() uint { return WidthDomain }

// Range returns the width of the array's element values.
func (a *Array) Range() uint { return WidthRange }

// Hash returns the structural hash of the array identity.
func (a *Array) Hash() uint32 { return a.hashValue }

func (a *Array) computeHash() uint32 {
	h := uint32(xxhash.Sum64String(a.Name))*magicHashConstant + uint32(a.Size)
	for _, v := range a.ConstantValues {
		h = h*magicHashConstant + HashExpr(v)
	}
	return nonzeroHash(h)
}

// String returns a string representation of the array.
func (a *Array) String() string {
	if a.IsConstant() {
		return fmt.Sprintf("(array %s %d const)", a.Name, a.Size)
	}
	return fmt.Sprintf("(array %s %d)", a.Name, a.Size)
}

// UpdateNode represents one symbolic byte write into an array. Nodes are
// immutable and form a singly-linked, share-safe persistent chain: many
// UpdateLists may hang off the same suffix.
type UpdateNode struct {
	Index Expr // byte index of the write
	Value Expr // byte value written

	Next *UpdateNode // previous write, or nil

	size      uint
	hashValue uint32
}

func newUpdateNode(next *UpdateNode, index, value Expr) *UpdateNode {
	un := &UpdateNode{
		Index: NewCastExpr(index, WidthDomain, false),
		Value: NewCastExpr(value, WidthRange, false),
		Next:  next,
	}
	un.size = 1
	if next != nil {
		un.size = next.size + 1
	}
	h := HashExpr(un.Index)*magicHashConstant + HashExpr(un.Value)
	if next != nil {
		h = h*magicHashConstant + next.hashValue
	}
	un.hashValue = nonzeroHash(h)
	return un
}

// Size returns the length of the chain ending at this node.
func (un *UpdateNode) Size() uint { return un.size }

// Hash returns the structural hash of the chain ending at this node.
func (un *UpdateNode) Hash() uint32 { return un.hashValue }

// UpdateList pairs a root array with a write history: the array as of
// this sequence of writes. A nil head means no writes since the array's
// initial contents.
type UpdateList struct {
	Root *Array
	Head *UpdateNode
}

// NewUpdateList returns an UpdateList over root with no writes.
func NewUpdateList(root *Array) UpdateList {
	assert(root != nil, "update list requires a root array")
	return UpdateList{Root: root}
}

// Size returns the number of writes in the history.
func (ul UpdateList) Size() uint {
	if ul.Head == nil {
		return 0
	}
	return ul.Head.Size()
}

// Extend publishes a new UpdateList whose most recent write is
// (index, value). The receiver remains valid and unchanged: histories
// that share a prefix stay shared.
func (ul UpdateList) Extend(index, value Expr) UpdateList {
	// Verify constant indexes are not out of bounds.
	if index, ok := index.(*ConstantExpr); ok {
		assert(index.Value < uint64(ul.Root.Size), "extend: index out of bounds: %d >= %d", index.Value, ul.Root.Size)
	}
	return UpdateList{
		Root: ul.Root,
		Head: newUpdateNode(ul.Head, index, value),
	}
}

// Hash returns the structural hash of the update list.
func (ul UpdateList) Hash() uint32 {
	h := ul.Root.Hash()
	if ul.Head != nil {
		h = h*magicHashConstant + ul.Head.Hash()
	}
	return nonzeroHash(h)
}

// Compare returns an integer comparing ul to other.
func (ul UpdateList) Compare(other UpdateList) int {
	return CompareUpdateList(ul, other)
}

// String returns a string representation of the update list.
func (ul UpdateList) String() string {
	return fmt.Sprintf("%s+%d", ul.Root, ul.Size())
}

// ReadExpr represents a one byte read from an array as of a write
// history.
type ReadExpr struct {
	Updates UpdateList
	Index   Expr

	hashValue uint32
}

// NewReadExpr returns a canonicalized single-byte read.
//
// A constant index resolves through the write history: each constant
// write either hits (the read folds to the written value) or is skipped;
// a symbolic write index blocks further resolution. A read that falls
// through the whole history of a constant array folds to the initial
// byte.
func NewReadExpr(ul UpdateList, index Expr) Expr {
	index = NewCastExpr(index, WidthDomain, false)

	if idx, ok := index.(*ConstantExpr); ok {
		un := ul.Head
		for ; un != nil; un = un.Next {
			ui, ok := un.Index.(*ConstantExpr)
			if !ok {
				break // symbolic write index, unresolvable
			}
			if ui.Value == idx.Value {
				return un.Value
			}
		}
		if un == nil && ul.Root.IsConstant() {
			assert(idx.Value < uint64(ul.Root.Size), "read: index out of bounds: %d >= %d", idx.Value, ul.Root.Size)
			return ul.Root.ConstantValues[idx.Value]
		}
	}

	e := &ReadExpr{Updates: ul, Index: index}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *ReadExpr) String() string {
	return fmt.Sprintf("(read %s %s)", e.Updates, e.Index)
}

// Select reads a value of the given bit width starting at a byte offset.
// Multi-byte reads are composed byte-by-byte into a concat chain.
func (ul UpdateList) Select(offset Expr, width uint, isLittleEndian bool) Expr {
	assert(width > 0, "select: invalid width")

	offset = NewCastExpr(offset, WidthDomain, false)

	if width == WidthBool {
		return NewExtractExpr(NewReadExpr(ul, offset), 0, WidthBool)
	}

	// Handle read byte-by-byte.
	var result Expr
	for i, n := uint64(0), uint64(minBytes(width)); i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = n - i - 1
		}

		value := NewReadExpr(ul, NewBinaryExpr(KindAdd, offset, NewConstantExpr(byteOffset, WidthDomain)))
		if i == 0 {
			result = value
		} else {
			result = NewConcatExpr(value, result)
		}
	}
	return result
}

// Store writes a value at a byte offset, returning the extended history.
// Bool is the only non-byte-sized write allowed.
func (ul UpdateList) Store(offset, value Expr, isLittleEndian bool) UpdateList {
	offset = NewCastExpr(offset, WidthDomain, false)

	width := ExprWidth(value)
	assert(width > 0, "store: invalid width")
	if width == WidthBool {
		return ul.Extend(offset, NewCastExpr(value, WidthRange, false))
	}

	other := ul
	for i, n := uint64(0), uint64(minBytes(width)); i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = n - i - 1
		}

		other = other.Extend(
			NewBinaryExpr(KindAdd, offset, NewConstantExpr(byteOffset, WidthDomain)),
			NewExtractExpr(value, uint(i*8), Width8),
		)
	}
	return other
}
