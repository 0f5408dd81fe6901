package gklee

import (
	"fmt"

	"github.com/benbjohnson/immutable"
)

// AllocStats counts what one session has constructed. It replaces any
// notion of process-global counters: every launch owns its own numbers.
type AllocStats struct {
	Exprs     uint64 // expression construction requests
	Arrays    uint64 // arrays registered
	Updates   uint64 // update-list extensions
	TreeNodes uint64 // divergence-tree nodes inserted
}

// String returns a string representation of the statistics.
func (s AllocStats) String() string {
	return fmt.Sprintf("exprs=%d arrays=%d updates=%d nodes=%d", s.Exprs, s.Arrays, s.Updates, s.TreeNodes)
}

// Session owns everything one kernel-launch exploration constructs: the
// array registry, allocation statistics, and the launch's divergence
// tree. Forked sessions share the registry structurally and the immutable
// expression DAG; the tree is deep-copied.
type Session struct {
	arrays      *immutable.SortedMap // array id to *Array
	nextArrayID uint64

	tree  *ParaTree
	stats AllocStats
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		arrays: immutable.NewSortedMap(&uint64Comparer{}),
		tree:   NewParaTree(),
	}
}

// Tree returns the session's divergence tree.
func (s *Session) Tree() *ParaTree { return s.tree }

// Stats returns the session's allocation statistics.
func (s *Session) Stats() AllocStats { return s.stats }

// NewArray registers a new symbolic array with the session.
func (s *Session) NewArray(name string, size uint) *Array {
	return s.register(NewArray(name, size))
}

// NewConstantArray registers a new constant array with the session.
func (s *Session) NewConstantArray(name string, values []*ConstantExpr) *Array {
	return s.register(NewConstantArray(name, values))
}

func (s *Session) register(a *Array) *Array {
	s.arrays = s.arrays.Set(s.nextArrayID, a)
	s.nextArrayID++
	s.stats.Arrays++
	return a
}

// Array returns the registered array with the given id, or nil.
func (s *Session) Array(id uint64) *Array {
	if v, ok := s.arrays.Get(id); ok {
		return v.(*Array)
	}
	return nil
}

// Arrays returns all registered arrays in registration order.
func (s *Session) Arrays() []*Array {
	a := make([]*Array, 0, s.arrays.Len())
	for itr := s.arrays.Iterator(); !itr.Done(); {
		_, v := itr.Next()
		a = append(a, v.(*Array))
	}
	return a
}

// Constant builds a constant through the session.
func (s *Session) Constant(value uint64, width uint) *ConstantExpr {
	s.stats.Exprs++
	return NewConstantExpr(value, width)
}

// Binary builds a binary expression through the session.
func (s *Session) Binary(op Kind, lhs, rhs Expr) Expr {
	s.stats.Exprs++
	return NewBinaryExpr(op, lhs, rhs)
}

// Select builds a ternary select through the session.
func (s *Session) Select(cond, t, f Expr) Expr {
	s.stats.Exprs++
	return NewSelectExpr(cond, t, f)
}

// Cast builds an extension through the session.
func (s *Session) Cast(src Expr, width uint, signed bool) Expr {
	s.stats.Exprs++
	return NewCastExpr(src, width, signed)
}

// Extract builds an extraction through the session.
func (s *Session) Extract(expr Expr, offset, width uint) Expr {
	s.stats.Exprs++
	return NewExtractExpr(expr, offset, width)
}

// Read builds a one byte read through the session.
func (s *Session) Read(ul UpdateList, index Expr) Expr {
	s.stats.Exprs++
	return NewReadExpr(ul, index)
}

// Extend publishes a new write through the session.
func (s *Session) Extend(ul UpdateList, index, value Expr) UpdateList {
	s.stats.Updates++
	return ul.Extend(index, value)
}

// InsertTreeNode inserts a branch node into the session's divergence
// tree.
func (s *Session) InsertTreeNode(node *ParaTreeNode) {
	s.stats.TreeNodes++
	s.tree.Insert(node)
}

// Fork returns an independent session for exploring an alternative
// schedule: the divergence tree is deep-copied, the array registry and
// statistics carry over, and all expression values stay shared.
func (s *Session) Fork() *Session {
	return &Session{
		arrays:      s.arrays,
		nextArrayID: s.nextArrayID,
		tree:        s.tree.Clone(),
		stats:       s.stats,
	}
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
