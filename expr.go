package gklee

import (
	"fmt"
	"sort"
)

// Expr represents a node of a symbolic bit-vector expression.
//
// Expressions are immutable once published and freely shared across the
// DAG and across divergence-tree nodes. The constructors enforce the
// canonical form:
//
//  1. No expression has all-constant children; those fold to a constant.
//  2. Boolean expressions only appear under Not, And, Or, Xor, Eq, ZExt,
//     SExt, Select and NotOptimized. Ne, Ugt, Uge, Sgt and Sge are never
//     constructed; they are rewritten to the complementary operator with
//     operands swapped, or to a negation.
//  3. A constant operand of a commutative operator is the left operand.
//     Subtraction by a constant c is written as add(-c, x).
//  4. Chains of associative operators are unbalanced to the right.
type Expr interface {
	expr()
	String() string
}

func (*BinaryExpr) expr()       {}
func (*CastExpr) expr()         {}
func (*ConcatExpr) expr()       {}
func (*ConstantExpr) expr()     {}
func (*ExtractExpr) expr()      {}
func (*NotExpr) expr()          {}
func (*NotOptimizedExpr) expr() {}
func (*ReadExpr) expr()         {}
func (*SelectExpr) expr()       {}

// Kind identifies the operator of an expression node.
type Kind int

const (
	KindConstant Kind = iota
	KindNotOptimized
	KindRead
	KindSelect
	KindConcat
	KindExtract

	// Casts
	KindZExt
	KindSExt

	KindNot

	// Arithmetic & bitwise binary operators
	KindAdd
	KindSub
	KindMul
	KindUDiv
	KindSDiv
	KindURem
	KindSRem
	KindAnd
	KindOr
	KindXor
	KindShl
	KindLShr
	KindAShr

	// Comparison operators. Ne, Ugt, Uge, Sgt & Sge are rewritten by the
	// constructors and never appear in canonical form.
	KindEq
	KindNe
	KindUlt
	KindUle
	KindUgt
	KindUge
	KindSlt
	KindSle
	KindSgt
	KindSge
)

const (
	castKindFirst   = KindZExt
	castKindLast    = KindSExt
	binaryKindFirst = KindAdd
	binaryKindLast  = KindSge
	cmpKindFirst    = KindEq
	cmpKindLast     = KindSge
)

var kindStrings = [...]string{
	KindConstant:     "const",
	KindNotOptimized: "no-opt",
	KindRead:         "read",
	KindSelect:       "select",
	KindConcat:       "concat",
	KindExtract:      "extract",
	KindZExt:         "zext",
	KindSExt:         "sext",
	KindNot:          "not",
	KindAdd:          "add",
	KindSub:          "sub",
	KindMul:          "mul",
	KindUDiv:         "udiv",
	KindSDiv:         "sdiv",
	KindURem:         "urem",
	KindSRem:         "srem",
	KindAnd:          "and",
	KindOr:           "or",
	KindXor:          "xor",
	KindShl:          "shl",
	KindLShr:         "lshr",
	KindAShr:         "ashr",
	KindEq:           "eq",
	KindNe:           "ne",
	KindUlt:          "ult",
	KindUle:          "ule",
	KindUgt:          "ugt",
	KindUge:          "uge",
	KindSlt:          "slt",
	KindSle:          "sle",
	KindSgt:          "sgt",
	KindSge:          "sge",
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k >= 0 && k < Kind(len(kindStrings)) && kindStrings[k] != "" {
		return kindStrings[k]
	}
	return fmt.Sprintf("Kind<%d>", int(k))
}

// IsCast returns true if k is a cast (zext/sext) kind.
func (k Kind) IsCast() bool {
	return k >= castKindFirst && k <= castKindLast
}

// IsBinary returns true if k is a two-operand arithmetic, bitwise or
// comparison kind.
func (k Kind) IsBinary() bool {
	return k >= binaryKindFirst && k <= binaryKindLast
}

// IsArithmetic returns true if k is an arithmetic or bitwise binary kind.
func (k Kind) IsArithmetic() bool {
	return k >= binaryKindFirst && k < cmpKindFirst
}

// IsCompare returns true if k is a comparison kind.
func (k Kind) IsCompare() bool {
	return k >= cmpKindFirst && k <= cmpKindLast
}

// ExprKind returns the kind of the expression node.
func ExprKind(expr Expr) Kind {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return KindConstant
	case *NotOptimizedExpr:
		return KindNotOptimized
	case *ReadExpr:
		return KindRead
	case *SelectExpr:
		return KindSelect
	case *ConcatExpr:
		return KindConcat
	case *ExtractExpr:
		return KindExtract
	case *CastExpr:
		if expr.Signed {
			return KindSExt
		}
		return KindZExt
	case *NotExpr:
		return KindNot
	case *BinaryExpr:
		return expr.Op
	default:
		panic("unreachable")
	}
}

// ExprWidth returns the bit width of the expression.
func ExprWidth(expr Expr) uint {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Width
	case *NotOptimizedExpr:
		return ExprWidth(expr.Src)
	case *ReadExpr:
		return WidthRange
	case *SelectExpr:
		return ExprWidth(expr.True)
	case *ConcatExpr:
		return ExprWidth(expr.MSB) + ExprWidth(expr.LSB)
	case *ExtractExpr:
		return expr.Width
	case *NotExpr:
		return ExprWidth(expr.Expr)
	case *CastExpr:
		return expr.Width
	case *BinaryExpr:
		if expr.Op.IsCompare() {
			return WidthBool
		}
		return ExprWidth(expr.LHS)
	default:
		panic("unreachable")
	}
}

// NumKids returns the number of child expressions of expr.
func NumKids(expr Expr) int {
	switch expr.(type) {
	case *ConstantExpr:
		return 0
	case *NotOptimizedExpr, *ReadExpr, *ExtractExpr, *NotExpr, *CastExpr:
		return 1
	case *ConcatExpr, *BinaryExpr:
		return 2
	case *SelectExpr:
		return 3
	default:
		panic("unreachable")
	}
}

// Kid returns the i-th child expression of expr, or nil if i is outside
// [0, NumKids(expr)).
func Kid(expr Expr, i int) Expr {
	if i < 0 || i >= NumKids(expr) {
		return nil
	}
	switch expr := expr.(type) {
	case *NotOptimizedExpr:
		return expr.Src
	case *ReadExpr:
		return expr.Index
	case *SelectExpr:
		switch i {
		case 0:
			return expr.Cond
		case 1:
			return expr.True
		default:
			return expr.False
		}
	case *ConcatExpr:
		if i == 0 {
			return expr.MSB
		}
		return expr.LSB
	case *ExtractExpr:
		return expr.Expr
	case *NotExpr:
		return expr.Expr
	case *CastExpr:
		return expr.Src
	case *BinaryExpr:
		if i == 0 {
			return expr.LHS
		}
		return expr.RHS
	default:
		panic("unreachable")
	}
}

// Rebuild returns a freshly canonicalized expression of the same kind as
// expr with kids substituted for its children. Extract and cast nodes are
// rebuilt against their stored result width; read nodes keep their update
// history. Rebuilding a terminal is a contract violation.
func Rebuild(expr Expr, kids []Expr) Expr {
	assert(len(kids) == NumKids(expr), "rebuild: kid count mismatch: %d != %d", len(kids), NumKids(expr))

	switch expr := expr.(type) {
	case *ConstantExpr:
		assert(false, "rebuild on terminal constant expression")
		return nil
	case *NotOptimizedExpr:
		return NewNotOptimizedExpr(kids[0])
	case *ReadExpr:
		return NewReadExpr(expr.Updates, kids[0])
	case *SelectExpr:
		return NewSelectExpr(kids[0], kids[1], kids[2])
	case *ConcatExpr:
		return NewConcatExpr(kids[0], kids[1])
	case *ExtractExpr:
		return NewExtractExpr(kids[0], expr.Offset, expr.Width)
	case *NotExpr:
		return NewNotExpr(kids[0])
	case *CastExpr:
		return NewCastExpr(kids[0], expr.Width, expr.Signed)
	case *BinaryExpr:
		return NewBinaryExpr(expr.Op, kids[0], kids[1])
	default:
		panic("unreachable")
	}
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  Kind
	LHS Expr
	RHS Expr

	hashValue uint32
}

// NewBinaryExpr returns a canonicalized expression applying op to lhs & rhs.
func NewBinaryExpr(op Kind, lhs, rhs Expr) Expr {
	assert(op.IsBinary(), "invalid binary op: %s", op)
	// Shift amounts may carry their own width.
	if op != KindShl && op != KindLShr && op != KindAShr {
		assert(ExprWidth(lhs) == ExprWidth(rhs), "binary expr width mismatch: op=%s %d != %d", op, ExprWidth(lhs), ExprWidth(rhs))
	}

	switch op {
	// Arithmetic operators
	case KindAdd:
		return newAddExpr(lhs, rhs)
	case KindSub:
		return newSubExpr(lhs, rhs)
	case KindMul:
		return newMulExpr(lhs, rhs)
	case KindUDiv, KindSDiv:
		return newDivExpr(op, lhs, rhs)
	case KindURem, KindSRem:
		return newRemExpr(op, lhs, rhs)
	case KindAnd:
		return newAndExpr(lhs, rhs)
	case KindOr:
		return newOrExpr(lhs, rhs)
	case KindXor:
		return newXorExpr(lhs, rhs)
	case KindShl:
		return newShlExpr(lhs, rhs)
	case KindLShr:
		return newLShrExpr(lhs, rhs)
	case KindAShr:
		return newAShrExpr(lhs, rhs)

	// Comparison operators
	case KindEq:
		return newEqExpr(lhs, rhs)
	case KindNe:
		return NewBinaryExpr(KindEq, NewConstantExpr(0, WidthBool), NewBinaryExpr(KindEq, lhs, rhs))
	case KindUlt:
		return newUltExpr(lhs, rhs)
	case KindUgt:
		return newUltExpr(rhs, lhs) // reverse
	case KindUle:
		return newUleExpr(lhs, rhs)
	case KindUge:
		return newUleExpr(rhs, lhs) // reverse
	case KindSlt:
		return newSltExpr(lhs, rhs)
	case KindSgt:
		return newSltExpr(rhs, lhs) // reverse
	case KindSle:
		return newSleExpr(lhs, rhs)
	case KindSge:
		return newSleExpr(rhs, lhs) // reverse

	default:
		panic("unreachable")
	}
}

func allocBinaryExpr(op Kind, lhs, rhs Expr) Expr {
	e := &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// newAddExpr returns the expression representing the sum of lhs & rhs.
func newAddExpr(lhs, rhs Expr) Expr {
	// Move constant expression to left hand side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Refactor to XOR for boolean expressions.
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(KindXor, lhs, rhs)
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 0 {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Add(rhs)
		}
	}

	// Merge constant LHS with constant in RHS binary expression.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rhs.Op == KindAdd && IsConstantExpr(rhs.LHS) { // X + (Y+z) == (X+Y) + z
				return NewBinaryExpr(KindAdd, NewBinaryExpr(KindAdd, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == KindSub && IsConstantExpr(rhs.LHS) { // X + (Y-z) == (X+Y) - z
				return NewBinaryExpr(KindSub, NewBinaryExpr(KindAdd, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}

	// Refactor constant LHS.LHS to a standalone value on LHS.
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == KindAdd { // (X+y) + z = X + (y+z)
			return NewBinaryExpr(KindAdd, lhs.LHS, NewBinaryExpr(KindAdd, lhs.RHS, rhs))
		} else if lhs.Op == KindSub { // (x-y) + z = x + (z-y)
			return NewBinaryExpr(KindAdd, lhs.LHS, NewBinaryExpr(KindSub, rhs, lhs.RHS))
		}
	}

	// Refactor constant RHS.LHS to a standalone value on LHS.
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == KindAdd { // a + (k+b) = k+(a+b)
			return NewBinaryExpr(KindAdd, rhs.LHS, NewBinaryExpr(KindAdd, lhs, rhs.RHS))
		} else if rhs.Op == KindSub { // a + (k-b) = k+(a-b)
			return NewBinaryExpr(KindAdd, rhs.LHS, NewBinaryExpr(KindSub, lhs, rhs.RHS))
		}
	}

	return allocBinaryExpr(KindAdd, lhs, rhs)
}

// newSubExpr returns an expression representing the difference of lhs & rhs.
func newSubExpr(lhs, rhs Expr) Expr {
	// Subtracting a value from itself is zero.
	if CompareExpr(lhs, rhs) == 0 {
		return NewConstantExpr(0, ExprWidth(lhs))
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sub(rhs)
		}
	}

	// Refactor to XOR for boolean expressions.
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(KindXor, lhs, rhs)
	}

	// If constant is on right side, refactor to addition with LHS & RHS flipped.
	if rhs, ok := rhs.(*ConstantExpr); ok && !IsConstantExpr(lhs) {
		return NewBinaryExpr(KindAdd, NewConstantExpr(0, ExprWidth(rhs)).Sub(rhs), lhs)
	}

	// Combine with children of RHS binary expression, if possible.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rhs.Op == KindAdd && IsConstantExpr(rhs.LHS) { // X - (Y+z) == (X-Y) - z
				return NewBinaryExpr(KindSub, NewBinaryExpr(KindSub, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == KindSub && IsConstantExpr(rhs.LHS) { // X - (Y-z) == (X-Y) + z
				return NewBinaryExpr(KindAdd, NewBinaryExpr(KindSub, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}

	// Refactor constant LHS.LHS to a standalone value on LHS.
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == KindAdd { // (X+y) - z = X + (y-z)
			return NewBinaryExpr(KindAdd, lhs.LHS, NewBinaryExpr(KindSub, lhs.RHS, rhs))
		} else if lhs.Op == KindSub { // (X-y) - z = X - (y+z)
			return NewBinaryExpr(KindSub, lhs.LHS, NewBinaryExpr(KindAdd, lhs.RHS, rhs))
		}
	}

	// Refactor constant RHS.LHS to a standalone value on LHS.
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == KindAdd { // x - (Y+z) = (x-z) - Y
			return NewBinaryExpr(KindSub, NewBinaryExpr(KindSub, lhs, rhs.RHS), rhs.LHS)
		} else if rhs.Op == KindSub { // x - (Y-z) = (x+z) - Y
			return NewBinaryExpr(KindSub, NewBinaryExpr(KindAdd, lhs, rhs.RHS), rhs.LHS)
		}
	}

	return allocBinaryExpr(KindSub, lhs, rhs)
}

// newMulExpr returns an expression that represents the product of lhs & rhs.
func newMulExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if IsConstantExpr(rhs) && !IsConstantExpr(lhs) {
		lhs, rhs = rhs, lhs
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Mul(rhs)
		}
	}

	// Refactor to AND for boolean expressions.
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(KindAnd, lhs, rhs)
	}

	// Optimize for multiplication with a constant 1 or 0.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 1 {
			return rhs
		} else if lhs.Value == 0 {
			return lhs
		}
	}
	return allocBinaryExpr(KindMul, lhs, rhs)
}

// newDivExpr returns an expression that represents the division of lhs & rhs.
func newDivExpr(op Kind, lhs, rhs Expr) Expr {
	assert(op == KindUDiv || op == KindSDiv, "invalid div op: %s", op)

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			if op == KindUDiv {
				return lhs.UDiv(rhs)
			}
			return lhs.SDiv(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return lhs // rhs must be 1
	}
	return allocBinaryExpr(op, lhs, rhs)
}

// newRemExpr returns an expression that represents the remainder of lhs divided by rhs.
func newRemExpr(op Kind, lhs, rhs Expr) Expr {
	assert(op == KindURem || op == KindSRem, "invalid rem op: %s", op)

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			if op == KindURem {
				return lhs.URem(rhs)
			}
			return lhs.SRem(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewConstantExpr(0, WidthBool) // rhs must be 1
	}
	return allocBinaryExpr(op, lhs, rhs)
}

// newAndExpr returns an expression that represents the bitwise AND of lhs & rhs.
func newAndExpr(lhs, rhs Expr) Expr {
	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.And(rhs)
		}
	}

	// If constant is on right side, swap to left side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Optimize for if constant is all ones or zeros.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsAllOnes() {
			return rhs
		} else if lhs.Value == 0 {
			return lhs
		}
	}
	return allocBinaryExpr(KindAnd, lhs, rhs)
}

// newOrExpr returns an expression that represents the bitwise OR of lhs & rhs.
func newOrExpr(lhs, rhs Expr) Expr {
	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Or(rhs)
		}
	}

	// If constant is on right side, swap to left side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Optimize for if constant is all ones or zeros.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsAllOnes() {
			return lhs
		} else if lhs.Value == 0 {
			return rhs
		}
	}
	return allocBinaryExpr(KindOr, lhs, rhs)
}

// newXorExpr returns an expression that represents the bitwise XOR of lhs & rhs.
func newXorExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 0 {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Xor(rhs)
		}
	}

	return allocBinaryExpr(KindXor, lhs, rhs)
}

// newShlExpr returns an expression that represents the shift-left of lhs by rhs bits.
func newShlExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Shl(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // l & !r
		return NewBinaryExpr(KindAnd, lhs, NewIsZeroExpr(rhs))
	}
	return allocBinaryExpr(KindShl, lhs, rhs)
}

// newLShrExpr returns an expression that represents the logical shift-right of lhs by rhs bits.
func newLShrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.LShr(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(KindAnd, lhs, NewIsZeroExpr(rhs)) // l & !r
	}
	return allocBinaryExpr(KindLShr, lhs, rhs)
}

// newAShrExpr returns an expression that represents the arithmetic shift-right of lhs by rhs bits.
func newAShrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.AShr(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // l
		return lhs
	}
	return allocBinaryExpr(KindAShr, lhs, rhs)
}

// newEqExpr returns an expression that represents the equality of lhs and rhs.
func newEqExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Eq(rhs)
		}

		width := ExprWidth(lhs)
		switch rhs := rhs.(type) {
		case *BinaryExpr:
			switch rhs.Op {
			case KindEq:
				if width == WidthBool {
					if lhs.IsTrue() {
						return rhs
					} else if IsConstantFalse(lhs) && IsConstantFalse(rhs.LHS) {
						return rhs.RHS // 0 == (0 == A) => A
					}
				}
			case KindOr:
				if width == WidthBool {
					if lhs.IsTrue() {
						return rhs // T == X || Y => X || Y
					} else if ExprWidth(rhs.LHS) == WidthBool {
						return NewBinaryExpr(KindAnd, NewIsZeroExpr(rhs.LHS), NewIsZeroExpr(rhs.RHS)) // F == X || Y => !X && !Y
					}
				}
			case KindAdd:
				if IsConstantExpr(rhs.LHS) { // X = Y + z => X - Y = z
					return NewBinaryExpr(KindEq, NewBinaryExpr(KindSub, lhs, rhs.LHS), rhs.RHS)
				}
			case KindSub:
				if IsConstantExpr(rhs.LHS) { // X = Y - z => Y - X = z
					return NewBinaryExpr(KindEq, NewBinaryExpr(KindSub, rhs.LHS, lhs), rhs.RHS)
				}
			}

		case *CastExpr:
			trunc := lhs.ZExt(ExprWidth(rhs.Src))
			if rhs.Signed { // (sext(a,T)==c) == (a==c)
				if CompareExpr(lhs, trunc.SExt(width)) == 0 {
					return NewBinaryExpr(KindEq, rhs.Src, trunc)
				}
				return NewConstantExpr(0, WidthBool)
			} else { // (zext(a,T)==c) == (a==c)
				if CompareExpr(lhs, trunc.ZExt(width)) == 0 {
					return NewBinaryExpr(KindEq, rhs.Src, trunc)
				}
				return NewConstantExpr(0, WidthBool)
			}
		}
	}

	if CompareExpr(lhs, rhs) == 0 {
		return NewConstantExpr(1, WidthBool)
	}
	return allocBinaryExpr(KindEq, lhs, rhs)
}

// newUltExpr returns an expression that represents the if lhs is less than rhs (unsigned).
func newUltExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Ult(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // !lhs && rhs
		return NewBinaryExpr(KindAnd, NewIsZeroExpr(lhs), rhs)
	}
	return allocBinaryExpr(KindUlt, lhs, rhs)
}

// newUleExpr returns an expression that represents the if lhs is less than or equal to rhs (unsigned).
func newUleExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Ule(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // !(lhs && !rhs)
		return NewBinaryExpr(KindOr, NewIsZeroExpr(lhs), rhs)
	}
	return allocBinaryExpr(KindUle, lhs, rhs)
}

// newSltExpr returns an expression that represents the if lhs is less than rhs (signed).
func newSltExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Slt(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // lhs && !rhs
		return NewBinaryExpr(KindAnd, lhs, NewIsZeroExpr(rhs))
	}
	return allocBinaryExpr(KindSlt, lhs, rhs)
}

// newSleExpr returns an expression that represents the if lhs is less than or equal to rhs (signed).
func newSleExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sle(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // !(!lhs && rhs)
		return NewBinaryExpr(KindOr, lhs, NewIsZeroExpr(rhs))
	}
	return allocBinaryExpr(KindSle, lhs, rhs)
}

// SelectExpr represents an if-then-else expression over two values of the
// same width. The condition is boolean.
type SelectExpr struct {
	Cond  Expr
	True  Expr
	False Expr

	hashValue uint32
}

// NewSelectExpr returns a canonicalized if-then-else expression.
func NewSelectExpr(cond, t, f Expr) Expr {
	assert(ExprWidth(cond) == WidthBool, "select: condition must be boolean, width=%d", ExprWidth(cond))
	assert(ExprWidth(t) == ExprWidth(f), "select: arm width mismatch: %d != %d", ExprWidth(t), ExprWidth(f))

	// A constant condition picks an arm.
	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return t
		}
		return f
	}

	// Equal arms make the condition irrelevant.
	if CompareExpr(t, f) == 0 {
		return t
	}

	// Boolean arms refactor to and/or.
	if ExprWidth(t) == WidthBool {
		if IsConstantTrue(t) {
			return NewBinaryExpr(KindOr, cond, f)
		} else if IsConstantFalse(t) {
			return NewBinaryExpr(KindAnd, NewIsZeroExpr(cond), f)
		} else if IsConstantTrue(f) {
			return NewBinaryExpr(KindOr, NewIsZeroExpr(cond), t)
		} else if IsConstantFalse(f) {
			return NewBinaryExpr(KindAnd, cond, t)
		}
	}

	e := &SelectExpr{Cond: cond, True: t, False: f}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *SelectExpr) String() string {
	return fmt.Sprintf("(select %s %s %s)", e.Cond, e.True, e.False)
}

// ConcatExpr represents a concatenation of two expressions.
type ConcatExpr struct {
	MSB Expr
	LSB Expr

	hashValue uint32
}

// NewConcatExpr returns a new instance of ConcatExpr.
func NewConcatExpr(msb, lsb Expr) Expr {
	// Combine expressions if they are both constants.
	if msb, ok := msb.(*ConstantExpr); ok {
		if lsb, ok := lsb.(*ConstantExpr); ok {
			return msb.Concat(lsb)
		}
	}

	// Combine extract expressions if they are contiguous.
	if msb, ok := msb.(*ExtractExpr); ok {
		if lsb, ok := lsb.(*ExtractExpr); ok {
			if msb.Expr == lsb.Expr && lsb.Offset+lsb.Width == msb.Offset {
				return NewExtractExpr(msb.Expr, lsb.Offset, msb.Width+lsb.Width)
			}
		}
	}

	e := &ConcatExpr{MSB: msb, LSB: lsb}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *ConcatExpr) String() string {
	return fmt.Sprintf("(concat %s %s)", e.MSB, e.LSB)
}

// ExtractExpr represents the extraction of a set of bits at a given
// offset/width. Offset 0 is the least-significant bit.
type ExtractExpr struct {
	Expr   Expr
	Offset uint
	Width  uint

	hashValue uint32
}

// NewExtractExpr returns a new instance of ExtractExpr.
func NewExtractExpr(expr Expr, offset uint, width uint) Expr {
	kw := ExprWidth(expr)
	assert(width > 0, "extract width cannot be zero")
	assert(offset+width <= kw, "extract out of bounds: %d+%d > %d", width, offset, kw)

	if width == kw {
		return expr
	} else if expr, ok := expr.(*ConstantExpr); ok {
		return expr.Extract(offset, width)
	}

	// Extract(Concat)
	if expr, ok := expr.(*ConcatExpr); ok {
		// Directly extract from MSB if we skip over LSB.
		if offset >= ExprWidth(expr.LSB) {
			return NewExtractExpr(expr.MSB, offset-ExprWidth(expr.LSB), width)
		}

		// Directly extract from LSB if we skip over MSB.
		if offset+width <= ExprWidth(expr.LSB) {
			return NewExtractExpr(expr.LSB, offset, width)
		}

		// Convert extraction to a concatenation of two extractions.
		// E(C(x,y)) = C(E(x), E(y))
		return NewConcatExpr(
			NewExtractExpr(expr.MSB, 0, width-ExprWidth(expr.LSB)+offset),
			NewExtractExpr(expr.LSB, offset, ExprWidth(expr.LSB)-offset),
		)
	}

	e := &ExtractExpr{Expr: expr, Offset: offset, Width: width}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *ExtractExpr) String() string {
	return fmt.Sprintf("(extract %s %d %d)", e.Expr, e.Offset, e.Width)
}

// NotExpr represents a bitwise not of an expression.
type NotExpr struct {
	Expr Expr

	hashValue uint32
}

// NewNotExpr returns a new instance of NotExpr.
func NewNotExpr(expr Expr) Expr {
	if expr, ok := expr.(*ConstantExpr); ok {
		return expr.Not()
	}
	e := &NotExpr{Expr: expr}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *NotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// CastExpr represents an expression that casts an expression to a new
// width. The result width is part of the node; rebuilding resupplies it.
type CastExpr struct {
	Src    Expr
	Width  uint
	Signed bool

	hashValue uint32
}

// NewCastExpr returns a new instance of CastExpr.
func NewCastExpr(src Expr, width uint, signed bool) Expr {
	if signed {
		return newSExtExpr(src, width)
	}
	return newZExtExpr(src, width)
}

// newZExtExpr returns a new zero-extension expression.
func newZExtExpr(src Expr, w uint) Expr {
	sw := ExprWidth(src)
	if w == sw { // nop
		return src
	} else if w < sw { // truncate
		return NewExtractExpr(src, 0, w)
	} else if src, ok := src.(*ConstantExpr); ok {
		return src.ZExt(w)
	}
	return allocCastExpr(src, w, false)
}

// newSExtExpr returns a new sign-extension expression.
func newSExtExpr(src Expr, w uint) Expr {
	sw := ExprWidth(src)
	if w == sw { // nop
		return src
	} else if w < sw { // truncate
		return NewExtractExpr(src, 0, w)
	} else if src, ok := src.(*ConstantExpr); ok {
		return src.SExt(w)
	}
	return allocCastExpr(src, w, true)
}

func allocCastExpr(src Expr, w uint, signed bool) Expr {
	e := &CastExpr{Src: src, Width: w, Signed: signed}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *CastExpr) String() string {
	if e.Signed {
		return fmt.Sprintf("(sext %s %d)", e.Src, e.Width)
	}
	return fmt.Sprintf("(zext %s %d)", e.Src, e.Width)
}

// NotOptimizedExpr prevents canonicalization rules firing below the
// wrapped expression.
type NotOptimizedExpr struct {
	Src Expr

	hashValue uint32
}

// NewNotOptimizedExpr returns a new instance of NotOptimizedExpr.
func NewNotOptimizedExpr(src Expr) Expr {
	e := &NotOptimizedExpr{Src: src}
	e.hashValue = computeHash(e)
	return e
}

// String returns the string representation of the expression.
func (e *NotOptimizedExpr) String() string {
	return fmt.Sprintf("(no-opt %s)", e.Src)
}

// IsConstantExpr returns true if expr is an instance of ConstantExpr.
func IsConstantExpr(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// IsConstantTrue returns true if expr is an instance of ConstantExpr and is true.
func IsConstantTrue(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsTrue()
}

// IsConstantFalse returns true if expr is an instance of ConstantExpr and is false.
func IsConstantFalse(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsFalse()
}

// NewIsZeroExpr returns an expression that checks the equality of other to zero.
func NewIsZeroExpr(other Expr) Expr {
	return NewBinaryExpr(KindEq, other, NewConstantExpr(0, ExprWidth(other)))
}

// Visitor represents a visitor that can be passed to Walk().
type Visitor interface {
	// Executed for every visited node. Return a different expression to
	// replace the node; return a nil visitor to stop descending.
	Visit(expr Expr) (Expr, Visitor)
}

// Walk traverses expr depth-first, rebuilding any node whose children are
// replaced by the visitor. The input DAG is never mutated; Walk returns
// either expr itself or a freshly canonicalized replacement.
func Walk(v Visitor, expr Expr) Expr {
	other, v := v.Visit(expr)
	if v == nil || other != expr {
		return other
	}

	if expr, ok := expr.(*ReadExpr); ok {
		index := Walk(v, expr.Index)
		updates, changed := walkUpdates(v, expr.Updates)
		if index != expr.Index || changed {
			return NewReadExpr(updates, index)
		}
		return expr
	}

	n := NumKids(expr)
	if n == 0 {
		return expr
	}
	kids := make([]Expr, n)
	changed := false
	for i := 0; i < n; i++ {
		kid := Kid(expr, i)
		kids[i] = Walk(v, kid)
		if kids[i] != kid {
			changed = true
		}
	}
	if !changed {
		return expr
	}
	return Rebuild(expr, kids)
}

// walkUpdates applies v to every index & value in the update history.
// A new history is built only if something changed.
func walkUpdates(v Visitor, ul UpdateList) (UpdateList, bool) {
	var nodes []*UpdateNode
	for un := ul.Head; un != nil; un = un.Next {
		nodes = append(nodes, un)
	}

	changed := false
	rebuilt := UpdateList{Root: ul.Root}
	for i := len(nodes) - 1; i >= 0; i-- {
		index := Walk(v, nodes[i].Index)
		value := Walk(v, nodes[i].Value)
		if index != nodes[i].Index || value != nodes[i].Value {
			changed = true
		}
		rebuilt = rebuilt.Extend(index, value)
	}
	if !changed {
		return ul, false
	}
	return rebuilt, true
}

// FindArrays returns all symbolic arrays in the expression tree.
func FindArrays(exprs ...Expr) []*Array {
	v := newArrayVisitor()
	for _, expr := range exprs {
		Walk(v, expr)
	}

	a := make([]*Array, 0, len(v.m))
	for _, array := range v.m {
		a = append(a, array)
	}
	sort.Slice(a, func(i, j int) bool { return CompareArray(a[i], a[j]) == -1 })

	return a
}

type arrayVisitor struct {
	m map[string]*Array
}

func newArrayVisitor() *arrayVisitor {
	return &arrayVisitor{m: make(map[string]*Array)}
}

func (v *arrayVisitor) Visit(expr Expr) (Expr, Visitor) {
	if expr, ok := expr.(*ReadExpr); ok && expr.Updates.Root.IsSymbolic() {
		if _, ok := v.m[expr.Updates.Root.Name]; !ok {
			v.m[expr.Updates.Root.Name] = expr.Updates.Root
		}
	}
	return expr, v
}
