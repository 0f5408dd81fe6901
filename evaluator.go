package gklee

import (
	"github.com/pkg/errors"
)

// ExprEvaluator evaluates expressions using known array values.
type ExprEvaluator struct {
	m map[string][]byte // mapping of array name to bound bytes
}

// NewExprEvaluator returns a new instance of ExprEvaluator with the given array/value mapping.
func NewExprEvaluator(arrays []*Array, values [][]byte) *ExprEvaluator {
	assert(len(arrays) == len(values), "array/value count mismatch: %d != %d", len(arrays), len(values))

	m := make(map[string][]byte)
	for i, array := range arrays {
		_, ok := m[array.Name]
		assert(!ok, "duplicate array: name=%s", array.Name)
		m[array.Name] = values[i]
	}

	return &ExprEvaluator{m: m}
}

// Evaluate evaluates expr to a constant expression.
// Returns an error if an unbound symbolic array is encountered.
func (ee *ExprEvaluator) Evaluate(expr Expr) (*ConstantExpr, error) {
	switch expr := expr.(type) {
	case *BinaryExpr:
		lhs, err := ee.Evaluate(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ee.Evaluate(expr.RHS)
		if err != nil {
			return nil, err
		}
		return NewBinaryExpr(expr.Op, lhs, rhs).(*ConstantExpr), nil
	case *CastExpr:
		src, err := ee.Evaluate(expr.Src)
		if err != nil {
			return nil, err
		}
		return NewCastExpr(src, expr.Width, expr.Signed).(*ConstantExpr), nil
	case *ConcatExpr:
		msb, err := ee.Evaluate(expr.MSB)
		if err != nil {
			return nil, err
		}
		lsb, err := ee.Evaluate(expr.LSB)
		if err != nil {
			return nil, err
		}
		return NewConcatExpr(msb, lsb).(*ConstantExpr), nil
	case *ConstantExpr:
		return expr, nil
	case *ExtractExpr:
		exp, err := ee.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewExtractExpr(exp, expr.Offset, expr.Width).(*ConstantExpr), nil
	case *NotExpr:
		exp, err := ee.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewNotExpr(exp).(*ConstantExpr), nil
	case *NotOptimizedExpr:
		return ee.Evaluate(expr.Src)
	case *SelectExpr:
		cond, err := ee.Evaluate(expr.Cond)
		if err != nil {
			return nil, err
		}
		if cond.IsTrue() {
			return ee.Evaluate(expr.True)
		}
		return ee.Evaluate(expr.False)
	case *ReadExpr:
		i, err := ee.Evaluate(expr.Index)
		if err != nil {
			return nil, err
		}

		// Return most recent write to the given index, if available.
		for un := expr.Updates.Head; un != nil; un = un.Next {
			index, err := ee.Evaluate(un.Index)
			if err != nil {
				return nil, err
			} else if index.Value != i.Value {
				continue
			}
			return ee.Evaluate(un.Value)
		}

		// Otherwise fall through to the initial contents.
		root := expr.Updates.Root
		if root.IsConstant() {
			if int(i.Value) >= len(root.ConstantValues) {
				return nil, errors.Errorf("read index out of bounds: %d >= %d", i.Value, len(root.ConstantValues))
			}
			return root.ConstantValues[i.Value], nil
		}

		initial, ok := ee.m[root.Name]
		if !ok {
			return nil, errors.Errorf("array not bound: name=%s", root.Name)
		} else if int(i.Value) >= len(initial) {
			return nil, errors.Errorf("read index out of bounds: %d >= %d", i.Value, len(initial))
		}
		return NewConstantExpr(uint64(initial[i.Value]), WidthRange), nil

	default:
		return nil, errors.Errorf("invalid expression type: %T", expr)
	}
}
