package gklee

// CompareExpr returns an integer comparing two expressions.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
//
// The order is deterministic: kind first, then width, then the node's own
// contents, then children pairwise. Node pairs proven equal are memoized
// for the duration of one call so that heavily shared DAGs compare in
// near-linear time instead of exponential.
func CompareExpr(a, b Expr) int {
	equivs := make(map[exprPair]struct{})
	return compareExpr(a, b, equivs)
}

type exprPair struct {
	a, b Expr
}

func compareExpr(a, b Expr, equivs map[exprPair]struct{}) int {
	if a == b {
		return 0
	} else if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	}

	if _, ok := equivs[exprPair{a, b}]; ok {
		return 0
	}

	if ak, bk := ExprKind(a), ExprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	if aw, bw := ExprWidth(a), ExprWidth(b); aw < bw {
		return -1
	} else if aw > bw {
		return 1
	}

	if cmp := compareContents(a, b, equivs); cmp != 0 {
		return cmp
	}

	for i, n := 0, NumKids(a); i < n; i++ {
		if cmp := compareExpr(Kid(a, i), Kid(b, i), equivs); cmp != 0 {
			return cmp
		}
	}

	equivs[exprPair{a, b}] = struct{}{}
	return 0
}

// compareContents compares the kind-specific payload of two nodes of the
// same kind and width, ignoring children.
func compareContents(a, b Expr, equivs map[exprPair]struct{}) int {
	switch a := a.(type) {
	case *ConstantExpr:
		b := b.(*ConstantExpr)
		if a.Value < b.Value {
			return -1
		} else if a.Value > b.Value {
			return 1
		}
		return 0
	case *ExtractExpr:
		b := b.(*ExtractExpr)
		if a.Offset < b.Offset {
			return -1
		} else if a.Offset > b.Offset {
			return 1
		}
		return 0
	case *ReadExpr:
		b := b.(*ReadExpr)
		return compareUpdateList(a.Updates, b.Updates, equivs)
	default:
		return 0
	}
}

// CompareArray returns an integer comparing two arrays.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArray(a, b *Array) int {
	if a == b {
		return 0
	} else if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	}

	if a.Name < b.Name {
		return -1
	} else if a.Name > b.Name {
		return 1
	}

	if a.Size < b.Size {
		return -1
	} else if a.Size > b.Size {
		return 1
	}

	if len(a.ConstantValues) < len(b.ConstantValues) {
		return -1
	} else if len(a.ConstantValues) > len(b.ConstantValues) {
		return 1
	}
	for i := range a.ConstantValues {
		if cmp := CompareExpr(a.ConstantValues[i], b.ConstantValues[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// CompareUpdateList returns an integer comparing two update lists: the
// write histories pairwise from most recent to oldest, then the root
// arrays.
func CompareUpdateList(a, b UpdateList) int {
	equivs := make(map[exprPair]struct{})
	return compareUpdateList(a, b, equivs)
}

func compareUpdateList(a, b UpdateList, equivs map[exprPair]struct{}) int {
	an, bn := a.Head, b.Head
	for an != nil && bn != nil {
		if an == bn {
			break // shared suffix
		}
		if cmp := compareExpr(an.Index, bn.Index, equivs); cmp != 0 {
			return cmp
		}
		if cmp := compareExpr(an.Value, bn.Value, equivs); cmp != 0 {
			return cmp
		}
		an, bn = an.Next, bn.Next
	}
	if an == nil && bn != nil {
		return -1
	} else if an != nil && bn == nil {
		return 1
	}
	return CompareArray(a.Root, b.Root)
}

// HashExpr returns the structural hash of expr. Structurally equal
// expressions hash equal. Hashes are computed once on the constructor
// path and cached; nodes built as raw literals are hashed on first use.
func HashExpr(expr Expr) uint32 {
	switch e := expr.(type) {
	case *ConstantExpr:
		h := (uint32(e.Value)^uint32(e.Value>>32))*magicHashConstant + uint32(e.Width)
		return nonzeroHash(h)
	case *NotOptimizedExpr:
		return cachedHash(&e.hashValue, expr)
	case *ReadExpr:
		return cachedHash(&e.hashValue, expr)
	case *SelectExpr:
		return cachedHash(&e.hashValue, expr)
	case *ConcatExpr:
		return cachedHash(&e.hashValue, expr)
	case *ExtractExpr:
		return cachedHash(&e.hashValue, expr)
	case *NotExpr:
		return cachedHash(&e.hashValue, expr)
	case *CastExpr:
		return cachedHash(&e.hashValue, expr)
	case *BinaryExpr:
		return cachedHash(&e.hashValue, expr)
	default:
		panic("unreachable")
	}
}

func cachedHash(slot *uint32, expr Expr) uint32 {
	if *slot == 0 {
		*slot = computeHash(expr)
	}
	return *slot
}

// computeHash mixes kind, width, kind-specific contents and child hashes.
func computeHash(expr Expr) uint32 {
	h := uint32(ExprKind(expr))*magicHashConstant + uint32(ExprWidth(expr))

	switch e := expr.(type) {
	case *ExtractExpr:
		h = h*magicHashConstant + uint32(e.Offset)
	case *ReadExpr:
		h = h*magicHashConstant + e.Updates.Hash()
	}

	for i, n := 0, NumKids(expr); i < n; i++ {
		h = h*magicHashConstant + HashExpr(Kid(expr, i))
	}
	return nonzeroHash(h)
}

func nonzeroHash(h uint32) uint32 {
	if h == 0 {
		return magicHashConstant
	}
	return h
}
