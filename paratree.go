package gklee

import (
	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/go/ssa"
)

// CorrespondTid tracks one hardware thread's bookkeeping during
// exploration. The physical coordinates are fixed at creation; the flags
// are mutated only by the tree's barrier handling.
type CorrespondTid struct {
	RBid    uint // physical block id
	RTid    uint // physical thread id within the block
	WarpNum uint

	SyncEncounter    bool // explicit or implicit barrier
	BarrierEncounter bool // explicit barrier only
	InBranch         bool

	InheritExpr Expr // path condition inherited by this thread

	SlotUsed bool
	Keep     bool
}

// NewCorrespondTid returns bookkeeping for a thread at the given physical
// coordinates.
func NewCorrespondTid(rBid, rTid, warpNum uint, syncEncounter, barrierEncounter, inBranch bool, inheritExpr Expr) CorrespondTid {
	return CorrespondTid{
		RBid:             rBid,
		RTid:             rTid,
		WarpNum:          warpNum,
		SyncEncounter:    syncEncounter,
		BarrierEncounter: barrierEncounter,
		InBranch:         inBranch,
		InheritExpr:      inheritExpr,
	}
}

// ParaConfig describes one divergent successor group pending (or under)
// exploration: the symbolic coordinates owning the group, the branch
// outcome's condition, and the contiguous thread-index range [Start, End)
// of the threads following it.
type ParaConfig struct {
	SymBid uint
	SymTid uint
	Cond   Expr
	Start  uint
	End    uint

	SyncEncounter    bool
	PostDomEncounter bool

	// original condition, saved while the condition is negated
	origCond Expr
}

// NewParaConfig returns a config for the group [start, end) following the
// outcome guarded by cond.
func NewParaConfig(symBid, symTid uint, cond Expr, start, end uint) *ParaConfig {
	assert(start <= end, "invalid config range: [%d, %d)", start, end)
	return &ParaConfig{SymBid: symBid, SymTid: symTid, Cond: cond, Start: start, End: end}
}

// Contains returns true if tid falls in the config's range.
func (c *ParaConfig) Contains(tid uint) bool {
	return c.Start <= tid && tid < c.End
}

// SymBrType classifies a symbolic branch condition.
type SymBrType int

const (
	// TDC is a block or thread dependent condition.
	TDC SymBrType = iota
	// SYM is a purely symbolic condition.
	SYM
	// ACCUM is an accumulative (loop carried) condition.
	ACCUM
	// Other covers conditions not in the classes above.
	Other
)

// String returns the string representation of the branch type.
func (typ SymBrType) String() string {
	switch typ {
	case TDC:
		return "TDC"
	case SYM:
		return "SYM"
	case ACCUM:
		return "ACCUM"
	case Other:
		return "Other"
	default:
		return "<unknown>"
	}
}

// ParaTreeNode records one conditional branch encountered during
// exploration. Successor slots (config, child, thread sets) are parallel
// and grow only by append.
type ParaTreeNode struct {
	BrInst  ssa.Instruction // branch site
	PostDom *ssa.BasicBlock // immediate reconvergence point

	SymBrType SymBrType
	IsCondBr  bool
	AllSync   bool

	// WhichSuccessor is the index of the config being explored right now.
	WhichSuccessor uint

	InheritCond Expr // condition inherited from the parent
	TDCCond     Expr // thread/block dependent portion only

	Parent   *ParaTreeNode
	Configs  []*ParaConfig
	Children []*ParaTreeNode

	// Per-config thread-id sets: threads represented by the config, and
	// the subset that diverged away from the first outcome.
	RepThreadSets     []*immutable.SortedMap
	DivergeThreadSets []*immutable.SortedMap
}

// NewParaTreeNode returns a branch node with no successor configs yet.
func NewParaTreeNode(brInst ssa.Instruction, postDom *ssa.BasicBlock, symBrType SymBrType, isCondBr bool, inheritCond, tdcCond Expr) *ParaTreeNode {
	return &ParaTreeNode{
		BrInst:      brInst,
		PostDom:     postDom,
		SymBrType:   symBrType,
		IsCondBr:    isCondBr,
		InheritCond: inheritCond,
		TDCCond:     tdcCond,
	}
}

// activeConfig returns the config under exploration.
func (n *ParaTreeNode) activeConfig() *ParaConfig {
	assert(int(n.WhichSuccessor) < len(n.Configs), "successor out of range: %d >= %d", n.WhichSuccessor, len(n.Configs))
	return n.Configs[n.WhichSuccessor]
}

// configContaining returns the config whose range holds tid, or nil.
func (n *ParaTreeNode) configContaining(tid uint) *ParaConfig {
	for _, config := range n.Configs {
		if config.Contains(tid) {
			return config
		}
	}
	return nil
}

// clone deep-copies the subtree rooted at n. Expressions and thread sets
// are shared; they are immutable.
func (n *ParaTreeNode) clone(parent *ParaTreeNode, src, dst **ParaTreeNode) *ParaTreeNode {
	other := &ParaTreeNode{
		BrInst:         n.BrInst,
		PostDom:        n.PostDom,
		SymBrType:      n.SymBrType,
		IsCondBr:       n.IsCondBr,
		AllSync:        n.AllSync,
		WhichSuccessor: n.WhichSuccessor,
		InheritCond:    n.InheritCond,
		TDCCond:        n.TDCCond,
		Parent:         parent,
	}
	if n == *src {
		*dst = other
	}

	other.Configs = make([]*ParaConfig, len(n.Configs))
	for i, config := range n.Configs {
		otherConfig := *config
		other.Configs[i] = &otherConfig
	}

	other.RepThreadSets = append([]*immutable.SortedMap(nil), n.RepThreadSets...)
	other.DivergeThreadSets = append([]*immutable.SortedMap(nil), n.DivergeThreadSets...)

	other.Children = make([]*ParaTreeNode, len(n.Children))
	for i, child := range n.Children {
		if child != nil {
			other.Children[i] = child.clone(other, src, dst)
		}
	}
	return other
}

// ParaTree models SIMT divergence for one kernel launch: every symbolic
// conditional encountered becomes a node whose configs partition the
// threads reaching it, and the cursor tracks the group currently being
// explored depth-first.
type ParaTree struct {
	root    *ParaTreeNode
	current *ParaTreeNode
	nodeNum uint
}

// NewParaTree returns an empty tree.
func NewParaTree() *ParaTree {
	return &ParaTree{}
}

// IsEmpty returns true if no branch has been recorded yet.
func (t *ParaTree) IsEmpty() bool { return t.root == nil }

// NodeNum returns the number of nodes in the tree.
func (t *ParaTree) NodeNum() uint { return t.nodeNum }

// Root returns the root node, or nil for an empty tree.
func (t *ParaTree) Root() *ParaTreeNode { return t.root }

// Current returns the cursor node. Fatal on an empty tree.
func (t *ParaTree) Current() *ParaTreeNode {
	assert(t.current != nil, "current node of empty tree")
	return t.current
}

// Insert attaches node below the cursor at its active successor slot, or
// as the root of an empty tree, and moves the cursor to it.
func (t *ParaTree) Insert(node *ParaTreeNode) {
	assert(node != nil, "insert of nil node")

	if t.root == nil {
		t.root = node
		t.current = node
		t.nodeNum++
		return
	}

	slot := t.current.WhichSuccessor
	assert(int(slot) < len(t.current.Children), "insert past last config: %d >= %d", slot, len(t.current.Children))
	assert(t.current.Children[slot] == nil, "successor %d already explored", slot)

	node.Parent = t.current
	t.current.Children[slot] = node
	t.current = node
	t.nodeNum++
}

// UpdateCurrentNodeOnNewConfig appends a successor config to the cursor
// node with fresh thread sets. Sibling ranges must stay disjoint.
func (t *ParaTree) UpdateCurrentNodeOnNewConfig(config *ParaConfig, symBrType SymBrType) {
	node := t.Current()

	for _, sibling := range node.Configs {
		disjoint := config.End <= sibling.Start || sibling.End <= config.Start
		assert(disjoint, "config range [%d, %d) overlaps sibling [%d, %d)", config.Start, config.End, sibling.Start, sibling.End)
	}

	node.SymBrType = symBrType
	node.Configs = append(node.Configs, config)
	node.Children = append(node.Children, nil)
	node.RepThreadSets = append(node.RepThreadSets, newThreadSet())
	node.DivergeThreadSets = append(node.DivergeThreadSets, newThreadSet())
}

// InitializeCurrentNodeRange seeds config pos of the cursor node with the
// single thread tid.
func (t *ParaTree) InitializeCurrentNodeRange(tid, pos uint) {
	node := t.Current()
	assert(int(pos) < len(node.Configs), "config out of range: %d >= %d", pos, len(node.Configs))

	config := node.Configs[pos]
	config.Start = tid
	config.End = tid + 1

	node.RepThreadSets[pos] = node.RepThreadSets[pos].Set(uint64(tid), true)
	if pos != 0 {
		node.DivergeThreadSets[pos] = node.DivergeThreadSets[pos].Set(uint64(tid), true)
	}
}

// IncrementCurrentNodeRange grows config pos of the cursor node by one
// thread. The range stays contiguous.
func (t *ParaTree) IncrementCurrentNodeRange(tid, pos uint) {
	node := t.Current()
	assert(int(pos) < len(node.Configs), "config out of range: %d >= %d", pos, len(node.Configs))

	config := node.Configs[pos]
	assert(tid == config.End, "non-contiguous range: tid %d, range [%d, %d)", tid, config.Start, config.End)
	config.End = tid + 1

	node.RepThreadSets[pos] = node.RepThreadSets[pos].Set(uint64(tid), true)
	if pos != 0 {
		node.DivergeThreadSets[pos] = node.DivergeThreadSets[pos].Set(uint64(tid), true)
	}
}

// EncounterImplicitBarrier marks the cursor's active config as having
// reached its reconvergence point and advances to the next unexplored
// config. When every config has reconverged the node folds: the cursor
// returns to the parent (the root folds onto itself).
func (t *ParaTree) EncounterImplicitBarrier() {
	node := t.Current()
	config := node.activeConfig()
	config.PostDomEncounter = true
	config.SyncEncounter = true

	for i := node.WhichSuccessor + 1; int(i) < len(node.Configs); i++ {
		if !node.Configs[i].PostDomEncounter {
			node.WhichSuccessor = i
			return
		}
	}

	node.AllSync = true
	if node.Parent != nil {
		t.current = node.Parent
	}
}

// EncounterExplicitBarrier records that thread tid reached a
// synchronization primitive. The config holding the thread at each node
// on the outstanding path is marked synced; once every config of the
// cursor node has synced, all of its threads are released together.
// A thread already waiting at the barrier may not arrive again.
func (t *ParaTree) EncounterExplicitBarrier(cTids []CorrespondTid, tid uint) {
	node := t.Current()
	assert(int(tid) < len(cTids), "thread out of range: %d >= %d", tid, len(cTids))

	ct := &cTids[tid]
	assert(!ct.BarrierEncounter, "thread %d already waiting at barrier", tid)
	ct.BarrierEncounter = true
	ct.SyncEncounter = true

	for n := node; n != nil; n = n.Parent {
		if config := n.configContaining(tid); config != nil {
			config.SyncEncounter = true
		}
	}

	for _, config := range node.Configs {
		if !config.SyncEncounter {
			return
		}
	}
	t.releaseBarrier(cTids, node)
}

// releaseBarrier lets every thread recorded on node past the barrier.
func (t *ParaTree) releaseBarrier(cTids []CorrespondTid, node *ParaTreeNode) {
	for _, config := range node.Configs {
		for tid := config.Start; tid < config.End; tid++ {
			if int(tid) < len(cTids) {
				cTids[tid].BarrierEncounter = false
				cTids[tid].SyncEncounter = true
			}
		}
		config.SyncEncounter = false
	}
}

// NegateNonTDCNodeCond replaces the conditions of the unchosen configs of
// every non-TDC conditional node on the root-to-cursor path with their
// boolean negations, so the accumulated path condition excludes the
// outcomes not taken. Thread/block dependent conditions are structural
// facts about group membership and are left alone.
func (t *ParaTree) NegateNonTDCNodeCond() {
	for n := t.Current(); n != nil; n = n.Parent {
		if !n.IsCondBr || n.SymBrType == TDC {
			continue
		}
		for i, config := range n.Configs {
			if uint(i) == n.WhichSuccessor || config.Cond == nil {
				continue
			}
			if config.origCond == nil {
				config.origCond = config.Cond
			}
			config.Cond = NewIsZeroExpr(config.origCond)
		}
	}
}

// ResetNonTDCNodeCond restores the conditions negated by
// NegateNonTDCNodeCond.
func (t *ParaTree) ResetNonTDCNodeCond() {
	for n := t.Current(); n != nil; n = n.Parent {
		for _, config := range n.Configs {
			if config.origCond != nil {
				config.Cond = config.origCond
				config.origCond = nil
			}
		}
	}
}

// TDCExpr returns the conjunction of the thread/block dependent
// conditions chosen along the root-to-cursor path. Returns the true
// constant when the path carries none.
func (t *ParaTree) TDCExpr() Expr {
	result := Expr(NewBoolConstantExpr(true))
	for _, n := range t.path() {
		if !n.IsCondBr || n.SymBrType != TDC || len(n.Configs) == 0 {
			continue
		}
		if cond := n.activeConfig().Cond; cond != nil {
			result = NewBinaryExpr(KindAnd, result, cond)
		}
	}
	return result
}

// PathCondition returns the conjunction of the chosen configs' conditions
// along the root-to-cursor path, seeded with the root's inherited
// condition.
func (t *ParaTree) PathCondition() Expr {
	result := Expr(NewBoolConstantExpr(true))
	if t.root != nil && t.root.InheritCond != nil {
		result = t.root.InheritCond
	}
	for _, n := range t.path() {
		if !n.IsCondBr || len(n.Configs) == 0 {
			continue
		}
		if cond := n.activeConfig().Cond; cond != nil {
			result = NewBinaryExpr(KindAnd, result, cond)
		}
	}
	return result
}

// path returns the nodes from the root down to the cursor. Fatal on an
// empty tree.
func (t *ParaTree) path() []*ParaTreeNode {
	var nodes []*ParaTreeNode
	for n := t.Current(); n != nil; n = n.Parent {
		nodes = append(nodes, n)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

// Clone deep-copies the tree: an independent node graph with the cursor
// at the same position. Expressions and thread sets are shared since they
// are immutable.
func (t *ParaTree) Clone() *ParaTree {
	other := &ParaTree{nodeNum: t.nodeNum}
	if t.root != nil {
		other.root = t.root.clone(nil, &t.current, &other.current)
	}
	return other
}

// ResetCurrentNodeToRoot moves the cursor back to the root without
// changing structure. Fatal on an empty tree.
func (t *ParaTree) ResetCurrentNodeToRoot() {
	assert(t.root != nil, "reset on empty tree")
	t.current = t.root
}

// CurrentSuccessorNull returns true if the cursor's active successor has
// not been materialized yet.
func (t *ParaTree) CurrentSuccessorNull() bool {
	node := t.Current()
	if int(node.WhichSuccessor) >= len(node.Children) {
		return true
	}
	return node.Children[node.WhichSuccessor] == nil
}

// CurrentNodePath returns the index of the config being explored at the
// cursor. Fatal past the last recorded config.
func (t *ParaTree) CurrentNodePath() uint {
	node := t.Current()
	assert(int(node.WhichSuccessor) < len(node.Configs), "successor out of range: %d >= %d", node.WhichSuccessor, len(node.Configs))
	return node.WhichSuccessor
}

// SymbolicTidFromCurrentNode returns the symbolic thread id owning config
// i of the cursor node.
func (t *ParaTree) SymbolicTidFromCurrentNode(i uint) uint {
	node := t.Current()
	assert(int(i) < len(node.Configs), "config out of range: %d >= %d", i, len(node.Configs))
	return node.Configs[i].SymTid
}

// newThreadSet returns an empty persistent set of thread ids.
func newThreadSet() *immutable.SortedMap {
	return immutable.NewSortedMap(&uint64Comparer{})
}

// threadSetSlice returns the members of a thread set in ascending order.
func threadSetSlice(set *immutable.SortedMap) []uint {
	tids := make([]uint, 0, set.Len())
	for itr := set.Iterator(); !itr.Done(); {
		k, _ := itr.Next()
		tids = append(tids, uint(k.(uint64)))
	}
	return tids
}
