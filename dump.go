package gklee

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump returns a multi-line trace of one thread's bookkeeping.
func (ct CorrespondTid) Dump() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "bid=%d tid=%d warp=%d sync=%v barrier=%v inBranch=%v\n", ct.RBid, ct.RTid, ct.WarpNum, ct.SyncEncounter, ct.BarrierEncounter, ct.InBranch)
	if ct.InheritExpr != nil {
		fmt.Fprintf(&buf, "inherit=%s\n", ct.InheritExpr.String())
	}
	return buf.String()
}

// DumpCorrespondTids returns a trace of a whole thread-bookkeeping set.
func DumpCorrespondTids(cTids []CorrespondTid) string {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "THREADS")
	fmt.Fprintln(&buf, "=======")
	for i, ct := range cTids {
		fmt.Fprintf(&buf, "== THREAD #%d\n", i)
		fmt.Fprint(&buf, ct.Dump())
	}
	return buf.String()
}

// Dump returns a single-line trace of the config.
func (c *ParaConfig) Dump() string {
	cond := "<nil>"
	if c.Cond != nil {
		cond = c.Cond.String()
	}
	return fmt.Sprintf("sym=(%d,%d) range=[%d,%d) sync=%v postDom=%v cond=%s", c.SymBid, c.SymTid, c.Start, c.End, c.SyncEncounter, c.PostDomEncounter, cond)
}

// Dump returns a multi-line trace of the node and its configs.
func (n *ParaTreeNode) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "type=%s condBr=%v allSync=%v successor=%d\n", n.SymBrType, n.IsCondBr, n.AllSync, n.WhichSuccessor)
	if n.BrInst != nil {
		fmt.Fprintf(&buf, "br=%s\n", n.BrInst.String())
	}
	if n.PostDom != nil {
		fmt.Fprintf(&buf, "postDom=%s\n", n.PostDom.String())
	}
	if n.InheritCond != nil {
		fmt.Fprintf(&buf, "inherit=%s\n", n.InheritCond.String())
	}
	for i, config := range n.Configs {
		fmt.Fprintf(&buf, "config %d: %s\n", i, config.Dump())
		fmt.Fprintf(&buf, "  rep=%v diverge=%v\n", threadSetSlice(n.RepThreadSets[i]), threadSetSlice(n.DivergeThreadSets[i]))
	}
	return buf.String()
}

// Dump returns an indented trace of the whole tree.
func (t *ParaTree) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "PARA TREE")
	fmt.Fprintln(&buf, "=========")
	fmt.Fprintf(&buf, "nodes=%d\n", t.nodeNum)
	if t.root == nil {
		fmt.Fprintln(&buf, "<empty>")
		return buf.String()
	}
	t.dumpNode(&buf, t.root, 0)
	return buf.String()
}

func (t *ParaTree) dumpNode(buf *bytes.Buffer, node *ParaTreeNode, depth int) {
	prefix := strings.Repeat("  ", depth)

	marker := ""
	if node == t.current {
		marker = " <- current"
	}
	fmt.Fprintf(buf, "%s== NODE%s\n", prefix, marker)
	for _, line := range strings.Split(strings.TrimRight(node.Dump(), "\n"), "\n") {
		fmt.Fprintf(buf, "%s%s\n", prefix, line)
	}
	for _, child := range node.Children {
		if child != nil {
			t.dumpNode(buf, child, depth+1)
		}
	}
}

// DumpVerbose returns a deep field-by-field dump of the tree for
// debugging. Not stable output; diagnostics only.
func (t *ParaTree) DumpVerbose() string {
	return dumpConfig.Sdump(t.root)
}
