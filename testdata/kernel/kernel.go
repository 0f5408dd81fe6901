// Package kernel holds a small divergent function compiled to SSA form
// by tests.
package kernel

// Branchy diverges on the thread index and reconverges before the
// return.
func Branchy(tid, x int) int {
	if tid < 4 {
		x += tid
	} else {
		x -= tid
	}
	return x
}
