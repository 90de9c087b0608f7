package dag

import (
	"container/heap"
	"sort"
)

// Sort returns a total order over stage identifiers in which every stage
// appears after all stages it depends on. Ties among ready stages are broken
// by declaration order, so the same document always yields the same order.
// If the graph contains a cycle, Sort fails with a CyclicPipelineError
// listing the stages on the cycle and no order is produced.
func (g *Graph) Sort() ([]string, error) {
	if cycle := g.findCycle(); cycle != nil {
		return nil, &CyclicPipelineError{Stages: cycle}
	}

	// Kahn's algorithm with a declaration-index heap for deterministic
	// tie-breaking among stages whose dependencies are all satisfied.
	indegree := make(map[string]int, len(g.nodes))
	ready := &nodeHeap{}
	for _, id := range g.order {
		n := g.nodes[id]
		indegree[id] = len(n.deps)
		if indegree[id] == 0 {
			heap.Push(ready, n)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*node)
		order = append(order, n.id)
		for _, dependent := range n.sortedDependents() {
			indegree[dependent.id]--
			if indegree[dependent.id] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	return order, nil
}

// findCycle runs a depth-first search with the classic temporary/permanent
// marking and returns the stages on the first cycle encountered, or nil.
// Traversal follows declaration order so the reported cycle is stable.
func (g *Graph) findCycle() []string {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(n *node) bool
	visit = func(n *node) bool {
		if permanent[n.id] {
			return false
		}
		if temporary[n.id] {
			// The nodes from the first occurrence of n.id on the stack to
			// its top are exactly the cycle members.
			for i, id := range stack {
				if id == n.id {
					cycle = append(cycle, stack[i:]...)
					return true
				}
			}
			return true
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		for _, dependent := range n.sortedDependents() {
			if visit(dependent) {
				return true
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true
		return false
	}

	for _, id := range g.order {
		if !permanent[id] {
			if visit(g.nodes[id]) {
				return cycle
			}
		}
	}
	return nil
}

func (n *node) sortedDependents() []*node {
	out := make([]*node, 0, len(n.dependents))
	for _, dep := range n.dependents {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].declIndex < out[j].declIndex })
	return out
}

// nodeHeap orders ready nodes by declaration index.
type nodeHeap []*node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].declIndex < h[j].declIndex }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(*node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
