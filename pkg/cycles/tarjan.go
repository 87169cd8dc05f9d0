package cycles

import (
	"slices"

	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds strongly connected components with an explicit stack, so
// long call chains do not grow the goroutine stack. Nodes and successors are
// visited in ascending ID order so results are stable.
type TarjanSCC struct {
	graph   graph.Directed
	counter int
	index   map[int64]int
	low     map[int64]int
	onStack map[int64]bool
	stack   []int64
	sccs    [][]int64
}

// frame is one node on the DFS path and the successors still to visit
type frame struct {
	node   int64
	succ   []int64
	cursor int
}

func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:   g,
		index:   make(map[int64]int),
		low:     make(map[int64]int),
		onStack: make(map[int64]bool),
	}
}

// FindSCCs returns the components with more than one node, each sorted
func (t *TarjanSCC) FindSCCs() [][]int64 {
	for _, id := range sortedIDs(t.graph.Nodes()) {
		if _, seen := t.index[id]; !seen {
			t.walk(id)
		}
	}
	return t.sccs
}

func (t *TarjanSCC) walk(root int64) {
	var path []frame
	enter := func(v int64) {
		t.index[v] = t.counter
		t.low[v] = t.counter
		t.counter++
		t.stack = append(t.stack, v)
		t.onStack[v] = true
		path = append(path, frame{node: v, succ: sortedIDs(t.graph.From(v))})
	}

	enter(root)
	for len(path) > 0 {
		top := &path[len(path)-1]
		if top.cursor < len(top.succ) {
			w := top.succ[top.cursor]
			top.cursor++
			if _, seen := t.index[w]; !seen {
				enter(w)
			} else if t.onStack[w] {
				t.low[top.node] = min(t.low[top.node], t.index[w])
			}
			continue
		}

		v := top.node
		path = path[:len(path)-1]
		if len(path) > 0 {
			parent := path[len(path)-1].node
			t.low[parent] = min(t.low[parent], t.low[v])
		}
		if t.low[v] == t.index[v] {
			t.collect(v)
		}
	}
}

// collect pops the stack down to root; singletons are not cycles
func (t *TarjanSCC) collect(root int64) {
	i := slices.Index(t.stack, root)
	scc := slices.Clone(t.stack[i:])
	t.stack = t.stack[:i]
	for _, w := range scc {
		t.onStack[w] = false
	}
	if len(scc) > 1 {
		slices.Sort(scc)
		t.sccs = append(t.sccs, scc)
	}
}

func sortedIDs(nodes graph.Nodes) []int64 {
	var ids []int64
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	slices.Sort(ids)
	return ids
}
