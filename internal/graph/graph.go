// Package graph is the dependency resolver: a pure function over an
// in-memory snapshot of features. It never mutates its input and holds no
// state of its own between calls.
package graph

import (
	"sort"

	"github.com/autoforge/engine/pkg/models"
)

// Snapshot is the immutable view the resolver operates over: every feature
// in a project, keyed by ID, as read at the start of a single scheduling
// tick.
type Snapshot map[int64]models.Feature

// NodeStatus is the computed status tag attached to a node in Graph's
// output.
type NodeStatus string

const (
	NodeDone       NodeStatus = "done"
	NodeBlocked    NodeStatus = "blocked"
	NodeInProgress NodeStatus = "in_progress"
	NodePending    NodeStatus = "pending"
)

// Edge is a dependency edge a → b meaning a depends on b.
type Edge struct {
	From int64
	To   int64
}

// Node is one feature as it appears in Graph's rendered output.
type Node struct {
	ID     int64
	Status NodeStatus
}

// Result is the rendered graph: nodes with status tags and the edge list.
type Result struct {
	Nodes []Node
	Edges []Edge
}

func nodeStatus(f models.Feature, snap Snapshot) NodeStatus {
	switch {
	case f.Passes:
		return NodeDone
	case f.InProgress:
		return NodeInProgress
	case f.Blocked(snap):
		return NodeBlocked
	default:
		return NodePending
	}
}

// Graph renders every feature in snap with its computed status and the
// full edge list, nodes and edges both sorted by ID for determinism.
func Graph(snap Snapshot) Result {
	var res Result
	for id, f := range snap {
		res.Nodes = append(res.Nodes, Node{ID: id, Status: nodeStatus(f, snap)})
		for _, dep := range f.Dependencies {
			res.Edges = append(res.Edges, Edge{From: id, To: dep})
		}
	}
	sort.Slice(res.Nodes, func(i, j int) bool { return res.Nodes[i].ID < res.Nodes[j].ID })
	sort.Slice(res.Edges, func(i, j int) bool {
		if res.Edges[i].From != res.Edges[j].From {
			return res.Edges[i].From < res.Edges[j].From
		}
		return res.Edges[i].To < res.Edges[j].To
	})
	return res
}

// ReadyFeatures returns up to limit ready features from snap, in
// descending scheduling-score order. A limit of 0 means unbounded.
func ReadyFeatures(snap Snapshot, limit int) []models.Feature {
	var ready []models.Feature
	for _, f := range snap {
		if f.Ready(snap) {
			ready = append(ready, f)
		}
	}
	scores := make(map[int64]score, len(ready))
	for _, f := range ready {
		scores[f.ID] = computeScore(f, snap)
	}
	sort.Slice(ready, func(i, j int) bool {
		return scores[ready[i].ID].less(scores[ready[j].ID])
	})
	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	return ready
}

// BlockedSet describes a blocked feature and the dependency IDs currently
// blocking it (the subset of f.Dependencies whose Passes is false).
type BlockedSet struct {
	Feature   models.Feature
	BlockedBy []int64
}

// BlockedFeatures returns up to limit blocked features from snap, each
// with its current blocking set. A limit of 0 means unbounded.
func BlockedFeatures(snap Snapshot, limit int) []BlockedSet {
	var blocked []BlockedSet
	for _, f := range snap {
		if f.Passes || f.InProgress || !f.Blocked(snap) {
			continue
		}
		var by []int64
		for _, dep := range f.Dependencies {
			if d, ok := snap[dep]; !ok || !d.Passes {
				by = append(by, dep)
			}
		}
		sort.Slice(by, func(i, j int) bool { return by[i] < by[j] })
		blocked = append(blocked, BlockedSet{Feature: f, BlockedBy: by})
	}
	sort.Slice(blocked, func(i, j int) bool { return blocked[i].Feature.ID < blocked[j].Feature.ID })
	if limit > 0 && len(blocked) > limit {
		blocked = blocked[:limit]
	}
	return blocked
}

// score is the tuple compared, in order, to produce the total order
// spec.md §4.B requires: unblock count (desc), transitive depth (asc),
// priority (asc), id (asc).
type score struct {
	unblockCount int
	depth        int
	priority     int64
	id           int64
}

func (s score) less(o score) bool {
	if s.unblockCount != o.unblockCount {
		return s.unblockCount > o.unblockCount
	}
	if s.depth != o.depth {
		return s.depth < o.depth
	}
	if s.priority != o.priority {
		return s.priority < o.priority
	}
	return s.id < o.id
}

func computeScore(f models.Feature, snap Snapshot) score {
	return score{
		unblockCount: countUnblocked(f, snap),
		depth:        transitiveDepth(f, snap),
		priority:     f.Priority,
		id:           f.ID,
	}
}

// countUnblocked counts how many other pending features would become
// ready if f passed: features whose only remaining blocking dependency
// is f.
func countUnblocked(f models.Feature, snap Snapshot) int {
	count := 0
	for _, other := range snap {
		if other.ID == f.ID || other.Passes || other.InProgress {
			continue
		}
		onlyBlockedByF := true
		hasF := false
		for _, dep := range other.Dependencies {
			d, ok := snap[dep]
			if ok && d.Passes {
				continue
			}
			if dep == f.ID {
				hasF = true
				continue
			}
			onlyBlockedByF = false
			break
		}
		if hasF && onlyBlockedByF {
			count++
		}
	}
	return count
}

// transitiveDepth counts f's not-yet-passing transitive dependencies
// (dependencies of dependencies, and so on), excluding f itself. Fewer
// remaining transitive dependencies sorts earlier.
func transitiveDepth(f models.Feature, snap Snapshot) int {
	seen := map[int64]bool{f.ID: true}
	remaining := 0
	var walk func(id int64)
	walk = func(id int64) {
		node, ok := snap[id]
		if !ok {
			return
		}
		for _, dep := range node.Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if d, ok := snap[dep]; ok && !d.Passes {
				remaining++
			}
			walk(dep)
		}
	}
	walk(f.ID)
	return remaining
}

// WouldCycle reports whether adding the edge from→to (from depends on to)
// would introduce a cycle, i.e. whether from is reachable from to by
// following existing dependency edges. An edge from a node to itself
// always cycles.
func WouldCycle(snap Snapshot, from, to int64) bool {
	if from == to {
		return true
	}
	const (
		white = iota
		gray
		black
	)
	color := make(map[int64]int, len(snap))
	var visit func(id int64) bool
	visit = func(id int64) bool {
		if id == from {
			return true
		}
		if color[id] == black || color[id] == gray {
			return false
		}
		color[id] = gray
		if f, ok := snap[id]; ok {
			for _, dep := range f.Dependencies {
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	return visit(to)
}
