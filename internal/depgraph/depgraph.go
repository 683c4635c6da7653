// Package depgraph infers dependency edges from a flat event list and
// exposes a DOT exporter for visual inspection. The sweep and
// overlap checks are plain graph-construction code; nothing in the
// retrieved examples wraps this kind of domain-specific inference in a
// library, so it is built directly against the stdlib like the rest of
// tracesmith's analysis packages.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tracesmith/tracesmith/internal/event"
)

// DependencyType is the edge kind.
type DependencyType uint8

const (
	Sequential DependencyType = iota
	Synchronization
	MemoryDependency
	Other
)

func (t DependencyType) String() string {
	switch t {
	case Sequential:
		return "Sequential"
	case Synchronization:
		return "Synchronization"
	case MemoryDependency:
		return "MemoryDependency"
	default:
		return "Other"
	}
}

// NodeID identifies one dependency-graph node. Most nodes are a kernel
// launch/complete pair keyed by correlation id; synchronization events
// carry no correlation id of their own, so they get a synthetic node keyed
// by their position in the input event slice instead.
type NodeID struct {
	Sync          bool
	CorrelationID event.CorrelationID
	EventIndex    int
}

// String renders a stable, human-readable node label used both as the DOT
// node identifier and in Dependency.Description.
func (n NodeID) String() string {
	if n.Sync {
		return fmt.Sprintf("sync_%d", n.EventIndex)
	}
	return fmt.Sprintf("corr_%d", n.CorrelationID)
}

// Dependency is one inferred edge.
type Dependency struct {
	From        NodeID
	To          NodeID
	Type        DependencyType
	Description string
}

// node is an internal timeline node: either a kernel span or a
// synchronization instant, used to drive both the Synchronization and
// Sequential rules.
type node struct {
	id       NodeID
	device   event.DeviceID
	stream   event.StreamID
	name     string
	start    event.Timestamp
	end      event.Timestamp
	isSync   bool
	syncKind event.Kind
}

// Graph is the result of Analyze: every inferred dependency plus the
// aggregate statistics.
type Graph struct {
	Dependencies []Dependency
	NodeLabels   map[NodeID]string
	TotalByType  map[DependencyType]int
	PerStream    map[event.StreamID]int
}

// Analyze infers dependencies from events.
func Analyze(events []event.Event) Graph {
	nodes, corrNode := buildNodes(events)

	var deps []Dependency
	deps = append(deps, synchronizationEdges(nodes)...)
	deps = append(deps, sequentialEdges(nodes, deps)...)
	deps = append(deps, memoryDependencyEdges(events, corrNode)...)

	g := Graph{
		Dependencies: deps,
		NodeLabels:   make(map[NodeID]string),
		TotalByType:  make(map[DependencyType]int),
		PerStream:    make(map[event.StreamID]int),
	}
	for _, n := range nodes {
		g.NodeLabels[n.id] = n.name
	}
	for _, d := range deps {
		g.TotalByType[d.Type]++
	}
	byStream := make(map[NodeID]event.StreamID)
	for _, n := range nodes {
		byStream[n.id] = n.stream
	}
	for _, d := range deps {
		if s, ok := byStream[d.From]; ok {
			g.PerStream[s]++
		}
	}
	return g
}

// buildNodes reconstructs kernel spans (by correlation id) and
// synchronization instants (by event index) in one pass, returning them
// sorted by start timestamp. corrNode maps a correlation id to its kernel
// node, used by the memory-dependency rule.
func buildNodes(events []event.Event) ([]node, map[event.CorrelationID]NodeID) {
	launches := make(map[event.CorrelationID]int)
	var nodes []node
	corrNode := make(map[event.CorrelationID]NodeID)

	for i := range events {
		e := &events[i]
		switch {
		case e.Kind == event.KindKernelLaunch:
			launches[e.CorrelationID] = len(nodes)
			id := NodeID{CorrelationID: e.CorrelationID}
			corrNode[e.CorrelationID] = id
			nodes = append(nodes, node{
				id: id, device: e.DeviceID, stream: e.StreamID, name: e.Name,
				start: e.Timestamp, end: e.Timestamp,
			})
		case e.Kind == event.KindKernelComplete:
			if idx, ok := launches[e.CorrelationID]; ok {
				nodes[idx].end = e.Timestamp
				delete(launches, e.CorrelationID)
			} else {
				id := NodeID{CorrelationID: e.CorrelationID}
				corrNode[e.CorrelationID] = id
				start := e.Timestamp
				if e.Duration != 0 {
					start = e.Timestamp - e.Duration
				}
				nodes = append(nodes, node{
					id: id, device: e.DeviceID, stream: e.StreamID, name: e.Name,
					start: start, end: e.Timestamp,
				})
			}
		case e.Kind.IsSync():
			id := NodeID{Sync: true, EventIndex: i}
			nodes = append(nodes, node{
				id: id, device: e.DeviceID, stream: e.StreamID, name: e.Kind.String(),
				start: e.Timestamp, end: e.Timestamp, isSync: true, syncKind: e.Kind,
			})
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].start < nodes[j].start })
	return nodes, corrNode
}

// synchronizationEdges implements "any StreamSync/DeviceSync/EventSync
// produces a dependency from every in-flight operation on the affected
// stream(s) to the sync event". In-flight means issued since the
// last sync observed on that stream.
func synchronizationEdges(nodes []node) []Dependency {
	lastSync := make(map[event.StreamID]event.Timestamp)
	// streamsByDevice lets a DeviceSync reach every stream of its device
	// that has been seen so far.
	streamsByDevice := make(map[event.DeviceID]map[event.StreamID]bool)
	for _, n := range nodes {
		if streamsByDevice[n.device] == nil {
			streamsByDevice[n.device] = make(map[event.StreamID]bool)
		}
		streamsByDevice[n.device][n.stream] = true
	}

	var deps []Dependency
	for _, s := range nodes {
		if !s.isSync {
			continue
		}
		affected := map[event.StreamID]bool{s.stream: true}
		if s.syncKind == event.KindDeviceSync {
			affected = streamsByDevice[s.device]
		}
		for stream := range affected {
			since := lastSync[stream]
			for _, op := range nodes {
				if op.isSync || op.stream != stream {
					continue
				}
				if op.start >= since && op.end <= s.start {
					deps = append(deps, Dependency{
						From: op.id, To: s.id, Type: Synchronization,
						Description: fmt.Sprintf("%s waits for %s", s.id, op.id),
					})
				}
			}
			lastSync[stream] = s.start
		}
	}
	return deps
}

// sequentialEdges implements "consecutive events on the same stream, same
// device, where the later starts at or after the earlier ends",
// skipping a pair that's already connected by a dependency edge produced
// by another rule (most commonly Synchronization) so the graph doesn't
// carry two parallel edges for the same ordering fact.
func sequentialEdges(nodes []node, existing []Dependency) []Dependency {
	has := make(map[[2]NodeID]bool)
	for _, d := range existing {
		has[[2]NodeID{d.From, d.To}] = true
	}

	byStream := make(map[event.StreamID][]node)
	for _, n := range nodes {
		byStream[n.stream] = append(byStream[n.stream], n)
	}

	var deps []Dependency
	for _, ns := range byStream {
		sort.SliceStable(ns, func(i, j int) bool { return ns[i].start < ns[j].start })
		for i := 1; i < len(ns); i++ {
			a, b := ns[i-1], ns[i]
			if b.start < a.end {
				continue
			}
			if has[[2]NodeID{a.id, b.id}] {
				continue
			}
			deps = append(deps, Dependency{
				From: a.id, To: b.id, Type: Sequential,
				Description: fmt.Sprintf("%s precedes %s", a.id, b.id),
			})
		}
	}
	return deps
}

// memoryDependencyEdges implements "a memcpy whose destination address
// range overlaps the source range of a subsequent memcpy on any stream of
// the same device".
func memoryDependencyEdges(events []event.Event, corrNode map[event.CorrelationID]NodeID) []Dependency {
	type memcpy struct {
		idx   int
		event *event.Event
	}
	var memcpys []memcpy
	for i := range events {
		e := &events[i]
		if e.Kind.IsMemcpy() && e.HasMemoryParams {
			memcpys = append(memcpys, memcpy{idx: i, event: e})
		}
	}

	var deps []Dependency
	for i, earlier := range memcpys {
		for _, later := range memcpys[i+1:] {
			if earlier.event.DeviceID != later.event.DeviceID {
				continue
			}
			if later.event.Timestamp <= earlier.event.Timestamp {
				continue
			}
			if !rangesOverlap(earlier.event.MemoryParams.DstAddr, earlier.event.MemoryParams.ByteCount,
				later.event.MemoryParams.SrcAddr, later.event.MemoryParams.ByteCount) {
				continue
			}
			from := memcpyNode(earlier.event, earlier.idx, corrNode)
			to := memcpyNode(later.event, later.idx, corrNode)
			deps = append(deps, Dependency{
				From: from, To: to, Type: MemoryDependency,
				Description: fmt.Sprintf("%s's destination overlaps %s's source", from, to),
			})
		}
	}
	return deps
}

func memcpyNode(e *event.Event, idx int, corrNode map[event.CorrelationID]NodeID) NodeID {
	if e.CorrelationID != 0 {
		if id, ok := corrNode[e.CorrelationID]; ok {
			return id
		}
		return NodeID{CorrelationID: e.CorrelationID}
	}
	return NodeID{Sync: true, EventIndex: idx}
}

func rangesOverlap(startA, lenA, startB, lenB uint64) bool {
	if lenA == 0 || lenB == 0 {
		return false
	}
	endA := startA + lenA
	endB := startB + lenB
	return startA < endB && startB < endA
}

// DOT renders the graph in the canonical DOT textual format:
// one node per correlation id labelled with the event name, one edge per
// dependency labelled with its type. The graph is acyclic by construction
// since every edge points from a strictly earlier to a strictly later
// timestamp.
func (g Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	seen := make(map[NodeID]bool)
	for _, d := range g.Dependencies {
		for _, id := range [2]NodeID{d.From, d.To} {
			if seen[id] {
				continue
			}
			seen[id] = true
			label := g.NodeLabels[id]
			if label == "" {
				label = id.String()
			}
			fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		}
	}
	for _, d := range g.Dependencies {
		fmt.Fprintf(&b, "  %s -> %s [label=%q];\n", d.From, d.To, d.Type)
	}
	b.WriteString("}\n")
	return b.String()
}
