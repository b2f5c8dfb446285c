package railnet

import (
	"github.com/DelaTrain/scraper/geo"
)

// NodeID addresses a node of the track graph. Real map nodes are
// non-negative; virtual station nodes use the stations' negative
// augmented ids.
type NodeID int64

// Edge is one directed track segment.
type Edge struct {
	To     NodeID
	Length float64   // meters
	Speeds []float64 // maxspeed tags on the segment; empty when untagged
}

// TrackGraph is an explicit adjacency structure over raw track geometry.
// It is built once per rail-finder call by the map source and never
// mutated during a search.
type TrackGraph struct {
	pos map[NodeID]geo.Position
	adj map[NodeID][]Edge
}

func NewTrackGraph() *TrackGraph {
	return &TrackGraph{
		pos: map[NodeID]geo.Position{},
		adj: map[NodeID][]Edge{},
	}
}

// AddNode registers a node at the given position. Adding an existing id
// overwrites its position.
func (g *TrackGraph) AddNode(id NodeID, pos geo.Position) {
	g.pos[id] = pos
}

// AddSegment links two registered nodes in both directions with the
// great-circle length of the segment.
func (g *TrackGraph) AddSegment(a, b NodeID, speeds []float64) {
	length := g.pos[a].DistanceTo(g.pos[b])
	g.adj[a] = append(g.adj[a], Edge{To: b, Length: length, Speeds: speeds})
	g.adj[b] = append(g.adj[b], Edge{To: a, Length: length, Speeds: speeds})
}

// HasNode reports whether the id is registered.
func (g *TrackGraph) HasNode(id NodeID) bool {
	_, ok := g.pos[id]
	return ok
}

// Position returns the location of a registered node.
func (g *TrackGraph) Position(id NodeID) geo.Position {
	return g.pos[id]
}

// Neighbors returns the outgoing edges of a node.
func (g *TrackGraph) Neighbors(id NodeID) []Edge {
	return g.adj[id]
}

// NodeCount returns the number of registered nodes.
func (g *TrackGraph) NodeCount() int {
	return len(g.pos)
}

// NodesWithin returns every registered node within radius meters of p.
func (g *TrackGraph) NodesWithin(p geo.Position, radius float64) []NodeID {
	var ids []NodeID
	for id, pos := range g.pos {
		if p.DistanceTo(pos) <= radius {
			ids = append(ids, id)
		}
	}
	return ids
}

// edgeBetween returns the directed edge from a to b, if present.
func (g *TrackGraph) edgeBetween(a, b NodeID) (Edge, bool) {
	for _, e := range g.adj[a] {
		if e.To == b {
			return e, true
		}
	}
	return Edge{}, false
}
