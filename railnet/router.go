package railnet

import (
	"fmt"
	"math"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

// RouteError describes one consecutive stop pair the analyzer could not
// explain. It is reported, never raised: analysis of other pairs and other
// trains must continue.
type RouteError struct {
	From   string
	To     string
	Reason string
}

func (e RouteError) Error() string {
	return fmt.Sprintf("%s -> %s: %s", e.From, e.To, e.Reason)
}

type stationEdge struct {
	to     string
	length float64
	rail   model.StationPair
}

// StationGraph is the undirected station-connectivity graph built from
// known rails. Edge weights are rail lengths; each edge remembers its
// originating rail.
type StationGraph struct {
	adj map[string][]stationEdge
	pos map[string]geo.Position
}

func NewStationGraph() *StationGraph {
	return &StationGraph{
		adj: map[string][]stationEdge{},
		pos: map[string]geo.Position{},
	}
}

// AddRail inserts the rail as an undirected edge between its endpoint
// stations, registering the stations' best-known locations.
func (g *StationGraph) AddRail(rail *model.Rail, startPos, endPos geo.Position) {
	g.pos[rail.Start] = startPos
	g.pos[rail.End] = endPos
	length := rail.Length()
	key := rail.Key()
	g.adj[rail.Start] = append(g.adj[rail.Start], stationEdge{to: rail.End, length: length, rail: key})
	g.adj[rail.End] = append(g.adj[rail.End], stationEdge{to: rail.Start, length: length, rail: key})
}

func (g *StationGraph) directEdge(a, b string) (model.StationPair, bool) {
	for _, e := range g.adj[a] {
		if e.to == b {
			return e.rail, true
		}
	}
	return model.StationPair{}, false
}

// shortestPath runs Dijkstra between two stations and returns the node
// sequence, its total length, and the rails traversed.
func (g *StationGraph) shortestPath(from, to string) ([]string, float64, []model.StationPair, bool) {
	dist := map[string]float64{from: 0}
	prev := map[string]string{}
	prevRail := map[string]model.StationPair{}
	done := map[string]bool{}

	for {
		u := ""
		best := math.Inf(1)
		for name, d := range dist {
			if !done[name] && d < best {
				u, best = name, d
			}
		}
		if u == "" {
			break
		}
		if u == to {
			break
		}
		done[u] = true
		for _, e := range g.adj[u] {
			if done[e.to] {
				continue
			}
			nd := best + e.length
			if old, ok := dist[e.to]; !ok || nd < old {
				dist[e.to] = nd
				prev[e.to] = u
				prevRail[e.to] = e.rail
			}
		}
	}

	total, ok := dist[to]
	if !ok {
		return nil, 0, nil, false
	}
	var path []string
	var rails []model.StationPair
	for cur := to; ; {
		path = append([]string{cur}, path...)
		if cur == from {
			break
		}
		rails = append(rails, prevRail[cur])
		cur = prev[cur]
	}
	return path, total, rails, true
}

// AnalyzeTrain derives routing rules for every consecutive stop pair of the
// train that is not directly connected by a known rail. It returns the
// rules, the set of rails any accepted path (or direct edge) uses, and a
// keyed error per unexplainable pair.
func (g *StationGraph) AnalyzeTrain(train *model.Train, maxDetourMultiplier float64) ([]*model.RoutingRule, []model.StationPair, []RouteError) {
	var rules []*model.RoutingRule
	var used []model.StationPair
	var errs []RouteError

	for i := 0; i+1 < len(train.Stops); i++ {
		start := train.Stops[i].StationName
		end := train.Stops[i+1].StationName
		if start == end {
			continue
		}
		if rail, ok := g.directEdge(start, end); ok {
			used = append(used, rail)
			continue
		}

		startPos, okStart := g.pos[start]
		endPos, okEnd := g.pos[end]
		if !okStart || !okEnd {
			errs = append(errs, RouteError{From: start, To: end, Reason: "station not in rail graph"})
			continue
		}

		path, length, pathRails, ok := g.shortestPath(start, end)
		if !ok {
			errs = append(errs, RouteError{From: start, To: end, Reason: "no path through known rails"})
			continue
		}
		direct := startPos.DistanceTo(endPos)
		if length > direct*maxDetourMultiplier {
			errs = append(errs, RouteError{
				From: start,
				To:   end,
				Reason: fmt.Sprintf("path %.0f m implausibly longer than direct %.0f m", length, direct),
			})
			continue
		}

		via := append([]string{}, path[1:len(path)-1]...)
		rules = append(rules, model.NewRoutingRule(start, end, via))
		used = append(used, pathRails...)
	}
	return rules, used, errs
}
