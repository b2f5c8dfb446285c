package railnet

import (
	"container/heap"
	"math"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

// Finder searches the track-geometry graph for rails from one station to a
// set of nearby candidate stations. The graph is augmented with one virtual
// node per station, connected to every real node inside the station's
// hitbox by penalized synthetic edges, and a single shortest-path pass
// emits one rail per candidate actually reached.
type Finder struct {
	HitboxRadius          float64 // meters; a node inside it is "at" the station
	AugmentMultiplier     float64 // weight penalty on virtual edges
	MaxTurnDegrees        float64 // max direction change at a real middle node
	ForeignCutoffMultiple float64 // hitbox multiple after which the foreign cutoff applies
	SamplingInterval      float64 // meters between samples of the line-crossing check
	SearchCutoff          float64 // meters; candidates beyond it are ignored
	DefaultSpeed          float64 // km/h for untagged segments
}

type searchEntry struct {
	node NodeID
	dist float64
	seq  int
}

// searchQueue orders entries by distance, ties broken by insertion order.
type searchQueue []searchEntry

func (q searchQueue) Len() int { return len(q) }
func (q searchQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q searchQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *searchQueue) Push(x any)   { *q = append(*q, x.(searchEntry)) }
func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// Find runs the augmented shortest-path search from station over graph and
// returns one canonical rail per reachable candidate, plus the refined
// station location: the arithmetic mean of the near-endpoints of the
// emitted rails. With no rail found the station's own best location is
// returned unchanged.
func (f *Finder) Find(station *model.Station, candidates []*model.Station, graph *TrackGraph) ([]*model.Rail, geo.Position) {
	origin := station.BestLocation()

	reachable := make([]*model.Station, 0, len(candidates))
	for _, c := range candidates {
		if c.Name == station.Name {
			continue
		}
		if origin.DistanceTo(c.BestLocation()) <= f.SearchCutoff {
			reachable = append(reachable, c)
		}
	}

	s := &search{
		finder:     f,
		graph:      graph,
		origin:     station,
		originPos:  origin,
		candidates: reachable,
		virtual:    map[NodeID]*model.Station{},
		links:      map[NodeID][]Edge{},
		dist:       map[NodeID]float64{},
		prev:       map[NodeID]NodeID{},
		foreign:    map[NodeID]bool{},
		done:       map[NodeID]bool{},
	}
	s.augment()
	s.run()
	return s.collect()
}

// search holds the per-call state of one shortest-path pass. It is local to
// one Find invocation and discarded on return.
type search struct {
	finder     *Finder
	graph      *TrackGraph
	origin     *model.Station
	originPos  geo.Position
	candidates []*model.Station

	virtual map[NodeID]*model.Station // augmented id -> station
	links   map[NodeID][]Edge         // synthetic edges, both directions

	dist    map[NodeID]float64
	prev    map[NodeID]NodeID
	foreign map[NodeID]bool
	done    map[NodeID]bool
	queue   searchQueue
	seq     int
}

// augment attaches one virtual node per station (origin included) to every
// real node inside the station's hitbox.
func (s *search) augment() {
	stations := append([]*model.Station{s.origin}, s.candidates...)
	for _, st := range stations {
		vid := NodeID(st.AugmentedNodeID())
		s.virtual[vid] = st
		loc := st.BestLocation()
		for _, real := range s.graph.NodesWithin(loc, s.finder.HitboxRadius) {
			w := loc.DistanceTo(s.graph.Position(real)) * s.finder.AugmentMultiplier
			s.links[vid] = append(s.links[vid], Edge{To: real, Length: w})
			s.links[real] = append(s.links[real], Edge{To: vid, Length: w})
		}
	}
}

func (s *search) position(id NodeID) geo.Position {
	if st, ok := s.virtual[id]; ok {
		return st.BestLocation()
	}
	return s.graph.Position(id)
}

func (s *search) neighbors(id NodeID) []Edge {
	if id < 0 {
		return s.links[id]
	}
	edges := s.graph.Neighbors(id)
	extra := s.links[id]
	if len(extra) == 0 {
		return edges
	}
	out := make([]Edge, 0, len(edges)+len(extra))
	out = append(out, edges...)
	out = append(out, extra...)
	return out
}

func (s *search) push(id NodeID, dist float64) {
	heap.Push(&s.queue, searchEntry{node: id, dist: dist, seq: s.seq})
	s.seq++
}

func (s *search) run() {
	originID := NodeID(s.origin.AugmentedNodeID())
	s.dist[originID] = 0
	s.push(originID, 0)

	for s.queue.Len() > 0 {
		entry := heap.Pop(&s.queue).(searchEntry)
		u := entry.node
		if s.done[u] {
			continue
		}
		s.done[u] = true
		// Candidate virtual nodes are terminal: a path may end at a
		// station but never relay through it.
		if u < 0 && u != originID {
			continue
		}
		for _, e := range s.neighbors(u) {
			s.relax(u, e)
		}
	}
}

func (s *search) relax(u NodeID, e Edge) {
	v := e.To
	if s.done[v] {
		return
	}
	if s.foreign[u] && v >= 0 {
		// A node inside another station's hitbox may only continue
		// toward the origin's immediate vicinity (two stations can sit
		// nearly on top of each other) or hop onto a virtual node.
		if s.position(v).DistanceTo(s.originPos) > s.finder.HitboxRadius {
			return
		}
	}
	if u >= 0 && v >= 0 {
		if p, ok := s.prev[u]; ok && p >= 0 {
			turn := directionChange(s.position(p), s.position(u), s.position(v))
			if turn > s.finder.MaxTurnDegrees {
				return
			}
		}
	}
	nd := s.dist[u] + e.Length
	if best, ok := s.dist[v]; ok && nd >= best {
		return
	}
	s.dist[v] = nd
	s.prev[v] = u
	s.foreign[v] = s.isForeign(u, v, nd)
	s.push(v, nd)
}

// isForeign decides the "currently within another station's hitbox" flag
// for v. The cutoff only applies once the path has traveled past a small
// multiple of the hitbox radius, so overlapping hitboxes around the origin
// never trigger it.
func (s *search) isForeign(u, v NodeID, traveled float64) bool {
	if v < 0 {
		return false
	}
	if traveled <= s.finder.ForeignCutoffMultiple*s.finder.HitboxRadius {
		return false
	}
	if s.foreignStationAt(s.position(v)) {
		return true
	}
	// Geometry-only edges can pass close to a station without a graph
	// node there; sample the straight segment at a fixed interval.
	if u >= 0 {
		return s.segmentCrossesHitbox(s.position(u), s.position(v))
	}
	return false
}

func (s *search) foreignStationAt(p geo.Position) bool {
	for _, c := range s.candidates {
		if c.BestLocation().DistanceTo(p) <= s.finder.HitboxRadius {
			return true
		}
	}
	return false
}

func (s *search) segmentCrossesHitbox(a, b geo.Position) bool {
	length := a.DistanceTo(b)
	if length <= s.finder.SamplingInterval {
		return false
	}
	steps := int(length / s.finder.SamplingInterval)
	for i := 1; i <= steps; i++ {
		sample := a.Interpolate(b, float64(i)*s.finder.SamplingInterval/length)
		if s.foreignStationAt(sample) {
			return true
		}
	}
	return false
}

// collect reconstructs one rail per candidate present in the predecessor
// map, walking predecessors back to the origin. Virtual hops contribute no
// point; each traversed real edge contributes one speed value.
func (s *search) collect() ([]*model.Rail, geo.Position) {
	originID := NodeID(s.origin.AugmentedNodeID())
	var rails []*model.Rail
	var latSum, lonSum float64

	for _, c := range s.candidates {
		vid := NodeID(c.AugmentedNodeID())
		if _, ok := s.prev[vid]; !ok {
			continue
		}

		var reversed []NodeID
		cur := vid
		for cur != originID {
			if cur >= 0 {
				reversed = append(reversed, cur)
			}
			cur = s.prev[cur]
		}
		if len(reversed) < 2 {
			continue
		}

		points := make([]geo.Position, len(reversed))
		for i, id := range reversed {
			points[len(reversed)-1-i] = s.graph.Position(id)
		}
		speeds := make([]float64, 0, len(points)-1)
		for i := 0; i+1 < len(points); i++ {
			from := reversed[len(reversed)-1-i]
			to := reversed[len(reversed)-2-i]
			speeds = append(speeds, s.edgeSpeed(from, to))
		}

		near := points[0]
		latSum += near.Latitude
		lonSum += near.Longitude
		rails = append(rails, model.NewRail(s.origin.Name, c.Name, points, speeds))
	}

	if len(rails) == 0 {
		return nil, s.origin.BestLocation()
	}
	n := float64(len(rails))
	return rails, geo.Position{Latitude: latSum / n, Longitude: lonSum / n}
}

// edgeSpeed averages the speed tags of the real edge, falling back to the
// default for untagged track.
func (s *search) edgeSpeed(from, to NodeID) float64 {
	e, ok := s.graph.edgeBetween(from, to)
	if !ok || len(e.Speeds) == 0 {
		return s.finder.DefaultSpeed
	}
	sum := 0.0
	for _, v := range e.Speeds {
		sum += v
	}
	return sum / float64(len(e.Speeds))
}

// directionChange returns the deviation from a straight continuation, in
// degrees, when traveling a -> b -> c. A straight line yields 0.
func directionChange(a, b, c geo.Position) float64 {
	x1, y1 := planarVector(a, b)
	x2, y2 := planarVector(b, c)
	if (x1 == 0 && y1 == 0) || (x2 == 0 && y2 == 0) {
		return 0
	}
	dot := x1*x2 + y1*y2
	cross := x1*y2 - y1*x2
	return math.Abs(math.Atan2(cross, dot)) * 180 / math.Pi
}

// planarVector projects the segment a -> b onto a local flat plane, good
// enough for angle comparison over track-segment scales.
func planarVector(a, b geo.Position) (x, y float64) {
	midLat := (a.Latitude + b.Latitude) / 2 * math.Pi / 180
	x = (b.Longitude - a.Longitude) * math.Cos(midLat)
	y = b.Latitude - a.Latitude
	return x, y
}
