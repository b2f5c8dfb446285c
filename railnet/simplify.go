package railnet

import (
	"fmt"
	"math"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

// chainNode is one point of a rail modeled as a directed chain with a
// per-segment speed on the outgoing link.
type chainNode struct {
	pos         geo.Position
	prev, next  *chainNode
	speedToNext float64 // valid while next != nil
}

// Simplify resamples the rail in place at a fixed spacing. Runs of points
// crossed by one interval collapse into a single interpolated point that
// carries the minimum speed of the collapsed segments: the value is a
// feasibility ceiling and must never rise above the slowest constituent.
func Simplify(rail *model.Rail, intervalM float64) {
	if len(rail.Points) < 2 || intervalM <= 0 {
		return
	}

	head, tail := buildChain(rail)
	resampleForward(head, intervalM)
	mergeTail(tail, intervalM)
	points, speeds := rebuild(head)

	if len(points)-1 != len(speeds) {
		panic(fmt.Sprintf("simplified rail %s-%s has %d points but %d speeds",
			rail.Start, rail.End, len(points), len(speeds)))
	}
	rail.Points = points
	rail.MaxSpeed = speeds
}

func buildChain(rail *model.Rail) (head, tail *chainNode) {
	head = &chainNode{pos: rail.Points[0]}
	cur := head
	for i := 1; i < len(rail.Points); i++ {
		n := &chainNode{pos: rail.Points[i], prev: cur}
		cur.next = n
		cur.speedToNext = rail.MaxSpeed[i-1]
		cur = n
	}
	return head, cur
}

// walkToDistance walks successors from start until the accumulated distance
// reaches target. It returns the visited nodes and the interpolated point
// inside the final partial segment, or a nil point when the chain ends
// first.
func walkToDistance(start *chainNode, target float64) (visited []*chainNode, interp *geo.Position) {
	accumulated := 0.0
	cur := start
	for {
		next := cur.next
		if next == nil {
			return visited, nil
		}
		segment := cur.pos.DistanceTo(next.pos)
		visited = append(visited, next)
		if accumulated+segment >= target {
			ratio := 0.0
			if segment > 0 {
				ratio = (target - accumulated) / segment
			}
			p := cur.pos.Interpolate(next.pos, ratio)
			return visited, &p
		}
		accumulated += segment
		cur = next
	}
}

func resampleForward(head *chainNode, interval float64) {
	cur := head
	for {
		visited, interp := walkToDistance(cur, interval)
		if interp == nil {
			return
		}
		if len(visited) == 1 {
			// The interval fits inside a single existing segment;
			// leave it untouched and advance one point.
			cur = visited[0]
			continue
		}

		minSpeed := math.Inf(1)
		lastSpeed := 0.0
		walker := cur
		for _, v := range visited {
			minSpeed = math.Min(minSpeed, walker.speedToNext)
			lastSpeed = walker.speedToNext
			walker = v
		}

		last := visited[len(visited)-1]
		node := &chainNode{pos: *interp, prev: cur, next: last, speedToNext: lastSpeed}
		cur.next = node
		cur.speedToNext = minSpeed
		last.prev = node
		cur = node
	}
}

// mergeTail folds the final run of points, too short to hold a full
// interval, back into the last resampling boundary while keeping the
// minimum speed along the merge.
func mergeTail(tail *chainNode, interval float64) {
	minSpeed := math.Inf(1)
	accumulated := 0.0
	cur := tail
	for cur.prev != nil {
		p := cur.prev
		minSpeed = math.Min(minSpeed, p.speedToNext)
		accumulated += p.pos.DistanceTo(cur.pos)
		if accumulated >= interval {
			break
		}
		cur = p
	}
	if cur == tail {
		return
	}
	if cur == tail.prev {
		// Nothing was folded; only the closing segment's speed caps.
		cur.speedToNext = math.Min(cur.speedToNext, minSpeed)
		return
	}
	cur.next = tail
	cur.speedToNext = minSpeed
	tail.prev = cur
}

// rebuild traverses the chain from the start, discarding degenerate
// zero-length segments produced by collapsing.
func rebuild(head *chainNode) ([]geo.Position, []float64) {
	points := []geo.Position{head.pos}
	var speeds []float64
	for n := head; n.next != nil; n = n.next {
		if n.next.pos == points[len(points)-1] {
			continue
		}
		speeds = append(speeds, n.speedToNext)
		points = append(points, n.next.pos)
	}
	return points, speeds
}
