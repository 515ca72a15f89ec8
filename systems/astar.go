package systems

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// openSearchRings bounds the search for an open tile when the start or
// goal lies on a blocked one.
const openSearchRings = 10

// PathPlanner provides A* pathfinding over walkable tiles. It reuses its
// buffers between searches and is not safe for concurrent use.
type PathPlanner struct {
	terrain       *TerrainSystem
	width, height int

	// Reusable data structures, valid where stamp matches search
	openHeap nodeHeap
	gScore   []float64
	cameFrom []int
	stamp    []uint32
	closed   []uint32
	search   uint32
}

// astarNode is an open-set entry. Stale duplicates are skipped on pop.
type astarNode struct {
	id int
	f  float64 // f = g + h (priority)
}

// nodeHeap implements heap.Interface for the A* open set.
type nodeHeap []astarNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(astarNode)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	*h = old[:n-1]
	return node
}

// neighborOffsets lists cardinal moves first, then diagonals.
var neighborOffsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// NewPathPlanner creates a planner for terrain.
func NewPathPlanner(terrain *TerrainSystem) *PathPlanner {
	grid := terrain.Grid()
	n := grid.Len()
	return &PathPlanner{
		terrain:  terrain,
		width:    grid.Width(),
		height:   grid.Height(),
		gScore:   make([]float64, n),
		cameFrom: make([]int, n),
		stamp:    make([]uint32, n),
		closed:   make([]uint32, n),
	}
}

// FindPath computes a path from start to goal. It returns the waypoints
// after the start in world coordinates, or nil if no path exists.
// Blocked endpoints are moved to the nearest open tile first.
func (a *PathPlanner) FindPath(start, goal r2.Vec) []r2.Vec {
	startID, ok := a.openTile(start)
	if !ok {
		return nil
	}
	goalID, ok := a.openTile(goal)
	if !ok {
		return nil
	}

	// Same tile - no path needed
	if startID == goalID {
		return []r2.Vec{a.centre(goalID)}
	}

	a.search++
	a.openHeap = a.openHeap[:0]
	a.setScore(startID, 0, -1)
	heap.Push(&a.openHeap, astarNode{id: startID, f: a.heuristic(startID, goalID)})

	for a.openHeap.Len() > 0 {
		current := heap.Pop(&a.openHeap).(astarNode)
		if a.closed[current.id] == a.search {
			continue
		}

		// Goal reached
		if current.id == goalID {
			return a.reconstructPath(startID, goalID)
		}
		a.closed[current.id] = a.search

		cx, cy := current.id/a.height, current.id%a.height
		for i, d := range neighborOffsets {
			nx, ny := cx+d[0], cy+d[1]
			if !a.terrain.grid.Walkable(nx, ny) {
				continue
			}

			// Diagonal moves may not cut corners
			if i >= 4 && (!a.terrain.grid.Walkable(cx+d[0], cy) || !a.terrain.grid.Walkable(cx, cy+d[1])) {
				continue
			}

			neighborID := a.terrain.grid.Index(nx, ny)
			if a.closed[neighborID] == a.search {
				continue
			}

			moveCost := 1.0
			if i >= 4 {
				moveCost = math.Sqrt2
			}
			tentativeG := a.gScore[current.id] + moveCost

			if a.stamp[neighborID] == a.search && tentativeG >= a.gScore[neighborID] {
				continue
			}
			a.setScore(neighborID, tentativeG, current.id)
			heap.Push(&a.openHeap, astarNode{id: neighborID, f: tentativeG + a.heuristic(neighborID, goalID)})
		}
	}

	// No path found
	return nil
}

func (a *PathPlanner) setScore(id int, g float64, from int) {
	a.gScore[id] = g
	a.cameFrom[id] = from
	a.stamp[id] = a.search
}

// openTile returns the tile index for p, or the nearest open tile.
func (a *PathPlanner) openTile(p r2.Vec) (int, bool) {
	x, y := a.terrain.tileAt(p.X, p.Y)
	if a.terrain.grid.Walkable(x, y) {
		return a.terrain.grid.Index(x, y), true
	}
	for ring := 1; ring <= openSearchRings; ring++ {
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				if max(abs(dx), abs(dy)) != ring {
					continue
				}
				if a.terrain.grid.Walkable(x+dx, y+dy) {
					return a.terrain.grid.Index(x+dx, y+dy), true
				}
			}
		}
	}
	return 0, false
}

// heuristic computes the Euclidean distance in tiles.
func (a *PathPlanner) heuristic(from, to int) float64 {
	dx := float64(to/a.height - from/a.height)
	dy := float64(to%a.height - from%a.height)
	return math.Hypot(dx, dy)
}

func (a *PathPlanner) centre(id int) r2.Vec {
	return a.terrain.tileCentre(id/a.height, id%a.height)
}

// reconstructPath walks cameFrom back from the goal.
func (a *PathPlanner) reconstructPath(startID, goalID int) []r2.Vec {
	var path []r2.Vec
	for id := goalID; id != -1; id = a.cameFrom[id] {
		path = append(path, a.centre(id))
		if id == startID {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	// Drop the start tile after simplifying against it.
	return a.simplifyPath(path)[1:]
}

// simplifyPath removes waypoints that have line of sight past them.
func (a *PathPlanner) simplifyPath(path []r2.Vec) []r2.Vec {
	if len(path) <= 2 {
		return path
	}

	simplified := make([]r2.Vec, 0, len(path))
	simplified = append(simplified, path[0])
	anchor := path[0]

	for i := 1; i < len(path)-1; i++ {
		if !a.terrain.HasLineOfSight(anchor, path[i+1]) {
			simplified = append(simplified, path[i])
			anchor = path[i]
		}
	}

	return append(simplified, path[len(path)-1])
}
