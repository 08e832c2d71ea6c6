package net

import (
	"fmt"
	"math"
)

// NodeIDs returns count node ids, n0 to n<count-1>.
func NodeIDs(count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	return ids
}

// LineTopology connects every node to the previous and the next one.
func LineTopology(ids []string) map[string][]string {
	topo := make(map[string][]string, len(ids))
	for i, id := range ids {
		neighbors := []string{}
		if i > 0 {
			neighbors = append(neighbors, ids[i-1])
		}
		if i < len(ids)-1 {
			neighbors = append(neighbors, ids[i+1])
		}
		topo[id] = neighbors
	}
	return topo
}

// GridTopology lays the nodes out row by row on a square grid and connects
// every node to the nodes above, below, left and right of it.
func GridTopology(ids []string) map[string][]string {
	width := int(math.Ceil(math.Sqrt(float64(len(ids)))))
	topo := make(map[string][]string, len(ids))

	for i, id := range ids {
		neighbors := []string{}
		if i >= width {
			neighbors = append(neighbors, ids[i-width])
		}
		if i+width < len(ids) {
			neighbors = append(neighbors, ids[i+width])
		}
		if i%width > 0 {
			neighbors = append(neighbors, ids[i-1])
		}
		if i%width < width-1 && i+1 < len(ids) {
			neighbors = append(neighbors, ids[i+1])
		}
		topo[id] = neighbors
	}

	return topo
}

// FullTopology connects every node to every other node.
func FullTopology(ids []string) map[string][]string {
	topo := make(map[string][]string, len(ids))
	for _, id := range ids {
		neighbors := make([]string, 0, len(ids)-1)
		for _, other := range ids {
			if other != id {
				neighbors = append(neighbors, other)
			}
		}
		topo[id] = neighbors
	}
	return topo
}

// Topology builds the named topology: line, grid or full.
func Topology(kind string, ids []string) (map[string][]string, error) {
	switch kind {
	case "line":
		return LineTopology(ids), nil
	case "grid":
		return GridTopology(ids), nil
	case "full":
		return FullTopology(ids), nil
	default:
		return nil, fmt.Errorf("unknown topology %q", kind)
	}
}
