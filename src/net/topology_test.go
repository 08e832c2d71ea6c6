package net

import (
	"reflect"
	"testing"
)

func TestLineTopology(t *testing.T) {
	topo := LineTopology(NodeIDs(3))
	want := map[string][]string{
		"n0": {"n1"},
		"n1": {"n0", "n2"},
		"n2": {"n1"},
	}
	if !reflect.DeepEqual(topo, want) {
		t.Fatalf("got %v, want %v", topo, want)
	}
}

func TestGridTopology(t *testing.T) {
	topo := GridTopology(NodeIDs(5))
	want := map[string][]string{
		"n0": {"n3", "n1"},
		"n1": {"n4", "n0", "n2"},
		"n2": {"n1"},
		"n3": {"n0", "n4"},
		"n4": {"n1", "n3"},
	}
	if !reflect.DeepEqual(topo, want) {
		t.Fatalf("got %v, want %v", topo, want)
	}
}

func TestTopologiesAreSymmetricAndConnected(t *testing.T) {
	for _, kind := range []string{"line", "grid", "full"} {
		for size := 1; size <= 12; size++ {
			ids := NodeIDs(size)
			topo, err := Topology(kind, ids)
			if err != nil {
				t.Fatal(err)
			}

			for node, neighbors := range topo {
				for _, other := range neighbors {
					if other == node {
						t.Fatalf("%s/%d: %s is its own neighbor", kind, size, node)
					}
					if !contains(topo[other], node) {
						t.Fatalf("%s/%d: %s -> %s is not symmetric", kind, size, node, other)
					}
				}
			}

			if reached := reachable(topo, ids[0]); reached != size {
				t.Fatalf("%s/%d: only %d nodes reachable", kind, size, reached)
			}
		}
	}
}

func TestUnknownTopology(t *testing.T) {
	if _, err := Topology("ring", NodeIDs(3)); err == nil {
		t.Fatalf("ring is not a known topology")
	}
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func reachable(topo map[string][]string, from string) int {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range topo[node] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return len(seen)
}
