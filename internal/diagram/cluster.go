package diagram

import (
	"sort"
	"strings"
)

// Cluster is a connected group of nodes.
type Cluster struct {
	Name     string   `json:"name"`
	Members  []string `json:"members"`
	Cohesion float64  `json:"cohesion"`
}

// ComputeClusters finds the connected components of res among the nodes
// accepted by include (nil accepts all), treating edges as undirected.
//
// Algorithm:
//  1. Build an adjacency list from the edges among all nodes.
//  2. Find connected components over included nodes via BFS.
//  3. Keep components with >= 2 members and score their cohesion.
func ComputeClusters(res Result, include func(Node) bool) []Cluster {
	in := make(map[string]bool, len(res.Nodes))
	for _, n := range res.Nodes {
		if include == nil || include(n) {
			in[n.ID] = true
		}
	}
	adj := buildAdjacency(res)

	visited := make(map[string]bool, len(in))
	var clusters []Cluster
	for _, n := range res.Nodes {
		if !in[n.ID] || visited[n.ID] {
			continue
		}
		component := bfsComponent(n.ID, adj, in, visited)
		if len(component) < 2 {
			continue
		}
		sort.Strings(component)
		clusters = append(clusters, Cluster{
			Name:     commonNamespace(component),
			Members:  component,
			Cohesion: computeCohesion(component, adj),
		})
	}
	return clusters
}

func buildAdjacency(res Result) map[string]map[string]bool {
	adj := make(map[string]map[string]bool, len(res.Nodes))
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		adj[a][b] = true
	}
	for _, e := range res.Edges {
		if e.Source == e.Target {
			continue
		}
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}
	return adj
}

// bfsComponent walks from start through included nodes, marking them
// visited.
func bfsComponent(start string, adj map[string]map[string]bool, in, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for _, neighbor := range sortedKeys(adj[node]) {
			if in[neighbor] && !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return component
}

// computeCohesion is internal_edges / (internal_edges + external_edges),
// where external edges leave the component.
func computeCohesion(component []string, adj map[string]map[string]bool) float64 {
	member := make(map[string]bool, len(component))
	for _, m := range component {
		member[m] = true
	}

	internal, external := 0, 0
	for _, m := range component {
		for neighbor := range adj[m] {
			if member[neighbor] {
				if m < neighbor {
					internal++
				}
			} else {
				external++
			}
		}
	}
	if internal+external == 0 {
		return 0
	}
	return float64(internal) / float64(internal+external)
}

// commonNamespace returns the longest prefix shared by ids that ends at a
// '/' or '#' boundary.
func commonNamespace(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	prefix := ids[0]
	for _, id := range ids[1:] {
		for !strings.HasPrefix(id, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	if i := strings.LastIndexAny(prefix, "/#"); i >= 0 {
		return prefix[:i+1]
	}
	return ""
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
