package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/quadflow/internal/diagram"
)

// GenerateMermaid produces a Mermaid graph LR diagram from a mapping.
// Connected instance-level nodes are grouped into subgraphs; schema
// elements and placeholders get their own classes.
func GenerateMermaid(res diagram.Result) string {
	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string, len(res.Nodes))
	for i, n := range res.Nodes {
		nodeIDs[n.ID] = fmt.Sprintf("N%d", i)
	}

	clusters := diagram.ComputeClusters(res, func(n diagram.Node) bool { return !n.IsSchemaElement })
	clustered := make(map[string]bool)
	for _, c := range clusters {
		for _, member := range c.Members {
			clustered[member] = true
		}
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("  classDef schema fill:#e8f0fe,stroke:#3367d6\n")
	sb.WriteString("  classDef placeholder stroke-dasharray: 4 4\n")

	byID := make(map[string]diagram.Node, len(res.Nodes))
	for _, n := range res.Nodes {
		byID[n.ID] = n
	}

	for i, c := range clusters {
		name := c.Name
		if name == "" {
			name = "group"
		}
		sb.WriteString(fmt.Sprintf("  subgraph C%d[\"%.40s\"]\n", i, escape(name)))
		for _, member := range c.Members {
			writeNode(&sb, "    ", nodeIDs[member], byID[member])
		}
		sb.WriteString("  end\n")
	}
	for _, n := range res.Nodes {
		if clustered[n.ID] {
			continue
		}
		writeNode(&sb, "  ", nodeIDs[n.ID], n)
	}

	for _, e := range res.Edges {
		src, ok1 := nodeIDs[e.Source]
		tgt, ok2 := nodeIDs[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s -->|\"%s\"| %s\n", src, escape(shortIRI(e.PredicatePrefixed, e.Predicate)), tgt))
	}

	for _, n := range res.Nodes {
		switch {
		case n.Placeholder:
			sb.WriteString(fmt.Sprintf("  class %s placeholder\n", nodeIDs[n.ID]))
		case n.IsSchemaElement:
			sb.WriteString(fmt.Sprintf("  class %s schema\n", nodeIDs[n.ID]))
		}
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, indent, id string, n diagram.Node) {
	label := n.Label
	if label == "" {
		label = shortIRI(n.Prefixed, n.ID)
	}
	if n.IsSchemaElement {
		sb.WriteString(fmt.Sprintf("%s%s[[\"%s\"]]\n", indent, id, escape(label)))
		return
	}
	sb.WriteString(fmt.Sprintf("%s%s[\"%s\"]\n", indent, id, escape(label)))
}

// shortIRI prefers the compact form, then the local name after the last
// '#' or '/'.
func shortIRI(prefixed, iri string) string {
	if prefixed != "" {
		return prefixed
	}
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
