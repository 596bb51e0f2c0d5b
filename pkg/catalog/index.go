package catalog

import (
	"github.com/Aviraj-Roy/billverify/pkg/embedding"
	"github.com/Aviraj-Roy/billverify/pkg/model"
)

// Node is one embedded, searchable entry — a hospital or a category.
type Node struct {
	ID             string
	Name           string
	NormalizedName string
	Vector         embedding.Vector
}

// ItemNode is a searchable tie-up item: its node plus the catalog data
// the price checker (§4.F) and bundle-only detection (§4.G) need.
type ItemNode struct {
	Node
	Item model.TieUpItem
}

// Scored pairs a node with its similarity to some query vector.
type Scored struct {
	Node       Node
	Similarity float64
}

// TopOne returns the single highest-similarity node against a query
// vector (spec.md §4.G Stage 1 hospital match, Stage 2 category match).
func TopOne(nodes []Node, query embedding.Vector) (Scored, bool) {
	if len(nodes) == 0 {
		return Scored{}, false
	}
	best := Scored{Node: nodes[0], Similarity: embedding.Dot(nodes[0].Vector, query)}
	for _, n := range nodes[1:] {
		sim := embedding.Dot(n.Vector, query)
		if sim > best.Similarity {
			best = Scored{Node: n, Similarity: sim}
		}
	}
	return best, true
}
