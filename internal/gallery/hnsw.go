package gallery

import (
	"github.com/coder/hnsw"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// HNSW parameters for face embeddings.
const (
	// DefaultHNSWMaxNeighbors (M) is the graph degree.
	DefaultHNSWMaxNeighbors = 16

	// DefaultHNSWCandidates is the number of nearest vectors whose owners
	// are re-scored exactly.
	DefaultHNSWCandidates = 64

	// DefaultHNSWMinVectors is the gallery size, in stored vectors, below
	// which no graph is built and every search is an exact scan.
	DefaultHNSWMinVectors = 10000

	// hnswEfSearch is the lower bound of the search candidate pool.
	hnswEfSearch = 100

	// hnswSearchMultiplier over-fetches neighbours so several vectors of
	// the same identity do not crowd out other identities.
	hnswSearchMultiplier = 3
)

type hnswOptions struct {
	m          int
	candidates int
	minVectors int
}

// graphIndex is an approximate nearest neighbour graph over every stored
// vector of one dimension. Node keys index into owner.
type graphIndex struct {
	graph      *hnsw.Graph[int64]
	owner      []int
	dim        int
	candidates int
}

// buildGraph indexes the vectors sharing the first identity's dimension.
// Vectors of any other dimension are left to the exact scan. It returns nil
// while the gallery holds fewer than opts.minVectors such vectors.
func buildGraph(identities []*domain.EnrolledIdentity, opts hnswOptions) *graphIndex {
	if opts.m <= 0 {
		opts.m = DefaultHNSWMaxNeighbors
	}
	if opts.candidates <= 0 {
		opts.candidates = DefaultHNSWCandidates
	}

	dim := 0
	for _, identity := range identities {
		if d := identity.Dimension(); d > 0 {
			dim = d
			break
		}
	}
	if dim == 0 {
		return nil
	}

	total := 0
	for _, identity := range identities {
		for _, vec := range identity.Candidates() {
			if len(vec) == dim {
				total++
			}
		}
	}
	if total == 0 || total < opts.minVectors {
		return nil
	}

	k := opts.candidates * hnswSearchMultiplier
	g := hnsw.NewGraph[int64]()
	g.M = opts.m
	g.Ml = 1.0 / float64(opts.m)
	g.EfSearch = max(hnswEfSearch, k)
	g.Distance = hnsw.CosineDistance

	gi := &graphIndex{graph: g, dim: dim, candidates: k, owner: make([]int, 0, total)}
	for i, identity := range identities {
		for _, vec := range identity.Candidates() {
			if len(vec) != dim {
				continue
			}
			key := int64(len(gi.owner))
			gi.owner = append(gi.owner, i)
			g.Add(hnsw.MakeNode(key, []float32(vec)))
		}
	}
	return gi
}

// searchGraph collects the identities owning the nearest vectors and
// re-scores them exactly. ok is false when the graph produced nothing.
func (s *snapshot) searchGraph(query domain.Embedding) (*domain.EnrolledIdentity, float64, bool) {
	gi := s.graph
	k := min(gi.candidates, len(gi.owner))

	neighbors := gi.graph.Search([]float32(query), k)
	if len(neighbors) == 0 {
		return nil, -1, false
	}

	bestIdx := -1
	bestScore := -1.0
	scored := make(map[int]struct{}, len(neighbors))
	for _, n := range neighbors {
		i := gi.owner[n.Key]
		if _, done := scored[i]; done {
			continue
		}
		scored[i] = struct{}{}

		score, ok := identityScore(s.identities[i], query)
		if !ok {
			continue
		}
		if bestIdx < 0 || score > bestScore || (score == bestScore && i < bestIdx) {
			bestIdx = i
			bestScore = score
		}
	}

	if bestIdx < 0 {
		return nil, -1, false
	}
	return s.identities[bestIdx], bestScore, true
}
