package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Store persists enrolled identities.
type Store interface {
	LoadAll(ctx context.Context) ([]*domain.EnrolledIdentity, error)
	Append(ctx context.Context, identity *domain.EnrolledIdentity) error
}

// Index is the in-memory gallery. Readers load an immutable snapshot
// without locking; writers serialize on mu and publish a new snapshot
// only after the store accepted the identity.
type Index struct {
	store  Store
	logger *slog.Logger
	hnsw   *hnswOptions

	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	identities []*domain.EnrolledIdentity
	byAccount  map[string]int
	graph      *graphIndex
}

// Option configures an Index.
type Option func(*Index)

// WithHNSW enables the approximate search accelerator. m is the graph
// degree and candidates the number of nearest vectors re-scored exactly.
// The graph is only built once the gallery holds DefaultHNSWMinVectors
// vectors; smaller galleries keep the exact scan.
func WithHNSW(m, candidates int) Option {
	return func(idx *Index) {
		idx.hnsw = &hnswOptions{m: m, candidates: candidates, minVectors: DefaultHNSWMinVectors}
	}
}

// WithHNSWMinVectors overrides the gallery size at which the graph takes
// over from the exact scan. It has no effect without WithHNSW.
func WithHNSWMinVectors(n int) Option {
	return func(idx *Index) {
		if idx.hnsw != nil {
			idx.hnsw.minVectors = n
		}
	}
}

func NewIndex(store Store, logger *slog.Logger, opts ...Option) *Index {
	idx := &Index{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.current.Store(idx.buildSnapshot(nil))
	return idx
}

// Load replaces the gallery with the store's contents. Duplicate account
// ids keep their first occurrence.
func (idx *Index) Load(ctx context.Context) error {
	identities, err := idx.store.LoadAll(ctx)
	if err != nil {
		return domain.ErrGalleryUnavailable.WithError(fmt.Errorf("load gallery: %w", err))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[string]struct{}, len(identities))
	unique := make([]*domain.EnrolledIdentity, 0, len(identities))
	for _, identity := range identities {
		if _, dup := seen[identity.AccountID]; dup {
			idx.logger.Warn("duplicate account in gallery store, keeping first",
				"account_id", identity.AccountID,
			)
			continue
		}
		seen[identity.AccountID] = struct{}{}
		unique = append(unique, identity)
	}

	idx.current.Store(idx.buildSnapshot(unique))
	idx.logger.Info("gallery loaded",
		"identities", len(unique),
		"hnsw", idx.hnsw != nil,
		"graph", idx.current.Load().graph != nil,
	)
	return nil
}

// Add persists identity and makes it visible to searches.
func (idx *Index) Add(ctx context.Context, identity *domain.EnrolledIdentity) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap := idx.current.Load()
	if _, exists := snap.byAccount[identity.AccountID]; exists {
		return domain.ErrDuplicateAccount
	}

	if err := idx.store.Append(ctx, identity); err != nil {
		return fmt.Errorf("persist identity %s: %w", identity.AccountID, err)
	}

	next := make([]*domain.EnrolledIdentity, len(snap.identities), len(snap.identities)+1)
	copy(next, snap.identities)
	next = append(next, identity)

	idx.current.Store(idx.buildSnapshot(next))
	return nil
}

// Search returns the identity whose stored embeddings are most similar to
// query together with that similarity. Every sample embedding and the mean
// take part; an identity scores its best vector. Ties keep the earlier
// enrolled identity. An empty gallery, or one with no vector of the query's
// dimension, yields (nil, -1).
func (idx *Index) Search(query domain.Embedding) (*domain.EnrolledIdentity, float64) {
	snap := idx.current.Load()
	if len(snap.identities) == 0 || len(query) == 0 {
		return nil, -1
	}

	if snap.graph != nil && snap.graph.dim == len(query) {
		if best, score, ok := snap.searchGraph(query); ok {
			return best, score
		}
	}
	return snap.searchExact(query)
}

func (s *snapshot) searchExact(query domain.Embedding) (*domain.EnrolledIdentity, float64) {
	bestIdx := -1
	bestScore := -1.0
	for i, identity := range s.identities {
		score, ok := identityScore(identity, query)
		if !ok {
			continue
		}
		if bestIdx < 0 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestIdx < 0 {
		return nil, -1
	}
	return s.identities[bestIdx], bestScore
}

// identityScore is the maximum similarity of query over the identity's
// vectors of matching dimension.
func identityScore(identity *domain.EnrolledIdentity, query domain.Embedding) (float64, bool) {
	var best float64
	found := false
	for _, candidate := range identity.Candidates() {
		score, ok := CosineSimilarity(query, candidate)
		if !ok {
			continue
		}
		if !found || score > best {
			best = score
			found = true
		}
	}
	return best, found
}

// Get returns the identity enrolled for accountID.
func (idx *Index) Get(accountID string) (*domain.EnrolledIdentity, bool) {
	snap := idx.current.Load()
	i, ok := snap.byAccount[accountID]
	if !ok {
		return nil, false
	}
	return snap.identities[i], true
}

func (idx *Index) Contains(accountID string) bool {
	_, ok := idx.current.Load().byAccount[accountID]
	return ok
}

func (idx *Index) Len() int {
	return len(idx.current.Load().identities)
}

// List returns identity summaries in enrollment order.
func (idx *Index) List() []domain.IdentitySummary {
	snap := idx.current.Load()
	out := make([]domain.IdentitySummary, len(snap.identities))
	for i, identity := range snap.identities {
		out[i] = identity.Summary()
	}
	return out
}

func (idx *Index) buildSnapshot(identities []*domain.EnrolledIdentity) *snapshot {
	snap := &snapshot{
		identities: identities,
		byAccount:  make(map[string]int, len(identities)),
	}
	for i, identity := range identities {
		snap.byAccount[identity.AccountID] = i
	}
	if idx.hnsw != nil && len(identities) > 0 {
		snap.graph = buildGraph(identities, *idx.hnsw)
	}
	return snap
}
