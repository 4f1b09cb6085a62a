// Package segment persists transcript segments as Redis hashes under one
// shared HNSW vector index, scoped per session by a TAG field.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/voicerag/internal/db"
	"github.com/kailas-cloud/voicerag/internal/domain"
)

// store is the consumer interface for segment persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchSorted(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// IndexParams holds HNSW build parameters for the segment index.
type IndexParams struct {
	M           int
	EFConstruct int
}

// Repo implements segment persistence for the ingest and answer usecases.
type Repo struct {
	store  store
	prefix string
	params IndexParams
}

// New creates a segment repository. prefix namespaces all keys and the
// index name, so several deployments can share one database.
func New(s store, prefix string, params IndexParams) *Repo {
	return &Repo{store: s, prefix: prefix, params: params}
}

// InsertMany writes all segments in one pipelined batch. Each hash write is
// atomic on its own; a failed command surfaces as an error with no rollback
// of the commands that succeeded.
func (r *Repo) InsertMany(ctx context.Context, segments []domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(segments))
	for i, seg := range segments {
		items[i] = db.HashSetItem{
			Key:    r.segKey(seg.SessionID, seg.Seq),
			Fields: buildHashFields(&seg),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert %d segments: %w", len(segments), err)
	}
	return nil
}

// EnsureIndex creates the segment index if it does not exist. dim is the
// dimensionality observed on the embeddings just produced; the call is
// idempotent and a concurrent create by another instance is not an error.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensure index: %w", domain.ErrVectorDimMismatch)
	}

	name := r.indexName()
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     name,
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{Name: "session_id", Type: db.IndexFieldTag},
			{Name: "seq", Type: db.IndexFieldNumeric, Sortable: true},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.params.M,
				VectorEFConstruct: r.params.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// DropIndex removes the segment index. A missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("drop index %s: %w", r.indexName(), err)
	}
	return nil
}

// SearchKNN returns the k most similar segments to the query vector within
// one session, ranked by descending cosine similarity.
func (r *Repo) SearchKNN(
	ctx context.Context, session domain.SessionID, vector []float32, k int,
) ([]domain.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		SessionTag:   session.String(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"text", "session_id", "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn session %s: %w: %w", session, domain.ErrStoreQuery, err)
	}

	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, domain.Hit{
			Text:      entry.Fields["text"],
			SessionID: domain.SessionID(entry.Fields["session_id"]),
			Score:     entry.Score,
		})
	}

	// The search is issued with a score sort, but ranked order is a contract
	// of this method, not of the reply.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// ListBySession returns a session's segments in transcript order.
// Returns domain.ErrSessionNotFound when the session has no segments.
func (r *Repo) ListBySession(ctx context.Context, session domain.SessionID) ([]domain.Segment, error) {
	sr, err := r.store.SearchSorted(ctx, &db.ListQuery{
		IndexName:    r.indexName(),
		SessionTag:   session.String(),
		SortBy:       "seq",
		Limit:        maxSessionSegments,
		ReturnFields: []string{"text", "session_id", "seq"},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("list session %s: %w: %w", session, domain.ErrStoreQuery, err)
	}

	if sr == nil || len(sr.Entries) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	segments := make([]domain.Segment, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		segments = append(segments, parseHashFields(entry.Fields))
	}
	return segments, nil
}

// Purge deletes every segment hash under this repository's prefix and drops
// the index. Used by reset; tolerates an empty database.
func (r *Repo) Purge(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan segments: %w", err)
	}

	if len(keys) > 0 {
		if err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("delete %d segments: %w", len(keys), err)
		}
	}

	return r.DropIndex(ctx)
}

// maxSessionSegments bounds transcript listing; one recording produces far
// fewer utterances than this.
const maxSessionSegments = 10000

func (r *Repo) segKey(session domain.SessionID, seq int) string {
	return fmt.Sprintf("%s%s:%d", r.keyPrefix(), session, seq)
}

func (r *Repo) keyPrefix() string {
	return r.prefix + "seg:"
}

func (r *Repo) indexName() string {
	return r.prefix + "segments:idx"
}
