package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/events"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
	"github.com/custodia-labs/refindex/internal/core/ports/driving"
	"github.com/custodia-labs/refindex/internal/logger"
)

// Ensure SimilarityIndex implements the interface.
var _ driving.SimilarityService = (*SimilarityIndex)(nil)

type outcome int

const (
	outcomeEmbedded outcome = iota
	outcomeReused
	outcomeSkipped
	outcomeFailed
	outcomeRemoved
)

// SimilarityIndex keeps one embedding per indexable workspace resource and
// ranks resources by cosine similarity.
//
// Embeddings are gated by a sha1 checksum of the resource text: unchanged
// text is never re-embedded while an in-memory or cached entry matches.
// The embedding service and cache are optional.
type SimilarityIndex struct {
	workspace *Workspace
	embedder  driven.EmbeddingService
	cache     driven.EmbeddingCache
	model     string
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]domain.Embedding
	updates *events.Emitter[domain.EmbeddingUpdate]

	progressMu sync.Mutex
	monitoring bool
	processed  uint64
	progress   chan struct{}
	stop       context.CancelFunc
	stopped    chan struct{}
}

// SimilarityOption configures a SimilarityIndex.
type SimilarityOption func(*SimilarityIndex)

// WithCacheModel sets the model cached entries must have been produced by.
// It defaults to the embedder's model name and only matters when the index
// runs without an embedder and serves vectors from the cache alone.
func WithCacheModel(model string) SimilarityOption {
	return func(s *SimilarityIndex) {
		s.model = model
	}
}

// NewSimilarityIndex creates an index over workspace.
// embedder and cache may be nil.
func NewSimilarityIndex(
	workspace *Workspace,
	embedder driven.EmbeddingService,
	cache driven.EmbeddingCache,
	opts ...SimilarityOption,
) *SimilarityIndex {
	s := &SimilarityIndex{
		workspace: workspace,
		embedder:  embedder,
		cache:     cache,
		now:       time.Now,
		entries:   make(map[string]domain.Embedding),
		updates:   events.NewEmitter[domain.EmbeddingUpdate](),
		progress:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if embedder != nil {
		s.model = embedder.ModelName()
	}
	return s
}

// GetEmbedding returns the current vector for uri.
func (s *SimilarityIndex) GetEmbedding(uri domain.URI) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[uri.Path]
	if !ok {
		return nil, false
	}
	return e.Vector, true
}

// HasEmbeddings reports whether any vector is indexed.
func (s *SimilarityIndex) HasEmbeddings() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) > 0
}

// Len returns the number of indexed vectors.
func (s *SimilarityIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetSimilar ranks every other indexed resource against uri, most similar
// first, with ties ordered by path. topK <= 0 returns the full ranking.
// A resource without an embedding has no similar resources.
func (s *SimilarityIndex) GetSimilar(uri domain.URI, topK int) ([]domain.SimilarResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.entries[uri.Path]
	if !ok {
		return nil, nil
	}

	results := make([]domain.SimilarResource, 0, len(s.entries)-1)
	for p, e := range s.entries {
		if p == uri.Path {
			continue
		}
		sim, err := CosineSimilarity(target.Vector, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("compare %s with %s: %w", uri.Path, p, err)
		}
		results = append(results, domain.SimilarResource{URI: e.URI, Similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].URI.Path < results[j].URI.Path
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// UpdateResource refreshes the embedding for one resource.
//
// A resource no longer in the workspace has its entry removed. A resource
// that is not indexable is skipped, dropping any entry it had. Embedding
// failures are logged and leave the previous state in place; only context
// cancellation and a missing embedding service are returned.
func (s *SimilarityIndex) UpdateResource(ctx context.Context, uri domain.URI) error {
	_, err := s.refresh(ctx, uri)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	logger.Warn("embedding for %s not updated: %v", uri.Path, err)
	return nil
}

// Update rebuilds the index from the workspace, one resource at a time.
// A failed resource is counted and logged without stopping the rebuild.
func (s *SimilarityIndex) Update(ctx context.Context) (domain.IndexStats, error) {
	var stats domain.IndexStats
	if s.embedder == nil && s.cache == nil {
		return stats, domain.ErrEmbeddingUnavailable
	}

	s.mu.Lock()
	s.entries = make(map[string]domain.Embedding)
	s.mu.Unlock()

	logger.Section("Similarity Rebuild")
	for _, r := range s.workspace.List() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		out, err := s.refresh(ctx, r.URI)
		switch out {
		case outcomeEmbedded:
			stats.Embedded++
		case outcomeReused:
			stats.Reused++
		case outcomeSkipped:
			stats.Skipped++
		case outcomeFailed:
			stats.Failed++
		case outcomeRemoved:
			stats.Removed++
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if errors.Is(err, domain.ErrEmbeddingUnavailable) {
				logger.Debug("no cached embedding for %s", r.URI.Path)
				continue
			}
			logger.Warn("embedding for %s not updated: %v", r.URI.Path, err)
		}
	}

	logger.Info("similarity rebuild: %d embedded, %d reused, %d skipped, %d failed, %d removed",
		stats.Embedded, stats.Reused, stats.Skipped, stats.Failed, stats.Removed)
	return stats, nil
}

// Subscribe returns a subscription to embedding updates.
func (s *SimilarityIndex) Subscribe() *events.Subscription[domain.EmbeddingUpdate] {
	return s.updates.Subscribe()
}

// Monitor keeps the index in step with workspace events until ctx is
// cancelled, the workspace is disposed or Close is called. Each event
// refreshes or removes one entry; the workspace is never rescanned.
// Calling Monitor again while monitoring does nothing.
func (s *SimilarityIndex) Monitor(ctx context.Context) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	if s.monitoring {
		return
	}

	sub, seq := s.workspace.SubscribeFrom()
	ctx, cancel := context.WithCancel(ctx)
	s.monitoring = true
	s.processed = seq
	s.stop = cancel
	s.stopped = make(chan struct{})

	go s.consume(ctx, sub, s.stopped)
}

// Settle blocks until every workspace event published before the call has
// been applied. It returns at once when the index is not monitoring.
func (s *SimilarityIndex) Settle(ctx context.Context) error {
	target := s.workspace.Seq()
	for {
		s.progressMu.Lock()
		if !s.monitoring || s.processed >= target {
			s.progressMu.Unlock()
			return nil
		}
		wait := s.progress
		s.progressMu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops monitoring and closes update subscriptions.
func (s *SimilarityIndex) Close() {
	s.progressMu.Lock()
	stop, stopped := s.stop, s.stopped
	s.progressMu.Unlock()

	if stop != nil {
		stop()
		<-stopped
	}
	s.updates.Dispose()
}

func (s *SimilarityIndex) consume(
	ctx context.Context,
	sub *events.Subscription[domain.ResourceEvent],
	stopped chan struct{},
) {
	defer close(stopped)
	defer s.endMonitoring()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.apply(ctx, ev)
			s.advance(ev.Seq)
		}
	}
}

func (s *SimilarityIndex) apply(ctx context.Context, ev domain.ResourceEvent) {
	switch ev.Type {
	case domain.EventAdded, domain.EventUpdated:
		err := s.UpdateResource(ctx, ev.Resource.URI)
		if err != nil {
			logger.Debug("similarity skipped %s: %v", ev.Resource.URI.Path, err)
		}
	case domain.EventDeleted:
		s.remove(ctx, ev.Resource.URI)
	}
}

func (s *SimilarityIndex) advance(seq uint64) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	s.processed = seq
	close(s.progress)
	s.progress = make(chan struct{})
}

func (s *SimilarityIndex) endMonitoring() {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	s.monitoring = false
	s.stop = nil
	close(s.progress)
	s.progress = make(chan struct{})
}

// refresh brings the entry for uri in line with the workspace.
func (s *SimilarityIndex) refresh(ctx context.Context, uri domain.URI) (outcome, error) {
	uri = uri.WithoutFragment()

	r, ok := s.workspace.FindURI(uri)
	if !ok || r.URI.Path != uri.Path {
		s.remove(ctx, uri)
		return outcomeRemoved, nil
	}
	if !domain.IsIndexable(r) {
		s.drop(uri)
		return outcomeSkipped, nil
	}

	text := domain.EmbeddingText(r)
	checksum := Checksum(text)

	if vec, ok := s.current(uri, checksum); ok {
		if !s.commit(r.URI, vec, checksum) {
			return outcomeRemoved, nil
		}
		return outcomeReused, nil
	}

	cacheKey := r.URI.String()
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && entry.Checksum == checksum && entry.Model == s.model && len(entry.Embedding) > 0:
			if !s.commit(r.URI, entry.Embedding, checksum) {
				return outcomeRemoved, nil
			}
			return outcomeReused, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			logger.Warn("read embedding cache for %s: %v", uri.Path, err)
		}
	}

	if s.embedder == nil {
		return outcomeSkipped, domain.ErrEmbeddingUnavailable
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return outcomeFailed, fmt.Errorf("embed %s: %w", uri.Path, err)
	}
	if !s.commit(r.URI, vec, checksum) {
		return outcomeRemoved, nil
	}

	if s.cache != nil {
		entry := domain.EmbeddingEntry{Checksum: checksum, Model: s.model, Embedding: vec}
		if err := s.cache.Set(ctx, cacheKey, entry); err != nil {
			logger.Warn("write embedding cache for %s: %v", uri.Path, err)
		}
	}
	logger.Debug("embedded %s (%d dims)", uri.Path, len(vec))
	return outcomeEmbedded, nil
}

// current returns the in-memory vector for uri if it was computed from the same text.
func (s *SimilarityIndex) current(uri domain.URI, checksum string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[uri.Path]
	if !ok || e.Checksum != checksum {
		return nil, false
	}
	return e.Vector, true
}

// commit stores vec for uri only if the resource is still in the workspace.
// A delete that landed while the vector was computed wins.
func (s *SimilarityIndex) commit(uri domain.URI, vec []float32, checksum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.workspace.Has(uri) {
		if _, had := s.entries[uri.Path]; had {
			delete(s.entries, uri.Path)
			s.updates.Emit(domain.EmbeddingUpdate{URI: uri, Removed: true})
		}
		logger.Debug("discarded embedding for removed %s", uri.Path)
		return false
	}

	prev, had := s.entries[uri.Path]
	s.entries[uri.Path] = domain.Embedding{
		URI:       uri,
		Vector:    vec,
		Checksum:  checksum,
		CreatedAt: s.now(),
	}
	if !had || prev.Checksum != checksum {
		s.updates.Emit(domain.EmbeddingUpdate{URI: uri})
	}
	return true
}

// remove drops the in-memory and cached entries for uri.
func (s *SimilarityIndex) remove(ctx context.Context, uri domain.URI) {
	s.drop(uri)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, uri.WithoutFragment().String()); err != nil {
			logger.Warn("delete cached embedding for %s: %v", uri.Path, err)
		}
	}
}

// drop removes the in-memory entry for uri. Dropping a missing entry is a no-op.
func (s *SimilarityIndex) drop(uri domain.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[uri.Path]; !ok {
		return
	}
	delete(s.entries, uri.Path)
	s.updates.Emit(domain.EmbeddingUpdate{URI: uri.WithoutFragment(), Removed: true})
}
