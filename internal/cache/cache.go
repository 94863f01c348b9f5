// Package cache keeps built corpora in memory, keyed by the content of their documents.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/askpdf/internal/corpusid"
	"github.com/hyperjump/askpdf/internal/keyword"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/storage"
	"github.com/hyperjump/askpdf/internal/vector"
)

// DefaultMaxBytes is the default memory budget for cached indexes.
const DefaultMaxBytes int64 = 256 << 20

// Corpus is a built index together with the documents it was built from.
type Corpus struct {
	Key       string
	Documents []string
	Index     vector.Index
	CreatedAt time.Time

	passagesOnce sync.Once
	passages     *keyword.PassageIndex
	passagesErr  error
}

// NewCorpus wraps a built index.
func NewCorpus(key string, documents []string, index vector.Index) *Corpus {
	return &Corpus{Key: key, Documents: documents, Index: index, CreatedAt: time.Now()}
}

// Passages returns the keyword index over the corpus chunks, building it on first use.
func (c *Corpus) Passages() (*keyword.PassageIndex, error) {
	c.passagesOnce.Do(func() {
		c.passages, c.passagesErr = keyword.NewPassageIndex(c.Index.Chunks())
	})
	return c.passages, c.passagesErr
}

// SizeBytes approximates the memory held by the corpus.
func (c *Corpus) SizeBytes() int64 {
	return c.Index.SizeBytes()
}

// Info summarizes the corpus.
func (c *Corpus) Info() *models.CorpusInfo {
	return &models.CorpusInfo{
		Key:        c.Key,
		Documents:  c.Documents,
		Chunks:     c.Index.Len(),
		Dimensions: c.Index.Dimensions(),
	}
}

func (c *Corpus) close() {
	_ = c.Index.Close()
	if c.passages != nil {
		_ = c.passages.Close()
	}
}

// BuildFunc builds the index for a cache miss.
type BuildFunc func(ctx context.Context) (vector.Index, error)

// Stats reports cache occupancy and hit counts.
type Stats struct {
	Entries  int    `json:"entries"`
	Bytes    int64  `json:"bytes"`
	MaxBytes int64  `json:"max_bytes"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Stored   uint64 `json:"stored_hits"`
}

// IndexCache is an LRU of corpora bounded by approximate memory use, with an
// optional persistent tier consulted on a memory miss.
type IndexCache struct {
	maxBytes    int64
	used        int64
	items       map[string]*list.Element
	lru         *list.List
	aliases     map[string]string
	mu          sync.Mutex
	group       singleflight.Group
	store       storage.Storage
	fingerprint string
	buildOpts   vector.BuildOptions
	logger      *zap.Logger

	hits, misses, storedHits uint64
}

// Option configures an IndexCache.
type Option func(*IndexCache)

// WithStorage enables the persistent tier.
func WithStorage(s storage.Storage) Option {
	return func(c *IndexCache) {
		c.store = s
	}
}

// WithFingerprint names the embedder and chunking this cache builds with.
// Stored corpora saved under a different fingerprint are treated as missing.
func WithFingerprint(fp string) Option {
	return func(c *IndexCache) {
		c.fingerprint = fp
	}
}

// WithBuildOptions sets the backend used when rehydrating stored corpora.
func WithBuildOptions(opts vector.BuildOptions) Option {
	return func(c *IndexCache) {
		c.buildOpts = opts
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *IndexCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cache holding at most maxBytes of indexes (DefaultMaxBytes when <= 0).
func New(maxBytes int64, opts ...Option) *IndexCache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	c := &IndexCache{
		maxBytes: maxBytes,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		aliases:  make(map[string]string),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for docs.
func Key(docs []*models.Document) string {
	return corpusid.Key(docs)
}

// GetOrBuild returns the corpus for docs, building it with build on a miss in
// both tiers. Concurrent calls for the same documents share one build.
// The boolean reports whether the corpus came from a cache tier.
func (c *IndexCache) GetOrBuild(ctx context.Context, docs []*models.Document, build BuildFunc) (*Corpus, bool, error) {
	key := Key(docs)
	corpus, err := c.Get(ctx, key)
	if err == nil {
		return corpus, true, nil
	}
	if !errors.Is(err, models.ErrCorpusNotFound) {
		c.logger.Warn("stored corpus unusable, rebuilding", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if corpus := c.lookup(key); corpus != nil {
			return corpus, nil
		}
		index, err := build(ctx)
		if err != nil {
			return nil, err
		}
		corpus := NewCorpus(key, documentNames(docs), index)
		c.Put(ctx, corpus)
		return corpus, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Corpus), false, nil
}

// Get resolves key (or an alias) in memory, then in storage. Unknown keys
// return models.ErrCorpusNotFound.
func (c *IndexCache) Get(ctx context.Context, key string) (*Corpus, error) {
	key = c.Resolve(key)
	if corpus := c.lookup(key); corpus != nil {
		return corpus, nil
	}
	if c.store == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrCorpusNotFound, key)
	}

	v, err, _ := c.group.Do("load:"+key, func() (interface{}, error) {
		stored, err := c.store.LoadCorpus(ctx, key)
		if err != nil {
			return nil, err
		}
		if stored.Fingerprint != c.fingerprint {
			c.logger.Debug("stored corpus built with another embedder",
				zap.String("key", key),
				zap.String("stored", stored.Fingerprint),
				zap.String("current", c.fingerprint),
			)
			return nil, fmt.Errorf("%w: %s was built with %q", models.ErrCorpusNotFound, key, stored.Fingerprint)
		}
		index, err := vector.FromEntries(ctx, stored.Entries, c.buildOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to rehydrate corpus %s: %w", key, err)
		}
		corpus := &Corpus{Key: key, Documents: stored.Documents, Index: index, CreatedAt: stored.CreatedAt}
		c.insert(corpus)
		c.mu.Lock()
		c.storedHits++
		c.mu.Unlock()
		c.logger.Debug("corpus loaded from storage",
			zap.String("key", key),
			zap.Int("chunks", index.Len()),
		)
		return corpus, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Corpus), nil
}

// Put stores corpus in memory (when it fits the budget) and in the persistent tier.
// Persistence failures are logged, not returned.
func (c *IndexCache) Put(ctx context.Context, corpus *Corpus) {
	c.insert(corpus)
	if c.store == nil {
		return
	}
	err := c.store.SaveCorpus(ctx, &storage.Corpus{
		Key:         corpus.Key,
		Documents:   corpus.Documents,
		Entries:     corpus.Index.Entries(),
		Fingerprint: c.fingerprint,
		CreatedAt:   corpus.CreatedAt,
	})
	if err != nil {
		c.logger.Warn("failed to persist corpus", zap.String("key", corpus.Key), zap.Error(err))
	}
}

func (c *IndexCache) lookup(key string) *Corpus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		return elem.Value.(*Corpus)
	}
	c.misses++
	return nil
}

func (c *IndexCache) insert(corpus *Corpus) {
	size := corpus.SizeBytes()
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[corpus.Key]; ok {
		c.removeElement(elem)
	}
	if size > c.maxBytes {
		c.logger.Debug("corpus exceeds cache budget, not cached",
			zap.String("key", corpus.Key),
			zap.Int64("bytes", size),
			zap.Int64("max_bytes", c.maxBytes),
		)
		return
	}
	for c.used+size > c.maxBytes && c.lru.Len() > 0 {
		oldest := c.lru.Back()
		c.logger.Debug("evicting corpus", zap.String("key", oldest.Value.(*Corpus).Key))
		c.removeElement(oldest)
	}
	c.items[corpus.Key] = c.lru.PushFront(corpus)
	c.used += size
}

// removeElement must be called with mu held.
func (c *IndexCache) removeElement(elem *list.Element) {
	corpus := elem.Value.(*Corpus)
	c.lru.Remove(elem)
	delete(c.items, corpus.Key)
	c.used -= corpus.SizeBytes()
}

// Evict drops key from memory, and from storage when purge is set. Callers
// still holding the corpus can keep using it.
func (c *IndexCache) Evict(ctx context.Context, key string, purge bool) error {
	key = c.Resolve(key)
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	c.mu.Unlock()

	if purge && c.store != nil {
		if err := c.store.DeleteCorpus(ctx, key); err != nil {
			return fmt.Errorf("failed to delete stored corpus: %w", err)
		}
	}
	return nil
}

// SetAlias makes name resolve to key in Get and Evict. An empty key removes the alias.
func (c *IndexCache) SetAlias(name, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		delete(c.aliases, name)
		return
	}
	c.aliases[name] = key
}

// Resolve returns the key an alias points to, or key itself.
func (c *IndexCache) Resolve(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target, ok := c.aliases[key]; ok {
		return target
	}
	return key
}

// Contains reports whether key is held in memory.
func (c *IndexCache) Contains(key string) bool {
	key = c.Resolve(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// List returns the corpora held in memory, most recently used first.
func (c *IndexCache) List() []*models.CorpusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.CorpusInfo, 0, c.lru.Len())
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		info := elem.Value.(*Corpus).Info()
		info.Cached = true
		out = append(out, info)
	}
	return out
}

// Stats returns a snapshot of cache counters.
func (c *IndexCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:  c.lru.Len(),
		Bytes:    c.used,
		MaxBytes: c.maxBytes,
		Hits:     c.hits,
		Misses:   c.misses,
		Stored:   c.storedHits,
	}
}

// Close releases every cached index.
func (c *IndexCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		elem.Value.(*Corpus).close()
	}
	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.used = 0
	return nil
}

func documentNames(docs []*models.Document) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			names = append(names, d.Name)
		}
	}
	return names
}
