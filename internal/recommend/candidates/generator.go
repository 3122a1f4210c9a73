// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package candidates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/recommend"
)

// Retrieval outcomes recorded per source.
const (
	outcomeOK      = "ok"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

// Config contains candidate generation settings.
type Config struct {
	// TopNPerModel is how many articles each source retrieves.
	TopNPerModel int `json:"top_n_per_model"`

	// MinPoolSize is the default pool size below which trending articles
	// fill the deficit. CandidateQuery.MinPool overrides it.
	MinPoolSize int `json:"min_pool_size"`

	// TrendingWindow bounds how old a trending fill article may be.
	TrendingWindow time.Duration `json:"trending_window"`

	// RetrievalTimeout bounds the source fan-out. Sources still running when
	// it fires are abandoned and the completed ones are used.
	RetrievalTimeout time.Duration `json:"retrieval_timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TopNPerModel:     200,
		MinPoolSize:      20,
		TrendingWindow:   7 * 24 * time.Hour,
		RetrievalTimeout: time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TopNPerModel < 1 {
		return fmt.Errorf("top_n_per_model must be positive, got %d", c.TopNPerModel)
	}
	if c.MinPoolSize < 0 {
		return fmt.Errorf("min_pool_size must be non-negative, got %d", c.MinPoolSize)
	}
	if c.TrendingWindow < 0 {
		return fmt.Errorf("trending_window must be non-negative, got %v", c.TrendingWindow)
	}
	if c.RetrievalTimeout <= 0 {
		return fmt.Errorf("retrieval_timeout must be positive, got %v", c.RetrievalTimeout)
	}
	return nil
}

// Generator fans out to every registered embedding source, merges their
// results and tops the pool up with trending articles.
type Generator struct {
	config   Config
	sources  []recommend.EmbeddingSource
	articles recommend.ArticleStore
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the clock used for the trending window and
// RetrievedAt of trending candidates.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator. An empty source list is allowed: every request
// is then served from trending fill.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, sources []recommend.EmbeddingSource, articles recommend.ArticleStore, logger zerolog.Logger, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}
	if articles == nil {
		return nil, errors.New("candidates: article store is required")
	}
	g := &Generator{
		config:   cfg,
		sources:  append([]recommend.EmbeddingSource(nil), sources...),
		articles: articles,
		now:      time.Now,
		logger:   logger.With().Str("component", "candidates").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Sources returns the model types of the registered sources.
func (g *Generator) Sources() []recommend.ModelType {
	out := make([]recommend.ModelType, len(g.sources))
	for i, s := range g.sources {
		out[i] = s.ModelType()
	}
	return out
}

// GenerateCandidates returns the filtered, deduplicated pool for the user,
// embedding candidates first by raw score, then trending fill.
//
//nolint:gocritic // hugeParam: q passed by value for immutability
func (g *Generator) GenerateCandidates(ctx context.Context, q recommend.CandidateQuery) ([]recommend.Candidate, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	results := g.retrieveAll(ctx, q.UserID)
	merged := merge(results)

	exclude := make(map[string]struct{}, len(q.Exclude))
	for _, id := range q.Exclude {
		exclude[id] = struct{}{}
	}
	categories := categorySet(q.Categories)

	pool, err := g.filter(ctx, merged, exclude, categories)
	if err != nil {
		return nil, err
	}
	sortCandidates(pool)

	minPool := q.MinPool
	if minPool <= 0 {
		minPool = g.config.MinPoolSize
	}
	if minPool > q.Limit {
		minPool = q.Limit
	}
	if len(pool) < minPool {
		filled, err := g.fillTrending(ctx, pool, minPool-len(pool), exclude, q.Categories)
		switch {
		case err == nil:
			pool = filled
		case len(pool) == 0:
			return nil, fmt.Errorf("trending fill: %w", err)
		default:
			g.logger.Warn().Err(err).Str("user_id", q.UserID).Msg("trending fill failed, serving partial pool")
		}
	}

	if len(pool) > q.Limit {
		pool = pool[:q.Limit]
	}
	return pool, nil
}

// sourceResult holds the output of a single source retrieval.
type sourceResult struct {
	model      recommend.ModelType
	candidates []recommend.Candidate
	err        error
}

// retrieveAll runs every source in parallel under the retrieval timeout.
// Results that arrive after the timeout are dropped.
func (g *Generator) retrieveAll(ctx context.Context, userID string) []sourceResult {
	if len(g.sources) == 0 {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, g.config.RetrievalTimeout)
	defer cancel()

	ch := make(chan sourceResult, len(g.sources))
	pending := make(map[recommend.ModelType]time.Time, len(g.sources))
	for _, src := range g.sources {
		pending[src.ModelType()] = time.Now()
		go func(s recommend.EmbeddingSource) {
			cands, err := s.Retrieve(rctx, userID, g.config.TopNPerModel)
			ch <- sourceResult{model: s.ModelType(), candidates: cands, err: err}
		}(src)
	}

	results := make([]sourceResult, 0, len(g.sources))
	for len(pending) > 0 {
		select {
		case r := <-ch:
			started := pending[r.model]
			delete(pending, r.model)
			g.recordResult(r, time.Since(started), userID)
			if r.err == nil {
				results = append(results, r)
			}
		case <-rctx.Done():
			for model, started := range pending {
				metrics.RecordSourceRetrieval(string(model), outcomeTimeout, time.Since(started))
				g.logger.Warn().
					Str("model", string(model)).
					Str("user_id", userID).
					Msg("source retrieval abandoned after timeout")
			}
			return results
		}
	}
	return results
}

func (g *Generator) recordResult(r sourceResult, took time.Duration, userID string) {
	outcome := outcomeOK
	switch {
	case r.err != nil && (errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, context.Canceled)):
		outcome = outcomeTimeout
	case r.err != nil:
		outcome = outcomeError
		g.logger.Warn().Err(r.err).
			Str("model", string(r.model)).
			Str("user_id", userID).
			Msg("source retrieval failed, skipping model")
	case len(r.candidates) == 0:
		outcome = outcomeEmpty
	}
	metrics.RecordSourceRetrieval(string(r.model), outcome, took)
}

// merge collapses per-source results into one candidate per article. The
// highest raw score names the source; every model score is kept.
func merge(results []sourceResult) []recommend.Candidate {
	// Iterate in canonical model order so equal scores resolve the same
	// way regardless of completion order.
	rank := make(map[recommend.ModelType]int)
	for i, m := range recommend.AllModelTypes() {
		rank[m] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		return rank[results[i].model] < rank[results[j].model]
	})

	index := make(map[string]int)
	out := make([]recommend.Candidate, 0)
	for _, r := range results {
		for i := range r.candidates {
			c := &r.candidates[i]
			pos, ok := index[c.ArticleID]
			if !ok {
				index[c.ArticleID] = len(out)
				out = append(out, recommend.Candidate{
					ArticleID:   c.ArticleID,
					Source:      string(r.model),
					RawScore:    c.RawScore,
					RetrievedAt: c.RetrievedAt,
					ModelScores: map[recommend.ModelType]float64{r.model: c.RawScore},
				})
				continue
			}
			existing := &out[pos]
			if prev, seen := existing.ModelScores[r.model]; !seen || c.RawScore > prev {
				existing.ModelScores[r.model] = c.RawScore
			}
			if c.RawScore > existing.RawScore {
				existing.RawScore = c.RawScore
				existing.Source = string(r.model)
				existing.RetrievedAt = c.RetrievedAt
			}
		}
	}
	return out
}

// filter drops excluded, unknown, unpublished and out-of-category articles
// and attaches metadata to the survivors.
func (g *Generator) filter(ctx context.Context, pool []recommend.Candidate, exclude, categories map[string]struct{}) ([]recommend.Candidate, error) {
	if len(pool) == 0 {
		return pool, nil
	}

	ids := make([]string, 0, len(pool))
	for i := range pool {
		if _, skip := exclude[pool[i].ArticleID]; !skip {
			ids = append(ids, pool[i].ArticleID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	articles, err := g.articles.GetArticles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load article metadata: %w", err)
	}

	out := pool[:0]
	for i := range pool {
		c := pool[i]
		if _, skip := exclude[c.ArticleID]; skip {
			continue
		}
		a, ok := articles[c.ArticleID]
		if !ok || !a.Published() || !inCategories(a.Category, categories) {
			continue
		}
		c.Article = &a
		out = append(out, c)
	}
	return out, nil
}

// fillTrending appends up to deficit trending articles not already in the
// pool and not excluded.
func (g *Generator) fillTrending(ctx context.Context, pool []recommend.Candidate, deficit int, exclude map[string]struct{}, categories []string) ([]recommend.Candidate, error) {
	now := g.now()
	var since time.Time
	if g.config.TrendingWindow > 0 {
		since = now.Add(-g.config.TrendingWindow)
	}

	articles, err := g.articles.TrendingArticles(ctx, recommend.TrendingQuery{
		Since:      since,
		Limit:      deficit + len(pool) + len(exclude),
		Categories: categories,
	})
	if err != nil {
		return pool, err
	}

	present := make(map[string]struct{}, len(pool))
	for i := range pool {
		present[pool[i].ArticleID] = struct{}{}
	}
	allowed := categorySet(categories)

	added := 0
	for i := range articles {
		if added >= deficit {
			break
		}
		a := articles[i]
		if !a.Published() || !inCategories(a.Category, allowed) {
			continue
		}
		if _, skip := exclude[a.ID]; skip {
			continue
		}
		if _, dup := present[a.ID]; dup {
			continue
		}
		present[a.ID] = struct{}{}
		pool = append(pool, recommend.Candidate{
			ArticleID:   a.ID,
			Source:      recommend.SourceTrending,
			RetrievedAt: now,
			Article:     &a,
		})
		added++
	}
	if added > 0 {
		metrics.TrendingFills.Inc()
	}
	return pool, nil
}

// sortCandidates orders by raw score desc, then article ID asc.
func sortCandidates(pool []recommend.Candidate) {
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].RawScore != pool[j].RawScore {
			return pool[i].RawScore > pool[j].RawScore
		}
		return pool[i].ArticleID < pool[j].ArticleID
	})
}

func categorySet(categories []string) map[string]struct{} {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

func inCategories(category string, allowed map[string]struct{}) bool {
	if allowed == nil {
		return true
	}
	_, ok := allowed[category]
	return ok
}

var _ recommend.CandidateGenerator = (*Generator)(nil)
