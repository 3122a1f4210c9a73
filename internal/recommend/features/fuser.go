// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package features

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
)

// NeutralCategoryMatch is used when the user has no category profile or
// the article category is unknown.
const NeutralCategoryMatch = 0.5

// Config contains feature fusion settings.
type Config struct {
	// RecencyFloor is the lowest recency value an article can receive.
	RecencyFloor float64 `json:"recency_floor"`

	// RecencyScaleDays is the age in days at which recency halves.
	RecencyScaleDays float64 `json:"recency_scale_days"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RecencyFloor:     0.05,
		RecencyScaleDays: 1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.RecencyFloor < 0 || c.RecencyFloor > 1 {
		return fmt.Errorf("recency_floor must be in [0, 1], got %f", c.RecencyFloor)
	}
	if c.RecencyScaleDays <= 0 {
		return fmt.Errorf("recency_scale_days must be positive, got %f", c.RecencyScaleDays)
	}
	return nil
}

// Fuser builds the fixed-schema feature vector for each candidate.
type Fuser struct {
	config   Config
	articles recommend.ArticleStore
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Fuser.
type Option func(*Fuser)

// WithClock sets the clock recency is measured against.
func WithClock(now func() time.Time) Option {
	return func(f *Fuser) { f.now = now }
}

// WithArticleStore lets the fuser load metadata for candidates that arrive
// without it. Lookup failures leave the candidate with similarity only.
func WithArticleStore(store recommend.ArticleStore) Option {
	return func(f *Fuser) { f.articles = store }
}

// New creates a Fuser.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, logger zerolog.Logger, opts ...Option) (*Fuser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	f := &Fuser{
		config: cfg,
		now:    time.Now,
		logger: logger.With().Str("component", "features").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fuse returns one FusedFeature per candidate in input order.
func (f *Fuser) Fuse(ctx context.Context, userID string, prefs *recommend.UserPreferences, candidates []recommend.Candidate) []recommend.FusedFeature {
	if len(candidates) == 0 {
		return nil
	}

	meta := f.metadata(ctx, candidates)
	now := f.now()

	var maxTrending, maxEngagement, maxQuality float64
	for _, a := range meta {
		if a == nil {
			continue
		}
		maxTrending = maxOf(maxTrending, a.TrendingScore)
		maxEngagement = maxOf(maxEngagement, a.EngagementScore)
		maxQuality = maxOf(maxQuality, a.QualityScore)
	}

	out := make([]recommend.FusedFeature, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		ff := recommend.FusedFeature{
			UserID:             userID,
			ArticleID:          c.ArticleID,
			RawScore:           c.RawScore,
			ContributingModels: c.ContributingModels(),
			Source:             c.Source,
		}

		for model, score := range c.ModelScores {
			if feat, ok := recommend.SimilarityFeature(model); ok {
				ff.Features.Set(feat, score)
			}
		}

		a := meta[i]
		if a == nil {
			ff.Features.Set(recommend.FeatureCategoryMatch, NeutralCategoryMatch)
			out[i] = ff
			continue
		}

		ff.Category = a.Category
		ff.Tags = append([]string(nil), a.Tags...)
		ff.Features.Set(recommend.FeatureRecency, f.recency(a.PublishedAt, now))
		ff.Features.Set(recommend.FeatureTrending, normalize(a.TrendingScore, maxTrending))
		ff.Features.Set(recommend.FeatureEngagement, normalize(a.EngagementScore, maxEngagement))
		ff.Features.Set(recommend.FeatureQuality, normalize(a.QualityScore, maxQuality))
		ff.Features.Set(recommend.FeatureCategoryMatch, categoryMatch(prefs, a.Category))
		out[i] = ff
	}
	return out
}

// metadata returns the article for each candidate, loading the ones that
// were not attached during generation.
func (f *Fuser) metadata(ctx context.Context, candidates []recommend.Candidate) []*recommend.Article {
	meta := make([]*recommend.Article, len(candidates))
	var missing []string
	for i := range candidates {
		if candidates[i].Article != nil {
			meta[i] = candidates[i].Article
			continue
		}
		missing = append(missing, candidates[i].ArticleID)
	}
	if len(missing) == 0 || f.articles == nil {
		return meta
	}

	loaded, err := f.articles.GetArticles(ctx, missing)
	if err != nil {
		f.logger.Warn().Err(err).Int("missing", len(missing)).Msg("article metadata unavailable, using similarity only")
		return meta
	}
	for i := range candidates {
		if meta[i] != nil {
			continue
		}
		if a, ok := loaded[candidates[i].ArticleID]; ok {
			meta[i] = &a
		}
	}
	return meta
}

// recency decays hyperbolically with age. Unknown publish times get the
// floor and future ones count as brand new.
func (f *Fuser) recency(published, now time.Time) float64 {
	if published.IsZero() {
		return f.config.RecencyFloor
	}
	days := now.Sub(published).Hours() / 24
	if days < 0 {
		days = 0
	}
	return maxOf(f.config.RecencyFloor, 1/(1+days/f.config.RecencyScaleDays))
}

func categoryMatch(prefs *recommend.UserPreferences, category string) float64 {
	if !prefs.HasCategoryProfile() {
		return NeutralCategoryMatch
	}
	return recommend.Clamp01(prefs.Categories[category])
}

func normalize(v, peak float64) float64 {
	if v <= 0 || peak <= 0 {
		return 0
	}
	return recommend.Clamp01(v / peak)
}

func maxOf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

var _ recommend.Fuser = (*Fuser)(nil)
