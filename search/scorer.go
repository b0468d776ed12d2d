package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/khabar/ai"
	"github.com/poiesic/khabar/core"
)

const (
	// DefaultTitleWeight is the title's share of the exact-match score.
	DefaultTitleWeight = 0.7
	// DefaultSummaryWeight is the summary's share of the exact-match score.
	DefaultSummaryWeight = 0.3
	// ExactMatchBoost scales the exact-match score before it is added.
	ExactMatchBoost = 0.3
)

// Request describes a semantic query.
type Request struct {
	Query        string
	MinThreshold float64
	// TitleWeight and SummaryWeight must be supplied together or not at all.
	TitleWeight   *float64
	SummaryWeight *float64
	MaxResults    int
}

// Scorer ranks items by semantic similarity to a query.
type Scorer struct {
	embedder      ai.Embedder
	titleWeight   float64
	summaryWeight float64
	boost         float64
	logger        *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultWeights sets the field weights used when a request supplies none.
func WithDefaultWeights(title, summary float64) Option {
	return func(s *Scorer) error {
		if title < 0 || summary < 0 || title+summary <= 0 {
			return ErrInvalidDefaultWeights
		}
		s.titleWeight = title / (title + summary)
		s.summaryWeight = summary / (title + summary)
		return nil
	}
}

// NewScorer creates a new scorer.
func NewScorer(embedder ai.Embedder, opts ...Option) (*Scorer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Scorer{
		embedder:      embedder,
		titleWeight:   DefaultTitleWeight,
		summaryWeight: DefaultSummaryWeight,
		boost:         ExactMatchBoost,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "semantic-scorer")

	return s, nil
}

// Search scores candidates against the request.
// Returns up to MaxResults results at or above MinThreshold, best first.
func (s *Scorer) Search(ctx context.Context, req Request, candidates []*core.Item) ([]*core.SemanticResult, error) {
	return s.SearchWithMonitor(ctx, req, candidates, nil)
}

// SearchWithMonitor scores candidates with monitoring.
// The monitor receives callbacks at each stage of the scoring process.
func (s *Scorer) SearchWithMonitor(ctx context.Context, req Request, candidates []*core.Item, monitor SearchMonitor) ([]*core.SemanticResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidQuery, core.ErrEmptyQuery)
	}
	if err := core.ValidateCount(req.MaxResults, 0); err != nil {
		return nil, err
	}
	titleWeight, summaryWeight, err := core.ResolveWeights(req.TitleWeight, req.SummaryWeight, s.titleWeight, s.summaryWeight)
	if err != nil {
		return nil, err
	}

	monitor.Start(query, titleWeight, summaryWeight)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	queryVec := core.NormalizeVector(embedding)
	monitor.AfterQueryEmbedding(len(queryVec))

	queryWords := wordSet(query)
	results := make([]*core.SemanticResult, 0)

	for _, item := range candidates {
		if !item.HasEmbedding() {
			monitor.Skipped(item, "no embedding")
			continue
		}
		if len(item.Embedding) != len(queryVec) {
			s.logger.Warn("skipping item with mismatched embedding", "id", item.ID, "got", len(item.Embedding), "want", len(queryVec))
			monitor.Skipped(item, "dimension mismatch")
			continue
		}

		semantic := core.Dot(queryVec, core.NormalizeVector(item.Embedding))
		exact := exactMatchScore(queryWords, item.Title, item.Summary, titleWeight, summaryWeight)
		combined := max(semantic, semantic+exact*s.boost)
		monitor.Scored(item, semantic, exact, combined)

		if combined < req.MinThreshold {
			continue
		}

		s.logger.Debug("match", "id", item.ID, "semantic", semantic, "exact", exact, "score", combined)
		results = append(results, &core.SemanticResult{
			Item:       item,
			Score:      combined,
			Confidence: core.ConfidenceFor(combined),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	monitor.Finish(results)

	return results, nil
}
