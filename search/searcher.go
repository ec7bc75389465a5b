package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

const (
	// DefaultLimit is the result count when Params.Limit is zero.
	DefaultLimit = 10

	// DefaultMinSimilarity is the relevance cutoff when Params.MinSimilarity
	// is zero. Chunks below it are noise for answer generation.
	DefaultMinSimilarity = 0.30

	// previewLength bounds the document-level preview text.
	previewLength = 300

	// documentInflation is how many extra chunk results to fetch when
	// aggregating to document level, so that a limit of N documents still
	// has enough chunks behind it.
	documentInflation = 3
)

// Params controls a search. The zero value means default limit and default
// similarity threshold over all documents.
type Params struct {
	// Limit is the maximum number of results. Zero means DefaultLimit;
	// negative is rejected with ErrInvalidLimit.
	Limit int

	// MinSimilarity is the inclusive relevance cutoff. Zero means
	// DefaultMinSimilarity; a negative value disables the cutoff.
	MinSimilarity float32

	// DocumentIDs optionally restricts the search to the given documents.
	DocumentIDs []string
}

func (p Params) withDefaults() (Params, error) {
	if p.Limit < 0 {
		return p, ErrInvalidLimit
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.MinSimilarity == 0 {
		p.MinSimilarity = DefaultMinSimilarity
	}
	return p, nil
}

// Searcher answers similarity queries over stored chunks.
type Searcher struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunks storage.ChunkRepository, provider ai.Provider, opts ...Option) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		chunks:   chunks,
		embedder: provider.Embedder(),
		logger:   slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchByVector returns chunks ranked by descending cosine similarity to
// the query vector. A wrong-dimension vector is rejected with the storage
// layer's ErrDimensionMismatch rather than returning empty results.
func (s *Searcher) SearchByVector(ctx context.Context, vector []float32, params Params) ([]core.SearchResult, error) {
	params, err := params.withDefaults()
	if err != nil {
		return nil, err
	}

	results, err := s.chunks.SimilaritySearch(ctx, vector, storage.SearchOptions{
		Limit:         params.Limit,
		MinSimilarity: params.MinSimilarity,
		DocumentIDs:   params.DocumentIDs,
	})
	if err != nil {
		s.logger.Error("error searching chunks", "err", err)
		return nil, err
	}
	return results, nil
}

// SearchByText embeds the query and searches by the resulting vector.
func (s *Searcher) SearchByText(ctx context.Context, query string, params Params) ([]core.SearchResult, error) {
	return s.SearchByTextWithMonitor(ctx, query, params, nil)
}

// SearchByTextWithMonitor searches with monitoring. The monitor receives
// callbacks at each stage of the search process.
func (s *Searcher) SearchByTextWithMonitor(ctx context.Context, query string, params Params, monitor SearchMonitor) ([]core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query)

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)

	results, err := s.SearchByVector(ctx, vector, params)
	if err != nil {
		return nil, err
	}
	monitor.AfterChunkSearch(results)

	s.logger.Debug("chunk search finished",
		"query", query,
		"hits", len(results),
		"min_similarity", params.MinSimilarity)

	monitor.Finish(results)
	return results, nil
}

// SearchDocuments aggregates chunk matches to document level. A document's
// score is the mean of its top two chunk similarities, which rewards
// documents with several strong chunks over a single lucky hit. The preview
// is the best-matching chunk's content.
func (s *Searcher) SearchDocuments(ctx context.Context, query string, params Params) ([]core.DocumentMatch, error) {
	params, err := params.withDefaults()
	if err != nil {
		return nil, err
	}

	// Over-fetch chunks so aggregation has enough behind each document.
	chunkParams := params
	chunkParams.Limit = params.Limit * documentInflation

	results, err := s.SearchByText(ctx, query, chunkParams)
	if err != nil {
		return nil, err
	}

	type docAgg struct {
		match  core.DocumentMatch
		scores []float32
		best   core.SearchResult
	}

	byDoc := make(map[string]*docAgg)
	var order []string
	for _, res := range results {
		agg, ok := byDoc[res.DocumentID]
		if !ok {
			agg = &docAgg{
				match: core.DocumentMatch{
					DocumentID:   res.DocumentID,
					DocumentName: res.DocumentName,
				},
				best: res,
			}
			byDoc[res.DocumentID] = agg
			order = append(order, res.DocumentID)
		}
		agg.scores = append(agg.scores, res.Similarity)
		agg.match.MatchingChunks++
		if res.Similarity > agg.best.Similarity {
			agg.best = res
		}
	}

	matches := make([]core.DocumentMatch, 0, len(byDoc))
	for _, id := range order {
		agg := byDoc[id]
		agg.match.Score = topTwoMean(agg.scores)
		agg.match.Preview = truncatePreview(agg.best.Content)
		matches = append(matches, agg.match)
	}

	slices.SortFunc(matches, func(a, b core.DocumentMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.DocumentID, b.DocumentID)
	})

	if len(matches) > params.Limit {
		matches = matches[:params.Limit]
	}

	s.logger.Debug("document search finished",
		"query", query,
		"documents", len(matches),
		"chunks", len(results))
	return matches, nil
}

// topTwoMean averages the two highest scores. The input need not be sorted.
func topTwoMean(scores []float32) float32 {
	if len(scores) == 0 {
		return 0
	}
	slices.SortFunc(scores, func(a, b float32) int {
		if a > b {
			return -1
		}
		if a < b {
			return 1
		}
		return 0
	})
	if len(scores) == 1 {
		return scores[0]
	}
	return (scores[0] + scores[1]) / 2
}

// truncatePreview bounds preview text, cutting at a rune boundary.
func truncatePreview(content string) string {
	if len(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
