package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"bargain-backend/model"

	"go.uber.org/zap"
)

const (
	maxSearchKeywords = 3
	maxCandidates     = 10
)

// SearchAgent runs the search phase: it reads the query, logs in and collects
// the cheapest distinct listings.
type SearchAgent struct {
	generator MessageGenerator
	provider  SearchProvider
	logger    *zap.Logger
}

func NewSearchAgent(generator MessageGenerator, provider SearchProvider, logger *zap.Logger) *SearchAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchAgent{generator: generator, provider: provider, logger: logger}
}

// FindCandidates returns at most ten listings, cheapest first, with
// duplicate titles removed. A keyword whose search fails is skipped; the
// phase fails only when every keyword does.
func (a *SearchAgent) FindCandidates(ctx context.Context, req model.SearchRequest) ([]model.Candidate, error) {
	analysis := a.generator.AnalyzeRequirement(ctx, req.Query)
	keywords := analysis.Keywords
	if len(keywords) == 0 {
		keywords = strings.Fields(req.Query)
	}
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	a.logger.Info("requirement analysed",
		zap.Strings("keywords", keywords),
		zap.String("category", analysis.Category))

	ok, err := a.provider.Login(ctx, req.Credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !ok {
		return nil, ErrLoginFailed
	}

	var all []model.Candidate
	var errs []error
	keywords = keywords[:min(len(keywords), maxSearchKeywords)]
	for _, kw := range keywords {
		found, err := a.provider.Search(ctx, kw, req.MaxPrice)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("keyword search failed", zap.String("keyword", kw), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		all = append(all, found...)
	}
	if len(errs) == len(keywords) {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, errors.Join(errs...))
	}

	return cheapestDistinct(all, maxCandidates), nil
}

// cheapestDistinct drops repeated titles (case and surrounding space
// ignored), keeping the first, then returns the limit cheapest.
func cheapestDistinct(items []model.Candidate, limit int) []model.Candidate {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.Candidate, 0, len(items))
	for _, c := range items {
		key := strings.ToLower(strings.TrimSpace(c.Title))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out[:min(len(out), limit)]
}
