package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
	"github.com/notwins/backend/internal/normalize"
)

const (
	duplicatesCachePrefix = "duplicates"
	similarCachePrefix    = "similar"
)

// Default thresholds
const (
	DefaultSimilarThreshold   = 0.6
	DefaultDuplicateThreshold = 0.7
	DefaultExactThreshold     = 0.9
	DefaultMaxCandidates      = 25
)

// MatchConfig holds configuration for duplicate and similarity matching
type MatchConfig struct {
	SimilarThreshold   float64
	DuplicateThreshold float64
	ExactThreshold     float64
	MaxCandidates      int
	CacheTTL           time.Duration
}

// MatchingService compares a wardrobe item against the other items of an event:
// a rule-based prefilter first, then AI adjudication with confidence thresholds.
type MatchingService struct {
	interpreter domain.ProductInterpreter
	cache       *resultCache
	cfg         MatchConfig
	logger      *zap.Logger
}

// NewMatchingService creates a new matching service. interpreter may be nil, in
// which case every comparison degrades to an empty result.
func NewMatchingService(interpreter domain.ProductInterpreter, cache domain.CacheRepository, config MatchConfig, m *metrics.Metrics, logger *zap.Logger) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("matching")
	if config.SimilarThreshold == 0 {
		config.SimilarThreshold = DefaultSimilarThreshold
	}
	if config.DuplicateThreshold == 0 {
		config.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if config.ExactThreshold == 0 {
		config.ExactThreshold = DefaultExactThreshold
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultMaxCandidates
	}

	return &MatchingService{
		interpreter: interpreter,
		cache:       newResultCache(cache, config.CacheTTL, m, logger),
		cfg:         config,
		logger:      logger,
	}
}

// FindDuplicates returns the pool items the adjudicator considers the same garment
// as item, best first. When the AI stage is unavailable it returns an empty slice
// together with an error wrapping domain.ErrAIAdjudicationUnavailable.
func (s *MatchingService) FindDuplicates(ctx context.Context, item domain.WardrobeItem, pool []domain.WardrobeItem) ([]domain.DuplicateCandidate, error) {
	candidates := s.capCandidates(Prefilter(item, pool))
	results := []domain.DuplicateCandidate{}
	if len(candidates) == 0 {
		return results, nil
	}

	cacheKey := comparisonKey(duplicatesCachePrefix, item, candidates)
	if s.cache.get(ctx, duplicatesCachePrefix, cacheKey, &results) {
		return results, nil
	}

	if s.interpreter == nil {
		return []domain.DuplicateCandidate{}, fmt.Errorf("%w: %v", domain.ErrAIAdjudicationUnavailable, domain.ErrAIDisabled)
	}
	verdicts, err := s.interpreter.AdjudicateDuplicates(ctx, item, candidates)
	if err != nil {
		s.logger.Warn("duplicate adjudication unavailable", zap.String("item", item.ID), zap.Error(err))
		return []domain.DuplicateCandidate{}, fmt.Errorf("%w: %v", domain.ErrAIAdjudicationUnavailable, err)
	}

	for _, v := range bestVerdicts(verdicts, len(candidates)) {
		confidence := normalizeConfidence(v.Confidence)
		if !v.IsDuplicate || confidence < s.cfg.DuplicateThreshold {
			continue
		}
		matchType := domain.MatchSimilar
		if confidence >= s.cfg.ExactThreshold {
			matchType = domain.MatchExact
		}
		results = append(results, domain.DuplicateCandidate{
			ItemA:      item,
			ItemB:      candidates[v.ItemIndex],
			MatchType:  matchType,
			Confidence: confidence,
			Reason:     v.Reason,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })

	s.logger.Debug("duplicates adjudicated",
		zap.String("item", item.ID),
		zap.Int("pool", len(pool)),
		zap.Int("candidates", len(candidates)),
		zap.Int("duplicates", len(results)),
	)
	s.cache.set(ctx, cacheKey, results)
	return results, nil
}

// FindSimilar returns pool items that would look alike at the same event. Items
// with the same name are left out; those are duplicates, not lookalikes.
func (s *MatchingService) FindSimilar(ctx context.Context, item domain.WardrobeItem, pool []domain.WardrobeItem) ([]domain.SimilarCandidate, error) {
	candidates := s.capCandidates(similarityCandidates(item, pool))
	results := []domain.SimilarCandidate{}
	if len(candidates) == 0 {
		return results, nil
	}

	cacheKey := comparisonKey(similarCachePrefix, item, candidates)
	if s.cache.get(ctx, similarCachePrefix, cacheKey, &results) {
		return results, nil
	}

	if s.interpreter == nil {
		return []domain.SimilarCandidate{}, fmt.Errorf("%w: %v", domain.ErrAIAdjudicationUnavailable, domain.ErrAIDisabled)
	}
	verdicts, err := s.interpreter.ScoreSimilarity(ctx, item, candidates)
	if err != nil {
		s.logger.Warn("similarity scoring unavailable", zap.String("item", item.ID), zap.Error(err))
		return []domain.SimilarCandidate{}, fmt.Errorf("%w: %v", domain.ErrAIAdjudicationUnavailable, err)
	}

	for _, v := range bestVerdicts(verdicts, len(candidates)) {
		confidence := normalizeConfidence(v.Confidence)
		if !v.IsSimilar || confidence < s.cfg.SimilarThreshold {
			continue
		}
		results = append(results, domain.SimilarCandidate{
			ItemA:      item,
			ItemB:      candidates[v.ItemIndex],
			Confidence: confidence,
			Reason:     v.Reason,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })

	s.cache.set(ctx, cacheKey, results)
	return results, nil
}

// Prefilter keeps pool items sharing item's color and either its brand or its
// subcategory. Comparison ignores case and accents, colors are compared on the
// canonical palette and empty values never match.
func Prefilter(item domain.WardrobeItem, pool []domain.WardrobeItem) []domain.WardrobeItem {
	out := make([]domain.WardrobeItem, 0, len(pool))
	for _, other := range pool {
		if item.ID != "" && other.ID == item.ID {
			continue
		}
		if !sameColor(item.Color, other.Color) {
			continue
		}
		if sameText(item.Brand, other.Brand) || sameText(item.Subcategory, other.Subcategory) {
			out = append(out, other)
		}
	}
	return out
}

func similarityCandidates(item domain.WardrobeItem, pool []domain.WardrobeItem) []domain.WardrobeItem {
	out := make([]domain.WardrobeItem, 0, len(pool))
	for _, other := range pool {
		if item.ID != "" && other.ID == item.ID {
			continue
		}
		if sameText(item.Name, other.Name) {
			continue
		}
		out = append(out, other)
	}
	return out
}

func (s *MatchingService) capCandidates(candidates []domain.WardrobeItem) []domain.WardrobeItem {
	if len(candidates) > s.cfg.MaxCandidates {
		return candidates[:s.cfg.MaxCandidates]
	}
	return candidates
}

func sameText(a, b string) bool {
	fa, fb := normalize.Fold(a), normalize.Fold(b)
	return fa != "" && fa == fb
}

func sameColor(a, b string) bool {
	ca, cb := normalize.CanonicalColor(a), normalize.CanonicalColor(b)
	return ca != "" && sameText(ca, cb)
}

// bestVerdicts drops out-of-range indices and keeps the highest confidence per index.
func bestVerdicts(verdicts []domain.Verdict, n int) []domain.Verdict {
	best := make(map[int]domain.Verdict, len(verdicts))
	order := make([]int, 0, len(verdicts))
	for _, v := range verdicts {
		if v.ItemIndex < 0 || v.ItemIndex >= n {
			continue
		}
		prev, seen := best[v.ItemIndex]
		if !seen {
			order = append(order, v.ItemIndex)
		}
		if !seen || normalizeConfidence(v.Confidence) > normalizeConfidence(prev.Confidence) {
			best[v.ItemIndex] = v
		}
	}
	out := make([]domain.Verdict, 0, len(order))
	for _, idx := range order {
		out = append(out, best[idx])
	}
	return out
}

// normalizeConfidence reads values above 1 as percentages and clamps to [0, 1].
func normalizeConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	if c > 1 {
		c /= 100
	}
	return math.Max(0, math.Min(1, c))
}

// comparisonKey hashes the item together with the exact candidate list sent to the model.
func comparisonKey(prefix string, item domain.WardrobeItem, candidates []domain.WardrobeItem) string {
	itemJSON, _ := json.Marshal(item)
	candidatesJSON, _ := json.Marshal(candidates)
	return hashKey(prefix, itemJSON, candidatesJSON)
}
