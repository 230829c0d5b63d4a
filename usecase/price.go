package usecase

import (
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PriceHeuristic tunes the guess made when a seller agrees to a discount
// without naming a number.
type PriceHeuristic struct {
	MinDiscount float64
	MaxDiscount float64
	// FloorRatio caps any reduction at this share of the current price.
	FloorRatio float64
	Keywords   []string
}

func DefaultPriceHeuristic() PriceHeuristic {
	return PriceHeuristic{
		MinDiscount: 5,
		MaxDiscount: 15,
		FloorRatio:  0.8,
		Keywords:    []string{"优惠", "便宜", "减", "discount", "cheaper", "reduce"},
	}
}

var (
	// Tried in order; the first pattern with any match decides.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+\.?\d*)元`),
		regexp.MustCompile(`(\d+\.?\d*)块`),
		regexp.MustCompile(`(\d+\.?\d*)`),
	}
	// "优惠10元", "便宜了20块", "减50": the number is an amount off. 少 is
	// left out since 最少/至少 name a minimum price.
	reductionPattern = regexp.MustCompile(`(?:优惠|便宜|减)了?(\d+(?:\.\d+)?)\s*(?:元|块)?`)
)

// PriceExtractor reads a candidate price out of a seller reply. It is safe
// for concurrent use.
type PriceExtractor struct {
	h PriceHeuristic

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPriceExtractor(h PriceHeuristic) *PriceExtractor {
	return &PriceExtractor{
		h:   h,
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// NewSeededPriceExtractor makes the keyword-only guess reproducible.
func NewSeededPriceExtractor(h PriceHeuristic, seed uint64) *PriceExtractor {
	return &PriceExtractor{h: h, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Extract returns the price the reply suggests, or current when it suggests
// nothing usable. A number is only taken as a price when 0 < p < 2*current.
func (e *PriceExtractor) Extract(reply string, current float64) float64 {
	if p, ok := e.reduction(reply, current); ok {
		return p
	}

	for _, pattern := range pricePatterns {
		m := pattern.FindStringSubmatch(reply)
		if m == nil {
			continue
		}
		p, err := strconv.ParseFloat(m[1], 64)
		if err == nil && p > 0 && p < current*2 {
			return p
		}
		return current
	}

	if e.mentionsDiscount(reply) {
		cut := e.h.MinDiscount + e.roll()*(e.h.MaxDiscount-e.h.MinDiscount)
		return math.Max(current-cut, current*e.h.FloorRatio)
	}
	return current
}

func (e *PriceExtractor) reduction(reply string, current float64) (float64, bool) {
	m := reductionPattern.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil || amount <= 0 || amount >= current {
		return 0, false
	}
	return math.Max(current-amount, current*e.h.FloorRatio), true
}

func (e *PriceExtractor) mentionsDiscount(reply string) bool {
	lower := strings.ToLower(reply)
	for _, kw := range e.h.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (e *PriceExtractor) roll() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
