// Package market simulates a second-hand marketplace: listings for a search,
// message delivery to sellers and their canned replies. It stands in for a
// real marketplace integration and is safe for concurrent use.
package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"bargain-backend/model"

	"go.uber.org/zap"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrUnknownSeller  = errors.New("unknown seller")
	ErrInvalidRequest = errors.New("invalid search request")
)

const minListingPrice = 100

var (
	phoneTitles = []string{
		"二手%s 128G 成色9成新",
		"%s 256G 无拆无修",
		"95新%s 全套配件",
		"%s 64G 学生价出售",
		"自用%s 功能完好",
	}
	genericTitles = []string{
		"二手%s 9成新",
		"%s 低价出售",
		"95新%s 急售",
		"自用%s 便宜卖",
		"%s 学生价",
	}
	locations = []string{"北京", "上海", "广州", "深圳", "杭州"}

	// DefaultReplies are what simulated sellers answer with.
	DefaultReplies = []string{
		"您好，这个商品还在的，价格可以商量",
		"可以优惠一点，您出个价吧",
		"这个价格已经很便宜了，最多再便宜10块",
		"可以包邮，价格就这样吧",
		"您什么时候要？急的话可以便宜点",
	}
)

// Delays bound the simulated network and seller latency. Each wait is drawn
// uniformly from [Min, Max].
type Delays struct {
	SendMin  time.Duration
	SendMax  time.Duration
	ReplyMin time.Duration
	ReplyMax time.Duration
}

type Simulator struct {
	delays  Delays
	replies []string
	logger  *zap.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	loggedIn bool
	nextID   int
	sellers  map[string]struct{}
	outbox   map[string][]string
}

type Option func(*Simulator)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// WithSeed makes listings and replies reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewPCG(seed, seed>>1|1)) }
}

// WithReplies replaces the canned seller replies. An empty list makes every
// seller silent.
func WithReplies(replies []string) Option {
	return func(s *Simulator) { s.replies = replies }
}

func NewSimulator(delays Delays, opts ...Option) *Simulator {
	s := &Simulator{
		delays:  delays,
		replies: DefaultReplies,
		logger:  zap.NewNop(),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		sellers: make(map[string]struct{}),
		outbox:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login accepts any non-empty username.
func (s *Simulator) Login(ctx context.Context, cred model.Credentials) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.TrimSpace(cred.Username) == "" {
		s.logger.Warn("login rejected: empty username")
		return false, nil
	}

	s.mu.Lock()
	s.loggedIn = true
	s.mu.Unlock()

	s.logger.Info("logged in to simulated market", zap.String("username", cred.Username))
	return true, nil
}

// Search returns five listings for keyword priced within [100, maxPrice].
func (s *Simulator) Search(ctx context.Context, keyword string, maxPrice float64) ([]model.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || maxPrice <= 0 {
		return nil, fmt.Errorf("%w: keyword=%q max_price=%v", ErrInvalidRequest, keyword, maxPrice)
	}

	titles := genericTitles
	if strings.Contains(strings.ToLower(keyword), "iphone") || strings.Contains(keyword, "手机") {
		titles = phoneTitles
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Candidate, 0, len(titles))
	for _, pattern := range titles {
		s.nextID++
		title := fmt.Sprintf(pattern, keyword)
		sellerID := fmt.Sprintf("mock_seller_%d", s.nextID)
		s.sellers[sellerID] = struct{}{}

		out = append(out, model.Candidate{
			ID:          fmt.Sprintf("mock_product_%d", s.nextID),
			Title:       title,
			Price:       s.listingPrice(maxPrice),
			SellerID:    sellerID,
			SellerName:  fmt.Sprintf("用户%d", 1000+s.rng.IntN(9000)),
			Location:    locations[s.rng.IntN(len(locations))],
			Description: title,
			URL:         fmt.Sprintf("https://www.goofish.com/item/%d", 100000+s.rng.IntN(900000)),
		})
	}

	s.logger.Info("generated simulated listings",
		zap.String("keyword", keyword),
		zap.Int("count", len(out)))
	return out, nil
}

// listingPrice is 60% of maxPrice give or take 30%, clamped to the valid
// range and rounded to cents. Callers hold s.mu.
func (s *Simulator) listingPrice(maxPrice float64) float64 {
	base := maxPrice * 0.6
	spread := maxPrice * 0.3
	p := base + (s.rng.Float64()*2-1)*spread
	p = math.Max(minListingPrice, math.Min(p, maxPrice))
	return math.Round(p*100) / 100
}

// Send delivers text to a seller the simulator has listed.
func (s *Simulator) Send(ctx context.Context, sellerID, text string) error {
	s.mu.Lock()
	loggedIn := s.loggedIn
	_, known := s.sellers[sellerID]
	s.mu.Unlock()

	if !loggedIn {
		return ErrNotLoggedIn
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownSeller, sellerID)
	}

	if err := s.sleep(ctx, s.delays.SendMin, s.delays.SendMax); err != nil {
		return err
	}

	s.mu.Lock()
	s.outbox[sellerID] = append(s.outbox[sellerID], text)
	s.mu.Unlock()

	s.logger.Debug("message sent", zap.String("seller_id", sellerID), zap.String("text", text))
	return nil
}

// AwaitReply waits for the seller's answer. "" means the seller stayed
// silent.
func (s *Simulator) AwaitReply(ctx context.Context, sellerID string) (string, error) {
	if err := s.sleep(ctx, s.delays.ReplyMin, s.delays.ReplyMax); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[s.rng.IntN(len(s.replies))]

	s.logger.Debug("seller replied", zap.String("seller_id", sellerID), zap.String("reply", reply))
	return reply, nil
}

// Sent returns the messages delivered to a seller so far.
func (s *Simulator) Sent(sellerID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.outbox[sellerID]...)
}

func (s *Simulator) sleep(ctx context.Context, lo, hi time.Duration) error {
	d := lo
	if hi > lo {
		s.mu.Lock()
		d += time.Duration(s.rng.Int64N(int64(hi - lo)))
		s.mu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
