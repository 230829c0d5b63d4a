package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bargain-backend/model"
	"bargain-backend/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(gen MessageGenerator, ch MessagingChannel) *Session {
	return NewSession(gen, ch, NewSeededPriceExtractor(DefaultPriceHeuristic(), 3), WithRoundDelay(0))
}

// replies returns a reply function that walks through the given answers.
func replies(answers ...string) func(context.Context, string) (string, error) {
	var i atomic.Int32
	return func(context.Context, string) (string, error) {
		n := int(i.Add(1)) - 1
		if n >= len(answers) {
			return "", nil
		}
		return answers[n], nil
	}
}

func TestSession_StopsAtTarget(t *testing.T) {
	var sends atomic.Int32
	ch := &fakeChannel{
		sendFn:  func(context.Context, string, string) error { sends.Add(1); return nil },
		replyFn: replies("最低900元", "780元可以"),
	}
	s := newTestSession(&fakeGenerator{}, ch)

	out := s.Run(context.Background(), candidate("a", 1000), 800)

	require.True(t, out.Success)
	assert.Equal(t, 780.0, *out.FinalPrice)
	assert.Equal(t, 2, out.RoundsUsed)
	assert.Equal(t, int32(2), sends.Load(), "no third round after reaching the target")
	require.Len(t, out.Transcript, 4)
	assert.Equal(t, model.DirectionSent, out.Transcript[0].Direction)
	assert.Equal(t, model.DirectionReceived, out.Transcript[1].Direction)
}

func TestSession_ExhaustedRoundsStillSettle(t *testing.T) {
	ch := &fakeChannel{replyFn: replies("950元", "不能再低了", "可以包邮")}
	s := newTestSession(&fakeGenerator{}, ch)

	out := s.Run(context.Background(), candidate("a", 1000), 800)

	assert.True(t, out.Success)
	assert.Equal(t, MaxRounds, out.RoundsUsed)
	assert.Equal(t, 950.0, *out.FinalPrice)
	assert.Empty(t, out.FailureReason)
}

func TestSession_OnlyAdoptsLowerPrices(t *testing.T) {
	ch := &fakeChannel{replyFn: replies("900元", "1500元", "950元")}
	s := newTestSession(&fakeGenerator{}, ch)

	out := s.Run(context.Background(), candidate("a", 1000), 500)

	assert.Equal(t, 900.0, *out.FinalPrice)
	assert.LessOrEqual(t, *out.FinalPrice, 1000.0)
}

func TestSession_PassesHistoryToGenerator(t *testing.T) {
	var seen []int
	gen := &fakeGenerator{generateFn: func(_ context.Context, item model.Candidate, seller llm.SellerInfo, history []model.ConversationTurn, target float64) string {
		assert.Equal(t, item.SellerID, seller.ID)
		assert.Equal(t, 800.0, target)
		seen = append(seen, len(history))
		return "再便宜点？"
	}}
	ch := &fakeChannel{replyFn: replies("嗯", "嗯", "嗯")}

	newTestSession(gen, ch).Run(context.Background(), candidate("a", 1000), 800)

	assert.Equal(t, []int{0, 2, 4}, seen)
}

func TestSession_SendFailureContinues(t *testing.T) {
	var calls atomic.Int32
	ch := &fakeChannel{
		sendFn: func(context.Context, string, string) error {
			if calls.Add(1) == 1 {
				return errors.New("network blip")
			}
			return nil
		},
		replyFn: replies("", "850元"),
	}
	s := newTestSession(&fakeGenerator{}, ch)

	out := s.Run(context.Background(), candidate("a", 1000), 800)

	require.True(t, out.Success)
	assert.Equal(t, 850.0, *out.FinalPrice)
	// round 1 recorded nothing; rounds 2 and 3 recorded their sends
	assert.Equal(t, model.DirectionSent, out.Transcript[0].Direction)
	assert.Len(t, out.Transcript, 3)
}

func TestSession_Unreachable(t *testing.T) {
	ch := &fakeChannel{
		sendFn:  func(context.Context, string, string) error { return errors.New("blocked") },
		replyFn: func(context.Context, string) (string, error) { return "", errors.New("blocked") },
	}
	s := newTestSession(&fakeGenerator{}, ch)

	out := s.Run(context.Background(), candidate("a", 1000), 800)

	assert.False(t, out.Success)
	assert.Nil(t, out.FinalPrice)
	assert.Equal(t, ErrUnreachable.Error(), out.FailureReason)
	assert.Equal(t, MaxRounds, out.RoundsUsed)
}

func TestSession_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &fakeChannel{
		replyFn: func(ctx context.Context, _ string) (string, error) {
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	s := newTestSession(&fakeGenerator{}, ch)

	out := s.Run(ctx, candidate("a", 1000), 800)

	assert.False(t, out.Success)
	assert.True(t, strings.HasPrefix(out.FailureReason, "negotiation cancelled"), out.FailureReason)
	assert.Equal(t, 1, out.RoundsUsed)
}

func TestSession_PacingHonoursContext(t *testing.T) {
	ch := &fakeChannel{replyFn: replies("不行")}
	s := NewSession(&fakeGenerator{}, ch, NewPriceExtractor(DefaultPriceHeuristic()), WithRoundDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := s.Run(ctx, candidate("a", 1000), 800)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, out.Success)
	assert.Len(t, out.Transcript, 2)
}
