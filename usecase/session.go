package usecase

import (
	"context"
	"fmt"
	"time"

	"bargain-backend/model"
	"bargain-backend/pkg/llm"

	"go.uber.org/zap"
)

// MaxRounds is how many offers a session makes to one seller.
const MaxRounds = 3

const DefaultRoundDelay = 2 * time.Second

// Session bargains with one seller per Run call. Round state lives inside
// Run and is never carried from one seller to the next.
type Session struct {
	generator  MessageGenerator
	channel    MessagingChannel
	extractor  *PriceExtractor
	roundDelay time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

type SessionOption func(*Session)

func WithRoundDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.roundDelay = d }
}

func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(generator MessageGenerator, channel MessagingChannel, extractor *PriceExtractor, opts ...SessionOption) *Session {
	s := &Session{
		generator:  generator,
		channel:    channel,
		extractor:  extractor,
		roundDelay: DefaultRoundDelay,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run negotiates item down towards targetPrice for at most MaxRounds rounds.
// Running out of rounds still settles at the best price reached. The outcome
// fails only when the context ends the session or the seller could not be
// reached at all.
func (s *Session) Run(ctx context.Context, item model.Candidate, targetPrice float64) model.NegotiationOutcome {
	logger := s.logger.With(zap.String("seller_id", item.SellerID), zap.String("item_id", item.ID))
	seller := llm.SellerInfo{ID: item.SellerID, Name: item.SellerName}

	current := item.Price
	var transcript []model.ConversationTurn
	rounds := 0

	failed := func(reason string) model.NegotiationOutcome {
		out := model.FailedOutcome(item, reason)
		out.Transcript = transcript
		out.RoundsUsed = rounds
		return out
	}

	for round := 1; round <= MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return failed(cancelReason(err))
		}
		rounds = round

		text := s.generator.GenerateNegotiationMessage(ctx, item, seller, transcript, targetPrice)

		if err := s.channel.Send(ctx, item.SellerID, text); err != nil {
			if ctx.Err() != nil {
				return failed(cancelReason(ctx.Err()))
			}
			logger.Warn("send failed", zap.Int("round", round), zap.Error(err))
		} else {
			transcript = append(transcript, model.ConversationTurn{
				Direction: model.DirectionSent,
				Text:      text,
				Timestamp: s.now(),
			})
		}

		reply, err := s.channel.AwaitReply(ctx, item.SellerID)
		if err != nil {
			if ctx.Err() != nil {
				return failed(cancelReason(ctx.Err()))
			}
			logger.Warn("await reply failed", zap.Int("round", round), zap.Error(err))
		}
		if reply != "" {
			transcript = append(transcript, model.ConversationTurn{
				Direction: model.DirectionReceived,
				Text:      reply,
				Timestamp: s.now(),
			})
			if p := s.extractor.Extract(reply, current); p < current {
				current = p
				logger.Info("seller lowered price", zap.Int("round", round), zap.Float64("price", current))
			}
		}

		if current <= targetPrice {
			logger.Info("target price reached", zap.Int("round", round))
			break
		}
		if round < MaxRounds && !s.pause(ctx) {
			return failed(cancelReason(ctx.Err()))
		}
	}

	if len(transcript) == 0 {
		return failed(ErrUnreachable.Error())
	}

	final := current
	return model.NegotiationOutcome{
		SellerID:   item.SellerID,
		ItemID:     item.ID,
		Success:    true,
		FinalPrice: &final,
		Transcript: transcript,
		RoundsUsed: rounds,
	}
}

func (s *Session) pause(ctx context.Context) bool {
	if s.roundDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.roundDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func cancelReason(err error) string {
	return fmt.Sprintf("%s: %v", reasonCancelled, err)
}
