package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bargain-backend/model"
	"bargain-backend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	calls    atomic.Int32
	complete func(ctx context.Context, messages []Message, params ChatParams) (string, error)
}

func (f *fakeModel) CompleteChat(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	f.calls.Add(1)
	return f.complete(ctx, messages, params)
}

func fastRetry() Option {
	return WithRetryConfig(RetryConfig{
		MaxRetries:      3,
		BackoffBase:     time.Millisecond,
		UnexpectedDelay: time.Millisecond,
	})
}

var chatMessages = []Message{{Role: "user", Content: "hello"}}

func TestGateway_NoModelIsMock(t *testing.T) {
	g := New(nil)

	assert.Equal(t, ModeMock, g.Mode())
	assert.Equal(t, fallbackReply, g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3))
}

func TestGateway_LiveSuccess(t *testing.T) {
	fm := &fakeModel{complete: func(_ context.Context, _ []Message, p ChatParams) (string, error) {
		assert.Equal(t, "deepseek-reasoner", p.Model)
		assert.Equal(t, 0.5, p.Temperature)
		return "hi there", nil
	}}
	g := New(fm, fastRetry(), WithModelName("deepseek-reasoner"))

	got := g.ChatCompletion(context.Background(), chatMessages, "", 0.5, 100, 3)

	assert.Equal(t, "hi there", got)
	assert.Equal(t, int32(1), fm.calls.Load())
	assert.Equal(t, ModeLive, g.Mode())
}

func TestGateway_TransientRetriesThenSwitchesToMock(t *testing.T) {
	fm := &fakeModel{complete: func(context.Context, []Message, ChatParams) (string, error) {
		return "", NewTransientError(errors.New("connection refused"))
	}}
	rec := metrics.New(prometheus.NewRegistry())
	g := New(fm, fastRetry(), WithMetrics(rec))

	got := g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3)

	assert.Equal(t, fallbackReply, got)
	assert.Equal(t, int32(3), fm.calls.Load())
	assert.Equal(t, ModeMock, g.Mode())

	// mock mode is permanent: the model is not called again
	g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3)
	assert.Equal(t, int32(3), fm.calls.Load())
}

func TestGateway_TransientRecovers(t *testing.T) {
	fm := &fakeModel{}
	fm.complete = func(context.Context, []Message, ChatParams) (string, error) {
		if fm.calls.Load() < 2 {
			return "", NewTransientError(errors.New("timeout"))
		}
		return "recovered", nil
	}
	g := New(fm, fastRetry())

	assert.Equal(t, "recovered", g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3))
	assert.Equal(t, ModeLive, g.Mode())
}

func TestGateway_APIErrorIsPerCall(t *testing.T) {
	fm := &fakeModel{}
	fm.complete = func(context.Context, []Message, ChatParams) (string, error) {
		if fm.calls.Load() == 1 {
			return "", NewAPIError(401, errors.New("invalid api key"))
		}
		return "fine", nil
	}
	g := New(fm, fastRetry())

	assert.Equal(t, fallbackReply, g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3))
	assert.Equal(t, int32(1), fm.calls.Load(), "api errors are not retried")
	assert.Equal(t, ModeLive, g.Mode())

	assert.Equal(t, "fine", g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3))
}

func TestGateway_UnexpectedErrorRetries(t *testing.T) {
	fm := &fakeModel{complete: func(context.Context, []Message, ChatParams) (string, error) {
		return "", errors.New("boom")
	}}
	g := New(fm, fastRetry())

	got := g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 2)

	assert.Equal(t, fallbackReply, got)
	assert.Equal(t, int32(2), fm.calls.Load())
	assert.Equal(t, ModeLive, g.Mode())
}

func TestGateway_EmptyResponseFallsBack(t *testing.T) {
	fm := &fakeModel{complete: func(context.Context, []Message, ChatParams) (string, error) {
		return "   ", nil
	}}
	g := New(fm, fastRetry())

	assert.Equal(t, fallbackReply, g.ChatCompletion(context.Background(), chatMessages, "", 0.7, 100, 3))
}

func TestGateway_CancelledContext(t *testing.T) {
	fm := &fakeModel{complete: func(context.Context, []Message, ChatParams) (string, error) {
		return "unused", nil
	}}
	g := New(fm, fastRetry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, fallbackReply, g.ChatCompletion(ctx, chatMessages, "", 0.7, 100, 3))
	assert.Equal(t, int32(0), fm.calls.Load())
}

func TestGateway_DeadlineDuringCallStaysLive(t *testing.T) {
	fm := &fakeModel{complete: func(ctx context.Context, _ []Message, _ ChatParams) (string, error) {
		<-ctx.Done()
		return "", NewTransientError(ctx.Err())
	}}
	g := New(fm, fastRetry())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Equal(t, fallbackReply, g.ChatCompletion(ctx, chatMessages, "", 0.7, 100, 1))
	assert.Equal(t, ModeLive, g.Mode())
	assert.Equal(t, int32(1), fm.calls.Load())
}

func TestAnalyzeRequirement_MockMode(t *testing.T) {
	g := New(nil)

	a := g.AnalyzeRequirement(context.Background(), "iPhone 13 二手")

	assert.Equal(t, []string{"iPhone", "13", "二手"}, a.Keywords)
	assert.Equal(t, "数码产品", a.Category)
}

func TestAnalyzeRequirement_FencedJSON(t *testing.T) {
	fm := &fakeModel{complete: func(_ context.Context, messages []Message, _ ChatParams) (string, error) {
		require.Len(t, messages, 2)
		assert.Equal(t, analysisPrefix+"switch oled", messages[1].Content)
		return "```json\n{\"keywords\": [\"switch\", \"oled\",], \"category\": \"游戏机\"}\n```", nil
	}}
	g := New(fm, fastRetry())

	a := g.AnalyzeRequirement(context.Background(), "switch oled")

	assert.Equal(t, []string{"switch", "oled"}, a.Keywords)
	assert.Equal(t, "游戏机", a.Category)
	assert.NotNil(t, a.Features)
}

func TestAnalyzeRequirement_UnparseableFallsBack(t *testing.T) {
	fm := &fakeModel{complete: func(context.Context, []Message, ChatParams) (string, error) {
		return "I think you want a phone.", nil
	}}
	g := New(fm, fastRetry())

	a := g.AnalyzeRequirement(context.Background(), "iPhone 13 二手")

	assert.Equal(t, DefaultAnalysis("iPhone 13 二手"), a)
}

func TestAnalyzeRequirement_EmptyKeywordsFallsBack(t *testing.T) {
	fm := &fakeModel{complete: func(context.Context, []Message, ChatParams) (string, error) {
		return `{"keywords": [], "category": "手机"}`, nil
	}}
	g := New(fm, fastRetry())

	a := g.AnalyzeRequirement(context.Background(), "kindle")

	assert.Equal(t, []string{"kindle"}, a.Keywords)
	assert.Equal(t, "未知", a.Category)
}

func TestGenerateNegotiationMessage(t *testing.T) {
	item := model.Candidate{ID: "i1", Title: "iPhone 13", Price: 1000, SellerID: "s1"}
	history := []model.ConversationTurn{
		{Direction: model.DirectionSent, Text: "能便宜吗"},
		{Direction: model.DirectionReceived, Text: "可以优惠10元"},
	}

	t.Run("mock", func(t *testing.T) {
		g := New(nil, WithSeed(7))
		for range 10 {
			text := g.GenerateNegotiationMessage(context.Background(), item, SellerInfo{ID: "s1"}, history, 800)
			assert.Contains(t, buyerOpeners, text)
		}
	})

	t.Run("live prompt carries history and target", func(t *testing.T) {
		fm := &fakeModel{complete: func(_ context.Context, messages []Message, p ChatParams) (string, error) {
			assert.Equal(t, negotiationTemperature, p.Temperature)
			prompt := messages[1].Content
			assert.Contains(t, prompt, "iPhone 13")
			assert.Contains(t, prompt, "卖家：可以优惠10元")
			assert.Contains(t, prompt, "目标价格：800.00")
			return "  900元可以吗？ ", nil
		}}
		g := New(fm, fastRetry())

		text := g.GenerateNegotiationMessage(context.Background(), item, SellerInfo{ID: "s1", Name: "小王"}, history, 800)
		assert.Equal(t, "900元可以吗？", text)
	})
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "plain fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose", in: `here you go: {"a":1} hope it helps`, want: `{"a":1}`},
		{name: "trailing comma", in: `{"a":[1,2,],}`, want: `{"a":[1,2]}`},
		{name: "none", in: "no json", want: ""},
		{name: "empty", in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.in)
			if strings.TrimSpace(got) != tt.want {
				t.Fatalf("ExtractJSON(%q)=%q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), NewTransientError(errors.New("dial")))
	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsAPI(wrapped))

	apiErr := NewAPIError(429, errors.New("rate limited"))
	assert.True(t, IsAPI(apiErr))
	assert.Contains(t, apiErr.Error(), "429")
}
