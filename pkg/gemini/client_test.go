package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"bargain-backend/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "")
	require.Error(t, err)
}

func TestToContents(t *testing.T) {
	system, contents := toContents([]llm.Message{
		{Role: "system", Content: "你是谈判助手"},
		{Role: "user", Content: "第一条"},
		{Role: "assistant", Content: "回复"},
		{Role: "user", Content: "第二条"},
	})

	require.NotNil(t, system)
	require.Len(t, system.Parts, 1)
	assert.Equal(t, "你是谈判助手", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "第二条", contents[2].Parts[0].Text)
}

func TestToContents_NoSystem(t *testing.T) {
	system, contents := toContents([]llm.Message{{Role: "user", Content: "hi"}})
	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestGenerationConfig(t *testing.T) {
	cfg := generationConfig(nil, llm.ChatParams{Temperature: 0.8, MaxTokens: 256})

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.8, *cfg.Temperature, 1e-6)
	assert.Equal(t, int32(256), cfg.MaxOutputTokens)

	cfg = generationConfig(nil, llm.ChatParams{})
	assert.Equal(t, int32(0), cfg.MaxOutputTokens)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantAPI       bool
		wantTransient bool
	}{
		{name: "api error", err: genai.APIError{Code: 403, Message: "permission denied"}, wantAPI: true},
		{name: "wrapped api error", err: fmt.Errorf("call: %w", genai.APIError{Code: 400}), wantAPI: true},
		{name: "network", err: &url.Error{Op: "Post", URL: "https://example.invalid", Err: errors.New("dial tcp")}, wantTransient: true},
		{name: "deadline", err: context.DeadlineExceeded, wantTransient: true},
		{name: "other", err: errors.New("odd")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if llm.IsAPI(got) != tt.wantAPI {
				t.Fatalf("IsAPI(classify(%v))=%v, want %v", tt.err, llm.IsAPI(got), tt.wantAPI)
			}
			if llm.IsTransient(got) != tt.wantTransient {
				t.Fatalf("IsTransient(classify(%v))=%v, want %v", tt.err, llm.IsTransient(got), tt.wantTransient)
			}
		})
	}
}
