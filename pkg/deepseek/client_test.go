package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bargain-backend/pkg/llm"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", "", time.Second)
	require.Error(t, err)
}

func TestCompleteChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"您好，可以便宜点吗？"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", srv.URL, 5*time.Second)
	require.NoError(t, err)

	got, err := c.CompleteChat(context.Background(), []llm.Message{
		{Role: "system", Content: "你是谈判助手"},
		{Role: "user", Content: "生成消息"},
	}, llm.ChatParams{Model: "deepseek-chat", Temperature: 0.8, MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "您好，可以便宜点吗？", got)
}

func TestCompleteChat_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"authentication_error"}}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-bad", srv.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = c.CompleteChat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.ChatParams{Model: "deepseek-chat"})

	require.Error(t, err)
	assert.True(t, llm.IsAPI(err), "got %v", err)
	assert.False(t, llm.IsTransient(err))
}

func TestCompleteChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient("sk-test", url, time.Second)
	require.NoError(t, err)

	_, err = c.CompleteChat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.ChatParams{Model: "deepseek-chat"})

	require.Error(t, err)
	assert.True(t, llm.IsTransient(err), "got %v", err)
}

func TestClassify_Unknown(t *testing.T) {
	err := classify(errors.New("weird"))
	assert.False(t, llm.IsAPI(err))
	assert.False(t, llm.IsTransient(err))
}

func TestToChatMessages_Roles(t *testing.T) {
	got := toChatMessages([]llm.Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: "u"},
		{Role: "assistant", Content: "a"},
		{Role: "", Content: "x"},
	})

	require.Len(t, got, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, got[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got[3].Role)
	assert.Equal(t, "a", got[2].Content)
}
