package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, keys []string, handler http.HandlerFunc) (*RotatingChatClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pool, err := NewKeyPool(keys)
	require.NoError(t, err)

	client, err := NewRotatingChatClient(pool, "test-model", srv.URL, 5*time.Second)
	require.NoError(t, err)
	return client, srv
}

func okResponse(content string) string {
	return `{"id":"resp-1","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"stop"}]}`
}

func TestGenerateTextRotatesOn429(t *testing.T) {
	var calls int
	var seenKeys []string
	client, _ := newTestClient(t, []string{"k1", "k2"}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		seenKeys = append(seenKeys, r.Header.Get("Authorization"))
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse("hello")))
	})

	text, err := client.GenerateText(context.Background(), []*schema.Message{
		schema.UserMessage("hi"),
	}, 0.1)

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	// 第一把密钥被限流后应换第二把
	require.Len(t, seenKeys, 2)
	assert.Equal(t, "Bearer k1", seenKeys[0])
	assert.Equal(t, "Bearer k2", seenKeys[1])
}

func TestGenerateTextFailsFastOnServerError(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, []string{"k1", "k2", "k3"}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, err := client.GenerateText(context.Background(), []*schema.Message{
		schema.UserMessage("hi"),
	}, 0.1)

	require.Error(t, err)
	// 非429错误不应消耗剩余密钥
	assert.Equal(t, 1, calls)

	var statusErr *APIStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestGenerateTextExhaustsAllKeys(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, []string{"k1", "k2", "k3"}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GenerateText(context.Background(), []*schema.Message{
		schema.UserMessage("hi"),
	}, 0.1)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, ErrKeysExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	require.NotNil(t, exhausted.LastErr)
}

func TestGenerateTextEmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, []string{"k1"}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp-1","choices":[]}`))
	})

	_, err := client.GenerateText(context.Background(), []*schema.Message{
		schema.UserMessage("hi"),
	}, 0.1)
	require.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
}
