package generate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spreadcard/internal/domain"
)

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(Options{})
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestGenerate(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4-turbo",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "A new practice problem"}
			}]
		}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := gen.Generate(context.Background(), "Write a scenario\n\nbase")
	require.NoError(t, err)
	assert.Equal(t, "A new practice problem", got)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, DefaultModel, gotBody["model"])

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "Write a scenario\n\nbase", msg["content"])
}

func TestGenerateTransportFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 1, calls, "generation must not retry")
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "x", "object": "chat.completion", "choices": []}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, strings.Contains(err.Error(), "no choices"))
}
