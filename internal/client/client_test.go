package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

func collect(t *testing.T, ch <-chan entities.AnswerChunk) []entities.AnswerChunk {
	t.Helper()
	var got []entities.AnswerChunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, c)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		line string
		want entities.AnswerChunk
		ok   bool
	}{
		{`data: {"chunk":"Om"}`, entities.TokenChunk("Om"), true},
		{`data:{"chunk":""}`, entities.TokenChunk(""), true},
		{`data: {"done":true,"sources":["s1","s2"]}`, entities.DoneChunk([]string{"s1", "s2"}), true},
		{`data: {"done":true}`, entities.DoneChunk(nil), true},
		{`data: {"error":"failed"}`, entities.ErrorChunk("failed"), true},
		{`data: {"chunk":`, entities.AnswerChunk{}, false},
		{`data: {}`, entities.AnswerChunk{}, false},
		{`event: ping`, entities.AnswerChunk{}, false},
		{`data: [DONE]`, entities.AnswerChunk{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseRecord(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestReadStream_SkipsMalformedRecords(t *testing.T) {
	body := strings.Join([]string{
		`data: {"chunk":"Om is "}`,
		``,
		`: keep-alive`,
		`data: not json`,
		`data: {"chunk":"sacred."}`,
		``,
		`data: {"done":true,"sources":["s1"]}`,
		``,
		`data: {"chunk":"after terminal"}`,
	}, "\n")

	out := make(chan entities.AnswerChunk)
	go func() {
		defer close(out)
		ReadStream(context.Background(), strings.NewReader(body), out, nil)
	}()

	assert.Equal(t, []entities.AnswerChunk{
		entities.TokenChunk("Om is "),
		entities.TokenChunk("sacred."),
		entities.DoneChunk([]string{"s1"}),
	}, collect(t, out))
}

func TestReadStream_TruncatedStreamEndsWithError(t *testing.T) {
	out := make(chan entities.AnswerChunk)
	go func() {
		defer close(out)
		ReadStream(context.Background(), strings.NewReader("data: {\"chunk\":\"a\"}\n\n"), out, nil)
	}()

	assert.Equal(t, []entities.AnswerChunk{
		entities.TokenChunk("a"),
		entities.ErrorChunk(ErrIncompleteStream),
	}, collect(t, out))
}

func TestReadStream_SkipsOversizedRecord(t *testing.T) {
	huge := `data: {"chunk":"` + strings.Repeat("x", maxRecordSize+1024) + `"}`
	body := strings.Join([]string{
		`data: {"chunk":"Om "}`,
		``,
		huge,
		``,
		`data: {"chunk":"tat sat"}`,
		``,
		`data: {"done":true,"sources":["gita"]}`,
		``,
	}, "\n")

	out := make(chan entities.AnswerChunk)
	go func() {
		defer close(out)
		ReadStream(context.Background(), strings.NewReader(body), out, nil)
	}()

	assert.Equal(t, []entities.AnswerChunk{
		entities.TokenChunk("Om "),
		entities.TokenChunk("tat sat"),
		entities.DoneChunk([]string{"gita"}),
	}, collect(t, out))
}

func TestReadStream_OversizedTrailingRecord(t *testing.T) {
	body := `data: {"chunk":"a"}` + "\n" + strings.Repeat("y", maxRecordSize+1)

	out := make(chan entities.AnswerChunk)
	go func() {
		defer close(out)
		ReadStream(context.Background(), strings.NewReader(body), out, nil)
	}()

	assert.Equal(t, []entities.AnswerChunk{
		entities.TokenChunk("a"),
		entities.ErrorChunk(ErrIncompleteStream),
	}, collect(t, out))
}

func TestClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/stream", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is Om?", req["question"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, rec := range []string{`{"chunk":"Om "}`, `{"chunk":"is sound."}`, `{"done":true,"sources":["s1"]}`} {
			fmt.Fprintf(w, "data: %s\n\n", rec)
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	ch, err := New(srv.URL).Stream(context.Background(), "What is Om?")
	require.NoError(t, err)

	got := collect(t, ch)
	require.Len(t, got, 3)
	assert.Equal(t, "Om is sound.", got[0].Token+got[1].Token)
	assert.Equal(t, entities.DoneChunk([]string{"s1"}), got[2])
}

func TestClient_StreamCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"chunk\":\"first\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := New(srv.URL).Stream(ctx, "q")
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, entities.TokenChunk("first"), first)
	cancel()

	for c := range ch {
		assert.Failf(t, "chunk after cancel", "%+v", c)
	}
}

func TestClient_StreamValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail":"question must not be empty","error_code":"INVALID_INPUT"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Stream(context.Background(), " ")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "INVALID_INPUT", se.Code)
	assert.Equal(t, "question must not be empty", se.Detail)
}

func TestClient_Ask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"Om is sound.","context_used":"Om is...","sources":["s1"]}`)
	}))
	defer srv.Close()

	answer, err := New(srv.URL + "/").Ask(context.Background(), "What is Om?")
	require.NoError(t, err)
	assert.Equal(t, &entities.Answer{Response: "Om is sound.", ContextUsed: "Om is...", Sources: []string{"s1"}}, answer)
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"Rate limit exceeded","message":"You are sending too many requests. Please slow down."}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Ask(context.Background(), "q")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "You are sending too many requests. Please slow down.", se.Detail)
}

func TestClient_LearnStatsHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/learn":
			fmt.Fprint(w, `{"status":"success","message":"ok","chunks_added":7}`)
		case "/stats":
			fmt.Fprint(w, `{"total_chunks":7,"total_sources":1,"collection_name":"scriptures"}`)
		case "/health":
			fmt.Fprint(w, `{"status":"healthy","version":"1.0.0","llm_provider":"groq"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	n, err := c.Learn(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.StoreStats{TotalChunks: 7, TotalSources: 1, CollectionName: "scriptures"}, stats)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}
