package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"citychat/models"
	"citychat/providers"
	"citychat/ratelimit"
	"citychat/routing"
	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// keep tests off the network
	loadTokenizer = func() (*tiktoken.Tiktoken, error) {
		return nil, errors.New("tokenizer disabled in tests")
	}
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// upstreamReply is what the fake OpenRouter returns for one model.
type upstreamReply struct {
	status int
	body   string
}

func completion(content string) upstreamReply {
	b, _ := json.Marshal(map[string]interface{}{
		"id": "gen-test",
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
	})
	return upstreamReply{status: http.StatusOK, body: string(b)}
}

func upstreamError(status int, message string) upstreamReply {
	b, _ := json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{"message": message, "code": status},
	})
	return upstreamReply{status: status, body: string(b)}
}

// fakeUpstream is an OpenRouter stand-in answering per model.
type fakeUpstream struct {
	*httptest.Server

	mu       sync.Mutex
	replies  map[string]upstreamReply
	calls    []string
	messages []string
}

func newFakeUpstream(t *testing.T, replies map[string]upstreamReply) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{replies: replies}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req providers.UnifiedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.calls = append(f.calls, req.Model)
		if n := len(req.Messages); n > 0 {
			f.messages = append(f.messages, req.Messages[n-1].Content)
		}
		reply, ok := f.replies[req.Model]
		f.mu.Unlock()

		if !ok {
			reply = upstreamError(http.StatusNotFound, "No endpoints found for "+req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		io.WriteString(w, reply.body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeUpstream) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func testSettings() *Settings {
	return &Settings{
		Port:            5000,
		APIKey:          "sk-test",
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
		RateLimitMax:    10,
		RateLimitWindow: time.Minute,
		UpstreamTimeout: 5 * time.Second,
		SiteURL:         "http://localhost:5173",
		SiteName:        "Bangalore Chatbot",
		DNSDomain:       "chat.local.",
	}
}

// newTestServer builds a relay in front of up with the given roster.
func newTestServer(t *testing.T, up *fakeUpstream, ids []string, settings *Settings, audit *AuditLog) *Server {
	t.Helper()
	if settings == nil {
		settings = testSettings()
	}

	roster, err := models.NewRoster(ids)
	require.NoError(t, err)

	provider := providers.NewOpenRouterProvider(settings.APIKey).
		WithBaseURL(up.URL).
		WithTimeout(settings.UpstreamTimeout).
		WithSiteURL(settings.SiteURL).
		WithSiteName(settings.SiteName)

	router := routing.NewRouter(roster, provider)
	limiter := ratelimit.NewLedger(settings.RateLimitMax, settings.RateLimitWindow)
	return NewServer(settings, router, limiter, audit)
}
