package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"citychat/ratelimit"
	"citychat/routing"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds the size of a /chat request body.
const maxBodyBytes = 10 << 20

const (
	msgRateLimited   = "Rate limit exceeded. Please wait a minute before sending another message."
	msgUpstreamBusy  = "All AI models are currently busy. Please try again in a few minutes."
	msgUnavailable   = "Sorry, I'm experiencing technical difficulties. Please try again in a moment."
	msgInternalError = "Internal server error"
	msgNotFound      = "Endpoint not found"
)

var availableEndpoints = []string{"/", "/health", "/chat", "/routing_table"}

// Server is the relay's HTTP front-end. The DNS and SSH front-ends share its
// limiter, router and audit log.
type Server struct {
	settings *Settings
	router   *routing.Router
	limiter  *ratelimit.Ledger
	audit    *AuditLog

	// rejectLog keeps a flooding caller from flooding the log.
	rejectLog rate.Sometimes
}

// NewServer wires the relay components together. audit may be nil.
func NewServer(settings *Settings, router *routing.Router, limiter *ratelimit.Ledger, audit *AuditLog) *Server {
	return &Server{
		settings:  settings,
		router:    router,
		limiter:   limiter,
		audit:     audit,
		rejectLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /routing_table", s.handleRoutingTable)
	mux.HandleFunc("/", s.handleNotFound)

	return chain(
		requestIDMiddleware,
		loggingMiddleware,
		recoveryMiddleware(s.settings.Development),
		corsMiddleware(s.settings.AllowedOrigins),
	)(mux)
}

// StartHTTPServer serves the relay on addr until ctx is cancelled, then
// drains in-flight requests.
func (s *Server) StartHTTPServer(ctx context.Context, addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" {
			log.Printf("[HTTP] HTTPS listening on %s", addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[HTTP] Listening on %s", addr)
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Upstream calls can take a while; give them time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.UpstreamTimeout+5*time.Second)
	defer cancel()
	log.Printf("[HTTP] Shutting down %s", addr)
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "✅ Server is running!",
		"timestamp": isoTimestamp(time.Now()),
		"endpoints": []string{"/chat", "/health", "/routing_table"},
	})
}

// handleHealth reports liveness only; it does not probe upstream.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": isoTimestamp(time.Now()),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":              msgNotFound,
		"availableEndpoints": availableEndpoints,
	})
}

// chatRequest keeps message raw so its JSON type can be checked.
type chatRequest struct {
	Message json.RawMessage `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err, s.settings.Development)
			return
		}
		writeError(w, http.StatusBadRequest, ErrInvalidMessage.Error(), err, s.settings.Development)
		return
	}

	message, err := validateMessage(req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, false)
		return
	}

	caller := clientIP(r)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.Limit()))
	if err := s.limiter.Allow(caller); err != nil {
		retry := s.limiter.RetryAfter(caller)
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
		s.rejectLog.Do(func() {
			log.Printf("[RateLimit] Rejected %s: limit=%d window=%v", caller, s.limiter.Limit(), s.limiter.Window())
		})
		writeError(w, http.StatusTooManyRequests, msgRateLimited, nil, false)
		return
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(s.limiter.Remaining(caller)))

	// A caller hanging up does not abandon the fallback loop.
	ctx := context.WithoutCancel(r.Context())
	result, err := s.router.Complete(ctx, message)

	status := http.StatusOK
	if err != nil {
		status = statusForRelayError(err)
	}
	s.recordAudit(requestIDFromContext(r.Context()), caller, "http", message, result, status, err)

	if err != nil {
		log.Printf("[HTTP] All models failed: %v", err)
		if status == http.StatusTooManyRequests {
			writeError(w, status, msgUpstreamBusy, nil, false)
			return
		}
		writeError(w, status, msgUnavailable, err, s.settings.Development)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": result.Content})
}

// statusForRelayError maps a failed fallback loop to an HTTP status.
func statusForRelayError(err error) int {
	if errors.Is(err, routing.ErrUpstreamBusy) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// recordAudit stores the outcome of one relay call.
func (s *Server) recordAudit(requestID, caller, channel, input string, result *routing.Result, status int, err error) {
	if s.audit == nil {
		return
	}

	entry := AuditEntry{
		RequestID:   requestID,
		Caller:      caller,
		Channel:     channel,
		Status:      status,
		FullInput:   input,
		InputTokens: countTokens(input),
	}
	if result != nil {
		entry.Model = result.Model
		entry.FullOutput = result.Content
		entry.OutputTokens = result.Usage.CompletionTokens
		if entry.OutputTokens == 0 {
			entry.OutputTokens = countTokens(result.Content)
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(entry)
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// writeError writes {"error": msg}. detail is added as "details" only when
// exposeDetails is set.
func writeError(w http.ResponseWriter, status int, msg string, detail error, exposeDetails bool) {
	body := map[string]string{"error": msg}
	if exposeDetails && detail != nil {
		body["details"] = detail.Error()
	}
	writeJSON(w, status, body)
}

// clientIP identifies the caller by the connection's remote address.
// Forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

// isoTimestamp formats t like JavaScript's Date.toISOString.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// startupBanner logs what the relay is serving.
func (s *Server) startupBanner() {
	base := fmt.Sprintf("http://localhost:%d", s.settings.Port)
	log.Printf("🚀 Server running on %s", base)
	log.Printf("🔗 Health check: %s/health", base)
	log.Printf("💬 Chat endpoint: %s/chat", base)
	log.Printf("📡 CORS enabled for: %v", s.settings.AllowedOrigins)
	log.Printf("🤖 Using OpenRouter with backup models:")
	for i, id := range s.router.Roster().IDs() {
		log.Printf("   %d. %s", i+1, id)
	}
	log.Printf("⏱️ Rate limit: %d requests per %v per IP", s.limiter.Limit(), s.limiter.Window())
	if s.settings.Development {
		log.Printf("Development mode: error details are included in responses")
	}
}
