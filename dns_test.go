package main

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNSPrompt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"best-dosa.chat.local.", "best dosa"},
		{"Best-Dosa.in.Jayanagar.CHAT.local.", "best dosa in jayanagar"},
		{"chat.local.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dnsPrompt(tt.name, "chat.local."), tt.name)
	}
}

func TestChunkTXT(t *testing.T) {
	assert.Equal(t, []string{""}, chunkTXT("", 255))
	assert.Equal(t, []string{"abc"}, chunkTXT("abc", 255))

	chunks := chunkTXT(strings.Repeat("a", 600), 255)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 255)
	assert.Len(t, chunks[2], 90)

	// never split a multi-byte character
	kannada := strings.Repeat("ಬ", 100) // 3 bytes each
	for _, c := range chunkTXT(kannada, 255) {
		assert.LessOrEqual(t, len(c), 255)
		assert.True(t, strings.Count(c, "ಬ")*3 == len(c))
	}
}

func TestTruncateAnswer(t *testing.T) {
	assert.Equal(t, "short", truncateAnswer("short", 500))

	long := truncateAnswer(strings.Repeat("b", 600), 500)
	assert.Len(t, long, 500)
	assert.True(t, strings.HasSuffix(long, "..."))

	multi := truncateAnswer(strings.Repeat("ಬ", 200), 500)
	assert.LessOrEqual(t, len(multi), 500)
	assert.True(t, strings.HasSuffix(multi, "ಬ..."))
}

// startDNS serves s on a loopback UDP port and returns its address.
func startDNS(t *testing.T, s *Server) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.serveDNS(ctx, pc, started)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("DNS server did not start")
	}
	return pc.LocalAddr().String()
}

func queryTXT(t *testing.T, addr, name string) *dns.Msg {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)

	c := &dns.Client{Net: "udp", Timeout: 5 * time.Second}
	resp, _, err := c.Exchange(m, addr)
	require.NoError(t, err)
	return resp
}

func TestDNSAnswersThroughRouter(t *testing.T) {
	up := newFakeUpstream(t, map[string]upstreamReply{
		"m1": upstreamError(http.StatusTooManyRequests, "busy"),
		"m2": completion("Try CTR in Malleshwaram."),
	})
	s := newTestServer(t, up, []string{"m1", "m2"}, nil, nil)
	addr := startDNS(t, s)

	resp := queryTXT(t, addr, "best-benne-dosa.chat.local")

	require.Equal(t, dns.RcodeSuccess, resp.Rcode)
	require.Len(t, resp.Answer, 1)
	txt, ok := resp.Answer[0].(*dns.TXT)
	require.True(t, ok)
	assert.Equal(t, "Try CTR in Malleshwaram.", strings.Join(txt.Txt, ""))
	assert.Equal(t, uint32(60), txt.Hdr.Ttl)

	assert.Equal(t, 1, s.router.Cursor())
	msgs := up.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, dnsPromptPrefix+"best benne dosa", msgs[len(msgs)-1])
}

func TestDNSLongAnswerIsChunked(t *testing.T) {
	up := newFakeUpstream(t, map[string]upstreamReply{
		"m1": completion(strings.Repeat("Bengaluru ", 80)),
	})
	s := newTestServer(t, up, []string{"m1"}, nil, nil)
	addr := startDNS(t, s)

	resp := queryTXT(t, addr, "tell-me-everything.chat.local")

	require.Len(t, resp.Answer, 1)
	txt := resp.Answer[0].(*dns.TXT)
	assert.Len(t, txt.Txt, 2)
	joined := strings.Join(txt.Txt, "")
	assert.Len(t, joined, dnsMaxAnswer)
	assert.True(t, strings.HasSuffix(joined, "..."))
}

func TestDNSSharesRateLimit(t *testing.T) {
	up := newFakeUpstream(t, map[string]upstreamReply{"m1": completion("ok")})
	settings := testSettings()
	settings.RateLimitMax = 1
	s := newTestServer(t, up, []string{"m1"}, settings, nil)
	addr := startDNS(t, s)

	first := queryTXT(t, addr, "hello.chat.local")
	assert.Equal(t, "ok", strings.Join(first.Answer[0].(*dns.TXT).Txt, ""))

	second := queryTXT(t, addr, "hello-again.chat.local")
	assert.Equal(t, msgRateLimited, strings.Join(second.Answer[0].(*dns.TXT).Txt, ""))
	assert.Len(t, up.Calls(), 1)
}

func TestDNSRefusesOtherDomains(t *testing.T) {
	up := newFakeUpstream(t, nil)
	s := newTestServer(t, up, []string{"m1"}, nil, nil)
	addr := startDNS(t, s)

	resp := queryTXT(t, addr, "hello.example.com")
	assert.Equal(t, dns.RcodeRefused, resp.Rcode)
	assert.Empty(t, up.Calls())
}
