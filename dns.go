package main

import (
	"context"
	"log"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/miekg/dns"
)

const (
	dnsPromptPrefix = "Answer in 500 characters or less, no markdown formatting: "
	dnsDeadline     = 4 * time.Second // Safe middle ground for DNS clients
	dnsMaxAnswer    = 500
	dnsTXTChunk     = 255
)

// StartDNSServer answers TXT queries on addr (UDP) until ctx is cancelled.
func (s *Server) StartDNSServer(ctx context.Context, addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	return s.serveDNS(ctx, pc, nil)
}

// serveDNS serves on an existing packet connection. started, if non-nil, is
// closed once the server is accepting queries.
func (s *Server) serveDNS(ctx context.Context, pc net.PacketConn, started chan<- struct{}) error {
	domain := strings.ToLower(dns.Fqdn(s.settings.DNSDomain))

	mux := dns.NewServeMux()
	mux.HandleFunc(domain, s.handleDNS)
	mux.HandleFunc(".", handleDNSRefused)

	ready := make(chan struct{})
	server := &dns.Server{
		PacketConn: pc,
		Handler:    mux,
		NotifyStartedFunc: func() {
			close(ready)
			if started != nil {
				close(started)
			}
		},
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ready:
		case <-done:
			return
		}
		select {
		case <-ctx.Done():
			server.Shutdown()
		case <-done:
		}
	}()

	log.Printf("[DNS] DNS server listening on %s for *.%s", pc.LocalAddr(), domain)
	return server.ActivateAndServe()
}

func (s *Server) handleDNS(w dns.ResponseWriter, r *dns.Msg) {
	if len(r.Question) == 0 {
		return
	}

	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	caller := "unknown"
	if host, _, err := net.SplitHostPort(w.RemoteAddr().String()); err == nil {
		caller = host
	}
	domain := strings.ToLower(dns.Fqdn(s.settings.DNSDomain))

	for _, q := range r.Question {
		if q.Qtype != dns.TypeTXT {
			continue
		}

		prompt := dnsPrompt(q.Name, domain)
		log.Printf("[DNS] Query from %s: %q", caller, prompt)

		var answer string
		if _, err := checkMessage(prompt); err != nil {
			answer = err.Error()
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), dnsDeadline)
			answer, _ = s.relayText(ctx, caller, "dns", dnsPromptPrefix+prompt)
			cancel()
		}

		m.Answer = append(m.Answer, &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			Txt: chunkTXT(truncateAnswer(answer, dnsMaxAnswer), dnsTXTChunk),
		})
	}

	w.WriteMsg(m)
}

// handleDNSRefused answers names outside the relay's domain.
func handleDNSRefused(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetRcode(r, dns.RcodeRefused)
	w.WriteMsg(m)
}

// dnsPrompt turns "best-dosa.in.jayanagar.chat.local." into "best dosa in jayanagar".
func dnsPrompt(name, domain string) string {
	name = strings.TrimSuffix(strings.ToLower(dns.Fqdn(name)), domain)
	name = strings.TrimSuffix(name, ".")
	return strings.TrimSpace(strings.NewReplacer("-", " ", ".", " ").Replace(name))
}

// truncateAnswer caps s at max bytes without splitting a character.
func truncateAnswer(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// chunkTXT splits s into strings of at most size bytes, on character boundaries.
func chunkTXT(s string, size int) []string {
	if s == "" {
		return []string{""}
	}

	var chunks []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return append(chunks, s)
}
