package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"citychat/config"
	"citychat/providers"
	"citychat/ratelimit"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("⚠️ %v", err)
	}
}

func run() error {
	settings, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}

	roster := config.Default()
	if settings.ModelsFile != "" {
		if roster, err = config.LoadRosterFile(settings.ModelsFile); err != nil {
			return err
		}
		log.Printf("Loaded model roster from %s", settings.ModelsFile)
	}

	provider := providers.NewOpenRouterProvider(settings.APIKey).
		WithBaseURL(settings.UpstreamURL).
		WithTimeout(settings.UpstreamTimeout).
		WithSiteURL(settings.SiteURL).
		WithSiteName(settings.SiteName)

	router, err := config.BuildRouter(roster, provider)
	if err != nil {
		return err
	}

	var audit *AuditLog
	if settings.AuditEnabled {
		if audit, err = OpenAuditLog(settings.AuditDB); err != nil {
			// the relay works without its audit trail
			log.Printf("[AUDIT] Disabled: %v", err)
			audit = nil
		}
	} else {
		log.Println("[AUDIT] Audit logging DISABLED")
	}
	defer audit.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewLedger(settings.RateLimitMax, settings.RateLimitWindow)
	go limiter.Run(ctx, settings.RateLimitWindow)

	server := NewServer(settings, router, limiter, audit)

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	start := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	if settings.SSHPort > 0 {
		start("SSH", func() error {
			return server.StartSSHServer(ctx, fmt.Sprintf(":%d", settings.SSHPort))
		})
	}

	if settings.DNSPort > 0 {
		start("DNS", func() error {
			return server.StartDNSServer(ctx, fmt.Sprintf(":%d", settings.DNSPort))
		})
	}

	if settings.HTTPSPort > 0 {
		certPath, keyPath, found := findSSLCertificates(os.Getenv)
		if found {
			start("HTTPS", func() error {
				return server.StartHTTPServer(ctx, fmt.Sprintf(":%d", settings.HTTPSPort), certPath, keyPath)
			})
		} else {
			log.Printf("WARNING: SSL certificates not found, HTTPS disabled")
			log.Printf("Expected cert.pem and key.pem in working directory, or TLS_CERT_FILE and TLS_KEY_FILE")
		}
	}

	start("HTTP", func() error {
		return server.StartHTTPServer(ctx, fmt.Sprintf(":%d", settings.Port), "", "")
	})
	server.startupBanner()

	// First listener failure takes the others down with it.
	var runErr error
	select {
	case runErr = <-errCh:
		stop()
	case <-ctx.Done():
		log.Println("Shutting down...")
	}
	wg.Wait()
	return runErr
}
