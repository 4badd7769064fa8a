package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"citychat/providers"
	"citychat/ratelimit"
)

// Settings is the process configuration read from the environment.
type Settings struct {
	Port            int
	HTTPSPort       int
	APIKey          string
	UpstreamURL     string
	ModelsFile      string
	Development     bool
	AllowedOrigins  []string
	RateLimitMax    int
	RateLimitWindow time.Duration
	UpstreamTimeout time.Duration
	SiteURL         string
	SiteName        string
	DNSPort         int
	DNSDomain       string
	SSHPort         int
	SSHHostKey      string
	AuditEnabled    bool
	AuditDB         string
}

var errMissingAPIKey = errors.New("OPENROUTER_API_KEY not found in environment variables")

// loadSettings reads Settings through getenv, applying defaults for unset values.
func loadSettings(getenv func(string) string) (*Settings, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	s := &Settings{
		APIKey:      env("OPENROUTER_API_KEY", ""),
		UpstreamURL: env("OPENROUTER_URL", providers.DefaultBaseURL),
		ModelsFile:  env("MODELS_FILE", ""),
		Development: strings.EqualFold(env("APP_ENV", "production"), "development"),
		SiteURL:     env("SITE_URL", "http://localhost:5173"),
		SiteName:    env("SITE_NAME", "Bangalore Chatbot"),
		DNSDomain:   env("DNS_DOMAIN", "chat.local."),
		SSHHostKey:  env("SSH_HOST_KEY", ""),
		AuditDB:     env("AUDIT_DB", "relay_audit.db"),
	}
	if s.APIKey == "" {
		return nil, errMissingAPIKey
	}
	if !strings.HasSuffix(s.DNSDomain, ".") {
		s.DNSDomain += "."
	}

	for _, origin := range strings.Split(env("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, origin)
		}
	}

	var err error
	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"PORT", 5000, &s.Port},
		{"HTTPS_PORT", 0, &s.HTTPSPort},
		{"RATE_LIMIT_MAX", ratelimit.DefaultLimit, &s.RateLimitMax},
		{"DNS_PORT", 0, &s.DNSPort},
		{"SSH_PORT", 0, &s.SSHPort},
	}
	for _, v := range ints {
		if *v.dst, err = strconv.Atoi(env(v.key, strconv.Itoa(v.def))); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", v.key, err)
		}
		if *v.dst < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", v.key)
		}
	}

	if s.RateLimitWindow, err = time.ParseDuration(env("RATE_LIMIT_WINDOW", ratelimit.DefaultWindow.String())); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	if s.UpstreamTimeout, err = time.ParseDuration(env("UPSTREAM_TIMEOUT", providers.DefaultTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	if s.AuditEnabled, err = strconv.ParseBool(env("ENABLE_LLM_AUDIT", "true")); err != nil {
		return nil, fmt.Errorf("invalid ENABLE_LLM_AUDIT: %w", err)
	}

	return s, nil
}

// findSSLCertificates looks for a certificate pair for the HTTPS listener.
func findSSLCertificates(getenv func(string) string) (certPath, keyPath string, found bool) {
	// Explicit paths win
	if cert, key := getenv("TLS_CERT_FILE"), getenv("TLS_KEY_FILE"); cert != "" && key != "" {
		if fileExists(cert) && fileExists(key) {
			return cert, key, true
		}
		log.Printf("TLS_CERT_FILE/TLS_KEY_FILE set but not readable: %s, %s", cert, key)
	}

	// Then the working directory
	if fileExists("cert.pem") && fileExists("key.pem") {
		return "cert.pem", "key.pem", true
	}

	return "", "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
