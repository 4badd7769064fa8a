package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings(envFrom(map[string]string{"OPENROUTER_API_KEY": "sk-or-test"}))
	require.NoError(t, err)

	assert.Equal(t, 5000, s.Port)
	assert.Equal(t, "sk-or-test", s.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", s.UpstreamURL)
	assert.False(t, s.Development)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, s.AllowedOrigins)
	assert.Equal(t, 10, s.RateLimitMax)
	assert.Equal(t, time.Minute, s.RateLimitWindow)
	assert.Equal(t, 60*time.Second, s.UpstreamTimeout)
	assert.Equal(t, "Bangalore Chatbot", s.SiteName)
	assert.Equal(t, "chat.local.", s.DNSDomain)
	assert.Zero(t, s.DNSPort)
	assert.Zero(t, s.SSHPort)
	assert.True(t, s.AuditEnabled)
	assert.Equal(t, "relay_audit.db", s.AuditDB)
}

func TestLoadSettingsOverrides(t *testing.T) {
	s, err := loadSettings(envFrom(map[string]string{
		"OPENROUTER_API_KEY": "k",
		"PORT":               "8080",
		"APP_ENV":            "development",
		"ALLOWED_ORIGINS":    "https://a.example, https://b.example,",
		"RATE_LIMIT_MAX":     "3",
		"RATE_LIMIT_WINDOW":  "30s",
		"DNS_PORT":           "8053",
		"DNS_DOMAIN":         "blr.example",
		"ENABLE_LLM_AUDIT":   "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, s.Port)
	assert.True(t, s.Development)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins)
	assert.Equal(t, 3, s.RateLimitMax)
	assert.Equal(t, 30*time.Second, s.RateLimitWindow)
	assert.Equal(t, 8053, s.DNSPort)
	assert.Equal(t, "blr.example.", s.DNSDomain)
	assert.False(t, s.AuditEnabled)
}

func TestLoadSettingsErrors(t *testing.T) {
	_, err := loadSettings(envFrom(nil))
	assert.ErrorIs(t, err, errMissingAPIKey)
	assert.EqualError(t, err, "OPENROUTER_API_KEY not found in environment variables")

	for key, value := range map[string]string{
		"PORT":              "eighty",
		"SSH_PORT":          "-1",
		"RATE_LIMIT_WINDOW": "a minute",
		"UPSTREAM_TIMEOUT":  "soon",
		"ENABLE_LLM_AUDIT":  "maybe",
	} {
		_, err := loadSettings(envFrom(map[string]string{"OPENROUTER_API_KEY": "k", key: value}))
		assert.Error(t, err, key)
	}
}

func TestFindSSLCertificates(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "fullchain.pem")
	key := filepath.Join(dir, "privkey.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	gotCert, gotKey, found := findSSLCertificates(envFrom(map[string]string{
		"TLS_CERT_FILE": cert,
		"TLS_KEY_FILE":  key,
	}))
	assert.True(t, found)
	assert.Equal(t, cert, gotCert)
	assert.Equal(t, key, gotKey)

	_, _, found = findSSLCertificates(envFrom(map[string]string{
		"TLS_CERT_FILE": filepath.Join(dir, "nope.pem"),
		"TLS_KEY_FILE":  key,
	}))
	assert.False(t, found)
}
