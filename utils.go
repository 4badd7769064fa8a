package main

import (
	"crypto/sha256"
	"fmt"
	"log"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// generateSignature creates a hash signature for content
// Used to correlate audit rows without reading the full text
func generateSignature(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)[:16] // First 16 chars of hash
}

// generateRequestID returns a fresh id for a request.
func generateRequestID() string {
	return uuid.NewString()
}

const tokenEncoding = "cl100k_base"

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken

	// loadTokenizer may need the network on first use; tests replace it.
	loadTokenizer = func() (*tiktoken.Tiktoken, error) {
		return tiktoken.GetEncoding(tokenEncoding)
	}
)

// countTokens returns the number of cl100k tokens in text, or an estimate
// if the encoding could not be loaded.
func countTokens(text string) int {
	if text == "" {
		return 0
	}

	tokenizerOnce.Do(func() {
		enc, err := loadTokenizer()
		if err != nil {
			log.Printf("[Tokens] %s unavailable, estimating: %v", tokenEncoding, err)
			return
		}
		tokenizer = enc
	})

	if tokenizer == nil {
		return estimateTokens(text)
	}
	return len(tokenizer.Encode(text, nil, nil))
}

// estimateTokens approximates four characters per token.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
