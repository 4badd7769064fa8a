package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"plain", `"Tell me about MG Road"`, "Tell me about MG Road", nil},
		{"untrimmed kept", `"  hi  "`, "  hi  ", nil},
		{"missing", ``, "", ErrInvalidMessage},
		{"null", `null`, "", ErrInvalidMessage},
		{"number", `42`, "", ErrInvalidMessage},
		{"object", `{"text":"hi"}`, "", ErrInvalidMessage},
		{"empty", `""`, "", ErrInvalidMessage},
		{"whitespace only", `"   \n\t "`, "", ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateMessage(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateMessageLength(t *testing.T) {
	encode := func(s string) json.RawMessage {
		b, _ := json.Marshal(s)
		return b
	}

	_, err := validateMessage(encode(strings.Repeat("a", 5000)))
	assert.NoError(t, err, "exactly 5000 characters is accepted")

	_, err = validateMessage(encode(strings.Repeat("a", 5001)))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	// length counts characters, so 5000 multi-byte runes still fit
	_, err = validateMessage(encode(strings.Repeat("ಬ", 5000)))
	assert.NoError(t, err)
}
