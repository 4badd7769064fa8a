package main

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// maxMessageLength is measured in characters, not bytes.
const maxMessageLength = 5000

var (
	ErrInvalidMessage = errors.New("Message is required and must be a non-empty string")
	ErrMessageTooLong = errors.New("Message too long. Please keep it under 5,000 characters.")
)

// validateMessage checks the raw "message" field of a chat request and
// returns it unmodified. Surrounding whitespace is only trimmed for the
// emptiness check.
func validateMessage(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrInvalidMessage
	}

	var message string
	if err := json.Unmarshal(raw, &message); err != nil {
		// null, numbers, objects and arrays all land here
		return "", ErrInvalidMessage
	}
	return checkMessage(message)
}

// checkMessage applies the emptiness and length rules to an already decoded message.
func checkMessage(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrInvalidMessage
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return "", ErrMessageTooLong
	}
	return message, nil
}
