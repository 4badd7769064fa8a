package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateSignature(t *testing.T) {
	a := generateSignature("Cubbon Park")
	assert.Len(t, a, 16)
	assert.Equal(t, a, generateSignature("Cubbon Park"))
	assert.NotEqual(t, a, generateSignature("Lalbagh"))
}

func TestGenerateRequestID(t *testing.T) {
	id := generateRequestID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, generateRequestID())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
	assert.Equal(t, 1, estimateTokens("ಬೆಂಗ"))
}

func TestCountTokensFallsBack(t *testing.T) {
	// the tokenizer is disabled for tests, so counts come from the estimate
	assert.Equal(t, 0, countTokens(""))
	assert.Equal(t, estimateTokens("Where is Ulsoor Lake?"), countTokens("Where is Ulsoor Lake?"))
}
