package main

import (
	"context"
	"errors"
	"log"
	"net/http"
)

// relayText runs a plain-text message from the DNS or SSH front-end through
// the same checks as /chat and returns what should be shown to the caller.
// ok is false when the text is an error message rather than a reply.
func (s *Server) relayText(ctx context.Context, caller, channel, message string) (text string, ok bool) {
	requestID := generateRequestID()

	if _, err := checkMessage(message); err != nil {
		return err.Error(), false
	}

	if err := s.limiter.Allow(caller); err != nil {
		s.rejectLog.Do(func() {
			log.Printf("[RateLimit] Rejected %s via %s: limit=%d window=%v", caller, channel, s.limiter.Limit(), s.limiter.Window())
		})
		return msgRateLimited, false
	}

	result, err := s.router.Complete(ctx, message)

	status := http.StatusOK
	if err != nil {
		status = statusForRelayError(err)
	}
	s.recordAudit(requestID, caller, channel, message, result, status, err)

	if err != nil {
		log.Printf("[%s] Relay failed for %s: %v", channelTag(channel), caller, err)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "Request timed out", false
		case status == http.StatusTooManyRequests:
			return msgUpstreamBusy, false
		default:
			return msgUnavailable, false
		}
	}
	return result.Content, true
}

func channelTag(channel string) string {
	switch channel {
	case "dns":
		return "DNS"
	case "ssh":
		return "SSH"
	default:
		return "HTTP"
	}
}
