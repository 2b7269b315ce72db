package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"nil", nil, KindGeneric},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"timeout text", errors.New("Get \"http://x\": net/http: request canceled (Client.Timeout exceeded)"), KindTimeout},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"), KindNetwork},
		{"no such host", errors.New("dial tcp: lookup backend: no such host"), KindNetwork},
		{"gateway 502", &Error{Status: 502, Message: "Bad Gateway"}, KindGateway},
		{"gateway 503", &Error{Status: 503, Message: "Service Unavailable"}, KindGateway},
		{"gateway 504", &Error{Status: 504, Message: "Gateway Timeout"}, KindGateway},
		{"auth status", &Error{Status: 401, Message: "invalid token"}, KindAuth},
		{"auth keyword", errors.New("authentication required"), KindAuth},
		{"bad request", &Error{Status: 400, Message: "message is required"}, KindGeneric},
		{"wrapped api error", wrap(&Error{Status: 503, Message: "down"}), KindGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func wrap(err error) error {
	return errors.Join(errors.New("send chat"), err)
}

func TestUserMessageGenericKeepsRawText(t *testing.T) {
	err := &Error{Status: 422, Message: "unprocessable message body"}
	assert.Contains(t, UserMessage(err), "unprocessable message body")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("connection reset by peer")))
	assert.True(t, isRetryable(&Error{Status: 502}))
	assert.True(t, isRetryable(&Error{Status: 503}))
	assert.True(t, isRetryable(&Error{Status: 504}))
	assert.False(t, isRetryable(&Error{Status: 400}))
	assert.False(t, isRetryable(&Error{Status: 401}))
	assert.False(t, isRetryable(&Error{Status: 500}))
}
