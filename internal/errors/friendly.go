package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a failed user action. Every kind is terminal for the action
// that produced it; nothing is retried.
type Kind int

const (
	// KindUserInput blocks the request entirely (e.g. empty URL).
	KindUserInput Kind = iota + 1
	// KindNetwork is a transport-level failure: DNS, refused, reset, TLS.
	KindNetwork
	// KindServer is a non-2xx response, optionally with a server message.
	KindServer
	// KindParse is a response body that could not be decoded.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// GenericMessage is what the user sees when the failure detail is not meant for them.
const GenericMessage = "Something went wrong. Please try again."

// ClientError provides actionable error messages for end users
type ClientError struct {
	Kind       Kind
	Message    string // User-facing message explaining what went wrong
	Suggestion string // Actionable steps to fix the issue
	Status     int    // HTTP status for KindServer, 0 otherwise
	Details    error  // Original error for debugging/logs
}

func (e *ClientError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Status != 0 {
		sb.WriteString(fmt.Sprintf(" (HTTP %d)", e.Status))
	}
	if e.Details != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Details.Error())
	}
	return sb.String()
}

func (e *ClientError) Unwrap() error {
	return e.Details
}

// Friendly renders the message plus the suggestion block for terminal output.
func (e *ClientError) Friendly() string {
	var sb strings.Builder
	sb.WriteString(UserMessage(e))
	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString("How to fix:\n")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// UserInput rejects input before any request is made.
func UserInput(message string) *ClientError {
	return &ClientError{Kind: KindUserInput, Message: message}
}

// Server wraps a non-2xx response. An empty server message falls back to fallback.
func Server(status int, serverMsg, fallback string) *ClientError {
	msg := strings.TrimSpace(serverMsg)
	if msg == "" {
		msg = fallback
	}
	e := &ClientError{Kind: KindServer, Message: msg, Status: status}
	switch {
	case status == 404:
		e.Suggestion = "Check that the format is still offered for this video, then fetch the info again"
	case status >= 500:
		e.Suggestion = "The service failed to process the video. Try again later or pick another format"
	}
	return e
}

// Parse wraps a body that failed to decode.
func Parse(err error) *ClientError {
	return &ClientError{
		Kind:       KindParse,
		Message:    "Unexpected response from server",
		Suggestion: "Check server.base_url points at the video service",
		Details:    err,
	}
}

// Network returns a network-related error with helpful suggestions
func Network(err error) *ClientError {
	msg := "Network error occurred"
	suggestion := "Check your internet connection and try again"

	if err != nil {
		errStr := err.Error()

		if strings.Contains(errStr, "no such host") || strings.Contains(errStr, "name resolution") {
			msg = "Cannot resolve hostname - DNS lookup failed"
			suggestion = "1. Check your internet connection\n2. Verify server.base_url in your config"
		}

		if strings.Contains(errStr, "connection refused") {
			msg = "Server refused connection"
			suggestion = "The video service may be down. Check that it is running at server.base_url"
		}

		if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
			msg = "Connection timed out"
			suggestion = "Server is slow or unreachable. Raise network.timeout_seconds or set it to 0 to wait indefinitely"
		}

		if strings.Contains(errStr, "certificate") || strings.Contains(errStr, "x509") {
			msg = "SSL/TLS certificate verification failed"
			suggestion = "You may be behind a corporate proxy. Or disable verification (insecure): add tls_verify: false to config"
		}
	}

	return &ClientError{
		Kind:       KindNetwork,
		Message:    msg,
		Suggestion: suggestion,
		Details:    err,
	}
}

// KindOf reports the kind of the first ClientError in err's chain, or 0.
func KindOf(err error) Kind {
	var ce *ClientError
	if stderrors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// Is reports whether err carries a ClientError of kind k.
func Is(err error, k Kind) bool { return KindOf(err) == k }

// UserMessage is the text shown to the user for a failed action. User input
// and server errors surface their own message; anything else gets the generic
// fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *ClientError
	if stderrors.As(err, &ce) {
		switch ce.Kind {
		case KindUserInput, KindServer:
			return ce.Message
		}
	}
	return GenericMessage
}
