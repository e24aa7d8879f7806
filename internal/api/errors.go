package api

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorKind groups failures by where they happened.
type ErrorKind string

const (
	KindServer  ErrorKind = "server"
	KindNetwork ErrorKind = "network"
	KindClient  ErrorKind = "client"
)

// NetworkMessage is shown for requests that got no response.
const NetworkMessage = "Network error. Please check your connection."

var statusMessages = map[int]string{
	400: "Invalid request",
	401: "Authentication required",
	403: "Access denied",
	404: "Resource not found",
	409: "Conflict with current state",
	422: "Validation failed",
	500: "Server error",
	502: "Service temporarily unavailable",
	503: "Service unavailable",
}

// StatusMessage returns the user-facing message for an HTTP status.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Error %d", status)
}

// ErrorInfo is the normalized form of any API failure.
type ErrorInfo struct {
	Kind      ErrorKind `json:"type"`
	Status    int       `json:"status,omitempty"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e ErrorInfo) Error() string {
	return e.Message
}

// Classify normalizes err. A ResponseError is a server failure and keeps
// the server's message when one was sent; net.Error values are network
// failures; everything else is a client failure.
func Classify(err error) ErrorInfo {
	return classifyAt(err, time.Now())
}

func classifyAt(err error, now time.Time) ErrorInfo {
	info := ErrorInfo{Timestamp: now.UTC()}

	var respErr *ResponseError
	var netErr net.Error
	switch {
	case errors.As(err, &respErr):
		info.Kind = KindServer
		info.Status = respErr.Status
		info.Message = respErr.Message
		if info.Message == "" || info.Message == "Unknown API error" {
			info.Message = StatusMessage(respErr.Status)
		}
		if len(respErr.Data) > 0 {
			info.Details = respErr.Data
		}
	case errors.As(err, &netErr):
		info.Kind = KindNetwork
		info.Message = NetworkMessage
		info.Details = err.Error()
	default:
		info.Kind = KindClient
		info.Message = "An unexpected error occurred"
		if err != nil && err.Error() != "" {
			info.Message = err.Error()
			info.Details = err.Error()
		}
	}
	return info
}
