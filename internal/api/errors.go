package api

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError is a non-2xx answer (or transport failure) from the collaborator API.
type RequestError struct {
	StatusCode int    `json:"code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized
}

// UserMessage returns the text to surface in a transient notification.
func UserMessage(err error, fallback string) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" && reqErr.StatusCode != 0 {
		return reqErr.Message
	}
	return fallback
}
