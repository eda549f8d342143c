package message

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// Version11 is the only protocol version the server emits.
const Version11 = "HTTP/1.1"

// NewResponse builds a response with the standard reason phrase for status,
// HTTP/1.1 and "Connection: close" (every connection carries one exchange).
func NewResponse(status int, contentType ContentType, body string) *Response {
	return &Response{
		Version:       Version11,
		StatusCode:    status,
		StatusMessage: http.StatusText(status),
		Connection:    "close",
		ContentType:   contentType,
		Body:          body,
	}
}

// Text builds a text/plain response.
func Text(status int, body string) *Response {
	return NewResponse(status, ContentTypeText, body)
}

// JSON marshals v and builds an application/json response.
// A value that cannot be marshaled yields a 500.
func JSON(status int, v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return InternalError()
	}
	return NewResponse(status, ContentTypeJSON, string(data))
}

// NotFound is the response for a request no route matched.
// The body names the unmatched path and method.
func NotFound(req *Request) *Response {
	return Text(http.StatusNotFound,
		fmt.Sprintf("Route '%s' (%s) not found", req.Path, req.Method))
}

// BadRequest is the response for a request that failed to decode.
func BadRequest(err error) *Response {
	return Text(http.StatusBadRequest, fmt.Sprintf("Bad request: %v", err))
}

// InternalError is the response for a handler that failed.
func InternalError() *Response {
	return Text(http.StatusInternalServerError, "Internal server error")
}

// TooLarge is the response for a request exceeding the configured size limit.
func TooLarge(limit int) *Response {
	return Text(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request exceeds %d bytes", limit))
}
