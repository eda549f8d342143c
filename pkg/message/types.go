// Package message defines the HTTP/1.1 request and response records exchanged
// between the connection worker, the route trie and user handlers, together
// with the codec that frames them on the wire.
//
// The codec is intentionally asymmetric: Decode parses requests and Encode
// serializes responses. Both operate on fully materialized messages; there is
// no streaming representation.
package message

import (
	"context"
	"strings"
)

// Method is the closed vocabulary of HTTP methods understood by the server.
//
// Anything outside GET, POST, PUT and DELETE decodes to MethodUnsupported; the
// dispatcher decides what to do with it.
type Method int

const (
	MethodUnsupported Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
)

// Methods lists every routable method in a stable order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return "UNSUPPORTED"
	}
}

// ParseMethod maps a request-line token to a Method. Matching is exact:
// HTTP method names are case-sensitive.
func ParseMethod(s string) Method {
	switch s {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	default:
		return MethodUnsupported
	}
}

// ContentType is the closed vocabulary of body media types.
//
// The zero value is text/plain so that a Response built without an explicit
// content type still serializes a meaningful header.
type ContentType int

const (
	ContentTypeText ContentType = iota
	ContentTypeJSON
	ContentTypeHTML
	ContentTypeUnsupported
)

// String returns the MIME representation used on the wire.
func (c ContentType) String() string {
	switch c {
	case ContentTypeText:
		return "text/plain"
	case ContentTypeJSON:
		return "application/json"
	case ContentTypeHTML:
		return "text/html"
	default:
		return "UNSUPPORTED"
	}
}

// ParseContentType maps a Content-Type header value to a ContentType.
// Media type parameters such as charset are ignored.
func ParseContentType(s string) ContentType {
	mediaType, _, _ := strings.Cut(s, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "text/plain":
		return ContentTypeText
	case "application/json":
		return ContentTypeJSON
	case "text/html":
		return ContentTypeHTML
	default:
		return ContentTypeUnsupported
	}
}

// Request is a fully read and parsed HTTP request.
type Request struct {
	Method      Method
	Path        string
	Version     string
	ContentType ContentType
	Connection  string

	Host      string
	UserAgent string
	Accept    string

	Body string

	// RemoteAddr is the peer address of the connection that carried the request.
	// Set by the connection worker; empty for requests built in tests.
	RemoteAddr string

	ctx context.Context
}

// Context returns the request context. It is cancelled when the server shuts
// down while the request is still being handled.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r carrying ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("nil context")
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// Response is the record a handler returns. It is serialized verbatim by Encode.
type Response struct {
	Version       string
	StatusCode    int
	StatusMessage string
	Connection    string
	ContentType   ContentType
	Body          string
}
