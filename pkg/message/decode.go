package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRequestLine is returned when the first line is not
	// "METHOD SP PATH SP VERSION".
	ErrMalformedRequestLine = errors.New("malformed request line")

	// ErrMalformedHeader is returned for a header line without a ':' separator.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMalformedBody is returned when a body declared as application/json
	// is not syntactically valid JSON.
	ErrMalformedBody = errors.New("malformed body")
)

// Decode parses a complete request message.
//
// Carriage returns are stripped first, so messages framed with either CRLF
// or bare LF are accepted. Only Host, Connection, User-Agent, Accept and
// Content-Type are retained; other headers are validated for shape and then
// dropped. Everything after the first blank line is the body.
func Decode(raw []byte) (*Request, error) {
	msg := strings.ReplaceAll(string(raw), "\r", "")

	line, rest, _ := strings.Cut(msg, "\n")
	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	for {
		if rest == "" {
			break
		}
		line, rest, _ = strings.Cut(rest, "\n")
		if line == "" {
			break
		}
		if err := parseHeader(req, line); err != nil {
			return nil, err
		}
	}

	req.Body = rest

	// Strict RFC 8259 syntax: "nul" and leading zeros are rejected.
	if req.ContentType == ContentTypeJSON && !json.Valid([]byte(req.Body)) {
		return nil, fmt.Errorf("%w: invalid JSON for %s %s", ErrMalformedBody, req.Method, req.Path)
	}

	return req, nil
}

func parseRequestLine(line string) (*Request, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	return &Request{
		Method:      ParseMethod(parts[0]),
		Path:        parts[1],
		Version:     strings.TrimSpace(parts[2]),
		ContentType: ContentTypeUnsupported,
	}, nil
}

func parseHeader(req *Request, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "host":
		req.Host = value
	case "connection":
		req.Connection = value
	case "user-agent":
		req.UserAgent = value
	case "accept":
		req.Accept = value
	case "content-type":
		req.ContentType = ParseContentType(value)
	}
	return nil
}
