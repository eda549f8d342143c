package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/message"
	"github.com/marmos91/dittohttp/pkg/router"
)

// ErrRequestTooLarge is returned when a request exceeds MaxRequestSize.
var ErrRequestTooLarge = errors.New("request too large")

const (
	// rstAvoidanceDelay bounds how long unread input is drained before close.
	rstAvoidanceDelay = 500 * time.Millisecond

	// maxDiscard caps the bytes drained before close.
	maxDiscard = 256 << 10
)

// HTTPConnection serves the single exchange carried by one connection.
type HTTPConnection struct {
	server *HTTPAdapter
	rec    *connRecord
	conn   net.Conn
}

func NewHTTPConnection(server *HTTPAdapter, rec *connRecord) *HTTPConnection {
	return &HTTPConnection{
		server: server,
		rec:    rec,
		conn:   rec.conn,
	}
}

// Serve reads one request, dispatches it and writes the response.
//
// The connection is closed without a response when:
//   - The peer sends nothing within FirstByteTimeout
//   - The read fails before any byte arrives
//   - Decoding fails and the decode failure policy is "drop"
//   - ctx is cancelled before the request has been read
//
// A panic anywhere in the exchange is recovered and logged; it never
// reaches the accept loop.
func (c *HTTPConnection) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in HTTP connection handler from %s: %v", c.rec.remoteAddr, r)
		}
		_ = c.conn.Close()
	}()

	// Shutdown unblocks a pending read; a response already being written
	// is left to finish within WriteTimeout.
	stopUnblock := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stopUnblock()

	raw, err := c.readRequest()
	if err != nil {
		if errors.Is(err, ErrRequestTooLarge) {
			c.rejectRequest(err)
			return
		}
		c.logReadError(ctx, err)
		return
	}
	if len(raw) == 0 {
		return
	}

	req, err := message.Decode(raw)
	if err != nil {
		c.rejectRequest(err)
		return
	}
	req.RemoteAddr = c.rec.remoteAddr
	req = req.WithContext(ctx)

	c.writeResponse(c.dispatch(req))
}

// readRequest accumulates bytes until the message looks complete.
//
// Reading stops when the last byte read is a newline, when a read returns
// fewer bytes than the buffer, or on EOF/error. The first read is bounded by
// FirstByteTimeout, later ones by ReadTimeout. An error after some bytes
// have arrived ends the read with the bytes collected so far.
func (c *HTTPConnection) readRequest() ([]byte, error) {
	cfg := c.server.config

	if err := c.setReadDeadline(cfg.FirstByteTimeout); err != nil {
		return nil, err
	}

	buf := make([]byte, cfg.ReadBufferSize)
	var data []byte

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.server.metrics.RecordBytesTransferred("read", int64(n))
			data = append(data, buf[:n]...)

			if len(data) > cfg.MaxRequestSize {
				return nil, fmt.Errorf("%w: more than %d bytes", ErrRequestTooLarge, cfg.MaxRequestSize)
			}
			if buf[n-1] == '\n' || n < len(buf) {
				return data, nil
			}
		}

		if err != nil {
			if len(data) > 0 {
				return data, nil
			}
			return nil, err
		}
		if n == 0 {
			return data, nil
		}

		if err := c.setReadDeadline(cfg.ReadTimeout); err != nil {
			return data, nil
		}
	}
}

func (c *HTTPConnection) setReadDeadline(timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	return nil
}

func (c *HTTPConnection) logReadError(ctx context.Context, err error) {
	var netErr net.Error
	switch {
	case ctx.Err() != nil:
		logger.Debug("HTTP connection %s abandoned: shutting down", c.rec.id)
	case errors.Is(err, io.EOF):
		logger.Debug("HTTP connection from %s closed by client before sending", c.rec.remoteAddr)
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Debug("HTTP connection from %s sent nothing within %v; abandoning",
			c.rec.remoteAddr, c.server.config.FirstByteTimeout)
	default:
		logger.Debug("Error reading HTTP request from %s: %v", c.rec.remoteAddr, err)
	}
}

// rejectRequest applies the decode failure policy.
func (c *HTTPConnection) rejectRequest(err error) {
	c.server.metrics.RecordDecodeFailure(decodeFailureReason(err))

	if c.server.config.DecodeFailurePolicy == DecodeFailureDrop {
		logger.Debug("Dropping undecodable request from %s: %v", c.rec.remoteAddr, err)
		return
	}

	logger.Debug("Rejecting undecodable request from %s: %v", c.rec.remoteAddr, err)
	if errors.Is(err, ErrRequestTooLarge) {
		c.writeResponse(message.TooLarge(c.server.config.MaxRequestSize))
		c.discardInput()
		return
	}
	c.writeResponse(message.BadRequest(err))
}

func decodeFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrRequestTooLarge):
		return "too_large"
	case errors.Is(err, message.ErrMalformedRequestLine):
		return "malformed_request_line"
	case errors.Is(err, message.ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, message.ErrMalformedBody):
		return "malformed_body"
	default:
		return "unknown"
	}
}

// dispatch resolves the request and runs its handler. Misses become 404.
func (c *HTTPConnection) dispatch(req *message.Request) *message.Response {
	handler, err := c.server.router.Resolve(req.Path, req.Method)
	if err != nil {
		logger.Debug("HTTP %s %s from %s: %v", req.Method, req.Path, c.rec.remoteAddr, err)
		res := message.NotFound(req)
		c.server.metrics.RecordRequest(req.Method.String(), res.StatusCode, 0)
		return res
	}

	method := req.Method.String()
	c.server.metrics.RecordRequestStart(method)
	defer c.server.metrics.RecordRequestEnd(method)

	start := time.Now()
	res := invoke(handler, req)
	c.server.metrics.RecordRequest(method, res.StatusCode, time.Since(start))

	logger.Debug("HTTP %s %s from %s -> %d", req.Method, req.Path, c.rec.remoteAddr, res.StatusCode)
	return res
}

// invoke runs handler, converting a panic or a nil response into a 500.
func invoke(handler router.Handler, req *message.Request) (res *message.Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Handler for %s %s panicked: %v", req.Method, req.Path, r)
			res = message.InternalError()
		}
	}()

	res = handler(req)
	if res == nil {
		logger.Error("Handler for %s %s returned no response", req.Method, req.Path)
		return message.InternalError()
	}
	return res
}

// writeResponse encodes res and writes it within WriteTimeout.
func (c *HTTPConnection) writeResponse(res *message.Response) {
	if c.server.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			logger.Debug("Failed to set write deadline for %s: %v", c.rec.remoteAddr, err)
		}
	}

	n, err := c.conn.Write(message.Encode(res))
	c.server.metrics.RecordBytesTransferred("write", int64(n))
	if err != nil {
		logger.Debug("Error writing HTTP response to %s: %v", c.rec.remoteAddr, err)
	}
}

// discardInput half-closes the socket and drains unread request bytes, so
// closing it does not reset the peer before it has read the response.
func (c *HTTPConnection) discardInput() {
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(rstAvoidanceDelay))
	_, _ = io.Copy(io.Discard, io.LimitReader(c.conn, maxDiscard))
}
