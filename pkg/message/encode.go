package message

import (
	"bytes"
	"strconv"
)

const crlf = "\r\n"

// Encode serializes a response into its wire form.
//
// The layout is fixed: status line, Connection, Content-Type,
// Access-Control-Allow-Origin, Content-Length, blank line, body and a
// trailing blank line. Encode never fails; zero fields serialize as their
// zero values. Content-Length is the byte length of Body.
func Encode(res *Response) []byte {
	if res == nil {
		res = &Response{}
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(res.Body))

	buf.WriteString(res.Version)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(res.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(res.StatusMessage)
	buf.WriteString(crlf)

	buf.WriteString("Connection: ")
	buf.WriteString(res.Connection)
	buf.WriteString(crlf)

	buf.WriteString("Content-Type: ")
	buf.WriteString(res.ContentType.String())
	buf.WriteString(crlf)

	buf.WriteString("Access-Control-Allow-Origin: *")
	buf.WriteString(crlf)

	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(res.Body)))
	buf.WriteString(crlf)

	buf.WriteString(crlf)
	buf.WriteString(res.Body)
	buf.WriteString(crlf)
	buf.WriteString(crlf)

	return buf.Bytes()
}
