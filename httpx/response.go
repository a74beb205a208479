package httpx

import (
	"bytes"
	"net/http"
)

// ResponseBuffer records a response so it can be inspected before it is
// replayed to the client. oauth.BearerServer and oauth.Authorize only ever
// write straight to their ResponseWriter.
type ResponseBuffer struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func NewResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{header: http.Header{}}
}

func (b *ResponseBuffer) Header() http.Header {
	return b.header
}

// WriteHeader keeps the first status only, like net/http does.
func (b *ResponseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *ResponseBuffer) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}

func (b *ResponseBuffer) Status() int {
	return b.status
}

func (b *ResponseBuffer) Body() []byte {
	if b.body.Len() == 0 {
		return nil
	}
	return b.body.Bytes()
}

// Replay copies headers, status and body to w.
func (b *ResponseBuffer) Replay(w http.ResponseWriter) error {
	for key, values := range b.header {
		w.Header()[key] = values
	}
	if b.status != 0 {
		w.WriteHeader(b.status)
	}
	if b.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(b.body.Bytes())
	return err
}
