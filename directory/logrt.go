package directory

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
)

// loggingRT dumps MINSAL traffic when MINSAL_HTTP_DEBUG=true. The payloads
// are large; inbound dumps are truncated.
type loggingRT struct{ base http.RoundTripper }

func (l *loggingRT) RoundTrip(req *http.Request) (*http.Response, error) {
	if d, err := httputil.DumpRequestOut(req, false); err == nil {
		log.Printf("[directory] >>> %s %s\n%s", req.Method, req.URL.String(), d)
	}

	resp, err := l.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if resp != nil && resp.Body != nil {
		b, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(b))
		preview := b
		if len(preview) > 2048 {
			preview = append(preview[:2048:2048], []byte("\n... (truncated) ...")...)
		}
		log.Printf("[directory] <<< %s %s status=%d\n%s", req.Method, req.URL.String(), resp.StatusCode, preview)
	}
	return resp, nil
}
