package binance

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// guardTransport turns the venue's HTTP-level failure modes into sentinel
// errors before the SDK tries to decode them.
type guardTransport struct {
	base http.RoundTripper
}

func (t *guardTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusTeapot: // 418: IP banned for ignoring 429s
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: http %d", ErrRateLimited, resp.StatusCode)
	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: http %d", ErrAuth, resp.StatusCode)
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, ErrEmptyResponse
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		resp.ContentLength = int64(len(body))
	}
	return resp, nil
}
