package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/require"
)

// BuildAuthRequest builds a request carrying a bearer token. A non-nil body is JSON encoded.
func (h *TestHelper) BuildAuthRequest(method, path, jwtString string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.T, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.BaseURL+path, &buf)
	require.NoError(h.T, err)

	if jwtString != "" {
		req.Header.Set("Authorization", "Bearer "+jwtString)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (h *TestHelper) NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// DoRequest performs an HTTP request and asserts that no network-level error occurred.
func (h *TestHelper) DoRequest(req *http.Request, client *http.Client) *http.Response {
	resp, err := client.Do(req)
	require.NoError(h.T, err, "HTTP request failed")
	return resp
}

// ReadBody reads the response body and restores it so it can be decoded afterwards.
func (h *TestHelper) ReadBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return "<nil response or body>"
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err != nil {
		return "<error reading body>"
	}
	return string(bodyBytes)
}

// DecodeJSON reads the body into out and closes it.
func (h *TestHelper) DecodeJSON(resp *http.Response, out any) {
	defer resp.Body.Close()
	require.NoError(h.T, json.NewDecoder(resp.Body).Decode(out))
}
