package promptarmor

import (
	"net/http"

	"github.com/ppiankov/promptarmor/internal/armor"
)

// Transport returns an http.RoundTripper that sanitizes request bodies
// sent to target hosts and restores placeholders in their responses,
// including event streams. A nil base uses http.DefaultTransport.
func (c *Client) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &roundTripper{hooks: c.engine, base: base}
}

type roundTripper struct {
	hooks armor.Hooks
	base  http.RoundTripper
}

func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()

	out := req.Clone(req.Context())
	// Compressed responses cannot be restored.
	out.Header.Del("Accept-Encoding")
	if err := armor.HookRequest(t.hooks, out, host); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if err := armor.RestoreResponse(t.hooks, resp, host, req.URL.Path); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}
