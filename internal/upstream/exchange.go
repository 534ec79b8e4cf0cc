package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"planbridge/pkg/httperr"
)

// PostForm performs an unauthenticated form-encoded POST against the upstream.
// The only consumer is the credential exchange of the login flow; every other
// upstream call goes through Call with a bearer token.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, spanExchange,
		String("upstream.path", path),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(Spec{Path: path}), strings.NewReader(form.Encode()))
	if err != nil {
		span.End(err)
		return nil, httperr.Wrap(err, http.StatusInternalServerError, "failed to build upstream request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req, path)
	span.End(err)
	return raw, err
}
