package wp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/beaconhillfe/bhfe-web/internal/otelx"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// ErrNoFaustSecret is returned by Authorize when no secret is configured.
var ErrNoFaustSecret = errors.New("faust secret is not configured")

// Authorization is the post a preview token was issued for.
type Authorization struct {
	PostID   int
	PostType string
	URI      string
}

// Authorize exchanges a preview token with the Faust plugin. Any non-2xx
// response is an error.
func (c *Client) Authorize(ctx context.Context, code string) (a Authorization, err error) {
	if c.secret == "" {
		return Authorization{}, ErrNoFaustSecret
	}
	ctx, span := otelx.Start(ctx, "wp.Authorize", attribute.String("http.request.method", http.MethodPost))
	defer func() { otelx.End(span, err) }()

	body, err := json.Marshal(map[string]string{"code": code, "secret": c.secret})
	if err != nil {
		return Authorization{}, xerrors.Wrap(err, "encode authorize request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/wp-json/faustwp/v1/authorize", bytes.NewReader(body))
	if err != nil {
		return Authorization{}, xerrors.Wrap(err, "build authorize request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.ua)

	res, err := c.hc.Do(req)
	if err != nil {
		return Authorization{}, xerrors.Wrap(err, "faust authorize")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return Authorization{}, xerrors.Wrap(err, "read authorize response")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Authorization{}, xerrors.Newf("faust authorize: status %d", res.StatusCode)
	}

	var out struct {
		PostID   json.Number `json:"post_id"`
		PostType string      `json:"post_type"`
		URI      string      `json:"uri"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return Authorization{}, xerrors.Wrap(err, "decode authorize response")
	}
	a = Authorization{PostType: out.PostType, URI: out.URI}
	if out.PostID != "" {
		id, err := strconv.Atoi(out.PostID.String())
		if err != nil {
			return Authorization{}, xerrors.Wrap(fmt.Errorf("post_id %q: %w", out.PostID, err), "decode authorize response")
		}
		a.PostID = id
	}
	return a, nil
}
