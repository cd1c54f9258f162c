package courses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint     = "https://uisnetpr01.njit.edu/courseschedule/alltitlecourselist.aspx?term="
	DefaultFetchTimeout = 60 * time.Second

	// The feed wraps its JSON in "define(" ... ")".
	envelopePrefixLen = 7
	envelopeSuffixLen = 1

	maxBodyBytes = 64 << 20
)

// Client fetches the feed. The semester code is appended verbatim to Endpoint.
type Client struct {
	Endpoint string
	Timeout  time.Duration
	HTTP     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{Endpoint: endpoint, Timeout: timeout, HTTP: &http.Client{}}
}

func (c *Client) URL(code string) string { return c.Endpoint + code }

// Fetch returns the unwrapped JSON body for code. An empty code fetches the
// discovery payload.
func (c *Client) Fetch(ctx context.Context, code string) ([]byte, error) {
	url := c.URL(code)
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	payload, err := StripEnvelope(body)
	if err != nil {
		return nil, &MalformedPayloadError{URL: url, Err: err}
	}
	if !json.Valid(payload) {
		return nil, &MalformedPayloadError{URL: url, Reason: "body is not JSON"}
	}
	return payload, nil
}

func (c *Client) FetchDiscovery(ctx context.Context) (*Discovery, error) {
	b, err := c.Fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	d, err := ParseDiscovery(b)
	if err != nil {
		return nil, withURL(err, c.URL(""))
	}
	return d, nil
}

func (c *Client) FetchSemester(ctx context.Context, code string) (*Dataset, error) {
	b, err := c.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	ds, err := ParseDataset(b)
	if err != nil {
		return nil, withURL(err, c.URL(code))
	}
	return ds, nil
}

// StripEnvelope drops the first 7 and the last byte of body.
func StripEnvelope(body []byte) ([]byte, error) {
	if len(body) < envelopePrefixLen+envelopeSuffixLen {
		return nil, fmt.Errorf("body too short for envelope (%d bytes)", len(body))
	}
	return body[envelopePrefixLen : len(body)-envelopeSuffixLen], nil
}

func withURL(err error, url string) error {
	var mp *MalformedPayloadError
	if errors.As(err, &mp) && mp.URL == "" {
		mp.URL = url
	}
	return err
}
