package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/api"
	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/query"
)

const (
	retries = 5
)

// Client talks to a tillcounter server. Requests are serialised: a call
// waits for the previous one to settle before it is sent, so two
// mutations of the register are never in flight together.
type Client struct {
	mu      sync.Mutex
	base    *url.URL
	http    *http.Client
	log     zerolog.Logger
	backoff func() backoff.BackOff
}

func New(base string, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q, expected eg. http://localhost:8500", base)
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			return backoff.WithMaxRetries(b, retries)
		},
	}, nil
}

func (c *Client) Status(ctx context.Context) (domain.RegisterStatus, error) {
	st := domain.RegisterStatus{}
	err := c.doGet(ctx, "/status", nil, &st)
	return st, err
}

func (c *Client) Open(ctx context.Context, amount decimal.Decimal) (domain.RegisterStatus, error) {
	st := domain.RegisterStatus{}
	err := c.doPost(ctx, "/open", &api.OpenRequest{Amount: amount}, &st)
	return st, err
}

func (c *Client) Close(ctx context.Context) (domain.RegisterStatus, error) {
	st := domain.RegisterStatus{}
	err := c.doPost(ctx, "/close", nil, &st)
	return st, err
}

func (c *Client) Record(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := c.doPost(ctx, "/transactions", in, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (c *Client) Query(ctx context.Context, crit query.Criteria, pageSize, pageNumber int) (api.TransactionPage, error) {
	params := url.Values{}
	if crit.Type != "" {
		params.Add("type", string(crit.Type))
	}
	if crit.Category != "" {
		params.Add("category", string(crit.Category))
	}
	if crit.Search != "" {
		params.Add("search", crit.Search)
	}
	if crit.Period != query.PeriodAll {
		params.Add("period", string(crit.Period))
	}
	if pageSize > 0 {
		params.Add("pageSize", strconv.Itoa(pageSize))
	}
	if pageNumber > 0 {
		params.Add("page", strconv.Itoa(pageNumber))
	}

	page := api.TransactionPage{}
	err := c.doGet(ctx, "/transactions", params, &page)
	return page, err
}

func (c *Client) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := c.doGet(ctx, fmt.Sprintf("/transactions/%d", id), nil, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (c *Client) url(path string, params url.Values) string {
	u := *c.base
	u.Path = u.Path + path
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// doGet retries on transport errors and 5xx, GETs being safe to repeat.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	uri := c.url(path, params)
	op := func() error {
		err := c.doRequest(ctx, http.MethodGet, uri, nil, out)
		if _, ok := err.(*statusError); ok {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Dur("wait", wait).Str("uri", uri).Msg("retrying request")
	}
	return unwrapPermanent(backoff.RetryNotify(op, backoff.WithContext(c.backoff(), ctx), notify))
}

// doPost sends once; a mutation that may have reached the server is never
// repeated.
func (c *Client) doPost(ctx context.Context, path string, in, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = data
	}
	return unwrapPermanent(c.doRequest(ctx, http.MethodPost, c.url(path, nil), body, out))
}

// statusError is a well formed error reply; not worth retrying.
type statusError struct {
	err error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func (c *Client) doRequest(ctx context.Context, method, uri string, data []byte, out interface{}) error {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		if out == nil {
			return nil
		}
		return json.Unmarshal(raw, out)
	}

	apiErr := api.ErrorResponse{}
	if jerr := json.Unmarshal(raw, &apiErr); jerr == nil && apiErr.Code != "" {
		if apiErr.Code == api.CodeInternal {
			return apiErr.Err() // server trouble, best to retry
		}
		return &statusError{err: apiErr.Err()}
	}
	if status >= 500 {
		return fmt.Errorf("got status code: %d (%s)", status, string(raw))
	}
	return &statusError{err: fmt.Errorf("got status code: %d (%s)", status, string(raw))}
}

func unwrapPermanent(err error) error {
	if se, ok := err.(*statusError); ok {
		return se.err
	}
	if pe, ok := err.(*backoff.PermanentError); ok {
		return unwrapPermanent(pe.Err)
	}
	return err
}
