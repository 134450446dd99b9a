// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package termstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"bcm/internal/models"
)

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20

	// csrfHeader carries the nonce on every POST.
	csrfHeader = "X-CSRF-Token"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the site root, e.g. http://localhost:8080.
	BaseURL string

	// Timeout bounds each request. Zero keeps the http.Client default.
	Timeout time.Duration

	// HTTPClient overrides the transport. Its Jar is replaced when nil,
	// since the nonce is bound to a cookie.
	HTTPClient *http.Client

	// Breaker trip settings. Zero values select the defaults below.
	BreakerMinRequests uint32
	BreakerFailureRate float64
	BreakerOpenFor     time.Duration
}

// Client talks to the admin AJAX endpoint. It never retries: every failure
// is returned to the caller, which decides how to resynchronize.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker

	mu    sync.Mutex
	nonce string
}

var _ Store = (*Client)(nil)

// NewClient validates cfg and returns a ready client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	failureRate := cfg.BreakerFailureRate
	if failureRate == 0 {
		failureRate = 0.8
	}
	openFor := cfg.BreakerOpenFor
	if openFor == 0 {
		openFor = 30 * time.Second
	}

	c := &Client{base: base, http: hc}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "termstore",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// A rejection means the store is up and answering.
		IsSuccessful: func(err error) bool {
			var rej *RejectionError
			return err == nil || errors.As(err, &rej)
		},
	})
	return c, nil
}

// BreakerState reports the circuit breaker state, for status displays.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// GetTerms loads every term of taxonomy.
func (c *Client) GetTerms(ctx context.Context, taxonomy string) (*Terms, error) {
	var out Terms
	err := c.call(ctx, ActionGetTerms, url.Values{FieldTaxonomy: {taxonomy}}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTermData loads one term with its parent options.
func (c *Client) GetTermData(ctx context.Context, termID int64, taxonomy string) (*TermData, error) {
	var out TermData
	form := url.Values{
		FieldTaxonomy: {taxonomy},
		FieldTermID:   {strconv.FormatInt(termID, 10)},
	}
	if err := c.call(ctx, ActionGetTermData, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveTerm creates (TermID 0) or updates a term.
func (c *Client) SaveTerm(ctx context.Context, f models.TermForm) (*Saved, error) {
	var out Saved
	form := url.Values{
		FieldTaxonomy:    {f.Taxonomy},
		FieldTermID:      {strconv.FormatInt(f.TermID, 10)},
		FieldName:        {f.Name},
		FieldSlug:        {f.Slug},
		FieldDescription: {f.Description},
		FieldParent:      {strconv.FormatInt(f.Parent, 10)},
	}
	if err := c.call(ctx, ActionSaveTerm, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTerm removes a term; its children move up to its parent.
func (c *Client) DeleteTerm(ctx context.Context, termID int64, taxonomy string) (*Deleted, error) {
	var out Deleted
	form := url.Values{
		FieldTaxonomy: {taxonomy},
		FieldTermID:   {strconv.FormatInt(termID, 10)},
	}
	if err := c.call(ctx, ActionDeleteTerm, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTermHierarchy moves termID under parentID (0 for the root).
func (c *Client) UpdateTermHierarchy(ctx context.Context, termID, parentID int64, taxonomy string) (*Message, error) {
	var out Message
	form := url.Values{
		FieldTaxonomy: {taxonomy},
		FieldTermID:   {strconv.FormatInt(termID, 10)},
		FieldParentID: {strconv.FormatInt(parentID, 10)},
	}
	if err := c.call(ctx, ActionUpdateTermHierarchy, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetParentOptions loads the parent dropdown of taxonomy.
func (c *Client) GetParentOptions(ctx context.Context, taxonomy string) (*ParentOptions, error) {
	var out ParentOptions
	if err := c.call(ctx, ActionGetParentOptions, url.Values{FieldTaxonomy: {taxonomy}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call runs one action through the circuit breaker and decodes its data
// into out.
func (c *Client) call(ctx context.Context, action string, form url.Values, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, action, form, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &RequestError{Action: action, Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, action string, form url.Values, out any) error {
	nonce, err := c.ensureNonce(ctx, action)
	if err != nil {
		return err
	}

	form.Set(FieldAction, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(AjaxPath), strings.NewReader(form.Encode()))
	if err != nil {
		return &RequestError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(csrfHeader, nonce)

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		// The nonce cookie expired; fetch a fresh one on the next call.
		c.setNonce("")
	}

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return &RequestError{Action: action, StatusCode: statusIfError(resp.StatusCode), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Handlers answer validation failures with a 4xx and a message.
		if msg := rejectionMessage(env); !env.Success && msg != "" && resp.StatusCode < 500 {
			return &RejectionError{Action: action, Message: msg}
		}
		return &RequestError{Action: action, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	if !env.Success {
		return &RejectionError{Action: action, Message: rejectionMessage(env)}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &RequestError{Action: action, Err: fmt.Errorf("decode %s data: %w", action, err)}
		}
	}
	return nil
}

func statusIfError(code int) int {
	if code >= 200 && code <= 299 {
		return 0
	}
	return code
}

func decodeEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(io.LimitReader(r, maxResponseBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

func rejectionMessage(env *Envelope) string {
	var m Message
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &m) == nil {
		return m.Message
	}
	return ""
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (c *Client) setNonce(n string) {
	c.mu.Lock()
	c.nonce = n
	c.mu.Unlock()
}

// ensureNonce returns the cached nonce, fetching it first if needed. The
// fetch also stores the matching cookie in the jar.
func (c *Client) ensureNonce(ctx context.Context, action string) (string, error) {
	c.mu.Lock()
	n := c.nonce
	c.mu.Unlock()
	if n != "" {
		return n, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(NoncePath), nil)
	if err != nil {
		return "", &RequestError{Action: action, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &RequestError{Action: action, Err: fmt.Errorf("fetch nonce: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{Action: action, StatusCode: resp.StatusCode, Err: errors.New("fetch nonce failed")}
	}
	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return "", &RequestError{Action: action, Err: fmt.Errorf("fetch nonce: %w", err)}
	}
	var nonce Nonce
	if err := json.Unmarshal(env.Data, &nonce); err != nil || nonce.Nonce == "" {
		return "", &RequestError{Action: action, Err: errors.New("fetch nonce: empty nonce")}
	}
	c.setNonce(nonce.Nonce)
	return nonce.Nonce, nil
}
