// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package graphdb is the GraphDB client behind the gateway. Eval validates
// LLM-written SPARQL (syntax, prefixes, stored IRIs) before executing it.
package graphdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
	"github.com/sigil-dev/sparqlgate/pkg/health"
)

// maxErrorBody bounds the response text attached to transport errors.
const maxErrorBody = 512

// Client talks to one repository. It is safe for concurrent use; the
// validate and execute path takes no locks.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	registry atomic.Pointer[sparql.Registry]
	health   *HealthTracker

	versionMu sync.Mutex
	version   string
}

// New builds a client, checks connectivity with ASK {?s ?p ?o} and loads
// the namespace registry.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxConnsPerHost:       cfg.MaxConnections,
		MaxIdleConnsPerHost:   cfg.MaxConnections,
		IdleConnTimeout:       90 * time.Second,
	}

	c := &Client{
		cfg:      cfg,
		endpoint: cfg.BaseURL + "/repositories/" + url.PathEscape(cfg.Repository),
		http:     &http.Client{Transport: otelhttp.NewTransport(transport)},
		health:   NewHealthTracker(cfg.HealthCooldown),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconnect re-runs the connectivity check, reloads the namespace registry
// and forgets the memoized server version.
func (c *Client) Reconnect(ctx context.Context) error {
	c.versionMu.Lock()
	c.version = ""
	c.versionMu.Unlock()
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	if _, err := c.Eval(ctx, "ASK {?s ?p ?o}", WithValidation(false)); err != nil {
		return err
	}
	reg, err := c.loadRegistry(ctx)
	if err != nil {
		return err
	}
	c.registry.Store(reg)
	slog.Info("connected to graphdb",
		"url", c.cfg.BaseURL,
		"repository", c.cfg.Repository,
		"namespaces", reg.Len(),
	)
	return nil
}

func (c *Client) loadRegistry(ctx context.Context) (*sparql.Registry, error) {
	body, _, err := c.get(ctx, "namespaces", c.endpoint+"/namespaces", nil, "application/sparql-results+json")
	if err != nil {
		return nil, err
	}
	var res Solutions
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeGraphDBResponseInvalid, "decoding namespace listing")
	}
	namespaces := make([]sparql.Namespace, 0, len(res.Results.Bindings))
	for _, row := range res.Results.Bindings {
		namespaces = append(namespaces, sparql.Namespace{
			Prefix: row["prefix"].Value,
			IRI:    row["namespace"].Value,
		})
	}
	return sparql.NewRegistry(namespaces)
}

// Registry returns the namespace registry loaded at connect time.
func (c *Client) Registry() *sparql.Registry { return c.registry.Load() }

// Repository returns the configured repository id.
func (c *Client) Repository() string { return c.cfg.Repository }

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Health returns the transport failure state of the server.
func (c *Client) Health() health.Metrics { return c.health.Metrics() }

func (c *Client) get(ctx context.Context, op, rawURL string, header http.Header, accept string) ([]byte, string, error) {
	return c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Accept", accept)
		return req, nil
	})
}

func (c *Client) postQuery(ctx context.Context, op, query, accept string) ([]byte, string, error) {
	return c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		form := url.Values{"query": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", accept)
		return req, nil
	})
}

// do sends one request bounded by the connect and read timeouts and returns
// the body and content type of a 2xx response.
func (c *Client) do(ctx context.Context, op string, build func(context.Context) (*http.Request, error)) (body []byte, contentType string, err error) {
	start := time.Now()
	defer func() { recordRequest(op, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout+c.cfg.ReadTimeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		return nil, "", sigilerr.Wrap(err, sigilerr.CodeGraphDBConfigInvalid, "building graphdb request", sigilerr.Field("op", op))
	}
	if c.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", c.cfg.AuthHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = transportError(op, req.URL, err)
		c.health.RecordFailure(err)
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		err = transportError(op, req.URL, err)
		c.health.RecordFailure(err)
		return nil, "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = statusError(op, resp.StatusCode, body)
		if resp.StatusCode >= 500 {
			c.health.RecordFailure(err)
		}
		return nil, "", err
	}
	c.health.RecordSuccess()
	return body, resp.Header.Get("Content-Type"), nil
}

func transportError(op string, u *url.URL, err error) error {
	code := sigilerr.CodeGraphDBTransportFailure
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = sigilerr.CodeGraphDBTransportTimeout
	}
	return sigilerr.Wrap(err, code, "graphdb "+op+" request failed",
		sigilerr.Field("op", op),
		sigilerr.Field("url", u.Redacted()),
	)
}

func statusError(op string, status int, body []byte) error {
	text := truncateBody(strings.TrimSpace(string(body)), maxErrorBody)
	code := sigilerr.CodeGraphDBTransportFailure
	if status >= http.StatusInternalServerError {
		code = sigilerr.CodeGraphDBUpstreamFailure
	}
	return sigilerr.New(code,
		fmt.Sprintf("graphdb %s: HTTP %d: %s", op, status, text),
		sigilerr.Field("op", op),
		sigilerr.Field("status", status),
		sigilerr.Field("body", text),
	)
}

// truncateBody cuts text to at most limit bytes without splitting a rune.
func truncateBody(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
