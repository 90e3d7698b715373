// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb

import (
	"net/url"
	"strings"
	"time"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// XSDNamespace is excluded from existence checks unless configured otherwise.
const XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

const (
	DefaultConnectTimeout = 2 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultMaxConnections = 64
)

// Config describes one GraphDB repository.
type Config struct {
	BaseURL    string
	Repository string
	// AuthHeader is sent verbatim as the Authorization header when set.
	AuthHeader     string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// ExcludedNamespaces are never sent to the existence check. Nil means
	// XSD only; an empty non-nil slice excludes nothing.
	ExcludedNamespaces []string
	// MaxConnections caps open connections to the server.
	MaxConnections int
	HealthCooldown time.Duration
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ExcludedNamespaces == nil {
		c.ExcludedNamespaces = []string{XSDNamespace}
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.HealthCooldown <= 0 {
		c.HealthCooldown = DefaultHealthCooldown
	}
	return c
}

func (c Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return sigilerr.New(sigilerr.CodeGraphDBConfigInvalid, "graphdb base URL must be an absolute http(s) URL",
			sigilerr.Field("base_url", c.BaseURL))
	}
	if c.Repository == "" {
		return sigilerr.New(sigilerr.CodeGraphDBConfigInvalid, "graphdb repository id is required")
	}
	return nil
}
