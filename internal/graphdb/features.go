// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

const retrievalConnectorPrefix = "http://www.ontotext.com/connectors/retrieval#"

// AutocompleteStatus is the state of the autocomplete index.
type AutocompleteStatus string

const (
	AutocompleteReady       AutocompleteStatus = "READY"
	AutocompleteReadyConfig AutocompleteStatus = "READY_CONFIG"
	AutocompleteError       AutocompleteStatus = "ERROR"
	AutocompleteNone        AutocompleteStatus = "NONE"
	AutocompleteBuilding    AutocompleteStatus = "BUILDING"
	AutocompleteCanceled    AutocompleteStatus = "CANCELED"
)

var autocompleteStatuses = []AutocompleteStatus{
	AutocompleteReady, AutocompleteReadyConfig, AutocompleteError,
	AutocompleteNone, AutocompleteBuilding, AutocompleteCanceled,
}

// RDFRankStatus is the state of the RDF rank computation.
type RDFRankStatus string

const (
	RDFRankCanceled      RDFRankStatus = "CANCELED"
	RDFRankComputed      RDFRankStatus = "COMPUTED"
	RDFRankComputing     RDFRankStatus = "COMPUTING"
	RDFRankEmpty         RDFRankStatus = "EMPTY"
	RDFRankError         RDFRankStatus = "ERROR"
	RDFRankOutdated      RDFRankStatus = "OUTDATED"
	RDFRankConfigChanged RDFRankStatus = "CONFIG_CHANGED"
)

var rdfRankStatuses = []RDFRankStatus{
	RDFRankCanceled, RDFRankComputed, RDFRankComputing, RDFRankEmpty,
	RDFRankError, RDFRankOutdated, RDFRankConfigChanged,
}

// Version returns the server's product version. The first successful
// answer is kept until Reconnect.
func (c *Client) Version(ctx context.Context) (string, error) {
	c.versionMu.Lock()
	defer c.versionMu.Unlock()
	if c.version != "" {
		return c.version, nil
	}

	var info struct {
		ProductVersion string `json:"productVersion"`
	}
	if err := c.getJSON(ctx, "version", c.cfg.BaseURL+"/rest/info/version", nil, &info); err != nil {
		return "", err
	}
	c.version = info.ProductVersion
	return c.version, nil
}

// FTSEnabled reports whether the repository has a full-text search index.
func (c *Client) FTSEnabled(ctx context.Context) (bool, error) {
	var repo struct {
		Params struct {
			EnableFTSIndex struct {
				Value string `json:"value"`
			} `json:"enableFtsIndex"`
		} `json:"params"`
	}
	u := c.cfg.BaseURL + "/rest/repositories/" + url.PathEscape(c.cfg.Repository)
	if err := c.getJSON(ctx, "fts", u, nil, &repo); err != nil {
		return false, err
	}
	return strings.EqualFold(repo.Params.EnableFTSIndex.Value, "true"), nil
}

// AutocompleteEnabled reports whether the autocomplete plugin is on.
func (c *Client) AutocompleteEnabled(ctx context.Context) (bool, error) {
	return c.ask(ctx, "ASK {_:s <http://www.ontotext.com/plugins/autocomplete#enabled> ?o}")
}

// AutocompleteStatus returns the autocomplete index state. Unrecognized,
// "ERROR:"-prefixed or missing values are reported as ERROR.
func (c *Client) AutocompleteStatus(ctx context.Context) (AutocompleteStatus, error) {
	v, err := c.selectOne(ctx,
		"SELECT ?status { _:s <http://www.ontotext.com/plugins/autocomplete#status> ?status }", "status")
	if err != nil {
		return "", err
	}
	s := AutocompleteStatus(v)
	if !slices.Contains(autocompleteStatuses, s) {
		return AutocompleteError, nil
	}
	return s, nil
}

// RDFRankStatus returns the RDF rank state; unrecognized or missing values
// are reported as ERROR.
func (c *Client) RDFRankStatus(ctx context.Context) (RDFRankStatus, error) {
	v, err := c.selectOne(ctx,
		"PREFIX rank: <http://www.ontotext.com/owlim/RDFRank#> SELECT ?status { ?s rank:status ?status }", "status")
	if err != nil {
		return "", err
	}
	s := RDFRankStatus(v)
	if !slices.Contains(rdfRankStatuses, s) {
		return RDFRankError, nil
	}
	return s, nil
}

// RDFRankComputed reports whether RDF rank is COMPUTED.
func (c *Client) RDFRankComputed(ctx context.Context) (bool, error) {
	s, err := c.RDFRankStatus(ctx)
	return s == RDFRankComputed, err
}

// SimilarityIndexExists reports whether a similarity index named name exists.
func (c *Client) SimilarityIndexExists(ctx context.Context, name string) (bool, error) {
	return c.namedExists(ctx, "similarity", c.cfg.BaseURL+"/rest/similarity", name)
}

// RetrievalConnectorExists reports whether a retrieval connector named name exists.
func (c *Client) RetrievalConnectorExists(ctx context.Context, name string) (bool, error) {
	u := c.cfg.BaseURL + "/rest/connectors/existing?" + url.Values{"prefix": {retrievalConnectorPrefix}}.Encode()
	return c.namedExists(ctx, "retrieval_connectors", u, name)
}

func (c *Client) namedExists(ctx context.Context, op, u, name string) (bool, error) {
	var items []struct {
		Name string `json:"name"`
	}
	header := http.Header{"X-GraphDB-Repository": {c.cfg.Repository}}
	if err := c.getJSON(ctx, op, u, header, &items); err != nil {
		return false, err
	}
	for _, it := range items {
		if it.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, header http.Header, out any) error {
	body, _, err := c.get(ctx, op, u, header, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeGraphDBResponseInvalid, "decoding graphdb "+op+" response")
	}
	return nil
}

func (c *Client) ask(ctx context.Context, query string) (bool, error) {
	res, err := c.Eval(ctx, query, WithValidation(false))
	if err != nil {
		return false, err
	}
	s, err := res.Bindings()
	if err != nil {
		return false, err
	}
	return s.Boolean != nil && *s.Boolean, nil
}

// selectOne returns the value of variable in the first solution, or "".
func (c *Client) selectOne(ctx context.Context, query, variable string) (string, error) {
	res, err := c.Eval(ctx, query, WithValidation(false))
	if err != nil {
		return "", err
	}
	s, err := res.Bindings()
	if err != nil {
		return "", err
	}
	if len(s.Results.Bindings) == 0 {
		return "", nil
	}
	return s.Results.Bindings[0][variable].Value, nil
}
