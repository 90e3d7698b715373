// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

const entityIDPredicate = "http://www.ontotext.com/owlim/entity#id"

// existenceCheck binds ?iri to every candidate the store has never seen.
// GraphDB gives unknown IRIs a negative internal entity id.
var existenceCheck = sparql.MustTemplate(
	`SELECT ?iri { VALUES ?iri { {{iris:candidates}} } ?iri <` + entityIDPredicate + `> ?id . FILTER(?id < 0) }`)

// Normalize parses query and reconciles its prefixes with the registry.
// Nothing is sent to the server.
func (c *Client) Normalize(ctx context.Context, query string) (*sparql.Normalized, error) {
	q, err := sparql.Parse(query)
	if err != nil {
		return nil, err
	}
	c.stage(ctx, StageParsed)

	n, err := sparql.Normalize(q, c.Registry())
	if err != nil {
		return nil, err
	}
	recordCorrections(n.Corrections)
	for _, corr := range n.Corrections {
		slog.Debug("corrected query prefix", "kind", corr.Kind, "prefix", corr.Prefix, "from", corr.From, "to", corr.To)
	}
	c.stage(ctx, StagePrefixNormalized)
	return n, nil
}

// Validate normalizes query and checks that every IRI it references is
// stored in the repository.
func (c *Client) Validate(ctx context.Context, query string) (*sparql.Normalized, error) {
	n, err := c.Normalize(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.CheckIRIs(ctx, n.Query.ResourceIRIs(c.cfg.ExcludedNamespaces)); err != nil {
		return nil, err
	}
	c.stage(ctx, StageIRIValidated)
	return n, nil
}

// CheckIRIs fails with an unknown IRI error listing every candidate that
// the store does not use. An empty candidate list sends nothing.
func (c *Client) CheckIRIs(ctx context.Context, candidates []string) error {
	if len(candidates) == 0 {
		return nil
	}
	check, err := existenceCheck.Render(map[string]any{"candidates": candidates})
	if err != nil {
		return err
	}

	body, _, err := c.postQuery(ctx, "existence_check", check.Text, solutionFormats[FormatJSON])
	if err != nil {
		return err
	}
	var res Solutions
	if err := json.Unmarshal(body, &res); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeGraphDBResponseInvalid, "decoding existence check result")
	}

	var unknown []string
	for _, row := range res.Results.Bindings {
		if b, ok := row["iri"]; ok {
			unknown = append(unknown, b.Value)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	quoted := make([]string, len(unknown))
	for i, iri := range unknown {
		quoted[i] = "<" + iri + ">"
	}
	return sigilerr.New(sigilerr.CodeSPARQLIRINotStored,
		"The following IRIs are not used in the data stored in GraphDB: "+strings.Join(quoted, ", "),
		sigilerr.FieldIRIs(unknown),
	)
}
