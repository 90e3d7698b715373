// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Format is a result serialization accepted by the SPARQL endpoint.
type Format string

const (
	FormatJSON   Format = "json"
	FormatXML    Format = "xml"
	FormatTurtle Format = "turtle"
	FormatN3     Format = "n3"
	FormatRDFXML Format = "rdf+xml"
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
	FormatJSONLD Format = "json-ld"
)

// solutionFormats are valid for SELECT and ASK, graphFormats for CONSTRUCT
// and DESCRIBE. Values are Accept media types.
var (
	solutionFormats = map[Format]string{
		FormatJSON: "application/sparql-results+json",
		FormatXML:  "application/sparql-results+xml",
		FormatCSV:  "text/csv",
		FormatTSV:  "text/tab-separated-values",
	}
	graphFormats = map[Format]string{
		FormatTurtle: "text/turtle",
		FormatN3:     "text/n3",
		FormatRDFXML: "application/rdf+xml",
		FormatXML:    "application/rdf+xml",
		FormatJSONLD: "application/ld+json",
	}
)

// ParseFormat normalizes a user-supplied format name. "rdf" is an alias of
// "rdf+xml". Unknown names report false.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "rdf" {
		f = FormatRDFXML
	}
	_, solution := solutionFormats[f]
	_, graph := graphFormats[f]
	return f, solution || graph
}

// chooseFormat picks the default for the query type unless a known and
// compatible override is given. An unclassified query defaults to JSON.
func chooseFormat(t sparql.QueryType, override string) (Format, string) {
	formats := solutionFormats
	def := FormatJSON
	if t.Graph() {
		formats, def = graphFormats, FormatTurtle
	}
	if f, ok := ParseFormat(override); ok {
		if media, ok := formats[f]; ok {
			return f, media
		}
		if t == "" {
			if media, ok := graphFormats[f]; ok {
				return f, media
			}
		}
	}
	return def, formats[def]
}

type evalOptions struct {
	format   string
	validate bool
}

// EvalOption configures a single Eval call.
type EvalOption func(*evalOptions)

// WithFormat requests a result serialization. Unknown formats and formats
// that do not fit the query type are ignored.
func WithFormat(format string) EvalOption {
	return func(o *evalOptions) { o.format = format }
}

// WithValidation turns query validation on or off. It is on by default;
// turn it off only for queries the gateway builds itself.
func WithValidation(validate bool) EvalOption {
	return func(o *evalOptions) { o.validate = validate }
}

// Result is an executed query.
type Result struct {
	// Query is the text that was executed, after prefix normalization.
	Query       string           `json:"query"`
	Type        sparql.QueryType `json:"type,omitempty"`
	Format      Format           `json:"format"`
	ContentType string           `json:"content_type"`
	Body        []byte           `json:"-"`
}

// Solutions is a SPARQL JSON results document.
type Solutions struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

// Binding is one bound value in a solution.
type Binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Bindings decodes a JSON result.
func (r *Result) Bindings() (*Solutions, error) {
	if r.Format != FormatJSON {
		return nil, sigilerr.Errorf(sigilerr.CodeSPARQLResultInvalid, "result is %s, not json", r.Format)
	}
	var s Solutions
	if err := json.Unmarshal(r.Body, &s); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeSPARQLResultInvalid, "decoding SPARQL JSON result")
	}
	return &s, nil
}

// Eval validates query (unless disabled) and executes the finalized text.
// Validation failures are returned before anything is sent to the server.
func (c *Client) Eval(ctx context.Context, query string, opts ...EvalOption) (*Result, error) {
	o := evalOptions{validate: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "graphdb.Eval",
		trace.WithAttributes(attribute.Bool("sparql.validate", o.validate)))
	defer span.End()

	res, err := c.eval(ctx, span, query, o)
	if err != nil {
		stage := errorStage(err)
		validationOutcomes.WithLabelValues(stage).Inc()
		span.AddEvent(stage)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (c *Client) eval(ctx context.Context, span trace.Span, query string, o evalOptions) (*Result, error) {
	text := query
	var qtype sparql.QueryType

	if o.validate {
		n, err := c.Validate(ctx, query)
		if err != nil {
			return nil, err
		}
		text, qtype = n.Text(), n.Query.Type
	} else if q, err := sparql.Parse(query); err == nil {
		qtype = q.Type
	}

	format, accept := chooseFormat(qtype, o.format)
	span.SetAttributes(
		attribute.String("sparql.type", string(qtype)),
		attribute.String("sparql.format", string(format)),
	)
	slog.Debug("executing sparql query", "type", qtype, "format", format, "query", text)

	body, contentType, err := c.postQuery(ctx, "eval", text, accept)
	if err != nil {
		return nil, err
	}
	c.stage(ctx, StageExecuted)
	if contentType == "" {
		contentType = accept
	}
	return &Result{Query: text, Type: qtype, Format: format, ContentType: contentType, Body: body}, nil
}

// stage records that a query passed a validation stage.
func (c *Client) stage(ctx context.Context, name string) {
	validationOutcomes.WithLabelValues(name).Inc()
	trace.SpanFromContext(ctx).AddEvent(name)
}

// errorStage maps an error to the terminal stage it represents.
func errorStage(err error) string {
	switch {
	case sigilerr.IsSyntaxError(err):
		return StageSyntaxError
	case sigilerr.IsUnsupportedQueryType(err):
		return StageTypeRejected
	case sigilerr.IsUndefinedPrefix(err):
		return StagePrefixUndefined
	case sigilerr.IsUnknownIRI(err):
		return StageIRINotStored
	case sigilerr.IsTransport(err):
		return StageTransportError
	default:
		return "error"
	}
}
