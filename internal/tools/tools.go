// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package tools exposes the gateway to LLM agents as a set of callable tools.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/provider"
	"github.com/sigil-dev/sparqlgate/internal/store"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// DefaultTimeout bounds a single tool call when the toolkit sets none.
const DefaultTimeout = 30 * time.Second

// auditEscalationThreshold is the number of consecutive audit failures after
// which they are logged at error level.
const auditEscalationThreshold = 3

// Tool is a single capability offered to the agent.
type Tool interface {
	Definition() provider.ToolDefinition
	// Call runs the tool with JSON object arguments that already passed
	// schema validation.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// Graph is the part of the GraphDB client the tools use.
type Graph interface {
	Eval(ctx context.Context, query string, opts ...graphdb.EvalOption) (*graphdb.Result, error)
	AutocompleteEnabled(ctx context.Context) (bool, error)
	RDFRankComputed(ctx context.Context) (bool, error)
	RetrievalConnectorExists(ctx context.Context, name string) (bool, error)
}

var _ Graph = (*graphdb.Client)(nil)

// ToolkitConfig holds the dependencies of a Toolkit.
type ToolkitConfig struct {
	// QueryLog receives one entry per call. Nil disables auditing.
	QueryLog store.QueryLogStore
	Timeout  time.Duration
	// MaxTotalOutput and MinSingleOutput bound the outputs of one Run, see
	// ShortenOutputs. Zero uses the defaults.
	MaxTotalOutput  int
	MinSingleOutput int
}

type entry struct {
	tool   Tool
	def    provider.ToolDefinition
	schema *gojsonschema.Schema
}

// Toolkit dispatches calls by tool name with argument validation, a timeout,
// and audit logging.
type Toolkit struct {
	tools     map[string]*entry
	order     []string
	queryLog  store.QueryLogStore
	timeout   time.Duration
	maxTotal  int
	minSingle int

	auditFailCount atomic.Int64
}

// NewToolkit registers tools in order. Names must be unique and every input
// schema must compile.
func NewToolkit(cfg ToolkitConfig, tools ...Tool) (*Toolkit, error) {
	k := &Toolkit{
		tools:     make(map[string]*entry, len(tools)),
		queryLog:  cfg.QueryLog,
		timeout:   cfg.Timeout,
		maxTotal:  cfg.MaxTotalOutput,
		minSingle: cfg.MinSingleOutput,
	}
	if k.timeout <= 0 {
		k.timeout = DefaultTimeout
	}
	if k.maxTotal <= 0 {
		k.maxTotal = DefaultMaxTotalOutput
	}
	if k.minSingle <= 0 {
		k.minSingle = DefaultMinSingleOutput
	}

	for _, t := range tools {
		def := t.Definition()
		if _, dup := k.tools[def.Name]; dup {
			return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid, "duplicate tool "+def.Name, sigilerr.FieldTool(def.Name))
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
		if err != nil {
			return nil, sigilerr.Wrapf(err, sigilerr.CodeToolConfigInvalid, "compiling input schema of tool %q", def.Name)
		}
		k.tools[def.Name] = &entry{tool: t, def: def, schema: schema}
		k.order = append(k.order, def.Name)
	}
	return k, nil
}

// Names returns the tool names in registration order.
func (k *Toolkit) Names() []string { return append([]string(nil), k.order...) }

// Definitions returns the tool definitions in registration order.
func (k *Toolkit) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(k.order))
	for _, name := range k.order {
		defs = append(defs, k.tools[name].def)
	}
	return defs
}

// Lookup returns the definition of the named tool.
func (k *Toolkit) Lookup(name string) (provider.ToolDefinition, bool) {
	e, ok := k.tools[name]
	if !ok {
		return provider.ToolDefinition{}, false
	}
	return e.def, true
}

// Call validates args against the tool's input schema and runs it. Errors
// returned by the tool are passed through unchanged so that validation
// messages reach the agent verbatim.
func (k *Toolkit) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	e, ok := k.tools[name]
	if !ok {
		return "", sigilerr.New(sigilerr.CodeToolNotFound, "unknown tool "+name, sigilerr.FieldTool(name))
	}

	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = json.RawMessage("{}")
	}
	if err := e.validate(args); err != nil {
		return "", err
	}

	trace := &callTrace{}
	execCtx, cancel := context.WithTimeout(withTrace(ctx, trace), k.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.tool.Call(execCtx, args)
	if err != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) && sigilerr.CodeOf(err) == "" {
		err = sigilerr.Wrapf(err, sigilerr.CodeToolTimeout, "tool %q timed out after %s", name, k.timeout)
	}
	k.audit(ctx, name, args, trace, time.Since(start), err)

	if err != nil {
		slog.Debug("tool call failed", "tool", name, "code", sigilerr.CodeOf(err), "error", err)
		return "", err
	}
	return out, nil
}

func (e *entry) validate(args json.RawMessage) error {
	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeToolArgumentsInvalid, "invalid arguments for tool %q", e.def.Name)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return sigilerr.New(sigilerr.CodeToolArgumentsInvalid,
		"invalid arguments for tool "+e.def.Name+": "+strings.Join(problems, "; "),
		sigilerr.FieldTool(e.def.Name),
		sigilerr.Field("problems", problems),
	)
}

// audit writes a best-effort query log entry. Audit failures never fail the call.
func (k *Toolkit) audit(ctx context.Context, name string, args json.RawMessage, trace *callTrace, elapsed time.Duration, callErr error) {
	if k.queryLog == nil {
		return
	}
	raw, final := trace.get()
	if raw == "" {
		raw = string(args)
	}
	entry := &store.QueryLogEntry{
		Source:     SourceFrom(ctx),
		Tool:       name,
		RawQuery:   raw,
		FinalQuery: final,
		Outcome:    store.OutcomeOf(callErr),
		Duration:   elapsed,
	}
	if err := k.queryLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		consecutive := k.auditFailCount.Add(1)
		level := slog.LevelWarn
		if consecutive >= auditEscalationThreshold {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "query log append failed",
			"error", err, "tool", name, "consecutive_failures", consecutive)
		return
	}
	k.auditFailCount.Store(0)
}

type sourceKey struct{}

// WithSource tags calls made with ctx as arriving through source.
func WithSource(ctx context.Context, source store.Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the source set by WithSource, or store.SourceTool.
func SourceFrom(ctx context.Context) store.Source {
	if s, ok := ctx.Value(sourceKey{}).(store.Source); ok && s.Valid() {
		return s
	}
	return store.SourceTool
}

// callTrace collects the query a tool sent, for the audit entry.
type callTrace struct {
	mu    sync.Mutex
	raw   string
	final string
}

func (t *callTrace) get() (string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.raw, t.final
}

type traceKey struct{}

func withTrace(ctx context.Context, t *callTrace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// recordQuery notes the query a tool evaluated. Later calls overwrite earlier ones.
func recordQuery(ctx context.Context, raw, final string) {
	t, ok := ctx.Value(traceKey{}).(*callTrace)
	if !ok {
		return
	}
	t.mu.Lock()
	t.raw, t.final = raw, final
	t.mu.Unlock()
}

// objectSchema builds a JSON Schema object with string properties.
func objectSchema(required []string, props map[string]string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{"type": "string", "description": desc}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
