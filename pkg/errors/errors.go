// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	// Validation outcomes. Their messages are shown verbatim to the calling agent.
	CodeSPARQLSyntaxInvalid     Code = "sparql.parse.invalid_syntax"
	CodeSPARQLQueryTypeRejected Code = "sparql.query.unsupported_type"
	CodeSPARQLPrefixUndefined   Code = "sparql.prefix.undefined"
	CodeSPARQLIRINotStored      Code = "sparql.iri.not_stored"
	CodeSPARQLTemplateInvalid   Code = "sparql.template.invalid_input"
	CodeSPARQLResultInvalid     Code = "sparql.result.invalid_format"

	CodeGraphDBTransportFailure  Code = "graphdb.transport.failure"
	CodeGraphDBTransportTimeout  Code = "graphdb.transport.timeout"
	CodeGraphDBUpstreamFailure   Code = "graphdb.upstream.failure"
	CodeGraphDBResponseInvalid   Code = "graphdb.response.invalid_format"
	CodeGraphDBConfigInvalid     Code = "graphdb.config.invalid_value"
	CodeGraphDBFeatureNotEnabled Code = "graphdb.feature.not_enabled"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreInvalidInput       Code = "store.invalid_input"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretInvalidInput   Code = "secret.input.invalid_input"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretURIInvalid     Code = "secret.uri.invalid"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeToolNotFound         Code = "tool.registry.not_found"
	CodeToolArgumentsInvalid Code = "tool.arguments.invalid_input"
	CodeToolConfigInvalid    Code = "tool.config.invalid_value"
	CodeToolTimeout          Code = "tool.call.timeout"
	CodeToolOutputInvalid    Code = "tool.output.invalid"

	CodeProviderNameInvalid Code = "provider.name.invalid_input"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
	CodeServerRateLimited     Code = "server.rate.budget_exceeded"

	CodeCLISetupFailure      Code = "cli.setup.failure"
	CodeCLIInputInvalid      Code = "cli.input.invalid"
	CodeCLIGatewayNotRunning Code = "cli.gateway.not_running"
	CodeCLIRequestFailure    Code = "cli.request.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPrefixes(prefixes []string) Attr {
	return Field("prefixes", prefixes)
}

func FieldIRIs(iris []string) Attr {
	return Field("iris", iris)
}

func FieldRepository(value string) Attr {
	return Field("repository", value)
}

func FieldTool(value string) Attr {
	return Field("tool", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

// StringsField returns a []string field attached to err, or nil.
func StringsField(err error, key string) []string {
	v, ok := FieldsOf(err)[key].([]string)
	if !ok {
		return nil
	}
	return v
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsSyntaxError reports whether a query or generated sub-query failed to parse.
func IsSyntaxError(err error) bool {
	return HasCode(err, CodeSPARQLSyntaxInvalid)
}

// IsUnsupportedQueryType reports whether a query used an update form.
func IsUnsupportedQueryType(err error) bool {
	return HasCode(err, CodeSPARQLQueryTypeRejected)
}

// IsUndefinedPrefix reports whether a query referenced prefixes that are
// neither declared nor known to the namespace registry.
func IsUndefinedPrefix(err error) bool {
	return HasCode(err, CodeSPARQLPrefixUndefined)
}

// IsUnknownIRI reports whether a query referenced IRIs absent from the store.
func IsUnknownIRI(err error) bool {
	return HasCode(err, CodeSPARQLIRINotStored)
}

// IsTransport reports whether err is a network, timeout or backend fault.
// A 5xx answer from GraphDB carries CodeGraphDBUpstreamFailure.
func IsTransport(err error) bool {
	code := CodeOf(err)
	return strings.HasPrefix(string(code), "graphdb.transport.") || code == CodeGraphDBUpstreamFailure
}

// IsValidation reports whether err is one of the query validation outcomes.
func IsValidation(err error) bool {
	return IsSyntaxError(err) || IsUnsupportedQueryType(err) || IsUndefinedPrefix(err) || IsUnknownIRI(err)
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format" || r == "invalid_syntax"
}

func IsBudgetExceeded(err error) bool {
	r := reason(CodeOf(err))
	return r == "exceeded" || r == "budget_exceeded"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return (strings.Contains(string(code), "upstream") || strings.Contains(string(code), "transport")) &&
		reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsUndefinedPrefix(err), IsUnknownIRI(err), IsUnsupportedQueryType(err):
		return http.StatusUnprocessableEntity
	case HasCode(err, CodeGraphDBFeatureNotEnabled):
		return http.StatusNotImplemented
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsBudgetExceeded(err):
		return http.StatusTooManyRequests
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
