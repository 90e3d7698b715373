// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"log/slog"
	"net/http"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// errorBody is the JSON error returned by every gateway route. Message is
// the error text unchanged, so agents see the same wording as over MCP.
type errorBody struct {
	Status  int            `json:"status"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e *errorBody) Error() string  { return e.Message }
func (e *errorBody) GetStatus() int { return e.Status }

// apiError converts err into a huma status error.
func apiError(err error) error {
	status := sigilerr.HTTPStatus(err)
	code := sigilerr.CodeOf(err)
	if code == "" {
		code = sigilerr.CodeServerInternalFailure
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "code", code, "status", status)
	}
	return &errorBody{
		Status:  status,
		Code:    string(code),
		Message: err.Error(),
		Fields:  sigilerr.FieldsOf(err),
	}
}
