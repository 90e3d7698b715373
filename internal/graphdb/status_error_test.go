// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func TestStatusErrorCodes(t *testing.T) {
	tests := []struct {
		status int
		want   sigilerr.Code
	}{
		{http.StatusBadRequest, sigilerr.CodeGraphDBTransportFailure},
		{http.StatusNotFound, sigilerr.CodeGraphDBTransportFailure},
		{http.StatusInternalServerError, sigilerr.CodeGraphDBUpstreamFailure},
		{http.StatusServiceUnavailable, sigilerr.CodeGraphDBUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := statusError("query", tt.status, []byte("boom"))
			assert.Equal(t, tt.want, sigilerr.CodeOf(err))
			assert.True(t, sigilerr.IsTransport(err))
		})
	}
}

func TestStatusErrorKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; the limit falls in the middle of one.
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)

	err := statusError("query", http.StatusBadGateway, []byte(body))
	text := sigilerr.FieldsOf(err)["body"].(string)

	assert.True(t, utf8.ValidString(text), "truncated body is valid UTF-8")
	assert.True(t, strings.HasSuffix(text, "..."))
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1)+"...", text)
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "short", truncateBody("short", 10))
	assert.Equal(t, "日...", truncateBody("日本語", 4))
	assert.Equal(t, "...", truncateBody("日本語", 2))
}
