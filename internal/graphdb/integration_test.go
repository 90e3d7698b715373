// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build integration

package graphdb_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

const starwarsTurtle = `@prefix voc: <https://swapi.co/vocabulary/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
<https://swapi.co/resource/human/1> a voc:Human ; rdfs:label "Luke Skywalker" ; voc:eyeColor "blue" .
<https://swapi.co/resource/human/5> a voc:Human ; rdfs:label "Leia Organa" ; voc:eyeColor "brown" .
<https://swapi.co/resource/droid/2> a voc:Droid ; rdfs:label "C-3PO" ; voc:eyeColor "yellow" .
`

func startGraphDB(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "ontotext/graphdb:10.7.0",
			ExposedPorts: []string{"7200/tcp"},
			WaitingFor: wait.ForHTTP("/rest/repositories").
				WithPort("7200/tcp").
				WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7200")
	require.NoError(t, err)
	base := fmt.Sprintf("http://%s:%s", host, port.Port())

	post(t, base+"/rest/repositories", "application/json",
		`{"id":"starwars","title":"Star Wars","type":"graphdb","params":{}}`)
	post(t, base+"/repositories/starwars/statements", "text/turtle", starwarsTurtle)
	return base
}

func post(t *testing.T, url, contentType, body string) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Less(t, resp.StatusCode, 300, "POST %s: %s", url, resp.Status)
}

func TestIntegrationGraphDB(t *testing.T) {
	ctx := context.Background()
	base := startGraphDB(ctx, t)

	c, err := graphdb.New(ctx, graphdb.Config{BaseURL: base, Repository: "starwars", ReadTimeout: 30 * time.Second})
	require.NoError(t, err)

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version, "10."), version)

	res, err := c.Eval(ctx, `SELECT ?s { ?s voc:eyeColor "blue" }`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Query, "PREFIX voc: <https://swapi.co/vocabulary/>"))
	solutions, err := res.Bindings()
	require.NoError(t, err)
	require.Len(t, solutions.Results.Bindings, 1)
	assert.Equal(t, "https://swapi.co/resource/human/1", solutions.Results.Bindings[0]["s"].Value)

	_, err = c.Eval(ctx, `SELECT ?s { ?s voc:hairColor ?c }`)
	assert.True(t, sigilerr.IsUnknownIRI(err), "err = %v", err)

	res, err = c.Eval(ctx, `DESCRIBE <https://swapi.co/resource/droid/2>`)
	require.NoError(t, err)
	assert.Equal(t, graphdb.FormatTurtle, res.Format)
	assert.Contains(t, string(res.Body), "C-3PO")
}
