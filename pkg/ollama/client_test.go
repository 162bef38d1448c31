package ollama

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trustedClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	client, err := NewClient(srv.URL, append([]ClientOption{WithRootCAs(pool)}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"codellama","response":"FROM registry.access.redhat.com/ubi9/ubi-minimal\n","done":true}`))
	}))
	defer srv.Close()

	client := trustedClient(t, srv, WithModel("granite-code"))
	out, err := client.Generate(context.Background(), "write a Containerfile")

	require.NoError(t, err)
	assert.Equal(t, "FROM registry.access.redhat.com/ubi9/ubi-minimal\n", out)
	assert.Equal(t, "granite-code", got.Model)
	assert.Equal(t, "write a Containerfile", got.Prompt)
	assert.False(t, got.Stream)
}

func TestGenerate_EmptyResponseIsValid(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	out, err := trustedClient(t, srv).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestGenerate_MalformedResponse(t *testing.T) {
	bodies := map[string]string{
		"not json":         `<html>hello</html>`,
		"missing response": `{"model":"codellama","done":true}`,
		"null response":    `{"response":null}`,
		"non-string":       `{"response":42}`,
		"array instead":    `["FROM scratch"]`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := trustedClient(t, srv).Generate(context.Background(), "p")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)

			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, MalformedResponse, genErr.Kind)
		})
	}
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'codellama' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := trustedClient(t, srv).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrMalformedResponse)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, http.StatusNotFound, genErr.StatusCode)
	assert.Contains(t, genErr.Error(), "not found")
}

func TestGenerate_UntrustedCertificate(t *testing.T) {
	called := false
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{"response":"FROM scratch"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithRootCAs(x509.NewCertPool()))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTLSVerification)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.False(t, called)
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, WithRootCAs(pool))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrTLSVerification)
}

func TestNewClient_Host(t *testing.T) {
	testTable := []struct {
		name    string
		host    string
		want    string
		wantErr error
	}{
		{name: "default", host: "", want: DefaultHost},
		{name: "bare host port", host: "ollama.internal:11434", want: "https://ollama.internal:11434"},
		{name: "trailing slash", host: "https://ollama.internal/", want: "https://ollama.internal"},
		{name: "plain http", host: "http://localhost:11434", wantErr: ErrInsecureHost},
		{name: "other scheme", host: "ftp://localhost", wantErr: ErrInsecureHost},
	}

	for _, tc := range testTable {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.host)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, client.Host())
			assert.Equal(t, DefaultModel, client.Model())
		})
	}
}

func TestLoadRootCAs(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	bundle := filepath.Join(dir, "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, pemBytes, 0o600))

	pool, err := LoadRootCAs(bundle)
	require.NoError(t, err)

	client, err := NewClient(srv.URL, WithRootCAs(pool))
	require.NoError(t, err)
	out, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	t.Run("empty bundle", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.pem")
		require.NoError(t, os.WriteFile(empty, []byte("not a certificate"), 0o600))
		_, err := LoadRootCAs(empty)
		assert.Error(t, err)
	})

	t.Run("missing bundle", func(t *testing.T) {
		_, err := LoadRootCAs(filepath.Join(dir, "nope.pem"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no bundle", func(t *testing.T) {
		pool, err := LoadRootCAs("")
		require.NoError(t, err)
		assert.NotNil(t, pool)
	})
}

func TestListModels(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/ps", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"codellama:latest","model":"codellama:latest"},{"name":"","model":"granite-code:8b"}]}`))
	}))
	defer srv.Close()

	models, err := trustedClient(t, srv).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"codellama", "granite-code"}, models)
}

func TestListModels_Malformed(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`nope`))
	}))
	defer srv.Close()

	_, err := trustedClient(t, srv).ListModels(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGenerationError(t *testing.T) {
	err := &GenerationError{Kind: TransportFailure, Err: errors.New("dial tcp: connection refused")}
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "transport failure: dial tcp: connection refused", err.Error())
	assert.Equal(t, "unknown failure", ErrorKind(0).String())
	assert.NotErrorIs(t, &GenerationError{Err: errors.New("x")}, ErrTransport)
}
