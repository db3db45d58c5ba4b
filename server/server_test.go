package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitorus/pdfstamp/audit"
	"github.com/digitorus/pdfstamp/integrity"
	"github.com/digitorus/pdfstamp/internal/testpdf"
	"github.com/digitorus/pdfstamp/signing"
	"github.com/digitorus/pdfstamp/storage"
)

func signature(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestServer(t *testing.T, maxBody int64) (*httptest.Server, []byte) {
	t.Helper()
	template := testpdf.Build(testpdf.Letters(1), testpdf.Options{})

	srv := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + srv.Listener.Addr().String()

	files, err := storage.NewLocal(filepath.Join(t.TempDir(), "signed_docs"), baseURL, "/signed_docs/")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	svc, err := signing.New(template, files, audit.NewMemoryStore(), signing.WithMetrics(signing.NewMetrics(reg)))
	require.NoError(t, err)

	srv.Config.Handler = New(Options{
		Service:      svc,
		Files:        files,
		Gatherer:     reg,
		MaxBodyBytes: maxBody,
	}).Routes()
	srv.Start()
	t.Cleanup(srv.Close)
	return srv, template
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

type errorBody struct {
	RequestID string `json:"request_id"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSignPDF(t *testing.T) {
	srv, template := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/sign-pdf", map[string]any{
		"pdfId":           "doc-7",
		"signatureBase64": signature(t),
		"fieldData":       map[string]any{"x": 0.1, "y": 0.1, "width": 0.3, "height": 0.1, "page": 1, "type": "Signature"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[signResponse](t, resp)
	assert.Equal(t, integrity.Hash(template), body.OriginalHash)
	assert.NotNil(t, body.Warnings)
	assert.Empty(t, body.Warnings)
	require.True(t, strings.HasPrefix(body.URL, srv.URL+"/signed_docs/signed_doc-7_"), body.URL)

	// The signed document is served and matches the final hash.
	get, err := http.Get(body.URL)
	require.NoError(t, err)
	data, err := io.ReadAll(get.Body)
	get.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, body.FinalHash, integrity.Hash(data))

	// The audit trail lists the record.
	get, err = http.Get(srv.URL + "/audit/doc-7")
	require.NoError(t, err)
	trail := decode[struct {
		DocumentID string        `json:"documentId"`
		Total      int           `json:"total"`
		Entries    []audit.Entry `json:"entries"`
	}](t, get)
	assert.Equal(t, "doc-7", trail.DocumentID)
	require.Equal(t, 1, trail.Total)
	assert.Equal(t, "guest-signer", trail.Entries[0].SignerID)
	assert.Equal(t, body.FinalHash, trail.Entries[0].FinalHash)
	assert.Equal(t, body.URL, trail.Entries[0].URL)
}

func TestSignPDF_Warnings(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/sign-pdf", map[string]any{
		"pdfId":           "doc-8",
		"signatureBase64": signature(t),
		"signerId":        "alice",
		"fieldData":       map[string]any{"x": 1.2, "y": 0.1, "width": 0.3, "height": 0.1, "page": 4, "type": "Signature"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[signResponse](t, resp)
	assert.Len(t, body.Warnings, 2)
}

func TestSignPDF_Errors(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	sig := signature(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "missing field data",
			body:   map[string]any{"pdfId": "x", "signatureBase64": sig},
			status: http.StatusBadRequest,
			code:   "INVALID_FIELD_DATA",
		},
		{
			name:   "wrong field type",
			body:   map[string]any{"pdfId": "x", "signatureBase64": sig, "fieldData": map[string]any{"width": 0.2, "height": 0.1, "type": "Initials"}},
			status: http.StatusBadRequest,
			code:   "INVALID_FIELD_DATA",
		},
		{
			name:   "invalid image",
			body:   map[string]any{"pdfId": "x", "signatureBase64": "data:image/png;base64,AAAA", "fieldData": map[string]any{"width": 0.2, "height": 0.1, "type": "Signature"}},
			status: http.StatusBadRequest,
			code:   "INVALID_IMAGE_DATA",
		},
		{
			name:   "zero height",
			body:   map[string]any{"pdfId": "x", "signatureBase64": sig, "fieldData": map[string]any{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0, "type": "Signature"}},
			status: http.StatusUnprocessableEntity,
			code:   "DEGENERATE_GEOMETRY",
		},
		{
			name:   "malformed json",
			body:   json.RawMessage(`{"pdfId": 5}`),
			status: http.StatusBadRequest,
			code:   "BAD_JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/sign-pdf", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[errorBody](t, resp)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, resp.Header.Get("X-Request-ID"), body.RequestID)
		})
	}
}

func TestSignPDF_BodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, 1024)

	resp := postJSON(t, srv.URL+"/sign-pdf", map[string]any{
		"pdfId":           "big",
		"signatureBase64": strings.Repeat("A", 4096),
		"fieldData":       map[string]any{"width": 0.2, "height": 0.1, "type": "Signature"},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "BODY_TOO_LARGE", decode[errorBody](t, resp).Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])

	// Trigger a counter so the family is exported.
	postJSON(t, srv.URL+"/sign-pdf", map[string]any{
		"signatureBase64": "AAAA",
		"fieldData":       map[string]any{"width": 0.2, "height": 0.1, "type": "Signature"},
	}).Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metrics), `pdfstamp_signing_requests_total{outcome="invalid_input"} 1`)

	resp, err = http.Get(srv.URL + "/signed_docs/missing.pdf")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	const origin = "https://app.example.com"
	srv, _ := newTestServer(t, 0)

	preflight := func(t *testing.T, url, origin string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodOptions, url, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := preflight(t, srv.URL+"/sign-pdf", origin)
	assert.Less(t, resp.StatusCode, 300)
	assert.Contains(t, []string{"*", origin}, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", origin)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, []string{"*", origin}, resp.Header.Get("Access-Control-Allow-Origin"))

	t.Run("restricted origin", func(t *testing.T) {
		restricted := httptest.NewServer(New(Options{CORSOrigin: origin}).Routes())
		t.Cleanup(restricted.Close)

		resp := preflight(t, restricted.URL+"/sign-pdf", origin)
		assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))

		resp = preflight(t, restricted.URL+"/sign-pdf", "https://evil.example.com")
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
