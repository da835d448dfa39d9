package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/catalog"
	"github.com/JonMunkholm/bomquote/internal/config"
	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/metrics"
)

// sampleBOM yields row 2 matched with high confidence, row 3 unmatched
// and row 4 dropped for a non-numeric quantity.
const sampleBOM = "family,grade,dimensions,quantity,unit,length_m,finish\n" +
	"profiles,S235JR,96x100x5x8,6,m,6,raw\n" +
	"widgets,,10x10,3,pcs,,\n" +
	"profiles,S235JR,96x100x5x8,abc,m,,\n"

func dim(v float64) *float64 { return bom.Float(v) }

var testProducts = catalog.Static{
	{ID: "HEA-100", Family: bom.FamilyProfiles, Grade: "S235JR", Dimensions: bom.Dimensions{
		bom.DimHeight: dim(96), bom.DimWidth: dim(100), bom.DimWebThickness: dim(5), bom.DimFlangeThickness: dim(8),
	}},
	{ID: "HEA-120", Family: bom.FamilyProfiles, Grade: "S235JR", Dimensions: bom.Dimensions{
		bom.DimHeight: dim(114), bom.DimWidth: dim(120), bom.DimWebThickness: dim(5), bom.DimFlangeThickness: dim(8),
	}},
	{ID: "PL-2", Family: bom.FamilyPlates, Grade: "S235JR", Dimensions: bom.Dimensions{
		bom.DimThickness: dim(2), bom.DimWidthMm: dim(1000), bom.DimLengthMm: dim(2000),
	}},
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 10 * time.Second},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Security: config.SecurityConfig{EnableCSP: true},
		Rate:     config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, UploadLimit: 10},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts core.Options) *Server {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	cache := catalog.NewCache(testProducts, catalog.CacheOptions{})
	svc := core.NewService(bom.NewEngine(bom.DefaultPolicy(), nil), cache, m, opts)
	srv := NewServer(svc, cfg, m)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

// multipartBody builds an upload form with one file part.
func multipartBody(t *testing.T, fileName, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, srv *Server, fileName, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fileName, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/api/bom/upload", body)
	req.Header.Set("Content-Type", ct)
	return do(t, srv, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func uploadSample(t *testing.T, srv *Server) string {
	t.Helper()
	rec := upload(t, srv, "bom.csv", "application/octet-stream", sampleBOM)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.NotEmpty(t, got.SessionID)
	return got.SessionID
}

// =============================================================================
// Upload
// =============================================================================

func TestUpload(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())

	rec := upload(t, srv, "bom.csv", "text/csv", sampleBOM)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[struct {
		SessionID string `json:"sessionId"`
		ExpiresAt string `json:"expiresAt"`
		Result    struct {
			FileName    string   `json:"fileName"`
			TotalRows   int      `json:"totalRows"`
			ParseErrors []string `json:"parseErrors"`
			Rows        []struct {
				RowIndex   int    `json:"rowIndex"`
				Confidence string `json:"confidence"`
				ProductID  string `json:"matchedProductId"`
			} `json:"rows"`
		} `json:"result"`
	}](t, rec)

	assert.NotEmpty(t, got.SessionID)
	assert.NotEmpty(t, got.ExpiresAt)
	assert.Equal(t, "bom.csv", got.Result.FileName)
	assert.Equal(t, 3, got.Result.TotalRows)
	assert.Len(t, got.Result.ParseErrors, 1)
	require.Len(t, got.Result.Rows, 2)
	assert.Equal(t, 2, got.Result.Rows[0].RowIndex)
	assert.Equal(t, "high", got.Result.Rows[0].Confidence)
	assert.Equal(t, "HEA-100", got.Result.Rows[0].ProductID)
	assert.Equal(t, "none", got.Result.Rows[1].Confidence)
}

func TestUpload_Errors(t *testing.T) {
	opts := core.DefaultOptions()
	opts.MaxFileSize = 512
	srv := newTestServer(t, testConfig(), opts)

	tests := []struct {
		name        string
		fileName    string
		contentType string
		content     string
		status      int
		code        string
	}{
		{"unsupported type", "drawing.pdf", "application/pdf", "%PDF-1.4", http.StatusUnsupportedMediaType, "FILE002"},
		{"empty file", "bom.csv", "text/csv", "", http.StatusBadRequest, "FILE003"},
		{"too large", "bom.csv", "text/csv", sampleBOM + strings.Repeat("profiles,S235JR,96x100x5x8,1,m,,\n", 20), http.StatusRequestEntityTooLarge, "FILE001"},
		{"legacy workbook", "bom.xls", "application/vnd.ms-excel", "\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1" + strings.Repeat("\x00", 512-8-1), http.StatusUnsupportedMediaType, "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, srv, tt.fileName, tt.contentType, tt.content)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestUpload_NoFile(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/bom/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(t, srv, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decode[ErrorResponse](t, rec).Code)
}

func TestUpload_NotMultipart(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())

	req := httptest.NewRequest(http.MethodPost, "/api/bom/upload", strings.NewReader(sampleBOM))
	req.Header.Set("Content-Type", "text/csv")
	rec := do(t, srv, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

// =============================================================================
// Review
// =============================================================================

func TestReviewFlow(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	id := uploadSample(t, srv)
	base := "/api/bom/" + id

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, base+"/rows/2/accept", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr := decode[transitionResponse](t, rec)
	assert.Equal(t, transitionResponse{Row: 2, Action: "accept", From: string(bom.StateAutoHigh), To: string(bom.StateAutoHigh)}, tr)

	req := httptest.NewRequest(http.MethodPost, base+"/rows/3/map", strings.NewReader(`{"productId":"PL-2"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr = decode[transitionResponse](t, rec)
	assert.Equal(t, "map", tr.Action)
	assert.Equal(t, string(bom.StateManualMapped), tr.To)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	export := decode[struct {
		SessionID string         `json:"sessionId"`
		Items     []bom.CartItem `json:"items"`
	}](t, rec)
	assert.Equal(t, id, export.SessionID)
	require.Len(t, export.Items, 2)
	assert.Equal(t, "HEA-100", export.Items[0].ProductID)
	assert.Equal(t, "PL-2", export.Items[1].ProductID)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, base+"/rows/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delete", decode[transitionResponse](t, rec).Action)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[bom.Stats](t, rec)
	assert.Equal(t, 1, stats.Tiers.High)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 1, stats.ParseErrors)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES001", decode[ErrorResponse](t, rec).Code)
}

func TestRowErrors(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	id := uploadSample(t, srv)
	base := "/api/bom/" + id

	do(t, srv, httptest.NewRequest(http.MethodDelete, base+"/rows/2", nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"dropped row", http.MethodPost, base + "/rows/4/accept", "", http.StatusNotFound, "ROW001"},
		{"bad row index", http.MethodPost, base + "/rows/x/accept", "", http.StatusNotFound, "ROW001"},
		{"deleted row", http.MethodPost, base + "/rows/2/accept", "", http.StatusConflict, "ROW002"},
		{"accept unmatched", http.MethodPost, base + "/rows/3/accept", "", http.StatusConflict, "ROW003"},
		{"empty product", http.MethodPost, base + "/rows/3/map", `{"productId":"  "}`, http.StatusBadRequest, "ROW005"},
		{"unknown product", http.MethodPost, base + "/rows/3/map", `{"productId":"NOPE"}`, http.StatusUnprocessableEntity, "CAT002"},
		{"malformed body", http.MethodPost, base + "/rows/3/map", `{"productId":`, http.StatusBadRequest, "REQ001"},
		{"unknown session", http.MethodPost, "/api/bom/not-a-session/rows/2/accept", "", http.StatusNotFound, "SES001"},
		{"suggestions for deleted row", http.MethodGet, base + "/rows/2/suggestions", "", http.StatusConflict, "ROW002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rec := do(t, srv, httptest.NewRequest(tt.method, tt.path, body))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestRejectAfterMap(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	base := "/api/bom/" + uploadSample(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, base+"/rows/2/map", strings.NewReader(`{"productId":"HEA-120"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/rows/2/reject", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ROW004", decode[ErrorResponse](t, rec).Code)
}

func TestAcceptAll(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	base := "/api/bom/" + uploadSample(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, base+"/accept-all", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[struct {
		Min         string               `json:"min"`
		Accepted    int                  `json:"accepted"`
		Transitions []transitionResponse `json:"transitions"`
	}](t, rec)
	assert.Equal(t, "high", got.Min)
	assert.Equal(t, 1, got.Accepted)
	require.Len(t, got.Transitions, 1)
	assert.Equal(t, 2, got.Transitions[0].Row)

	// Already accepted rows are not counted twice
	rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/accept-all?min=low", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[struct {
		Accepted int `json:"accepted"`
	}](t, rec).Accepted)

	for _, floor := range []string{"none", "best"} {
		rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/accept-all?min="+floor, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, floor)
		assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
	}
}

func TestSuggestions(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	base := "/api/bom/" + uploadSample(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base+"/rows/2/suggestions?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[struct {
		Row         int              `json:"row"`
		Suggestions []bom.Suggestion `json:"suggestions"`
	}](t, rec)
	assert.Equal(t, 2, got.Row)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "HEA-100", got.Suggestions[0].Product.ID)

	// Unknown family: an empty list, not null
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/rows/3/suggestions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suggestions":[]`)
}

// =============================================================================
// Fragments, templates and infrastructure
// =============================================================================

func TestStats_HTMXFragment(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	id := uploadSample(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/bom/"+id+"/stats", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(t, srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="stats-`+id+`"`)
	assert.Contains(t, rec.Body.String(), "High confidence: <span>1</span>")
}

func TestError_HTMXFragment(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())

	req := httptest.NewRequest(http.MethodGet, "/api/bom/00000000-0000-0000-0000-000000000000/stats", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(t, srv, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-code="SES001"`)
}

func TestDownloadTemplate(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/bom/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bom.MimeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bom-template.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), bom.ColFamily))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/bom/template?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bom.MimeXLSX, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/bom/template?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())
	uploadSample(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bomquote_uploads_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "bomquote_sessions_active 1")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	srv := newTestServer(t, cfg, core.DefaultOptions())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, testConfig(), core.DefaultOptions())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	cfg := testConfig()
	cfg.Security.EnableCSP = false
	srv = newTestServer(t, cfg, core.DefaultOptions())
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1", "k2"}
	srv := newTestServer(t, cfg, core.DefaultOptions())

	req := httptest.NewRequest(http.MethodGet, "/api/bom/template", nil)
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/bom/template", nil)
	req.Header.Set("X-API-Key", "nope")
	assert.Equal(t, http.StatusForbidden, do(t, srv, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/bom/template", nil)
	req.Header.Set("X-API-Key", "k2")
	assert.Equal(t, http.StatusOK, do(t, srv, req).Code)

	// Health checks stay open
	assert.Equal(t, http.StatusOK, do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	srv := newTestServer(t, cfg, core.DefaultOptions())

	for i := 0; i < 2; i++ {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/bom/template", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestRateLimiter_Window(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "limits are per client")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{bom.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{bom.ErrLegacyWorkbook, http.StatusUnsupportedMediaType},
		{core.ErrSessionNotFound, http.StatusNotFound},
		{bom.ErrInvalidTransition, http.StatusConflict},
		{core.ErrUnknownProduct, http.StatusUnprocessableEntity},
		{core.ErrTooManyUploads, http.StatusServiceUnavailable},
		{catalog.ErrUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestMimeFor(t *testing.T) {
	tests := []struct {
		fileName string
		declared string
		want     string
	}{
		{"bom.csv", "text/csv; charset=utf-8", "text/csv; charset=utf-8"},
		{"bom.csv", "application/octet-stream", bom.MimeCSV},
		{"BOM.XLSX", "", bom.MimeXLSX},
		{"old.xls", "application/octet-stream", bom.MimeXLS},
		{"drawing.pdf", "application/octet-stream", "application/octet-stream"},
	}

	for _, tt := range tests {
		fh := &multipart.FileHeader{Filename: tt.fileName, Header: textproto.MIMEHeader{}}
		if tt.declared != "" {
			fh.Header.Set("Content-Type", tt.declared)
		}
		assert.Equal(t, tt.want, mimeFor(fh), tt.fileName)
	}
}
