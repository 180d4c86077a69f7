package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/freshness/internal/catalog"
	"github.com/franckalain/freshness/internal/imaging"
	"github.com/franckalain/freshness/internal/pipeline"
)

type fixedEstimator struct {
	score float64
	err   error
}

func (f fixedEstimator) Estimate(ctx context.Context, tensor *imaging.Tensor) (float64, error) {
	return f.score, f.err
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type testServer struct {
	*Server
	uploadDir string
}

func newTestServer(t *testing.T, est fixedEstimator, opts Options) *testServer {
	t.Helper()
	if opts.UploadDir == "" {
		opts.UploadDir = t.TempDir()
	}
	p := pipeline.New(catalog.Default(), est)
	return &testServer{Server: New(p, opts), uploadDir: opts.UploadDir}
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func doPredict(t *testing.T, h http.Handler, fields map[string]string, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, filename, data)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestItems(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Items []catalog.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 8)
	assert.Equal(t, catalog.Item{Value: "apple", Label: "Apple"}, out.Items[0])
}

func TestShelfLife(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shelf-life/Banana", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "banana", body["fruit"])
	assert.Equal(t, 5.0, body["ideal"])
	assert.Equal(t, 3.0, body["room"])
	assert.Equal(t, 2.0, body["humid"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shelf-life/durian", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictSuccess(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 90}, Options{})
	date := time.Now().AddDate(0, 0, -3).Format(time.DateOnly)

	rec := doPredict(t, s.Handler(), map[string]string{"fruit": "apple", "date": date}, "apple.png", pngImage(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Apple", body["fruit"])
	assert.Equal(t, 90.0, body["initial_freshness"])
	assert.NotEmpty(t, body["request_id"])

	decay := body["decay"].(map[string]any)
	assert.Equal(t, 3.0, decay["days_passed"])
	assert.Equal(t, 73.47, decay["room_final"])
	assert.Equal(t, "FRESH", body["status"])

	// staged upload is gone
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPredictItemAlias(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 60}, Options{})
	rec := doPredict(t, s.Handler(), map[string]string{"item": "tomato"}, "t.png", pngImage(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tomato", decodeBody(t, rec)["fruit"])
}

func TestPredictErrors(t *testing.T) {
	img := pngImage(t)

	tests := []struct {
		name     string
		est      fixedEstimator
		fields   map[string]string
		filename string
		data     []byte
		status   int
	}{
		{"unsupported item", fixedEstimator{score: 50}, map[string]string{"fruit": "durian"}, "a.png", img, http.StatusBadRequest},
		{"missing item", fixedEstimator{score: 50}, nil, "a.png", img, http.StatusBadRequest},
		{"missing file", fixedEstimator{score: 50}, map[string]string{"fruit": "apple"}, "", nil, http.StatusBadRequest},
		{"bad date", fixedEstimator{score: 50}, map[string]string{"fruit": "apple", "date": "15/06/2024"}, "a.png", img, http.StatusBadRequest},
		{"bad extension", fixedEstimator{score: 50}, map[string]string{"fruit": "apple"}, "a.gif", img, http.StatusBadRequest},
		{"malformed image", fixedEstimator{score: 50}, map[string]string{"fruit": "apple"}, "a.png", []byte("not an image"), http.StatusBadRequest},
		{"estimator failure", fixedEstimator{err: errors.New("boom")}, map[string]string{"fruit": "apple"}, "a.png", img, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.est, Options{})
			rec := doPredict(t, s.Handler(), tt.fields, tt.filename, tt.data)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["error"])

			entries, err := os.ReadDir(s.uploadDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestPredictTooLarge(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{MaxUploadBytes: 1024})
	rec := doPredict(t, s.Handler(), map[string]string{"fruit": "apple"}, "a.png", bytes.Repeat([]byte{0xff}, 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPredictMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{AllowedOrigins: []string{"http://localhost:3000"}})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func dialWS(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketPredict(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 90}, Options{})
	conn := dialWS(t, s)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "predict",
		"data": map[string]string{
			"image": base64.StdEncoding.EncodeToString(pngImage(t)),
			"fruit": "apple",
		},
	}))

	var resp struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "prediction", resp.Type)
	assert.Equal(t, "Apple", resp.Data["fruit"])
	assert.Equal(t, 90.0, resp.Data["initial_freshness"])
}

func TestWebSocketItemsAndErrors(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{})
	conn := dialWS(t, s)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "items"}))
	var items struct {
		Type string         `json:"type"`
		Data []catalog.Item `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&items))
	assert.Equal(t, "items", items.Type)
	assert.Len(t, items.Data, 8)

	var errMsg map[string]any
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "error", errMsg["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "predict",
		"data": map[string]string{"image": "!!!", "fruit": "apple"},
	}))
	errMsg = nil
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "error", errMsg["type"])
	assert.Equal(t, "Invalid image data", errMsg["message"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "predict",
		"data": map[string]string{
			"image": base64.StdEncoding.EncodeToString(pngImage(t)),
			"fruit": "durian",
		},
	}))
	errMsg = nil
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "error", errMsg["type"])
	assert.Contains(t, errMsg["message"], "unsupported item")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	errMsg = nil
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "Unknown message type", errMsg["message"])
}

func TestStartShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, fixedEstimator{score: 50}, Options{ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
