package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GFB-Team3/backend/internal/blob"
	"github.com/GFB-Team3/backend/internal/contracts"
	"github.com/GFB-Team3/backend/internal/logging"
	"github.com/GFB-Team3/backend/internal/monitoring"
	"github.com/GFB-Team3/backend/internal/services"
	"github.com/GFB-Team3/backend/internal/store/memory"
)

const testMonitoringKey = "monitor-secret"

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type testServer struct {
	router     *gin.Engine
	handler    *Handler
	store      *memory.Store
	metrics    *monitoring.Metrics
	uploadsDir string
}

func newTestServer(t *testing.T, configure ...func(*Options)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	uploadsDir := t.TempDir()
	blobs, err := blob.NewLocalStore(uploadsDir, "/src")
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	opts := Options{
		Users:              services.NewUserService(st),
		Pins:               services.NewPinService(st, blobs, services.WithLogger(logging.Discard())),
		Store:              st,
		Monitoring:         monitoring.NewService(time.Now(), st, nil, metrics, uploadsDir),
		Metrics:            metrics,
		UploadsDir:         uploadsDir,
		UploadsPrefix:      "/src",
		MaxUploadBytes:     1 << 20,
		MaxParallelUploads: 2,
		MonitoringKey:      testMonitoringKey,
		Log:                logging.Discard(),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	h := New(opts)
	router := gin.New()
	h.Register(router)

	return &testServer{router: router, handler: h, store: st, metrics: metrics, uploadsDir: uploadsDir}
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(req)
}

type formFile struct {
	name string
	data []byte
}

func (s *testServer) doMultipart(t *testing.T, method, path string, fields map[string]string, file *formFile) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if file != nil {
		part, err := writer.CreateFormFile("image", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.serve(req)
}

func (s *testServer) signUp(t *testing.T, email, username string) contracts.UserResponse {
	t.Helper()
	resp := s.doJSON(t, http.MethodPost, "/api/users/signup", map[string]string{
		"email":    email,
		"username": username,
		"password": "secret",
	})
	mustStatus(t, resp.Code, http.StatusCreated)
	return decode[contracts.UserResponse](t, resp)
}

func (s *testServer) createPin(t *testing.T, userID int, title string) contracts.PinResponse {
	t.Helper()
	resp := s.doMultipart(t, http.MethodPost, "/api/pins", map[string]string{
		"user_id": strconv.Itoa(userID),
		"title":   title,
	}, nil)
	mustStatus(t, resp.Code, http.StatusCreated)
	return decode[contracts.PinResponse](t, resp)
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func mustStatus(t *testing.T, actual int, expected int) {
	t.Helper()
	if actual != expected {
		t.Fatalf("expected status %d, got %d", expected, actual)
	}
}

func expectError(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) contracts.ErrorResponse {
	t.Helper()
	mustStatus(t, resp.Code, status)
	out := decode[contracts.ErrorResponse](t, resp)
	require.Equal(t, code, out.Code, out.Error)
	return out
}

func httptestRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
