package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timesheet/internal/app/server"
	"timesheet/internal/domain/auth"
	"timesheet/internal/platform/config"
	"timesheet/internal/platform/db"
)

const (
	testSecret = "test-secret"

	seedProjectID = "00000000-0000-4000-8000-000000000101"
	seedTaskID    = "00000000-0000-4000-8000-000000000201"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type response struct {
	status int
	header http.Header
	raw    []byte
	env    envelope
}

func (r response) decode(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.env.Data, out), string(r.raw))
}

type testServer struct {
	url           string
	client        *http.Client
	tokens        map[auth.Role]string
	attachmentDir string
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Environment:          "test",
		StorageDriver:        "memory",
		RunSeed:              true,
		JWTSecret:            testSecret,
		DataEncryptionKey:    "0123456789abcdef0123456789abcdef",
		AttachmentDir:        t.TempDir(),
		MaxBodyBytes:         10 << 20,
		RateLimitPerMinute:   1000,
		EmailFrom:            "no-reply@test.local",
		NotifyTransport:      "inline",
		WorkerConcurrency:    1,
		MetricsEnabled:       true,
		StandardWorkdayHours: 8,
		DefaultLocation:      "location_a",
		ShutdownTimeout:      time.Second,
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	app, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)

	srv := &testServer{url: ts.URL, client: ts.Client(), tokens: map[auth.Role]string{}, attachmentDir: cfg.AttachmentDir}
	for role, id := range map[auth.Role]string{
		auth.RoleHR:         db.SeedHRID,
		auth.RoleManager:    db.SeedHODID,
		auth.RoleFinance:    db.SeedFinanceID,
		auth.RoleManagement: db.SeedManagementID,
		auth.RoleEmployee:   db.SeedEmployeeID,
		auth.RoleITAdmin:    db.SeedITAdminID,
	} {
		token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: id, Role: role}, time.Hour)
		require.NoError(t, err)
		srv.tokens[role] = token
	}
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, role auth.Role, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, role)
}

func (s *testServer) send(t *testing.T, req *http.Request, role auth.Role) response {
	t.Helper()
	if token := s.tokens[role]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &out.env), string(raw))
	}
	return out
}

// expect fails the test unless resp carries the wanted status.
func expect(t *testing.T, resp response, want int) response {
	t.Helper()
	require.Equal(t, want, resp.status, string(resp.raw))
	return resp
}

func (s *testServer) upload(t *testing.T, role auth.Role, fileName string, content []byte) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("documents", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.url+"/api/v1/attachments", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp := expect(t, s.send(t, req, role), http.StatusCreated)
	var stored []struct {
		ID string `json:"id"`
	}
	resp.decode(t, &stored)
	require.Len(t, stored, 1)
	return stored[0].ID
}

var pdfProof = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func fieldErrors(t *testing.T, resp response) []string {
	t.Helper()
	require.NotNil(t, resp.env.Error, string(resp.raw))
	require.Equal(t, "validation_error", resp.env.Error.Code)
	items, ok := resp.env.Error.Details["fields"].([]any)
	require.True(t, ok, "expected details.fields in %s", string(resp.raw))
	var fields []string
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			if name, _ := entry["field"].(string); name != "" {
				fields = append(fields, name)
			}
		}
	}
	return fields
}
