package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/email"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testPassword = "Corr3ct-Horse-Battery"

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type testEnv struct {
	server *Server
	app    *fiber.App
	sender *fakeSender
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret-that-is-at-least-32-chars",
		AllowedOrigins:       "http://localhost:5173",
		MediaRoot:            t.TempDir(),
		ImageMaxUploadSizeMB: 1,
		ChannelURL:           "https://example.com/channel",
	}
	sender := &fakeSender{}
	s, err := NewServerWithDeps(cfg, testutil.NewDB(t), rdb, sender)
	require.NoError(t, err)

	return &testEnv{server: s, app: s.NewApp(), sender: sender, mr: mr}
}

// user registers an account directly through the service and returns it with a session token.
func (e *testEnv) user(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u, err := e.server.userService.Register(context.Background(), service.RegisterInput{
		Username:        username,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	token, err := e.server.tokens.Issue(u.ID, u.Username)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) post(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	p, err := e.server.postService.CreatePost(context.Background(), service.PostInput{
		UserID:  author.ID,
		Title:   title,
		Content: "Body of " + title,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) doRaw(t *testing.T, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, raw
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) (*http.Response, map[string]any) {
	t.Helper()
	resp, raw := e.doRaw(t, req, token)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any, token string) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req, token)
}

func (e *testEnv) doForm(t *testing.T, path, form, token string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, token)
}

type multipartFile struct {
	field, name string
	content     []byte
}

func (e *testEnv) doMultipart(t *testing.T, method, path string, fields map[string][]string, file *multipartFile, token string) (*http.Response, map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req, token)
}
