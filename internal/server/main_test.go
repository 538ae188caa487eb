package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"snapverse/internal/config"
	"snapverse/internal/models"
	"snapverse/internal/payment"
	"snapverse/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type errorBody = models.ErrorResponse

// mockGateway stands in for the hosted checkout.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*payment.Session)
	return session, args.Error(1)
}

// testServer is a fully wired Server on an in-memory database and a
// miniredis instance.
type testServer struct {
	t       *testing.T
	srv     *Server
	app     *fiber.App
	db      *gorm.DB
	mr      *miniredis.Miniredis
	gateway *mockGateway
}

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		Port:            "0",
		JWTSecret:       "test-secret-that-is-long-enough-for-hs256",
		JWTIssuer:       "snapverse-api",
		JWTAudience:     "snapverse-client",
		AllowedOrigins:  "http://localhost:5173",
		FeatureFlags:    "pro_subscriptions=on,user_search=on",
		StaffOverride:   true,
		UserPageSize:    10,
		FollowPageSize:  20,
		PostPageSize:    10,
		CommentPageSize: 10,
		MaxPageSize:     100,
		PaymentSandbox:  true,
		BackendURL:      "http://api.test",
		FrontendURL:     "http://frontend.test",
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	gw := &mockGateway{}
	srv, err := NewServerWithDeps(cfg, db, rdb, Deps{Gateway: gw})
	require.NoError(t, err)

	return &testServer{
		t:       t,
		srv:     srv,
		app:     srv.App(),
		db:      db,
		mr:      mr,
		gateway: gw,
	}
}

func (ts *testServer) createUser(username string, private bool) *models.User {
	return testutil.CreateUser(ts.t, ts.db, username, private)
}

func (ts *testServer) createStaff(username string) *models.User {
	return testutil.CreateStaff(ts.t, ts.db, username)
}

func (ts *testServer) createPostFor(owner *models.User, privacy models.Privacy, caption string) *models.Post {
	return testutil.CreatePost(ts.t, ts.db, owner, privacy, caption)
}

func (ts *testServer) follow(follower, followee *models.User, approved bool) *models.Follow {
	return testutil.CreateFollow(ts.t, ts.db, follower, followee, approved)
}

func (ts *testServer) token(u *models.User) string {
	ts.t.Helper()
	token, _, err := ts.srv.auth.IssueToken(u, time.Now())
	require.NoError(ts.t, err)
	return token
}

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (ts *testServer) send(req *http.Request, token string) *response {
	ts.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	return &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
}

// do sends body as JSON when it is not nil.
func (ts *testServer) do(method, path string, body any, token string) *response {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	return ts.send(req, token)
}

// form posts url-encoded values, the way the payment gateway calls back.
func (ts *testServer) form(path string, values url.Values) *response {
	ts.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return ts.send(req, "")
}

func decode[T any](t *testing.T, resp *response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body, &out), string(resp.Body))
	return out
}

func resultIDs[T any](items []T, id func(T) uint) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = id(item)
	}
	return ids
}

func postID(p models.Post) uint       { return p.ID }
func commentID(c models.Comment) uint { return c.ID }
