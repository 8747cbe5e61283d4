package graph

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/content-graph-service/internal/auth"
	"github.com/UkralStul/content-graph-service/internal/dataloader"
	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/metrics"
	"github.com/UkralStul/content-graph-service/internal/pubsub"
	"github.com/UkralStul/content-graph-service/internal/storage/postgres"
)

const (
	userIdo     = "u1"
	userTsahi   = "u2"
	userNimrod  = "u3"
	testSecret  = "test-secret"
	testIssuer  = "content-graph-test"
	testTimeout = 2 * time.Second
)

type testServer struct {
	t        *testing.T
	store    *postgres.Store
	bus      *pubsub.Memory
	issuer   *auth.Issuer
	resolver *Resolver
	server   *httptest.Server
}

// newSQLiteStore opens the gorm store on a private in-memory database. One
// connection keeps every query on the same database.
func newSQLiteStore(t *testing.T) *postgres.Store {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := postgres.Open(sqlite.New(sqlite.Config{Conn: sqlDB}), logger.Discard)
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := newSQLiteStore(t)
	bus := pubsub.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := auth.NewIssuer(testSecret, testIssuer)

	resolver := &Resolver{
		Storage:   store,
		Publisher: bus,
		Observer:  NewNotificationObserver(),
		Logger:    log,
	}
	schema, err := NewSchema(resolver)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(auth.Middleware(issuer, log))
	router.Handle("/query", dataloader.Middleware(store, NewHandler(schema, metrics.New(), log)))
	router.Handle("/notifications/live", resolver.LiveHandler(websocket.Upgrader{}))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ts := &testServer{t: t, store: store, bus: bus, issuer: issuer, resolver: resolver, server: server}
	ts.seed()
	return ts
}

func (ts *testServer) seed() {
	ctx := context.Background()
	for _, u := range []*domain.User{
		{ID: userIdo, Name: "Ido", Username: ptr("idoshamun"), Image: "https://daily.dev/ido.jpg"},
		{ID: userTsahi, Name: "Tsahi", Username: ptr("tsahidaily"), Image: "https://daily.dev/tsahi.jpg"},
		{ID: userNimrod, Name: "Nimrod", Username: ptr("nimroddaily"), Image: "https://daily.dev/nimrod.jpg"},
	} {
		_, err := ts.store.CreateUser(ctx, u)
		require.NoError(ts.t, err)
	}

	_, err := ts.store.CreateSource(ctx, &domain.Source{ID: "a", Name: "A", Handle: "a", Image: "https://a.com"})
	require.NoError(ts.t, err)
	_, err = ts.store.CreateSource(ctx, &domain.Source{ID: "b", Name: "B", Handle: "b", Image: "https://b.com", Private: true})
	require.NoError(ts.t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []*domain.Post{
		{ID: "p1", Title: "P1", URL: "http://p1.com", SourceID: "a"},
		{ID: "p2", Title: "P2", URL: "http://p2.com", SourceID: "b"},
		{ID: "p3", Title: "P3", URL: "http://p3.com", SourceID: "a"},
	} {
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := ts.store.CreatePost(ctx, p)
		require.NoError(ts.t, err)
	}
}

func (ts *testServer) token(userID string, roles ...string) string {
	ts.t.Helper()
	token, err := ts.issuer.Sign(userID, roles, time.Hour)
	require.NoError(ts.t, err)
	return token
}

func (ts *testServer) moderator() string {
	return ts.token(userIdo, auth.RoleModerator)
}

type gqlError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// query posts a GraphQL request, authenticated when token is not empty.
func (ts *testServer) query(token, query string, variables map[string]interface{}) *gqlResponse {
	ts.t.Helper()

	body, err := json.Marshal(Request{Query: query, Variables: variables})
	require.NoError(ts.t, err)
	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/query", bytes.NewReader(body))
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer res.Body.Close()

	var out gqlResponse
	require.NoError(ts.t, json.NewDecoder(res.Body).Decode(&out))
	return &out
}

// mustQuery fails the test when the response carries errors and decodes
// data into v.
func (ts *testServer) mustQuery(token, query string, variables map[string]interface{}, v interface{}) {
	ts.t.Helper()
	res := ts.query(token, query, variables)
	require.Empty(ts.t, res.Errors)
	if v != nil {
		require.NoError(ts.t, json.Unmarshal(res.Data, v))
	}
}

// errorCode returns extensions.code of the first error.
func (r *gqlResponse) errorCode() string {
	if len(r.Errors) == 0 {
		return ""
	}
	code, _ := r.Errors[0].Extensions["code"].(string)
	return code
}

func ptr(s string) *string { return &s }
