package docstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://data.example.com/app/x/endpoint/data/v1", true},
		{"http://localhost:8081", true},
		{"http://127.0.0.1:9000/", true},
		{"http://data.example.com", false},
		{"ftp://data.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := CheckURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
	assert.ErrorIs(t, CheckURL("http://data.example.com"), ErrInsecureURL)
}

type seen struct {
	user, pass, path string
	body             findOneRequest
}

func fakeServer(t *testing.T, reply func(filter map[string]string) (int, string)) (*httptest.Server, *seen) {
	t.Helper()
	s := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.user, s.pass, _ = r.BasicAuth()
		s.path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&s.body))
		code, out := reply(s.body.Filter)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(out))
	}))
	t.Cleanup(srv.Close)
	return srv, s
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: url + "/", Database: "tracking", Collection: "shipments", Username: "u", Password: "p"})
	require.NoError(t, err)
	return c
}

func TestClient_ConnectAndQuery(t *testing.T) {
	srv, s := fakeServer(t, func(filter map[string]string) (int, string) {
		if filter["blNo"] == "BL1" {
			return 200, `{"document":{"id":"S1","blNo":"BL1"}}`
		}
		return 200, `{"document":null}`
	})
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.Query(ctx, "blNo", "BL1")
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.Connected())
	assert.Empty(t, s.body.Filter)
	assert.Equal(t, "/action/findOne", s.path)

	doc, err := c.Query(ctx, "blNo", "BL1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"S1","blNo":"BL1"}`, string(doc))
	assert.Equal(t, "u", s.user)
	assert.Equal(t, "p", s.pass)
	assert.Equal(t, "default", s.body.DataSource)
	assert.Equal(t, "tracking", s.body.Database)
	assert.Equal(t, "shipments", s.body.Collection)

	_, err = c.Query(ctx, "blNo", "NOPE")
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = c.Query(ctx, "shipper", "x")
	assert.ErrorIs(t, err, ErrInvalidField)

	c.Disconnect()
	_, err = c.Query(ctx, "blNo", "BL1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_UnwrappedResponse(t *testing.T) {
	srv, _ := fakeServer(t, func(map[string]string) (int, string) {
		return 200, `{"id":"S2"}`
	})
	c := newClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))
	doc, err := c.Query(context.Background(), "containerNo", "MSCU1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"S2"}`, string(doc))
}

func TestClient_ConnectFailure(t *testing.T) {
	srv, _ := fakeServer(t, func(map[string]string) (int, string) {
		return http.StatusUnauthorized, `{"error":"invalid session"}`
	})
	c := newClient(t, srv.URL)
	err := c.Connect(context.Background())
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
	assert.Equal(t, "invalid session", he.Message)
	assert.False(t, c.Connected())
}

func TestNewClient_RejectsPlainHTTP(t *testing.T) {
	_, err := NewClient(Config{URL: "http://db.example.com"})
	assert.ErrorIs(t, err, ErrInsecureURL)
}
