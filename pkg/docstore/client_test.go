package docstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountByProjectIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/count", r.URL.Path)
		assert.Equal(t, "1,2,3", r.URL.Query().Get("project_ids"))
		assert.Equal(t, "Bearer docs-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"count": 7}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("docs-key", WithBaseURL(srv.URL))

	count, err := c.CountByProjectIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestCountByProjectIDs_EmptySkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient("docs-key", WithBaseURL(srv.URL))

	count, err := c.CountByProjectIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int32(0), calls.Load(), "no projects means no request")
}

func TestCountByProjectIDs_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("docs-key", WithBaseURL(srv.URL))

	_, err := c.CountByProjectIDs(context.Background(), []int64{1})
	assert.Error(t, err)
}

func TestCountByProjectIDs_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("docs-key", WithBaseURL(srv.URL))

	_, err := c.CountByProjectIDs(context.Background(), []int64{1})
	assert.Error(t, err)
}
