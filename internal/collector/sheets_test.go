package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetCache_FetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/css")
		fmt.Fprint(w, ".btn{color:red}")
	}))
	defer srv.Close()

	c := NewSheetCache(time.Minute, srv.Client())
	for range 3 {
		text, err := c.Get(context.Background(), srv.URL+"/app.css")
		require.NoError(t, err)
		assert.Equal(t, ".btn{color:red}", text)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, c.Len())
}

func TestSheetCache_PutSkipsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected fetch of %s", r.URL)
	}))
	defer srv.Close()

	c := NewSheetCache(time.Minute, srv.Client())
	c.Put(srv.URL+"/app.css", ":root{--brand:#1a73e8}")
	c.Put("", "inline sheets are not cached")

	text, err := c.Get(context.Background(), srv.URL+"/app.css")
	require.NoError(t, err)
	assert.Equal(t, ":root{--brand:#1a73e8}", text)
	assert.Equal(t, 1, c.Len())
}

func TestSheetCache_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewSheetCache(time.Minute, nil)
	_, err := c.Get(context.Background(), srv.URL+"/missing.css")
	assert.ErrorContains(t, err, "status 404")
	assert.Equal(t, 0, c.Len())
}
