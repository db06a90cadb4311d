package acquisition_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sparklens/tweetgrab/internal/acquisition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Fetch_StreamsAssetToDisk(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "jpeg bytes")
	}))
	t.Cleanup(srv.Close)

	// Nested destination dirs should be created on demand
	destination := filepath.Join(t.TempDir(), "downloads", "1234", "media_1.jpg")
	fetcher := acquisition.NewAssetFetcher()
	require.NoError(t, fetcher.Fetch(context.Background(), srv.URL, destination))

	content, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(content))
}

func Test_Fetch_TruncatesExistingFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "new")
	}))
	t.Cleanup(srv.Close)

	destination := filepath.Join(t.TempDir(), "media_1.jpg")
	require.NoError(t, os.WriteFile(destination, []byte("stale content from a previous run"), 0o644))

	fetcher := acquisition.NewAssetFetcher()
	require.NoError(t, fetcher.Fetch(context.Background(), srv.URL, destination))

	content, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func Test_Fetch_RejectsNonOKResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	destination := filepath.Join(t.TempDir(), "media_1.jpg")
	err := acquisition.NewAssetFetcher().Fetch(context.Background(), srv.URL, destination)

	var downloadErr *acquisition.DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, srv.URL, downloadErr.Url)
	assert.NoFileExists(t, destination)
}

func Test_Fetch_RejectsEmptyResponseBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	destination := filepath.Join(t.TempDir(), "media_1.jpg")
	err := acquisition.NewAssetFetcher().Fetch(context.Background(), srv.URL, destination)

	var downloadErr *acquisition.DownloadError
	require.ErrorAs(t, err, &downloadErr)
}

func Test_Fetch_AbortsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	destination := filepath.Join(t.TempDir(), "media_1.jpg")
	err := acquisition.NewAssetFetcher().Fetch(ctx, srv.URL, destination)

	var downloadErr *acquisition.DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.ErrorIs(t, err, context.Canceled)
}
