package acquisition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sparklens/tweetgrab/pkg/logger"
)

var fetcherLog = logger.Get("AssetFetcher")

type (
	// DownloadError indicates a single asset could not be materialized on
	// disk; the URL identifies which. Non-fatal to an overall acquisition.
	DownloadError struct {
		Url   string
		cause error
	}

	// assetFetcher streams remote assets to local paths. Destination files
	// are truncated if they already exist, making repeat fetches of the
	// same path idempotent rather than additive.
	assetFetcher struct {
		httpClient *http.Client
	}
)

func (err *DownloadError) Error() string {
	return fmt.Sprintf("media download failed for URL %s: %s", err.Url, err.cause.Error())
}

func (err *DownloadError) Unwrap() error { return err.cause }

func NewAssetFetcher() *assetFetcher {
	return &assetFetcher{httpClient: &http.Client{Timeout: time.Minute * 5}}
}

// Fetch streams the remote bytes at the given URL to the destination path,
// creating parent directories as needed. The write is verified; a missing or
// empty file after the stream completes is reported as a failure.
func (fetcher *assetFetcher) Fetch(ctx context.Context, url string, destinationPath string) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), os.ModeDir|os.ModePerm); err != nil {
		return &DownloadError{Url: url, cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{Url: url, cause: err}
	}

	resp, err := fetcher.httpClient.Do(req)
	if err != nil {
		return &DownloadError{Url: url, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DownloadError{Url: url, cause: fmt.Errorf("unexpected response status %s", resp.Status)}
	}

	file, err := os.Create(destinationPath)
	if err != nil {
		return &DownloadError{Url: url, cause: err}
	}

	_, copyErr := io.Copy(file, resp.Body)
	if closeErr := file.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return &DownloadError{Url: url, cause: copyErr}
	}

	info, err := os.Stat(destinationPath)
	if err != nil {
		return &DownloadError{Url: url, cause: err}
	} else if info.Size() == 0 {
		return &DownloadError{Url: url, cause: fmt.Errorf("downloaded file %s is empty", destinationPath)}
	}

	fetcherLog.Debugf("Downloaded %s to %s (%d bytes)\n", url, destinationPath, info.Size())
	return nil
}
