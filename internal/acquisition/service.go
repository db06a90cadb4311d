package acquisition

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sparklens/tweetgrab/internal/http/twitter"
	"github.com/sparklens/tweetgrab/internal/tweet"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

const (
	downloadsDirName     = "downloads"
	profileImageFilename = "profile_image.jpg"
)

var (
	// ErrInvalidSourceURL indicates the supplied URL carries no
	// recognizable tweet ID. Raised before any network call is made.
	ErrInvalidSourceURL = errors.New("invalid twitter URL: tweet ID not found")

	tweetIDPattern = regexp.MustCompile(`/status/(\d+)`)

	log = logger.Get("Acquisition")
)

type (
	Resolver interface {
		Resolve(ctx context.Context, tweetID string) (*twitter.TweetDetails, error)
	}

	Fetcher interface {
		Fetch(ctx context.Context, url string, destinationPath string) error
	}

	DataStore interface {
		SaveTweet(tweet *tweet.Tweet) error
	}

	Config struct {
		// StorageRootPath is the directory under which the 'downloads' tree
		// lives. Paths recorded against an acquisition are relative to this
		// root so the stored records stay portable across hosts.
		StorageRootPath string `yaml:"storage_root" env:"STORAGE_ROOT" env-default:"."`
		DownloadThreads int    `yaml:"download_threads" env:"DOWNLOAD_THREADS" env-default:"4"`
	}

	// Request describes one acquisition: the source tweet URL, an optional
	// title which takes precedence over the tweets own text, the hashtags
	// to record, and the category the record belongs to. The category is
	// expected to have been validated by the caller.
	Request struct {
		TwitterUrl string
		Title      string
		Hashtags   []string
		CategoryID uuid.UUID
	}

	// mediaOutcome captures the per-item result of the media fan-out. Each
	// item is tagged with its source index so completion order cannot
	// disturb the output ordering.
	mediaOutcome struct {
		sourceIndex  int
		relativePath string
		err          error
	}

	service struct {
		config   Config
		resolver Resolver
		fetcher  Fetcher
		store    DataStore
	}
)

func New(config Config, resolver Resolver, fetcher Fetcher, store DataStore) (*service, error) {
	if config.DownloadThreads < 1 {
		return nil, fmt.Errorf("acquisition service requires a positive download thread count, got %d", config.DownloadThreads)
	}

	return &service{config: config, resolver: resolver, fetcher: fetcher, store: store}, nil
}

// ExtractTweetID pulls the tweet ID out of a tweet status URL. URLs with no
// recognizable ID fail with ErrInvalidSourceURL.
func ExtractTweetID(twitterUrl string) (string, error) {
	match := tweetIDPattern.FindStringSubmatch(twitterUrl)
	if match == nil {
		return "", ErrInvalidSourceURL
	}

	return match[1], nil
}

// AcquireTweetMedia performs one end-to-end acquisition: resolve the tweet,
// fetch the authors profile image (best-effort), fetch every attached media
// item (best-effort, order preserving), then persist and return the
// assembled record.
//
// Resolution failures abort the acquisition. Per-asset failures never do;
// the affected item is logged and omitted from the result.
func (service *service) AcquireTweetMedia(ctx context.Context, request Request) (*tweet.Tweet, error) {
	tweetID, err := ExtractTweetID(request.TwitterUrl)
	if err != nil {
		return nil, err
	}

	log.Emit(logger.NEW, "Beginning acquisition of tweet %s\n", tweetID)
	details, err := service.resolver.Resolve(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	profileImagePath := service.fetchProfileImage(ctx, details)
	mediaPaths := service.fetchMediaItems(ctx, details)

	username := details.AuthorUsername
	if username == "" {
		username = "unknown"
	}

	title := request.Title
	if title == "" {
		title = details.Text
	}

	hashtags := request.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}

	record := &tweet.Tweet{Hashtags: hashtags, MediaPaths: mediaPaths}
	record.ID = uuid.New()
	record.TweetID = details.TweetID
	record.Username = username
	record.Title = title
	record.ProfileImagePath = profileImagePath
	record.CategoryID = request.CategoryID
	record.CreatedAt = time.Now()

	if err := service.store.SaveTweet(record); err != nil {
		return nil, err
	}

	log.Emit(logger.SUCCESS, "Acquisition of tweet %s complete (%d/%d media items)\n", tweetID, len(mediaPaths), len(details.Media))
	return record, nil
}

// fetchProfileImage downloads the tweet authors profile image. This step is
// best-effort: any failure is logged and reported as an absent path.
func (service *service) fetchProfileImage(ctx context.Context, details *twitter.TweetDetails) *string {
	if details.AuthorProfileImageUrl == "" {
		return nil
	}

	relativePath := path.Join(downloadsDirName, details.TweetID, profileImageFilename)
	if err := service.fetcher.Fetch(ctx, details.AuthorProfileImageUrl, service.absolutePath(relativePath)); err != nil {
		log.Warnf("Failed to download profile image for tweet %s: %s\n", details.TweetID, err.Error())
		return nil
	}

	return &relativePath
}

// fetchMediaItems runs the media fan-out with bounded concurrency. Failure
// domains are independent: each item produces its own outcome, and outcomes
// are reduced back in to a path sequence ordered by source index with the
// failed items omitted. A failed item therefore leaves a numbering gap on
// disk but does not renumber subsequent items.
func (service *service) fetchMediaItems(ctx context.Context, details *twitter.TweetDetails) []string {
	outcomes := make([]mediaOutcome, len(details.Media))
	semaphore := make(chan struct{}, service.config.DownloadThreads)
	wg := &sync.WaitGroup{}

	for i, media := range details.Media {
		wg.Add(1)
		go func(sourceIndex int, media twitter.Media) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			outcomes[sourceIndex] = service.fetchMediaItem(ctx, details.TweetID, sourceIndex, media)
		}(i, media)
	}
	wg.Wait()

	mediaPaths := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.err != nil {
			log.Warnf("Skipping media item %d of tweet %s: %s\n", outcome.sourceIndex+1, details.TweetID, outcome.err.Error())
			continue
		}

		mediaPaths = append(mediaPaths, outcome.relativePath)
	}

	return mediaPaths
}

func (service *service) fetchMediaItem(ctx context.Context, tweetID string, sourceIndex int, media twitter.Media) mediaOutcome {
	asset, err := SelectAsset(media)
	if err != nil {
		return mediaOutcome{sourceIndex: sourceIndex, err: err}
	}

	relativePath := path.Join(downloadsDirName, tweetID, fmt.Sprintf("media_%d%s", sourceIndex+1, asset.Extension))
	if err := service.fetcher.Fetch(ctx, asset.Url, service.absolutePath(relativePath)); err != nil {
		return mediaOutcome{sourceIndex: sourceIndex, err: err}
	}

	return mediaOutcome{sourceIndex: sourceIndex, relativePath: relativePath}
}

func (service *service) absolutePath(relativePath string) string {
	return filepath.Join(service.config.StorageRootPath, filepath.FromSlash(relativePath))
}
