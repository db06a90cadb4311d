package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sparklens/tweetgrab/pkg/logger"
)

const (
	twitterBaseUrl = "https://api.twitter.com/2"

	tweetLookupExpansions  = "author_id,attachments.media_keys"
	tweetLookupMediaFields = "url,preview_image_url,type,variants"
	tweetLookupUserFields  = "profile_image_url,username"
	tweetLookupTweetFields = "entities,text"
)

var (
	// ErrTweetNotFound indicates the upstream reported the tweet as
	// missing; typically it has been deleted or belongs to a private account.
	ErrTweetNotFound = errors.New("tweet not found; it may have been deleted or is private")

	log = logger.Get("TweetResolver")
)

type (
	Config struct {
		BearerTokens []string `yaml:"bearer_tokens" env:"TWITTER_BEARER_TOKENS" env-separator:"," env-required:"true"`
		BaseUrl      string   `yaml:"base_url" env:"TWITTER_API_BASE_URL"`
	}

	MediaKind int

	// Variant is one concrete encoded representation of a media item (one
	// bitrate/container combination for a video, for example).
	Variant struct {
		Bitrate     int    `json:"bit_rate"`
		ContentType string `json:"content_type"`
		Url         string `json:"url"`
	}

	// Media describes one media item attached to a tweet. Photos carry a
	// direct Url; videos and animated GIFs instead carry an ordered set
	// of variants.
	Media struct {
		Kind     MediaKind
		Url      string
		Variants []Variant
	}

	// TweetDetails is the normalized result of a tweet lookup; ordering of
	// the Media slice matches the ordering reported by the upstream API.
	TweetDetails struct {
		TweetID               string
		Text                  string
		AuthorUsername        string
		AuthorProfileImageUrl string
		Media                 []Media
	}

	// resolver performs tweet metadata lookups against the Twitter v2 API
	// through a credential pool which transparently handles rate limiting.
	resolver struct {
		pool    *CredentialPool
		baseUrl string
	}
)

const (
	UNKNOWN_MEDIA MediaKind = iota
	PHOTO
	VIDEO
	ANIMATED_GIF
)

func (kind MediaKind) String() string {
	switch kind {
	case PHOTO:
		return "photo"
	case VIDEO:
		return "video"
	case ANIMATED_GIF:
		return "animated_gif"
	}

	return "unknown"
}

// mediaKindFromTag maps the upstream string discriminant on to the closed
// MediaKind type. Tags this service does not understand map to UNKNOWN_MEDIA,
// which variant selection rejects per-item.
func mediaKindFromTag(tag string) MediaKind {
	switch tag {
	case "photo":
		return PHOTO
	case "video":
		return VIDEO
	case "animated_gif":
		return ANIMATED_GIF
	}

	return UNKNOWN_MEDIA
}

func NewResolver(config Config) (*resolver, error) {
	pool, err := NewCredentialPool(config.BearerTokens)
	if err != nil {
		return nil, err
	}

	baseUrl := config.BaseUrl
	if baseUrl == "" {
		baseUrl = twitterBaseUrl
	}

	return &resolver{pool: pool, baseUrl: baseUrl}, nil
}

// Pool exposes the resolvers credential pool; useful for observing the
// pool size when reporting credential exhaustion.
func (resolver *resolver) Pool() *CredentialPool {
	return resolver.pool
}

// Resolve issues a single metadata lookup for the given tweet ID, requesting
// author and media expansions. Rate limited responses are handled by the
// credential pool; all remaining failures map on to ErrTweetNotFound,
// ErrCredentialsExhausted or UpstreamError.
func (resolver *resolver) Resolve(ctx context.Context, tweetID string) (*TweetDetails, error) {
	params := url.Values{}
	params.Set("expansions", tweetLookupExpansions)
	params.Set("media.fields", tweetLookupMediaFields)
	params.Set("user.fields", tweetLookupUserFields)
	params.Set("tweet.fields", tweetLookupTweetFields)
	path := fmt.Sprintf("%s/tweets/%s?%s", resolver.baseUrl, tweetID, params.Encode())

	var envelope tweetLookupResponse
	err := resolver.pool.WithRotationOnRateLimit(ctx, func(client *apiClient) error {
		return client.getJSONResponse(ctx, path, &envelope)
	})
	if err != nil {
		return nil, err
	}

	// The upstream reports deleted/private tweets inside a 200 response
	// with no data payload.
	if envelope.Data == nil {
		return nil, ErrTweetNotFound
	}

	return normalizeLookupResponse(tweetID, &envelope), nil
}

func normalizeLookupResponse(tweetID string, envelope *tweetLookupResponse) *TweetDetails {
	details := &TweetDetails{
		TweetID: tweetID,
		Text:    envelope.Data.Text,
	}

	if envelope.Includes == nil {
		log.Warnf("Tweet %s lookup returned no expansions; media and author details unavailable\n", tweetID)
		return details
	}

	if len(envelope.Includes.Users) > 0 {
		author := envelope.Includes.Users[0]
		details.AuthorUsername = author.Username
		details.AuthorProfileImageUrl = author.ProfileImageUrl
	}

	details.Media = make([]Media, 0, len(envelope.Includes.Media))
	for _, media := range envelope.Includes.Media {
		details.Media = append(details.Media, Media{
			Kind:     mediaKindFromTag(media.Type),
			Url:      media.Url,
			Variants: media.Variants,
		})
	}

	return details
}

// getJSONResponse issues an authenticated GET against the given path and
// unmarshals the response body in to the target. HTTP 429 maps on to
// ErrRateLimited so the credential pool can react; any other non-2xx
// response becomes an UpstreamError.
func (client *apiClient) getJSONResponse(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return &UpstreamError{Message: fmt.Sprintf("failed to construct request: %s", err.Error())}
	}
	req.Header.Set("Authorization", "Bearer "+client.bearerToken)

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Message: fmt.Sprintf("failed to perform GET(%s): %s", path, err.Error())}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	} else if resp.StatusCode == http.StatusNotFound {
		return ErrTweetNotFound
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{HttpCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response body: %s", err.Error())}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Title == "" {
			return &UpstreamError{HttpCode: resp.StatusCode, Message: "non-OK response could not be unmarshalled"}
		}

		return &UpstreamError{HttpCode: resp.StatusCode, Message: fmt.Sprintf("%s: %s", apiErr.Title, apiErr.Detail)}
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return &UpstreamError{HttpCode: resp.StatusCode, Message: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	return nil
}

type (
	tweetLookupResponse struct {
		Data     *tweetData      `json:"data"`
		Includes *tweetIncludes  `json:"includes"`
		Errors   []tweetApiError `json:"errors"`
	}

	tweetData struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		AuthorID string `json:"author_id"`
	}

	tweetIncludes struct {
		Users []tweetUser  `json:"users"`
		Media []tweetMedia `json:"media"`
	}

	tweetUser struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		ProfileImageUrl string `json:"profile_image_url"`
	}

	tweetMedia struct {
		MediaKey        string    `json:"media_key"`
		Type            string    `json:"type"`
		Url             string    `json:"url"`
		PreviewImageUrl string    `json:"preview_image_url"`
		Variants        []Variant `json:"variants"`
	}

	tweetApiError struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}

	apiErrorResponse struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}

	// UpstreamError represents a non-2xx or malformed response from the
	// metadata API which is not a rate limit or a missing tweet.
	UpstreamError struct {
		HttpCode int
		Message  string
	}
)

func (err *UpstreamError) Error() string {
	if err.HttpCode == 0 {
		return fmt.Sprintf("upstream request failure: %s", err.Message)
	}

	return fmt.Sprintf("upstream request failure (HTTP %d): %s", err.HttpCode, err.Message)
}
