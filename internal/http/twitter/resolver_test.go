package twitter_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sparklens/tweetgrab/internal/http/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tweetLookupPayload = `{
	"data": {"id": "1234", "text": "three cats in a trenchcoat", "author_id": "99"},
	"includes": {
		"users": [{"id": "99", "username": "catfan", "profile_image_url": "https://pbs.twimg.com/profile_images/99/me_normal.jpg"}],
		"media": [
			{"media_key": "3_1", "type": "photo", "url": "https://pbs.twimg.com/media/one.jpg"},
			{"media_key": "7_2", "type": "video", "variants": [
				{"bit_rate": 832000, "content_type": "video/mp4", "url": "https://video.twimg.com/low.mp4"},
				{"bit_rate": 2176000, "content_type": "video/mp4", "url": "https://video.twimg.com/high.mp4"}
			]},
			{"media_key": "16_3", "type": "animated_gif", "variants": [
				{"bit_rate": 0, "content_type": "video/mp4", "url": "https://video.twimg.com/gif.mp4"}
			]}
		]
	}
}`

func newResolverAgainst(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func Test_Resolve_NormalizesLookupResponse(t *testing.T) {
	t.Parallel()

	var capturedAuth string
	srv := newResolverAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/tweets/1234", r.URL.Path)
		assert.Equal(t, "author_id,attachments.media_keys", r.URL.Query().Get("expansions"))
		assert.Equal(t, "url,preview_image_url,type,variants", r.URL.Query().Get("media.fields"))
		assert.Equal(t, "profile_image_url,username", r.URL.Query().Get("user.fields"))
		assert.Equal(t, "entities,text", r.URL.Query().Get("tweet.fields"))

		fmt.Fprint(w, tweetLookupPayload)
	})

	resolver, err := twitter.NewResolver(twitter.Config{BearerTokens: []string{"secret"}, BaseUrl: srv.URL})
	require.NoError(t, err)

	details, err := resolver.Resolve(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", capturedAuth)

	assert.Equal(t, "1234", details.TweetID)
	assert.Equal(t, "three cats in a trenchcoat", details.Text)
	assert.Equal(t, "catfan", details.AuthorUsername)
	assert.Equal(t, "https://pbs.twimg.com/profile_images/99/me_normal.jpg", details.AuthorProfileImageUrl)

	require.Len(t, details.Media, 3)
	assert.Equal(t, twitter.PHOTO, details.Media[0].Kind)
	assert.Equal(t, "https://pbs.twimg.com/media/one.jpg", details.Media[0].Url)
	assert.Equal(t, twitter.VIDEO, details.Media[1].Kind)
	assert.Len(t, details.Media[1].Variants, 2)
	assert.Equal(t, twitter.ANIMATED_GIF, details.Media[2].Kind)
}

func Test_Resolve_ReportsMissingTweet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Summary string
		Handler http.HandlerFunc
	}{
		{
			Summary: "HTTP 404",
			Handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
		},
		{
			Summary: "200 with error payload and no data",
			Handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"errors": [{"title": "Not Found Error", "detail": "Could not find tweet"}]}`)
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Summary, func(t *testing.T) {
			t.Parallel()

			srv := newResolverAgainst(t, test.Handler)
			resolver, err := twitter.NewResolver(twitter.Config{BearerTokens: []string{"secret"}, BaseUrl: srv.URL})
			require.NoError(t, err)

			details, err := resolver.Resolve(context.Background(), "1234")
			assert.Nil(t, details)
			assert.ErrorIs(t, err, twitter.ErrTweetNotFound)
		})
	}
}

func Test_Resolve_RotatesCredentialOnRateLimit(t *testing.T) {
	t.Parallel()

	attemptedTokens := []string{}
	srv := newResolverAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		attemptedTokens = append(attemptedTokens, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") == "Bearer first" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		fmt.Fprint(w, tweetLookupPayload)
	})

	resolver, err := twitter.NewResolver(twitter.Config{BearerTokens: []string{"first", "second"}, BaseUrl: srv.URL})
	require.NoError(t, err)

	details, err := resolver.Resolve(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, "1234", details.TweetID)
	assert.Equal(t, []string{"Bearer first", "Bearer second"}, attemptedTokens)
}

func Test_Resolve_ExhaustsCredentialPool(t *testing.T) {
	t.Parallel()

	attempts := 0
	srv := newResolverAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	resolver, err := twitter.NewResolver(twitter.Config{BearerTokens: []string{"first", "second"}, BaseUrl: srv.URL})
	require.NoError(t, err)

	details, err := resolver.Resolve(context.Background(), "1234")
	assert.Nil(t, details)
	assert.ErrorIs(t, err, twitter.ErrCredentialsExhausted)
	assert.Equal(t, resolver.Pool().Size(), attempts, "exhaustion should cost exactly one attempt per credential")
}

func Test_Resolve_WrapsUnexpectedUpstreamFailures(t *testing.T) {
	t.Parallel()

	srv := newResolverAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"title": "Internal Error", "detail": "something broke"}`)
	})

	resolver, err := twitter.NewResolver(twitter.Config{BearerTokens: []string{"secret"}, BaseUrl: srv.URL})
	require.NoError(t, err)

	details, err := resolver.Resolve(context.Background(), "1234")
	assert.Nil(t, details)

	var upstreamErr *twitter.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.HttpCode)
	assert.Contains(t, upstreamErr.Message, "Internal Error")
}
