package acquisition_test

import (
	"errors"
	"testing"

	"github.com/sparklens/tweetgrab/internal/acquisition"
	"github.com/sparklens/tweetgrab/internal/http/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SelectAsset_Photos(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Summary     string
		Url         string
		ExpectedUrl string
	}{
		{
			Summary:     "size parameter upgraded to original resolution",
			Url:         "https://pbs.twimg.com/media/abc.jpg?format=jpg&name=small",
			ExpectedUrl: "https://pbs.twimg.com/media/abc.jpg?format=jpg&name=orig",
		},
		{
			Summary:     "URL without a size parameter is untouched",
			Url:         "https://pbs.twimg.com/media/abc.jpg",
			ExpectedUrl: "https://pbs.twimg.com/media/abc.jpg",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Summary, func(t *testing.T) {
			t.Parallel()

			asset, err := acquisition.SelectAsset(twitter.Media{Kind: twitter.PHOTO, Url: test.Url})
			require.NoError(t, err)
			assert.Equal(t, test.ExpectedUrl, asset.Url)
			assert.Equal(t, ".jpg", asset.Extension)
		})
	}
}

func Test_SelectAsset_VideoPicksHighestBitrateMp4(t *testing.T) {
	t.Parallel()

	asset, err := acquisition.SelectAsset(twitter.Media{
		Kind: twitter.VIDEO,
		Variants: []twitter.Variant{
			{Bitrate: 100, ContentType: "video/mp4", Url: "https://video.twimg.com/low.mp4"},
			{Bitrate: 500, ContentType: "video/mp4", Url: "https://video.twimg.com/high.mp4"},
			{Bitrate: 9000, ContentType: "application/x-mpegURL", Url: "https://video.twimg.com/playlist.m3u8"},
			{Bitrate: 300, ContentType: "video/mp4", Url: "https://video.twimg.com/mid.mp4"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://video.twimg.com/high.mp4", asset.Url, "non-mp4 variants must never win regardless of bitrate")
	assert.Equal(t, ".mp4", asset.Extension)
}

func Test_SelectAsset_VideoBitrateTiesBrokenByFirstOccurrence(t *testing.T) {
	t.Parallel()

	asset, err := acquisition.SelectAsset(twitter.Media{
		Kind: twitter.VIDEO,
		Variants: []twitter.Variant{
			{Bitrate: 500, ContentType: "video/mp4", Url: "https://video.twimg.com/first.mp4"},
			{Bitrate: 500, ContentType: "video/mp4", Url: "https://video.twimg.com/second.mp4"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://video.twimg.com/first.mp4", asset.Url)
}

func Test_SelectAsset_VideoWithoutMp4VariantIsRejected(t *testing.T) {
	t.Parallel()

	asset, err := acquisition.SelectAsset(twitter.Media{
		Kind: twitter.VIDEO,
		Variants: []twitter.Variant{
			{Bitrate: 9000, ContentType: "application/x-mpegURL", Url: "https://video.twimg.com/playlist.m3u8"},
		},
	})

	assert.Nil(t, asset)
	assert.ErrorIs(t, err, acquisition.ErrNoUsableVariant)
}

func Test_SelectAsset_AnimatedGifUsesFirstVariant(t *testing.T) {
	t.Parallel()

	asset, err := acquisition.SelectAsset(twitter.Media{
		Kind: twitter.ANIMATED_GIF,
		Variants: []twitter.Variant{
			{Bitrate: 0, ContentType: "video/mp4", Url: "https://video.twimg.com/gif.mp4"},
			{Bitrate: 100, ContentType: "video/mp4", Url: "https://video.twimg.com/other.mp4"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://video.twimg.com/gif.mp4", asset.Url)
	assert.Equal(t, ".gif", asset.Extension)
}

func Test_SelectAsset_AnimatedGifWithoutVariantsIsRejected(t *testing.T) {
	t.Parallel()

	asset, err := acquisition.SelectAsset(twitter.Media{Kind: twitter.ANIMATED_GIF})
	assert.Nil(t, asset)
	assert.ErrorIs(t, err, acquisition.ErrNoUsableVariant)
}

func Test_SelectAsset_UnknownMediaKindIsRejected(t *testing.T) {
	t.Parallel()

	asset, err := acquisition.SelectAsset(twitter.Media{Kind: twitter.UNKNOWN_MEDIA})
	assert.Nil(t, asset)

	var kindErr *acquisition.UnsupportedMediaKindError
	require.True(t, errors.As(err, &kindErr))
	assert.Equal(t, twitter.UNKNOWN_MEDIA, kindErr.Kind)
}
