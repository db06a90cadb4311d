package acquisition

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sparklens/tweetgrab/internal/http/twitter"
)

// ErrNoUsableVariant indicates a video media item carried no mp4 variant
// to download. Non-fatal; the orchestrator omits the item.
var ErrNoUsableVariant = errors.New("media has no usable mp4 variant")

type (
	// SelectedAsset is the single download URL and target file extension
	// derived from a media descriptor by SelectAsset.
	SelectedAsset struct {
		Url       string
		Extension string
	}

	// UnsupportedMediaKindError indicates a media item of a kind this
	// service does not know how to download. Non-fatal; the orchestrator
	// omits the item.
	UnsupportedMediaKindError struct {
		Kind twitter.MediaKind
	}
)

func (err *UnsupportedMediaKindError) Error() string {
	return fmt.Sprintf("unsupported media kind '%s'", err.Kind)
}

// SelectAsset deterministically maps a media descriptor on to the single
// best representation to download:
//   - photos use their direct URL, upgraded to the original resolution,
//     and are saved as .jpg
//   - videos use the mp4 variant with the highest bitrate (ties broken by
//     first occurrence) and are saved as .mp4
//   - animated GIFs use the first listed variant and are saved as .gif
func SelectAsset(media twitter.Media) (*SelectedAsset, error) {
	switch media.Kind {
	case twitter.PHOTO:
		return &SelectedAsset{Url: upgradePhotoUrl(media.Url), Extension: ".jpg"}, nil
	case twitter.VIDEO:
		best := -1
		for i, variant := range media.Variants {
			if variant.ContentType != "video/mp4" {
				continue
			}

			if best == -1 || variant.Bitrate > media.Variants[best].Bitrate {
				best = i
			}
		}

		if best == -1 {
			return nil, ErrNoUsableVariant
		}

		return &SelectedAsset{Url: media.Variants[best].Url, Extension: ".mp4"}, nil
	case twitter.ANIMATED_GIF:
		if len(media.Variants) == 0 {
			return nil, ErrNoUsableVariant
		}

		return &SelectedAsset{Url: media.Variants[0].Url, Extension: ".gif"}, nil
	}

	return nil, &UnsupportedMediaKindError{Kind: media.Kind}
}

// upgradePhotoUrl rewrites the size parameter encoded in a photo URL to
// request the original resolution. URLs carrying no size parameter are
// returned untouched.
func upgradePhotoUrl(photoUrl string) string {
	parsed, err := url.Parse(photoUrl)
	if err != nil {
		return photoUrl
	}

	query := parsed.Query()
	if !query.Has("name") {
		return photoUrl
	}

	query.Set("name", "orig")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
