package tweets

import (
	"time"

	"github.com/google/uuid"
	"github.com/sparklens/tweetgrab/internal/tweet"
)

type (
	downloadRequest struct {
		TwitterUrl string    `json:"twitter_url" validate:"required,url"`
		Title      string    `json:"title"`
		Hashtags   []string  `json:"hashtags"`
		CategoryID uuid.UUID `json:"category_id" validate:"required"`
	}

	tweetDto struct {
		ID               uuid.UUID `json:"id"`
		TweetID          string    `json:"tweet_id"`
		Username         string    `json:"username"`
		Title            string    `json:"title"`
		Hashtags         []string  `json:"hashtags"`
		MediaPaths       []string  `json:"media_paths"`
		ProfileImagePath *string   `json:"profile_image_path"`
		CategoryID       uuid.UUID `json:"category_id"`
		CreatedAt        time.Time `json:"created_at"`
	}
)

func tweetToDto(record *tweet.Tweet) tweetDto {
	return tweetDto{
		ID:               record.ID,
		TweetID:          record.TweetID,
		Username:         record.Username,
		Title:            record.Title,
		Hashtags:         record.Hashtags,
		MediaPaths:       record.MediaPaths,
		ProfileImagePath: record.ProfileImagePath,
		CategoryID:       record.CategoryID,
		CreatedAt:        record.CreatedAt,
	}
}
