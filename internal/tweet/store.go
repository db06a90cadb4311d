package tweet

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sparklens/tweetgrab/internal/database"
)

var (
	ErrTweetNotFound = errors.New("acquired tweet does not exist")

	// ErrTweetAlreadyExists is returned when saving a record whose tweet ID
	// has already been acquired; acquiring the same tweet twice is a
	// conflict, not an update.
	ErrTweetAlreadyExists = errors.New("tweet has already been acquired")
)

type (
	tweetBase struct {
		ID               uuid.UUID `db:"id"`
		TweetID          string    `db:"tweet_id"`
		Username         string    `db:"username"`
		Title            string    `db:"title"`
		ProfileImagePath *string   `db:"profile_image_path"`
		CategoryID       uuid.UUID `db:"category_id"`
		CreatedAt        time.Time `db:"created_at"`
		UpdatedAt        time.Time `db:"updated_at"`
	}

	// tweetModel is the row representation, with the JSONB columns wrapped
	// in JsonColumn containers. A separate struct forms the public API of
	// this store to hide that detail from consumers.
	tweetModel struct {
		tweetBase
		Hashtags   database.JsonColumn[[]string] `db:"hashtags"`
		MediaPaths database.JsonColumn[[]string] `db:"media_paths"`
	}

	// Tweet is the record describing one completed media acquisition. The
	// MediaPaths ordering matches the source media ordering, with failed
	// items omitted. ProfileImagePath is nil when the authors profile
	// image could not be fetched.
	Tweet struct {
		tweetBase
		Hashtags   []string
		MediaPaths []string
	}

	Store struct{}
)

// Save inserts the acquisition record. The tweet ID is unique in the store;
// inserting a second record for the same tweet ID fails with
// ErrTweetAlreadyExists.
func (store *Store) Save(db database.Queryable, tweet *Tweet) error {
	model := tweetModel{
		tweetBase:  tweet.tweetBase,
		Hashtags:   database.NewJsonColumn(tweet.Hashtags),
		MediaPaths: database.NewJsonColumn(tweet.MediaPaths),
	}

	_, err := db.NamedExec(`
		INSERT INTO tweets(id, tweet_id, username, title, hashtags, media_paths, profile_image_path, category_id, created_at, updated_at)
		VALUES (:id, :tweet_id, :username, :title, :hashtags, :media_paths, :profile_image_path, :category_id, current_timestamp, current_timestamp)
	`, model)
	if err != nil {
		if database.IsUniqueConstraintViolation(err) {
			return ErrTweetAlreadyExists
		}

		return fmt.Errorf("failed to insert acquired tweet %s: %w", tweet.TweetID, err)
	}

	return nil
}

// GetWithTweetID finds the acquisition record for the given tweet ID.
func (store *Store) GetWithTweetID(db database.Queryable, tweetID string) (*Tweet, error) {
	var model tweetModel
	if err := db.Get(&model, `SELECT * FROM tweets WHERE tweet_id=$1`, tweetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTweetNotFound
		}

		return nil, err
	}

	return tweetModelToTweet(&model), nil
}

// List returns all acquisition records, most recent first. A non-empty
// titleFilter restricts results to titles containing the filter
// (case-insensitive).
func (store *Store) List(db database.Queryable, titleFilter string) ([]*Tweet, error) {
	builder := squirrel.
		Select("*").
		From("tweets").
		OrderBy("created_at DESC")
	if titleFilter != "" {
		builder = builder.Where("title ILIKE ?", "%"+titleFilter+"%")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list tweets query: %w", err)
	}

	var models []tweetModel
	if err := db.Select(&models, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*Tweet, len(models))
	for k, v := range models {
		output[k] = tweetModelToTweet(&v)
	}

	return output, nil
}

func tweetModelToTweet(model *tweetModel) *Tweet {
	tweet := &Tweet{tweetBase: model.tweetBase}
	if hashtags := model.Hashtags.Get(); hashtags != nil {
		tweet.Hashtags = *hashtags
	}
	if paths := model.MediaPaths.Get(); paths != nil {
		tweet.MediaPaths = *paths
	}

	return tweet
}
