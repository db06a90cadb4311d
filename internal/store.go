package internal

import (
	"github.com/google/uuid"
	"github.com/sparklens/tweetgrab/internal/category"
	"github.com/sparklens/tweetgrab/internal/database"
	"github.com/sparklens/tweetgrab/internal/tweet"
	"github.com/sparklens/tweetgrab/internal/user"
)

type (
	// storeOrchestrator is responsible for managing access to tweetgrab's
	// persisted resources. The data stores below this layer are 'dumb';
	// this layer links them together and provides the database instance.
	storeOrchestrator struct {
		db            database.Manager
		TweetStore    *tweet.Store
		CategoryStore *category.Store
		UserStore     *user.Store
	}
)

func newStoreOrchestrator(db database.Manager) *storeOrchestrator {
	return &storeOrchestrator{
		db:            db,
		TweetStore:    &tweet.Store{},
		CategoryStore: &category.Store{},
		UserStore:     user.NewStore(),
	}
}

func (orchestrator *storeOrchestrator) SaveTweet(record *tweet.Tweet) error {
	return orchestrator.TweetStore.Save(orchestrator.db.GetSqlxDb(), record)
}

func (orchestrator *storeOrchestrator) GetTweetWithTweetID(tweetID string) (*tweet.Tweet, error) {
	return orchestrator.TweetStore.GetWithTweetID(orchestrator.db.GetSqlxDb(), tweetID)
}

func (orchestrator *storeOrchestrator) ListTweets(titleFilter string) ([]*tweet.Tweet, error) {
	return orchestrator.TweetStore.List(orchestrator.db.GetSqlxDb(), titleFilter)
}

func (orchestrator *storeOrchestrator) CreateCategory(name string) (*category.Category, error) {
	return orchestrator.CategoryStore.Create(orchestrator.db.GetSqlxDb(), name)
}

func (orchestrator *storeOrchestrator) GetCategoryWithID(id uuid.UUID) (*category.Category, error) {
	return orchestrator.CategoryStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) ListCategories() ([]*category.Category, error) {
	return orchestrator.CategoryStore.List(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) CreateUser(username []byte, rawPassword []byte) error {
	return orchestrator.UserStore.Create(orchestrator.db.GetSqlxDb(), username, rawPassword)
}

func (orchestrator *storeOrchestrator) GetUserWithUsernameAndPassword(username []byte, rawPassword []byte) (*user.User, error) {
	return orchestrator.UserStore.GetWithUsernameAndPassword(orchestrator.db.GetSqlxDb(), username, rawPassword)
}

func (orchestrator *storeOrchestrator) GetUserWithID(id uuid.UUID) (*user.User, error) {
	return orchestrator.UserStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) RecordUserLogin(userID uuid.UUID) error {
	return orchestrator.UserStore.RecordLogin(orchestrator.db.GetSqlxDb(), userID)
}

func (orchestrator *storeOrchestrator) RecordUserRefresh(userID uuid.UUID) error {
	return orchestrator.UserStore.RecordRefresh(orchestrator.db.GetSqlxDb(), userID)
}
