package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/sparklens/tweetgrab/internal/acquisition"
	"github.com/sparklens/tweetgrab/internal/api"
	"github.com/sparklens/tweetgrab/internal/database"
	"github.com/sparklens/tweetgrab/internal/http/twitter"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

var log = logger.Get("Core")

type RunnableService interface {
	Run(context.Context) error
}

// Tweetgrab represents the top-level object for the server, and is
// responsible for initialising the database, stores, acquisition service
// and HTTP gateway.
type tweetgrabImpl struct {
	config TweetgrabConfig

	db    database.Manager
	store *storeOrchestrator

	restGateway RunnableService
}

func New(config TweetgrabConfig) (*tweetgrabImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping Tweetgrab services using config: %#v\n", config)

	db := database.New()
	store := newStoreOrchestrator(db)

	resolver, err := twitter.NewResolver(config.Twitter)
	if err != nil {
		return nil, fmt.Errorf("failed to construct tweet resolver: %w", err)
	}

	acquisitionService, err := acquisition.New(config.Acquisition, resolver, acquisition.NewAssetFetcher(), store)
	if err != nil {
		return nil, fmt.Errorf("failed to construct acquisition service: %w", err)
	}

	return &tweetgrabImpl{
		config:      config,
		db:          db,
		store:       store,
		restGateway: api.NewRestGateway(&config.RestConfig, acquisitionService, store, config.Acquisition.StorageRootPath),
	}, nil
}

// Run will start all of Tweetgrab by bringing up all required services and
// connections. This function will not return until Tweetgrab is stopped.
// To stop Tweetgrab, the provided context must be cancelled. Errors from
// which Tweetgrab cannot recover will also cause it to stop.
func (tweetgrab *tweetgrabImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := tweetgrab.db.Connect(tweetgrab.config.Database); err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	tweetgrab.spawnAsyncService(ctx, wg, tweetgrab.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Tweetgrab services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as it's own
// go-routine, ensuring that the Tweetgrab service waitgroup is updated correctly
func (tweetgrab *tweetgrabImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
