package tweets

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sparklens/tweetgrab/internal/acquisition"
	"github.com/sparklens/tweetgrab/internal/api/util"
	"github.com/sparklens/tweetgrab/internal/category"
	"github.com/sparklens/tweetgrab/internal/http/twitter"
	"github.com/sparklens/tweetgrab/internal/tweet"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

var log = logger.Get("TweetController")

type (
	Store interface {
		ListTweets(titleFilter string) ([]*tweet.Tweet, error)
		GetTweetWithTweetID(tweetID string) (*tweet.Tweet, error)
		GetCategoryWithID(id uuid.UUID) (*category.Category, error)
	}

	AcquisitionService interface {
		AcquireTweetMedia(ctx context.Context, request acquisition.Request) (*tweet.Tweet, error)
	}

	Controller struct {
		store    Store
		service  AcquisitionService
		validate *validator.Validate
	}
)

func New(validate *validator.Validate, service AcquisitionService, store Store) *Controller {
	return &Controller{store: store, service: service, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:tweetId/", controller.get)
}

// SetProtectedRoutes registers the routes which require an authenticated
// user; acquisition writes to disk and the database, so it is not open
// to anonymous callers.
func (controller *Controller) SetProtectedRoutes(eg *echo.Group) {
	eg.POST("/download/", controller.download)
}

// download drives one end-to-end media acquisition for the tweet URL in the
// request body. The category reference is validated before the engine is
// invoked; an unresolved category is a precondition failure, not an
// acquisition error.
func (controller *Controller) download(ec echo.Context) error {
	var request downloadRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is malformed")
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := controller.store.GetCategoryWithID(request.CategoryID); err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "category does not exist")
		}

		log.Errorf("Failed to resolve category %s: %v\n", request.CategoryID, err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	record, err := controller.service.AcquireTweetMedia(ec.Request().Context(), acquisition.Request{
		TwitterUrl: request.TwitterUrl,
		Title:      request.Title,
		Hashtags:   request.Hashtags,
		CategoryID: request.CategoryID,
	})
	if err != nil {
		return acquisitionErrorToHttpError(err)
	}

	return ec.JSON(http.StatusOK, tweetToDto(record))
}

// list returns the stored acquisition records, optionally filtered by a
// title substring supplied via the 'title' query parameter.
func (controller *Controller) list(ec echo.Context) error {
	records, err := controller.store.ListTweets(ec.QueryParam("title"))
	if err != nil {
		log.Errorf("Failed to list tweets: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(records, tweetToDto))
}

func (controller *Controller) get(ec echo.Context) error {
	record, err := controller.store.GetTweetWithTweetID(ec.Param("tweetId"))
	if err != nil {
		if errors.Is(err, tweet.ErrTweetNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "tweet not found")
		}

		log.Errorf("Failed to fetch tweet %s: %v\n", ec.Param("tweetId"), err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return ec.JSON(http.StatusOK, tweetToDto(record))
}

// acquisitionErrorToHttpError maps the engines error taxonomy on to HTTP
// statuses; retryable failures (rate limiting, upstream faults) map to 5xx
// while caller faults map to 4xx.
func acquisitionErrorToHttpError(err error) *echo.HTTPError {
	var upstreamErr *twitter.UpstreamError
	switch {
	case errors.Is(err, acquisition.ErrInvalidSourceURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, twitter.ErrTweetNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, tweet.ErrTweetAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, twitter.ErrCredentialsExhausted):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstreamErr):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	log.Errorf("Acquisition failed with unexpected error: %v\n", err)
	return echo.NewHTTPError(http.StatusInternalServerError)
}
