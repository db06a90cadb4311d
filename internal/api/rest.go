package api

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sparklens/tweetgrab/internal/api/auth"
	"github.com/sparklens/tweetgrab/internal/api/categories"
	"github.com/sparklens/tweetgrab/internal/api/tweets"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr           string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
		AuthTokenSecret    string `yaml:"auth_token_secret" env:"AUTH_TOKEN_SECRET" env-required:"true"`
		RefreshTokenSecret string `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	protectedController interface {
		controller
		SetProtectedRoutes(*echo.Group)
	}

	// dataStore represents a union of all the controller store requirements.
	dataStore interface {
		AuthStore
		auth.Store
		tweets.Store
		categories.Store
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. Its
	// sole responsibility is to create the routes tweetgrab exposes, serve
	// the downloaded files statically, and enforce auth middleware where
	// applicable.
	RestGateway struct {
		config             *RestConfig
		ec                 *echo.Echo
		authProvider       *jwtAuthProvider
		authController     controller
		tweetController    protectedController
		categoryController protectedController
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers. The storageRootPath is the
// directory under which the 'downloads' tree lives; it is exposed verbatim
// under the /downloads route.
func NewRestGateway(
	config *RestConfig,
	acquisitionService tweets.AcquisitionService,
	store dataStore,
	storageRootPath string,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	authProvider := NewJwtAuth(store, config.AuthTokenSecret, config.RefreshTokenSecret)
	gateway := &RestGateway{
		config:             config,
		ec:                 ec,
		authProvider:       authProvider,
		authController:     auth.New(validate, authProvider, store),
		tweetController:    tweets.New(validate, acquisitionService, store),
		categoryController: categories.New(validate, store),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.Static("/downloads", filepath.Join(storageRootPath, "downloads"))

	authGroup := ec.Group("/api/tweetgrab/v1/auth")
	gateway.authController.SetRoutes(authGroup)

	tweetsGroup := ec.Group("/api/tweetgrab/v1/tweets")
	gateway.tweetController.SetRoutes(tweetsGroup)
	gateway.tweetController.SetProtectedRoutes(tweetsGroup.Group("", authProvider.GetJwtVerifierMiddleware()))

	categoriesGroup := ec.Group("/api/tweetgrab/v1/categories")
	gateway.categoryController.SetRoutes(categoriesGroup)
	gateway.categoryController.SetProtectedRoutes(categoriesGroup.Group("", authProvider.GetJwtVerifierMiddleware()))

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
