package auth

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sparklens/tweetgrab/internal/user"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized)
	log             = logger.Get("AuthController")
)

type (
	Store interface {
		CreateUser(username []byte, rawPassword []byte) error
		GetUserWithUsernameAndPassword(username []byte, rawPassword []byte) (*user.User, error)
		GetUserWithID(id uuid.UUID) (*user.User, error)
	}

	AuthProvider interface {
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
		Refresh(echo.Context) error
		Revoke(echo.Context)
		GenerateTokensAndSetCookies(ec echo.Context, userID uuid.UUID) error
		GetUserIDFromContext(ec echo.Context) (*uuid.UUID, error)
	}

	SignupRequest struct {
		Username string `json:"username" validate:"required,min=3,max=64"`
		Password string `json:"password" validate:"required,min=8"`
	}

	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	Controller struct {
		store        Store
		authProvider AuthProvider
		validate     *validator.Validate
	}
)

func New(validate *validator.Validate, authProvider AuthProvider, store Store) *Controller {
	return &Controller{store: store, authProvider: authProvider, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/signup/", controller.signup)
	eg.POST("/login/", controller.login)
	eg.POST("/refresh/", controller.refresh)
	eg.POST("/logout/", controller.logout, controller.authProvider.GetJwtVerifierMiddleware())
	eg.GET("/current-user/", controller.currentUser, controller.authProvider.GetJwtVerifierMiddleware())
}

// signup creates a new user with the provided username and password, then
// logs the new user in by generating token cookies.
func (controller *Controller) signup(ec echo.Context) error {
	var request SignupRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is malformed")
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.store.CreateUser([]byte(request.Username), []byte(request.Password)); err != nil {
		if errors.Is(err, user.ErrUserAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "username is already taken")
		}

		log.Errorf("Failed to create user due to error: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	u, err := controller.store.GetUserWithUsernameAndPassword([]byte(request.Username), []byte(request.Password))
	if err != nil {
		log.Errorf("Failed to fetch newly created user due to error: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	if err := controller.authProvider.GenerateTokensAndSetCookies(ec, u.ID); err != nil {
		log.Errorf("Failed to authenticate new user due to error: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return ec.JSON(http.StatusCreated, u)
}

// login accepts a POST request containing the alleged username and password
// in the body and:
//   - Asserts that the user with the username provided exists
//   - The provided password is valid
//   - Generates an auth token, and a refresh token, and stores
//     these in the requests cookies
func (controller *Controller) login(ec echo.Context) error {
	var request LoginRequest
	if err := ec.Bind(&request); err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	u, err := controller.store.GetUserWithUsernameAndPassword([]byte(request.Username), []byte(request.Password))
	if err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	if err := controller.authProvider.GenerateTokensAndSetCookies(ec, u.ID); err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	return ec.JSON(http.StatusOK, u)
}

// refresh allows a client to obtain a new auth and refresh token by
// providing a valid refresh token. The new tokens are stored in the
// requests cookies, same as login.
func (controller *Controller) refresh(ec echo.Context) error {
	if err := controller.authProvider.Refresh(ec); err != nil {
		log.Errorf("Failed to refresh: %s\n", err)
		return errUnauthorized
	}

	return ec.NoContent(http.StatusOK)
}

// logout revokes the requests tokens so they cannot be used again, even
// before their natural expiry.
func (controller *Controller) logout(ec echo.Context) error {
	controller.authProvider.Revoke(ec)
	return ec.NoContent(http.StatusOK)
}

func (controller *Controller) currentUser(ec echo.Context) error {
	userID, err := controller.authProvider.GetUserIDFromContext(ec)
	if err != nil {
		log.Errorf("Failed to get current user due to error: %v\n", err)
		return errUnauthorized
	}

	u, err := controller.store.GetUserWithID(*userID)
	if err != nil {
		log.Errorf("Failed to get current user due to error: %v\n", err)
		return errUnauthorized
	}

	return ec.JSON(http.StatusOK, u)
}
