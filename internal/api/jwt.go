package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	sync "github.com/sparklens/tweetgrab/pkg/sync"
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized)

const (
	authTokenCookieName    = "auth-token"
	refreshTokenCookieName = "refresh-token"

	authTokenLifespan    = time.Hour * 1
	refreshTokenLifespan = time.Hour * 24 * 7
)

type (
	authTokenClaims struct {
		jwt.RegisteredClaims
		UserID uuid.UUID `json:"user_id"`
	}

	refreshTokenClaims struct {
		jwt.RegisteredClaims
		UserID uuid.UUID `json:"user_id"`
	}

	jwtAuthProvider struct {
		store              AuthStore
		authTokenSecret    []byte
		refreshTokenSecret []byte

		// Tokens revoked before their natural expiry (user logout). The
		// verifier middleware rejects any token found in this set.
		blacklistedTokens *sync.TypedSyncMap[string, struct{}]
	}

	AuthStore interface {
		RecordUserLogin(userID uuid.UUID) error
		RecordUserRefresh(userID uuid.UUID) error
	}
)

func NewJwtAuth(store AuthStore, authTokenSecret string, refreshTokenSecret string) *jwtAuthProvider {
	return &jwtAuthProvider{
		store,
		[]byte(authTokenSecret),
		[]byte(refreshTokenSecret),
		new(sync.TypedSyncMap[string, struct{}]),
	}
}

// GetJwtVerifierMiddleware returns an echo middleware which rejects any
// request not carrying a valid, unrevoked auth token cookie.
func (auth *jwtAuthProvider) GetJwtVerifierMiddleware() echo.MiddlewareFunc {
	verifier := echojwt.WithConfig(echojwt.Config{
		SigningKey:  auth.authTokenSecret,
		TokenLookup: fmt.Sprintf("cookie:%s", authTokenCookieName),
		ErrorHandler: func(ec echo.Context, err error) error {
			return errUnauthorized
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verifier(func(ec echo.Context) error {
			if cookie, err := ec.Cookie(authTokenCookieName); err == nil {
				if _, revoked := auth.blacklistedTokens.Load(cookie.Value); revoked {
					return errUnauthorized
				}
			}

			return next(ec)
		})
	}
}

// GenerateTokensAndSetCookies generates an auth token and a refresh token
// using the appropriate secrets and expiries, before storing both of the
// tokens in the requests cookies.
func (auth *jwtAuthProvider) GenerateTokensAndSetCookies(ec echo.Context, userID uuid.UUID) error {
	accessToken, exp, err := auth.generateAccessToken(userID)
	if err != nil {
		return err
	}
	setTokenCookie(ec, authTokenCookieName, accessToken, exp)

	refreshToken, exp, err := auth.generateRefreshToken(userID)
	if err != nil {
		return err
	}
	setTokenCookie(ec, refreshTokenCookieName, refreshToken, exp)

	// Don't block the request waiting for these
	go func() {
		if err := auth.store.RecordUserLogin(userID); err != nil {
			log.Warnf("Failed to record user login for %v: %v\n", userID, err)
		}
		if err := auth.store.RecordUserRefresh(userID); err != nil {
			log.Warnf("Failed to record user refresh for %v: %v\n", userID, err)
		}
	}()

	return nil
}

// Refresh generates new auth and refresh tokens and stores them in the
// request cookies IF the request contains a valid refresh token.
func (auth *jwtAuthProvider) Refresh(ec echo.Context) error {
	token, err := auth.validateToken(ec, refreshTokenCookieName, auth.refreshTokenSecret)
	if err != nil {
		return fmt.Errorf("failed to refresh: %w", err)
	}

	claims := token.Claims.(*jwt.MapClaims)
	userID, err := auth.GetUserIdFromClaims(*claims)
	if err != nil {
		return fmt.Errorf("failed to refresh: %w", err)
	}

	return auth.GenerateTokensAndSetCookies(ec, *userID)
}

// Revoke blacklists the requests auth and refresh tokens and clears the
// corresponding cookies, logging the user out on this client.
func (auth *jwtAuthProvider) Revoke(ec echo.Context) {
	for _, cookieName := range []string{authTokenCookieName, refreshTokenCookieName} {
		if cookie, err := ec.Cookie(cookieName); err == nil {
			auth.blacklistedTokens.Store(cookie.Value, struct{}{})
		}

		setTokenCookie(ec, cookieName, "", time.Unix(0, 0))
	}
}

func (auth *jwtAuthProvider) GetUserIdFromClaims(claims jwt.MapClaims) (*uuid.UUID, error) {
	userID, ok := claims["user_id"]
	if !ok {
		return nil, errors.New("failed to extract user ID from JWT claims: missing")
	}

	id, err := uuid.Parse(userID.(string))
	if err != nil {
		return nil, fmt.Errorf("failed to extract user ID from JWT claims: %w", err)
	}

	return &id, nil
}

func (auth *jwtAuthProvider) GetUserIDFromContext(ec echo.Context) (*uuid.UUID, error) {
	if ec.Get("user") == nil {
		return nil, errors.New("no user found in request context")
	}

	token, ok := ec.Get("user").(*jwt.Token)
	if !ok {
		return nil, errors.New("user in request context is not a JWT token")
	}

	claims := token.Claims.(jwt.MapClaims)
	return auth.GetUserIdFromClaims(claims)
}

func (auth *jwtAuthProvider) validateToken(ec echo.Context, tokenName string, secret []byte) (*jwt.Token, error) {
	cookieToken, err := ec.Cookie(tokenName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookie %s: %w", tokenName, err)
	}

	if _, revoked := auth.blacklistedTokens.Load(cookieToken.Value); revoked {
		return nil, fmt.Errorf("token %s has been revoked", tokenName)
	}

	tokenClaims := &jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(
		cookieToken.Value,
		tokenClaims,
		func(token *jwt.Token) (interface{}, error) { return secret, nil },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s JWT: %w", tokenName, err)
	}

	if tkn == nil || !tkn.Valid {
		return nil, fmt.Errorf("failed to verify %s JWT: token is expired or invalid", tokenName)
	}

	return tkn, nil
}

func (auth *jwtAuthProvider) generateAccessToken(userID uuid.UUID) (string, time.Time, error) {
	exp := time.Now().Add(authTokenLifespan)
	claims := &authTokenClaims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}

	token, err := generateToken(claims, auth.authTokenSecret)
	if err != nil {
		return "", time.Now(), fmt.Errorf("failed to generate auth token: %w", err)
	}

	return token, exp, nil
}

func (auth *jwtAuthProvider) generateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	exp := time.Now().Add(refreshTokenLifespan)
	claims := &refreshTokenClaims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}

	token, err := generateToken(claims, auth.refreshTokenSecret)
	if err != nil {
		return "", time.Now(), fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return token, exp, nil
}

func setTokenCookie(ec echo.Context, name, token string, expiration time.Time) {
	cookie := new(http.Cookie)
	cookie.Name = name
	cookie.Value = token
	cookie.Expires = expiration
	cookie.Path = "/"
	cookie.HttpOnly = true

	ec.SetCookie(cookie)
}

func generateToken(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
