package twitter

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sparklens/tweetgrab/pkg/logger"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited indicates the upstream API rejected a request because
	// the credential used has exceeded its call quota. The credential pool
	// reacts to this error by rotating to the next credential.
	ErrRateLimited = errors.New("upstream API rate limit hit for active credential")

	// ErrCredentialsExhausted indicates every credential in the pool was
	// rate limited during a single operation. Safe to retry later.
	ErrCredentialsExhausted = errors.New("all API credentials are rate limited")

	poolLog = logger.Get("CredentialPool")
)

type (
	// apiClient binds a single bearer token to an HTTP client. Instances
	// are created once by the pool and are immutable thereafter.
	apiClient struct {
		bearerToken string
		httpClient  *http.Client
	}

	// CredentialPool owns the ordered set of API credentials and the index
	// of the one currently in use. Reading the active client and rotating
	// are mutually exclusive so concurrent acquisitions sharing the pool
	// can never observe a partially rotated credential.
	CredentialPool struct {
		mu      sync.Mutex
		clients []*apiClient
		current int

		// A single outbound limiter is shared across all credentials so
		// that rotation cannot be used to hammer the upstream host.
		limiter *rate.Limiter
	}
)

func NewCredentialPool(bearerTokens []string) (*CredentialPool, error) {
	if len(bearerTokens) == 0 {
		return nil, errors.New("credential pool requires at least one bearer token")
	}

	clients := make([]*apiClient, len(bearerTokens))
	for i, token := range bearerTokens {
		clients[i] = &apiClient{
			bearerToken: token,
			httpClient:  &http.Client{Timeout: time.Second * 30},
		}
	}

	return &CredentialPool{
		clients: clients,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// activeClient returns the client bound to the currently active credential.
func (pool *CredentialPool) activeClient() *apiClient {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	return pool.clients[pool.current]
}

// rotate advances the active credential index modulo the pool size.
func (pool *CredentialPool) rotate() {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	pool.current = (pool.current + 1) % len(pool.clients)
	poolLog.Emit(logger.REMOVE, "Rotated to credential #%d following rate limit\n", pool.current)
}

// Size returns the number of credentials held by this pool.
func (pool *CredentialPool) Size() int {
	return len(pool.clients)
}

// WithRotationOnRateLimit executes the operation using the active client. If
// the operation fails with ErrRateLimited the pool rotates and retries, one
// attempt per distinct credential. Once every credential has been rate
// limited the call fails with ErrCredentialsExhausted. Any other error from
// the operation propagates immediately without rotating.
func (pool *CredentialPool) WithRotationOnRateLimit(ctx context.Context, operation func(client *apiClient) error) error {
	for attempt := 0; attempt < len(pool.clients); attempt++ {
		if err := pool.limiter.Wait(ctx); err != nil {
			return err
		}

		err := operation(pool.activeClient())
		if err == nil {
			return nil
		} else if !errors.Is(err, ErrRateLimited) {
			return err
		}

		pool.rotate()
	}

	return ErrCredentialsExhausted
}
