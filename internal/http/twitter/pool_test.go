package twitter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExpected = errors.New("test: expected error")

func Test_CredentialPool_RequiresAtLeastOneToken(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{})
	assert.Nil(t, pool)
	assert.Error(t, err)
}

func Test_CredentialPool_SucceedsWithoutRotation(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{"alpha", "beta"})
	require.NoError(t, err)

	seenTokens := []string{}
	err = pool.WithRotationOnRateLimit(context.Background(), func(client *apiClient) error {
		seenTokens = append(seenTokens, client.bearerToken)
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, seenTokens, "a successful operation should only ever use the active credential")
}

func Test_CredentialPool_RotatesOnRateLimitUntilExhausted(t *testing.T) {
	t.Parallel()

	tokens := []string{"alpha", "beta", "gamma"}
	pool, err := NewCredentialPool(tokens)
	require.NoError(t, err)

	seenTokens := []string{}
	err = pool.WithRotationOnRateLimit(context.Background(), func(client *apiClient) error {
		seenTokens = append(seenTokens, client.bearerToken)
		return ErrRateLimited
	})

	assert.ErrorIs(t, err, ErrCredentialsExhausted)
	assert.Equal(t, tokens, seenTokens, "each credential should be attempted exactly once before exhaustion")
}

func Test_CredentialPool_RecoversAfterPartialRotation(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{"alpha", "beta"})
	require.NoError(t, err)

	seenTokens := []string{}
	err = pool.WithRotationOnRateLimit(context.Background(), func(client *apiClient) error {
		seenTokens = append(seenTokens, client.bearerToken)
		if client.bearerToken == "alpha" {
			return ErrRateLimited
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, seenTokens)

	// The rotation persists; the next operation starts on the credential
	// that last succeeded.
	err = pool.WithRotationOnRateLimit(context.Background(), func(client *apiClient) error {
		assert.Equal(t, "beta", client.bearerToken)
		return nil
	})
	assert.NoError(t, err)
}

func Test_CredentialPool_PropagatesUnexpectedErrorsWithoutRotating(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{"alpha", "beta"})
	require.NoError(t, err)

	attempts := 0
	err = pool.WithRotationOnRateLimit(context.Background(), func(client *apiClient) error {
		attempts++
		return errExpected
	})

	assert.ErrorIs(t, err, errExpected)
	assert.Equal(t, 1, attempts, "a non-rate-limit failure should not be retried")
	assert.Equal(t, "alpha", pool.activeClient().bearerToken, "a non-rate-limit failure should not rotate the pool")
}

func Test_CredentialPool_AbortsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{"alpha"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pool.WithRotationOnRateLimit(ctx, func(client *apiClient) error {
		t.Fatal("operation should never run once the context is cancelled")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_CredentialPool_ConcurrentRotationIsSafe(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{"alpha", "beta", "gamma"})
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.rotate()
			_ = pool.activeClient()
		}()
	}
	wg.Wait()

	// 8 rotations modulo 3 credentials leaves the pool on index 2.
	assert.Equal(t, "gamma", pool.activeClient().bearerToken)
}
