package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ArgonHasher_CompareAcceptsMatchingPassword(t *testing.T) {
	t.Parallel()

	hasher := newArgon2IdHasher(1, 64, 64*1024, 1, 128)
	salt, err := randomSecret(64)
	require.NoError(t, err)

	hashed, err := hasher.GenerateHash([]byte("hunter2hunter2"), salt)
	require.NoError(t, err)

	assert.NoError(t, hasher.Compare(hashed.hash, hashed.salt, []byte("hunter2hunter2")))
	assert.Error(t, hasher.Compare(hashed.hash, hashed.salt, []byte("not-the-password")))
}

func Test_ArgonHasher_GeneratesSaltWhenMissing(t *testing.T) {
	t.Parallel()

	hasher := newArgon2IdHasher(1, 64, 64*1024, 1, 128)
	hashed, err := hasher.GenerateHash([]byte("hunter2hunter2"), []byte{})
	require.NoError(t, err)
	assert.NotEmpty(t, hashed.salt)

	assert.NoError(t, hasher.Compare(hashed.hash, hashed.salt, []byte("hunter2hunter2")))
}

func Test_RandomSecret_ProducesDistinctValues(t *testing.T) {
	t.Parallel()

	first, err := randomSecret(64)
	require.NoError(t, err)
	second, err := randomSecret(64)
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
