package room

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const codeCharsetForTest = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func TestGenerateCodeFormat(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < 100; i++ {
		code := GenerateCode(rng)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeCharsetForTest, c), "unexpected character %q in code %s", c, code)
		}
	}
}

func TestGenerateCodeDeterministicGivenSeed(t *testing.T) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))

	for i := 0; i < 10; i++ {
		assert.Equal(t, GenerateCode(a), GenerateCode(b))
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[GenerateCode(rng)] = true
	}

	// 36^6 candidates; 50 draws colliding would mean a broken generator.
	assert.Greater(t, len(seen), 45)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	fresh := &Room{CreatedAt: now.Add(-time.Hour)}
	assert.False(t, fresh.Expired(now))

	almost := &Room{CreatedAt: now.Add(-TTL + time.Minute)}
	assert.False(t, almost.Expired(now))

	stale := &Room{CreatedAt: now.Add(-TTL - time.Minute)}
	assert.True(t, stale.Expired(now))
}

func TestHasMemberAndIsHost(t *testing.T) {
	host := uuid.New()
	member := uuid.New()
	outsider := uuid.New()

	r := &Room{HostID: host, MemberIDs: []uuid.UUID{host, member}}

	assert.True(t, r.IsHost(host))
	assert.False(t, r.IsHost(member))
	assert.True(t, r.HasMember(host))
	assert.True(t, r.HasMember(member))
	assert.False(t, r.HasMember(outsider))
}
