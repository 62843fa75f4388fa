package chessgame_services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow_AllowsUpToBucketLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("0xaaa", BucketSetUsername), "attempt %d should be allowed", i)
	}

	assert.False(t, rl.Allow("0xaaa", BucketSetUsername), "6th attempt within the window should be rejected")
}

func TestRateLimiter_Allow_SeparatesSubjects(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("0xaaa", BucketSetUsername))
	}

	assert.True(t, rl.Allow("0xbbb", BucketSetUsername), "a different subject has its own window")
}

func TestRateLimiter_Allow_SeparatesBuckets(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("0xaaa", BucketSetUsername))
	}

	assert.True(t, rl.Allow("0xaaa", BucketChat), "a different bucket has its own window")
}

func TestRateLimiter_Allow_ResetsAfterWindowExpires(t *testing.T) {
	rl := NewRateLimiter()
	current := time.Now()
	rl.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("0xaaa", BucketSetUsername))
	}
	assert.False(t, rl.Allow("0xaaa", BucketSetUsername))

	current = current.Add(time.Minute + time.Second)

	assert.True(t, rl.Allow("0xaaa", BucketSetUsername), "a new window should open once the old one expires")
}

func TestRateLimiter_Allow_UnknownBucketFallsBackToGeneral(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 30; i++ {
		assert.True(t, rl.Allow("0xaaa", "unrecognized-bucket"))
	}
	assert.False(t, rl.Allow("0xaaa", "unrecognized-bucket"))
}
