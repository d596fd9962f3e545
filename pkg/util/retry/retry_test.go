package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		if n < 3 {
			return errors.New("not yet")
		}
		return nil
	}, Attempts(5), Sleep(time.Millisecond))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDoReachesMaxAttempts(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		return errors.New("always")
	}, Attempts(3), Sleep(time.Millisecond))
	assert.EqualError(t, err, "always")
	assert.Equal(t, 3, n)
}

func TestDoUnrecoverable(t *testing.T) {
	n := 0
	cause := errors.New("fatal")
	err := Do(context.Background(), func() error {
		n++
		return Unrecoverable(cause)
	}, Attempts(5), Sleep(time.Millisecond))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, 1, n)
}

func TestDoRetryErr(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		return errors.New("skip")
	}, Attempts(5), Sleep(time.Millisecond), RetryErr(func(error) bool { return false }))
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithCancel(context.Background())
	n := 0
	err = Do(ctx, func() error {
		n++
		cancel()
		return errors.New("first")
	}, Attempts(0), Sleep(time.Second))
	assert.EqualError(t, err, "first")
	assert.Equal(t, 1, n)
}

func TestOptions(t *testing.T) {
	c := newDefaultConfig()
	Sleep(2 * time.Second)(c)
	assert.Equal(t, 4*time.Second, c.maxSleepTime)
	MaxSleepTime(time.Second)(c)
	assert.Equal(t, 4*time.Second, c.maxSleepTime)
	MaxSleepTime(10 * time.Second)(c)
	assert.Equal(t, 10*time.Second, c.maxSleepTime)
}
