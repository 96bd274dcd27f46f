package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxsentry/voxsentry/internal/core"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"server error", &core.APIError{StatusCode: 500}, ClassRetryable},
		{"bad gateway", &core.APIError{StatusCode: 502}, ClassRetryable},
		{"too many requests", &core.APIError{StatusCode: 429}, ClassRetryable},
		{"not found", &core.APIError{StatusCode: 404}, ClassFatal},
		{"unauthorized", &core.APIError{StatusCode: 401}, ClassFatal},
		{"unprocessable", &core.APIError{StatusCode: 422}, ClassFatal},
		{"deadline exceeded", context.DeadlineExceeded, ClassRetryable},
		{"cancelled", context.Canceled, ClassCancelled},
		{"wrapped cancelled", fmt.Errorf("send: %w", context.Canceled), ClassCancelled},
		{"net timeout", timeoutErr{}, ClassRetryable},
		{"connection refused", errors.New("dial tcp: connection refused"), ClassRetryable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyNetError(t *testing.T) {
	var netErr net.Error = timeoutErr{}
	require.Equal(t, ClassRetryable, Classify(fmt.Errorf("send: %w", netErr)))
}

func TestNewRetryPolicyConfig(t *testing.T) {
	_, err := NewRetryPolicy(0, time.Second, time.Minute)
	require.Error(t, err)

	_, err = NewRetryPolicy(3, 0, time.Minute)
	require.Error(t, err)

	_, err = NewRetryPolicy(3, time.Minute, time.Second)
	require.Error(t, err)

	policy, err := NewRetryPolicy(3, time.Second, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 3, policy.MaxAttempts())
}

func TestShouldRetry(t *testing.T) {
	policy, err := NewRetryPolicy(3, time.Second, time.Minute)
	require.NoError(t, err)

	require.True(t, policy.ShouldRetry(ClassRetryable, 1))
	require.True(t, policy.ShouldRetry(ClassRetryable, 2))
	require.False(t, policy.ShouldRetry(ClassRetryable, 3))

	require.False(t, policy.ShouldRetry(ClassFatal, 1))
	require.False(t, policy.ShouldRetry(ClassCancelled, 1))
}

func TestBackoffDelayDoubles(t *testing.T) {
	policy, err := NewRetryPolicy(10, 100*time.Millisecond, 10*time.Second)
	require.NoError(t, err)
	policy.Rand = func() float64 { return 1 }

	require.Equal(t, 100*time.Millisecond, policy.BackoffDelay(1))
	require.Equal(t, 200*time.Millisecond, policy.BackoffDelay(2))
	require.Equal(t, 400*time.Millisecond, policy.BackoffDelay(3))
	require.Equal(t, 800*time.Millisecond, policy.BackoffDelay(4))
}

func TestBackoffDelayCapped(t *testing.T) {
	policy, err := NewRetryPolicy(10, time.Second, 5*time.Second)
	require.NoError(t, err)
	policy.Rand = func() float64 { return 1 }

	require.Equal(t, 4*time.Second, policy.BackoffDelay(3))
	require.Equal(t, 5*time.Second, policy.BackoffDelay(4))
	require.Equal(t, 5*time.Second, policy.BackoffDelay(20))
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	policy, err := NewRetryPolicy(10, time.Second, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		delay := policy.BackoffDelay(3)
		require.GreaterOrEqual(t, delay, time.Duration(0))
		require.Less(t, delay, 4*time.Second)
	}
}

func TestBackoffDelayInvalidAttempt(t *testing.T) {
	policy, err := NewRetryPolicy(3, time.Second, time.Minute)
	require.NoError(t, err)

	require.Equal(t, time.Duration(0), policy.BackoffDelay(0))
	require.Equal(t, time.Duration(0), policy.BackoffDelay(-1))
}
