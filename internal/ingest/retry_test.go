package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, Initial: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, 800*time.Millisecond, p.Delay(4))
	assert.Equal(t, time.Second, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(60))
}

func TestRetryPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultRetryPolicy().Validate())
	require.NoError(t, RetryPolicy{}.Validate())
	assert.Error(t, RetryPolicy{MaxRetries: -1}.Validate())
	assert.Error(t, RetryPolicy{MaxRetries: 1}.Validate())
	assert.Error(t, RetryPolicy{MaxRetries: 1, Initial: time.Second, Max: time.Millisecond}.Validate())
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
