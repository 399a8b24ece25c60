package httpretry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryAfter(t *testing.T) {
	resp := func(v string) *http.Response {
		r := &http.Response{Header: http.Header{}}
		if v != "" {
			r.Header.Set("Retry-After", v)
		}
		return r
	}
	assert.Equal(t, 3*time.Second, RetryAfter(resp("3")))
	assert.Zero(t, RetryAfter(resp("")))
	assert.Zero(t, RetryAfter(resp("soon")))
	assert.Zero(t, RetryAfter(resp(time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat))))

	d := RetryAfter(resp(time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)))
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}

func TestBackoff_DoublesWithJitter(t *testing.T) {
	for i := 0; i < 4; i++ {
		base := time.Duration(1<<i) * 100 * time.Millisecond
		d := Backoff(100*time.Millisecond, i)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, time.Hour))
	assert.True(t, Sleep(context.Background(), 0))
}
