package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource issues "token-N" on the Nth call, or fails when fail is set.
type countingSource struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingSource) Token(context.Context) (Token, error) {
	n := c.calls.Add(1)
	if c.fail.Load() {
		return Token{}, errors.New("login refused")
	}
	return Token{AccessToken: fmt.Sprintf("token-%d", n), InstanceURL: "https://na1.example.com"}, nil
}

func TestSession_CurrentAcquiresOnce(t *testing.T) {
	src := &countingSource{}
	s := NewSession(src)
	ctx := context.Background()

	tok, gen, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok.AccessToken)
	assert.Equal(t, uint64(1), gen)

	tok, gen, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok.AccessToken)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSession_RefreshSkipsWhenAlreadyNewer(t *testing.T) {
	src := &countingSource{}
	s := NewSession(src)
	ctx := context.Background()

	_, gen, err := s.Current(ctx)
	require.NoError(t, err)

	tok, gen2, err := s.Refresh(ctx, gen)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok.AccessToken)
	assert.Equal(t, gen+1, gen2)

	// A second caller holding the stale generation gets the new token.
	tok, gen3, err := s.Refresh(ctx, gen)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok.AccessToken)
	assert.Equal(t, gen2, gen3)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestSession_ConcurrentStaleRefreshesCollapse(t *testing.T) {
	src := &countingSource{}
	s := NewSession(src)
	ctx := context.Background()

	_, gen, err := s.Current(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	tokens := make([]string, 32)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, _, err := s.Refresh(ctx, gen)
			if err == nil {
				tokens[i] = tok.AccessToken
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(2), src.calls.Load(), "one initial exchange plus one refresh")
	for _, tok := range tokens {
		assert.Equal(t, "token-2", tok)
	}
}

func TestSession_RefreshFailureBreaksSession(t *testing.T) {
	src := &countingSource{}
	s := NewSession(src, WithLoginURL("https://login.example.com"))
	ctx := context.Background()

	_, gen, err := s.Current(ctx)
	require.NoError(t, err)

	src.fail.Store(true)
	_, _, err = s.Refresh(ctx, gen)
	require.Error(t, err)
	assert.True(t, IsRefreshFailed(err))
	assert.Contains(t, err.Error(), "login refused")
	assert.Contains(t, err.Error(), "login=https://login.example.com")

	// Broken: no further exchanges until Reconnect.
	calls := src.calls.Load()
	_, _, err = s.Current(ctx)
	assert.True(t, IsRefreshFailed(err))
	_, _, err = s.Refresh(ctx, gen)
	assert.True(t, IsRefreshFailed(err))
	assert.Equal(t, calls, src.calls.Load())
	assert.Error(t, s.Broken())

	src.fail.Store(false)
	require.NoError(t, s.Reconnect(ctx))
	assert.NoError(t, s.Broken())

	tok, _, err := s.Current(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
}

func TestSession_CancelledRefreshLeavesSessionUsable(t *testing.T) {
	var calls atomic.Int32
	s := NewSession(SourceFunc(func(ctx context.Context) (Token, error) {
		if err := ctx.Err(); err != nil {
			return Token{}, err
		}
		n := calls.Add(1)
		return Token{AccessToken: fmt.Sprintf("token-%d", n), InstanceURL: "https://na1.example.com"}, nil
	}))

	_, gen, err := s.Current(context.Background())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Refresh(cancelled, gen)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRefreshFailed(err))
	assert.NoError(t, s.Broken())

	// Another caller still gets the current token and can refresh.
	tok, gotGen, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok.AccessToken)
	assert.Equal(t, gen, gotGen)

	tok, _, err = s.Refresh(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok.AccessToken)
}

func TestSession_DeadlineDuringRefreshIsNotFatal(t *testing.T) {
	s := NewSession(SourceFunc(func(context.Context) (Token, error) {
		return Token{}, fmt.Errorf("post token: %w", context.DeadlineExceeded)
	}))

	_, _, err := s.Current(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsRefreshFailed(err))
	assert.NoError(t, s.Broken())
}

func TestSession_InvalidTokenIsRefreshFailure(t *testing.T) {
	s := NewSession(SourceFunc(func(context.Context) (Token, error) {
		return Token{AccessToken: "abc"}, nil
	}))
	_, _, err := s.Current(context.Background())
	assert.True(t, IsRefreshFailed(err))
	assert.Equal(t, uint64(0), s.Generation())
}
