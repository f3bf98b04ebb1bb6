package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfconnect/internal/auth"
	"github.com/roach88/sfconnect/internal/testutil"
)

const invalidSession = `[{"message":"Session expired or invalid","errorCode":"INVALID_SESSION_ID"}]`

type fixture struct {
	gw        *Gateway
	responder *testutil.Responder
	refreshes *atomic.Int32
	failLogin *atomic.Bool
}

// newFixture serves responses from a scripted responder; the token source
// issues "token-N" on its Nth exchange.
func newFixture(t *testing.T, responses ...testutil.Response) *fixture {
	t.Helper()
	responder := testutil.NewResponder(responses...)
	srv := httptest.NewServer(responder)
	t.Cleanup(srv.Close)

	var calls atomic.Int32
	var fail atomic.Bool
	src := auth.SourceFunc(func(context.Context) (auth.Token, error) {
		n := calls.Add(1)
		if fail.Load() {
			return auth.Token{}, errors.New("login refused")
		}
		return auth.Token{AccessToken: fmt.Sprintf("token-%d", n), InstanceURL: srv.URL}, nil
	})

	gw := New(auth.NewSession(src),
		WithHTTPClient(srv.Client()),
		WithIDGenerator(testutil.NewFixedIDGenerator("req-1")))
	return &fixture{gw: gw, responder: responder, refreshes: &calls, failLogin: &fail}
}

func TestGateway_Success(t *testing.T) {
	f := newFixture(t, testutil.Response{Status: http.StatusOK, Body: `{"done":true}`})

	var got string
	err := f.gw.Get(context.Background(), "services/data/v27.0/query/?q=SELECT+Id+from+User",
		func(body []byte) error {
			got = string(body)
			return nil
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"done":true}`, got)

	reqs := f.responder.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/services/data/v27.0/query/", reqs[0].Path)
	assert.Equal(t, "q=SELECT+Id+from+User", reqs[0].RawQuery)
	assert.Equal(t, "Bearer token-1", reqs[0].Authorization)
	assert.Equal(t, "req-1", reqs[0].RequestID)
}

func TestGateway_UnauthorizedOnceThenSuccess(t *testing.T) {
	f := newFixture(t,
		testutil.Response{Status: http.StatusUnauthorized, Body: invalidSession},
		testutil.Response{Status: http.StatusCreated, Body: `{"id":"005A","success":true}`},
	)

	handled := 0
	err := f.gw.Post(context.Background(), "/services/data/v27.0/sobjects/User/",
		map[string]any{"Username": "bob"},
		func(body []byte) error {
			handled++
			return nil
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, handled, "success handler runs exactly once")
	assert.Equal(t, int32(2), f.refreshes.Load(), "initial exchange plus exactly one refresh")

	reqs := f.responder.Requests()
	require.Len(t, reqs, 2, "exactly one replay")
	assert.Equal(t, "Bearer token-1", reqs[0].Authorization)
	assert.Equal(t, "Bearer token-2", reqs[1].Authorization)
	assert.Equal(t, reqs[0].Body, reqs[1].Body, "replay sends the identical payload")
	assert.Equal(t, reqs[0].RequestID, reqs[1].RequestID)
	assert.JSONEq(t, `{"Username":"bob"}`, reqs[1].Body)
}

func TestGateway_RequestIDPerCall(t *testing.T) {
	f := newFixture(t,
		testutil.Response{Status: http.StatusOK, Body: `{}`},
		testutil.Response{Status: http.StatusUnauthorized, Body: invalidSession},
		testutil.Response{Status: http.StatusOK, Body: `{}`},
	)
	f.gw.ids = testutil.NewSequenceGenerator("req-a", "req-b")

	ctx := context.Background()
	require.NoError(t, f.gw.Get(ctx, "/first", nil, nil))
	require.NoError(t, f.gw.Get(ctx, "/second", nil, nil))

	reqs := f.responder.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "req-a", reqs[0].RequestID)
	assert.Equal(t, "req-b", reqs[1].RequestID)
	assert.Equal(t, "req-b", reqs[2].RequestID, "a replay keeps the id of its call")
}

func TestGateway_UnauthorizedTwiceFails(t *testing.T) {
	f := newFixture(t, testutil.Response{Status: http.StatusUnauthorized, Body: invalidSession})

	handled := false
	err := f.gw.Get(context.Background(), "/services/data/v27.0", func([]byte) error {
		handled = true
		return nil
	}, nil)
	require.Error(t, err)

	assert.False(t, handled)
	assert.True(t, IsUnauthorized(err))
	assert.True(t, IsRequestFailed(err))
	assert.True(t, HasAPIErrorCode(err, "INVALID_SESSION_ID"))
	assert.Equal(t, int32(2), f.refreshes.Load(), "exactly one refresh attempt")
	assert.Len(t, f.responder.Requests(), 2, "no loop after the replay")

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Status)
}

func TestGateway_OtherFailures(t *testing.T) {
	dup := `[{"message":"Duplicate Username.","errorCode":"DUPLICATE_USERNAME","fields":["Username"]}]`

	t.Run("re-raised without an error handler", func(t *testing.T) {
		f := newFixture(t, testutil.Response{Status: http.StatusBadRequest, Body: dup})
		err := f.gw.Post(context.Background(), "/x", map[string]any{}, nil, nil)
		require.Error(t, err)

		var re *RequestError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, ErrCodeRequestFailed, re.Code)
		assert.Equal(t, http.StatusBadRequest, re.Status)
		assert.Equal(t, []APIError{{ErrorCode: "DUPLICATE_USERNAME", Message: "Duplicate Username.", Fields: []string{"Username"}}}, re.APIErrors)
		assert.Contains(t, err.Error(), "DUPLICATE_USERNAME: Duplicate Username.")
		assert.Len(t, f.responder.Requests(), 1, "non-401 failures are not retried")
		assert.Equal(t, int32(1), f.refreshes.Load())
	})

	t.Run("routed to the error handler", func(t *testing.T) {
		f := newFixture(t, testutil.Response{Status: http.StatusBadRequest, Body: dup})
		var seen *RequestError
		err := f.gw.Post(context.Background(), "/x", map[string]any{}, nil, func(re *RequestError) error {
			seen = re
			return nil
		})
		require.NoError(t, err, "the handler swallowed the failure")
		require.NotNil(t, seen)
		assert.True(t, seen.HasAPIErrorCode("DUPLICATE_USERNAME"))
	})

	t.Run("error handler result is returned", func(t *testing.T) {
		f := newFixture(t, testutil.Response{Status: http.StatusInternalServerError, Body: `oops`})
		sentinel := errors.New("mapped")
		err := f.gw.Delete(context.Background(), "/x", nil, func(*RequestError) error { return sentinel })
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("unparseable body keeps raw text", func(t *testing.T) {
		f := newFixture(t, testutil.Response{Status: http.StatusInternalServerError, Body: `oops`})
		err := f.gw.Get(context.Background(), "/x", nil, nil)
		var re *RequestError
		require.ErrorAs(t, err, &re)
		assert.Empty(t, re.APIErrors)
		assert.Equal(t, "oops", string(re.Body))
	})
}

func TestGateway_RefreshFailureIsFatal(t *testing.T) {
	f := newFixture(t, testutil.Response{Status: http.StatusUnauthorized, Body: invalidSession})
	ctx := context.Background()

	f.failLogin.Store(false)
	_, _, err := f.gw.Session().Current(ctx)
	require.NoError(t, err)

	f.failLogin.Store(true)
	errHandlerCalled := false
	err = f.gw.Get(ctx, "/x", nil, func(*RequestError) error {
		errHandlerCalled = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, auth.IsRefreshFailed(err))
	assert.False(t, errHandlerCalled, "refresh failures bypass the error handler")

	// Subsequent calls fail fast without touching the network.
	sent := len(f.responder.Requests())
	err = f.gw.Get(ctx, "/y", nil, nil)
	assert.True(t, auth.IsRefreshFailed(err))
	assert.Len(t, f.responder.Requests(), sent)

	f.failLogin.Store(false)
	require.NoError(t, f.gw.Session().Reconnect(ctx))
	err = f.gw.Get(ctx, "/z", nil, nil)
	assert.True(t, IsUnauthorized(err), "reconnected session reaches the server again")
	assert.Greater(t, len(f.responder.Requests()), sent)
}

func TestGateway_SuccessHandlerError(t *testing.T) {
	f := newFixture(t, testutil.Response{Status: http.StatusOK, Body: `{}`})
	sentinel := errors.New("bad body")
	err := f.gw.Get(context.Background(), "/x", func([]byte) error { return sentinel }, nil)
	assert.ErrorIs(t, err, sentinel)
}

func TestGateway_UnencodableBody(t *testing.T) {
	f := newFixture(t)
	err := f.gw.Post(context.Background(), "/x", map[string]any{"c": make(chan int)}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode POST /x body")
	assert.Empty(t, f.responder.Requests())
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://na1.example.com/services/data", resolve("https://na1.example.com/", "/services/data"))
	assert.Equal(t, "https://na1.example.com/services/data", resolve("https://na1.example.com", "services/data"))
	assert.Equal(t, "https://other.example.com/x", resolve("https://na1.example.com", "https://other.example.com/x"))
}
