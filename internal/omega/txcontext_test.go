package omega

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectExtractRoundTrip(t *testing.T) {
	h := http.Header{}
	tc := TxContext{GlobalTxID: "g1", LocalTxID: "l1", Category: "biz"}
	Inject(h, tc)

	got, ok := Extract(h)
	require.True(t, ok)
	assert.Equal(t, tc, got)

	_, ok = Extract(http.Header{HeaderLocalTxID: []string{"l1"}})
	assert.False(t, ok, "a local id alone is not a saga")
}

func TestFromContextRequiresGlobalID(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(NewContext(context.Background(), TxContext{LocalTxID: "l"}))
	assert.False(t, ok)

	tc, ok := FromContext(NewContext(context.Background(), TxContext{GlobalTxID: "g"}))
	assert.True(t, ok)
	assert.Equal(t, "g", tc.GlobalTxID)
}

func TestTransportPropagatesHeaders(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{}}
	ctx := NewContext(context.Background(), TxContext{GlobalTxID: "g1", LocalTxID: "l1"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, "g1", seen.Get(HeaderGlobalTxID))
	assert.Equal(t, "l1", seen.Get(HeaderLocalTxID))
	assert.Empty(t, seen.Get(HeaderCategory))
	assert.Empty(t, req.Header.Get(HeaderGlobalTxID), "caller's request must stay untouched")
}

func TestTransportWithoutContextAddsNothing(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{}}
	res, err := client.Get(srv.URL)
	require.NoError(t, err)
	res.Body.Close()
	assert.Empty(t, seen.Get(HeaderGlobalTxID))
}

func TestMiddlewareStoresTxContext(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/", func(c echo.Context) error {
		fromReq, ok := FromContext(c.Request().Context())
		require.True(t, ok)
		fromEcho, ok := TxContextFromEcho(c)
		require.True(t, ok)
		assert.Equal(t, fromReq, fromEcho)
		return c.String(http.StatusOK, fromReq.GlobalTxID)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderGlobalTxID, "g9")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "g9", rec.Body.String())
}
