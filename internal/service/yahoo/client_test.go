package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two sessions at 09:00 KST (gmtoffset 32400) = 00:00 UTC, a null close on
// the third day and a duplicate of the second day.
const chartFixture = `{"chart":{"result":[{
  "meta":{"symbol":"^KS11","gmtoffset":32400},
  "timestamp":[1704153600,1704240000,1704326400,1704240060],
  "indicators":{
    "quote":[{"close":[2669.8,2607.3,null,2608.0],"volume":[4120000,5100000,null,null]}],
    "adjclose":[{"adjclose":[2669.81,null,null,2607.9]}]
  }}],"error":null}}`

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(xhttp.NewClient(), srv.URL, []string{"^KS11", "^KS11@volume", "NOPE"}, nil)
	c.now = func() time.Time { return day("2024-12-31") }
	return c
}

func TestFetchPrefersAdjustedClose(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^KS11", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "true", r.URL.Query().Get("includeAdjustedClose"))
		_, _ = w.Write([]byte(chartFixture))
	})

	s, err := c.Fetch(context.Background(), "^KS11", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceYahoo, s.Source)
	require.Len(t, s.Points, 2)
	assert.Equal(t, day("2024-01-02"), s.Points[0].Date)
	assert.Equal(t, 2669.81, s.Points[0].Value)
	// the later duplicate wins
	assert.Equal(t, day("2024-01-03"), s.Points[1].Date)
	assert.Equal(t, 2607.9, s.Points[1].Value)
}

func TestFetchVolume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartFixture))
	})

	s, err := c.Fetch(context.Background(), "^KS11@volume", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, s.Points, 2)
	assert.Equal(t, 4120000.0, s.Points[0].Value)
	// a null duplicate does not erase the earlier observation
	assert.Equal(t, 5100000.0, s.Points[1].Value)
}

func TestFetchClipsRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartFixture))
	})

	s, err := c.Fetch(context.Background(), "^KS11", day("2024-01-03"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, s.Points, 1)
	assert.Equal(t, day("2024-01-03"), s.Points[0].Date)
}

func TestFetchErrors(t *testing.T) {
	notFound := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}
	c := newTestClient(t, notFound)

	_, err := c.Fetch(context.Background(), "NOPE", day("2024-01-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, models.ErrUnknownIndicator)

	_, err = c.Fetch(context.Background(), "UNLISTED", day("2024-01-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, models.ErrUnknownIndicator)

	_, err = c.Fetch(context.Background(), "^KS11", day("2024-02-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err = down.Fetch(context.Background(), "^KS11", day("2024-01-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestFetchEmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`))
	})

	s, err := c.Fetch(context.Background(), "^KS11", day("2024-01-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, models.ErrEmptyResult)
	require.NotNil(t, s)
	assert.Empty(t, s.Points)
}
