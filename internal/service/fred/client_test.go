package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newTestClient(t *testing.T, key string, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c := New(xhttp.NewClient(), srv.URL, key, []string{"DFF", "T10YIE", "BOGUS"}, nil)
	c.now = func() time.Time { return day("2024-12-31") }
	return c, &calls
}

func TestFetchSkipsMissingMarkers(t *testing.T) {
	c, _ := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/fred/series/observations", r.URL.Path)
		assert.Equal(t, "DFF", q.Get("series_id"))
		assert.Equal(t, "k", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("file_type"))
		assert.Equal(t, "2024-01-01", q.Get("observation_start"))
		assert.Equal(t, "2024-01-05", q.Get("observation_end"))
		_, _ = w.Write([]byte(`{"observations":[
			{"date":"2024-01-02","value":"5.33"},
			{"date":"2024-01-03","value":"."},
			{"date":"2024-01-04","value":"5.32"}]}`))
	})

	s, err := c.Fetch(context.Background(), "DFF", day("2024-01-01"), day("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, []models.Point{
		{Date: day("2024-01-02"), Value: 5.33},
		{Date: day("2024-01-04"), Value: 5.32},
	}, s.Points)
}

func TestFetchWithoutKeyDoesNoIO(t *testing.T) {
	c, calls := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Fetch(context.Background(), "DFF", day("2024-01-01"), day("2024-01-05"))
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestFetchBadKeyIsSourceUnavailable(t *testing.T) {
	c, _ := newTestClient(t, "wrong", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request.  The value for variable api_key is not a 32 character alpha-numeric lower-case string."}`))
	})

	_, err := c.Fetch(context.Background(), "DFF", day("2024-01-01"), day("2024-01-05"))
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestFetchUnknownSeries(t *testing.T) {
	c, _ := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request.  The series does not exist."}`))
	})

	_, err := c.Fetch(context.Background(), "BOGUS", day("2024-01-01"), day("2024-01-05"))
	assert.ErrorIs(t, err, models.ErrUnknownIndicator)

	_, err = c.Fetch(context.Background(), "NOT_IN_CATALOG", day("2024-01-01"), day("2024-01-05"))
	assert.ErrorIs(t, err, models.ErrUnknownIndicator)
}

func TestFetchAllMissingIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observations":[{"date":"2024-01-02","value":"."}]}`))
	})

	s, err := c.Fetch(context.Background(), "T10YIE", day("2024-01-01"), day("2024-01-05"))
	assert.ErrorIs(t, err, models.ErrEmptyResult)
	require.NotNil(t, s)
	assert.Empty(t, s.Points)
}
