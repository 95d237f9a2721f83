package fred

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"
)

// missingValue is how FRED marks a date without an observation.
const missingValue = "."

// Requester is the subset of the shared HTTP client the adapter needs.
type Requester interface {
	SendAndParse(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error
}

// Client fetches series observations from the FRED API.
type Client struct {
	http    Requester
	baseURL string
	apiKey  string
	codes   map[string]struct{}
	log     *applogger.Logger
	now     func() time.Time
}

// New creates a FRED adapter. An empty apiKey yields a client whose fetches
// fail with ErrSourceUnavailable without touching the network.
func New(hc Requester, baseURL, apiKey string, codes []string, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		codes:   set,
		log:     l.With(applogger.String("source", string(models.SourceFRED))),
		now:     time.Now,
	}
}

func (c *Client) Source() models.Source { return models.SourceFRED }

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Fetch returns observations of series code within [start, end].
func (c *Client) Fetch(ctx context.Context, code string, start, end time.Time) (*models.RawSeries, error) {
	start, end = util.Day(start), util.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("fred %s: %w", code, models.ErrInvalidRange)
	}
	if _, ok := c.codes[code]; !ok {
		return nil, fmt.Errorf("fred %s: %w", code, models.ErrUnknownIndicator)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("fred %s: api key not configured: %w", code, models.ErrSourceUnavailable)
	}

	var resp observationsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/fred/series/observations",
		QueryParams: map[string][]string{
			"series_id":         {code},
			"api_key":           {c.apiKey},
			"file_type":         {"json"},
			"observation_start": {util.FormatDate(start)},
			"observation_end":   {util.FormatDate(end)},
		},
	}, &resp)
	if err != nil {
		return nil, c.classify(code, err)
	}

	today := util.Day(c.now())
	byDate := make(map[time.Time]float64, len(resp.Observations))
	for _, o := range resp.Observations {
		if o.Value == missingValue || o.Value == "" {
			continue
		}
		d, err := time.Parse(util.DateLayout, o.Date)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) || d.After(today) {
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		byDate[d] = v
	}

	series := &models.RawSeries{Symbol: code, Source: models.SourceFRED, Points: make([]models.Point, 0, len(byDate))}
	for d, v := range byDate {
		series.Points = append(series.Points, models.Point{Date: d, Value: v})
	}
	sort.Slice(series.Points, func(i, j int) bool { return series.Points[i].Date.Before(series.Points[j].Date) })

	c.log.Debug("series fetched", applogger.String("code", code), applogger.Int("points", series.Len()))
	if series.Len() == 0 {
		return series, fmt.Errorf("fred %s: %w", code, models.ErrEmptyResult)
	}
	return series, nil
}

func (c *Client) classify(code string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("fred %s: %w: %w", code, models.ErrSourceUnavailable, err)
	case xhttp.IsStatus(err, http.StatusBadRequest) && xhttp.BodyContains(err, "api_key"):
		c.log.Warn("fred rejected api key", applogger.String("code", code))
		return fmt.Errorf("fred %s: invalid api key: %w", code, models.ErrSourceUnavailable)
	case xhttp.IsStatus(err, http.StatusBadRequest), xhttp.IsStatus(err, http.StatusNotFound):
		return fmt.Errorf("fred %s: %w", code, models.ErrUnknownIndicator)
	}
	c.log.Warn("fred request failed", applogger.String("code", code), applogger.Error(err))
	return fmt.Errorf("fred %s: %w: %w", code, models.ErrSourceUnavailable, err)
}
