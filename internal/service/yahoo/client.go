package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"

	"github.com/guregu/null/v6"
)

// VolumeSuffix selects the volume array instead of prices: "^KS11@volume".
const VolumeSuffix = "@volume"

// Requester is the subset of the shared HTTP client the adapter needs.
type Requester interface {
	SendAndParse(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error
}

// Client fetches daily history from the Yahoo Finance chart API.
type Client struct {
	http    Requester
	baseURL string
	codes   map[string]struct{}
	log     *applogger.Logger
	now     func() time.Time
}

// New creates a Yahoo adapter accepting only the given codes.
func New(hc Requester, baseURL string, codes []string, l *applogger.Logger) *Client {
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
		codes:   set,
		log:     l.With(applogger.String("source", string(models.SourceYahoo))),
		now:     time.Now,
	}
}

func (c *Client) Source() models.Source { return models.SourceYahoo }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close  []null.Float `json:"close"`
			Volume []null.Float `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []null.Float `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// Fetch returns daily values for code within [start, end].
func (c *Client) Fetch(ctx context.Context, code string, start, end time.Time) (*models.RawSeries, error) {
	start, end = util.Day(start), util.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("yahoo %s: %w", code, models.ErrInvalidRange)
	}
	if _, ok := c.codes[code]; !ok {
		return nil, fmt.Errorf("yahoo %s: %w", code, models.ErrUnknownIndicator)
	}

	ticker, volume := strings.CutSuffix(code, VolumeSuffix)
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	q.Set("includeAdjustedClose", "true")

	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker),
		QueryParams: q,
		Headers:     map[string]string{"Accept": "application/json"},
	}, &resp)
	if err != nil {
		return nil, c.classify(code, err)
	}
	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("yahoo %s: %s: %w", code, resp.Chart.Error.Description, models.ErrUnknownIndicator)
		}
		return nil, fmt.Errorf("yahoo %s: %s: %w", code, resp.Chart.Error.Description, models.ErrSourceUnavailable)
	}

	series := &models.RawSeries{Symbol: code, Source: models.SourceYahoo, Points: []models.Point{}}
	if len(resp.Chart.Result) > 0 {
		today := util.Day(c.now())
		if today.Before(end) {
			end = today
		}
		series.Points = extractPoints(resp.Chart.Result[0], volume, start, end)
	}

	c.log.Debug("series fetched",
		applogger.String("code", code),
		applogger.Int("points", series.Len()),
	)
	if series.Len() == 0 {
		return series, fmt.Errorf("yahoo %s: %w", code, models.ErrEmptyResult)
	}
	return series, nil
}

func extractPoints(r chartResult, volume bool, start, end time.Time) []models.Point {
	if len(r.Indicators.Quote) == 0 {
		return []models.Point{}
	}
	quote := r.Indicators.Quote[0]
	var adj []null.Float
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	loc := time.FixedZone("exchange", int(r.Meta.GMTOffset))
	byDate := make(map[time.Time]float64, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		var v null.Float
		switch {
		case volume:
			v = at(quote.Volume, i)
		case at(adj, i).Valid:
			v = at(adj, i)
		default:
			v = at(quote.Close, i)
		}
		if !v.Valid {
			continue
		}
		d := util.Day(time.Unix(ts, 0).In(loc))
		if d.Before(start) || d.After(end) {
			continue
		}
		byDate[d] = v.Float64
	}

	pts := make([]models.Point, 0, len(byDate))
	for d, v := range byDate {
		pts = append(pts, models.Point{Date: d, Value: v})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	return pts
}

func at(vals []null.Float, i int) null.Float {
	if i < len(vals) {
		return vals[i]
	}
	return null.Float{}
}

func (c *Client) classify(code string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("yahoo %s: %w: %w", code, models.ErrSourceUnavailable, err)
	}
	if xhttp.IsStatus(err, http.StatusNotFound) || xhttp.BodyContains(err, `"Not Found"`) {
		return fmt.Errorf("yahoo %s: %w", code, models.ErrUnknownIndicator)
	}
	c.log.Warn("yahoo request failed", applogger.String("code", code), applogger.Error(err))
	return fmt.Errorf("yahoo %s: %w: %w", code, models.ErrSourceUnavailable, err)
}
