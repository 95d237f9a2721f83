package krx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const (
	jsonPath    = "/comm/bldAttendant/getJsonData.cmd"
	investorBld = "dbms/MDC/STAT/standard/MDCSTAT02203"
	// The portal rejects long ranges, so requests are split into windows.
	maxWindow = 365 * 24 * time.Hour
	// Windows fetched in parallel per NetFlow call.
	windowConcurrency = 4
)

// Investor groups mapped to their net-buy value column.
var investorColumns = map[string]string{
	"institution": "TRDVAL1",
	"other_corp":  "TRDVAL2",
	"individual":  "TRDVAL3",
	"foreign":     "TRDVAL4",
}

var markets = map[string]bool{"STK": true, "KSQ": true}

// Requester is the subset of the shared HTTP client the provider needs.
type Requester interface {
	SendAndParse(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error
}

// Client reads daily net buying by investor group from the KRX data portal.
type Client struct {
	http    Requester
	baseURL string
	log     *applogger.Logger
}

// New creates a KRX flow provider.
func New(hc Requester, baseURL string, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     l.With(applogger.String("provider", "krx")),
	}
}

func (c *Client) Name() string { return "krx" }

// NetFlow returns daily net buy values in won for investor on market
// (STK = KOSPI, KSQ = KOSDAQ) within [start, end].
func (c *Client) NetFlow(ctx context.Context, market, investor string, start, end time.Time) ([]models.Point, error) {
	col, ok := investorColumns[investor]
	if !ok || !markets[market] {
		return nil, fmt.Errorf("krx %s/%s: %w", market, investor, models.ErrUnknownIndicator)
	}
	start, end = util.Day(start), util.Day(end)
	if end.Before(start) {
		return nil, models.ErrInvalidRange
	}

	var windows [][2]time.Time
	for from := start; !from.After(end); {
		to := from.Add(maxWindow)
		if to.After(end) {
			to = end
		}
		windows = append(windows, [2]time.Time{from, to})
		from = to.AddDate(0, 0, 1)
	}

	parts := make([]map[time.Time]float64, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(windowConcurrency)
	for i, w := range windows {
		g.Go(func() error {
			parts[i] = make(map[time.Time]float64)
			return c.fetchWindow(gctx, market, col, w[0], w[1], parts[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]float64)
	for _, part := range parts {
		for d, v := range part {
			byDate[d] = v
		}
	}

	pts := make([]models.Point, 0, len(byDate))
	for d, v := range byDate {
		pts = append(pts, models.Point{Date: d, Value: v})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	return pts, nil
}

func (c *Client) fetchWindow(ctx context.Context, market, col string, from, to time.Time, into map[time.Time]float64) error {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + jsonPath,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Referer":      c.baseURL + "/contents/MDC/MDI/mdiLoader/index.cmd",
		},
		Body: map[string]string{
			"bld":       investorBld,
			"mktId":     market,
			"strtDd":    from.Format("20060102"),
			"endDd":     to.Format("20060102"),
			"inqTpCd":   "2",
			"trdVolVal": "2",
			"askBid":    "3",
			"money":     "1",
		},
	}, &body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("krx %s: %w: %w", market, models.ErrSourceUnavailable, err)
		}
		c.log.Warn("krx request failed", applogger.String("market", market), applogger.Error(err))
		return fmt.Errorf("krx %s: %w: %w", market, models.ErrSourceUnavailable, err)
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("krx %s: malformed response: %w", market, models.ErrSourceUnavailable)
	}

	var parseErr error
	gjson.GetBytes(body, "output").ForEach(func(_, row gjson.Result) bool {
		d, err := util.ParseDate(row.Get("TRD_DD").String())
		if err != nil {
			return true
		}
		raw := strings.ReplaceAll(strings.TrimSpace(row.Get(col).String()), ",", "")
		if raw == "" || raw == "-" {
			return true
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			parseErr = fmt.Errorf("krx %s %s: %w", market, raw, err)
			return false
		}
		into[d] = v.InexactFloat64()
		return true
	})
	if parseErr != nil {
		return fmt.Errorf("%w: %w", models.ErrSourceUnavailable, parseErr)
	}
	return nil
}
