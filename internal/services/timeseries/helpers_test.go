package timeseries

import (
	"time"

	"MacroPull/internal/domain/models"

	"github.com/guregu/null/v6"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func raw(symbol string, pts ...interface{}) models.RawSeries {
	s := models.RawSeries{Symbol: symbol, Source: models.SourceYahoo, Points: []models.Point{}}
	for i := 0; i+1 < len(pts); i += 2 {
		s.Points = append(s.Points, models.Point{Date: day(pts[i].(string)), Value: toFloat(pts[i+1])})
	}
	return s
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case float64:
		return x
	}
	panic("unsupported value")
}

func f(v float64) null.Float { return null.FloatFrom(v) }

var absent = null.Float{}
