package usecase

import (
	"fmt"
	"sort"
	"strings"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/service/flow"
	"MacroPull/internal/service/yahoo"
	"MacroPull/pkg/config"
)

// VolumeSuffix names the volume companion of an equity indicator.
const VolumeSuffix = "_Volume"

// UnknownIndicatorsError lists requested names that are not in the catalog.
type UnknownIndicatorsError struct {
	Names []string
}

func (e *UnknownIndicatorsError) Error() string {
	return fmt.Sprintf("%v: %s", models.ErrUnknownIndicator, strings.Join(e.Names, ", "))
}

func (e *UnknownIndicatorsError) Unwrap() error { return models.ErrUnknownIndicator }

// Catalog maps display names onto a source and provider code.
type Catalog struct {
	entries []models.Indicator
	byName  map[string]models.Indicator
}

// NewCatalog builds the catalog from configured sources. Entries are ordered
// by source (yahoo, fred, krx) and then by name.
func NewCatalog(cfg *config.Config) *Catalog {
	var entries []models.Indicator
	labels := cfg.Sources.Labels

	add := func(src models.Source, names map[string]string) {
		keys := make([]string, 0, len(names))
		for k := range names {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, name := range keys {
			entries = append(entries, models.Indicator{Name: name, Label: labels[name], Source: src, Code: names[name]})
		}
	}

	equities := make(map[string]string, len(cfg.Sources.Yahoo.Tickers)+len(cfg.Sources.Yahoo.Volumes))
	for name, ticker := range cfg.Sources.Yahoo.Tickers {
		equities[name] = ticker
	}
	for _, name := range cfg.Sources.Yahoo.Volumes {
		if ticker, ok := cfg.Sources.Yahoo.Tickers[name]; ok {
			equities[name+VolumeSuffix] = ticker + yahoo.VolumeSuffix
		}
	}
	add(models.SourceYahoo, equities)
	add(models.SourceFRED, cfg.Sources.FRED.Series)

	flows := make(map[string]string, len(cfg.Sources.KRX.Flows))
	for name, f := range cfg.Sources.KRX.Flows {
		flows[name] = flow.Code(f.Market, f.Investor)
	}
	add(models.SourceKRX, flows)

	return newCatalog(entries)
}

func newCatalog(entries []models.Indicator) *Catalog {
	c := &Catalog{entries: entries, byName: make(map[string]models.Indicator, len(entries))}
	for _, e := range entries {
		c.byName[e.Name] = e
	}
	return c
}

// All returns every indicator in catalog order.
func (c *Catalog) All() []models.Indicator {
	return append([]models.Indicator(nil), c.entries...)
}

// Lookup finds one indicator by name.
func (c *Catalog) Lookup(name string) (models.Indicator, bool) {
	ind, ok := c.byName[name]
	return ind, ok
}

// Resolve maps names onto catalog entries in request order, dropping
// duplicates. No names means the full catalog.
func (c *Catalog) Resolve(names []string) ([]models.Indicator, error) {
	if len(names) == 0 {
		return c.All(), nil
	}

	var (
		out     = make([]models.Indicator, 0, len(names))
		seen    = make(map[string]struct{}, len(names))
		unknown []string
	)
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		ind, ok := c.byName[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, ind)
	}
	if len(unknown) > 0 {
		return nil, &UnknownIndicatorsError{Names: unknown}
	}
	return out, nil
}

// Codes lists the provider codes registered for src.
func (c *Catalog) Codes(src models.Source) []string {
	var out []string
	for _, e := range c.entries {
		if e.Source == src {
			out = append(out, e.Code)
		}
	}
	return out
}

// Labels returns display labels keyed by indicator name.
func (c *Catalog) Labels() map[string]string {
	out := make(map[string]string, len(c.entries))
	for _, e := range c.entries {
		if e.Label != "" {
			out[e.Name] = e.Label
		}
	}
	return out
}

// Flows lists the names of flow indicators in catalog order.
func (c *Catalog) Flows() []string {
	var out []string
	for _, e := range c.entries {
		if e.Source == models.SourceKRX {
			out = append(out, e.Name)
		}
	}
	return out
}
