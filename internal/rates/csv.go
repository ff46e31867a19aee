package rates

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/ecodyn/foodweb/internal/foodweb"
)

// OverrideRow is one CSV row overriding the derived rates for a named
// species. A nil field leaves the derived value untouched.
type OverrideRow struct {
	Name           string
	BodyMass       *float64
	GrowthRate     *float64
	MetabolicRate  *float64
	MaxConsumption *float64
}

// overrideRecord is the raw CSV shape. Cells stay strings so that an empty
// cell is distinguishable from an explicit zero; gocsv would decode both into
// the same *float64 value.
type overrideRecord struct {
	Name           string `csv:"name"`
	BodyMass       string `csv:"body_mass"`
	GrowthRate     string `csv:"growth_rate"`
	MetabolicRate  string `csv:"metabolic_rate"`
	MaxConsumption string `csv:"max_consumption"`
}

// ReadOverrides parses override rows from CSV.
func ReadOverrides(r io.Reader) ([]OverrideRow, error) {
	var records []overrideRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("rates: parse overrides: %w", err)
	}
	rows := make([]OverrideRow, 0, len(records))
	for _, rec := range records {
		row := OverrideRow{Name: rec.Name}
		for _, cell := range []struct {
			field string
			raw   string
			dst   **float64
		}{
			{"body_mass", rec.BodyMass, &row.BodyMass},
			{"growth_rate", rec.GrowthRate, &row.GrowthRate},
			{"metabolic_rate", rec.MetabolicRate, &row.MetabolicRate},
			{"max_consumption", rec.MaxConsumption, &row.MaxConsumption},
		} {
			if err := parseCell(cell.dst, cell.raw); err != nil {
				return nil, fmt.Errorf("rates: override %q, column %s: %w", rec.Name, cell.field, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCell fills dst from a CSV cell; an empty cell leaves it nil.
func parseCell(dst **float64, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

// ApplyMassOverrides rewrites body masses in place for every row that names a
// species and carries a body_mass cell. Must run before Allometric.
func ApplyMassOverrides(net *foodweb.Network, mass []float64, rows []OverrideRow) error {
	for _, row := range rows {
		i, err := speciesIndex(net, row.Name)
		if err != nil {
			return err
		}
		if row.BodyMass != nil {
			if *row.BodyMass <= 0 {
				return fmt.Errorf("rates: override for %q: non-positive body mass %g", row.Name, *row.BodyMass)
			}
			mass[i] = *row.BodyMass
		}
	}
	return nil
}

// Apply rewrites the derived rate vectors with any per-rate overrides.
func (b *BioRates) Apply(net *foodweb.Network, rows []OverrideRow) error {
	for _, row := range rows {
		i, err := speciesIndex(net, row.Name)
		if err != nil {
			return err
		}
		if row.GrowthRate != nil {
			b.R[i] = *row.GrowthRate
		}
		if row.MetabolicRate != nil {
			b.X[i] = *row.MetabolicRate
		}
		if row.MaxConsumption != nil {
			b.Y[i] = *row.MaxConsumption
		}
	}
	return nil
}

func speciesIndex(net *foodweb.Network, name string) (int, error) {
	for i := 0; i < net.S(); i++ {
		if net.Name(i) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("rates: override names unknown species %q", name)
}
