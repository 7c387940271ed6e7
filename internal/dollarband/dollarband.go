// Package dollarband buckets transaction amounts into labelled bands such as
// "20-40" and maps labels back to a representative amount.
package dollarband

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned when bucketing an amount below zero.
	ErrNegativeAmount = errors.New("dollarband: negative amount")

	// ErrNonFiniteAmount is returned when bucketing NaN or an infinity.
	ErrNonFiniteAmount = errors.New("dollarband: amount is not finite")

	// ErrInvalidLabel is returned by Midpoint for labels it cannot read.
	ErrInvalidLabel = errors.New("dollarband: invalid band label")
)

// Band is the interval (Lo, Hi].
type Band struct {
	Lo decimal.Decimal
	Hi decimal.Decimal
}

// Label renders the band as "lo-hi".
func (b Band) Label() string {
	return b.Lo.String() + "-" + b.Hi.String()
}

// Bands is an ordered, contiguous set of bands. The zero value has no bands
// and puts every amount in the overflow band "0+". Bands is never modified
// after construction.
type Bands struct {
	bands []Band
}

var defaultEdges = []int64{0, 10, 20, 40, 60, 100, 200, 400, 1000, 2000, 4000, 8000, 20000}

// Default returns the standard USD bands from 0 up to 20000.
func Default() Bands {
	edges := make([]decimal.Decimal, len(defaultEdges))
	for i, e := range defaultEdges {
		edges[i] = decimal.NewFromInt(e)
	}
	b, err := FromEdges(edges...)
	if err != nil {
		panic(err)
	}
	return b
}

// FromEdges builds bands between consecutive edges. Edges must be strictly
// increasing and start at zero or above.
func FromEdges(edges ...decimal.Decimal) (Bands, error) {
	if len(edges) < 2 {
		return Bands{}, fmt.Errorf("FromEdges: need at least 2 edges, got %d", len(edges))
	}
	if edges[0].IsNegative() {
		return Bands{}, fmt.Errorf("FromEdges: first edge %s is negative", edges[0])
	}
	bands := make([]Band, 0, len(edges)-1)
	for i := 1; i < len(edges); i++ {
		if !edges[i].GreaterThan(edges[i-1]) {
			return Bands{}, fmt.Errorf("FromEdges: edge %s does not exceed %s", edges[i], edges[i-1])
		}
		bands = append(bands, Band{Lo: edges[i-1], Hi: edges[i]})
	}
	return Bands{bands: bands}, nil
}

// Len returns the number of bounded bands.
func (b Bands) Len() int {
	return len(b.bands)
}

// At returns the i-th bounded band.
func (b Bands) At(i int) Band {
	return b.bands[i]
}

// OverflowLabel is the label for amounts above the last band, e.g. "20000+".
func (b Bands) OverflowLabel() string {
	if len(b.bands) == 0 {
		return "0+"
	}
	return b.bands[len(b.bands)-1].Hi.String() + "+"
}

// Bucket returns the label of the band containing amount. An amount equal to
// the lowest edge falls in the first band.
func (b Bands) Bucket(amount decimal.Decimal) (string, error) {
	if amount.IsNegative() {
		return "", fmt.Errorf("Bucket %s: %w", amount, ErrNegativeAmount)
	}
	for i, band := range b.bands {
		if amount.GreaterThan(band.Lo) && amount.LessThanOrEqual(band.Hi) {
			return band.Label(), nil
		}
		if i == 0 && amount.Equal(band.Lo) {
			return band.Label(), nil
		}
	}
	return b.OverflowLabel(), nil
}

// BucketFloat is Bucket for float amounts as they appear in the feature table.
func (b Bands) BucketFloat(amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("BucketFloat %v: %w", amount, ErrNonFiniteAmount)
	}
	return b.Bucket(decimal.NewFromFloat(amount))
}

// Midpoint returns the centre of a "lo-hi" band, or the lower bound of an
// overflow label "n+".
func Midpoint(label string) (decimal.Decimal, error) {
	label = strings.TrimSpace(label)
	if strings.HasSuffix(label, "+") {
		lo, err := decimal.NewFromString(strings.TrimSuffix(label, "+"))
		if err != nil {
			return decimal.Zero, fmt.Errorf("Midpoint %q: %w", label, ErrInvalidLabel)
		}
		return lo, nil
	}

	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return decimal.Zero, fmt.Errorf("Midpoint %q: %w", label, ErrInvalidLabel)
	}
	lo, err := decimal.NewFromString(parts[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("Midpoint %q: %w", label, ErrInvalidLabel)
	}
	hi, err := decimal.NewFromString(parts[1])
	if err != nil {
		return decimal.Zero, fmt.Errorf("Midpoint %q: %w", label, ErrInvalidLabel)
	}
	return lo.Add(hi).Div(decimal.NewFromInt(2)), nil
}
