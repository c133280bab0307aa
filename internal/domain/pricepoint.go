package domain

import "time"

// PricePoint is a single observation in a historical price series.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Prices extracts the raw price series from a sequence of points, in order.
func Prices(points []PricePoint) []float64 {
	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.Price
	}
	return series
}
