package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"papertrade/internal/domain"
)

// WriteBacktestTradesToCSV exports the trades of a backtest run to a CSV file.
func WriteBacktestTradesToCSV(trades []domain.BacktestTrade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"date", "side", "price", "quantity", "value"})

	for _, t := range trades {
		writer.Write([]string{
			t.Date.Format(time.RFC3339),
			string(t.Side),
			t.Price.String(),
			t.Quantity.String(),
			t.Value.String(),
		})
	}
	return writer.Error()
}

// WriteEquityCurveToCSV exports a backtest's daily equity samples to a CSV file.
func WriteEquityCurveToCSV(curve []float64, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"day", "equity"})

	for i, v := range curve {
		writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(v, 'f', -1, 64),
		})
	}
	return writer.Error()
}
