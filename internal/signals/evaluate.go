package signals

import (
	"context"
	"fmt"

	"papertrade/internal/domain"
	"papertrade/internal/indicators"
	"papertrade/internal/ports"
)

// Evaluation is the outcome of running a strategy's decision rule against a
// price series. It is pure derived data: the same series and parameters
// always produce the same evaluation.
type Evaluation struct {
	Type      domain.SignalType
	Strength  float64 // Confidence in [0, 1]
	Indicator string  // Human-readable indicator reading
}

// RequiredDataPoints returns the minimum series length the strategy needs
// before its decision rule is defined.
func RequiredDataPoints(strategyID string, params map[string]float64) (int, error) {
	spec := findAlgorithm(strategyID)
	if spec == nil {
		return 0, fmt.Errorf("strategy %q: %w", strategyID, ports.ErrUnknownStrategy)
	}
	p := resolveParams(spec, params)

	switch strategyID {
	case StrategySMACrossover:
		return int(p["longPeriod"]), nil
	case StrategyRSI:
		return int(p["period"]) + 1, nil
	case StrategyMACD:
		return int(p["slowPeriod"]) + int(p["signalPeriod"]) - 1, nil
	case StrategyBollingerBand:
		return int(p["period"]), nil
	default:
		return 0, fmt.Errorf("strategy %q: %w", strategyID, ports.ErrUnknownStrategy)
	}
}

// Evaluate runs the strategy's decision rule against the price series.
// The last element of the series is treated as the current price.
func Evaluate(ctx context.Context, strategyID string, params map[string]float64, series []float64) (Evaluation, error) {
	spec := findAlgorithm(strategyID)
	if spec == nil {
		return Evaluation{}, fmt.Errorf("strategy %q: %w", strategyID, ports.ErrUnknownStrategy)
	}
	if len(series) == 0 {
		return Evaluation{}, fmt.Errorf("empty price series for strategy %q", strategyID)
	}
	p := resolveParams(spec, params)
	price := series[len(series)-1]

	switch strategyID {
	case StrategySMACrossover:
		return evaluateSMACrossover(ctx, p, series, price)
	case StrategyRSI:
		return evaluateRSI(ctx, p, series)
	case StrategyMACD:
		return evaluateMACD(ctx, p, series)
	case StrategyBollingerBand:
		return evaluateBollinger(ctx, p, series, price)
	default:
		return Evaluation{}, fmt.Errorf("strategy %q: %w", strategyID, ports.ErrUnknownStrategy)
	}
}

func evaluateSMACrossover(ctx context.Context, p map[string]float64, series []float64, price float64) (Evaluation, error) {
	shortPeriod := int(p["shortPeriod"])
	longPeriod := int(p["longPeriod"])

	shortSMA := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: shortPeriod},
		Type:            indicators.SimpleMovingAverage,
	})
	longSMA := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: longPeriod},
		Type:            indicators.SimpleMovingAverage,
	})

	short, err := shortSMA.Calculate(ctx, series)
	if err != nil {
		return Evaluation{}, err
	}
	long, err := longSMA.Calculate(ctx, series)
	if err != nil {
		return Evaluation{}, err
	}

	sigType := domain.SignalSell
	if short > long {
		sigType = domain.SignalBuy
	}
	return Evaluation{
		Type:      sigType,
		Strength:  clamp01(gapStrength(short-long, price)),
		Indicator: fmt.Sprintf("SMA(%d) vs SMA(%d)", shortPeriod, longPeriod),
	}, nil
}

func evaluateRSI(ctx context.Context, p map[string]float64, series []float64) (Evaluation, error) {
	period := int(p["period"])
	rsi := indicators.NewRSI(indicators.RSIConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: period},
		Overbought:      p["overbought"],
		Oversold:        p["oversold"],
	})

	value, err := rsi.Calculate(ctx, series)
	if err != nil {
		return Evaluation{}, err
	}

	sigType := domain.SignalHold
	switch {
	case value < p["oversold"]:
		sigType = domain.SignalBuy
	case value > p["overbought"]:
		sigType = domain.SignalSell
	}
	return Evaluation{
		Type:      sigType,
		Strength:  clamp01(abs(value-50) / 50),
		Indicator: fmt.Sprintf("RSI(%d): %.2f", period, value),
	}, nil
}

func evaluateMACD(ctx context.Context, p map[string]float64, series []float64) (Evaluation, error) {
	macd := indicators.NewMACD(indicators.MACDConfig{
		FastPeriod:   int(p["fastPeriod"]),
		SlowPeriod:   int(p["slowPeriod"]),
		SignalPeriod: int(p["signalPeriod"]),
	})

	macdLine, signalLine, err := macd.Lines(ctx, series)
	if err != nil {
		return Evaluation{}, err
	}

	sigType := domain.SignalSell
	if macdLine > signalLine {
		sigType = domain.SignalBuy
	}
	return Evaluation{
		Type:      sigType,
		Strength:  macdStrength(macdLine, signalLine),
		Indicator: fmt.Sprintf("MACD: %.2f, Signal: %.2f", macdLine, signalLine),
	}, nil
}

func evaluateBollinger(ctx context.Context, p map[string]float64, series []float64, price float64) (Evaluation, error) {
	bb := indicators.NewBollinger(indicators.BollingerConfig{
		IndicatorConfig:  indicators.IndicatorConfig{Period: int(p["period"])},
		StdDevMultiplier: p["stdDev"],
	})

	_, upper, lower, err := bb.Bands(ctx, series)
	if err != nil {
		return Evaluation{}, err
	}
	if upper == lower {
		// Flat series: position is undefined, treat as mid-band.
		return Evaluation{
			Type:      domain.SignalHold,
			Strength:  0,
			Indicator: "BB Position: 50.0%",
		}, nil
	}

	position := (price - lower) / (upper - lower)
	sigType := domain.SignalHold
	switch {
	case position < 0.2:
		sigType = domain.SignalBuy
	case position > 0.8:
		sigType = domain.SignalSell
	}
	return Evaluation{
		Type:      sigType,
		Strength:  clamp01(abs(position-0.5) * 2),
		Indicator: fmt.Sprintf("BB Position: %.1f%%", position*100),
	}, nil
}

// gapStrength normalizes an indicator gap by the current price, so that
// strength is comparable across assets of very different magnitudes.
func gapStrength(gap, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return abs(gap) / price
}

// macdStrength normalizes the MACD/signal divergence by the larger line's
// magnitude. The two lines move on the indicator's own scale, far below the
// asset's price, so a price-normalized strength would vanish.
func macdStrength(macdLine, signalLine float64) float64 {
	scale := max(abs(macdLine), abs(signalLine))
	if scale == 0 {
		return 0
	}
	return clamp01(abs(macdLine-signalLine) / scale)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
