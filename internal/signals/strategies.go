package signals

// Strategy identifiers known to the signal generator.
const (
	StrategySMACrossover  = "sma_crossover"
	StrategyRSI           = "rsi"
	StrategyMACD          = "macd"
	StrategyBollingerBand = "bollinger_bands"
)

// ParameterSpec declares one tunable strategy parameter with its bounds.
type ParameterSpec struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
}

// AlgorithmSpec describes a strategy available to callers.
type AlgorithmSpec struct {
	ID          string
	Name        string
	Description string
	Parameters  []ParameterSpec
}

var catalog = []AlgorithmSpec{
	{
		ID:          StrategySMACrossover,
		Name:        "SMA Crossover",
		Description: "Buy when short SMA crosses above long SMA, sell when it crosses below",
		Parameters: []ParameterSpec{
			{Name: "shortPeriod", Default: 10, Min: 5, Max: 50},
			{Name: "longPeriod", Default: 20, Min: 10, Max: 200},
		},
	},
	{
		ID:          StrategyRSI,
		Name:        "RSI Strategy",
		Description: "Buy when RSI is oversold (< 30), sell when overbought (> 70)",
		Parameters: []ParameterSpec{
			{Name: "period", Default: 14, Min: 5, Max: 50},
			{Name: "oversold", Default: 30, Min: 10, Max: 40},
			{Name: "overbought", Default: 70, Min: 60, Max: 90},
		},
	},
	{
		ID:          StrategyMACD,
		Name:        "MACD Strategy",
		Description: "Buy when MACD line crosses above signal line, sell when it crosses below",
		Parameters: []ParameterSpec{
			{Name: "fastPeriod", Default: 12, Min: 5, Max: 50},
			{Name: "slowPeriod", Default: 26, Min: 10, Max: 100},
			{Name: "signalPeriod", Default: 9, Min: 5, Max: 20},
		},
	},
	{
		ID:          StrategyBollingerBand,
		Name:        "Bollinger Bands",
		Description: "Buy when price touches lower band, sell when it touches upper band",
		Parameters: []ParameterSpec{
			{Name: "period", Default: 20, Min: 10, Max: 50},
			{Name: "stdDev", Default: 2, Min: 1, Max: 3},
		},
	},
}

// Algorithms returns the catalog of available strategies.
func Algorithms() []AlgorithmSpec {
	out := make([]AlgorithmSpec, len(catalog))
	copy(out, catalog)
	return out
}

// findAlgorithm returns the catalog entry for a strategy ID, or nil.
func findAlgorithm(strategyID string) *AlgorithmSpec {
	for i := range catalog {
		if catalog[i].ID == strategyID {
			return &catalog[i]
		}
	}
	return nil
}

// resolveParams merges caller-supplied parameters over the declared defaults.
// Out-of-range values are clamped to the declared bounds so that evaluation
// stays well defined for any input.
func resolveParams(spec *AlgorithmSpec, params map[string]float64) map[string]float64 {
	resolved := make(map[string]float64, len(spec.Parameters))
	for _, p := range spec.Parameters {
		v := p.Default
		if supplied, ok := params[p.Name]; ok {
			v = supplied
		}
		if v < p.Min {
			v = p.Min
		}
		if v > p.Max {
			v = p.Max
		}
		resolved[p.Name] = v
	}
	return resolved
}
