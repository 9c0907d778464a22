package apitest

// Fixtures are plain maps so the fake stays independent of the SDK types
// and can emit shapes the SDK must reject.

// Indicators returns a technical_indicators object.
func Indicators(rsi, macd, upper, lower float64) map[string]any {
	return map[string]any{
		"rsi":             rsi,
		"macd":            macd,
		"bollinger_upper": upper,
		"bollinger_lower": lower,
	}
}

// QuoteFixture is the default /stocks/{symbol} payload.
func QuoteFixture(symbol string) map[string]any {
	return map[string]any{
		"symbol":               symbol,
		"name":                 symbol + " Inc.",
		"sector":               "Technology",
		"industry":             "Consumer Electronics",
		"price":                182.31,
		"change":               -0.42,
		"volume":               51234000,
		"market_cap":           "2.8T",
		"pe_ratio":             "29.1",
		"eps":                  "6.26",
		"dividend_yield":       "0.55",
		"beta":                 "1.29",
		"technical_indicators": Indicators(55.2, 1.3, 190.5, 170.2),
	}
}

// Point returns one historical record. Nil SMA values are emitted as null.
func Point(date string, close float64, sma20, sma50 *float64) map[string]any {
	p := map[string]any{
		"date":   date,
		"open":   close - 1,
		"high":   close + 2,
		"low":    close - 2,
		"close":  close,
		"volume": 1000000,
		"sma_20": nil,
		"sma_50": nil,
	}
	if sma20 != nil {
		p["sma_20"] = *sma20
	}
	if sma50 != nil {
		p["sma_50"] = *sma50
	}
	return p
}

// F returns a pointer to v, for optional fixture values.
func F(v float64) *float64 { return &v }

// HistoryFixture is the default /stocks/{symbol}/data payload: three points,
// the first without any moving average and the second without SMA-50.
func HistoryFixture() []map[string]any {
	return []map[string]any{
		Point("2024-01-02", 185.64, nil, nil),
		Point("2024-01-03", 184.25, F(183.9), nil),
		Point("2024-01-04", 181.91, F(183.7), F(180.2)),
	}
}

// InsightFixture is the default /insights/{symbol} payload.
func InsightFixture(symbol string) map[string]any {
	return map[string]any{
		"symbol":    symbol,
		"insights":  symbol + " is trading near its 20-day average with neutral momentum.",
		"timestamp": "2024-01-04T15:30:00.123456",
	}
}

// PredictionFixture is the default /predict/{symbol} payload.
func PredictionFixture(symbol string) map[string]any {
	return map[string]any{
		"symbol":        symbol,
		"current_price": 181.9149,
		"prediction":    "moderate upside over the next week",
		"timestamp":     "2024-01-04T15:30:00+00:00",
	}
}
