package models

import "errors"

var ErrInsufficientData = errors.New("insufficient data for yield calculation")

// Yield is the percentage deviation of achieved from benchmark.
// A nil achieved or a zero benchmark leaves it undefined.
func Yield(achieved *float64, benchmark float64) (float64, error) {
	if achieved == nil || benchmark == 0 {
		return 0, ErrInsufficientData
	}
	return (*achieved - benchmark) / benchmark * 100, nil
}

// CardYield is the payload of the yield endpoint.
type CardYield struct {
	CardID       string  `json:"cardId"`
	CardName     string  `json:"cardName"`
	Achieved     float64 `json:"achieved"`
	Benchmark    float64 `json:"benchmark"`
	YieldPercent float64 `json:"yieldPercent"`
}
