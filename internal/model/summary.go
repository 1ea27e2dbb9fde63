package model

// HistorySummary holds statistics computed over the in-memory history.
type HistorySummary struct {
	Count     int
	Latest    float64
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
	SMA       float64
	SMAPeriod int
	Position  float64 // 0.0 ~ 1.0 within [Min, Max]
}
