package calculator

import (
	"errors"
	"log"

	"VIXBar/internal/model"

	"gonum.org/v1/gonum/stat"
)

// DefaultSMAPeriod is the moving-average window used for history summaries.
const DefaultSMAPeriod = 20

// Summarize computes statistics over history (oldest first). When fewer than
// smaPeriod values exist the SMA covers all of them.
func Summarize(history []float64, smaPeriod int) (*model.HistorySummary, error) {
	if len(history) == 0 {
		return nil, errors.New("empty history")
	}
	if smaPeriod <= 0 {
		smaPeriod = DefaultSMAPeriod
	}

	s := &model.HistorySummary{
		Count:  len(history),
		Latest: history[len(history)-1],
	}

	high, low, err := CalculateRange(history)
	if err != nil {
		return nil, err
	}
	s.Max, s.Min = high, low

	s.Mean, s.StdDev = stat.MeanStdDev(history, nil)
	if len(history) < 2 {
		s.StdDev = 0
	}

	period := smaPeriod
	if len(history) < period {
		period = len(history)
	}
	if sma, err := CalculateSMA(history, period); err != nil {
		log.Printf("[WARN] SMA calculation failed: %v, using mean", err)
		s.SMA = s.Mean
	} else {
		s.SMA = sma
	}
	s.SMAPeriod = period

	if pos, err := CalculatePosition(s.Latest, high, low); err != nil {
		log.Printf("[WARN] range position calculation failed: %v", err)
		s.Position = 0.5
	} else {
		s.Position = pos
	}
	return s, nil
}
