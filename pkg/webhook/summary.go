package webhook

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kacperjurak/thermalcore"
	"github.com/kacperjurak/thermalcore/pkg/models"
)

// Summarizer condenses a simulation response into the figures webhook
// consumers plot first.
type Summarizer struct{}

func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

func (s *Summarizer) Summarize(resp models.SimulationResponse) models.ResultSummary {
	var sum models.ResultSummary
	if len(resp.HotSpot) == 0 {
		return sum
	}

	sum.MaxTopOil = floats.Max(resp.TopOil)
	peak := floats.MaxIdx(resp.HotSpot)
	sum.MaxHotSpot = resp.HotSpot[peak]
	sum.MeanHotSpot = stat.Mean(resp.HotSpot, nil)
	if peak < len(resp.Timestamps) {
		sum.MaxHotSpotTime = resp.Timestamps[peak].Format(time.RFC3339)
	}

	if len(resp.Mode) > 0 {
		onaf := 0
		for _, m := range resp.Mode {
			if m == thermalcore.ONAF.String() {
				onaf++
			}
		}
		sum.ONAFShare = float64(onaf) / float64(len(resp.Mode))
	}
	if resp.DaysAged != nil {
		sum.DaysAged = *resp.DaysAged
	}
	return sum
}
