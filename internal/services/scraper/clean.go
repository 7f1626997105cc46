package scraper

import (
	"math"
	"slices"
	"time"

	"github.com/tariffdesk/tariffdesk/internal/services/scraper/wits"
)

// Period is a rate in force from Effective until Expiry inclusive. A nil
// Expiry is open-ended.
type Period struct {
	Effective time.Time
	Expiry    *time.Time
	Rate      float64
}

// Clean turns yearly observations into contiguous periods. Consecutive years
// with the same rate merge into one period, and each period expires the day
// before the next distinct rate takes effect. When a year is reported twice
// the later observation wins.
func Clean(observations []wits.Observation) []Period {
	if len(observations) == 0 {
		return nil
	}
	byYear := make(map[int]float64, len(observations))
	for _, obs := range observations {
		byYear[obs.Year] = obs.Rate
	}
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	slices.Sort(years)

	periods := make([]Period, 0, len(years))
	current := Period{Effective: januaryFirst(years[0]), Rate: byYear[years[0]]}
	for _, year := range years[1:] {
		rate := byYear[year]
		if sameRate(rate, current.Rate) {
			continue
		}
		expiry := januaryFirst(year).AddDate(0, 0, -1)
		current.Expiry = &expiry
		periods = append(periods, current)
		current = Period{Effective: januaryFirst(year), Rate: rate}
	}
	return append(periods, current)
}

func januaryFirst(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func sameRate(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
