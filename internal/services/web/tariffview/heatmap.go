package tariffview

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// MaxBucket is the hottest heatmap intensity.
const MaxBucket = 4

// HeatCell is the average active ad valorem rate from one origin to a
// partner.
type HeatCell struct {
	Code         string
	Name         string
	Tariffs      int
	AvgAdValorem float64
	Bucket       int
}

// Heatmap averages the active tariffs leaving origin per destination and
// assigns each partner an intensity bucket from 0 to MaxBucket relative to
// the highest average.
func Heatmap(tariffs []apiclient.Tariff, names Names, origin string, today time.Time) []HeatCell {
	today = truncateDay(today)
	type acc struct {
		sum float64
		n   int
	}
	byDest := make(map[string]*acc)
	for _, t := range tariffs {
		if t.OriginCountry != origin || !t.Enabled {
			continue
		}
		if toRow(t, names, ModeExport, today).Expired {
			continue
		}
		a := byDest[t.DestCountry]
		if a == nil {
			a = &acc{}
			byDest[t.DestCountry] = a
		}
		a.sum += t.AdValoremRate
		a.n++
	}

	cells := make([]HeatCell, 0, len(byDest))
	var hottest float64
	for code, a := range byDest {
		avg := round(a.sum/float64(a.n), 4)
		hottest = max(hottest, avg)
		cells = append(cells, HeatCell{Code: code, Name: names.Name(code), Tariffs: a.n, AvgAdValorem: avg})
	}
	for i := range cells {
		cells[i].Bucket = bucket(cells[i].AvgAdValorem, hottest)
	}
	slices.SortFunc(cells, func(a, b HeatCell) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return cells
}

func bucket(avg, hottest float64) int {
	if avg <= 0 || hottest <= 0 {
		return 0
	}
	b := int(math.Ceil(avg / hottest * MaxBucket))
	return min(max(b, 1), MaxBucket)
}
