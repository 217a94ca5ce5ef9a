package scoring

import (
	"math"
	"sort"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
)

// Reasoning strings come from the factors that deviate most from the neutral
// midpoint. Output order is deterministic: deviation descending, fixed factor
// order as the tiebreak.

const (
	maxReasons = 3
	minReasons = 2
)

type factorValue struct {
	name  string
	value float64
}

// Fixed ordering for tie-breaking; also the order factors are considered.
func factorList(f model.FactorSet) []factorValue {
	return []factorValue{
		{"performance", f.Performance},
		{"safety", f.Safety},
		{"consistency", f.Consistency},
		{"predictability", f.Predictability},
		{"familiarity", f.Familiarity},
		{"fatigue", f.FatigueRisk},
		{"attrition", f.AttritionRisk},
		{"time_volatility", f.TimeVolatility},
	}
}

var reasonHigh = map[string]string{
	"performance":     "Strong finishing history for this series and track",
	"safety":          "Clean incident record relative to this field",
	"consistency":     "Very consistent finishing positions",
	"predictability":  "Stable or improving recent form",
	"familiarity":     "Deep experience with this series and track combination",
	"fatigue":         "Race length fits the usual schedule",
	"attrition":       "Field typically finishes this race",
	"time_volatility": "Field strength is steady across time slots",
}

var reasonLow = map[string]string{
	"performance":     "Finishing results here trail the field",
	"safety":          "Incident rate runs above the field average",
	"consistency":     "Finishing positions swing widely",
	"predictability":  "Recent form is trending downward",
	"familiarity":     "Little experience with this series and track combination",
	"fatigue":         "Race length stretches well past the usual seat time",
	"attrition":       "High attrition rate in this field",
	"time_volatility": "Field strength varies a lot between time slots",
}

// minimum deviation before a factor is worth mentioning.
const mentionDeviation = 5.0

// buildReasons picks the 2-3 most deviant factors and renders them in a
// stable order.
func buildReasons(f model.FactorSet) []string {
	factors := factorList(f)
	order := make([]int, len(factors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da := math.Abs(factors[order[a]].value - neutralScore)
		db := math.Abs(factors[order[b]].value - neutralScore)
		if da != db {
			return da > db
		}
		return order[a] < order[b]
	})

	reasons := make([]string, 0, maxReasons)
	for _, idx := range order {
		if len(reasons) == maxReasons {
			break
		}
		fv := factors[idx]
		dev := math.Abs(fv.value - neutralScore)
		if dev < mentionDeviation && len(reasons) >= minReasons {
			break
		}
		if fv.value >= neutralScore {
			reasons = append(reasons, reasonHigh[fv.name])
		} else {
			reasons = append(reasons, reasonLow[fv.name])
		}
	}
	return reasons
}
