// Package scoring converts a driver profile, population baselines, and a
// candidate opportunity into a multi-factor score with risk labels and
// reasoning. Scoring is pure and deterministic: identical inputs always
// produce identical output, including reasoning order.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
)

// Sentinel error kinds for this package.
var (
	// ErrInvalidOpportunity signals a candidate with missing identifiers.
	ErrInvalidOpportunity = errors.New("invalid opportunity")

	// ErrBadWeights signals factor weights that do not sum to 1.
	ErrBadWeights = errors.New("factor weights must sum to 1")
)

// Default scoring configuration constants.
const (
	defaultZClip                = 3.0
	defaultFamiliarityThreshold = 10
	defaultHighSOFDeviation     = 400.0 // std dev of SOF above which fields are volatile
	defaultLowSOFDeviation      = 200.0
	defaultHighIncidentRate     = 6.0 // population incidents/race marking a rough field
	defaultLowIncidentRate      = 4.0
	neutralScore                = 50.0
	maxScore                    = 100.0
	riskLowFloor                = 65.0
	riskHighCeil                = 35.0
	weightSumTolerance          = 1e-6
)

// Confidence shrink applied per grouping specificity. Backed-off stats pull
// the factor toward the neutral midpoint instead of being used at face value.
var groupingConfidence = map[model.Grouping]float64{
	model.GroupingSeriesTrack: 1.0,
	model.GroupingSeries:      0.85,
	model.GroupingTrack:       0.75,
	model.GroupingOverall:     0.6,
	model.GroupingDefault:     0.0,
}

// Weights holds the relative factor weights. They must sum to 1.
type Weights struct {
	Performance    float64
	Safety         float64
	Consistency    float64
	Predictability float64
	Familiarity    float64
	FatigueRisk    float64
	AttritionRisk  float64
	TimeVolatility float64
}

// DefaultWeights returns the production weighting: performance and safety
// highest, time volatility lowest.
func DefaultWeights() Weights {
	return Weights{
		Performance:    0.20,
		Safety:         0.20,
		Consistency:    0.12,
		Predictability: 0.12,
		Familiarity:    0.12,
		FatigueRisk:    0.10,
		AttritionRisk:  0.09,
		TimeVolatility: 0.05,
	}
}

func (w Weights) sum() float64 {
	return w.Performance + w.Safety + w.Consistency + w.Predictability +
		w.Familiarity + w.FatigueRisk + w.AttritionRisk + w.TimeVolatility
}

// Validate checks the weights sum to 1 within tolerance.
func (w Weights) Validate() error {
	if math.Abs(w.sum()-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: got %v", ErrBadWeights, w.sum())
	}
	return nil
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights replaces the factor weights. Weights that fail validation are
// ignored in favor of the defaults; construct-time validation belongs to
// config loading.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Validate() == nil {
			e.weights = w
		}
	}
}

// WithMinSampleSize sets the sample threshold used when resolving groupings.
func WithMinSampleSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minSample = n
		}
	}
}

// WithFamiliarityThreshold sets the start count where familiarity saturates.
func WithFamiliarityThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.familiarityThreshold = n
		}
	}
}

// Engine scores opportunities for a driver profile.
type Engine struct {
	weights              Weights
	minSample            int
	familiarityThreshold int
	zClip                float64
	highSOFDeviation     float64
	highIncidentRate     float64
}

// NewEngine creates a scoring engine with default configuration.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:              DefaultWeights(),
		minSample:            3,
		familiarityThreshold: defaultFamiliarityThreshold,
		zClip:                defaultZClip,
		highSOFDeviation:     defaultHighSOFDeviation,
		highIncidentRate:     defaultHighIncidentRate,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the full verdict for one opportunity. It never fails for
// sparse statistics; only missing identifiers are an error.
func (e *Engine) Score(profile *model.DriverProfile, g model.GlobalStats, opp model.Opportunity) (model.ScoredOpportunity, error) {
	switch {
	case opp.SeriesID == "":
		return model.ScoredOpportunity{}, fmt.Errorf("%w: missing series id", ErrInvalidOpportunity)
	case opp.TrackID == "":
		return model.ScoredOpportunity{}, fmt.Errorf("%w: missing track id", ErrInvalidOpportunity)
	}

	stats, grouping := profile.StatsFor(opp.SeriesID, opp.TrackID, e.minSample)
	conf := groupingConfidence[grouping]

	f := model.FactorSet{
		Performance:    e.performanceFactor(stats, g, conf),
		Safety:         e.safetyFactor(stats, g, conf),
		Consistency:    e.consistencyFactor(stats, g, conf),
		Familiarity:    e.familiarityFactor(profile, opp),
		FatigueRisk:    e.fatigueFactor(profile, opp),
		AttritionRisk:  attritionFactor(g),
		TimeVolatility: timeVolatilityFactor(g),
	}
	f.Predictability = predictabilityFactor(f.Consistency, profile.TrendSlope)

	overall := e.weights.Performance*f.Performance +
		e.weights.Safety*f.Safety +
		e.weights.Consistency*f.Consistency +
		e.weights.Predictability*f.Predictability +
		e.weights.Familiarity*f.Familiarity +
		e.weights.FatigueRisk*f.FatigueRisk +
		e.weights.AttritionRisk*f.AttritionRisk +
		e.weights.TimeVolatility*f.TimeVolatility

	score := model.Score{
		Overall:     int(math.Round(clamp(overall))),
		Factors:     f,
		IRatingRisk: e.iratingRisk(f, g),
		SafetyRisk:  e.safetyRisk(f, g),
		Reasons:     buildReasons(f),
	}
	return model.ScoredOpportunity{Opportunity: opp, Global: g, Score: score}, nil
}

// performanceFactor normalizes the driver's average finish delta against the
// population finish spread: z-score clipped, mapped to [0,100], shrunk toward
// neutral by grouping confidence.
func (e *Engine) performanceFactor(stats model.StatLine, g model.GlobalStats, conf float64) float64 {
	dev := g.FinishPosStdDev
	if dev <= 0 {
		dev = 1
	}
	z := stats.AvgFinishDelta / dev
	z = math.Max(-e.zClip, math.Min(e.zClip, z))
	raw := (z + e.zClip) / (2 * e.zClip) * maxScore
	return clamp(neutralScore + (raw-neutralScore)*conf)
}

// safetyFactor inverts the driver's incident rate relative to the field:
// zero incidents scores 100, matching the field scores 50, double the field
// scores 0.
func (e *Engine) safetyFactor(stats model.StatLine, g model.GlobalStats, conf float64) float64 {
	base := g.AvgIncidents
	if base <= 0 {
		base = defaultLowIncidentRate
	}
	rel := stats.IncidentRate / base
	raw := clamp(maxScore - neutralScore*rel)
	return clamp(neutralScore + (raw-neutralScore)*conf)
}

// consistencyFactor inverts the driver's finish variance normalized by the
// population spread; tighter spread scores higher.
func (e *Engine) consistencyFactor(stats model.StatLine, g model.GlobalStats, conf float64) float64 {
	dev := g.FinishPosStdDev
	if dev <= 0 {
		dev = 1
	}
	norm := stats.FinishVariance / (dev * dev)
	raw := maxScore / (1 + norm)
	return clamp(neutralScore + (raw-neutralScore)*conf)
}

// Trend signal bands for predictability.
const (
	improvingSlope = 0.1
	decliningSlope = -0.1
	sharpDecline   = -0.5
)

// predictabilityFactor blends consistency with the trend signal. Stable or
// improving form raises the score; a sharp decline zeroes the trend share.
func predictabilityFactor(consistency, slope float64) float64 {
	var signal float64
	switch {
	case slope >= improvingSlope:
		signal = 1.0
	case slope > decliningSlope:
		signal = 0.75
	case slope > sharpDecline:
		signal = 0.4
	default:
		signal = 0.0
	}
	return clamp(0.6*consistency + 40*signal)
}

// familiarityFactor grows with starts at the exact series/track combination
// and saturates with diminishing returns around the configured threshold.
func (e *Engine) familiarityFactor(profile *model.DriverProfile, opp model.Opportunity) float64 {
	starts := float64(profile.FamiliarStarts(opp.SeriesID, opp.TrackID))
	half := float64(e.familiarityThreshold) / 3.0
	return clamp(maxScore * starts / (starts + half))
}

// Fatigue penalty shaping constants.
const (
	lengthPenaltyPerRatio = 40.0
	maxLengthPenalty      = 60.0
	cadenceFreeRaces      = 3.0 // races per week before cadence starts to cost
	cadencePenaltyPerRace = 12.0
	maxCadencePenalty     = 40.0
	fallbackRaceLengthMin = 45.0
)

// fatigueFactor penalizes races far longer than the driver's usual seat time
// and a very dense recent cadence. Higher value means lower fatigue risk.
func (e *Engine) fatigueFactor(profile *model.DriverProfile, opp model.Opportunity) float64 {
	avgLen := profile.Overall.AvgRaceLengthMin
	if avgLen <= 0 {
		avgLen = fallbackRaceLengthMin
	}
	ratio := 1.0
	if opp.RaceLengthMin > 0 {
		ratio = opp.RaceLengthMin / avgLen
	}
	lengthPenalty := math.Min(maxLengthPenalty, lengthPenaltyPerRatio*math.Max(0, ratio-1))
	cadencePenalty := math.Min(maxCadencePenalty, cadencePenaltyPerRace*math.Max(0, profile.RacesPerWeek-cadenceFreeRaces))
	return clamp(maxScore - lengthPenalty - cadencePenalty)
}

// attritionFactor inverts the population attrition rate: a field that
// finishes scores high, 50% DNF or worse scores zero.
func attritionFactor(g model.GlobalStats) float64 {
	const zeroScoreAttrition = 0.5
	return clamp(maxScore * (1 - g.AttritionRate/zeroScoreAttrition))
}

// timeVolatilityFactor inverts the coefficient of variation of SOF across
// the opportunity's historical sessions.
func timeVolatilityFactor(g model.GlobalStats) float64 {
	const zeroScoreCV = 0.5
	sof := g.AvgSOF
	if sof <= 0 {
		return neutralScore
	}
	cv := math.Sqrt(math.Max(0, g.SOFVariance)) / sof
	return clamp(maxScore * (1 - cv/zeroScoreCV))
}

func (e *Engine) iratingRisk(f model.FactorSet, g model.GlobalStats) model.RiskLevel {
	sofDev := math.Sqrt(math.Max(0, g.SOFVariance))
	switch {
	case f.Performance < riskHighCeil || sofDev > e.highSOFDeviation:
		return model.RiskHigh
	case f.Performance >= riskLowFloor && sofDev <= defaultLowSOFDeviation:
		return model.RiskLow
	default:
		return model.RiskMedium
	}
}

func (e *Engine) safetyRisk(f model.FactorSet, g model.GlobalStats) model.RiskLevel {
	switch {
	case f.Safety < riskHighCeil || g.AvgIncidents > e.highIncidentRate:
		return model.RiskHigh
	case f.Safety >= riskLowFloor && g.AvgIncidents <= defaultLowIncidentRate:
		return model.RiskLow
	default:
		return model.RiskMedium
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScore, v))
}
