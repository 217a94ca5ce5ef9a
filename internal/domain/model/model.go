// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Category identifies a racing discipline.
type Category string

// Known racing categories.
const (
	CategoryOval     Category = "oval"
	CategoryRoad     Category = "road"
	CategoryDirtOval Category = "dirt_oval"
	CategoryDirtRoad Category = "dirt_road"
)

// SessionType distinguishes the kinds of sessions a result row can come from.
// Only race sessions feed performance statistics.
type SessionType string

// Known session types.
const (
	SessionRace      SessionType = "race"
	SessionPractice  SessionType = "practice"
	SessionQualify   SessionType = "qualify"
	SessionTimeTrial SessionType = "time_trial"
)

// RaceResult is the canonical shape of one historical session row after the
// performance-store adapter has normalized the provider payload. Nothing
// downstream ever sees alternate field names.
type RaceResult struct {
	SessionID     string
	DriverID      string
	SeriesID      string
	SeriesName    string
	TrackID       string
	TrackName     string
	Category      Category
	SessionType   SessionType
	StartPos      int
	FinishPos     int
	Incidents     int
	SOF           float64 // strength of field for the session
	SafetyRating  float64 // driver safety rating after the session
	RaceLengthMin float64
	StartTime     time.Time
	DNF           bool
}

// FinishDelta returns positions gained: positive means the driver finished
// ahead of where they started.
func (r RaceResult) FinishDelta() float64 {
	return float64(r.StartPos - r.FinishPos)
}

// TimeSlot is one scheduled start for an opportunity.
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	Weekday   string    `json:"weekday"`
}

// Opportunity is a candidate race entry from the schedule view.
type Opportunity struct {
	SeriesID      string     `json:"series_id"`
	SeriesName    string     `json:"series_name"`
	TrackID       string     `json:"track_id"`
	TrackName     string     `json:"track_name"`
	LicenseClass  string     `json:"license_class"`
	Category      Category   `json:"category"`
	SeasonYear    int        `json:"season_year"`
	SeasonQuarter int        `json:"season_quarter"`
	RaceWeek      int        `json:"race_week"`
	RaceLengthMin float64    `json:"race_length_min"`
	OpenSetup     bool       `json:"open_setup"`
	TimeSlots     []TimeSlot `json:"time_slots,omitempty"`
}

// Key returns the identity used for global stats and cache invalidation.
func (o Opportunity) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d", o.SeriesID, o.TrackID, o.SeasonYear, o.SeasonQuarter, o.RaceWeek)
}

// StatLine holds the aggregate metrics for one grouping of race rows.
type StatLine struct {
	Starts           int
	AvgFinishDelta   float64 // mean positions gained per race
	FinishVariance   float64 // population variance of finish delta
	IncidentRate     float64 // mean incidents per race
	AvgSOF           float64
	SOFVariance      float64
	AvgRaceLengthMin float64
}

// SeriesTrackKey builds the composite grouping key for a series/track pair.
func SeriesTrackKey(seriesID, trackID string) string {
	return seriesID + "|" + trackID
}

// DriverProfile is a driver's derived performance profile. It is immutable
// once published; concurrent readers share it by reference.
type DriverProfile struct {
	DriverID        string
	PrimaryCategory Category
	Overall         StatLine
	PerSeries       map[string]StatLine
	PerTrack        map[string]StatLine
	PerSeriesTrack  map[string]StatLine
	TrendSlope      float64 // recent finish-delta trend, positions gained per race
	SafetyTrend     float64 // recent safety-rating trend per race
	RacesPerWeek    float64 // recent racing cadence
	BuiltAt         time.Time
}

// Grouping names the specificity level a stat line was resolved at.
type Grouping string

// Grouping levels, most specific first.
const (
	GroupingSeriesTrack Grouping = "series_track"
	GroupingSeries      Grouping = "series"
	GroupingTrack       Grouping = "track"
	GroupingOverall     Grouping = "overall"
	GroupingDefault     Grouping = "default"
)

// StatsFor resolves the most specific stat line for a series/track pair that
// meets minSample starts. Thin groupings back off to broader ones; a driver
// with no usable data at any level gets the zero StatLine and GroupingDefault,
// which scoring maps onto neutral baselines.
func (p *DriverProfile) StatsFor(seriesID, trackID string, minSample int) (StatLine, Grouping) {
	if s, ok := p.PerSeriesTrack[SeriesTrackKey(seriesID, trackID)]; ok && s.Starts >= minSample {
		return s, GroupingSeriesTrack
	}
	if s, ok := p.PerSeries[seriesID]; ok && s.Starts >= minSample {
		return s, GroupingSeries
	}
	if s, ok := p.PerTrack[trackID]; ok && s.Starts >= minSample {
		return s, GroupingTrack
	}
	if p.Overall.Starts >= minSample {
		return p.Overall, GroupingOverall
	}
	return StatLine{}, GroupingDefault
}

// FamiliarStarts returns the number of qualifying past races at the exact
// series/track combination, regardless of sample-size thresholds.
func (p *DriverProfile) FamiliarStarts(seriesID, trackID string) int {
	return p.PerSeriesTrack[SeriesTrackKey(seriesID, trackID)].Starts
}

// GlobalStats is the population baseline for one opportunity.
type GlobalStats struct {
	OpportunityKey   string  `json:"opportunity_key"`
	Races            int     `json:"races"`
	AvgIncidents     float64 `json:"avg_incidents"`
	FinishPosStdDev  float64 `json:"finish_pos_std_dev"`
	AvgSOF           float64 `json:"avg_sof"`
	SOFVariance      float64 `json:"sof_variance"`
	AttritionRate    float64 `json:"attrition_rate"`
	AvgRaceLengthMin float64 `json:"avg_race_length_min"`
}

// Neutral baseline constants used when an opportunity has no history.
const (
	neutralAvgIncidents  = 4.0
	neutralFinishStdDev  = 8.0
	neutralSOF           = 1500.0
	neutralSOFVariance   = 40000.0 // std dev 200
	neutralAttrition     = 0.15
	neutralRaceLengthMin = 45.0
)

// NeutralGlobalStats returns the defined baseline for an opportunity with
// zero historical races. Never produces NaN downstream.
func NeutralGlobalStats(key string) GlobalStats {
	return GlobalStats{
		OpportunityKey:   key,
		Races:            0,
		AvgIncidents:     neutralAvgIncidents,
		FinishPosStdDev:  neutralFinishStdDev,
		AvgSOF:           neutralSOF,
		SOFVariance:      neutralSOFVariance,
		AttritionRate:    neutralAttrition,
		AvgRaceLengthMin: neutralRaceLengthMin,
	}
}

// RiskLevel labels categorical risk for a scored opportunity.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FactorSet holds the named sub-scores, each in [0,100].
type FactorSet struct {
	Performance    float64 `json:"performance"`
	Safety         float64 `json:"safety"`
	Consistency    float64 `json:"consistency"`
	Predictability float64 `json:"predictability"`
	Familiarity    float64 `json:"familiarity"`
	FatigueRisk    float64 `json:"fatigue_risk"`
	AttritionRisk  float64 `json:"attrition_risk"`
	TimeVolatility float64 `json:"time_volatility"`
}

// Score is the full scoring verdict for one opportunity.
type Score struct {
	Overall     int       `json:"overall"`
	Factors     FactorSet `json:"factors"`
	IRatingRisk RiskLevel `json:"irating_risk"`
	SafetyRisk  RiskLevel `json:"safety_risk"`
	Reasons     []string  `json:"reasons"`
}

// ScoredOpportunity pairs an opportunity with its population baseline and
// score. Immutable value object; replaced wholesale on recomputation.
type ScoredOpportunity struct {
	Opportunity Opportunity `json:"opportunity"`
	Global      GlobalStats `json:"global_stats"`
	Score       Score       `json:"score"`
}
