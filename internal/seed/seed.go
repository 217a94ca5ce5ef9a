// Package seed populates a memory-backed performance store with a
// deterministic synthetic racing history so the demo server and load tests
// have realistic data to score.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
)

// Driver archetype cases. Each demo driver is assigned one, which shapes
// the finish deltas and incident counts of their generated history.
const (
	caseCleanVeteran = 0
	caseWrecker      = 1
	caseRookie       = 2
	caseSpecialist   = 3
	caseMidfielder   = 4
	caseStreaky      = 5
	archetypeCount   = 6
)

// History generation bounds.
const (
	historyWeeks      = 16
	minRacesVeteran   = 24
	racesRangeVeteran = 16
	minRacesRookie    = 2
	racesRangeRookie  = 4
	minRacesDefault   = 10
	racesRangeDefault = 14
	fieldSize         = 24
	slotsPerWeek      = 3
)

type seriesDef struct {
	id       string
	name     string
	category model.Category
	license  string
	sofBase  float64
	length   float64
}

type trackDef struct {
	id   string
	name string
}

// The demo catalog. IDs are stable so cache keys and invalidation targets
// stay predictable across restarts with the same seed.
var demoSeries = []seriesDef{
	{id: "s-gt3", name: "GT3 Challenge", category: model.CategoryRoad, license: "A", sofBase: 2400, length: 45},
	{id: "s-mx5", name: "MX-5 Cup", category: model.CategoryRoad, license: "D", sofBase: 1350, length: 25},
	{id: "s-formula", name: "Formula Sprint", category: model.CategoryRoad, license: "B", sofBase: 1900, length: 40},
	{id: "s-trucks", name: "Truck Series", category: model.CategoryOval, license: "C", sofBase: 1600, length: 60},
	{id: "s-latemodel", name: "Late Model Tour", category: model.CategoryOval, license: "C", sofBase: 1450, length: 35},
	{id: "s-dirt-sprint", name: "Dirt Sprint Cars", category: model.CategoryDirtOval, license: "C", sofBase: 1500, length: 20},
	{id: "s-rallycross", name: "Rallycross Series", category: model.CategoryDirtRoad, license: "D", sofBase: 1300, length: 15},
	{id: "s-endurance", name: "Endurance League", category: model.CategoryRoad, license: "A", sofBase: 2600, length: 120},
}

var demoTracks = []trackDef{
	{id: "t-spa", name: "Spa-Francorchamps"},
	{id: "t-monza", name: "Monza"},
	{id: "t-okayama", name: "Okayama"},
	{id: "t-charlotte", name: "Charlotte"},
	{id: "t-bristol", name: "Bristol"},
	{id: "t-eldora", name: "Eldora"},
	{id: "t-daytona", name: "Daytona"},
	{id: "t-limerock", name: "Lime Rock"},
	{id: "t-suzuka", name: "Suzuka"},
	{id: "t-iowa", name: "Iowa Speedway"},
}

// Generator builds a deterministic synthetic dataset.
type Generator struct {
	seed        int64
	driverCount int
	year        int
	quarter     int
	now         func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithSeed sets the RNG seed. Equal seeds produce byte-identical datasets.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithDriverCount sets how many demo drivers receive a history.
func WithDriverCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.driverCount = n
		}
	}
}

// WithSeason pins the schedule's season identity.
func WithSeason(year, quarter int) Option {
	return func(g *Generator) {
		g.year = year
		g.quarter = quarter
	}
}

// WithClock overrides the time source. History is generated backwards
// from this instant.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a Generator with demo defaults.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		seed:        42,
		driverCount: 24,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.year == 0 {
		now := g.now().UTC()
		g.year = now.Year()
		g.quarter = (int(now.Month())-1)/3 + 1
	}
	return g
}

// DriverIDs returns the stable IDs the generator populates, in order.
func (g *Generator) DriverIDs() []string {
	ids := make([]string, g.driverCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("driver-%03d", i+1)
	}
	return ids
}

// Populate writes the schedule and every driver's history into store.
func (g *Generator) Populate(ctx context.Context, store *perfstore.MemoryStore) {
	rng := rand.New(rand.NewSource(g.seed))

	schedule := g.buildSchedule(rng)
	store.SetSchedule(schedule)

	total := 0
	for i, driverID := range g.DriverIDs() {
		rows := g.buildHistory(rng, driverID, i%archetypeCount)
		store.AddResults(driverID, rows...)
		total += len(rows)
	}

	logger.Get().Info(ctx, "seeded demo dataset",
		logger.Int("drivers", g.driverCount),
		logger.Int("results", total),
		logger.Int("opportunities", len(schedule)))
}

// buildSchedule emits one opportunity per series for the configured season,
// rotating tracks by race week.
func (g *Generator) buildSchedule(rng *rand.Rand) []model.Opportunity {
	base := g.now().UTC().Truncate(time.Hour)
	week := 1 + rng.Intn(12)
	opps := make([]model.Opportunity, 0, len(demoSeries))
	for i, s := range demoSeries {
		track := demoTracks[(week+i)%len(demoTracks)]
		slots := make([]model.TimeSlot, 0, slotsPerWeek)
		for slot := 0; slot < slotsPerWeek; slot++ {
			start := base.Add(time.Duration(6+slot*48) * time.Hour)
			slots = append(slots, model.TimeSlot{
				StartTime: start,
				Weekday:   start.Weekday().String(),
			})
		}
		opps = append(opps, model.Opportunity{
			SeriesID:      s.id,
			SeriesName:    s.name,
			TrackID:       track.id,
			TrackName:     track.name,
			LicenseClass:  s.license,
			Category:      s.category,
			SeasonYear:    g.year,
			SeasonQuarter: g.quarter,
			RaceWeek:      week,
			RaceLengthMin: s.length,
			OpenSetup:     i%2 == 0,
			TimeSlots:     slots,
		})
	}
	return opps
}

// buildHistory generates one driver's past race rows according to their
// archetype, spread backwards over historyWeeks.
func (g *Generator) buildHistory(rng *rand.Rand, driverID string, archetype int) []model.RaceResult {
	var (
		races      int
		deltaMean  float64 // mean positions gained per race
		incMean    float64 // mean incidents per race
		dnfChance  float64
		seriesPool []seriesDef
		trackPool  []trackDef
	)

	switch archetype {
	case caseCleanVeteran:
		races = minRacesVeteran + rng.Intn(racesRangeVeteran)
		deltaMean, incMean, dnfChance = 3.0, 1.0, 0.04
		seriesPool, trackPool = demoSeries, demoTracks
	case caseWrecker:
		races = minRacesDefault + rng.Intn(racesRangeDefault)
		deltaMean, incMean, dnfChance = -2.0, 8.0, 0.30
		seriesPool, trackPool = demoSeries, demoTracks
	case caseRookie:
		races = minRacesRookie + rng.Intn(racesRangeRookie)
		deltaMean, incMean, dnfChance = -1.0, 5.0, 0.15
		seriesPool, trackPool = demoSeries[:2], demoTracks[:3]
	case caseSpecialist:
		races = minRacesVeteran + rng.Intn(racesRangeVeteran)
		deltaMean, incMean, dnfChance = 4.0, 2.0, 0.05
		seriesPool, trackPool = demoSeries[:1], demoTracks[:1]
	case caseStreaky:
		races = minRacesDefault + rng.Intn(racesRangeDefault)
		deltaMean, incMean, dnfChance = 0.5, 4.0, 0.12
		seriesPool, trackPool = demoSeries, demoTracks
	default: // caseMidfielder
		races = minRacesDefault + rng.Intn(racesRangeDefault)
		deltaMean, incMean, dnfChance = 0.0, 3.0, 0.10
		seriesPool, trackPool = demoSeries, demoTracks
	}

	now := g.now().UTC()
	rows := make([]model.RaceResult, 0, races)
	for i := 0; i < races; i++ {
		s := seriesPool[rng.Intn(len(seriesPool))]
		t := trackPool[rng.Intn(len(trackPool))]

		start := 1 + rng.Intn(fieldSize)
		delta := int(deltaMean + rng.NormFloat64()*3.0)
		finish := clampPos(start - delta)
		dnf := rng.Float64() < dnfChance
		if dnf {
			finish = fieldSize - rng.Intn(4)
		}
		incidents := poissonish(rng, incMean)

		ago := time.Duration(rng.Intn(historyWeeks*7*24)) * time.Hour
		rows = append(rows, model.RaceResult{
			SessionID:     fmt.Sprintf("%s-%s-%d", driverID, s.id, i),
			DriverID:      driverID,
			SeriesID:      s.id,
			SeriesName:    s.name,
			TrackID:       t.id,
			TrackName:     t.name,
			Category:      s.category,
			SessionType:   model.SessionRace,
			StartPos:      start,
			FinishPos:     finish,
			Incidents:     incidents,
			SOF:           s.sofBase + rng.NormFloat64()*150,
			SafetyRating:  2.0 + rng.Float64()*2.5,
			RaceLengthMin: s.length,
			StartTime:     now.Add(-ago),
			DNF:           dnf,
		})
	}
	return rows
}

func clampPos(p int) int {
	if p < 1 {
		return 1
	}
	if p > fieldSize {
		return fieldSize
	}
	return p
}

// poissonish draws a small non-negative count around mean without pulling
// in a stats dependency; good enough for demo incident counts.
func poissonish(rng *rand.Rand, mean float64) int {
	n := int(mean + rng.NormFloat64()*(mean/2+0.5))
	if n < 0 {
		return 0
	}
	return n
}
