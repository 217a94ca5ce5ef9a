package loadtest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/recommend"
	. "github.com/smartystreets/goconvey/convey"
)

// decodeServiceResult round-trips a coordinator result through JSON exactly
// the way the recommendations endpoint serves it, so the verification step is
// tested against the real wire shape.
func decodeServiceResult(res recommend.Result) (recommendationResponse, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return recommendationResponse{}, err
	}
	var rec recommendationResponse
	if err := json.Unmarshal(data, &rec); err != nil {
		return recommendationResponse{}, err
	}
	return rec, nil
}

func rankedResult(driverID string) recommend.Result {
	return recommend.Result{
		DriverID: driverID,
		Recommendations: []model.ScoredOpportunity{
			{
				Opportunity: model.Opportunity{SeriesID: "s-gt3", TrackID: "t-spa"},
				Score:       model.Score{Overall: 72},
			},
			{
				Opportunity: model.Opportunity{SeriesID: "s-mx5", TrackID: "t-okayama"},
				Score:       model.Score{Overall: 55},
			},
		},
		Metadata: recommend.Metadata{CacheStatus: recommend.StatusMiss},
	}
}

func TestVerifyResults(t *testing.T) {
	ctx := context.Background()
	config := &Config{Drivers: 1}

	Convey("Given a sample decoded from the service's own payload", t, func() {
		rec, err := decodeServiceResult(rankedResult("driver-001"))
		So(err, ShouldBeNil)

		Convey("Then the driver id survives the round trip", func() {
			So(rec.DriverID, ShouldEqual, "driver-001")
		})

		Convey("When the sample is verified", func() {
			samples := map[string]recommendationResponse{"driver-001": rec}
			stats := &Stats{RequestsIssued: 1}

			Convey("Then verification passes", func() {
				So(verifyResults(ctx, config, samples, stats), ShouldBeNil)
			})
		})

		Convey("When a response answers for a different driver", func() {
			samples := map[string]recommendationResponse{"driver-002": rec}
			stats := &Stats{RequestsIssued: 1}

			Convey("Then verification fails", func() {
				So(verifyResults(ctx, config, samples, stats), ShouldNotBeNil)
			})
		})

		Convey("When the list arrives unsorted", func() {
			rec.Recommendations[0], rec.Recommendations[1] = rec.Recommendations[1], rec.Recommendations[0]
			samples := map[string]recommendationResponse{"driver-001": rec}
			stats := &Stats{RequestsIssued: 1}

			Convey("Then the ordering check trips", func() {
				So(verifyResults(ctx, config, samples, stats), ShouldNotBeNil)
			})
		})
	})
}
