package perfstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
)

// The upstream provider is loose about field names: the same concept shows up
// under several keys depending on the endpoint and API version. Normalize
// canonicalizes rows here so the aggregation core never special-cases names.

var (
	startPosKeys  = []string{"start_position", "starting_position", "startPos", "grid_position"}
	finishPosKeys = []string{"finish_position", "finishing_position", "finishPos", "result_position"}
	incidentKeys  = []string{"incidents", "incident_count", "new_incidents"}
	sofKeys       = []string{"sof", "strength_of_field", "event_strength_of_field"}
	startTimeKeys = []string{"start_time", "session_start_time", "startTime", "race_start"}
	safetyKeys    = []string{"safety_rating", "new_sub_level", "sr_after"}
	lengthKeys    = []string{"race_length_min", "event_laps_complete_min", "duration_min"}
)

// Normalize converts a raw provider row into the canonical RaceResult.
// Required identifiers (session, driver, series, track) must be present;
// metric fields degrade to zero values when absent.
func Normalize(raw map[string]any) (model.RaceResult, error) {
	r := model.RaceResult{
		SessionID:  pickString(raw, "session_id", "subsession_id", "sessionId"),
		DriverID:   pickString(raw, "driver_id", "cust_id", "customer_id"),
		SeriesID:   pickString(raw, "series_id", "seriesId"),
		SeriesName: pickString(raw, "series_name", "series_short_name"),
		TrackID:    pickString(raw, "track_id", "trackId"),
		TrackName:  pickString(raw, "track_name", "track_display_name"),
	}
	switch {
	case r.SessionID == "":
		return model.RaceResult{}, fmt.Errorf("%w: missing session id", ErrBadPayload)
	case r.DriverID == "":
		return model.RaceResult{}, fmt.Errorf("%w: missing driver id", ErrBadPayload)
	case r.SeriesID == "":
		return model.RaceResult{}, fmt.Errorf("%w: missing series id", ErrBadPayload)
	case r.TrackID == "":
		return model.RaceResult{}, fmt.Errorf("%w: missing track id", ErrBadPayload)
	}

	r.Category = normalizeCategory(pickString(raw, "category", "license_category", "track_category"))
	r.SessionType = normalizeSessionType(pickString(raw, "session_type", "event_type", "sim_session_name"))
	r.StartPos = int(pickFloat(raw, startPosKeys...))
	r.FinishPos = int(pickFloat(raw, finishPosKeys...))
	r.Incidents = int(pickFloat(raw, incidentKeys...))
	r.SOF = pickFloat(raw, sofKeys...)
	r.SafetyRating = pickFloat(raw, safetyKeys...)
	r.RaceLengthMin = pickFloat(raw, lengthKeys...)
	r.DNF = pickBool(raw, "dnf", "did_not_finish")
	if ts := pickString(raw, startTimeKeys...); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.StartTime = t
		}
	}
	return r, nil
}

func normalizeCategory(s string) model.Category {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")) {
	case "oval":
		return model.CategoryOval
	case "dirt_oval", "dirtoval":
		return model.CategoryDirtOval
	case "dirt_road", "dirtroad":
		return model.CategoryDirtRoad
	default:
		return model.CategoryRoad
	}
}

func normalizeSessionType(s string) model.SessionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "race", "feature", "heat":
		return model.SessionRace
	case "qualify", "qualifying", "open qualifying", "lone qualifying":
		return model.SessionQualify
	case "time_trial", "time trial":
		return model.SessionTimeTrial
	default:
		return model.SessionPractice
	}
}

func pickString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		}
	}
	return ""
}

func pickFloat(raw map[string]any, keys ...string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func pickBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := raw[k].(bool); ok {
			return v
		}
	}
	return false
}
