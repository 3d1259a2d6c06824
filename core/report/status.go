package report

import "time"

// Status is the timeliness of a submission relative to its event's end date.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusEarly  Status = "early"
	StatusOnTime Status = "on-time"
	StatusLate   Status = "late"
)

const earlyWindow = 7 * 24 * time.Hour

// Classify computes the Status of a submission made at now for an event ending at endDate.
//
// A submission is early until both 7 days after endDate and the 3rd of the month
// following endDate (00:00 in loc) have passed, on-time until the 3rd, late afterwards.
// Both bounds are inclusive. A zero endDate is always late.
func Classify(isDraft bool, endDate, now time.Time, loc *time.Location) Status {
	if isDraft {
		return StatusDraft
	}
	if endDate.IsZero() {
		return StatusLate
	}
	if loc == nil {
		loc = time.UTC
	}
	end := endDate.In(loc)
	thirdOfNextMonth := time.Date(end.Year(), end.Month()+1, 3, 0, 0, 0, 0, loc)
	sevenDaysAfterEnd := endDate.Add(earlyWindow)

	switch {
	case !now.After(thirdOfNextMonth) && !now.After(sevenDaysAfterEnd):
		return StatusEarly
	case !now.After(thirdOfNextMonth):
		return StatusOnTime
	default:
		return StatusLate
	}
}
