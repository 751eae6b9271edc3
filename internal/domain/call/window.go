package call

import (
	"time"

	"github.com/google/uuid"
)

// Window is a rolling look-back period for outcome reads.
type Window time.Duration

const (
	Window15Min Window = Window(15 * time.Minute)
	WindowHour  Window = Window(time.Hour)
	WindowDay   Window = Window(24 * time.Hour)
	WindowWeek  Window = Window(7 * 24 * time.Hour)
)

// Since returns the lower creation-time bound of the window ending at now.
func (w Window) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(w))
}

// OutcomeQuery filters outcome reads. OwnerID and Since are always applied;
// the pointer and string fields are equality filters applied when set.
type OutcomeQuery struct {
	OwnerID     uuid.UUID
	CampaignID  *uuid.UUID
	LeadID      *uuid.UUID
	PhonePrefix string
	Since       time.Time
	Limit       int
}

// OutcomeStats aggregates a set of samples.
type OutcomeStats struct {
	Total            int
	Answered         int
	Abandoned        int
	InFlight         int
	DNCViolations    int
	TotalWaitSeconds float64
	WaitSamples      int
}

// Summarize folds samples into OutcomeStats.
func Summarize(samples []*OutcomeSample) OutcomeStats {
	var st OutcomeStats
	for _, s := range samples {
		if s == nil {
			continue
		}
		st.Total++
		if s.Answered() {
			st.Answered++
		}
		if s.Abandoned() {
			st.Abandoned++
		}
		if s.InFlight() {
			st.InFlight++
		}
		if s.DNCViolation {
			st.DNCViolations++
		}
		if wait, ok := s.WaitSeconds(); ok {
			st.TotalWaitSeconds += wait
			st.WaitSamples++
		}
	}
	return st
}

// AnswerRate is answered/total as a percentage.
func (s OutcomeStats) AnswerRate() float64 {
	return percent(s.Answered, s.Total)
}

// AbandonmentRate is abandoned/answered as a percentage.
func (s OutcomeStats) AbandonmentRate() float64 {
	return percent(s.Abandoned, s.Answered)
}

// AvgWaitSeconds is the mean origination-to-answer delay.
func (s OutcomeStats) AvgWaitSeconds() float64 {
	if s.WaitSamples == 0 {
		return 0
	}
	return s.TotalWaitSeconds / float64(s.WaitSamples)
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
