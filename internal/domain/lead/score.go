package lead

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/values"
)

// Weights of each factor in the total score. They sum to 1.
type Weights struct {
	Recency          float64 `json:"recency" koanf:"recency"`
	CallHistory      float64 `json:"call_history" koanf:"call_history"`
	TimeOptimization float64 `json:"time_optimization" koanf:"time_optimization"`
	ResponseRate     float64 `json:"response_rate" koanf:"response_rate"`
	Priority         float64 `json:"priority" koanf:"priority"`
}

func DefaultWeights() Weights {
	return Weights{
		Recency:          0.20,
		CallHistory:      0.25,
		TimeOptimization: 0.15,
		ResponseRate:     0.15,
		Priority:         0.25,
	}
}

const (
	callbackBonus = 1.3

	// Area-code response rates need this many samples before they are trusted.
	DefaultMinAreaCodeSamples = 10
	defaultResponseScore      = 70.0

	freeAttempts = 5
)

// Factors are the per-factor scores, each in [0,100].
type Factors struct {
	Recency          float64 `json:"recency"`
	CallHistory      float64 `json:"call_history"`
	TimeOptimization float64 `json:"time_optimization"`
	ResponseRate     float64 `json:"response_rate"`
	Priority         float64 `json:"priority"`
}

// Score is the ranking result for one lead.
type Score struct {
	LeadID   uuid.UUID `json:"lead_id"`
	Score    float64   `json:"score"`
	Factors  Factors   `json:"factors"`
	Priority int       `json:"priority"`
}

// AreaCodeStat is the answer history of recent calls sharing a lead's area
// code.
type AreaCodeStat struct {
	Samples  int
	Answered int
}

// Input is everything scoring a lead needs besides the lead itself.
type Input struct {
	Now              time.Time
	History          []*call.OutcomeSample
	AreaCode         AreaCodeStat
	CampaignTimezone string
}

// Scorer computes lead scores. The zero value is not usable; use NewScorer.
type Scorer struct {
	weights    Weights
	minSamples int
}

func NewScorer(w Weights, minAreaCodeSamples int) *Scorer {
	if minAreaCodeSamples <= 0 {
		minAreaCodeSamples = DefaultMinAreaCodeSamples
	}
	return &Scorer{weights: w, minSamples: minAreaCodeSamples}
}

// Score rates a single lead.
func (s *Scorer) Score(l *Lead, in Input) Score {
	f := Factors{
		Recency:          RecencyScore(l.LastContactedAt, in.Now),
		CallHistory:      HistoryScore(in.History),
		TimeOptimization: TimeOfDayScore(in.Now.In(values.ResolveLocation(l.Timezone, in.CampaignTimezone)).Hour()),
		ResponseRate:     s.responseScore(in.AreaCode),
		Priority:         float64(clamp(l.Priority, MinPriority, MaxPriority) * 20),
	}

	w := s.weights
	total := f.Recency*w.Recency +
		f.CallHistory*w.CallHistory +
		f.TimeOptimization*w.TimeOptimization +
		f.ResponseRate*w.ResponseRate +
		f.Priority*w.Priority

	if l.CallbackDue(in.Now) {
		total *= callbackBonus
	}
	total = math.Round(math.Max(0, math.Min(100, total))*100) / 100

	return Score{
		LeadID:   l.ID,
		Score:    total,
		Factors:  f,
		Priority: PriorityFromScore(total),
	}
}

// RecencyScore peaks when the last contact was 3 to 7 days ago.
func RecencyScore(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 100
	}
	days := now.Sub(*last).Hours() / 24
	switch {
	case days < 1:
		return 20
	case days < 3:
		return 60
	case days < 7:
		return 100
	case days < 14:
		return 80
	case days < 30:
		return 60
	default:
		return 40
	}
}

// HistoryScore penalizes repeated and negative contact and rewards positive
// dispositions.
func HistoryScore(history []*call.OutcomeSample) float64 {
	score := 100.0
	if extra := len(history) - freeAttempts; extra > 0 {
		score -= 10 * float64(extra)
	}
	for _, h := range history {
		if h == nil {
			continue
		}
		switch {
		case h.Disposition.IsPositive():
			score += 10
		case h.Disposition.IsNegative():
			score -= 20
		case h.Disposition.IsUnreached(), h.Disposition == call.DispositionNone && h.Status == call.StatusNoAnswer:
			score -= 5
		}
	}
	return math.Max(0, math.Min(100, score))
}

// TimeOfDayScore rates a local hour of day. Band edges are inclusive.
func TimeOfDayScore(hour int) float64 {
	switch {
	case hour >= 10 && hour <= 12, hour >= 16 && hour <= 18:
		return 100
	case hour >= 13 && hour <= 15:
		return 85
	case hour >= 19 && hour <= 20:
		return 70
	case hour == 9:
		return 60
	default:
		return 20
	}
}

func (s *Scorer) responseScore(st AreaCodeStat) float64 {
	if st.Samples < s.minSamples {
		return defaultResponseScore
	}
	rate := float64(st.Answered) / float64(st.Samples) * 100
	return 30 + math.Min(100, rate)*0.7
}

// SummarizeAreaCode folds recent calls sharing an area code into a stat.
func SummarizeAreaCode(samples []*call.OutcomeSample) AreaCodeStat {
	st := call.Summarize(samples)
	return AreaCodeStat{Samples: st.Total, Answered: st.Answered}
}

// PriorityFromScore maps a score onto the persisted 1-5 priority.
func PriorityFromScore(score float64) int {
	return clamp(int(math.Ceil(score/20)), MinPriority, MaxPriority)
}

// Rank sorts scores descending, breaking ties on lead ID so the order is
// total, and truncates to limit when limit > 0.
func Rank(scores []Score, limit int) []Score {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return strings.Compare(scores[i].LeadID.String(), scores[j].LeadID.String()) < 0
	})
	if limit > 0 && len(scores) > limit {
		return scores[:limit]
	}
	return scores
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
