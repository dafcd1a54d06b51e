package internal

import "time"

// ProfileID is the primary key of the single per-installation profile row.
const ProfileID = "default"

// FastingSession is one fast. EndDate stays nil while the fast is in
// progress; ActualFastingHours is fixed once at completion so aggregate
// queries never re-derive it from the timestamps.
type FastingSession struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	PlanID             string     `json:"plan_id" gorm:"index"`
	StartDate          time.Time  `json:"start_date" gorm:"index;not null"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	IsCompleted        bool       `json:"is_completed"`
	Cancelled          bool       `json:"cancelled"`
	ActualFastingHours float64    `json:"actual_fasting_hours"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (FastingSession) TableName() string { return "fasting_sessions" }

// IsActive reports whether the session is still running. Cancelled sessions
// are retained only when cancellation tracking is enabled and never count as
// active.
func (s *FastingSession) IsActive() bool {
	return s.EndDate == nil && !s.Cancelled
}

// UserProfile is the singleton aggregate over completed sessions. It is
// mutated only by the lifecycle service, inside the same store transaction
// that completes the session.
type UserProfile struct {
	ID                  string     `json:"id" gorm:"primaryKey"`
	TotalCompletedFasts int        `json:"total_completed_fasts"`
	TotalHoursFasted    float64    `json:"total_hours_fasted"`
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	Level               int        `json:"level"`
	LastFastingDate     *time.Time `json:"last_fasting_date,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profiles" }

func NewUserProfile() *UserProfile {
	return &UserProfile{ID: ProfileID, Level: 1}
}

// Period is an analytics aggregation window.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodAllTime Period = "allTime"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeek, PeriodMonth, PeriodAllTime:
		return Period(s), nil
	}
	return "", NewAppError(400, "unknown period: "+s)
}

// DayHours is one bar of the weekly chart: a calendar day and the fasting
// hours of the sessions started on it.
type DayHours struct {
	Day   time.Time `json:"day"`
	Hours float64   `json:"hours"`
}

// AnalyticsSnapshot is derived on every request from the store and never
// persisted or cached.
type AnalyticsSnapshot struct {
	Period           Period     `json:"period"`
	WindowStart      *time.Time `json:"window_start,omitempty"`
	WindowEnd        *time.Time `json:"window_end,omitempty"`
	TotalFasts       int        `json:"total_fasts"`
	SuccessRate      float64    `json:"success_rate"`
	TotalHours       float64    `json:"total_hours"`
	AverageHours     float64    `json:"average_hours"`
	CurrentStreak    int        `json:"current_streak"`
	BestStreak       int        `json:"best_streak"`
	WeeklyData       []DayHours `json:"weekly_data"`
	LongestFastHours float64    `json:"longest_fast_hours"`
	GeneratedAt      time.Time  `json:"generated_at"`
}

// DayOf truncates t to midnight in loc. Every piece of calendar-day
// arithmetic (streaks, weekly buckets) goes through this one helper so the
// time zone policy is applied uniformly.
func DayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
