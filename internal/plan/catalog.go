// Package plan holds the built-in fasting plan catalog. Plans are immutable
// and loaded once; there are no user-defined plans.
package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourname/fastingtracker/internal"
)

// Kind is the closed two-variant shape of a plan: a fixed fasting/eating
// hour pair, or a schedule-based protocol with no fixed daily hours.
type Kind string

const (
	KindTimed    Kind = "timed"
	KindSchedule Kind = "schedule"
)

type Plan struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	ShortDescription    string   `json:"short_description"`
	DetailedDescription string   `json:"detailed_description"`
	Tags                []string `json:"tags"`
	Kind                Kind     `json:"kind"`
	// FastingHours and EatingHours are set only for timed plans. Their sum
	// need not be 24 (e.g. multi-day fasts).
	FastingHours int `json:"fasting_hours,omitempty"`
	EatingHours  int `json:"eating_hours,omitempty"`
}

func (p Plan) IsTimed() bool { return p.Kind == KindTimed }

// PlannedEnd is the target end of a fast started at start. The second return
// is false for schedule-based plans, which have no fixed duration.
func (p Plan) PlannedEnd(start time.Time) (time.Time, bool) {
	if !p.IsTimed() {
		return time.Time{}, false
	}
	return start.Add(time.Duration(p.FastingHours) * time.Hour), true
}

func (p Plan) hasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

var builtins = []Plan{
	{
		ID:                  "14-10",
		Name:                "14:10",
		ShortDescription:    "Fast 14 hours, eat within 10",
		DetailedDescription: "A gentle daily rhythm: finish dinner early and skip the late-evening snacks. A common first step into time-restricted eating.",
		Tags:                []string{"beginner", "daily"},
		Kind:                KindTimed,
		FastingHours:        14,
		EatingHours:         10,
	},
	{
		ID:                  "16-8",
		Name:                "16:8",
		ShortDescription:    "Fast 16 hours, eat within 8",
		DetailedDescription: "The most popular intermittent fasting protocol. Typically implemented by skipping breakfast and eating between noon and 8pm.",
		Tags:                []string{"beginner", "daily", "popular"},
		Kind:                KindTimed,
		FastingHours:        16,
		EatingHours:         8,
	},
	{
		ID:                  "18-6",
		Name:                "18:6",
		ShortDescription:    "Fast 18 hours, eat within 6",
		DetailedDescription: "A tighter eating window for people comfortable with 16:8. Two meals inside a six hour window.",
		Tags:                []string{"intermediate", "daily"},
		Kind:                KindTimed,
		FastingHours:        18,
		EatingHours:         6,
	},
	{
		ID:                  "20-4",
		Name:                "Warrior 20:4",
		ShortDescription:    "Fast 20 hours, eat within 4",
		DetailedDescription: "One large meal plus a snack inside a four hour window. Demanding; not recommended as a starting protocol.",
		Tags:                []string{"advanced", "daily"},
		Kind:                KindTimed,
		FastingHours:        20,
		EatingHours:         4,
	},
	{
		ID:                  "omad",
		Name:                "OMAD",
		ShortDescription:    "One meal a day",
		DetailedDescription: "A 23 hour fast with a single meal. Requires experience with shorter protocols and attention to nutrient density.",
		Tags:                []string{"advanced", "daily"},
		Kind:                KindTimed,
		FastingHours:        23,
		EatingHours:         1,
	},
	{
		ID:                  "36-12",
		Name:                "Monk fast",
		ShortDescription:    "A 36 hour fast, once a week",
		DetailedDescription: "Dinner on day one to breakfast on day three. The fasting window spans more than a full calendar day.",
		Tags:                []string{"advanced", "weekly"},
		Kind:                KindTimed,
		FastingHours:        36,
		EatingHours:         12,
	},
	{
		ID:                  "5-2",
		Name:                "5:2",
		ShortDescription:    "Eat normally 5 days, restrict 2",
		DetailedDescription: "Two non-consecutive low-calorie days per week with normal eating otherwise. No fixed daily fasting window.",
		Tags:                []string{"intermediate", "weekly"},
		Kind:                KindSchedule,
	},
	{
		ID:                  "eat-stop-eat",
		Name:                "Eat-Stop-Eat",
		ShortDescription:    "One or two 24 hour fasts per week",
		DetailedDescription: "Full-day fasts on self-chosen days, dinner to dinner. Scheduling is up to the user, so there is no fixed window.",
		Tags:                []string{"intermediate", "weekly"},
		Kind:                KindSchedule,
	},
}

// Catalog is the fixed set of built-in plans. Loaded once at process start;
// read-only afterwards.
type Catalog struct {
	plans []Plan
	byID  map[string]Plan
}

func NewCatalog() *Catalog {
	c := &Catalog{
		plans: builtins,
		byID:  make(map[string]Plan, len(builtins)),
	}
	for _, p := range c.plans {
		c.byID[p.ID] = p
	}
	return c
}

// All returns the plans in catalog order. The slice is a copy; mutating it
// does not touch the catalog.
func (c *Catalog) All() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *Catalog) Find(id string) (Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return Plan{}, fmt.Errorf("plan %q: %w", id, internal.ErrNotFound)
	}
	return p, nil
}

// Filter selects plans by tag, difficulty classification and a free-text
// match on name and descriptions. Empty arguments match everything.
func (c *Catalog) Filter(tag, difficulty, query string) []Plan {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []Plan{}
	for _, p := range c.plans {
		if tag != "" && !p.hasTag(tag) {
			continue
		}
		if difficulty != "" && !p.hasTag(difficulty) {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesQuery(p Plan, query string) bool {
	for _, s := range []string{p.Name, p.ShortDescription, p.DetailedDescription} {
		if strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}
