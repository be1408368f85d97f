package model

import "time"

// Goal chart selector kinds.
const (
	GoalChartsSingle = "single"
	GoalChartsMulti  = "multi"
)

// Goal criteria modes.
const (
	CriteriaSingle     = "single"
	CriteriaAbsolute   = "absolute"
	CriteriaProportion = "proportion"
)

// Milestone criteria types.
const (
	MilestoneAll   = "all"
	MilestoneTotal = "total"
)

// GoalCharts selects the charts a goal is evaluated on.
type GoalCharts struct {
	Type string   `json:"type" validate:"required,oneof=single multi"`
	Data []string `json:"data" validate:"required,min=1,dive,required"`
}

// GoalCriteria is "metric Key reaches Value", optionally on CountNum charts.
// For ENUM metrics Value is the enum index.
type GoalCriteria struct {
	Key      string   `json:"key" validate:"required"`
	Value    float64  `json:"value"`
	Mode     string   `json:"mode" validate:"required,oneof=single absolute proportion"`
	CountNum *float64 `json:"countNum,omitempty"`
}

// Goal is a declarative target on one GPT.
type Goal struct {
	GoalID   string       `json:"goalID"`
	Game     string       `json:"game"`
	Playtype string       `json:"playtype"`
	Name     string       `json:"name"`
	Charts   GoalCharts   `json:"charts"`
	Criteria GoalCriteria `json:"criteria"`
}

// GoalProgress is the result of evaluating a goal for a user.
type GoalProgress struct {
	Achieved      bool     `json:"achieved"`
	Progress      *float64 `json:"progress"`
	OutOf         float64  `json:"outOf"`
	ProgressHuman string   `json:"progressHuman"`
	OutOfHuman    string   `json:"outOfHuman"`
}

// GoalSubscription is a user's subscription to a goal.
type GoalSubscription struct {
	UserID   int    `json:"userID"`
	GoalID   string `json:"goalID"`
	Game     string `json:"game"`
	Playtype string `json:"playtype"`
	GoalProgress

	WasInstantlyAchieved  bool       `json:"wasInstantlyAchieved"`
	WasAssignedStandalone bool       `json:"wasAssignedStandalone"`
	LastInteraction       *time.Time `json:"lastInteraction"`
	TimeSet               time.Time  `json:"timeSet"`
	TimeAchieved          *time.Time `json:"timeAchieved"`
}

// MilestoneCriteria says how many goals must be achieved.
type MilestoneCriteria struct {
	Type  string `json:"type" validate:"required,oneof=all total"`
	Value *int   `json:"value" validate:"omitempty,min=1"`
}

// MilestoneGoalRef references a goal from a milestone section.
type MilestoneGoalRef struct {
	GoalID string `json:"goalID" validate:"required"`
	Note   string `json:"note,omitempty"`
}

// MilestoneSection is an ordered, titled group of goals.
type MilestoneSection struct {
	Title string             `json:"title"`
	Desc  string             `json:"desc"`
	Goals []MilestoneGoalRef `json:"goals" validate:"required,min=1,dive"`
}

// Milestone is a named grouping of at least two goals.
type Milestone struct {
	MilestoneID   string             `json:"milestoneID"`
	Game          string             `json:"game"`
	Playtype      string             `json:"playtype"`
	Name          string             `json:"name"`
	Desc          string             `json:"desc"`
	Criteria      MilestoneCriteria  `json:"criteria"`
	MilestoneData []MilestoneSection `json:"milestoneData"`
	CreatedBy     int                `json:"createdBy"`
	TimeCreated   time.Time          `json:"timeCreated"`
}

// MilestoneProgress is the result of evaluating a milestone for a user.
type MilestoneProgress struct {
	Achieved bool `json:"achieved"`
	Progress int  `json:"progress"`
	OutOf    int  `json:"outOf"`
}

// MilestoneSubscription is a user's subscription to a milestone.
type MilestoneSubscription struct {
	UserID      int    `json:"userID"`
	MilestoneID string `json:"milestoneID"`
	Game        string `json:"game"`
	Playtype    string `json:"playtype"`
	MilestoneProgress

	WasInstantlyAchieved bool       `json:"wasInstantlyAchieved"`
	LastInteraction      *time.Time `json:"lastInteraction"`
	TimeSet              time.Time  `json:"timeSet"`
	TimeAchieved         *time.Time `json:"timeAchieved"`
}

// MilestoneSet is an ordered list of milestones.
type MilestoneSet struct {
	SetID      string   `json:"setID"`
	Game       string   `json:"game"`
	Playtype   string   `json:"playtype"`
	Name       string   `json:"name"`
	Desc       string   `json:"desc"`
	Milestones []string `json:"milestones"`
}
