package model

import "time"

// DryScore is the converter output: mandatory and supplied additional metrics, no identity.
type DryScore struct {
	Game         string         `json:"game"`
	ImportType   string         `json:"importType"`
	TimeAchieved *time.Time     `json:"timeAchieved"`
	Service      string         `json:"service"`
	Metrics      Metrics        `json:"metrics"`
	Optional     Metrics        `json:"optional"`
	Judgements   map[string]int `json:"judgements"`
	Comment      *string        `json:"comment"`
	ScoreMeta    map[string]any `json:"scoreMeta"`
}

// ScoreData is the hydrated metric payload of a score.
type ScoreData struct {
	// Metrics holds exactly the mandatory and derived metrics of the GPT.
	Metrics     Metrics        `json:"metrics"`
	Optional    Metrics        `json:"optional"`
	Judgements  map[string]int `json:"judgements"`
	EnumIndexes map[string]int `json:"enumIndexes"`
	ESD         *float64       `json:"esd"`
}

// Score is the canonical persisted score. Only Highlight and Comment change after creation.
type Score struct {
	ScoreID    string  `json:"scoreID"`
	UserID     int     `json:"userID"`
	Game       string  `json:"game"`
	Playtype   string  `json:"playtype"`
	SongID     int     `json:"songID"`
	ChartID    string  `json:"chartID"`
	IsPrimary  bool    `json:"isPrimary"`
	Highlight  bool    `json:"highlight"`
	Comment    *string `json:"comment"`
	ImportType string  `json:"importType"`
	Service    string  `json:"service"`

	ScoreData ScoreData `json:"scoreData"`

	// CalculatedData omits algorithms that had no result for this score.
	CalculatedData map[string]float64 `json:"calculatedData"`
	ScoreMeta      map[string]any     `json:"scoreMeta"`

	TimeAdded    time.Time  `json:"timeAdded"`
	TimeAchieved *time.Time `json:"timeAchieved"`
}

// Calculated returns a calculatedData entry.
func (s *Score) Calculated(alg string) (float64, bool) {
	v, ok := s.CalculatedData[alg]
	return v, ok
}
