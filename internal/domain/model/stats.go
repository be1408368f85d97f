package model

import "time"

// UserGameStats is the per-(user, game, playtype) profile.
type UserGameStats struct {
	UserID   int                `json:"userID"`
	Game     string             `json:"game"`
	Playtype string             `json:"playtype"`
	Ratings  map[string]float64 `json:"ratings"`
	Classes  map[string]int     `json:"classes"`
}

// GamePreferences are user-chosen defaults for a GPT.
type GamePreferences struct {
	PreferredScoreAlg   *string  `json:"preferredScoreAlg"`
	PreferredSessionAlg *string  `json:"preferredSessionAlg"`
	PreferredProfileAlg *string  `json:"preferredProfileAlg"`
	StatDisplay         []string `json:"stats"`
}

// GameSettings is created alongside the first stats document for a GPT.
type GameSettings struct {
	UserID      int             `json:"userID"`
	Game        string          `json:"game"`
	Playtype    string          `json:"playtype"`
	Preferences GamePreferences `json:"preferences"`
	Rivals      []int           `json:"rivals"`
}

// ClassAchievement is an append-only record of a class improvement.
type ClassAchievement struct {
	UserID        int       `json:"userID"`
	Game          string    `json:"game"`
	Playtype      string    `json:"playtype"`
	ClassSet      string    `json:"classSet"`
	ClassOldValue *int      `json:"classOldValue"`
	ClassValue    int       `json:"classValue"`
	TimeAchieved  time.Time `json:"timeAchieved"`
}

// Session groups scores imported close together.
type Session struct {
	SessionID    string             `json:"sessionID"`
	UserID       int                `json:"userID"`
	Game         string             `json:"game"`
	Playtype     string             `json:"playtype"`
	Name         string             `json:"name"`
	Desc         string             `json:"desc"`
	ImportType   string             `json:"importType"`
	ScoreIDs     []string           `json:"scoreIDs"`
	Calculated   map[string]float64 `json:"calculatedData"`
	Highlight    bool               `json:"highlight"`
	TimeInserted time.Time          `json:"timeInserted"`
	TimeStarted  time.Time          `json:"timeStarted"`
	TimeEnded    time.Time          `json:"timeEnded"`
}
