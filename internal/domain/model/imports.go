package model

import "time"

// ImportError is a per-entry import failure.
type ImportError struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClassDelta records a class change caused by an import.
type ClassDelta struct {
	Game     string `json:"game"`
	Playtype string `json:"playtype"`
	Set      string `json:"set"`
	Old      *int   `json:"old"`
	New      int    `json:"new"`
}

// GoalImportInfo is the before/after of a goal subscription touched by an import.
type GoalImportInfo struct {
	GoalID string       `json:"goalID"`
	Old    GoalProgress `json:"old"`
	New    GoalProgress `json:"new"`
}

// MilestoneImportInfo is the before/after of a milestone subscription touched by an import.
type MilestoneImportInfo struct {
	MilestoneID string            `json:"milestoneID"`
	Old         MilestoneProgress `json:"old"`
	New         MilestoneProgress `json:"new"`
}

// SessionInfo says whether an import created or appended to a session.
type SessionInfo struct {
	SessionID string `json:"sessionID"`
	Type      string `json:"type"`
}

// ImportDocument is the persisted record of one import.
type ImportDocument struct {
	ImportID        string                `json:"importID"`
	UserID          int                   `json:"userID"`
	ImportType      string                `json:"importType"`
	Game            string                `json:"game"`
	Playtypes       []string              `json:"playtypes"`
	UserIntent      bool                  `json:"userIntent"`
	TimeStarted     time.Time             `json:"timeStarted"`
	TimeFinished    time.Time             `json:"timeFinished"`
	ScoreIDs        []string              `json:"scoreIDs"`
	Errors          []ImportError         `json:"errors"`
	ClassDeltas     []ClassDelta          `json:"classDeltas"`
	GoalInfo        []GoalImportInfo      `json:"goalInfo"`
	MilestoneInfo   []MilestoneImportInfo `json:"milestoneInfo"`
	CreatedSessions []SessionInfo         `json:"createdSessions"`
}
