package model

// Song is a catalog song. Songs are identified by (game, id).
type Song struct {
	ID          int            `json:"id"`
	Game        string         `json:"game"`
	Title       string         `json:"title"`
	Artist      string         `json:"artist"`
	AltTitles   []string       `json:"altTitles"`
	SearchTerms []string       `json:"searchTerms"`
	Data        map[string]any `json:"data,omitempty"`
}

// ChartData holds the game-specific fields a converter or rating alg may need.
type ChartData struct {
	InGameID       *int     `json:"inGameID,omitempty"`
	Notecount      int      `json:"notecount,omitempty"`
	Hash           string   `json:"hash,omitempty"`
	KaiAverage     *int     `json:"kaidenAverage,omitempty"`
	WorldRecord    *int     `json:"worldRecord,omitempty"`
	BPICoefficient *float64 `json:"bpiCoefficient,omitempty"`
	ARCChartID     string   `json:"arcChartID,omitempty"`
}

// TierlistEntry is a chart's placement on one tierlist.
type TierlistEntry struct {
	Value      float64 `json:"value"`
	Text       string  `json:"text"`
	Individual bool    `json:"individualDifference"`
}

// Chart is a playable difficulty of a song.
type Chart struct {
	ChartID      string                   `json:"chartID"`
	SongID       int                      `json:"songID"`
	Game         string                   `json:"game"`
	Playtype     string                   `json:"playtype"`
	Difficulty   string                   `json:"difficulty"`
	Level        string                   `json:"level"`
	LevelNum     float64                  `json:"levelNum"`
	IsPrimary    bool                     `json:"isPrimary"`
	Versions     []string                 `json:"versions"`
	Data         ChartData                `json:"data"`
	TierlistInfo map[string]TierlistEntry `json:"tierlistInfo,omitempty"`
}
