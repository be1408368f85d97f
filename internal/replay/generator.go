package replay

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// baseTime anchors generated timeAchieved values so repeated runs with the
// same seed produce the same score IDs.
var baseTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generate builds one batch per user. The same seed yields the same batches.
func Generate(cfg *Config) []Batch {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	batches := make([]Batch, cfg.Users)
	for u := range batches {
		b := Batch{
			UserID: cfg.FirstUserID + u,
			Meta:   BatchMeta{Game: cfg.Game, Playtype: cfg.Playtype, Service: "replay"},
			Scores: make([]Entry, cfg.ScoresPerUser),
		}
		for i := range b.Scores {
			chart := cfg.Charts[rng.IntN(len(cfg.Charts))]
			b.Scores[i] = Entry{
				MatchType:    "inGameID",
				Identifier:   chart.Identifier,
				Difficulty:   chart.Difficulty,
				Score:        rng.IntN(chart.MaxScore + 1),
				Lamp:         cfg.Lamps[rng.IntN(len(cfg.Lamps))],
				TimeAchieved: baseTime.Add(time.Duration(u*cfg.ScoresPerUser+i) * time.Minute).UnixMilli(),
			}
		}
		batches[u] = b
	}
	return batches
}

func (b Batch) userHeader() string { return strconv.Itoa(b.UserID) }
