package hydrate

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/rgtrack/internal/domain/model"
)

// CreateScoreID derives a stable ID from the score's identity-relevant content:
// user, game, chart, mandatory metrics and time achieved. Re-importing the same play
// yields the same ID.
func CreateScoreID(userID int, dry *model.DryScore, chartID string) string {
	keys := make([]string, 0, len(dry.Metrics))
	for k := range dry.Metrics {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(strconv.Itoa(userID))
	b.WriteByte('|')
	b.WriteString(dry.Game)
	b.WriteByte('|')
	b.WriteString(chartID)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(dry.Metrics[k].String())
	}
	b.WriteByte('|')
	if dry.TimeAchieved != nil {
		b.WriteString(strconv.FormatInt(dry.TimeAchieved.UnixMilli(), 10))
	} else {
		b.WriteString("null")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "R" + hex.EncodeToString(sum[:])
}
