package rating

import (
	"context"
	"math"
	"slices"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/pkg/logger"
)

// ClassHandler derives class values from profile ratings. Sets it cannot decide are left out.
type ClassHandler func(ctx context.Context, ratings map[string]float64) map[string]int

func classIndex(values []string, v string) int { return slices.Index(values, v) }

// SDVXVF6ToClass maps a profile VF6 onto the volforce tiers.
// Values at or above 24 are clamped to IMPERIAL_IV.
func SDVXVF6ToClass(ctx context.Context, vf float64) int {
	imperialI := classIndex(gpt.SDVXVFClasses, "IMPERIAL_I")
	switch {
	case vf >= 24:
		logger.Named("rating").Warn(ctx, "excessive VF6, defaulting to IMPERIAL_IV", logger.Float64("vf6", vf))
		return classIndex(gpt.SDVXVFClasses, "IMPERIAL_IV")
	case vf >= 20:
		return imperialI + int(math.Floor(vf-20))
	case vf >= 14:
		return classIndex(gpt.SDVXVFClasses, "CYAN_I") + int(math.Floor(4*(vf-14)))
	case vf >= 10:
		return classIndex(gpt.SDVXVFClasses, "COBALT_I") + int(math.Floor(2*(vf-10)))
	}
	return int(math.Floor(vf / 2.5))
}

// band is a half-open lower bound; bands are checked top-down.
type band struct {
	min   float64
	class string
}

func banded(values []string, bands []band, bottom string, v float64) int {
	for _, b := range bands {
		if v >= b.min {
			return classIndex(values, b.class)
		}
	}
	return classIndex(values, bottom)
}

var gitadoraBands = []band{
	{8500, "RAINBOW"}, {8000, "GOLD"}, {7500, "SILVER"}, {7000, "BRONZE"},
	{6500, "RED_GRADIENT"}, {6000, "RED"}, {5500, "PURPLE_GRADIENT"}, {5000, "PURPLE"},
	{4500, "BLUE_GRADIENT"}, {4000, "BLUE"}, {3500, "GREEN_GRADIENT"}, {3000, "GREEN"},
	{2500, "YELLOW_GRADIENT"}, {2000, "YELLOW"}, {1500, "ORANGE_GRADIENT"}, {1000, "ORANGE"},
}

// GitadoraSkillToColour maps profile skill onto the gitadora colours.
func GitadoraSkillToColour(skill float64) int {
	return banded(gpt.GitadoraColours, gitadoraBands, "WHITE", skill)
}

var waccaBands = []band{
	{2500, "RAINBOW"}, {2200, "GOLD"}, {1900, "SILVER"}, {1600, "BLUE"},
	{1300, "PURPLE"}, {1000, "RED"}, {600, "YELLOW"}, {300, "NAVY"},
}

// WACCARateToColour maps profile rate onto the WACCA colours.
func WACCARateToColour(rate float64) int {
	return banded(gpt.WACCAColours, waccaBands, "ASH", rate)
}

// PopnClassPointsToClass maps naive class points onto the pop'n classes.
func PopnClassPointsToClass(points float64) int {
	bands := []band{
		{91, "GOD"}, {79, "HERMIT"}, {68, "GENERAL"}, {59, "IDOL"},
		{46, "DETECTIVE"}, {34, "DELINQUENT"}, {21, "GRADE_SCHOOL"},
	}
	return banded(gpt.PopnClasses, bands, "KITTY", points)
}

var chunithmBands = []band{
	{15, "RAINBOW"}, {14.5, "PLATINUM"}, {14, "GOLD"}, {13, "SILVER"}, {12, "BRONZE"},
	{10, "PURPLE"}, {7, "RED"}, {4, "ORANGE"}, {2, "GREEN"},
}

// ChunithmRatingToColour maps naive rating onto the CHUNITHM colours.
func ChunithmRatingToColour(rating float64) int {
	return banded(gpt.ChunithmColours, chunithmBands, "BLUE", rating)
}

var jubeatBands = []band{
	{9500, "GOLD"}, {8500, "ORANGE"}, {7000, "PINK"}, {5500, "PURPLE"}, {4000, "VIOLET"},
	{2500, "BLUE"}, {1500, "LIGHT_BLUE"}, {750, "GREEN"}, {250, "YELLOW_GREEN"},
}

// JubeatJubilityToColour maps jubility onto the jubeat colours.
func JubeatJubilityToColour(jubility float64) int {
	return banded(gpt.JubeatColours, jubeatBands, "BLACK", jubility)
}

var maimaiDXBands = []band{
	{15000, "RAINBOW"}, {14500, "PLATINUM"}, {14000, "GOLD"}, {13000, "SILVER"}, {12000, "BRONZE"},
	{10000, "PURPLE"}, {7000, "RED"}, {4000, "YELLOW"}, {2000, "GREEN"}, {1000, "BLUE"},
}

// MaimaiDXRateToColour maps naive rate onto the maimai DX colours.
func MaimaiDXRateToColour(rate float64) int {
	return banded(gpt.MaimaiDXColours, maimaiDXBands, "WHITE", rate)
}

// fromRating builds a handler that reads one profile rating. A missing rating yields nothing.
func fromRating(set, ratingName string, fn func(float64) int) ClassHandler {
	return func(_ context.Context, ratings map[string]float64) map[string]int {
		v, ok := ratings[ratingName]
		if !ok || math.IsNaN(v) {
			return nil
		}
		return map[string]int{set: fn(v)}
	}
}

func builtinClassHandlers() map[string]ClassHandler {
	sdvx := func(ctx context.Context, ratings map[string]float64) map[string]int {
		v, ok := ratings["VF6"]
		if !ok {
			return nil
		}
		return map[string]int{"vfClass": SDVXVF6ToClass(ctx, v)}
	}
	return map[string]ClassHandler{
		"sdvx:Single":     sdvx,
		"gitadora:Gita":   fromRating("colour", "skill", GitadoraSkillToColour),
		"gitadora:Dora":   fromRating("colour", "skill", GitadoraSkillToColour),
		"wacca:Single":    fromRating("colour", "naiveRate", WACCARateToColour),
		"popn:9B":         fromRating("class", "naiveClassPoints", PopnClassPointsToClass),
		"chunithm:Single": fromRating("colour", "naiveRating", ChunithmRatingToColour),
		"jubeat:Single":   fromRating("colour", "jubility", JubeatJubilityToColour),
		"maimaidx:Single": fromRating("colour", "naiveRate", MaimaiDXRateToColour),
	}
}
