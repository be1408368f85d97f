package gpt

import "fmt"

// IIDXDans is ordered from lowest to highest.
var IIDXDans = []string{
	"KYU_7", "KYU_6", "KYU_5", "KYU_4", "KYU_3", "KYU_2", "KYU_1",
	"DAN_1", "DAN_2", "DAN_3", "DAN_4", "DAN_5", "DAN_6", "DAN_7", "DAN_8", "DAN_9", "DAN_10",
	"CHUUDEN", "KAIDEN",
}

// SDVXVFClasses are the volforce tiers, four steps per colour.
var SDVXVFClasses = tiered([]string{
	"SIENNA", "COBALT", "DANDELION", "CYAN", "SCARLET",
	"CORAL", "ARGENTO", "ELDORA", "CRIMSON", "IMPERIAL",
}, "I", "II", "III", "IV")

// SDVXDans are the skill analyzer levels.
var SDVXDans = []string{
	"DAN_1", "DAN_2", "DAN_3", "DAN_4", "DAN_5", "DAN_6",
	"DAN_7", "DAN_8", "DAN_9", "DAN_10", "DAN_11", "INF",
}

var GitadoraColours = []string{
	"WHITE", "ORANGE", "ORANGE_GRADIENT", "YELLOW", "YELLOW_GRADIENT",
	"GREEN", "GREEN_GRADIENT", "BLUE", "BLUE_GRADIENT", "PURPLE", "PURPLE_GRADIENT",
	"RED", "RED_GRADIENT", "BRONZE", "SILVER", "GOLD", "RAINBOW",
}

var WACCAColours = []string{"ASH", "NAVY", "YELLOW", "RED", "PURPLE", "BLUE", "SILVER", "GOLD", "RAINBOW"}

var WACCAStageUps = []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII", "XIII", "XIV"}

var PopnClasses = []string{"KITTY", "GRADE_SCHOOL", "DELINQUENT", "DETECTIVE", "IDOL", "GENERAL", "HERMIT", "GOD"}

var ChunithmColours = []string{"BLUE", "GREEN", "ORANGE", "RED", "PURPLE", "BRONZE", "SILVER", "GOLD", "PLATINUM", "RAINBOW"}

var JubeatColours = []string{"BLACK", "YELLOW_GREEN", "GREEN", "LIGHT_BLUE", "BLUE", "VIOLET", "PURPLE", "PINK", "ORANGE", "GOLD"}

var MaimaiDXColours = []string{"WHITE", "BLUE", "GREEN", "YELLOW", "RED", "PURPLE", "BRONZE", "SILVER", "GOLD", "PLATINUM", "RAINBOW"}

var MaimaiDXDans = append(
	numbered("DAN_", 10),
	append(numbered("SHINDAN_", 10), "SHINKAIDEN", "URAKAIDEN")...,
)

func tiered(colours []string, steps ...string) []string {
	out := make([]string, 0, len(colours)*len(steps))
	for _, c := range colours {
		for _, s := range steps {
			out = append(out, c+"_"+s)
		}
	}
	return out
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}
