package gpt

import "strings"

func init() { //nolint:gochecknoinits // static registry
	gita := gitadoraConfig("Gita", []string{
		"BASIC", "ADVANCED", "EXTREME", "MASTER",
		"BASS BASIC", "BASS ADVANCED", "BASS EXTREME", "BASS MASTER",
	})
	dora := gitadoraConfig("Dora", []string{"BASIC", "ADVANCED", "EXTREME", "MASTER"})
	register("gitadora", GameConfig{Name: "GITADORA", DefaultPlaytype: "Dora", ValidPlaytypes: []string{"Gita", "Dora"}}, gita, dora)

	register("popn", GameConfig{Name: "pop'n music", DefaultPlaytype: "9B", ValidPlaytypes: []string{"9B"}}, popnConfig())
	register("jubeat", GameConfig{Name: "jubeat", DefaultPlaytype: "Single", ValidPlaytypes: []string{"Single"}}, jubeatConfig())
}

var GitadoraLamps = []string{"FAILED", "CLEAR", "FULL COMBO", "EXCELLENT"}

func gitadoraConfig(playtype string, diffs []string) *Config {
	shorthand := map[string]string{}
	colours := map[string]string{}
	for _, d := range diffs {
		short, colour := "", ""
		switch d[len(d)-1] {
		case 'C':
			short, colour = "BSC", colourBlue
		case 'D':
			short, colour = "ADV", colourOrange
		case 'E':
			short, colour = "EXT", colourRed
		default:
			short, colour = "MAS", colourPurple
		}
		if strings.HasPrefix(d, "BASS ") {
			short = "BASS " + short
		}
		shorthand[d], colours[d] = short, colour
	}

	return &Config{
		Game:     "gitadora",
		Playtype: playtype,
		MandatoryMetrics: map[string]MetricDef{
			"percent": decMetric(0, 100),
			"lamp":    enumMetric("CLEAR", GitadoraLamps...),
		},
		DerivedMetrics: map[string]MetricDef{
			"grade": enumMetric("A", "C", "B", "A", "S", "SS", "MAX"),
		},
		AdditionalMetrics: map[string]MetricDef{
			"maxCombo": {Kind: Integer, Min: bound(0)},
		},
		PrimaryMetric:           "percent",
		ScoreRatingAlgs:         map[string]AlgDef{"skill": {Description: "Skill as it's implemented in-game."}},
		ProfileRatingAlgs:       map[string]AlgDef{"skill": {Description: "The sum of your best 50 skill values."}},
		SessionRatingAlgs:       map[string]AlgDef{"skill": {Description: "The average of your best 10 skill values this session."}},
		DefaultScoreRatingAlg:   "skill",
		DefaultSessionRatingAlg: "skill",
		DefaultProfileRatingAlg: "skill",
		Difficulties: DifficultyConfig{
			Type: Fixed, Order: diffs, Shorthand: shorthand, Colours: colours, Default: "EXTREME",
		},
		SupportedClasses: map[string]ClassDef{
			"colour": {Downgradable: true, CanBeBatchManualSubmitted: false, Values: GitadoraColours},
		},
		OrderedJudgements:   []string{"perfect", "great", "good", "ok", "miss"},
		ScoreBucket:         BucketGrade,
		SupportedVersions:   []string{"konaste", "highvoltage", "fuzzup", "galaxywave"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"inGameID", "songTitle", "tachiSongID"},
	}
}

// PopnClearMedals is ordered from worst to best.
var PopnClearMedals = []string{
	"failedCircle", "failedDiamond", "failedStar", "easyClear",
	"clearCircle", "clearDiamond", "clearStar",
	"fullComboCircle", "fullComboDiamond", "fullComboStar", "perfect",
}

func popnConfig() *Config {
	return &Config{
		Game:     "popn",
		Playtype: "9B",
		MandatoryMetrics: map[string]MetricDef{
			"score":      intMetric(0, 100_000),
			"clearMedal": enumMetric("clearCircle", PopnClearMedals...),
		},
		DerivedMetrics: map[string]MetricDef{
			"lamp":  enumMetric("CLEAR", "FAILED", "EASY CLEAR", "CLEAR", "FULL COMBO", "PERFECT"),
			"grade": enumMetric("A", "E", "D", "C", "B", "A", "AA", "AAA", "S"),
		},
		AdditionalMetrics: map[string]MetricDef{
			"gauge": decMetric(0, 100),
		},
		PrimaryMetric:           "score",
		ScoreRatingAlgs:         map[string]AlgDef{"classPoints": {Description: "Class Points as they're implemented in-game."}},
		ProfileRatingAlgs:       map[string]AlgDef{"naiveClassPoints": {Description: "The average of your best 20 class points."}},
		SessionRatingAlgs:       map[string]AlgDef{"classPoints": {Description: "The average of your best 10 class points this session."}},
		DefaultScoreRatingAlg:   "classPoints",
		DefaultSessionRatingAlg: "classPoints",
		DefaultProfileRatingAlg: "naiveClassPoints",
		Difficulties: DifficultyConfig{
			Type:      Fixed,
			Order:     []string{"Easy", "Normal", "Hyper", "EX"},
			Shorthand: map[string]string{"Easy": "E", "Normal": "N", "Hyper": "H", "EX": "EX"},
			Colours:   map[string]string{"Easy": colourBlue, "Normal": colourGreen, "Hyper": colourOrange, "EX": colourRed},
			Default:   "EX",
		},
		SupportedClasses: map[string]ClassDef{
			"class": {Downgradable: true, CanBeBatchManualSubmitted: false, Values: PopnClasses},
		},
		OrderedJudgements:   []string{"cool", "great", "good", "bad"},
		ScoreBucket:         BucketLamp,
		SupportedVersions:   []string{"peace", "kaimei", "unilab"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"popnChartHash", "inGameID", "tachiSongID", "songTitle"},
	}
}

func jubeatConfig() *Config {
	diffs := []string{"BSC", "ADV", "EXT", "HARD BSC", "HARD ADV", "HARD EXT"}
	return &Config{
		Game:     "jubeat",
		Playtype: "Single",
		MandatoryMetrics: map[string]MetricDef{
			"score":     intMetric(0, 1_000_000),
			"musicRate": decMetric(0, 120),
			"lamp":      enumMetric("CLEAR", "FAILED", "CLEAR", "FULL COMBO", "EXCELLENT"),
		},
		DerivedMetrics: map[string]MetricDef{
			"grade": enumMetric("A", "E", "D", "C", "B", "A", "S", "SS", "SSS", "EXC"),
		},
		AdditionalMetrics:       map[string]MetricDef{},
		PrimaryMetric:           "score",
		ScoreRatingAlgs:         map[string]AlgDef{"jubility": {Description: "Jubility as it's implemented in-game."}},
		ProfileRatingAlgs:       map[string]AlgDef{"jubility": {Description: "The sum of your best 60 jubility values."}},
		SessionRatingAlgs:       map[string]AlgDef{"jubility": {Description: "The average of your best 10 jubility values this session."}},
		DefaultScoreRatingAlg:   "jubility",
		DefaultSessionRatingAlg: "jubility",
		DefaultProfileRatingAlg: "jubility",
		Difficulties: DifficultyConfig{
			Type:  Fixed,
			Order: diffs,
			Shorthand: map[string]string{
				"BSC": "BSC", "ADV": "ADV", "EXT": "EXT", "HARD BSC": "H-BSC", "HARD ADV": "H-ADV", "HARD EXT": "H-EXT",
			},
			Colours: map[string]string{
				"BSC": colourGreen, "ADV": colourOrange, "EXT": colourRed,
				"HARD BSC": colourGreen, "HARD ADV": colourOrange, "HARD EXT": colourRed,
			},
			Default: "EXT",
		},
		SupportedClasses: map[string]ClassDef{
			"colour": {Downgradable: true, CanBeBatchManualSubmitted: false, Values: JubeatColours},
		},
		OrderedJudgements:   []string{"perfect", "great", "good", "poor", "miss"},
		ScoreBucket:         BucketGrade,
		SupportedVersions:   []string{"festo", "ave"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"inGameID", "tachiSongID", "songTitle"},
	}
}
