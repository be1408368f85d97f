package gpt

import "strings"

func init() { //nolint:gochecknoinits // static registry
	sp := iidxConfig("SP")
	sp.SupportedTierlists = map[string]AlgDef{
		"kt-NC":   {Description: "The Normal Clear tiers, adapted from multiple community sources."},
		"kt-HC":   {Description: "The Hard Clear tiers, adapted from multiple community sources."},
		"kt-EXHC": {Description: "The EX-HARD Clear tiers, adapted from multiple community sources."},
	}

	dp := iidxConfig("DP")
	dp.SupportedTierlists = map[string]AlgDef{
		"dp-tier": {Description: "The unofficial DP tiers."},
	}

	register("iidx", GameConfig{Name: "beatmania IIDX", DefaultPlaytype: "SP", ValidPlaytypes: []string{"SP", "DP"}}, sp, dp)
}

// IIDXLamps is the IIDX lamp order.
var IIDXLamps = []string{
	"NO PLAY", "FAILED", "ASSIST CLEAR", "EASY CLEAR", "CLEAR", "HARD CLEAR", "EX HARD CLEAR", "FULL COMBO",
}

// IIDXDifficulties is the fixed IIDX difficulty order.
var IIDXDifficulties = []string{
	"NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA",
	"All Scratch NORMAL", "All Scratch HYPER", "All Scratch ANOTHER", "All Scratch LEGGENDARIA",
	"Kichiku NORMAL", "Kichiku HYPER", "Kichiku ANOTHER", "Kichiku LEGGENDARIA",
	"Kiraku NORMAL", "Kiraku HYPER", "Kiraku ANOTHER", "Kiraku LEGGENDARIA",
}

func iidxConfig(playtype string) *Config {
	shorthand := map[string]string{}
	colours := map[string]string{}
	base := map[string]struct{ short, colour string }{
		"NORMAL": {"N", colourBlue}, "HYPER": {"H", colourOrange},
		"ANOTHER": {"A", colourRed}, "LEGGENDARIA": {"L", colourPurple},
	}
	for _, d := range IIDXDifficulties {
		suffix, name := "", d
		for _, p := range []struct{ full, short string }{{"All Scratch ", " (Scr.)"}, {"Kichiku ", " (Kc.)"}, {"Kiraku ", " (Kr.)"}} {
			if rest, ok := strings.CutPrefix(d, p.full); ok {
				suffix, name = p.short, rest
			}
		}
		shorthand[d] = base[name].short + suffix
		colours[d] = base[name].colour
	}

	return &Config{
		Game:     "iidx",
		Playtype: playtype,
		MandatoryMetrics: map[string]MetricDef{
			"score": {Kind: Integer, Min: bound(0)},
			"lamp":  enumMetric("CLEAR", IIDXLamps...),
		},
		DerivedMetrics: map[string]MetricDef{
			"percent": decMetric(0, 100),
			"grade":   enumMetric("A", "F", "E", "D", "C", "B", "A", "AA", "AAA", "MAX-", "MAX"),
		},
		AdditionalMetrics: map[string]MetricDef{
			"bp":           {Kind: Integer, Min: bound(0)},
			"gauge":        decMetric(0, 100),
			"comboBreak":   {Kind: Integer, Min: bound(0)},
			"gaugeHistory": {Kind: Graph},
			"gsmEasy":      {Kind: Graph},
			"gsmNormal":    {Kind: Graph},
			"gsmHard":      {Kind: Graph},
			"gsmEXHard":    {Kind: Graph},
		},
		PrimaryMetric: "percent",
		ScoreRatingAlgs: map[string]AlgDef{
			"ktLampRating": {Description: "A rating system that values your clear lamps on charts. Tierlist information is taken into account."},
			"BPI":          {Description: "A rating system for Kaiden level play. Only applies to 11s and 12s. 0 is the Kaiden Average, 100 is the world record."},
		},
		ProfileRatingAlgs: map[string]AlgDef{
			"ktLampRating": {Description: "An average of your best 20 ktLampRatings."},
			"BPI":          {Description: "An average of your best 20 BPIs."},
		},
		SessionRatingAlgs: map[string]AlgDef{
			"ktLampRating": {Description: "An average of the best 10 ktLampRatings this session."},
			"BPI":          {Description: "An average of the best 10 BPIs this session."},
		},
		DefaultScoreRatingAlg:   "ktLampRating",
		DefaultSessionRatingAlg: "ktLampRating",
		DefaultProfileRatingAlg: "ktLampRating",
		Difficulties: DifficultyConfig{
			Type:      Fixed,
			Order:     IIDXDifficulties,
			Shorthand: shorthand,
			Colours:   colours,
			Default:   "ANOTHER",
		},
		SupportedClasses: map[string]ClassDef{
			"dan": {Downgradable: false, CanBeBatchManualSubmitted: true, Values: IIDXDans},
		},
		OrderedJudgements: []string{"pgreat", "great", "good", "bad", "poor"},
		ScoreBucket:       BucketLamp,
		SupportedVersions: []string{
			"3rd Style CS", "4th Style CS", "5th Style CS", "6th Style CS", "7th Style CS",
			"8th Style CS", "9th Style CS", "10th Style CS", "IIDX RED CS", "HAPPY SKY CS",
			"DISTORTED CS", "GOLD CS", "DJ TROOPERS CS", "EMPRESS CS",
			"tricoro", "SPADA", "PENDUAL", "copula", "SINOBUZ", "CANNON BALLERS", "ROOTAGE",
			"HEROIC VERSE", "BISTROVER", "CastHour", "Resident",
			"ROOTAGE Omnimix", "HEROIC VERSE Omnimix", "BISTROVER Omnimix", "CastHour Omnimix",
			"HEROIC VERSE 2dxtra", "BISTROVER 2dxtra", "BEATMANIA US", "INFINITAS",
		},
		SupportedMatchTypes: []string{"inGameID", "tachiSongID", "songTitle"},
	}
}
