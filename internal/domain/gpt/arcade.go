package gpt

import "strings"

func init() { //nolint:gochecknoinits // static registry
	register("wacca", GameConfig{Name: "WACCA", DefaultPlaytype: "Single", ValidPlaytypes: []string{"Single"}}, waccaConfig())
	register("chunithm", GameConfig{Name: "CHUNITHM", DefaultPlaytype: "Single", ValidPlaytypes: []string{"Single"}}, chunithmConfig())
	register("maimaidx", GameConfig{Name: "maimai DX", DefaultPlaytype: "Single", ValidPlaytypes: []string{"Single"}}, maimaiDXConfig())
}

func waccaConfig() *Config {
	return &Config{
		Game:     "wacca",
		Playtype: "Single",
		MandatoryMetrics: map[string]MetricDef{
			"score": intMetric(0, 1_000_000),
			"lamp":  enumMetric("CLEAR", "FAILED", "CLEAR", "MISSLESS", "FULL COMBO", "ALL MARVELOUS"),
		},
		DerivedMetrics: map[string]MetricDef{
			"grade": enumMetric("S", "D", "C", "B", "A", "AA", "AAA", "S", "S+", "SS", "SS+", "SSS", "SSS+", "MASTER"),
		},
		AdditionalMetrics:       map[string]MetricDef{},
		PrimaryMetric:           "score",
		ScoreRatingAlgs:         map[string]AlgDef{"rate": {Description: "Rate as it's implemented in game."}},
		ProfileRatingAlgs:       map[string]AlgDef{"naiveRate": {Description: "The sum of your best 50 rates."}},
		SessionRatingAlgs:       map[string]AlgDef{"rate": {Description: "The average of your best 10 rates this session."}},
		DefaultScoreRatingAlg:   "rate",
		DefaultSessionRatingAlg: "rate",
		DefaultProfileRatingAlg: "naiveRate",
		Difficulties: DifficultyConfig{
			Type:      Fixed,
			Order:     []string{"NORMAL", "HARD", "EXPERT", "INFERNO"},
			Shorthand: map[string]string{"NORMAL": "NRM", "HARD": "HRD", "EXPERT": "EXP", "INFERNO": "INF"},
			Colours:   map[string]string{"NORMAL": colourBlue, "HARD": colourOrange, "EXPERT": colourRed, "INFERNO": colourGray},
			Default:   "EXPERT",
		},
		SupportedClasses: map[string]ClassDef{
			"stageUp": {Downgradable: false, CanBeBatchManualSubmitted: true, Values: WACCAStageUps},
			"colour":  {Downgradable: true, CanBeBatchManualSubmitted: false, Values: WACCAColours},
		},
		OrderedJudgements:   []string{"marvelous", "great", "good", "miss"},
		ScoreBucket:         BucketGrade,
		SupportedVersions:   []string{"reverse"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"songTitle", "tachiSongID", "inGameID"},
	}
}

func chunithmConfig() *Config {
	return &Config{
		Game:     "chunithm",
		Playtype: "Single",
		MandatoryMetrics: map[string]MetricDef{
			"score": intMetric(0, 1_010_000),
			"lamp":  enumMetric("CLEAR", "FAILED", "CLEAR", "FULL COMBO", "ALL JUSTICE", "ALL JUSTICE CRITICAL"),
		},
		DerivedMetrics: map[string]MetricDef{
			"grade": enumMetric("S", "D", "C", "B", "BB", "BBB", "A", "AA", "AAA", "S", "S+", "SS", "SS+", "SSS", "SSS+"),
		},
		AdditionalMetrics:       map[string]MetricDef{},
		PrimaryMetric:           "score",
		ScoreRatingAlgs:         map[string]AlgDef{"rating": {Description: "The rating value of this score."}},
		ProfileRatingAlgs:       map[string]AlgDef{"naiveRating": {Description: "The average of your best 30 ratings."}},
		SessionRatingAlgs:       map[string]AlgDef{"naiveRating": {Description: "The average of your best 10 ratings this session."}},
		DefaultScoreRatingAlg:   "rating",
		DefaultSessionRatingAlg: "naiveRating",
		DefaultProfileRatingAlg: "naiveRating",
		Difficulties: DifficultyConfig{
			Type:      Fixed,
			Order:     []string{"BASIC", "ADVANCED", "EXPERT", "MASTER", "ULTIMA"},
			Shorthand: map[string]string{"BASIC": "BSC", "ADVANCED": "ADV", "EXPERT": "EXP", "MASTER": "MAS", "ULTIMA": "ULT"},
			Colours: map[string]string{
				"BASIC": colourGreen, "ADVANCED": colourOrange, "EXPERT": colourRed, "MASTER": colourPurple, "ULTIMA": colourGray,
			},
			Default: "MASTER",
		},
		SupportedClasses: map[string]ClassDef{
			"colour": {Downgradable: true, CanBeBatchManualSubmitted: false, Values: ChunithmColours},
		},
		OrderedJudgements:   []string{"jcrit", "justice", "attack", "miss"},
		ScoreBucket:         BucketGrade,
		SupportedVersions:   []string{"paradiselost", "sun", "sunplus", "luminous"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"inGameID", "tachiSongID", "songTitle"},
	}
}

func maimaiDXConfig() *Config {
	diffs := []string{
		"Basic", "Advanced", "Expert", "Master", "Re:Master",
		"DX Basic", "DX Advanced", "DX Expert", "DX Master", "DX Re:Master",
	}
	colours := map[string]string{}
	shorthand := map[string]string{}
	for _, d := range diffs {
		base := strings.TrimPrefix(d, "DX ")
		shorthand[d] = d
		colours[d] = map[string]string{
			"Basic": colourGreen, "Advanced": colourOrange, "Expert": colourRed, "Master": colourPurple, "Re:Master": colourWhite,
		}[base]
	}

	return &Config{
		Game:     "maimaidx",
		Playtype: "Single",
		MandatoryMetrics: map[string]MetricDef{
			"percent": decMetric(0, 101),
			"lamp":    enumMetric("CLEAR", "FAILED", "CLEAR", "FULL COMBO", "FULL COMBO+", "ALL PERFECT", "ALL PERFECT+"),
		},
		DerivedMetrics: map[string]MetricDef{
			"grade": enumMetric("S", "D", "C", "B", "BB", "BBB", "A", "AA", "AAA", "S", "S+", "SS", "SS+", "SSS", "SSS+"),
		},
		AdditionalMetrics:       map[string]MetricDef{},
		PrimaryMetric:           "percent",
		ScoreRatingAlgs:         map[string]AlgDef{"rate": {Description: "Rating as it's implemented in game."}},
		ProfileRatingAlgs:       map[string]AlgDef{"naiveRate": {Description: "The sum of your best 50 ratings."}},
		SessionRatingAlgs:       map[string]AlgDef{"rate": {Description: "The average of your best 10 ratings this session."}},
		DefaultScoreRatingAlg:   "rate",
		DefaultSessionRatingAlg: "rate",
		DefaultProfileRatingAlg: "naiveRate",
		Difficulties: DifficultyConfig{
			Type: Fixed, Order: diffs, Shorthand: shorthand, Colours: colours, Default: "DX Master",
		},
		SupportedClasses: map[string]ClassDef{
			"colour": {Downgradable: true, CanBeBatchManualSubmitted: false, Values: MaimaiDXColours},
			"dan":    {Downgradable: false, CanBeBatchManualSubmitted: true, Values: MaimaiDXDans},
		},
		OrderedJudgements:   []string{"pcrit", "perfect", "great", "good", "miss"},
		ScoreBucket:         BucketGrade,
		SupportedVersions:   []string{"universeplus", "festival", "festivalplus", "buddies"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"inGameID", "tachiSongID", "songTitle"},
	}
}
