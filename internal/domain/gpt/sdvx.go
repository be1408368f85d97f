package gpt

func init() { //nolint:gochecknoinits // static registry
	sdvx := sdvxLikeConfig("sdvx", "Single")
	sdvx.Difficulties = DifficultyConfig{
		Type:  Fixed,
		Order: []string{"NOV", "ADV", "EXH", "INF", "GRV", "HVN", "VVD", "XCD", "MXM"},
		Shorthand: map[string]string{
			"NOV": "NOV", "ADV": "ADV", "EXH": "EXH", "INF": "INF", "GRV": "GRV",
			"HVN": "HVN", "VVD": "VVD", "XCD": "XCD", "MXM": "MXM",
		},
		Colours: map[string]string{
			"NOV": colourPurple, "ADV": colourOrange, "EXH": colourRed, "INF": colourRed,
			"GRV": colourOrange, "HVN": colourPaleBlue, "VVD": colourRed, "XCD": colourBlue, "MXM": colourWhite,
		},
		Default: "EXH",
	}
	sdvx.SupportedClasses = map[string]ClassDef{
		"dan":     {Downgradable: false, CanBeBatchManualSubmitted: true, Values: SDVXDans},
		"vfClass": {Downgradable: true, CanBeBatchManualSubmitted: false, Values: SDVXVFClasses},
	}
	sdvx.SupportedVersions = []string{"booth", "inf", "gw", "heaven", "vivid", "exceed", "konaste"}
	sdvx.SupportedMatchTypes = []string{"sdvxInGameID", "inGameID", "tachiSongID", "songTitle"}

	register("sdvx", GameConfig{Name: "SOUND VOLTEX", DefaultPlaytype: "Single", ValidPlaytypes: []string{"Single"}}, sdvx)

	uscPlaytypes := []string{"Controller", "Keyboard"}
	uscs := make([]*Config, 0, len(uscPlaytypes))
	for _, pt := range uscPlaytypes {
		usc := sdvxLikeConfig("usc", pt)
		usc.Difficulties = DifficultyConfig{
			Type:      Fixed,
			Order:     []string{"NOV", "ADV", "EXH", "INF"},
			Shorthand: map[string]string{"NOV": "NOV", "ADV": "ADV", "EXH": "EXH", "INF": "INF"},
			Colours:   map[string]string{"NOV": colourPurple, "ADV": colourOrange, "EXH": colourRed, "INF": colourRed},
			Default:   "EXH",
		}
		usc.SupportedMatchTypes = []string{"uscChartHash", "tachiSongID"}
		uscs = append(uscs, usc)
	}
	register("usc", GameConfig{Name: "unnamed_sdvx_clone", DefaultPlaytype: "Controller", ValidPlaytypes: uscPlaytypes}, uscs...)

	register("museca", GameConfig{Name: "MÚSECA", DefaultPlaytype: "Single", ValidPlaytypes: []string{"Single"}}, musecaConfig())
}

// SDVXLamps is the SDVX/USC lamp order.
var SDVXLamps = []string{
	"FAILED", "CLEAR", "EXCESSIVE CLEAR", "MAXXIVE CLEAR", "ULTIMATE CHAIN", "PERFECT ULTIMATE CHAIN",
}

// SDVXGrades is the SDVX/USC grade order.
var SDVXGrades = []string{"D", "C", "B", "A", "A+", "AA", "AA+", "AAA", "AAA+", "S", "PUC"}

func sdvxLikeConfig(game, playtype string) *Config {
	return &Config{
		Game:     game,
		Playtype: playtype,
		MandatoryMetrics: map[string]MetricDef{
			"score": intMetric(0, 10_000_000),
			"lamp":  enumMetric("CLEAR", SDVXLamps...),
		},
		DerivedMetrics: map[string]MetricDef{
			"percent": decMetric(0, 100),
			"grade":   enumMetric("A+", SDVXGrades...),
		},
		AdditionalMetrics: map[string]MetricDef{
			"gauge":    decMetric(0, 100),
			"exScore":  {Kind: Integer, Min: bound(0)},
			"maxCombo": {Kind: Integer, Min: bound(0)},
		},
		PrimaryMetric:           "score",
		ScoreRatingAlgs:         map[string]AlgDef{"VF6": {Description: "VOLFORCE as it is implemented in SDVX6."}},
		ProfileRatingAlgs:       map[string]AlgDef{"VF6": {Description: "The sum of your best 50 VF6s."}},
		SessionRatingAlgs:       map[string]AlgDef{"ProfileVF6": {Description: "The average of your best 10 VF6s this session, multiplied to be on the same scale as profile VOLFORCE."}},
		DefaultScoreRatingAlg:   "VF6",
		DefaultSessionRatingAlg: "ProfileVF6",
		DefaultProfileRatingAlg: "VF6",
		SupportedClasses:        map[string]ClassDef{},
		OrderedJudgements:       []string{"critical", "near", "miss"},
		ScoreBucket:             BucketGrade,
		SupportedTierlists:      map[string]AlgDef{},
	}
}

// MusecaLamps is the MÚSECA lamp order.
var MusecaLamps = []string{"FAILED", "CLEAR", "CONNECT ALL", "PERFECT CONNECT ALL"}

func musecaConfig() *Config {
	return &Config{
		Game:     "museca",
		Playtype: "Single",
		MandatoryMetrics: map[string]MetricDef{
			"score": intMetric(0, 1_000_000),
			"lamp":  enumMetric("CLEAR", MusecaLamps...),
		},
		DerivedMetrics: map[string]MetricDef{
			"percent": decMetric(0, 100),
			"grade":   enumMetric("良", "没", "拙", "凡", "佳", "良", "優", "秀", "傑", "傑G"),
		},
		AdditionalMetrics:       map[string]MetricDef{"maxCombo": {Kind: Integer, Min: bound(0)}},
		PrimaryMetric:           "score",
		ScoreRatingAlgs:         map[string]AlgDef{"curatorSkill": {Description: "Curator Skill as it's implemented in-game."}},
		ProfileRatingAlgs:       map[string]AlgDef{"curatorSkill": {Description: "The sum of your best 20 Curator Skills."}},
		SessionRatingAlgs:       map[string]AlgDef{"curatorSkill": {Description: "The average of your best 10 Curator Skills this session."}},
		DefaultScoreRatingAlg:   "curatorSkill",
		DefaultSessionRatingAlg: "curatorSkill",
		DefaultProfileRatingAlg: "curatorSkill",
		Difficulties: DifficultyConfig{
			Type:      Fixed,
			Order:     []string{"Green", "Yellow", "Red"},
			Shorthand: map[string]string{"Green": "G", "Yellow": "Y", "Red": "R"},
			Colours:   map[string]string{"Green": colourGreen, "Yellow": colourOrange, "Red": colourRed},
			Default:   "Red",
		},
		SupportedClasses:    map[string]ClassDef{},
		OrderedJudgements:   []string{"critical", "near", "miss"},
		ScoreBucket:         BucketGrade,
		SupportedVersions:   []string{"1.5", "1.5-b"},
		SupportedTierlists:  map[string]AlgDef{},
		SupportedMatchTypes: []string{"songTitle", "tachiSongID", "inGameID"},
	}
}
