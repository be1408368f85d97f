// Package scoreimport runs an import end to end: normalize and hydrate every entry,
// persist the new scores, then refresh the derived state (ratings, classes, sessions,
// goals and milestones) of each touched GPT and record the import document.
package scoreimport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/dedupe"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/hydrate"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Entry error types that are not converter failure kinds.
const (
	ErrorTypeInternal = "InternalError"
	ErrorTypeHydrate  = "HydrationError"
	ErrorTypeRefresh  = "RefreshError"
)

// sessionCounter names the store counter session IDs are drawn from.
const sessionCounter = "sessions"

// Store persists scores and the per-GPT state an import refreshes.
type Store interface {
	InsertScores(ctx context.Context, scores []model.Score) ([]model.Score, []string, error)
	ListUserScores(ctx context.Context, userID int, game, playtype string) ([]model.Score, error)
	GetScores(ctx context.Context, scoreIDs []string) ([]model.Score, error)
	UpsertRatings(ctx context.Context, userID int, game, playtype string, ratings map[string]float64) (*model.UserGameStats, error)
	LatestSession(ctx context.Context, userID int, game, playtype string) (*model.Session, error)
	PutSession(ctx context.Context, sess *model.Session) error
	InsertImport(ctx context.Context, doc *model.ImportDocument) error
	GetNextCounterValue(ctx context.Context, name string) (int, error)
	DecrementCounterValue(ctx context.Context, name string) (int, error)
}

// Normalizer converts one raw entry.
type Normalizer interface {
	Normalize(ctx context.Context, raw json.RawMessage, sc convert.SourceContext, importType string) (*convert.Result, error)
}

// Hydrator builds a score document from a dry score.
type Hydrator interface {
	Hydrate(ctx context.Context, userID int, dry *model.DryScore, chart *model.Chart, song *model.Song, scoreID string) (*model.Score, error)
}

// Ratings computes profile and session ratings and the classes they imply.
type Ratings interface {
	CalculateProfile(c *gpt.Config, scores []model.Score) map[string]float64
	CalculateSession(c *gpt.Config, scores []model.Score) map[string]float64
	Classes(ctx context.Context, c *gpt.Config, ratings map[string]float64) map[string]int
}

// ClassApplier writes classes.
type ClassApplier interface {
	ApplyClasses(ctx context.Context, userID int, cfg *gpt.Config, classes map[string]int, providers ...classes.Provider) ([]classes.Change, error)
}

// Targets re-evaluates goal and milestone subscriptions.
type Targets interface {
	UpdateGoalsForUser(ctx context.Context, userID int, game, playtype string, chartIDs []string) ([]model.GoalImportInfo, error)
	UpdateMilestonesForUser(ctx context.Context, userID int, game, playtype string, changed []model.GoalImportInfo) ([]model.MilestoneImportInfo, error)
}

// Input is one import request.
type Input struct {
	UserID     int
	ImportType string
	Payloads   []json.RawMessage
	Source     convert.SourceContext
	UserIntent bool
	// Providers supply extra classes, e.g. from a remote profile.
	Providers []classes.Provider
}

// Importer runs imports.
type Importer struct {
	store      Store
	normalizer Normalizer
	hydrator   Hydrator
	ratings    Ratings
	classes    ClassApplier
	targets    Targets

	deduper     dedupe.Deduper
	concurrency int
	sessionGap  time.Duration
	now         func() time.Time
	log         logger.Logger
}

// New builds an Importer.
func New(store Store, normalizer Normalizer, hydrator Hydrator, ratings Ratings, cls ClassApplier, tg Targets, opts ...Option) *Importer {
	im := &Importer{
		store:       store,
		normalizer:  normalizer,
		hydrator:    hydrator,
		ratings:     ratings,
		classes:     cls,
		targets:     tg,
		concurrency: 16,
		sessionGap:  2 * time.Hour,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.deduper == nil {
		im.deduper = dedupe.New()
	}
	im.log = logger.Named("scoreimport")
	return im
}

type entryResult struct {
	score *model.Score
	err   *model.ImportError
}

// Import processes every payload. Entry failures are reported in the document and never
// abort other entries. Once scores are stored the document is always written; a failed
// refresh of derived state is recorded in it with index -1. A returned error means the
// import could not be completed.
func (im *Importer) Import(ctx context.Context, in Input) (*model.ImportDocument, error) {
	if in.UserID < 1 {
		return nil, ErrInvalidUser
	}
	if len(in.Payloads) == 0 {
		return nil, ErrNoPayloads
	}

	started := im.now()
	doc := &model.ImportDocument{
		ImportID:    "I" + uuid.NewString(),
		UserID:      in.UserID,
		ImportType:  in.ImportType,
		Game:        in.Source.Game,
		UserIntent:  in.UserIntent,
		TimeStarted: started,
		ScoreIDs:    []string{},
		Errors:      []model.ImportError{},
	}
	im.log.Info(ctx, "import started",
		logger.String("import_id", doc.ImportID), logger.Int("user_id", in.UserID),
		logger.String("import_type", in.ImportType), logger.Int("entries", len(in.Payloads)))

	results, claimed, err := im.process(ctx, in)
	defer func() {
		for _, id := range claimed {
			im.deduper.Release(ctx, id)
		}
	}()
	if err != nil {
		return nil, err
	}

	scores := make([]model.Score, 0, len(results))
	for i := range results {
		switch {
		case results[i].err != nil:
			doc.Errors = append(doc.Errors, *results[i].err)
		case results[i].score != nil:
			scores = append(scores, *results[i].score)
		}
	}

	inserted, duplicates, err := im.store.InsertScores(ctx, scores)
	if err != nil {
		return nil, fmt.Errorf("persist scores: %w", err)
	}
	for range duplicates {
		metrics.RecordDuplicateScore()
	}
	for i := range inserted {
		doc.ScoreIDs = append(doc.ScoreIDs, inserted[i].ScoreID)
		metrics.RecordScoreImported(inserted[i].Game, in.ImportType)
	}

	for _, group := range groupByGPT(inserted) {
		if doc.Game == "" {
			doc.Game = group.game
		}
		doc.Playtypes = append(doc.Playtypes, group.playtype)
		if err := im.refresh(ctx, in, group, doc); err != nil {
			im.refreshFailed(ctx, doc, group, err)
		}
	}

	doc.TimeFinished = im.now()
	if err := im.store.InsertImport(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist import: %w", err)
	}

	metrics.RecordImportFinished(in.ImportType, float64(doc.TimeFinished.Sub(started).Milliseconds()))
	im.log.Info(ctx, "import finished",
		logger.String("import_id", doc.ImportID), logger.Int("scores", len(doc.ScoreIDs)),
		logger.Int("duplicates", len(duplicates)), logger.Int("errors", len(doc.Errors)))
	return doc, nil
}

// process normalizes and hydrates entries concurrently. Results keep the payload order.
func (im *Importer) process(ctx context.Context, in Input) ([]entryResult, []string, error) {
	results := make([]entryResult, len(in.Payloads))
	claims := make([]string, len(in.Payloads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i := range in.Payloads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, claim, ierr := im.processOne(gctx, in, i)
			results[i] = entryResult{score: score, err: ierr}
			claims[i] = claim
			return nil
		})
	}
	err := g.Wait()

	var claimed []string
	for _, c := range claims {
		if c != "" {
			claimed = append(claimed, c)
		}
	}
	return results, claimed, err
}

func (im *Importer) processOne(ctx context.Context, in Input, i int) (*model.Score, string, *model.ImportError) {
	res, err := im.normalizer.Normalize(ctx, in.Payloads[i], in.Source, in.ImportType)
	if err != nil {
		if f, ok := convert.AsFailure(err); ok {
			return nil, "", &model.ImportError{Index: i, Type: string(f.Kind), Message: f.Error()}
		}
		im.log.Error(ctx, "normalizing entry failed", logger.Int("index", i), logger.Error(err))
		return nil, "", &model.ImportError{Index: i, Type: ErrorTypeInternal, Message: err.Error()}
	}

	scoreID := hydrate.CreateScoreID(in.UserID, res.DryScore, res.Chart.ChartID)
	if !im.deduper.Claim(ctx, scoreID) {
		im.log.Debug(ctx, "skipping score already claimed", logger.String("score_id", scoreID))
		return nil, "", nil
	}

	score, err := im.hydrator.Hydrate(ctx, in.UserID, res.DryScore, res.Chart, res.Song, scoreID)
	if err != nil {
		im.log.Error(ctx, "hydrating entry failed", logger.Int("index", i), logger.String("chart_id", res.Chart.ChartID), logger.Error(err))
		return nil, scoreID, &model.ImportError{Index: i, Type: ErrorTypeHydrate, Message: err.Error()}
	}
	return score, scoreID, nil
}

type gptGroup struct {
	game, playtype string
	scores         []model.Score
}

func groupByGPT(scores []model.Score) []gptGroup {
	idx := map[string]int{}
	var out []gptGroup
	for i := range scores {
		key := scores[i].Game + ":" + scores[i].Playtype
		j, ok := idx[key]
		if !ok {
			j = len(out)
			idx[key] = j
			out = append(out, gptGroup{game: scores[i].Game, playtype: scores[i].Playtype})
		}
		out[j].scores = append(out[j].scores, scores[i])
	}
	return out
}

// refreshFailed records a refresh failure on the document. Integrity failures are logged as severe.
func (im *Importer) refreshFailed(ctx context.Context, doc *model.ImportDocument, group gptGroup, err error) {
	fields := []logger.Field{
		logger.String("import_id", doc.ImportID), logger.String("game", group.game),
		logger.String("playtype", group.playtype), logger.Error(err),
	}
	if errors.Is(err, targets.ErrCorrupt) {
		im.log.Severe(ctx, "refreshing derived state failed", fields...)
	} else {
		im.log.Error(ctx, "refreshing derived state failed", fields...)
	}
	doc.Errors = append(doc.Errors, model.ImportError{
		Index:   -1,
		Type:    ErrorTypeRefresh,
		Message: fmt.Sprintf("refresh %s %s: %v", group.game, group.playtype, err),
	})
}

// refresh recomputes ratings and classes, files the scores into a session and
// re-evaluates targets for one GPT.
func (im *Importer) refresh(ctx context.Context, in Input, group gptGroup, doc *model.ImportDocument) error {
	cfg, err := gpt.Get(group.game, group.playtype)
	if err != nil {
		return err
	}

	all, err := im.store.ListUserScores(ctx, in.UserID, group.game, group.playtype)
	if err != nil {
		return fmt.Errorf("list scores: %w", err)
	}
	ratings := im.ratings.CalculateProfile(cfg, all)
	if _, err := im.store.UpsertRatings(ctx, in.UserID, group.game, group.playtype, ratings); err != nil {
		return fmt.Errorf("store ratings: %w", err)
	}

	derived := im.ratings.Classes(ctx, cfg, ratings)
	merged := make(map[string]int, len(derived)+len(in.Source.Classes))
	for set, v := range derived {
		merged[set] = v
	}
	for set, name := range in.Source.Classes {
		if idx := cfg.ClassIndex(set, name); idx >= 0 {
			merged[set] = max(merged[set], idx)
		}
	}
	changes, err := im.classes.ApplyClasses(ctx, in.UserID, cfg, merged, in.Providers...)
	if err != nil {
		return fmt.Errorf("apply classes: %w", err)
	}
	for _, c := range changes {
		doc.ClassDeltas = append(doc.ClassDeltas, model.ClassDelta{
			Game: group.game, Playtype: group.playtype, Set: c.Set, Old: c.Old, New: c.New,
		})
	}

	info, err := im.fileSession(ctx, cfg, in, group)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	doc.CreatedSessions = append(doc.CreatedSessions, info)

	chartIDs := make([]string, 0, len(group.scores))
	for i := range group.scores {
		chartIDs = append(chartIDs, group.scores[i].ChartID)
	}
	goals, err := im.targets.UpdateGoalsForUser(ctx, in.UserID, group.game, group.playtype, chartIDs)
	if err != nil {
		return fmt.Errorf("update goals: %w", err)
	}
	doc.GoalInfo = append(doc.GoalInfo, goals...)
	milestones, err := im.targets.UpdateMilestonesForUser(ctx, in.UserID, group.game, group.playtype, goals)
	if err != nil {
		return fmt.Errorf("update milestones: %w", err)
	}
	doc.MilestoneInfo = append(doc.MilestoneInfo, milestones...)
	return nil
}

func scoreTime(s *model.Score) time.Time {
	if s.TimeAchieved != nil {
		return *s.TimeAchieved
	}
	return s.TimeAdded
}

// fileSession appends the scores to the latest session when they start within the
// session gap of its end, and opens a new session otherwise.
func (im *Importer) fileSession(ctx context.Context, cfg *gpt.Config, in Input, group gptGroup) (model.SessionInfo, error) {
	sorted := append([]model.Score(nil), group.scores...)
	sort.SliceStable(sorted, func(i, j int) bool { return scoreTime(&sorted[i]).Before(scoreTime(&sorted[j])) })
	first, last := scoreTime(&sorted[0]), scoreTime(&sorted[len(sorted)-1])

	latest, err := im.store.LatestSession(ctx, in.UserID, group.game, group.playtype)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.SessionInfo{}, err
	}

	kind := "Created"
	var sess *model.Session
	var members []model.Score
	if latest != nil && !first.Before(latest.TimeStarted) && first.Sub(latest.TimeEnded) <= im.sessionGap {
		kind = "Appended"
		sess = latest
		prior, err := im.store.GetScores(ctx, latest.ScoreIDs)
		if err != nil {
			return model.SessionInfo{}, err
		}
		members = prior
		if last.After(sess.TimeEnded) {
			sess.TimeEnded = last
		}
	} else {
		n, err := im.store.GetNextCounterValue(ctx, sessionCounter)
		if err != nil {
			return model.SessionInfo{}, fmt.Errorf("next session id: %w", err)
		}
		sess = &model.Session{
			SessionID:    fmt.Sprintf("Q%d", n),
			UserID:       in.UserID,
			Game:         group.game,
			Playtype:     group.playtype,
			Name:         sessionName(group.game, first),
			ImportType:   in.ImportType,
			TimeInserted: im.now(),
			TimeStarted:  first,
			TimeEnded:    last,
		}
	}
	for i := range sorted {
		sess.ScoreIDs = append(sess.ScoreIDs, sorted[i].ScoreID)
	}
	members = append(members, sorted...)
	sess.Calculated = im.ratings.CalculateSession(cfg, members)

	if err := im.store.PutSession(ctx, sess); err != nil {
		if kind == "Created" {
			if _, derr := im.store.DecrementCounterValue(ctx, sessionCounter); derr != nil {
				im.log.Warn(ctx, "could not roll back session counter", logger.Error(derr))
			}
		}
		return model.SessionInfo{}, err
	}
	return model.SessionInfo{SessionID: sess.SessionID, Type: kind}, nil
}

func sessionName(game string, start time.Time) string {
	name := game
	if gc, err := gpt.Game(game); err == nil {
		name = gc.Name
	}
	return fmt.Sprintf("%s Session (%s)", name, start.Format("2006-01-02 15:04"))
}
