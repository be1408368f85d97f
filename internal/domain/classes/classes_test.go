package classes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []model.WebhookEvent
}

func (r *recordingEmitter) Emit(_ context.Context, ev model.WebhookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func openStore() *repository.Store {
	s, err := repository.Open(context.Background(), repository.WithConflictRetries(64))
	if err != nil {
		panic(err)
	}
	return s
}

func TestReturnClassIfGreater(t *testing.T) {
	Convey("Given stored classes", t, func() {
		stats := &model.UserGameStats{Classes: map[string]int{"dan": 10}}

		So(ReturnClassIfGreater("dan", 11, stats), ShouldEqual, Improved)
		So(ReturnClassIfGreater("dan", 10, stats), ShouldEqual, NotImproved)
		So(ReturnClassIfGreater("dan", 3, stats), ShouldEqual, NotImproved)
		So(ReturnClassIfGreater("vfClass", 3, stats), ShouldEqual, NoPrevious)
		So(ReturnClassIfGreater("dan", 3, nil), ShouldEqual, NoPrevious)
	})
}

func TestUpdateClassIfGreater(t *testing.T) {
	Convey("Given a class engine over an in-memory store", t, func() {
		ctx := context.Background()
		store := openStore()
		defer store.Close()
		emitter := &recordingEmitter{}
		var mu sync.Mutex
		clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		engine := New(store, emitter, WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		}))

		Convey("When the user has no stats yet", func() {
			outcome, err := engine.UpdateClassIfGreater(ctx, 1, "iidx", "SP", "dan", 10)

			Convey("Then the stats and default settings are created", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, NoPrevious)

				stats, err := store.GetUserGameStats(ctx, 1, "iidx", "SP")
				So(err, ShouldBeNil)
				So(stats.Classes["dan"], ShouldEqual, 10)
				So(stats.Ratings, ShouldBeEmpty)

				_, err = store.GetGameSettings(ctx, 1, "iidx", "SP")
				So(err, ShouldBeNil)
			})

			Convey("Then an achievement with no old value is appended", func() {
				achs, err := store.ListClassAchievements(ctx, 1, time.Time{}, 10)
				So(err, ShouldBeNil)
				So(achs, ShouldHaveLength, 1)
				So(achs[0].ClassOldValue, ShouldBeNil)
				So(achs[0].ClassValue, ShouldEqual, 10)
			})

			Convey("Then class-update/v1 is emitted", func() {
				So(emitter.events, ShouldHaveLength, 1)
				So(emitter.events[0].Type, ShouldEqual, model.WebhookClassUpdate)
			})
		})

		Convey("When a lower or equal class arrives later", func() {
			_, _ = engine.UpdateClassIfGreater(ctx, 2, "iidx", "SP", "dan", 10)
			lower, err1 := engine.UpdateClassIfGreater(ctx, 2, "iidx", "SP", "dan", 5)
			equal, err2 := engine.UpdateClassIfGreater(ctx, 2, "iidx", "SP", "dan", 10)

			Convey("Then nothing is written", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(lower, ShouldEqual, NotImproved)
				So(equal, ShouldEqual, NotImproved)

				stats, _ := store.GetUserGameStats(ctx, 2, "iidx", "SP")
				So(stats.Classes["dan"], ShouldEqual, 10)
				achs, _ := store.ListClassAchievements(ctx, 2, time.Time{}, 10)
				So(achs, ShouldHaveLength, 1)
				So(emitter.events, ShouldHaveLength, 1)
			})
		})

		Convey("When a higher class arrives", func() {
			_, _ = engine.UpdateClassIfGreater(ctx, 3, "iidx", "SP", "dan", 10)
			outcome, err := engine.UpdateClassIfGreater(ctx, 3, "iidx", "SP", "dan", 12)

			Convey("Then the old value is recorded", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, Improved)
				achs, _ := store.ListClassAchievements(ctx, 3, time.Time{}, 10)
				So(achs, ShouldHaveLength, 2)
				So(*achs[0].ClassOldValue, ShouldEqual, 10)
			})
		})

		Convey("When many imports race on the same set", func() {
			var wg sync.WaitGroup
			for v := 0; v < 19; v++ {
				wg.Add(1)
				go func(v int) {
					defer wg.Done()
					_, _ = engine.UpdateClassIfGreater(ctx, 4, "iidx", "SP", "dan", v)
				}(v)
			}
			wg.Wait()

			Convey("Then the highest value wins", func() {
				stats, err := store.GetUserGameStats(ctx, 4, "iidx", "SP")
				So(err, ShouldBeNil)
				So(stats.Classes["dan"], ShouldEqual, 18)
			})
		})
	})
}

func TestApplyClasses(t *testing.T) {
	Convey("Given SDVX classes", t, func() {
		ctx := context.Background()
		store := openStore()
		defer store.Close()
		engine := New(store, nil)
		cfg := gpt.MustGet("sdvx", "Single")

		Convey("When a downgradable class goes down", func() {
			_, err := engine.ApplyClasses(ctx, 1, cfg, map[string]int{"vfClass": 20, "dan": 5})
			So(err, ShouldBeNil)
			changes, err := engine.ApplyClasses(ctx, 1, cfg, map[string]int{"vfClass": 18, "dan": 3})

			Convey("Then it is lowered while the dan is kept", func() {
				So(err, ShouldBeNil)
				So(changes, ShouldHaveLength, 1)
				So(changes[0].Set, ShouldEqual, "vfClass")
				So(*changes[0].Old, ShouldEqual, 20)

				stats, _ := store.GetUserGameStats(ctx, 1, "sdvx", "Single")
				So(stats.Classes["vfClass"], ShouldEqual, 18)
				So(stats.Classes["dan"], ShouldEqual, 5)
			})
		})

		Convey("When a provider reports a higher value", func() {
			p := func(context.Context, *gpt.Config, int) map[string]int { return map[string]int{"dan": 8} }
			changes, err := engine.ApplyClasses(ctx, 2, cfg, map[string]int{"dan": 4}, p)

			Convey("Then the higher value is written", func() {
				So(err, ShouldBeNil)
				So(changes, ShouldHaveLength, 1)
				So(changes[0].New, ShouldEqual, 8)
			})
		})

		Convey("When the class set is unknown", func() {
			_, err := engine.ApplyClasses(ctx, 3, cfg, map[string]int{"colour": 1})

			Convey("Then ErrUnknownClassSet is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestARCProvider(t *testing.T) {
	Convey("Given an ARC server", t, func() {
		ctx := context.Background()
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"_items":[{"sp":{"rank":" 皆伝 "},"dp":{"rank":"謎"}}]}`))
		}))
		defer srv.Close()
		client := NewARCClient(srv.URL)

		Convey("When the profile is fetched once", func() {
			p := client.Provider(ctx, "profile", "tok")

			Convey("Then SP maps to KAIDEN and an unknown DP rank is ignored", func() {
				sp := p(ctx, gpt.MustGet("iidx", "SP"), 1)
				So(sp["dan"], ShouldEqual, len(gpt.IIDXDans)-1)
				So(p(ctx, gpt.MustGet("iidx", "DP"), 1), ShouldBeEmpty)
				So(calls, ShouldEqual, 1)
			})
		})

		Convey("When the token is rejected", func() {
			p := client.Provider(ctx, "profile", "bad")

			Convey("Then no classes are produced", func() {
				So(p(ctx, gpt.MustGet("iidx", "SP"), 1), ShouldBeEmpty)
			})
		})
	})
}
