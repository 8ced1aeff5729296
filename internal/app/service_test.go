package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/inkplay/internal/adapters/claims"
	"github.com/okian/inkplay/internal/adapters/repository"
	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/game/gametest"
	"github.com/okian/inkplay/internal/domain/inkmix"
	"github.com/okian/inkplay/internal/domain/memory"
	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/internal/domain/precision"
	"github.com/okian/inkplay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type harness struct {
	svc   *service.Service
	store *repository.MemoryStore
	sched *gametest.ManualScheduler
	now   time.Time
}

// newHarness builds a started service with an unshuffled deck, the first
// palette target and a manual clock.
func newHarness() *harness {
	h := &harness{
		store: repository.NewMemoryStore(),
		sched: gametest.NewManualScheduler(),
		now:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	h.svc = service.New(
		service.WithSettingsStore(h.store),
		service.WithLedger(h.store),
		service.WithClaimStore(claims.NewMemoryStore()),
		service.WithScheduler(h.sched),
		service.WithRandomSource(gametest.NewSeqRandom()),
		service.WithClock(func() time.Time { return h.now }),
		service.WithSessionTTL(10*time.Minute),
		service.WithLedgerWorkers(1),
	)
	if err := h.svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return h
}

func winMemory(svc *service.Service, id string) service.SessionView {
	var v service.SessionView
	for i := 0; i < memory.Cards; i++ {
		v, _ = svc.Reveal(context.Background(), id, i)
	}
	return v
}

func winInkMix(svc *service.Service, id string) service.SessionView {
	var v service.SessionView
	for _, tube := range []string{"red", "red", "black", "black", "black", "black"} {
		v, _ = svc.Mix(context.Background(), id, tube)
	}
	return v
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When a session is started before the service", func() {
			_, err := svc.StartSession(context.Background(), game.KeyMemory, "p1")

			Convey("Then ErrNotStarted is returned", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it reports itself started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And stopping closes live sessions", func() {
				v, err := svc.StartSession(ctx, game.KeyInkMix, "p1")
				So(err, ShouldBeNil)
				svc.Stop()
				svc.Stop()

				_, err = svc.Session(ctx, v.ID)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Catalog(t *testing.T) {
	Convey("Given a started service", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		ctx := context.Background()

		Convey("Then every game is listed in display order", func() {
			games, err := h.svc.Catalog(ctx)
			So(err, ShouldBeNil)
			So(len(games), ShouldEqual, 3)
			So(games[0].Key, ShouldEqual, game.KeyMemory)
			So(games[0].DiscountRate, ShouldEqual, 20)
			So(games[1].Target, ShouldEqual, game.DefaultInkMixTarget)
		})

		Convey("When a game is deactivated", func() {
			_, err := h.svc.UpsertSetting(ctx, model.Setting{GameKey: game.KeyPrecision, DiscountRate: 15})
			So(err, ShouldBeNil)

			Convey("Then it is hidden and cannot be started", func() {
				games, _ := h.svc.Catalog(ctx)
				So(len(games), ShouldEqual, 2)

				_, err := h.svc.StartSession(ctx, game.KeyPrecision, "p1")
				So(errors.Is(err, service.ErrGameInactive), ShouldBeTrue)
			})
		})

		Convey("When an unknown game is configured", func() {
			_, err := h.svc.UpsertSetting(ctx, model.Setting{GameKey: "poker"})

			Convey("Then ErrUnknownGame is returned", func() {
				So(errors.Is(err, service.ErrUnknownGame), ShouldBeTrue)
			})
		})

		Convey("When a session is requested badly", func() {
			_, unknown := h.svc.StartSession(ctx, "poker", "p1")
			_, blank := h.svc.StartSession(ctx, game.KeyMemory, " ")

			Convey("Then the input is rejected", func() {
				So(errors.Is(unknown, service.ErrUnknownGame), ShouldBeTrue)
				So(errors.Is(blank, service.ErrPlayerRequired), ShouldBeTrue)
			})
		})
	})
}

func TestService_MemoryWin(t *testing.T) {
	Convey("Given a memory session", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		ctx := context.Background()

		v, err := h.svc.StartSession(ctx, game.KeyMemory, "player-1")
		So(err, ShouldBeNil)
		So(v.Phase, ShouldEqual, memory.PhasePlaying)
		So(len(v.Memory.Cards), ShouldEqual, memory.Cards)
		So(v.Memory.Cards[0].Image, ShouldBeEmpty)

		Convey("When every pair is found", func() {
			v = winMemory(h.svc, v.ID)

			Convey("Then the player is awarded the discount", func() {
				So(v.Phase, ShouldEqual, memory.PhaseWon)
				So(v.Finished, ShouldBeTrue)
				So(v.Claim, ShouldEqual, service.ClaimAwarded)
				So(v.Award, ShouldResemble, &service.Award{Code: "TATTOO2024", DiscountRate: 20})
			})

			Convey("And the win reaches the ledger", func() {
				So(waitFor(func() bool {
					wins, _ := h.svc.RecentWins(ctx, 10)
					return len(wins) == 1
				}), ShouldBeTrue)
				wins, _ := h.svc.RecentWins(ctx, 10)
				So(wins[0].PlayerID, ShouldEqual, "player-1")
				So(wins[0].SessionID, ShouldEqual, v.ID)
				So(wins[0].PromoCode, ShouldEqual, "TATTOO2024")
			})

			Convey("And winning again is refused", func() {
				again, err := h.svc.StartSession(ctx, game.KeyMemory, "player-1")
				So(err, ShouldBeNil)
				again = winMemory(h.svc, again.ID)

				So(again.Phase, ShouldEqual, memory.PhaseWon)
				So(again.Claim, ShouldEqual, service.ClaimAlreadyClaimed)
				So(again.Award, ShouldBeNil)
			})
		})

		Convey("When a mismatched pair is revealed", func() {
			_, _ = h.svc.Reveal(ctx, v.ID, 0)
			v, _ = h.svc.Reveal(ctx, v.ID, 2)
			So(v.Memory.Locked, ShouldBeTrue)

			Convey("Then the cards flip back after the reveal delay", func() {
				h.sched.Advance(memory.DefaultRevealDelay)
				v, _ = h.svc.Session(ctx, v.ID)
				So(v.Memory.Locked, ShouldBeFalse)
				So(v.Memory.Open, ShouldEqual, 0)
				So(v.Memory.Moves, ShouldEqual, 1)
			})
		})

		Convey("When the card index is out of range", func() {
			_, err := h.svc.Reveal(ctx, v.ID, memory.Cards)

			Convey("Then ErrInvalidInput is returned", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When an ink tube is squeezed into it", func() {
			_, err := h.svc.Mix(ctx, v.ID, "red")

			Convey("Then ErrWrongGame is returned", func() {
				So(errors.Is(err, service.ErrWrongGame), ShouldBeTrue)
			})
		})
	})
}

func TestService_InkMix(t *testing.T) {
	Convey("Given an ink-mix session", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		ctx := context.Background()

		v, err := h.svc.StartSession(ctx, game.KeyInkMix, "player-2")
		So(err, ShouldBeNil)
		So(v.InkMix.Target, ShouldResemble, inkmix.Palette[0])
		So(v.InkMix.SecondsLeft, ShouldEqual, 10)

		Convey("When the mix reaches the target", func() {
			v = winInkMix(h.svc, v.ID)

			Convey("Then the session is won", func() {
				So(v.Phase, ShouldEqual, inkmix.PhaseWon)
				So(v.Award.Code, ShouldEqual, "INKMIX10")
				So(v.InkMix.Similarity, ShouldBeGreaterThanOrEqualTo, 95)
			})
		})

		Convey("When the countdown runs out", func() {
			h.sched.Advance(10 * time.Second)
			v, _ = h.svc.Session(ctx, v.ID)

			Convey("Then the session is lost and takes no more squeezes", func() {
				So(v.Phase, ShouldEqual, inkmix.PhaseLost)
				So(v.Finished, ShouldBeTrue)

				after, err := h.svc.Mix(ctx, v.ID, "red")
				So(err, ShouldBeNil)
				So(after.InkMix.Squeezes, ShouldEqual, 0)
			})
		})

		Convey("When an unknown tube is squeezed", func() {
			_, err := h.svc.Mix(ctx, v.ID, "green")

			Convey("Then ErrInvalidInput is returned", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_Precision(t *testing.T) {
	Convey("Given a precision session", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		ctx := context.Background()

		v, err := h.svc.StartSession(ctx, game.KeyPrecision, "player-3")
		So(err, ShouldBeNil)
		So(v.Precision.Shape, ShouldEqual, precision.ShapeLine)

		Convey("When every shape is traced exactly", func() {
			for _, shape := range precision.Shapes() {
				v, err = h.svc.Stroke(ctx, v.ID, service.StrokeInput{Points: shape.Outline(48)})
				So(err, ShouldBeNil)
			}

			Convey("Then the session is won", func() {
				So(v.Phase, ShouldEqual, precision.PhaseWon)
				So(v.Precision.AvgAccuracy, ShouldEqual, 100)
				So(v.Award, ShouldResemble, &service.Award{Code: "TATTOO15", DiscountRate: 10})
			})
		})

		Convey("When a stroke arrives in client coordinates", func() {
			vp := precision.Viewport{Left: 10, Top: 20, Width: 200, Height: 200}
			var client []precision.Point
			for _, p := range precision.ShapeLine.Outline(20) {
				client = append(client, precision.Point{X: 10 + p.X/2, Y: 20 + p.Y/2})
			}
			v, err = h.svc.Stroke(ctx, v.ID, service.StrokeInput{Points: client, Viewport: &vp})

			Convey("Then it is mapped into logical space before scoring", func() {
				So(err, ShouldBeNil)
				So(v.Precision.Rounds[0].Accuracy, ShouldEqual, 100)
				So(v.Precision.Shape, ShouldEqual, precision.ShapeCircle)
			})
		})

		Convey("When every stroke misses", func() {
			for range precision.Shapes() {
				v, _ = h.svc.Stroke(ctx, v.ID, service.StrokeInput{Points: []precision.Point{{X: 0, Y: 0}}})
			}

			Convey("Then the session ends without an award", func() {
				So(v.Phase, ShouldEqual, precision.PhaseResults)
				So(v.Finished, ShouldBeTrue)
				So(v.Award, ShouldBeNil)
			})
		})
	})
}

func TestService_Subscribe(t *testing.T) {
	Convey("Given a subscriber to an ink-mix session", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		ctx := context.Background()

		v, _ := h.svc.StartSession(ctx, game.KeyInkMix, "player-4")
		updates, cancel, err := h.svc.Subscribe(v.ID)
		So(err, ShouldBeNil)
		defer cancel()

		first := <-updates
		So(first.ID, ShouldEqual, v.ID)

		Convey("When a tube is squeezed", func() {
			_, _ = h.svc.Mix(ctx, v.ID, "white")

			Convey("Then the update is pushed", func() {
				next := <-updates
				So(next.InkMix.Squeezes, ShouldEqual, 1)
			})
		})

		Convey("When the session ends", func() {
			final, err := h.svc.EndSession(ctx, v.ID)
			So(err, ShouldBeNil)
			So(final.Closed, ShouldBeTrue)

			Convey("Then the stream delivers the final view and closes", func() {
				var last service.SessionView
				for u := range updates {
					last = u
				}
				So(last.Closed, ShouldBeTrue)

				_, _, err := h.svc.Subscribe(v.ID)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sweep(t *testing.T) {
	Convey("Given two sessions of different age", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		ctx := context.Background()

		old, _ := h.svc.StartSession(ctx, game.KeyMemory, "p1")
		h.now = h.now.Add(8 * time.Minute)
		fresh, _ := h.svc.StartSession(ctx, game.KeyInkMix, "p2")

		Convey("When the janitor sweeps past the TTL of the first", func() {
			h.now = h.now.Add(3 * time.Minute)
			n := h.svc.Sweep(ctx)

			Convey("Then only the idle session is removed", func() {
				So(n, ShouldEqual, 1)
				_, err := h.svc.Session(ctx, old.ID)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				_, err = h.svc.Session(ctx, fresh.ID)
				So(err, ShouldBeNil)
			})
		})
	})
}
