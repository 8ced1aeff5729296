package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/inkplay/internal/adapters/repository"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func stores(t *testing.T) []struct {
	name string
	open func() repository.Store
} {
	t.Helper()
	return []struct {
		name string
		open func() repository.Store
	}{
		{"memory", func() repository.Store { return repository.NewMemoryStore() }},
		{"sqlite", func() repository.Store {
			path := filepath.Join(t.TempDir(), "inkplay.db")
			s, err := repository.Open(context.Background(), repository.DriverSQLite, path)
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		}},
	}
}

func TestSettingsStore(t *testing.T) {
	for _, tc := range stores(t) {
		convey.Convey("Given a fresh "+tc.name+" store", t, func() {
			ctx := context.Background()
			s := tc.open()
			defer s.Close()

			convey.Convey("Then it is seeded with the default settings", func() {
				list, err := s.List(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(list), convey.ShouldEqual, 3)
				convey.So(list[0].GameKey, convey.ShouldEqual, game.KeyInkMix)

				mem, err := s.Get(ctx, game.KeyMemory)
				convey.So(err, convey.ShouldBeNil)
				convey.So(mem.DiscountRate, convey.ShouldEqual, 20)
				convey.So(mem.IsActive, convey.ShouldBeTrue)
				convey.So(mem.PromoCode, convey.ShouldEqual, game.KindMemory.DefaultPromoCode())
				convey.So(mem.DifficultyTarget, convey.ShouldBeNil)
			})

			convey.Convey("When a setting is upserted out of range", func() {
				saved, err := s.Upsert(ctx, model.Setting{
					GameKey:          game.KeyPrecision,
					DiscountRate:     150,
					IsActive:         false,
					PromoCode:        "STEADY",
					DifficultyTarget: game.Percent(-5),
					MinAccuracy:      game.Percent(80),
				})
				convey.So(err, convey.ShouldBeNil)

				convey.Convey("Then the stored row is clamped", func() {
					got, err := s.Get(ctx, game.KeyPrecision)
					convey.So(err, convey.ShouldBeNil)
					convey.So(got.DiscountRate, convey.ShouldEqual, 100)
					convey.So(got.IsActive, convey.ShouldBeFalse)
					convey.So(got.PromoCode, convey.ShouldEqual, "STEADY")
					convey.So(*got.DifficultyTarget, convey.ShouldEqual, 0)
					convey.So(*got.MinAccuracy, convey.ShouldEqual, 80)
					convey.So(saved.UpdatedAt.IsZero(), convey.ShouldBeFalse)
				})

				convey.Convey("And a second upsert replaces it", func() {
					_, err := s.Upsert(ctx, model.Setting{GameKey: game.KeyPrecision, DiscountRate: 15, IsActive: true})
					convey.So(err, convey.ShouldBeNil)
					got, _ := s.Get(ctx, game.KeyPrecision)
					convey.So(got.DiscountRate, convey.ShouldEqual, 15)
					convey.So(got.IsActive, convey.ShouldBeTrue)
					convey.So(got.DifficultyTarget, convey.ShouldBeNil)
				})
			})

			convey.Convey("When an unknown game is upserted", func() {
				_, err := s.Upsert(ctx, model.Setting{GameKey: "poker"})

				convey.Convey("Then it is rejected", func() {
					convey.So(errors.Is(err, repository.ErrUnknownGame), convey.ShouldBeTrue)
				})
			})

			convey.Convey("When a missing key is read", func() {
				_, err := s.Get(ctx, "poker")

				convey.Convey("Then ErrNotFound is returned", func() {
					convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
				})
			})
		})
	}
}

func TestLedger(t *testing.T) {
	for _, tc := range stores(t) {
		convey.Convey("Given an empty "+tc.name+" ledger", t, func() {
			ctx := context.Background()
			s := tc.open()
			defer s.Close()

			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				err := s.Append(ctx, model.Win{
					ID:           fmt.Sprintf("w%d", i),
					SessionID:    fmt.Sprintf("s%d", i),
					PlayerID:     "player-1",
					GameKey:      game.KeyInkMix,
					DiscountRate: 10,
					PromoCode:    "INKMIX2024",
					WonAt:        base.Add(time.Duration(i) * time.Minute),
				})
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then Recent returns the newest first", func() {
				wins, err := s.Recent(ctx, 3)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(wins), convey.ShouldEqual, 3)
				convey.So(wins[0].ID, convey.ShouldEqual, "w4")
				convey.So(wins[2].ID, convey.ShouldEqual, "w2")
				convey.So(wins[0].WonAt.Equal(base.Add(4*time.Minute)), convey.ShouldBeTrue)
			})

			convey.Convey("When a win is appended twice", func() {
				err := s.Append(ctx, model.Win{ID: "w0", SessionID: "s0", PlayerID: "player-1",
					GameKey: game.KeyInkMix, PromoCode: "INKMIX2024", WonAt: base})

				convey.Convey("Then the duplicate is ignored", func() {
					convey.So(err, convey.ShouldBeNil)
					wins, _ := s.Recent(ctx, 100)
					convey.So(len(wins), convey.ShouldEqual, 5)
				})
			})

			convey.Convey("When the limit is not positive", func() {
				_, err := s.Recent(ctx, 0)

				convey.Convey("Then ErrInvalidLimit is returned", func() {
					convey.So(errors.Is(err, repository.ErrInvalidLimit), convey.ShouldBeTrue)
				})
			})
		})
	}
}

func TestMemoryStore_Bounded(t *testing.T) {
	convey.Convey("Given a memory store holding two wins", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(repository.WithLedgerCapacity(2))

		for i := 0; i < 3; i++ {
			_ = s.Append(ctx, model.Win{ID: fmt.Sprintf("w%d", i)})
		}

		convey.Convey("Then the oldest win is evicted", func() {
			wins, err := s.Recent(ctx, 10)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(wins), convey.ShouldEqual, 2)
			convey.So(wins[1].ID, convey.ShouldEqual, "w1")
		})

		convey.Convey("When the store is closed", func() {
			_ = s.Close()

			convey.Convey("Then calls fail with ErrClosed", func() {
				_, err := s.List(ctx)
				convey.So(errors.Is(err, repository.ErrClosed), convey.ShouldBeTrue)
			})
		})
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	convey.Convey("When a store is opened with an unknown driver", t, func() {
		_, err := repository.Open(context.Background(), "mongo", "x")

		convey.Convey("Then ErrUnknownDriver is returned", func() {
			convey.So(errors.Is(err, repository.ErrUnknownDriver), convey.ShouldBeTrue)
		})
	})
}
