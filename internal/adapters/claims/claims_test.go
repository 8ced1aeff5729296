package claims_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/inkplay/internal/adapters/claims"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given a new MemoryStore", t, func() {
		ctx := context.Background()
		s := claims.NewMemoryStore()

		Convey("When a player claims a game for the first time", func() {
			ok, err := s.Claim(ctx, "player-1", "memory_cards")

			Convey("Then the claim succeeds", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				n, _ := s.Size(ctx)
				So(n, ShouldEqual, 1)
			})

			Convey("And the same game is claimed again", func() {
				again, err := s.Claim(ctx, "player-1", "memory_cards")

				Convey("Then it is refused", func() {
					So(err, ShouldBeNil)
					So(again, ShouldBeFalse)
				})
			})

			Convey("And another game is claimed", func() {
				other, _ := s.Claim(ctx, "player-1", "ink_mix_master")

				Convey("Then it succeeds independently", func() {
					So(other, ShouldBeTrue)
				})
			})

			Convey("And the claim is released", func() {
				So(s.Release(ctx, "player-1", "memory_cards"), ShouldBeNil)

				Convey("Then the game can be claimed again", func() {
					again, _ := s.Claim(ctx, "player-1", "memory_cards")
					So(again, ShouldBeTrue)
				})
			})
		})

		Convey("When the player id is blank", func() {
			_, err := s.Claim(ctx, "  ", "memory_cards")

			Convey("Then ErrEmptyPlayer is returned", func() {
				So(errors.Is(err, claims.ErrEmptyPlayer), ShouldBeTrue)
			})
		})
	})

	Convey("Given a bounded MemoryStore", t, func() {
		ctx := context.Background()
		s := claims.NewMemoryStore(claims.WithMaxSize(3))

		for i := 0; i < 4; i++ {
			_, _ = s.Claim(ctx, fmt.Sprintf("p%d", i), "memory_cards")
		}

		Convey("Then the oldest claim was evicted", func() {
			n, _ := s.Size(ctx)
			So(n, ShouldEqual, 3)

			oldest, _ := s.Claim(ctx, "p0", "memory_cards")
			So(oldest, ShouldBeTrue)

			newest, _ := s.Claim(ctx, "p3", "memory_cards")
			So(newest, ShouldBeFalse)
		})
	})

	Convey("Given a MemoryStore with a TTL", t, func() {
		ctx := context.Background()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		s := claims.NewMemoryStore(
			claims.WithTTL(time.Hour),
			claims.WithClock(func() time.Time { return now }),
		)
		_, _ = s.Claim(ctx, "p1", "precision_trace")

		Convey("When the TTL has not elapsed", func() {
			now = now.Add(59 * time.Minute)
			ok, _ := s.Claim(ctx, "p1", "precision_trace")

			Convey("Then the claim still holds", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the TTL has elapsed", func() {
			now = now.Add(time.Hour)
			ok, _ := s.Claim(ctx, "p1", "precision_trace")

			Convey("Then the player may claim again", func() {
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStore_Concurrent(t *testing.T) {
	Convey("Given many goroutines claiming the same game", t, func() {
		ctx := context.Background()
		s := claims.NewMemoryStore()

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := s.Claim(ctx, "p1", "ink_mix_master"); ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one claim succeeds", func() {
			So(winners.Load(), ShouldEqual, 1)
		})
	})
}
