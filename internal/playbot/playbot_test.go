package playbot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/inkplay/internal/adapters/http/api"
	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/inkmix"
	"github.com/okian/inkplay/internal/domain/memory"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := SetupLogging(false, io.Discard); err != nil {
		panic(err)
	}
}

func newServer(opts ...service.Option) (*httptest.Server, *service.Service) {
	opts = append([]service.Option{
		service.WithRandomSource(game.NewRandom(42)),
		service.WithRevealDelay(5 * time.Millisecond),
		service.WithPortfolio([]string{"/a.jpg", "/b.jpg", "/c.jpg", "/d.jpg", "/e.jpg", "/f.jpg"}),
	}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux), svc
}

func TestNextTube(t *testing.T) {
	Convey("Given every palette target", t, func() {
		for _, target := range inkmix.Palette {
			Convey("When mixing greedily toward "+target.Name, func() {
				mix := inkmix.Neutral
				for i := 0; i < maxInkSqueezes && inkmix.Similarity(mix, target.RGB) < 95; i++ {
					mix = nextTube(mix, target.RGB).Apply(mix)
				}

				Convey("Then the default target is reached", func() {
					So(inkmix.Similarity(mix, target.RGB), ShouldBeGreaterThanOrEqualTo, 95)
				})
			})
		}
	})
}

func cards(states []memory.State, images []string) *memory.View {
	v := &memory.View{Phase: memory.PhasePlaying}
	for i, st := range states {
		cv := memory.CardView{Index: i, State: st}
		if st != memory.Closed {
			cv.Image = images[i]
		}
		v.Cards = append(v.Cards, cv)
	}
	return v
}

func TestBoard(t *testing.T) {
	C, O, M := memory.Closed, memory.Open, memory.Matched
	images := []string{"x", "y", "x", "y"}

	Convey("Given a fresh board", t, func() {
		b := newBoard()

		Convey("When nothing is known", func() {
			v := cards([]memory.State{C, C, C, C}, images)
			b.learn(v)
			idx, ok := b.next(v)

			Convey("Then the first unseen card is turned", func() {
				So(ok, ShouldBeTrue)
				So(idx, ShouldEqual, 0)
			})
		})

		Convey("When a card is open and its partner was seen before", func() {
			b.images[2] = "x"
			v := cards([]memory.State{O, C, C, C}, images)
			b.learn(v)
			idx, _ := b.next(v)

			Convey("Then the partner is turned", func() {
				So(idx, ShouldEqual, 2)
			})
		})

		Convey("When a known pair sits closed", func() {
			b.images[1], b.images[3] = "y", "y"
			v := cards([]memory.State{M, C, M, C}, images)
			idx, _ := b.next(v)

			Convey("Then its first half is turned", func() {
				So(idx, ShouldEqual, 1)
			})
		})

		Convey("When two cards with the same image did not match", func() {
			same := []string{"x", "x", "x", "x"}
			b.learn(&memory.View{Locked: true, Cards: cards([]memory.State{O, O, C, C}, same).Cards})
			v := cards([]memory.State{O, C, C, C}, same)
			b.learn(v)
			idx, _ := b.next(v)

			Convey("Then that pairing is not tried again", func() {
				So(b.misses[pairKey(0, 1)], ShouldBeTrue)
				So(idx, ShouldNotEqual, 1)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv, svc := newServer()
		defer svc.Stop()
		defer srv.Close()
		ctx := context.Background()

		Convey("When every game is played by distinct players", func() {
			stats, err := Run(ctx, Config{BaseURL: srv.URL, Sessions: 6, Workers: 3})

			Convey("Then every session is won", func() {
				So(err, ShouldBeNil)
				So(stats.Sessions, ShouldEqual, 6)
				So(stats.Wins, ShouldEqual, 6)
				So(stats.Errors, ShouldEqual, 0)
				So(stats.ByGame[game.KeyMemory], ShouldEqual, 2)
				So(stats.ByGame[game.KeyPrecision], ShouldEqual, 2)
				So(stats.ByGame[game.KeyInkMix], ShouldEqual, 2)
			})
		})

		Convey("When one player wins the same game three times", func() {
			stats, err := Run(ctx, Config{
				BaseURL: srv.URL, Sessions: 3, Workers: 1, Players: 1, Game: game.KeyInkMix,
			})

			Convey("Then only the first win is awarded", func() {
				So(err, ShouldBeNil)
				So(stats.Wins, ShouldEqual, 1)
				So(stats.Duplicates, ShouldEqual, 2)
			})
		})

		Convey("When an unknown game is requested", func() {
			_, err := Run(ctx, Config{BaseURL: srv.URL, Game: "poker"})

			Convey("Then the run is refused", func() {
				So(errors.Is(err, ErrUnknownKey), ShouldBeTrue)
			})
		})
	})

	Convey("Given no reachable service", t, func() {
		srv, svc := newServer()
		svc.Stop()
		srv.Close()

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), Config{BaseURL: srv.URL, Timeout: time.Second})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a client", t, func() {
		srv, svc := newServer()
		defer svc.Stop()
		defer srv.Close()
		c := NewClient(srv.URL+"/", time.Second)
		ctx := context.Background()

		Convey("When a missing session is read", func() {
			_, err := c.Session(ctx, "nope")

			Convey("Then the API error is decoded", func() {
				var apiErr *APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusNotFound)
				So(apiErr.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When a precision session is traced", func() {
			v, err := c.Start(ctx, game.KeyPrecision, "tracer")
			So(err, ShouldBeNil)
			final, err := play(ctx, c, v)

			Convey("Then it is won with full accuracy", func() {
				So(err, ShouldBeNil)
				So(final.Phase, ShouldEqual, "won")
				So(final.Precision.AvgAccuracy, ShouldEqual, 100)
				So(classify(final), ShouldEqual, OutcomeWin)
			})
		})
	})
}
