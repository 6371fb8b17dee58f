package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/rslist/internal/app"
	"github.com/okian/rslist/internal/adapters/repository"
	"github.com/okian/rslist/internal/domain/model"
	"github.com/okian/rslist/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// seed registers one user and adds events with the given names and votes,
// in order. Votes are cast by a second, well funded user.
func seed(ctx context.Context, svc *service.Service, votes map[string]int, names ...string) []model.Event {
	owner, err := svc.RegisterUser(ctx, "owner", "owner@example.com", nil)
	So(err, ShouldBeNil)
	budget := 1_000
	voter, err := svc.RegisterUser(ctx, "voter", "voter@example.com", &budget)
	So(err, ShouldBeNil)

	out := make([]model.Event, 0, len(names))
	for _, name := range names {
		e, err := svc.AddEvent(ctx, name, "kw", owner.ID)
		So(err, ShouldBeNil)
		if n := votes[name]; n > 0 {
			So(svc.Vote(ctx, model.Vote{UserID: voter.ID, Num: n}, e.ID), ShouldBeNil)
			e.Votes = n
		}
		out = append(out, e)
	}
	return out
}

func names(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Name
	}
	return out
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it reports started with empty stores", func() {
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["events"], ShouldEqual, 0)
				So(stats["slotResolution"], ShouldEqual, "index")
				So(stats["defaultVoteBudget"], ShouldEqual, 10)
			})

			Convey("And starting twice is harmless", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a service with custom options", t, func() {
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithDefaultVoteBudget(3),
			service.WithSlotResolution("identity"),
			service.WithBuyMaxRetries(1),
			service.WithClock(func() time.Time { return time.Unix(0, 0).UTC() }),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats(context.Background())
			So(stats["defaultVoteBudget"], ShouldEqual, 3)
			So(stats["slotResolution"], ShouldEqual, "identity")
			So(stats["buyMaxRetries"], ShouldEqual, 1)
		})

		Convey("Then an unknown resolution keeps the default", func() {
			other := service.New(service.WithSlotResolution("random"))
			So(other.GetStats(context.Background())["slotResolution"], ShouldEqual, "index")
		})
	})
}

func TestService_Users(t *testing.T) {
	Convey("Given a service with default vote budget 10", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When registering without a budget", func() {
			u, err := svc.RegisterUser(ctx, " alice ", "a@example.com", nil)

			Convey("Then the default budget applies", func() {
				So(err, ShouldBeNil)
				So(u.ID, ShouldEqual, 1)
				So(u.Name, ShouldEqual, "alice")
				So(u.VoteBudget, ShouldEqual, 10)
			})
		})

		Convey("When registering with invalid input", func() {
			neg := -1
			_, err1 := svc.RegisterUser(ctx, "", "", nil)
			_, err2 := svc.RegisterUser(ctx, "bob", "", &neg)

			Convey("Then it is rejected", func() {
				So(errors.Is(err1, service.ErrInvalidUser), ShouldBeTrue)
				So(errors.Is(err2, service.ErrInvalidUser), ShouldBeTrue)
			})
		})
	})
}

func TestService_AddEventAndGet(t *testing.T) {
	Convey("Given a registered user", t, func() {
		svc := service.New()
		ctx := context.Background()
		u, err := svc.RegisterUser(ctx, "alice", "", nil)
		So(err, ShouldBeNil)

		Convey("When adding events", func() {
			a, err := svc.AddEvent(ctx, "A", "sport", u.ID)
			So(err, ShouldBeNil)
			b, err := svc.AddEvent(ctx, "B", "music", u.ID)
			So(err, ShouldBeNil)

			Convey("Then ids are sequential and votes start at zero", func() {
				So(a.ID, ShouldEqual, 1)
				So(b.ID, ShouldEqual, 2)
				So(a.Votes, ShouldEqual, 0)
			})

			Convey("Then Get addresses the store order", func() {
				got, err := svc.Get(ctx, 2)
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "B")
			})

			Convey("Then out of range indices are invalid", func() {
				_, err := svc.Get(ctx, 0)
				So(errors.Is(err, service.ErrInvalidIndex), ShouldBeTrue)
				_, err = svc.Get(ctx, 3)
				So(errors.Is(err, service.ErrInvalidIndex), ShouldBeTrue)
			})
		})

		Convey("When the owner does not exist", func() {
			_, err := svc.AddEvent(ctx, "A", "sport", 42)

			Convey("Then the event is refused", func() {
				So(errors.Is(err, service.ErrUserNotFound), ShouldBeTrue)
				events, _ := svc.List(ctx)
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When required fields are missing", func() {
			_, err1 := svc.AddEvent(ctx, "", "sport", u.ID)
			_, err2 := svc.AddEvent(ctx, "A", " ", u.ID)
			_, err3 := svc.AddEvent(ctx, "A", "sport", 0)

			Convey("Then the event is invalid", func() {
				So(errors.Is(err1, service.ErrInvalidEvent), ShouldBeTrue)
				So(errors.Is(err2, service.ErrInvalidEvent), ShouldBeTrue)
				So(errors.Is(err3, service.ErrInvalidEvent), ShouldBeTrue)
			})
		})
	})
}

func TestService_ListWindow(t *testing.T) {
	Convey("Given events A(10), B(0), C(5)", t, func() {
		svc := service.New()
		ctx := context.Background()
		seed(ctx, svc, map[string]int{"A": 10, "C": 5}, "A", "B", "C")

		Convey("When listing a window", func() {
			got, err := svc.ListWindow(ctx, 1, 2)
			So(err, ShouldBeNil)
			So(names(got), ShouldResemble, []string{"A", "C"})
		})

		Convey("When the window is invalid", func() {
			_, err := svc.ListWindow(ctx, 2, 5)
			So(errors.Is(err, service.ErrInvalidIndex), ShouldBeTrue)
		})
	})
}
