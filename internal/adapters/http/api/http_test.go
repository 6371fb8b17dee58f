package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/rslist/internal/adapters/http/api"
	service "github.com/okian/rslist/internal/app"
	"github.com/okian/rslist/internal/domain/keylock"
	"github.com/okian/rslist/internal/domain/model"
	"github.com/okian/rslist/internal/domain/types"
	"github.com/okian/rslist/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type idBody struct {
	ID uint `json:"id"`
}

func newMux(svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func eventNames(views []types.EventView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.EventName
	}
	return out
}

// seedHTTP registers a user and adds the named events through the API.
func seedHTTP(mux http.Handler, names ...string) uint {
	w := do(mux, http.MethodPost, "/user", `{"userName":"alice","email":"a@example.com"}`)
	So(w.Code, ShouldEqual, http.StatusCreated)
	user := decode[idBody](w)
	So(user.ID, ShouldBeGreaterThan, 0)
	for _, name := range names {
		w := do(mux, http.MethodPost, "/rs/event",
			fmt.Sprintf(`{"eventName":%q,"keyword":"kw","userId":%d}`, name, user.ID))
		So(w.Code, ShouldEqual, http.StatusCreated)
	}
	return user.ID
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server backed by an in-memory service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When requesting /healthz", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then it should expose the metrics", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "rslist_")
			})
		})

		Convey("When requesting /stats after seeding", func() {
			seedHTTP(mux, "a", "b")
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the counts should be reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				stats := decode[map[string]any](w)
				So(stats["events"], ShouldEqual, float64(2))
				So(stats["users"], ShouldEqual, float64(1))
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When the list is empty", func() {
			w := do(mux, http.MethodGet, "/rs/list", "")

			Convey("Then an empty array should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})
	})
}

func TestServer_Events(t *testing.T) {
	Convey("Given a server with one registered user", t, func() {
		svc := service.New()
		mux := newMux(svc)
		userID := seedHTTP(mux)

		Convey("When adding an event", func() {
			w := do(mux, http.MethodPost, "/rs/event",
				fmt.Sprintf(`{"eventName":"launch","keyword":"tech","userId":%d}`, userID))

			Convey("Then it should be created with zero votes", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				id := decode[idBody](w).ID

				g := do(mux, http.MethodGet, "/rs/1", "")
				So(g.Code, ShouldEqual, http.StatusOK)
				view := decode[types.EventView](g)
				So(view.ID, ShouldEqual, id)
				So(view.EventName, ShouldEqual, "launch")
				So(view.Keyword, ShouldEqual, "tech")
				So(view.VoteNum, ShouldEqual, 0)
			})
		})

		Convey("When adding an event for an unknown user", func() {
			w := do(mux, http.MethodPost, "/rs/event", `{"eventName":"x","keyword":"k","userId":99}`)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldContainSubstring, "user not found")
			})
		})

		Convey("When the body is malformed", func() {
			w := do(mux, http.MethodPost, "/rs/event", `{"eventName":`)

			Convey("Then a bad request should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[errorBody](w)
				So(body.Code, ShouldEqual, "bad_request")
				So(body.Error, ShouldStartWith, "bad request: malformed body")
			})
		})

		Convey("When the event name is missing", func() {
			w := do(mux, http.MethodPost, "/rs/event", fmt.Sprintf(`{"keyword":"k","userId":%d}`, userID))

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldContainSubstring, "invalid event")
			})
		})
	})
}

func TestServer_ListAndGet(t *testing.T) {
	Convey("Given three events", t, func() {
		svc := service.New()
		mux := newMux(svc)
		seedHTTP(mux, "a", "b", "c")

		Convey("When a window is requested", func() {
			w := do(mux, http.MethodGet, "/rs/list?start=2&end=3", "")

			Convey("Then only that slice should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(eventNames(decode[[]types.EventView](w)), ShouldResemble, []string{"b", "c"})
			})
		})

		Convey("When only one bound is given", func() {
			w := do(mux, http.MethodGet, "/rs/list?start=2", "")

			Convey("Then the full list should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[[]types.EventView](w), ShouldHaveLength, 3)
			})
		})

		Convey("When the window exceeds the list", func() {
			w := do(mux, http.MethodGet, "/rs/list?start=1&end=5", "")

			Convey("Then invalid index should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldEqual, "invalid index")
			})
		})

		Convey("When the window bounds are not numbers", func() {
			w := do(mux, http.MethodGet, "/rs/list?start=one&end=2", "")

			Convey("Then invalid index should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldEqual, "invalid index")
			})
		})

		Convey("When getting out of range indexes", func() {
			for _, path := range []string{"/rs/0", "/rs/4", "/rs/x"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[errorBody](w)
				So(body.Error, ShouldEqual, "invalid index")
				So(body.Code, ShouldEqual, "invalid_index")
			}
		})
	})
}

func TestServer_Vote(t *testing.T) {
	Convey("Given a user with the default budget and two events", t, func() {
		svc := service.New()
		mux := newMux(svc)
		userID := seedHTTP(mux, "a", "b")

		Convey("When voting for the second event", func() {
			w := do(mux, http.MethodPost, "/rs/vote/2",
				fmt.Sprintf(`{"userId":%d,"voteNum":4,"voteTime":"2024-01-02T03:04:05"}`, userID))

			Convey("Then it should lead the list", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				l := decode[[]types.EventView](do(mux, http.MethodGet, "/rs/list", ""))
				So(eventNames(l), ShouldResemble, []string{"b", "a"})
				So(l[0].VoteNum, ShouldEqual, 4)
			})
		})

		Convey("When voting beyond the budget", func() {
			w := do(mux, http.MethodPost, "/rs/vote/1", fmt.Sprintf(`{"userId":%d,"voteNum":11}`, userID))

			Convey("Then the vote should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[errorBody](w)
				So(body.Code, ShouldEqual, "vote_rejected")
				So(body.Error, ShouldContainSubstring, "vote budget exceeded")
			})
		})

		Convey("When voting for an unknown event", func() {
			w := do(mux, http.MethodPost, "/rs/vote/9", fmt.Sprintf(`{"userId":%d,"voteNum":1}`, userID))

			Convey("Then the vote should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldContainSubstring, "event not found")
			})
		})

		Convey("When the path id is not a number", func() {
			w := do(mux, http.MethodPost, "/rs/vote/abc", fmt.Sprintf(`{"userId":%d,"voteNum":1}`, userID))

			Convey("Then a bad request should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldContainSubstring, "invalid path parameter")
			})
		})

		Convey("When the vote time cannot be parsed", func() {
			w := do(mux, http.MethodPost, "/rs/vote/1",
				fmt.Sprintf(`{"userId":%d,"voteNum":1,"voteTime":"yesterday"}`, userID))

			Convey("Then a bad request should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldContainSubstring, "invalid voteTime")
			})
		})
	})
}

func TestServer_Buy(t *testing.T) {
	Convey("Given three events without votes", t, func() {
		svc := service.New()
		mux := newMux(svc)
		seedHTTP(mux, "a", "b", "c")

		Convey("When c buys the first rank", func() {
			w := do(mux, http.MethodPost, "/rs/buy/3", `{"amount":100,"rank":1}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then c should be pinned first", func() {
				l := decode[[]types.EventView](do(mux, http.MethodGet, "/rs/list", ""))
				So(eventNames(l), ShouldResemble, []string{"c", "a", "b"})
			})

			Convey("And a lower bid should be refused with the fixed message", func() {
				w := do(mux, http.MethodPost, "/rs/buy/2", `{"amount":50,"rank":1}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[errorBody](w)
				So(body.Error, ShouldEqual, "The amount you pay is not enough to buy that rank")
				So(body.Code, ShouldEqual, "insufficient_amount")
			})

			Convey("And an equal bid should be refused", func() {
				w := do(mux, http.MethodPost, "/rs/buy/2", `{"amount":100,"rank":1}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And a higher bid should evict c", func() {
				w := do(mux, http.MethodPost, "/rs/buy/2", `{"amount":200,"rank":1}`)
				So(w.Code, ShouldEqual, http.StatusOK)

				l := decode[[]types.EventView](do(mux, http.MethodGet, "/rs/list", ""))
				So(eventNames(l), ShouldResemble, []string{"b", "a"})

				ledger := decode[[]types.LedgerView](do(mux, http.MethodGet, "/rs/ledger", ""))
				So(ledger, ShouldHaveLength, 2)
				So(ledger[0].Amount, ShouldEqual, 100)
				So(ledger[0].EventID, ShouldEqual, uint(3))
				So(ledger[1].Amount, ShouldEqual, 200)
				So(ledger[1].Rank, ShouldEqual, 1)
				So(ledger[1].ID, ShouldNotBeEmpty)
			})
		})

		Convey("When the bid is negative", func() {
			w := do(mux, http.MethodPost, "/rs/buy/1", `{"amount":-1,"rank":1}`)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Code, ShouldEqual, "invalid_bid")
			})
		})
	})
}

func TestServer_RegisterUser(t *testing.T) {
	Convey("Given a server", t, func() {
		svc := service.New()
		mux := newMux(svc)

		Convey("When registering with an explicit budget", func() {
			w := do(mux, http.MethodPost, "/user", `{"userName":"bob","email":"b@example.com","voteNum":2}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			id := decode[idBody](w).ID
			So(do(mux, http.MethodPost, "/rs/event",
				fmt.Sprintf(`{"eventName":"e","keyword":"k","userId":%d}`, id)).Code, ShouldEqual, http.StatusCreated)

			Convey("Then votes above that budget should be rejected", func() {
				w := do(mux, http.MethodPost, "/rs/vote/1", fmt.Sprintf(`{"userId":%d,"voteNum":3}`, id))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				w = do(mux, http.MethodPost, "/rs/vote/1", fmt.Sprintf(`{"userId":%d,"voteNum":2}`, id))
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the name is missing", func() {
			w := do(mux, http.MethodPost, "/user", `{"email":"b@example.com"}`)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Error, ShouldContainSubstring, "invalid user")
			})
		})
	})
}

// failingDeps returns err from every operation.
type failingDeps struct {
	err error
}

func (f failingDeps) List(context.Context) ([]model.Event, error) { return nil, f.err }
func (f failingDeps) ListWindow(context.Context, int, int) ([]model.Event, error) {
	return nil, f.err
}
func (f failingDeps) Get(context.Context, int) (model.Event, error) { return model.Event{}, f.err }
func (f failingDeps) AddEvent(context.Context, string, string, uint) (model.Event, error) {
	return model.Event{}, f.err
}
func (f failingDeps) Vote(context.Context, model.Vote, uint) error { return f.err }
func (f failingDeps) Buy(context.Context, model.Bid, uint) error   { return f.err }
func (f failingDeps) RegisterUser(context.Context, string, string, *int) (model.User, error) {
	return model.User{}, f.err
}
func (f failingDeps) Ledger(context.Context) ([]model.LedgerEntry, error) { return nil, f.err }

type staticStats map[string]interface{}

func (s staticStats) GetStats(context.Context) map[string]interface{} { return s }

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		newFailing := func(err error) *http.ServeMux {
			mux := http.NewServeMux()
			api.NewServer(failingDeps{err: err}, staticStats{}, api.WithLogger(logger.Get())).
				Register(context.Background(), mux)
			return mux
		}

		Convey("When the failure is unexpected", func() {
			mux := newFailing(errors.New("disk on fire"))
			w := do(mux, http.MethodGet, "/rs/list", "")

			Convey("Then the cause should not leak", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decode[errorBody](w)
				So(body.Error, ShouldEqual, "internal error")
				So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			})
		})

		Convey("When a lock wait is cancelled", func() {
			mux := newFailing(fmt.Errorf("%w: rank:1: %w", keylock.ErrLockCancelled, context.Canceled))
			w := do(mux, http.MethodPost, "/rs/buy/1", `{"amount":1,"rank":1}`)

			Convey("Then the service should report unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode[errorBody](w).Code, ShouldEqual, "unavailable")
			})
		})

		Convey("When the stored slots are inconsistent", func() {
			mux := newFailing(service.ErrInconsistentState)
			w := do(mux, http.MethodGet, "/rs/list?start=1&end=1", "")

			Convey("Then an internal error should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When the stats provider is static", func() {
			mux := http.NewServeMux()
			api.NewServer(failingDeps{}, staticStats{"events": 3}).Register(context.Background(), mux)
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then it should be rendered as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](w)["events"], ShouldEqual, float64(3))
			})
		})
	})
}
