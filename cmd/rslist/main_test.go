package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/okian/rslist/internal/app"
	"github.com/okian/rslist/internal/config"
	"github.com/okian/rslist/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestApplyLogging(t *testing.T) {
	convey.Convey("Given a config with logging settings", t, func() {
		defer func() {
			_ = logger.Init()
			_ = logger.SetLevelString("info")
		}()
		cfg := config.New()

		convey.Convey("When they are valid", func() {
			cfg.LogFormat = logger.FormatJSON
			cfg.LogLevel = "debug"
			convey.So(applyLogging(cfg), convey.ShouldBeNil)
		})

		convey.Convey("When they are invalid", func() {
			cfg.LogFormat = "xml"
			cfg.LogLevel = "loud"
			err := applyLogging(cfg)

			convey.Convey("Then both problems should be reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "xml")
				convey.So(err.Error(), convey.ShouldContainSubstring, "loud")
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the memory driver", t, func() {
		cfg := config.New()
		store, err := openStore(context.Background(), cfg, logger.Get())

		convey.Convey("Then an empty store should be returned", func() {
			convey.So(err, convey.ShouldBeNil)
			c, err := store.Counts(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(c.Events, convey.ShouldEqual, 0)
			convey.So(store.Close(), convey.ShouldBeNil)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the assembled mux", t, func() {
		ctx := context.Background()
		svc := app.New()
		mux := newMux(ctx, svc, logger.Get())

		convey.Convey("Then API and docs routes should be served", func() {
			for _, path := range []string{"/rs/list", "/rs/ledger", "/stats", "/healthz", "/api-docs", "/openapi.yaml"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a user can be registered", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`{"userName":"u"}`))
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config listening on a random port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run should return cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}
