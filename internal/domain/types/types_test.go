package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/rslist/internal/domain/model"
	types "github.com/okian/rslist/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEventView(t *testing.T) {
	Convey("Given a domain event", t, func() {
		e := model.Event{ID: 3, Name: "C", Keyword: "k", Votes: 5, UserID: 9}

		Convey("When rendering it as JSON", func() {
			b, err := json.Marshal(types.NewEventView(e))
			So(err, ShouldBeNil)

			var got map[string]any
			So(json.Unmarshal(b, &got), ShouldBeNil)

			Convey("Then the public fields are present and the owner is hidden", func() {
				So(got["eventName"], ShouldEqual, "C")
				So(got["keyword"], ShouldEqual, "k")
				So(got["voteNum"], ShouldEqual, 5)
				So(got["id"], ShouldEqual, 3)
				So(got, ShouldNotContainKey, "userId")
				So(got, ShouldNotContainKey, "user")
			})
		})

		Convey("When converting a slice", func() {
			views := types.NewEventViews([]model.Event{{ID: 2, Name: "B"}, {ID: 1, Name: "A"}})

			Convey("Then order is preserved", func() {
				So(views, ShouldHaveLength, 2)
				So(views[0].EventName, ShouldEqual, "B")
				So(views[1].EventName, ShouldEqual, "A")
			})
		})
	})
}

func TestLedgerViews(t *testing.T) {
	Convey("Given ledger entries", t, func() {
		now := time.Now().UTC()
		views := types.NewLedgerViews([]model.LedgerEntry{
			{ID: "a", Price: 100, RankPos: 1, EventID: 3, CreatedAt: now},
			{ID: "b", Price: 500, RankPos: 1, EventID: 2, CreatedAt: now},
		})

		Convey("Then amounts and ranks map one to one", func() {
			So(views, ShouldHaveLength, 2)
			So(views[0].Amount, ShouldEqual, 100)
			So(views[1].Amount, ShouldEqual, 500)
			So(views[1].EventID, ShouldEqual, 2)
			So(views[0].Rank, ShouldEqual, 1)
		})
	})
}
