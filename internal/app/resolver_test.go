package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/herobot/internal/adapters/stratz"
	service "github.com/okian/herobot/internal/app"
	"github.com/okian/herobot/internal/domain/catalog"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()

	Convey("Given an index and a stats endpoint", t, func() {
		stats := newFakeStats()
		defer stats.close()
		idx := buildIndex()
		client := stats.client()

		Convey("When the name resolves", func() {
			samples, id, err := service.Resolve(ctx, "drow", stratz.WinWeekQuery, idx, client)

			Convey("Then the top candidate id should be bound into the query", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, uint8(6))
				So(len(samples), ShouldEqual, 5)
				So(stats.seenIDs(), ShouldResemble, []float64{6})
			})
		})

		Convey("When the name matches nothing", func() {
			_, id, err := service.Resolve(ctx, "qqqqqq", stratz.HeroStatsQuery, idx, client)

			Convey("Then it should fail fast with EntityNotFound", func() {
				So(id, ShouldEqual, uint8(0))
				So(errors.Is(err, catalog.ErrEntityNotFound), ShouldBeTrue)
				So(stats.hits.Load(), ShouldEqual, int32(0))
				var re *service.ResolutionError
				So(errors.As(err, &re), ShouldBeTrue)
				So(re.Name, ShouldEqual, "qqqqqq")
			})
		})

		Convey("When the query fails", func() {
			stats.fail(http.StatusInternalServerError)
			_, id, err := service.Resolve(ctx, "bane", stratz.HeroStatsQuery, idx, client)

			Convey("Then the QueryError should be reachable and tagged with the id", func() {
				So(id, ShouldEqual, uint8(3))
				So(errors.Is(err, stratz.ErrQuery), ShouldBeTrue)
				var re *service.ResolutionError
				So(errors.As(err, &re), ShouldBeTrue)
				So(re.ID, ShouldEqual, uint8(3))
				So(err.Error(), ShouldContainSubstring, "hero 3")
			})
		})

		Convey("When the name is blank", func() {
			_, _, err := service.Resolve(ctx, "   ", stratz.HeroStatsQuery, idx, client)

			Convey("Then it should match both the blank and the not found sentinels", func() {
				So(errors.Is(err, service.ErrEmptyHero), ShouldBeTrue)
				So(errors.Is(err, catalog.ErrEntityNotFound), ShouldBeTrue)
				So(service.ErrorKind(err), ShouldEqual, service.KindInvalid)
				So(stats.hits.Load(), ShouldEqual, int32(0))
			})
		})
	})
}

func TestResolutionError_Error(t *testing.T) {
	Convey("Given resolution errors", t, func() {
		Convey("When the query for hero 0 failed", func() {
			err := &service.ResolutionError{Name: "zero", ID: 0, Err: stratz.ErrQuery}

			Convey("Then the id should still be reported", func() {
				So(err.Error(), ShouldContainSubstring, "(hero 0)")
			})
		})

		Convey("When no hero matched", func() {
			err := &service.ResolutionError{Name: "qqq", Err: catalog.ErrEntityNotFound}

			Convey("Then no id should be reported", func() {
				So(err.Error(), ShouldNotContainSubstring, "hero 0")
				So(err.Error(), ShouldContainSubstring, `"qqq"`)
			})
		})
	})
}
