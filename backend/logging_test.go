package backend

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/context"
)

func TestLogger(t *testing.T) {
	Convey("Logger", t, func() {
		Convey("Falls back to the process-wide logger", func() {
			So(Logger(context.Background()).Prefix(), ShouldEqual, "[netwrok] ")
		})

		Convey("Uses the connection-scoped logger when present", func() {
			ctx := SessionLoggingContext(context.Background(), "abc123")
			So(Logger(ctx).Prefix(), ShouldEqual, "[abc123] ")
		})
	})
}
