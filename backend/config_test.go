package backend

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig(t *testing.T) {
	Convey("ServerConfig", t, func() {
		cfg := ServerConfig{}

		Convey("Overlays settings from a yaml file", func() {
			path := filepath.Join(t.TempDir(), "netwrok.yml")
			data := []byte("http:\n  listen: \":9090\"\nsession:\n  keepalive: 5s\n")
			So(os.WriteFile(path, data, 0600), ShouldBeNil)

			So(cfg.LoadFromFile(path), ShouldBeNil)
			So(cfg.HTTP.Listen, ShouldEqual, ":9090")
			So(cfg.Session.KeepAlive, ShouldEqual, 5*time.Second)
		})

		Convey("Fails on a missing file", func() {
			So(cfg.LoadFromFile("/does/not/exist.yml"), ShouldNotBeNil)
		})

		Convey("Overlays settings from the environment", func() {
			t.Setenv("NETWROK_HTTP_LISTEN", ":7070")

			So(cfg.LoadFromEnv(), ShouldBeNil)
			So(cfg.HTTP.Listen, ShouldEqual, ":7070")
		})
	})
}
