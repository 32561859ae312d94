package live_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/loadboard/internal/adapters/http/live"
	service "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func dial(url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	return conn, err
}

func read(conn *websocket.Conn) (live.Message, error) {
	var msg live.Message
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	err := conn.ReadJSON(&msg)
	return msg, err
}

func TestHub(t *testing.T) {
	convey.Convey("Given a running hub", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		hub := live.NewHub(live.WithBufferSize(8))
		hub.Start(ctx)
		srv := httptest.NewServer(hub)

		convey.Reset(func() {
			hub.Stop()
			cancel()
			srv.Close()
		})

		convey.Convey("When a client connects", func() {
			conn, err := dial(srv.URL)
			convey.So(err, convey.ShouldBeNil)
			defer conn.Close()

			hello, err := read(conn)
			convey.So(err, convey.ShouldBeNil)
			convey.So(hello.Type, convey.ShouldEqual, live.TypeConnected)
			convey.So(waitFor(func() bool { return hub.Clients() == 1 }), convey.ShouldBeTrue)

			convey.Convey("Then published snapshots reach it", func() {
				built := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
				hub.SnapshotPublished(&service.Snapshot{ID: "snap-1", BuiltAt: built})

				msg, err := read(conn)
				convey.So(err, convey.ShouldBeNil)
				convey.So(msg.Type, convey.ShouldEqual, live.TypeSnapshot)
				convey.So(msg.ID, convey.ShouldEqual, "snap-1")
				convey.So(msg.BuiltAt.Equal(built), convey.ShouldBeTrue)
			})

			convey.Convey("Then refresh failures reach it", func() {
				hub.RefreshFailed(errors.New("fetch error: status 500"))

				msg, err := read(conn)
				convey.So(err, convey.ShouldBeNil)
				convey.So(msg.Type, convey.ShouldEqual, live.TypeRefreshFailed)
				convey.So(msg.Error, convey.ShouldContainSubstring, "status 500")
			})

			convey.Convey("Then closing it unregisters the client", func() {
				conn.Close()
				convey.So(waitFor(func() bool { return hub.Clients() == 0 }), convey.ShouldBeTrue)
			})

			convey.Convey("Then cancelling the hub context shuts it down without Stop", func() {
				cancel()
				_, err := read(conn)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(waitFor(func() bool { return hub.Clients() == 0 }), convey.ShouldBeTrue)

				late, err := dial(srv.URL)
				if err == nil {
					defer late.Close()
					_, _ = read(late)
					_, err = read(late)
				}
				convey.So(err, convey.ShouldNotBeNil)
			})

			convey.Convey("Then stopping the hub disconnects it", func() {
				hub.Stop()
				convey.So(hub.Clients(), convey.ShouldEqual, 0)
				_, err := read(conn)
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When nobody is connected", func() {
			convey.Convey("Then publishing does not block", func() {
				for i := 0; i < 50; i++ {
					hub.SnapshotPublished(&service.Snapshot{ID: "x"})
				}
				hub.SnapshotPublished(nil)
				convey.So(hub.Clients(), convey.ShouldEqual, 0)
			})
		})
	})
}
