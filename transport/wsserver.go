package transport

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// WSServer binds a Server to a fiber websocket upgrade route: the
// transport's network binding, distinct from the out-of-scope HTTP-binding
// adapter that translates application HTTP requests into request
// envelopes. Grounds pipe.go's *fiber.App-based listener, generalized from
// an HTTP vertex graph to this package's Server.Serve.
type WSServer struct {
	srv *Server
	log *logrus.Logger
}

// NewWSServer returns a WSServer dispatching accepted sockets to srv.
func NewWSServer(srv *Server, log *logrus.Logger) *WSServer {
	return &WSServer{srv: srv, log: logOrDefault(log)}
}

// Register mounts the websocket upgrade handler at path on app. Each
// accepted socket runs Server.Serve on its own goroutine until the
// connection closes.
func (w *WSServer) Register(app *fiber.App, path string) {
	app.Use(path, func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(path, fiberws.New(func(conn *fiberws.Conn) {
		stream := newWSStream(conn)
		if err := w.srv.Serve(context.Background(), stream); err != nil {
			w.log.WithError(err).Warn("transport: websocket connection closed")
		}
	}))
}
