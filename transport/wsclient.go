package transport

import (
	"net/http"

	"github.com/fasthttp/websocket"
)

// DialWS opens a websocket connection to url and wraps it as a ByteStream
// suitable for Dial, the client-side counterpart of WSServer.
func DialWS(url string, header http.Header) (ByteStream, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}
	return newWSStream(conn), nil
}
