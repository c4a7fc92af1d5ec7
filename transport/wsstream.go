package transport

// wsConn is the subset of *websocket.Conn (both
// github.com/gofiber/websocket/v2 and github.com/fasthttp/websocket, which
// share the same gorilla-derived method set) that wsStream needs to present
// a websocket connection as a plain ByteStream for the frame codec.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// binaryMessage matches gorilla/websocket's (and its forks') BinaryMessage
// opcode; the frame codec's own varint length prefixes do the real framing,
// so every Write is simply one binary message.
const binaryMessage = 2

// wsStream adapts a message-oriented websocket connection to the plain
// io.Reader/io.Writer ByteStream a Connection expects, buffering whatever a
// ReadMessage call returns and draining it across Read calls the same way a
// net.Conn would hand back a single TCP segment across several reads.
type wsStream struct {
	conn    wsConn
	pending []byte
}

func newWSStream(conn wsConn) *wsStream {
	return &wsStream{conn: conn}
}

// Read implements io.Reader, pulling a fresh websocket message only once the
// previous one has been fully drained.
func (w *wsStream) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.pending = data
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write implements io.Writer, sending p as one binary websocket message.
func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(binaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (w *wsStream) Close() error {
	return w.conn.Close()
}
