package wire

import "encoding/json"

// Codec layers the Packet discriminated union on top of a frame Reader/
// Writer, both directions. It holds no state beyond the embedded Reader's
// receive buffer and is not safe for concurrent Decode calls from multiple
// goroutines (matching the "frame reader buffer is owned by the receiver
// alone" rule of the concurrency model).
type Codec struct {
	reader *Reader
	writer *Writer
}

// NewCodec returns a Codec with a fresh Reader/Writer pair.
func NewCodec() *Codec {
	return &Codec{reader: NewReader(), writer: NewWriter()}
}

// EncodePacket renders p as a framed byte sequence: JSON-marshal the
// envelope, then frame with a varint length prefix.
func (c *Codec) EncodePacket(p Packet) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return c.writer.Encode(body), nil
}

// Feed appends newly read bytes to the codec's receive buffer.
func (c *Codec) Feed(b []byte) {
	c.reader.Feed(b)
}

// Pending reports whether unconsumed bytes of an incomplete frame remain
// buffered; used to distinguish clean EOF from a mid-frame abort.
func (c *Codec) Pending() bool {
	return c.reader.Pending()
}

// NextPacket attempts to decode one Packet from the buffered bytes. The
// three-way result mirrors Reader.Next: ok==false, err==nil means
// buffer_needed (feed more and retry); err!=nil covers both a malformed
// frame prefix and a malformed or unrecognized packet body, both of which
// are protocol errors rather than buffer_needed.
func (c *Codec) NextPacket() (pkt Packet, ok bool, err error) {
	payload, ok, err := c.reader.Next()
	if err != nil || !ok {
		return Packet{}, ok, err
	}
	var p Packet
	if err := json.Unmarshal(payload, &p); err != nil {
		return Packet{}, false, err
	}
	return p, true, nil
}
