package feed

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"heimdall/domain/market"
)

// Tape frame:
// [type:1][seq:8][len:2][body][crc:4]
// crc is CRC-32 (IEEE) over type..body. All integers big-endian.
// Bodies are fixed-width per message type; tickers are 8 bytes,
// space padded.

var (
	ErrCorruptFrame   = errors.New("corrupt frame")
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrSequenceGap means the feed skipped or repeated a sequence
	// number. Resynchronization belongs to the feed supplier, so the
	// decoder treats this as fatal.
	ErrSequenceGap = errors.New("sequence gap")
)

const (
	headerSize = 1 + 8 + 2
	crcSize    = 4
	tickerSize = 8
	// Largest body is ReplaceOrder at 32 bytes.
	maxBodySize = 32
)

func bodySize(t EventType) (int, bool) {
	switch t {
	case EvAddSymbol:
		return 4 + tickerSize, true
	case EvDeleteSymbol:
		return 4, true
	case EvAddOrder:
		return 8 + 4 + 1 + 8 + 8, true
	case EvExecuteOrder, EvReduceOrder:
		return 8 + 8, true
	case EvExecuteOrderAtPrice:
		return 8 + 8 + 8, true
	case EvDeleteOrder:
		return 8, true
	case EvReplaceOrder:
		return 8 + 8 + 8 + 8, true
	default:
		return 0, false
	}
}

// Encoder writes tape frames to w.
type Encoder struct {
	w   *bufio.Writer
	buf [headerSize + maxBodySize + crcSize]byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) Encode(ev Event) error {
	size, ok := bodySize(ev.Type)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMessage, ev.Type)
	}

	buf := e.buf[:headerSize+size+crcSize]
	buf[0] = byte(ev.Type)
	binary.BigEndian.PutUint64(buf[1:9], ev.Seq)
	binary.BigEndian.PutUint16(buf[9:11], uint16(size))

	body := buf[headerSize : headerSize+size]
	switch ev.Type {
	case EvAddSymbol:
		binary.BigEndian.PutUint32(body[0:4], ev.Symbol)
		ticker := ev.Ticker
		if len(ticker) > tickerSize {
			ticker = ticker[:tickerSize]
		}
		copy(body[4:], []byte(ticker+strings.Repeat(" ", tickerSize-len(ticker))))
	case EvDeleteSymbol:
		binary.BigEndian.PutUint32(body[0:4], ev.Symbol)
	case EvAddOrder:
		binary.BigEndian.PutUint64(body[0:8], ev.OrderID)
		binary.BigEndian.PutUint32(body[8:12], ev.Symbol)
		body[12] = byte(ev.Side)
		binary.BigEndian.PutUint64(body[13:21], uint64(ev.Price))
		binary.BigEndian.PutUint64(body[21:29], uint64(ev.Qty))
	case EvExecuteOrder, EvReduceOrder:
		binary.BigEndian.PutUint64(body[0:8], ev.OrderID)
		binary.BigEndian.PutUint64(body[8:16], uint64(ev.Qty))
	case EvExecuteOrderAtPrice:
		binary.BigEndian.PutUint64(body[0:8], ev.OrderID)
		binary.BigEndian.PutUint64(body[8:16], uint64(ev.Qty))
		binary.BigEndian.PutUint64(body[16:24], uint64(ev.Price))
	case EvDeleteOrder:
		binary.BigEndian.PutUint64(body[0:8], ev.OrderID)
	case EvReplaceOrder:
		binary.BigEndian.PutUint64(body[0:8], ev.OrderID)
		binary.BigEndian.PutUint64(body[8:16], ev.NewOrderID)
		binary.BigEndian.PutUint64(body[16:24], uint64(ev.Price))
		binary.BigEndian.PutUint64(body[24:32], uint64(ev.Qty))
	}

	crc := crc32.ChecksumIEEE(buf[:headerSize+size])
	binary.BigEndian.PutUint32(buf[headerSize+size:], crc)

	_, err := e.w.Write(buf)
	return err
}

func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Decoder reads tape frames from r and enforces strict sequencing:
// every frame must carry the previous sequence number plus one.
type Decoder struct {
	r       *bufio.Reader
	lastSeq uint64
	started bool
	frame   []byte
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 1<<16)}
}

// LastSeq returns the sequence number of the last decoded frame.
func (d *Decoder) LastSeq() uint64 { return d.lastSeq }

// Frame returns the raw bytes of the last decoded frame. The slice is
// reused by the next call to Next.
func (d *Decoder) Frame() []byte { return d.frame }

// Next decodes one event. It returns io.EOF at a clean end of tape.
func (d *Decoder) Next() (Event, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Event{}, fmt.Errorf("%w: truncated header", ErrCorruptFrame)
		}
		return Event{}, err
	}

	t := EventType(header[0])
	seq := binary.BigEndian.Uint64(header[1:9])
	size := int(binary.BigEndian.Uint16(header[9:11]))

	want, ok := bodySize(t)
	if !ok {
		return Event{}, fmt.Errorf("%w: %d at seq %d", ErrUnknownMessage, t, seq)
	}
	if size != want {
		return Event{}, fmt.Errorf("%w: body size %d for %s", ErrCorruptFrame, size, t)
	}

	var rest [maxBodySize + crcSize]byte
	if _, err := io.ReadFull(d.r, rest[:size+crcSize]); err != nil {
		return Event{}, fmt.Errorf("%w: truncated body at seq %d", ErrCorruptFrame, seq)
	}
	body := rest[:size]

	crc := crc32.NewIEEE()
	crc.Write(header[:])
	crc.Write(body)
	if got, told := crc.Sum32(), binary.BigEndian.Uint32(rest[size:size+crcSize]); got != told {
		return Event{}, fmt.Errorf("%w: crc mismatch at seq %d", ErrCorruptFrame, seq)
	}

	if d.started && seq != d.lastSeq+1 {
		return Event{}, fmt.Errorf("%w: got %d, want %d", ErrSequenceGap, seq, d.lastSeq+1)
	}
	d.lastSeq = seq
	d.started = true

	d.frame = append(d.frame[:0], header[:]...)
	d.frame = append(d.frame, rest[:size+crcSize]...)

	ev := Event{Type: t, Seq: seq}
	switch t {
	case EvAddSymbol:
		ev.Symbol = binary.BigEndian.Uint32(body[0:4])
		ev.Ticker = strings.TrimRight(string(body[4:4+tickerSize]), " ")
	case EvDeleteSymbol:
		ev.Symbol = binary.BigEndian.Uint32(body[0:4])
	case EvAddOrder:
		ev.OrderID = binary.BigEndian.Uint64(body[0:8])
		ev.Symbol = binary.BigEndian.Uint32(body[8:12])
		if body[12] > uint8(market.Ask) {
			return Event{}, fmt.Errorf("%w: side %d at seq %d", ErrCorruptFrame, body[12], seq)
		}
		ev.Side = market.Side(body[12])
		ev.Price = int64(binary.BigEndian.Uint64(body[13:21]))
		ev.Qty = int64(binary.BigEndian.Uint64(body[21:29]))
	case EvExecuteOrder, EvReduceOrder:
		ev.OrderID = binary.BigEndian.Uint64(body[0:8])
		ev.Qty = int64(binary.BigEndian.Uint64(body[8:16]))
	case EvExecuteOrderAtPrice:
		ev.OrderID = binary.BigEndian.Uint64(body[0:8])
		ev.Qty = int64(binary.BigEndian.Uint64(body[8:16]))
		ev.Price = int64(binary.BigEndian.Uint64(body[16:24]))
	case EvDeleteOrder:
		ev.OrderID = binary.BigEndian.Uint64(body[0:8])
	case EvReplaceOrder:
		ev.OrderID = binary.BigEndian.Uint64(body[0:8])
		ev.NewOrderID = binary.BigEndian.Uint64(body[8:16])
		ev.Price = int64(binary.BigEndian.Uint64(body[16:24]))
		ev.Qty = int64(binary.BigEndian.Uint64(body[24:32]))
	}
	return ev, nil
}
