package scanner

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

const (
	DefaultClamdAddr = "127.0.0.1:3310"
	clamdChunk       = 64 * 1024
)

// Clamd scans through a clamd daemon using the INSTREAM command.
type Clamd struct {
	Network string
	Addr    string

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewClamd parses addr as "unix:/path/clamd.sock" or "host:port".
func NewClamd(addr string) *Clamd {
	c := &Clamd{Network: "tcp", Addr: addr}
	if addr == "" {
		c.Addr = DefaultClamdAddr
	}
	if p, ok := strings.CutPrefix(addr, "unix:"); ok {
		c.Network, c.Addr = "unix", p
	}
	var d net.Dialer
	c.dial = d.DialContext
	return c
}

func (c *Clamd) Scan(ctx context.Context, r io.Reader) (Verdict, error) {
	conn, err := c.dial(ctx, c.Network, c.Addr)
	if err != nil {
		return Verdict{}, classify(ctx, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := c.stream(conn, r); err != nil {
		return Verdict{}, classify(ctx, err)
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && !(errors.Is(err, io.EOF) && reply != "") {
		return Verdict{}, classify(ctx, err)
	}
	return parseReply(strings.TrimRight(reply, "\x00\n"))
}

func (c *Clamd) stream(w io.Writer, r io.Reader) error {
	if _, err := io.WriteString(w, "zINSTREAM\x00"); err != nil {
		return err
	}

	buf := make([]byte, 4+clamdChunk)
	for {
		n, rerr := io.ReadFull(r, buf[4:])
		if n > 0 {
			binary.BigEndian.PutUint32(buf[:4], uint32(n))
			if _, err := w.Write(buf[:4+n]); err != nil {
				return err
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	_, err := w.Write([]byte{0, 0, 0, 0})
	return err
}

// parseReply understands "stream: OK", "stream: <sig> FOUND" and
// "<msg> ERROR".
func parseReply(reply string) (Verdict, error) {
	body := reply
	if i := strings.Index(reply, ": "); i >= 0 {
		body = reply[i+2:]
	}

	switch {
	case body == "OK":
		return Verdict{Safe: true}, nil
	case strings.HasSuffix(body, " FOUND"):
		sig := strings.TrimSuffix(body, " FOUND")
		return Verdict{Safe: false, EngineHits: 1, Signatures: []string{sig}}, nil
	case strings.HasSuffix(body, " ERROR"):
		return Verdict{}, fmt.Errorf("%w: clamd: %s", ErrScanFailed, strings.TrimSuffix(body, " ERROR"))
	}
	return Verdict{}, fmt.Errorf("%w: unexpected clamd reply %q", ErrScanFailed, reply)
}
