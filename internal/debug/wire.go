package debug

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// WireBackend speaks the debug port protocol the CLI exposes when invoked
// with debug support: newline-delimited JSON over TCP. Inbound lines are
// session events ({"event":"attached"}, {"event":"paused","frame":"..."},
// {"event":"detached"}); outbound lines are commands (setBreakpoint,
// resume).
type WireBackend struct {
	conn   net.Conn
	events chan Event
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialWire connects to the debug port, registers the breakpoints, and
// starts the event reader. Breakpoints are pushed before any event can
// arrive so the first pause is already meaningful.
func DialWire(ctx context.Context, addr string, breakpoints []Breakpoint, logger *slog.Logger) (*WireBackend, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing debug port %s: %w", addr, err)
	}

	b := &WireBackend{
		conn:   conn,
		events: make(chan Event, 8),
		logger: logger,
	}

	for _, bp := range breakpoints {
		msg, _ := sjson.Set("", "command", "setBreakpoint")
		msg, _ = sjson.Set(msg, "file", bp.File)
		msg, _ = sjson.Set(msg, "line", bp.Line)
		if err := b.send(msg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("registering breakpoint %s:%d: %w", bp.File, bp.Line, err)
		}
	}

	go b.readLoop()
	return b, nil
}

// Events implements Backend.
func (b *WireBackend) Events() <-chan Event {
	return b.events
}

// Resume implements Backend: it releases the given suspend handle at the
// requested priority.
func (b *WireBackend) Resume(ctx context.Context, h SuspendHandle, p Priority) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, _ := sjson.Set("", "command", "resume")
	msg, _ = sjson.Set(msg, "frame", h.ID)
	msg, _ = sjson.Set(msg, "priority", p.String())
	return b.send(msg)
}

// Close tears down the connection; the read loop then closes the event
// channel. Safe to call more than once.
func (b *WireBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.conn.Close()
	})
	return err
}

func (b *WireBackend) send(msg string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := fmt.Fprintf(b.conn, "%s\n", msg)
	return err
}

func (b *WireBackend) readLoop() {
	defer close(b.events)

	scanner := bufio.NewScanner(b.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch gjson.Get(line, "event").String() {
		case "attached":
			b.events <- Event{Kind: EventAttached}
		case "paused":
			b.events <- Event{
				Kind:   EventPaused,
				Handle: SuspendHandle{ID: gjson.Get(line, "frame").String()},
			}
		case "detached":
			b.events <- Event{Kind: EventDetached}
		default:
			b.logger.Debug("ignoring unknown debug event", slog.String("line", line))
		}
	}
}
