package printer

import (
	"errors"
	"fmt"
	"log"
	"net"
	"syscall"
	"time"
)

var (
	ErrConnectTimeout    = errors.New("connection timed out")
	ErrConnectionRefused = errors.New("connection refused")
	ErrSocket            = errors.New("socket error")
	ErrEmptyPayload      = errors.New("zpl content cannot be empty")
	ErrPayloadTooLarge   = errors.New("zpl content exceeds maximum size")
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 100")
)

const (
	MaxCopies       = 100
	maxPayloadBytes = 100000

	// DefaultSettleDelay is how long a connection stays open after the
	// payload is written. Some firmware drops buffered data when the
	// peer closes immediately after the last byte.
	DefaultSettleDelay = 500 * time.Millisecond

	defaultDialTimeout = 10 * time.Second
)

// Transport sends rendered ZPL to printers over raw TCP. Each copy
// gets its own connection so one stalled copy cannot corrupt the next.
type Transport struct {
	registry    *Registry
	dialTimeout time.Duration
	settleDelay time.Duration
}

func NewTransport(registry *Registry, dialTimeout, settleDelay time.Duration) *Transport {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	if settleDelay < 0 {
		settleDelay = DefaultSettleDelay
	}
	return &Transport{
		registry:    registry,
		dialTimeout: dialTimeout,
		settleDelay: settleDelay,
	}
}

// Send transmits zpl to the printer quantity times, sequentially. The
// first failed copy aborts the remainder.
func (t *Transport) Send(printerID, zpl string, quantity int) error {
	if len(zpl) == 0 {
		return ErrEmptyPayload
	}
	if len(zpl) > maxPayloadBytes {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(zpl))
	}
	if quantity < 1 || quantity > MaxCopies {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	p, err := t.registry.Get(printerID)
	if err != nil {
		return err
	}
	if !p.Enabled {
		return fmt.Errorf("%w: %s", ErrPrinterDisabled, printerID)
	}

	for copyNum := 1; copyNum <= quantity; copyNum++ {
		if err := t.sendOne(p, zpl); err != nil {
			return fmt.Errorf("copy %d/%d to %s: %w", copyNum, quantity, p.Address(), err)
		}
		log.Printf("[transport] sent copy %d/%d to %s (%d bytes)", copyNum, quantity, p.Address(), len(zpl))
	}

	return nil
}

func (t *Transport) sendOne(p *Printer, zpl string) error {
	conn, err := net.DialTimeout("tcp", p.Address(), t.dialTimeout)
	if err != nil {
		return classifyNetError(err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(t.dialTimeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrSocket, err)
	}

	if _, err := conn.Write([]byte(zpl)); err != nil {
		return classifyNetError(err)
	}

	// Let the printer drain its receive buffer before the half-close.
	if t.settleDelay > 0 {
		time.Sleep(t.settleDelay)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			log.Printf("[transport] close-write to %s failed: %v", p.Address(), err)
		}
	}

	return nil
}

// TestConnection dials the printer without sending a payload. A
// successful dial is treated as reachable.
func (t *Transport) TestConnection(printerID string, timeout time.Duration) error {
	p, err := t.registry.Get(printerID)
	if err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = t.dialTimeout
	}

	conn, err := net.DialTimeout("tcp", p.Address(), timeout)
	if err != nil {
		return classifyNetError(err)
	}
	return conn.Close()
}

// classifyNetError maps raw network failures onto the transport's
// sentinel errors so callers can branch with errors.Is.
func classifyNetError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}
	return fmt.Errorf("%w: %v", ErrSocket, err)
}
