package hilserial

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the configuration for a serial device and the line transport
// layered on top of it.
type Config struct {
	// Device settings.
	BaudRate          int
	DataBits          int
	StopBits          int
	Parity            Parity
	FlowControl       FlowControl
	ReadTimeoutTenths int // VTIME setting in tenths of seconds (0-255)

	// Transport settings.
	EOL          string        // line terminator recognized on RX and appended on TX
	Echo         bool          // log transmitted lines
	InboundSize  int           // inbound line queue capacity
	OutboundSize int           // outbound line queue capacity
	JoinTimeout  time.Duration // bound on worker join during Close
	Logger       *zap.Logger
}

// Option is a functional option for configuring a serial transport
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:          115200,
		DataBits:          8,
		StopBits:          1,
		Parity:            ParityNone,
		FlowControl:       FlowControlNone,
		ReadTimeoutTenths: 2, // 200ms hardware read timeout
		EOL:               "\n",
		Echo:              false,
		InboundSize:       128,
		OutboundSize:      16,
		JoinTimeout:       3 * time.Second,
		Logger:            zap.NewNop(),
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		c.FlowControl = fc
		return nil
	}
}

// WithReadTimeout sets the hardware read timeout in tenths of seconds (VTIME).
// The reader worker wakes up at this cadence to notice a stopping session.
func WithReadTimeout(tenths int) Option {
	return func(c *Config) error {
		if tenths < 0 || tenths > 255 {
			return ErrInvalidConfig
		}
		c.ReadTimeoutTenths = tenths
		return nil
	}
}

// WithEOL sets the line terminator
func WithEOL(eol string) Option {
	return func(c *Config) error {
		if eol == "" {
			return ErrInvalidConfig
		}
		c.EOL = eol
		return nil
	}
}

// WithEcho enables logging of transmitted lines
func WithEcho(echo bool) Option {
	return func(c *Config) error {
		c.Echo = echo
		return nil
	}
}

// WithQueueSizes sets the inbound and outbound queue capacities
func WithQueueSizes(inbound, outbound int) Option {
	return func(c *Config) error {
		if inbound < 1 || outbound < 1 {
			return ErrInvalidConfig
		}
		c.InboundSize = inbound
		c.OutboundSize = outbound
		return nil
	}
}

// WithJoinTimeout bounds how long Close waits for the worker goroutines
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.JoinTimeout = d
		return nil
	}
}

// WithLogger sets the structured logger used by the transport
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.Logger = logger
		return nil
	}
}
