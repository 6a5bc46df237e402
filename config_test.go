package hilserial

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}
	if config.EOL != "\n" {
		t.Errorf("Expected EOL %q, got %q", "\n", config.EOL)
	}
	if config.InboundSize != 128 {
		t.Errorf("Expected InboundSize 128, got %d", config.InboundSize)
	}
	if config.OutboundSize != 16 {
		t.Errorf("Expected OutboundSize 16, got %d", config.OutboundSize)
	}
	if config.JoinTimeout != 3*time.Second {
		t.Errorf("Expected JoinTimeout 3s, got %v", config.JoinTimeout)
	}
	if config.Logger == nil {
		t.Error("Expected a non-nil default logger")
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		tenths  int
		wantErr bool
	}{
		{"0 (non-blocking)", 0, false},
		{"2 (200ms)", 2, false},
		{"255 (max)", 255, false},
		{"256 (exceeds max)", 256, true},
		{"-1 (negative)", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.tenths)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%d) error = %v, wantErr %v", tt.tenths, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeoutTenths != tt.tenths {
				t.Errorf("ReadTimeoutTenths = %d, want %d", config.ReadTimeoutTenths, tt.tenths)
			}
		})
	}
}

func TestWithEOL(t *testing.T) {
	tests := []struct {
		name    string
		eol     string
		wantErr bool
	}{
		{"newline", "\n", false},
		{"carriage return", "\r", false},
		{"crlf", "\r\n", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithEOL(tt.eol)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithEOL(%q) error = %v, wantErr %v", tt.eol, err, tt.wantErr)
			}
			if err == nil && config.EOL != tt.eol {
				t.Errorf("EOL = %q, want %q", config.EOL, tt.eol)
			}
		})
	}
}

func TestWithQueueSizes(t *testing.T) {
	config := DefaultConfig()

	if err := WithQueueSizes(32, 8)(&config); err != nil {
		t.Fatalf("WithQueueSizes failed: %v", err)
	}
	if config.InboundSize != 32 || config.OutboundSize != 8 {
		t.Errorf("Queue sizes = (%d, %d), want (32, 8)", config.InboundSize, config.OutboundSize)
	}

	if err := WithQueueSizes(0, 8)(&config); err == nil {
		t.Error("Expected error for zero inbound capacity")
	}
	if err := WithQueueSizes(32, 0)(&config); err == nil {
		t.Error("Expected error for zero outbound capacity")
	}
}

func TestWithBaudRate(t *testing.T) {
	config := DefaultConfig()

	if err := WithBaudRate(9600)(&config); err != nil {
		t.Errorf("WithBaudRate(9600) failed: %v", err)
	}
	if config.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", config.BaudRate)
	}

	if err := WithBaudRate(12345)(&config); err != ErrInvalidBaudRate {
		t.Errorf("WithBaudRate(12345) error = %v, want ErrInvalidBaudRate", err)
	}
}

func TestWithLogger(t *testing.T) {
	config := DefaultConfig()
	if err := WithLogger(nil)(&config); err == nil {
		t.Error("Expected error for nil logger")
	}
}
