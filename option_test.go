package peerwire

import (
	"testing"
	"time"
)

func TestCheckOptions_Defaults(t *testing.T) {
	var opts options
	checkOptions(&opts)

	if opts.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", opts.bufferSize, defaultBufferSize)
	}
	if opts.maxMessageSize != defaultMaxMessageSize {
		t.Errorf("maxMessageSize = %d, want %d", opts.maxMessageSize, defaultMaxMessageSize)
	}
	if opts.idleTimeout != 0 {
		t.Errorf("idleTimeout = %v, want 0 (receive blocks indefinitely)", opts.idleTimeout)
	}
	if opts.logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestCheckOptions_CapsMessageSize(t *testing.T) {
	opts := options{maxMessageSize: MaxFrameSize * 2}
	checkOptions(&opts)
	if opts.maxMessageSize != MaxFrameSize {
		t.Errorf("maxMessageSize = %d, want hard ceiling %d", opts.maxMessageSize, MaxFrameSize)
	}
}

func TestBufferSizeOption(t *testing.T) {
	var opts options
	BufferSizeOption(64)(&opts)
	if opts.bufferSize != 64 {
		t.Errorf("bufferSize = %d, want 64", opts.bufferSize)
	}
}

func TestMaxMessageSizeOption(t *testing.T) {
	var opts options
	MaxMessageSizeOption(512)(&opts)
	if opts.maxMessageSize != 512 {
		t.Errorf("maxMessageSize = %d, want 512", opts.maxMessageSize)
	}
}

func TestIdleTimeoutOption(t *testing.T) {
	var opts options
	IdleTimeoutOption(30 * time.Second)(&opts)
	if opts.idleTimeout != 30*time.Second {
		t.Errorf("idleTimeout = %v, want 30s", opts.idleTimeout)
	}
}

func TestLoggerOption(t *testing.T) {
	logger := defaultLogger()
	var opts options
	LoggerOption(logger)(&opts)
	if opts.logger != logger {
		t.Error("logger option not applied")
	}
}

func TestReadBufSize(t *testing.T) {
	if got := readBufSize(128); got != 128 {
		t.Errorf("readBufSize(128) = %d, want 128", got)
	}
	if got := readBufSize(MaxFrameSize); got != 64<<10 {
		t.Errorf("readBufSize(MaxFrameSize) = %d, want %d", got, 64<<10)
	}
}
