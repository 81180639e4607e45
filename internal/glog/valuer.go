package glog

import (
	"fmt"
	"log/slog"
)

// Hex wraps a byte slice to ensure it serializes as an upper case hex string,
// the way chain binaries print transaction hashes.
// Without this, it gets rendered as a Unicode string with embedded escape codes.
type Hex []byte

func (v Hex) LogValue() slog.Value {
	return slog.StringValue(fmt.Sprintf("%X", []byte(v)))
}
