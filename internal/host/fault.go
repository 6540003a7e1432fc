package host

import (
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/rs/zerolog"
)

// maxFaultMessage bounds the panic text sent to the peer so the reply always
// fits in a frame.
const maxFaultMessage = 4 << 10

// Fault is one panic recovered during dispatch.
type Fault struct {
	Command  string
	Value    any
	Location *protocol.SourceLocation
	Stack    []byte
}

// Message renders the panic value the way it is reported to the peer,
// truncated to maxFaultMessage bytes.
func (f Fault) Message() string {
	var msg string
	switch v := f.Value.(type) {
	case error:
		msg = "panic: " + v.Error()
	case string:
		msg = "panic: " + v
	default:
		msg = fmt.Sprintf("panic: %v", v)
	}
	return truncate(msg, maxFaultMessage)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "..."
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

// FaultHandler converts a recovered panic into the unexpectedFailure reply.
// It is injected into the session; there is no process-wide hook.
type FaultHandler interface {
	HandleFault(f Fault) *protocol.ProtocolError
}

type FaultHandlerFunc func(f Fault) *protocol.ProtocolError

func (fn FaultHandlerFunc) HandleFault(f Fault) *protocol.ProtocolError {
	return fn(f)
}

// LogFaults logs the fault with its stack and reports it as unexpectedFailure.
func LogFaults(logger zerolog.Logger) FaultHandler {
	return FaultHandlerFunc(func(f Fault) *protocol.ProtocolError {
		ev := logger.Error().Str("command", f.Command).Bytes("stack", f.Stack)
		if f.Location != nil {
			ev = ev.Str("file", f.Location.File).Int("line", f.Location.Line)
		}
		ev.Msg(f.Message())
		return protocol.UnexpectedFailure(f.Message(), f.Location)
	})
}

// panicLocation finds the frame that raised the current panic. It must be
// called from the deferred function that recovers it.
func panicLocation() *protocol.SourceLocation {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	inPanic := false
	for {
		f, more := frames.Next()
		if f.Function == "runtime.gopanic" {
			inPanic = true
		} else if inPanic && !strings.HasPrefix(f.Function, "runtime.") {
			return &protocol.SourceLocation{File: f.File, Line: f.Line}
		}
		if !more {
			return nil
		}
	}
}
