package host

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/Ciantic/fbrowserhelper/internal/observability"
	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/Ciantic/fbrowserhelper/internal/protocol/frame"
	"github.com/rs/zerolog"
)

var ErrEncodeReply = errors.New("host: encode reply")

// oversizedReply replaces any reply, unexpectedFailure included, that does
// not fit in an outgoing frame.
var oversizedReply, _ = protocol.EncodeError(protocol.UnexpectedFailure("reply exceeds frame size limit", nil))

// State is the session lifecycle marker.
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionConfig configures one read-dispatch-write loop.
type SessionConfig struct {
	Limits  frame.Limits
	Logger  zerolog.Logger
	Faults  FaultHandler
	Metrics *observability.SessionMetrics
}

// Session drives read -> decode -> dispatch -> encode -> write until Stop or
// a stream failure. Exactly one command is in flight at a time.
type Session struct {
	in         io.Reader
	out        *bufio.Writer
	dispatcher CommandDispatcher
	cfg        SessionConfig
	state      State
}

func NewSession(in io.Reader, out io.Writer, d CommandDispatcher, cfg SessionConfig) *Session {
	cfg.Limits = cfg.Limits.WithDefaults()
	if cfg.Faults == nil {
		cfg.Faults = LogFaults(cfg.Logger)
	}
	return &Session{
		in:         in,
		out:        bufio.NewWriter(out),
		dispatcher: d,
		cfg:        cfg,
		state:      StateRunning,
	}
}

func (s *Session) State() State {
	return s.state
}

// Run loops until the session terminates. It returns nil after Stop, the
// streamError ProtocolError after a read/write failure, and an
// ErrEncodeReply error when a reply cannot be serialised.
func (s *Session) Run() error {
	for s.state == StateRunning {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one iteration. Decode errors, command errors and recovered
// panics each produce one reply frame and leave the session running.
func (s *Session) Step() error {
	if s.state != StateRunning {
		return nil
	}

	payload, err := frame.ReadFrame(s.in, s.cfg.Limits)
	if err != nil {
		// The peer is presumed gone; nothing is written back.
		return s.terminate(protocol.StreamError(frame.Classify(err), err))
	}

	cmd, err := protocol.DecodeCommand(payload)
	if err != nil {
		s.cfg.Logger.Warn().Err(err).Int("bytes", len(payload)).Msg("decode command failed")
		return s.writeError(toProtocolError(err))
	}

	start := time.Now()
	resp, err := s.dispatch(cmd)
	s.cfg.Metrics.RecordCommand(cmd.Tag(), time.Since(start))

	if err == nil && resp == nil {
		err = protocol.UnexpectedFailure(fmt.Sprintf("no reply for %s", cmd.Tag()), nil)
	}
	if err == nil {
		s.cfg.Logger.Debug().Str("command", cmd.Tag()).Str("reply", resp.Tag()).Msg("dispatch")
		return s.writeResponse(resp)
	}

	pe := toProtocolError(err)
	if errors.Is(pe, protocol.ErrSessionStopping) {
		s.cfg.Logger.Info().Msg("stop requested")
		s.state = StateTerminated
		return nil
	}
	s.cfg.Logger.Debug().Str("command", cmd.Tag()).Str("error", string(pe.Kind)).Msg("dispatch")
	return s.writeError(pe)
}

// dispatch calls the dispatcher and converts a panic into the fault
// handler's reply.
func (s *Session) dispatch(cmd protocol.Command) (resp protocol.Response, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault := Fault{
			Command:  cmd.Tag(),
			Value:    r,
			Location: panicLocation(),
			Stack:    debug.Stack(),
		}
		s.cfg.Metrics.RecordFault()
		resp, err = nil, s.handleFault(fault)
	}()
	return s.dispatcher.Dispatch(cmd)
}

// handleFault runs the injected handler. A nil result or a panic inside the
// handler falls back to the plain unexpectedFailure for the fault.
func (s *Session) handleFault(fault Fault) (pe *protocol.ProtocolError) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Error().Str("command", fault.Command).Str("handler_panic", fmt.Sprint(r)).Msg("fault handler panicked")
			pe = protocol.UnexpectedFailure(fault.Message(), fault.Location)
		}
	}()
	pe = s.cfg.Faults.HandleFault(fault)
	if pe == nil {
		pe = protocol.UnexpectedFailure(fault.Message(), fault.Location)
	}
	return pe
}

func (s *Session) writeResponse(resp protocol.Response) error {
	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		return s.terminate(fmt.Errorf("%w: %w", ErrEncodeReply, err))
	}
	return s.write(resp.Tag(), payload)
}

func (s *Session) writeError(pe *protocol.ProtocolError) error {
	payload, err := protocol.EncodeError(pe)
	if err != nil {
		return s.terminate(fmt.Errorf("%w: %w", ErrEncodeReply, err))
	}
	return s.write(string(pe.Kind), payload)
}

func (s *Session) write(tag string, payload []byte) error {
	err := frame.WriteFrame(s.out, payload, s.cfg.Limits)
	if errors.Is(err, frame.ErrPayloadTooLarge) && !bytes.Equal(payload, oversizedReply) {
		// Nothing was written, so the stream is still in sync.
		s.cfg.Logger.Warn().Err(err).Str("reply", tag).Msg("reply too large")
		return s.write(string(protocol.KindUnexpectedFailure), oversizedReply)
	}
	if err != nil {
		return s.terminate(protocol.StreamError(frame.Classify(err), err))
	}
	s.cfg.Metrics.RecordReply(tag)
	return nil
}

func (s *Session) terminate(err error) error {
	s.state = StateTerminated
	s.cfg.Logger.Info().Err(err).Msg("session terminated")
	return err
}

// toProtocolError keeps ProtocolErrors as they are and reports anything
// else as an unexpected failure.
func toProtocolError(err error) *protocol.ProtocolError {
	if pe, ok := protocol.AsProtocolError(err); ok {
		return pe
	}
	return &protocol.ProtocolError{Kind: protocol.KindUnexpectedFailure, Message: err.Error(), Cause: err}
}
