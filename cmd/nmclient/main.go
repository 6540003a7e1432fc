package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Ciantic/fbrowserhelper/internal/logging"
	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/Ciantic/fbrowserhelper/internal/protocol/frame"
	"github.com/rs/zerolog"
)

const fakeOrigin = "chrome-extension://nmclient/"

type commandList []string

func (c *commandList) String() string     { return strings.Join(*c, " ") }
func (c *commandList) Set(v string) error { *c = append(*c, v); return nil }

func main() {
	hostPath := flag.String("host", "", "path to the native messaging host executable")
	var raw commandList
	flag.Var(&raw, "cmd", "JSON command to send; repeatable")
	flag.Parse()

	logger := logging.ConfigureRuntime(logging.DefaultConfig(logging.ProfileRuntime))
	defer logging.Close()

	if *hostPath == "" {
		fmt.Fprintln(os.Stderr, "nmclient: -host is required")
		os.Exit(2)
	}
	cmds, err := parseCommands(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nmclient: %v\n", err)
		os.Exit(2)
	}
	if err := runHost(*hostPath, cmds, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "nmclient: %v\n", err)
		os.Exit(1)
	}
}

// parseCommands validates each argument as a command and appends Stop when
// the list does not already end with one.
func parseCommands(raw []string) ([]protocol.Command, error) {
	cmds := make([]protocol.Command, 0, len(raw)+1)
	for _, r := range raw {
		cmd, err := protocol.DecodeCommand([]byte(r))
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", r, err)
		}
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 || cmds[len(cmds)-1].Tag() != protocol.TagStop {
		cmds = append(cmds, protocol.Stop{})
	}
	return cmds, nil
}

func runHost(path string, cmds []protocol.Command, out io.Writer, logger zerolog.Logger) error {
	proc := exec.Command(path, fakeOrigin)
	proc.Stderr = os.Stderr
	stdin, err := proc.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return err
	}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start host: %w", err)
	}
	logger.Info().Str("host", path).Int("pid", proc.Process.Pid).Msg("host started")

	exErr := exchange(stdin, stdout, cmds, out, logger)
	stdin.Close()
	if err := proc.Wait(); err != nil {
		return errors.Join(exErr, fmt.Errorf("host exited: %w", err))
	}
	return exErr
}

// exchange sends each command and prints its reply as one JSON line. Stop has
// no reply, so nothing is read after it.
func exchange(w io.Writer, r io.Reader, cmds []protocol.Command, out io.Writer, logger zerolog.Logger) error {
	limits := frame.DefaultLimits()
	// Replies may be up to MaxWriteBytes; read with the same bound the host
	// writes with.
	readLimits := frame.Limits{MaxReadBytes: limits.MaxWriteBytes}
	for _, cmd := range cmds {
		payload, err := protocol.EncodeCommand(cmd)
		if err != nil {
			return err
		}
		if err := frame.WriteFrame(w, payload, limits); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Tag(), err)
		}
		logger.Debug().Str("command", cmd.Tag()).Msg("sent")
		if cmd.Tag() == protocol.TagStop {
			return nil
		}

		reply, err := frame.ReadFrame(r, readLimits)
		if err != nil {
			return fmt.Errorf("read reply to %s: %w", cmd.Tag(), err)
		}
		decoded, err := protocol.DecodeReply(reply)
		if err != nil {
			return fmt.Errorf("decode reply to %s: %w", cmd.Tag(), err)
		}
		if decoded.Err != nil {
			logger.Warn().Str("command", cmd.Tag()).Str("error", string(decoded.Err.Kind)).Msg(decoded.Err.Message)
		}
		if _, err := fmt.Fprintf(out, "%s\n", reply); err != nil {
			return err
		}
	}
	return nil
}
