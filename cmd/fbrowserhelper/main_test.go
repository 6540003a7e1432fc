package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/Ciantic/fbrowserhelper/internal/protocol/frame"
	"github.com/Ciantic/fbrowserhelper/internal/testutil/testlog"
)

func commandFrames(t *testing.T, cmds ...protocol.Command) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, c := range cmds {
		payload, err := protocol.EncodeCommand(c)
		if err != nil {
			t.Fatalf("encode %s: %v", c.Tag(), err)
		}
		if err := frame.WriteFrame(&buf, payload, frame.DefaultLimits()); err != nil {
			t.Fatalf("frame %s: %v", c.Tag(), err)
		}
	}
	return &buf
}

func TestParseOptionsChromeLaunch(t *testing.T) {
	testlog.Start(t)
	opts, err := parseOptions([]string{"chrome-extension://abc/", "--parent-window=1234"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(opts.launch) != 1 || opts.launch[0] != "chrome-extension://abc/" {
		t.Fatalf("unexpected launch args %v", opts.launch)
	}
	if opts.parentWindow != "1234" {
		t.Fatalf("unexpected parent window %q", opts.parentWindow)
	}
}

func TestParseOptionsFirefoxLaunch(t *testing.T) {
	testlog.Start(t)
	opts, err := parseOptions([]string{`C:\hosts\native_manifest.json`, "f_browser_helper_ext@oksidi.com"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(opts.launch) != 2 || opts.parentWindow != "" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestRunWriteConfig(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "fbrowserhelper.toml")
	var stderr bytes.Buffer
	if code := run([]string{"-config", path, "-write-config"}, nil, io.Discard, &stderr); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if code := run([]string{"-config", path, "-write-config"}, nil, io.Discard, &stderr); code != 1 {
		t.Fatalf("expected refusal to overwrite, exit=%d", code)
	}
	if code := run([]string{"-config", path, "-write-config", "-force"}, nil, io.Discard, &stderr); code != 0 {
		t.Fatalf("forced overwrite exit=%d", code)
	}
}

func TestRunSessionStop(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	textfile := filepath.Join(dir, "fbrowserhelper.prom")
	cfgPath := filepath.Join(dir, "fbrowserhelper.toml")
	cfg := "[metrics]\ntextfile = \"" + filepath.ToSlash(textfile) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	in := commandFrames(t, protocol.SetWindowIcon{WindowHandle: 1, IconSourceURL: "nope"}, protocol.Stop{})
	var out bytes.Buffer
	code := run([]string{"-config", cfgPath, "chrome-extension://abc/"}, in, &out, io.Discard)
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}

	reply, err := frame.ReadFrame(&out, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply) != `{"type":"malformedUrl","message":"Invalid favicon URL"}` {
		t.Fatalf("unexpected reply %s", reply)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected trailing output %q", out.Bytes())
	}

	prom, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `fbrowserhelper_session_commands_total{command="stop"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", prom)
	}
}

func TestRunSessionEOFExitsCleanly(t *testing.T) {
	testlog.Start(t)
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	var out bytes.Buffer
	if code := run([]string{"-config", cfgPath, "chrome-extension://abc/"}, bytes.NewReader(nil), &out, io.Discard); code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.Bytes())
	}
}

func TestRunWithoutActionIsUsageError(t *testing.T) {
	testlog.Start(t)
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	if code := run([]string{"-config", cfgPath}, nil, io.Discard, io.Discard); code != 2 {
		t.Fatalf("exit=%d", code)
	}
}

func TestRunInstallUnknownBrowser(t *testing.T) {
	testlog.Start(t)
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	if code := run([]string{"-config", cfgPath, "-install", "netscape"}, nil, io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit=%d", code)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	testlog.Start(t)
	cfgPath := filepath.Join(t.TempDir(), "fbrowserhelper.toml")
	if err := os.WriteFile(cfgPath, []byte("host_name = \"Bad Name\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if code := run([]string{"-config", cfgPath, "chrome-extension://abc/"}, nil, io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit=%d", code)
	}
}
