package shared

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() { getRuntime, startCommand = origRuntime, origStart })

	t.Run("Linux Uses xdg-open", func(t *testing.T) {
		var got *exec.Cmd
		getRuntime = func() string { return "linux" }
		startCommand = func(cmd *exec.Cmd) error { got = cmd; return nil }

		if err := OpenBrowser("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || !strings.HasSuffix(got.Path, "xdg-open") && got.Args[0] != "xdg-open" {
			t.Errorf("expected xdg-open, got %v", got)
		}
	})

	t.Run("Unsupported Platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})

	t.Run("OpenOrPrint Falls Back To Writer", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		startCommand = func(cmd *exec.Cmd) error { return errors.New("no display") }

		var buf bytes.Buffer
		OpenOrPrint("https://example.com/login", &buf)
		if !strings.Contains(buf.String(), "https://example.com/login") {
			t.Errorf("expected URL in output, got %q", buf.String())
		}
	})
}
