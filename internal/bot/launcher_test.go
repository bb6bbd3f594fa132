package bot

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

// writeScript writes a small shell script the "interpreter" sh will run,
// standing in for a Python bot module.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.sh")
	if err := os.WriteFile(path, []byte(body), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecLauncherCapturesExitCode(t *testing.T) {
	requireUnix(t)
	spec := Spec{Name: "fx", Python: "sh", Script: writeScript(t, "exit 7\n")}
	var out bytes.Buffer
	h, err := (ExecLauncher{}).Start(spec, nil, &out, &out)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := h.Wait()
	if st.Code != 7 {
		t.Fatalf("exit code = %d, want 7", st.Code)
	}
	// Wait is idempotent.
	if again := h.Wait(); again.Code != 7 {
		t.Fatalf("cached exit code = %d, want 7", again.Code)
	}
	if h.Alive() {
		t.Fatal("handle reports alive after exit")
	}
}

func TestExecLauncherPassesEnvironAndStdout(t *testing.T) {
	requireUnix(t)
	spec := Spec{Name: "fx", Python: "sh", Script: writeScript(t, "echo symbols=$SYMBOLS\n")}
	var out bytes.Buffer
	h, err := (ExecLauncher{}).Start(spec, []string{"PATH=" + os.Getenv("PATH"), "SYMBOLS=XAUUSD"}, &out, &out)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if st := h.Wait(); st.Code != 0 {
		t.Fatalf("exit: %+v", st)
	}
	if !strings.Contains(out.String(), "symbols=XAUUSD") {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestExecLauncherTerminate(t *testing.T) {
	requireUnix(t)
	spec := Spec{Name: "fx", Python: "sh", Script: writeScript(t, "sleep 30\n")}
	h, err := (ExecLauncher{}).Start(spec, nil, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !h.Alive() {
		t.Fatal("child should be alive")
	}
	if err := h.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	done := make(chan ExitStatus, 1)
	go func() { done <- h.Wait() }()
	select {
	case st := <-done:
		if st.Code == 0 {
			t.Fatalf("terminated child reported success: %+v", st)
		}
	case <-time.After(5 * time.Second):
		_ = h.Kill()
		t.Fatal("child did not exit after SIGTERM")
	}
}
