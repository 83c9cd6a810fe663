package os_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tlos "github.com/tonlight/tonlight/libs/os"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "blocks.json")

	require.NoError(t, tlos.EnsureDir(filepath.Dir(path), 0700))
	require.False(t, tlos.FileExists(path))

	require.NoError(t, tlos.WriteFileAtomic(path, []byte("first"), 0600))
	require.NoError(t, tlos.WriteFileAtomic(path, []byte("second"), 0600))
	require.True(t, tlos.FileExists(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), data)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")
}

func TestTrapSignal(t *testing.T) {
	if os.Getenv("TRAP_SIGNAL_TEST") == "1" {
		t.Log("inside test process")
		killer()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run="+t.Name())
	mockStderr := bytes.NewBufferString("")
	cmd.Env = append(os.Environ(), "TRAP_SIGNAL_TEST=1")
	cmd.Stderr = mockStderr

	err := cmd.Run()
	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		want := int(syscall.SIGTERM) + 128
		if e.ExitCode() != want {
			t.Fatalf("wrong exit code, want %d, got %d", want, e.ExitCode())
		}
		return
	}

	t.Fatal("this error should not be triggered")
}

type mockLogger struct{}

func (ml mockLogger) Info(msg string, keyvals ...interface{}) {}

func killer() {
	tlos.TrapSignal(mockLogger{}, nil)
	time.Sleep(1 * time.Second)

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		panic(err)
	}
	time.Sleep(1 * time.Second)
}
