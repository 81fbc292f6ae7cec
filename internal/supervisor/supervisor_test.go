package supervisor_test

import (
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/aledsdavies/pipex/internal/supervisor"
	"github.com/stretchr/testify/require"
)

func TestWaitReturnsExitCode(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	sup, err := supervisor.Start(cmd, true)
	require.NoError(t, err)

	st, err := sup.Wait()
	require.NoError(t, err)
	require.Equal(t, 7, st.Code)
}

func TestTryWaitDoesNotBlock(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 0.2")
	sup, err := supervisor.Start(cmd, true)
	require.NoError(t, err)

	_, ok, err := sup.TryWait()
	require.NoError(t, err)
	require.False(t, ok)

	st, err := sup.Wait()
	require.NoError(t, err)
	require.Equal(t, 0, st.Code)

	st2, ok, err := sup.TryWait()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, st, st2)
}

// TestConcurrentWaitTryWait exercises the race between a blocking Wait
// and a concurrent stream of TryWait polls: while Wait is in flight,
// the polls must still observe the child's exit within the deadline.
func TestConcurrentWaitTryWait(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 0.05")
	sup, err := supervisor.Start(cmd, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	seenExited := false
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = sup.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if _, ok, _ := sup.TryWait(); ok {
				mu.Lock()
				seenExited = true
				mu.Unlock()
				return
			}
		}
	}()

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.True(t, seenExited)
}

func TestKillIsIdempotent(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 5")
	sup, err := supervisor.Start(cmd, true)
	require.NoError(t, err)

	require.NoError(t, sup.Kill())
	require.NoError(t, sup.Kill())

	st, err := sup.Wait()
	require.NoError(t, err)
	require.NotEqual(t, 0, st.Code)
}

func TestKillReturnsInBoundedTime(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30")
	sup, err := supervisor.Start(cmd, true)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- sup.Kill() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Kill did not return in bounded time")
	}
}

// TestKillWithoutProcessGroupSignalsDirectly covers newProcessGroup=false:
// the child was never placed in its own group, so Kill must still
// terminate it (by signaling its pid directly) without touching the
// group it shares with the test process.
func TestKillWithoutProcessGroupSignalsDirectly(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30")
	sup, err := supervisor.Start(cmd, false)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- sup.Kill() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Kill did not return in bounded time")
	}

	st, err := sup.Wait()
	require.NoError(t, err)
	require.NotEqual(t, 0, st.Code)
}
