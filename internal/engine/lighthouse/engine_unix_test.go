//go:build !windows

package lighthouse

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// hangingLighthouse starts a "browser" in its own session, the way
// chrome-launcher does, and stops it only from its SIGINT handler.
const hangingLighthouse = `#!/bin/sh
for arg in "$@"; do
  case "$arg" in
    --output-path=*) base="${arg#--output-path=}" ;;
  esac
done
setsid sh -c 'exec sleep 300' >/dev/null 2>&1 </dev/null &
chrome=$!
trap 'kill "$chrome"; wait "$chrome"; exit 130' INT
echo "$chrome" > "$base.chrome.pid"
sleep 30 >/dev/null 2>&1 </dev/null &
wait $!
`

func TestEngineAuditTimeoutStopsDetachedBrowser(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}

	engine := New(Config{Binary: writeScript(t, hangingLighthouse)}, nil)
	req := request(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := engine.Audit(ctx, req)
	require.Error(t, err)

	raw, err := os.ReadFile(req.OutputBase + ".chrome.pid")
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = syscall.Kill(pid, syscall.SIGKILL) })

	require.Eventually(t, func() bool {
		return errors.Is(syscall.Kill(pid, 0), syscall.ESRCH)
	}, 3*time.Second, 50*time.Millisecond, "browser %d still running after timeout", pid)
}
