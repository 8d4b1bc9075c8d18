package headless

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
	"github.com/JakeFAU/lighthouse-auditor/internal/engine/lighthouse"
)

func TestNewRequiresCLI(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("expected error without lighthouse engine")
	}
	engine, err := New(Config{}, lighthouse.New(lighthouse.Config{}, nil), nil)
	require.NoError(t, err)
	require.Equal(t, defaultStartupTimeout, engine.cfg.StartupTimeout)
}

func TestFreePort(t *testing.T) {
	t.Parallel()

	port, err := freePort()
	require.NoError(t, err)
	require.Greater(t, port, 0)
	require.LessOrEqual(t, port, 65535)
}

func TestAllocatorOptionsIncludeProfile(t *testing.T) {
	t.Parallel()

	engine, err := New(Config{ChromePath: "/opt/chrome"}, lighthouse.New(lighthouse.Config{}, nil), nil)
	require.NoError(t, err)

	base := len(engine.allocatorOptions(9222, audit.DeviceProfile{}))
	withSize := len(engine.allocatorOptions(9222, audit.Desktop))
	require.Equal(t, base+1, withSize)
}

func TestAuditFailsWhenChromeCannotStart(t *testing.T) {
	t.Parallel()

	engine, err := New(
		Config{ChromePath: filepath.Join(t.TempDir(), "no-chrome"), StartupTimeout: 5 * time.Second},
		lighthouse.New(lighthouse.Config{}, nil),
		nil,
	)
	require.NoError(t, err)

	_, err = engine.Audit(context.Background(), audit.EngineRequest{URL: "https://example1.com", Profile: audit.Mobile})
	require.Error(t, err)
	require.Contains(t, err.Error(), "start chrome")
}
