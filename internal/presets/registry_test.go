package presets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePresets = `
presets:
  income_core:
    description: conservative income selling
    version: 2
    criteria:
      - type: delta
        weight: 1.0
        params:
          min: 0.2
          max: 0.6
      - type: volatility
        weight: 0.7
        params:
          max_volatility: 0.4
  wide_net:
    criteria:
      - type: delta
        params:
          min: 0.15
          max: 0.85
`

func writePresets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "criteria_presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryLoadsProfiles(t *testing.T) {
	r, err := NewRegistry(writePresets(t, samplePresets))
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Len(t, snap.Profiles, 2)

	p, ok := r.Profile("income_core")
	require.True(t, ok)
	assert.Equal(t, 2, p.Version)
	assert.Len(t, p.Criteria, 2)

	p, ok = r.Profile("wide_net")
	require.True(t, ok)
	assert.Equal(t, 1, p.Version, "缺省版本归一为 1")
}

func TestRegistryManagerResolution(t *testing.T) {
	r, err := NewRegistry(writePresets(t, samplePresets))
	require.NoError(t, err)

	mgr, err := r.Manager("income_core")
	require.NoError(t, err)
	assert.Len(t, mgr.Criteria(), 2)

	// 文件未定义时回退到内置档案
	mgr, err = r.Manager("conservative")
	require.NoError(t, err)
	assert.NotEmpty(t, mgr.Criteria())

	_, err = r.Manager("does_not_exist")
	assert.Error(t, err)
}

func TestRegistryRejectsBadProfiles(t *testing.T) {
	_, err := NewRegistry(writePresets(t, `
presets:
  broken:
    criteria:
      - type: hyperdrive
`))
	assert.Error(t, err, "未知类型标签在加载期报错")

	_, err = NewRegistry(writePresets(t, `
presets:
  empty:
    criteria: []
`))
	assert.Error(t, err, "空条件列表不过 schema")

	_, err = NewRegistry(writePresets(t, `
presets:
  weightless:
    criteria:
      - type: delta
        weight: -1
        params: {min: 0.2, max: 0.6}
`))
	assert.Error(t, err)
}

func TestRegistryWithoutFile(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)
	assert.Contains(t, r.Names(), "conservative")

	mgr, err := r.Manager("delta_only")
	require.NoError(t, err)
	assert.Len(t, mgr.Criteria(), 1)
}

func TestRegistryReloadNotifiesListeners(t *testing.T) {
	path := writePresets(t, samplePresets)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	updates := make(chan Snapshot, 1)
	r.OnChange(func(s Snapshot) { updates <- s })

	updated := `
presets:
  income_core:
    description: loosened after review
    version: 3
    criteria:
      - type: delta
        weight: 1.0
        params:
          min: 0.25
          max: 0.7
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, r.Reload())

	select {
	case snap := <-updates:
		p, ok := snap.Profiles["income_core"]
		require.True(t, ok)
		assert.Equal(t, 3, p.Version)
		assert.NotContains(t, snap.Profiles, "wide_net")
	case <-time.After(2 * time.Second):
		t.Fatal("no reload notification received")
	}

	// 新档案立即可构建
	mgr, err := r.Manager("income_core")
	require.NoError(t, err)
	assert.Len(t, mgr.Criteria(), 1)
}

func TestRegistryReloadKeepsSnapshotOnError(t *testing.T) {
	path := writePresets(t, samplePresets)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  income_core:
    criteria:
      - type: hyperdrive
`), 0o644))
	require.Error(t, r.Reload())

	// 旧快照不受污染
	p, ok := r.Profile("income_core")
	require.True(t, ok)
	assert.Equal(t, 2, p.Version)
}
