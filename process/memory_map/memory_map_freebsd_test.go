//go:build freebsd

package memory_map

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeBSDMemoryMapProcRoot(t *testing.T) {
	root := t.TempDir()
	mm := &FreeBSDMemoryMap{ProcRoot: root}

	_, err := mm.ReadMemoryMap(7)
	assert.ErrorIs(t, err, ErrUnsupported)

	require.NoError(t, os.Mkdir(filepath.Join(root, "curproc"), 0o755))
	_, err = mm.ReadMemoryMap(7)
	assert.ErrorIs(t, err, ErrNotFound)

	listing := "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH -1\n"
	require.NoError(t, os.Mkdir(filepath.Join(root, "7"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "7", "map"), []byte(listing), 0o644))

	memoryMap, err := mm.ReadMemoryMap(7)
	require.NoError(t, err)
	require.Len(t, memoryMap, 1)
	assert.Equal(t, "/bin/cat", memoryMap[0].Filename)
}
