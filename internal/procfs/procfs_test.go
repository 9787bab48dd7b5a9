package procfs_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakegolliher/nfs-gaze/internal/procfs"
)

func TestOpen(t *testing.T) {
	rc, err := procfs.Open("testdata/mountstats")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(content), "filer01:/vol/home")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := procfs.Open("testdata/no-such-file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening mountstats file")
}

func TestRead(t *testing.T) {
	content, err := procfs.Read("testdata/mountstats")
	require.NoError(t, err)
	assert.Contains(t, string(content), "per-op statistics")
}

func TestReadMissingFile(t *testing.T) {
	_, err := procfs.Read("testdata/no-such-file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading mountstats file")
}
