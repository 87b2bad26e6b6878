package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAppend_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "app.log")

	f, err := OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create the parent directory")

	if runtime.GOOS != "windows" {
		fi, err = os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
	}
}

func TestOpenAppend_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	for _, line := range []string{"one\n", "two\n"} {
		f, err := OpenAppend(path)
		require.NoError(t, err)
		_, err = f.WriteString(line)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(b))
}

func TestOpenAppend_FailsIfParentIsAFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "logs")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o660))

	_, err := OpenAppend(filepath.Join(blocker, "app.log"))
	require.Error(t, err, "should fail when a file sits where the directory should be")
}
