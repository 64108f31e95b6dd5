package envutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nCLOCKBOARD_TEST_A=from-file\nexport CLOCKBOARD_TEST_B=\"quoted value\"\nbroken line\nCLOCKBOARD_TEST_C=file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CLOCKBOARD_TEST_C", "from-env")
	// t.Setenv restores these after the test; clear them first so the file wins.
	t.Setenv("CLOCKBOARD_TEST_A", "")
	t.Setenv("CLOCKBOARD_TEST_B", "")
	require.NoError(t, os.Unsetenv("CLOCKBOARD_TEST_A"))
	require.NoError(t, os.Unsetenv("CLOCKBOARD_TEST_B"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("CLOCKBOARD_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("CLOCKBOARD_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("CLOCKBOARD_TEST_C"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestWriteDotEnvRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, WriteDotEnv(path, map[string]string{"B": "2", "A": "has space"}, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A=\"has space\"\nB=2\n", string(data))

	assert.Error(t, WriteDotEnv(path, map[string]string{"A": "1"}, false))
	assert.NoError(t, WriteDotEnv(path, map[string]string{"A": "1"}, true))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("CLOCKBOARD_DUR", "45s")
	t.Setenv("CLOCKBOARD_BAD_DUR", "soon")
	t.Setenv("CLOCKBOARD_BOOL", "false")
	t.Setenv("CLOCKBOARD_INT", "12")

	assert.Equal(t, 45*time.Second, Duration("CLOCKBOARD_DUR", time.Minute))
	assert.Equal(t, time.Minute, Duration("CLOCKBOARD_BAD_DUR", time.Minute))
	assert.False(t, Bool("CLOCKBOARD_BOOL", true))
	assert.True(t, Bool("CLOCKBOARD_UNSET_BOOL", true))
	assert.Equal(t, 12, Int("CLOCKBOARD_INT", 1))
	assert.Equal(t, "fallback", String("CLOCKBOARD_UNSET", "fallback"))
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	values := map[string]string{
		"CLOCKBOARD_RT_PATH":  `C:\My Stores\stores.json`,
		"CLOCKBOARD_RT_HASH":  "a#b",
		"CLOCKBOARD_RT_QUOTE": `say "hi" there`,
		"CLOCKBOARD_RT_PLAIN": "stores.json",
		"CLOCKBOARD_RT_BARE":  `"quoted"`,
		"CLOCKBOARD_RT_SLASH": `C:\stores.json`,
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, WriteDotEnv(path, values, false))

	for key := range values {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	require.NoError(t, LoadDotEnv(path))

	for key, want := range values {
		assert.Equal(t, want, os.Getenv(key), key)
	}
}

func TestLoadDotEnvSingleQuotesAreLiteral(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`CLOCKBOARD_SQ='C:\raw\path'`+"\n"), 0o600))

	t.Setenv("CLOCKBOARD_SQ", "")
	require.NoError(t, os.Unsetenv("CLOCKBOARD_SQ"))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, `C:\raw\path`, os.Getenv("CLOCKBOARD_SQ"))
}
