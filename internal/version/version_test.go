package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ReflectsLinkerVars(t *testing.T) {
	old := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = old })

	info := Get()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, GitSHA, info.GitSHA)
	assert.Equal(t, BuildTime, info.BuildTime)
}

func TestInfo_JSON(t *testing.T) {
	b, err := json.Marshal(Info{Version: "v", GitSHA: "abc", BuildTime: "now"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"v","git_sha":"abc","build_time":"now"}`, string(b))
}
