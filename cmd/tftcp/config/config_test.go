package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m := config.GetDefault().Map()
	assert.Equal(t, 6969, m["port"])
	assert.Equal(t, 10, m["pool_size"])
	assert.Equal(t, "server_files", m["storage_root"])
	assert.Equal(t, "received_", m["received_prefix"])
	assert.Equal(t, config.StyleRich, m["tui_style"])
}

func TestYaml(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(string(config.GetDefault().Yaml())), "\n")
	assert.Len(t, lines, len(config.GetDefault().Map()))
	assert.Contains(t, lines, "port: 6969")
	assert.Contains(t, lines, "chunk_size: 1024")
	assert.IsIncreasing(t, lines)
}

func TestInitIn(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := filepath.Join(t.TempDir(), "tftcp")
	require.NoError(t, config.InitIn(dir))

	_, err := os.Stat(filepath.Join(dir, "config.yml"))
	assert.NoError(t, err)
	assert.Equal(t, 6969, viper.GetInt("port"))
	assert.True(t, config.IsDefault("storage_root"))

	viper.Set("storage_root", "elsewhere")
	assert.False(t, config.IsDefault("storage_root"))
}
