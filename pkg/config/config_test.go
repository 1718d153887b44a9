package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "livetable", config.Server.Name)
	assert.Equal(t, 100*time.Millisecond, config.Server.TickInterval)
	assert.Equal(t, 5*time.Second, config.Server.ShutdownTimeout)

	assert.False(t, config.Table.UseTieredVector)
	assert.True(t, config.Table.UseStringInterning)
	assert.Equal(t, 10000, config.Table.TieredVectorThreshold)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)

	assert.Equal(t, ",", config.Adapter.CSV.Delimiter)
	assert.Equal(t, "Sheet1", config.Adapter.XLSX.SheetName)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	config, err := LoadConfig("")

	assert.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "livetable", config.Server.Name)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("non_existent_config.json")

	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "配置文件不存在")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	err := os.WriteFile(configPath, []byte("{invalid json"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)

	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "解析配置文件失败")
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	configData := map[string]interface{}{
		"log": map[string]interface{}{
			"level": "verbose",
		},
	}

	jsonData, _ := json.Marshal(configData)
	err := os.WriteFile(configPath, jsonData, 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)

	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "无效的日志级别")
}

func TestLoadConfig_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	configData := map[string]interface{}{
		"server": map[string]interface{}{
			"name": "custom-table",
		},
		"table": map[string]interface{}{
			"use_tiered_vector": true,
		},
	}

	jsonData, _ := json.Marshal(configData)
	err := os.WriteFile(configPath, jsonData, 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)

	require.NoError(t, err)
	assert.Equal(t, "custom-table", config.Server.Name)
	assert.True(t, config.Table.UseTieredVector)
	// 其他字段应该使用默认值
	assert.Equal(t, "0.1.0", config.Server.Version)
}

func TestLoadConfigOrDefault_WithEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	configData := map[string]interface{}{
		"server": map[string]interface{}{
			"name": "from-env",
		},
	}

	jsonData, _ := json.Marshal(configData)
	err := os.WriteFile(configPath, jsonData, 0644)
	require.NoError(t, err)

	oldEnv := os.Getenv("LIVETABLE_CONFIG")
	t.Cleanup(func() {
		os.Setenv("LIVETABLE_CONFIG", oldEnv)
	})
	os.Setenv("LIVETABLE_CONFIG", configPath)

	config := LoadConfigOrDefault()

	assert.NotNil(t, config)
	assert.Equal(t, "from-env", config.Server.Name)
}

func TestLoadConfigOrDefault_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	t.Cleanup(func() {
		os.Chdir(oldWd)
	})

	config := LoadConfigOrDefault()

	assert.NotNil(t, config)
	assert.Equal(t, "livetable", config.Server.Name)
}

func TestConfigStructTags(t *testing.T) {
	config := DefaultConfig()

	jsonData, err := json.Marshal(config)
	assert.NoError(t, err)
	assert.NotEmpty(t, jsonData)

	var parsedConfig Config
	err = json.Unmarshal(jsonData, &parsedConfig)
	assert.NoError(t, err)
	assert.Equal(t, config.Server.Name, parsedConfig.Server.Name)
	assert.Equal(t, config.Table.UseStringInterning, parsedConfig.Table.UseStringInterning)
}
