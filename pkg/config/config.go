package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config 引擎配置
type Config struct {
	Server  ServerConfig  `json:"server"`
	Table   TableConfig   `json:"table"`
	Log     LogConfig     `json:"log"`
	Adapter AdapterConfig `json:"adapter"`
}

// ServerConfig MCP宿主绑定配置
type ServerConfig struct {
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	TickInterval    time.Duration `json:"tick_interval"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// TableConfig 每张表的默认存储选项
type TableConfig struct {
	UseTieredVector    bool `json:"use_tiered_vector"`
	UseStringInterning bool `json:"use_string_interning"`
	// TieredVectorThreshold 是序列长度超过该值时才切换为分层向量的建议阈值；
	// 调用方在 Options.UseTieredVector 为 false 时可据此自行决定是否升级。
	TieredVectorThreshold int `json:"tiered_vector_threshold"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or text
}

// AdapterConfig 边界适配器默认选项
type AdapterConfig struct {
	CSV  CSVConfig  `json:"csv"`
	XLSX XLSXConfig `json:"xlsx"`
}

// CSVConfig CSV 导入导出选项
type CSVConfig struct {
	Delimiter   string `json:"delimiter"`
	NullLiteral string `json:"null_literal"`
	DateLayout  string `json:"date_layout"`
}

// XLSXConfig XLSX 导出选项
type XLSXConfig struct {
	SheetName string `json:"sheet_name"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "livetable",
			Version:         "0.1.0",
			TickInterval:    100 * time.Millisecond,
			ShutdownTimeout: 5 * time.Second,
		},
		Table: TableConfig{
			UseTieredVector:       false,
			UseStringInterning:    true,
			TieredVectorThreshold: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Adapter: AdapterConfig{
			CSV: CSVConfig{
				Delimiter:   ",",
				NullLiteral: "",
				DateLayout:  "2006-01-02",
			},
			XLSX: XLSXConfig{
				SheetName: "Sheet1",
			},
		},
	}
}

// LoadConfig 从文件加载配置；空路径返回默认配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault 尝试从环境变量或常见位置加载配置文件，否则回退默认配置
func LoadConfigOrDefault() *Config {
	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/livetable/config.json",
	}

	if envPath := os.Getenv("LIVETABLE_CONFIG"); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	return DefaultConfig()
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Server.TickInterval <= 0 {
		return fmt.Errorf("tick间隔必须大于0")
	}
	if config.Table.TieredVectorThreshold < 0 {
		return fmt.Errorf("分层向量阈值不能为负数")
	}
	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("无效的日志级别: %s", config.Log.Level)
	}
	switch config.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("无效的日志格式: %s", config.Log.Format)
	}
	return nil
}
