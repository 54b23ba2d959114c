package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	CONFIGS_DIR_NAME      = ".config"
	TFTCP_CONFIG_DIR_NAME = "tftcp"
	CONFIG_FILE_NAME      = "config"
	CONFIG_FILE_EXT       = "yml"

	StyleRich = "rich"
	StyleRaw  = "raw"
)

type Config struct {
	Port                 int    `mapstructure:"port"`
	AdminPort            int    `mapstructure:"admin_port"`
	StorageRoot          string `mapstructure:"storage_root"`
	PoolSize             int    `mapstructure:"pool_size"`
	ChunkSize            int    `mapstructure:"chunk_size"`
	IOTimeout            string `mapstructure:"io_timeout"`
	ConfineStorage       bool   `mapstructure:"confine_storage"`
	ReceivedPrefix       string `mapstructure:"received_prefix"`
	Transport            string `mapstructure:"transport"`
	Verbose              bool   `mapstructure:"verbose"`
	PromptOverwriteFiles bool   `mapstructure:"prompt_overwrite_files"`
	TuiStyle             string `mapstructure:"tui_style"`
}

func GetDefault() Config {
	return Config{
		Port:                 6969,
		AdminPort:            0,
		StorageRoot:          "server_files",
		PoolSize:             10,
		ChunkSize:            1024,
		IOTimeout:            "0s",
		ConfineStorage:       false,
		ReceivedPrefix:       "received_",
		Transport:            "tcp",
		Verbose:              false,
		PromptOverwriteFiles: false,
		TuiStyle:             StyleRich,
	}
}

func (config Config) Map() map[string]any {
	m := map[string]any{}
	for _, field := range structs.Fields(config) {
		key := field.Tag("mapstructure")
		value := field.Value()
		m[key] = value
	}
	return m
}

// Yaml renders the config as yaml, with keys in sorted order.
func (config Config) Yaml() []byte {
	m := config.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString(fmt.Sprintf("%s: %v", k, m[k]))
		builder.WriteRune('\n')
	}
	return []byte(builder.String())
}

func IsDefault(key string) bool {
	defaults := GetDefault().Map()
	return viper.Get(key) == defaults[key]
}

// Init initializes the viper config.
// `config.yml` is created in $HOME/.config/tftcp if not already existing.
// NOTE: The precedence levels of viper are the following: flags -> config file -> defaults.
func Init() error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("resolving home dir: %w", err)
	}
	return InitIn(filepath.Join(home, CONFIGS_DIR_NAME, TFTCP_CONFIG_DIR_NAME))
}

// InitIn initializes the viper config from the config file in configPath.
func InitIn(configPath string) error {
	viper.AddConfigPath(configPath)
	viper.SetConfigName(CONFIG_FILE_NAME)
	viper.SetConfigType(CONFIG_FILE_EXT)

	if err := viper.ReadInConfig(); err != nil {
		// Create config file if not found.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err := os.MkdirAll(configPath, os.ModePerm)
			if err != nil {
				return fmt.Errorf("Could not create config directory: %w", err)
			}

			path := filepath.Join(configPath, fmt.Sprintf("%s.%s", CONFIG_FILE_NAME, CONFIG_FILE_EXT))
			configFile, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("Could not create config file: %w", err)
			}
			defer configFile.Close()

			_, err = configFile.Write(GetDefault().Yaml())
			if err != nil {
				return fmt.Errorf("Could not write defaults to config file: %w", err)
			}
			viper.SetConfigFile(path)
		} else {
			return fmt.Errorf("Could not read config file: %w", err)
		}
	}
	for k, v := range GetDefault().Map() {
		viper.SetDefault(k, v)
	}
	return nil
}
