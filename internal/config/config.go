package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 YTDASH_DATASET_CSV_PATH。
const EnvPrefix = "YTDASH"

// envKeys 列出允许通过环境变量覆盖的配置项。
var envKeys = []string{
	"app.env",
	"app.log_level",
	"app.log_format",
	"app.log_path",
	"app.http_addr",
	"dataset.source",
	"dataset.csv_path",
	"dataset.sqlite_path",
	"dataset.watch",
	"dashboard.snapshot_enabled",
}

// Load 读取 YAML 配置（支持 include 链与环境变量覆盖），并应用默认值与校验。
func Load(path string) (*Config, error) {
	files, err := resolveIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	// 先记录文件中出现过的键，再叠加实际设置了的环境变量。
	setKeys := make(keySet)
	for _, key := range v.AllKeys() {
		setKeys.mark(key)
	}
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	for _, key := range envKeys {
		if v.IsSet(key) {
			setKeys.mark(key)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env for %s failed: %w", key, err)
		}
	}
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}
