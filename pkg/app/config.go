package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/gachadraw/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，GACHA_REDIS_STANDALONE_ADDR -> redis.standalone.addr
const EnvPrefix = "GACHA"

var (
	configPath string
	logPath    string
)

// LoadConfig 加载配置到 target 并返回 Manager，调用方可用于 Watch
// 优先级：命令行 > 环境变量 > 配置文件 > 默认值
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable directory: %w", err)
	}
	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "app.log")

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if pflag.Lookup("log.path") == nil {
		pflag.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	path := configPath
	if !pflag.CommandLine.Changed("config") {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at %s", path)
	}
	configPath = path

	v.SetDefault("log.output_path", defaultLog)
	if pflag.CommandLine.Changed("log.path") {
		v.Set("log.output_path", logPath)
		v.Set("log.enable_file", true)
	}

	mgr := config.NewManager(append(opts, config.WithViper(v))...)
	if err := mgr.LoadFile(configPath); err != nil {
		return nil, err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	logPath = v.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return mgr, nil
}

// GetExecDir 可执行文件所在目录（解析符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}
