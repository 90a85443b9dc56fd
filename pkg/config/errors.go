package config

import "errors"

var (
	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("config cannot be nil")

	// ErrValidationFailed 配置验证失败
	ErrValidationFailed = errors.New("config validation failed")

	// ErrNoConfigFile 未加载配置文件时无法监听
	ErrNoConfigFile = errors.New("no config file loaded")
)
