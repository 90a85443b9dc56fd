package engine

import "time"

// VideoPaths 演出视频各编码的路径前缀，原样返回给客户端
type VideoPaths struct {
	H265Path string `mapstructure:"h265_path"`
	Mp4Path  string `mapstructure:"mp4_path"`
	WebmPath string `mapstructure:"webm_path"`
}

// Settings 可热更新的抽卡参数
type Settings struct {
	// ShippingWindow 系统未配置发货期限时使用
	ShippingWindow time.Duration `mapstructure:"shipping_window"`
	// VerifyDrawToken 开启后请求中的 drawToken 必须与用户当前令牌一致
	VerifyDrawToken bool       `mapstructure:"verify_draw_token"`
	Video           VideoPaths `mapstructure:"video"`
}

// DefaultSettings 默认参数
func DefaultSettings() *Settings {
	return &Settings{
		ShippingWindow: 30 * 24 * time.Hour,
	}
}
