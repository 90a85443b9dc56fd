package idgen

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/sonyflake"
)

// Config 生成器配置
type Config struct {
	// MachineID 同一集群内每个实例唯一
	MachineID uint16    `mapstructure:"machine_id"`
	StartTime time.Time `mapstructure:"start_time"`
}

var defaultStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type sonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake 基于 Sonyflake 的生成器
func NewSonyflake(cfg *Config) (Generator, error) {
	start := defaultStart
	var machineID uint16
	if cfg != nil {
		machineID = cfg.MachineID
		if !cfg.StartTime.IsZero() {
			start = cfg.StartTime
		}
	}

	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: start,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if sf == nil {
		return nil, errors.New("failed to create sonyflake generator")
	}
	return &sonyflakeGenerator{sf: sf}, nil
}

func (g *sonyflakeGenerator) NextID() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, errors.Wrap(err, "failed to generate id")
	}
	return int64(id), nil
}
