package model

import "time"

// Pattern 抽卡模式
type Pattern int

const (
	// PatternSingle 单抽
	PatternSingle Pattern = 1
	// PatternMulti 连抽，次数与价格由卡池配置决定
	PatternMulti Pattern = 2
	// PatternAll 抽完剩余全部
	PatternAll Pattern = 3
)

// Valid 是否为已知模式
func (p Pattern) Valid() bool {
	return p >= PatternSingle && p <= PatternAll
}

func (p Pattern) String() string {
	switch p {
	case PatternSingle:
		return "single"
	case PatternMulti:
		return "multi"
	case PatternAll:
		return "all"
	default:
		return "unknown"
	}
}

// GachaConfig 卡池配置，由上游发布流程写入缓存，抽卡过程只读
// 字段名与缓存中的 JSON 保持一致
type GachaConfig struct {
	ID              string `json:"-"`
	TranslateName   string `json:"gachaTranslateName"`
	ViewFlag        int    `json:"gachaViewFlag"`
	SoldOutFlag     int    `json:"gachaSoldOutFlag"`
	StartDateMillis int64  `json:"gachaStartDate"`
	EndDateMillis   int64  `json:"gachaEndDate"`

	SinglePoint      int64 `json:"gachaSinglePoint"`
	ConsecutivePoint int64 `json:"gachaConosecutivePoint"`
	ConsecutiveCount int   `json:"gachaConosecutiveCount"`
	AllRestCount     int64 `json:"gachaAllRestCount"`

	LimitOncePerDay     int `json:"gachaLimitOncePerDay"`
	LimitOnce           int `json:"gachaLimitOnce"`
	LimitEveryonePerDay int `json:"gachaLimitEveryonePerDay"`
	LimitCount          int `json:"gachaLimitCount"`

	LoopFlag   bool  `json:"gachaLoopFlag"`
	TotalCount int64 `json:"gachaTotalCount"`
}

// Visible 是否对用户可见
func (g *GachaConfig) Visible() bool {
	return g.ViewFlag == 1
}

// Active 判断 t 是否落在开放时间内（秒级比较，闭区间）
func (g *GachaConfig) Active(t time.Time) bool {
	now := t.Unix()
	return now >= g.StartDateMillis/1000 && now <= g.EndDateMillis/1000
}

// PityEnabled 是否开启保底
func (g *GachaConfig) PityEnabled() bool {
	return g.LimitCount != 0
}

// PrizeSlot 卡池序列中的一个奖位
type PrizeSlot struct {
	UUID           string `json:"uuid"`
	PrizeID        int64  `json:"pi"`
	ItemID         int64  `json:"ii"`
	ItemPoint      int64  `json:"ip"`
	BonusItemID    int64  `json:"bi"`
	BonusItemPoint int64  `json:"bp"`
	EmissionID     int64  `json:"eid"`
	VideoPriority  int    `json:"vp"`
	VideoID        int64  `json:"vi"`

	// Raw 取出时的原始值，循环卡池回填时原样写回
	Raw string `json:"-"`
}

// HasBonus 是否附带赠品
func (s *PrizeSlot) HasBonus() bool {
	return s.BonusItemID != 0
}

// PityAward 保底奖位发放的道具：优先使用赠品字段，未设置时退回主道具
func (s *PrizeSlot) PityAward() (itemID, point int64) {
	if s.BonusItemID != 0 {
		return s.BonusItemID, s.BonusItemPoint
	}
	return s.ItemID, s.ItemPoint
}
