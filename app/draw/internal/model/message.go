package model

// 点数流水类型
const DetailStatusDraw = 2

// 库存变动原因
const (
	InventoryReasonDraw = 3
	InventoryReasonLoop = 10
)

// 消息中的时间戳均为 unix 秒

// DebitMessage 点数扣减流水
type DebitMessage struct {
	DedupID      string `json:"-"`
	UserID       int64  `json:"userId"`
	Point        int64  `json:"point"`
	DetailStatus int    `json:"detailStatus"`
	ExecuteAt    int64  `json:"executeAt"`
}

// InventoryMessage 库存变动，ItemIDs 按发放顺序排列，可重复
type InventoryMessage struct {
	DedupID     string  `json:"-"`
	ItemIDs     []int64 `json:"itemId"`
	InventoryID int     `json:"inventoryId"`
}

// EmissionMessage 出货记录，用于审计导出
type EmissionMessage struct {
	DedupID     string  `json:"-"`
	GachaID     string  `json:"gachaId"`
	UserID      int64   `json:"userId"`
	EmissionIDs []int64 `json:"emissionIds"`
	ExecuteAt   int64   `json:"executeAt"`
}

// HistoryMessage 抽卡历史
type HistoryMessage struct {
	DedupID     string  `json:"-"`
	GachaID     string  `json:"gachaId"`
	UserID      int64   `json:"userId"`
	EmissionIDs []int64 `json:"emissionIds"`
	StartPoint  int64   `json:"startPoint"`
	EndPoint    int64   `json:"endPoint"`
	Pattern     Pattern `json:"pattern"`
	ExecutedAt  int64   `json:"executedAt"`
}

// SoldOutMessage 卡池售罄通知
type SoldOutMessage struct {
	DedupID  string `json:"-"`
	GachaID  string `json:"gachaId"`
	NotifyAt int64  `json:"notifyAt"`
}
