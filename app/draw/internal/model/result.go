package model

import "time"

// DrawRequest 一次抽卡请求
type DrawRequest struct {
	UserID    int64
	GachaID   string
	Pattern   Pattern
	DrawToken string
}

// PrizeResult 返回给客户端的单个奖品
type PrizeResult struct {
	ItemUUID  string `json:"itemUUID"`
	ItemID    int64  `json:"itemId"`
	ItemName  string `json:"itemName"`
	ItemPoint int64  `json:"itemPoint"`

	ItemImagePath1   string `json:"itemImagePath1"`
	ItemDescription1 string `json:"itemDescription1"`
	ItemDescription2 string `json:"itemDescription2"`
	ItemAttribute1   any    `json:"itemAttribute1"`
	ItemAttribute2   any    `json:"itemAttribute2"`
	ItemAttribute3   any    `json:"itemAttribute3"`
	ItemAttribute4   any    `json:"itemAttribute4"`
	ItemAttribute5   any    `json:"itemAttribute5"`
	ItemAttribute6   any    `json:"itemAttribute6"`
	ItemAttribute7   any    `json:"itemAttribute7"`
	ItemAttribute8   any    `json:"itemAttribute8"`

	IsItemSelected   bool  `json:"isItemSelected"`
	ItemShippingFlag int   `json:"itemShippingFlag"`
	EmissionID       int64 `json:"emissionId"`
	// ShippingRequestDeadline 毫秒时间戳
	ShippingRequestDeadline int64 `json:"shippingRequestDeadline"`
	UserCollectionID        int64 `json:"userCollectionId"`

	// Pity 是否来自保底序列
	Pity bool `json:"-"`
}

// ApplyInfo 填充展示字段，info 为空时保持零值
func (p *PrizeResult) ApplyInfo(info *ItemInfo) {
	if info == nil {
		return
	}
	p.ItemName = info.ItemName
	p.ItemImagePath1 = info.ItemImagePath1
	p.ItemDescription1 = info.ItemDescription1
	p.ItemDescription2 = info.ItemDescription2
	p.ItemAttribute1 = info.ItemAttribute1
	p.ItemAttribute2 = info.ItemAttribute2
	p.ItemAttribute3 = info.ItemAttribute3
	p.ItemAttribute4 = info.ItemAttribute4
	p.ItemAttribute5 = info.ItemAttribute5
	p.ItemAttribute6 = info.ItemAttribute6
	p.ItemAttribute7 = info.ItemAttribute7
	p.ItemAttribute8 = info.ItemAttribute8
	p.ItemShippingFlag = info.ItemShippingFlag
}

// DrawResult 抽卡成功的响应
type DrawResult struct {
	VideoURL      string         `json:"videoUrl"`
	VideoKey      string         `json:"videoKey"`
	VideoH265Path string         `json:"videoH265Path"`
	VideoMp4Path  string         `json:"videoMp4Path"`
	VideoWebmPath string         `json:"videoWebmPath"`
	PrizeRarity   int            `json:"prizeRarity"`
	StartPoint    int64          `json:"startPoint"`
	EndPoint      int64          `json:"endPoint"`
	Prizes        []*PrizeResult `json:"prizes"`
	PackName      string         `json:"packName"`
	Count         int            `json:"count"`
	Point         int64          `json:"point"`
}

// CollectionRecord 用户获得的一件奖品，对应 user_collections 表
type CollectionRecord struct {
	UserID     int64
	ItemID     int64
	Point      int64
	EmissionID int64
	CreatedAt  time.Time
	ExpiredAt  time.Time
}
