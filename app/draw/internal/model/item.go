package model

// ItemInfo 道具展示信息，缓存键 item:<env>:<itemId>:<lang>:info
type ItemInfo struct {
	ItemName         string `json:"itemName"`
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
	ItemShippingFlag int    `json:"itemShippingFlag"`
}

// VideoInfo 演出视频
type VideoInfo struct {
	URL string
	Key string
}
