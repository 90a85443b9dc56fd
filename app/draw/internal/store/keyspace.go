package store

import (
	"fmt"
	"strconv"
)

// Keyspace 缓存键命名，所有键都带环境前缀
type Keyspace struct {
	Env      string
	Language string
}

func (k Keyspace) gacha(id string) string {
	return "gacha:" + k.Env + ":" + id
}

func (k Keyspace) user(id int64) string {
	return "user:" + k.Env + ":" + strconv.FormatInt(id, 10)
}

func (k Keyspace) GachaInfo(id string) string { return k.gacha(id) + ":" + k.Language + ":info" }
func (k Keyspace) Lock(id string) string      { return k.gacha(id) + ":lock" }
func (k Keyspace) Pool(id string) string      { return k.gacha(id) + ":list" }
func (k Keyspace) PityPool(id string) string  { return k.gacha(id) + ":limit:list" }
func (k Keyspace) PityReset(id string) string { return k.gacha(id) + ":limitreset" }
func (k Keyspace) GlobalDaily(id string) string {
	return k.gacha(id) + ":limit2"
}

// LimitSlot 每人每日使用 limit1，每人累计使用 limit3
func (k Keyspace) LimitSlot(id string, tier int, index int) string {
	return fmt.Sprintf("%s:%d:limit%d", k.gacha(id), index, tier)
}

func (k Keyspace) UserRegion(uid int64) string { return k.user(uid) + ":country" }
func (k Keyspace) UserPoint(uid int64) string  { return k.user(uid) + ":pt" }
func (k Keyspace) DrawToken(uid int64) string  { return k.user(uid) + ":gachatoken" }
func (k Keyspace) Pity(uid int64, gachaID string) string {
	return k.user(uid) + ":" + gachaID + ":limit"
}

func (k Keyspace) Item(itemID int64) string {
	return "item:" + k.Env + ":" + strconv.FormatInt(itemID, 10) + ":" + k.Language + ":info"
}

func (k Keyspace) VideoURL(videoID int64) string {
	return "video:" + k.Env + ":" + strconv.FormatInt(videoID, 10) + ":url"
}

func (k Keyspace) VideoKey(videoID int64) string {
	return "video:" + k.Env + ":" + strconv.FormatInt(videoID, 10) + ":key"
}

func (k Keyspace) ShippingWindow() string { return "system:" + k.Env + ":sd" }

// DailyLimitPatterns 按日重置的限购键匹配模式
func (k Keyspace) DailyLimitPatterns() []string {
	return []string{
		"gacha:" + k.Env + ":*:limit1",
		"gacha:" + k.Env + ":*:limit2",
	}
}
