package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
)

// memStore 内存版缓存，所有操作持同一把互斥锁
type memStore struct {
	mu sync.Mutex

	gachas   map[string]*model.GachaConfig
	regions  map[int64]string
	tokens   map[int64]string
	locks    map[string]string
	slots    map[string]map[int64]bool // key: gacha/tier/index
	global   map[string]int64
	balances map[int64]int64
	pools    map[string][]string
	pityPool map[string][]string
	pity     map[string]int64
	resets   map[string]map[int64]struct{}
	items    map[int64]*model.ItemInfo
	videos   map[int64]*model.VideoInfo
	window   time.Duration

	lockSeq   int
	unlocks   int
	commitErr error
	popErr    error
}

func newMemStore() *memStore {
	return &memStore{
		gachas:   map[string]*model.GachaConfig{},
		regions:  map[int64]string{},
		tokens:   map[int64]string{},
		locks:    map[string]string{},
		slots:    map[string]map[int64]bool{},
		global:   map[string]int64{},
		balances: map[int64]int64{},
		pools:    map[string][]string{},
		pityPool: map[string][]string{},
		pity:     map[string]int64{},
		resets:   map[string]map[int64]struct{}{},
		items:    map[int64]*model.ItemInfo{},
		videos:   map[int64]*model.VideoInfo{},
	}
}

func slotKey(gachaID string, tier LimitTier, index int) string {
	return fmt.Sprintf("%s/%d/%d", gachaID, tier, index)
}

func pityKey(userID int64, gachaID string) string {
	return strconv.FormatInt(userID, 10) + "/" + gachaID
}

func encodeSlot(s *model.PrizeSlot) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (m *memStore) setPool(gachaID string, slots ...*model.PrizeSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw := make([]string, len(slots))
	for i, s := range slots {
		raw[i] = encodeSlot(s)
	}
	m.pools[gachaID] = raw
}

func (m *memStore) setPityPool(gachaID string, slots ...*model.PrizeSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slots {
		m.pityPool[gachaID] = append(m.pityPool[gachaID], encodeSlot(s))
	}
}

func (m *memStore) poolItems(gachaID string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.pools[gachaID]))
	for _, raw := range m.pools[gachaID] {
		var s model.PrizeSlot
		_ = json.Unmarshal([]byte(raw), &s)
		out = append(out, s.ItemID)
	}
	return out
}

func (m *memStore) balance(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

func (m *memStore) pityCounter(userID int64, gachaID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pity[pityKey(userID, gachaID)]
}

func (m *memStore) occupy(gachaID string, tier LimitTier, userID int64, indexes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range indexes {
		k := slotKey(gachaID, tier, i)
		if m.slots[k] == nil {
			m.slots[k] = map[int64]bool{}
		}
		m.slots[k][userID] = true
	}
}

func (m *memStore) occupied(gachaID string, tier LimitTier, userID int64, index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[slotKey(gachaID, tier, index)][userID]
}

func (m *memStore) lockHeld(gachaID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[gachaID]
	return ok
}

func (m *memStore) LoadGacha(_ context.Context, gachaID string) (*model.GachaConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gachas[gachaID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) UserRegion(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regions[userID], nil
}

func (m *memStore) DrawToken(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

type memLease struct {
	m       *memStore
	gachaID string
	token   string
}

func (l *memLease) Unlock(context.Context) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	l.m.unlocks++
	if l.m.locks[l.gachaID] != l.token {
		return errors.New("lock not held")
	}
	delete(l.m.locks, l.gachaID)
	return nil
}

func (l *memLease) Refresh(context.Context) error { return nil }

func (m *memStore) TryLock(_ context.Context, gachaID string) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[gachaID]; ok {
		return nil, nil
	}
	m.lockSeq++
	token := strconv.Itoa(m.lockSeq)
	m.locks[gachaID] = token
	return &memLease{m: m, gachaID: gachaID, token: token}, nil
}

func (m *memStore) OccupiedSlots(_ context.Context, gachaID string, tier LimitTier, userID int64, capacity int) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]bool{}
	for i := 1; i <= capacity; i++ {
		if m.slots[slotKey(gachaID, tier, i)][userID] {
			out[i] = true
		}
	}
	return out, nil
}

func (m *memStore) GlobalCount(_ context.Context, gachaID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global[gachaID], nil
}

func (m *memStore) Balance(_ context.Context, userID int64) (int64, error) {
	return m.balance(userID), nil
}

func (m *memStore) Remaining(_ context.Context, gachaID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pools[gachaID])), nil
}

func decodeSlots(raw []string) ([]*model.PrizeSlot, error) {
	out := make([]*model.PrizeSlot, 0, len(raw))
	for _, r := range raw {
		s := &model.PrizeSlot{}
		if err := json.Unmarshal([]byte(r), s); err != nil {
			return nil, err
		}
		s.Raw = r
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) Pop(_ context.Context, gachaID string, n int) ([]*model.PrizeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.popErr != nil {
		return nil, m.popErr
	}
	list := m.pools[gachaID]
	if n > len(list) {
		n = len(list)
	}
	popped := append([]string(nil), list[:n]...)
	m.pools[gachaID] = list[n:]
	return decodeSlots(popped)
}

func (m *memStore) Append(_ context.Context, gachaID string, slots []*model.PrizeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slots {
		m.pools[gachaID] = append(m.pools[gachaID], s.Raw)
	}
	return nil
}

func (m *memStore) PopPity(_ context.Context, gachaID string) (*model.PrizeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.pityPool[gachaID]
	if len(list) == 0 {
		return nil, nil
	}
	m.pityPool[gachaID] = list[1:]
	out, err := decodeSlots(list[:1])
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *memStore) PityCounter(_ context.Context, userID int64, gachaID string) (int64, error) {
	return m.pityCounter(userID, gachaID), nil
}

func (m *memStore) PityResetPrizes(_ context.Context, gachaID string) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[gachaID], nil
}

func (m *memStore) Commit(_ context.Context, s *Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	if s.Reservation != nil {
		for _, mark := range s.Reservation.Slots {
			k := slotKey(s.GachaID, mark.Tier, mark.Index)
			if m.slots[k] == nil {
				m.slots[k] = map[int64]bool{}
			}
			m.slots[k][s.UserID] = true
		}
		m.global[s.GachaID] += s.Reservation.GlobalIncr
	}
	m.balances[s.UserID] -= s.Debit
	if s.PityCounter != nil {
		m.pity[pityKey(s.UserID, s.GachaID)] = *s.PityCounter
	}
	return nil
}

func (m *memStore) Item(_ context.Context, itemID int64) (*model.ItemInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.items[itemID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return info, nil
}

func (m *memStore) Video(_ context.Context, videoID int64) (*model.VideoInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.videos[videoID]; ok {
		return v, nil
	}
	return &model.VideoInfo{}, nil
}

func (m *memStore) ShippingWindow(context.Context) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window, nil
}

// recorder 记录所有发出的消息与写入的收藏
type recorder struct {
	mu sync.Mutex

	debits    []*model.DebitMessage
	inventory []*model.InventoryMessage
	emissions []*model.EmissionMessage
	histories []*model.HistoryMessage
	soldOut   []*model.SoldOutMessage
	records   []*model.CollectionRecord
	nextID    int64

	debitErr  error
	eventErr  error
	insertErr error

	// observe 在写入收藏和发布库存事件时回调
	observe func(stage string)
}

func (r *recorder) seen(stage string) {
	if r.observe != nil {
		r.observe(stage)
	}
}

func (r *recorder) PublishDebit(_ context.Context, msg *model.DebitMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.debitErr != nil {
		return r.debitErr
	}
	r.debits = append(r.debits, msg)
	return nil
}

func (r *recorder) PublishInventory(_ context.Context, msg *model.InventoryMessage) error {
	r.seen("inventory")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eventErr != nil {
		return r.eventErr
	}
	r.inventory = append(r.inventory, msg)
	return nil
}

func (r *recorder) PublishEmission(_ context.Context, msg *model.EmissionMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, msg)
	return nil
}

func (r *recorder) PublishHistory(_ context.Context, msg *model.HistoryMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = append(r.histories, msg)
	return nil
}

func (r *recorder) NotifySoldOut(_ context.Context, msg *model.SoldOutMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.soldOut = append(r.soldOut, msg)
	return nil
}

func (r *recorder) InsertBatch(_ context.Context, records []*model.CollectionRecord) ([]int64, error) {
	r.seen("insert")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		r.nextID++
		ids[i] = r.nextID
		r.records = append(r.records, rec)
	}
	return ids, nil
}

func (r *recorder) debitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.debits)
}
