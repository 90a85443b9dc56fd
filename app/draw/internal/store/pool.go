package store

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/database/redis"
)

func decodeSlot(raw string) (*model.PrizeSlot, error) {
	s := &model.PrizeSlot{}
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		return nil, errors.Wrap(err, "decode prize slot")
	}
	s.Raw = raw
	return s, nil
}

func (s *Store) Remaining(ctx context.Context, gachaID string) (int64, error) {
	return s.client.LLen(ctx, s.keys.Pool(gachaID))
}

func (s *Store) Pop(ctx context.Context, gachaID string, n int) ([]*model.PrizeSlot, error) {
	if n <= 0 {
		return nil, nil
	}
	raws, err := s.client.LPopCount(ctx, s.keys.Pool(gachaID), n)
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]*model.PrizeSlot, 0, len(raws))
	for _, raw := range raws {
		slot, err := decodeSlot(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

// Append 优先写回原始值，保持循环卡池中的内容不变
func (s *Store) Append(ctx context.Context, gachaID string, slots []*model.PrizeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	values := make([]interface{}, len(slots))
	for i, slot := range slots {
		if slot.Raw != "" {
			values[i] = slot.Raw
			continue
		}
		b, err := json.Marshal(slot)
		if err != nil {
			return errors.Wrap(err, "encode prize slot")
		}
		values[i] = string(b)
	}
	_, err := s.client.RPush(ctx, s.keys.Pool(gachaID), values...)
	return err
}

func (s *Store) PopPity(ctx context.Context, gachaID string) (*model.PrizeSlot, error) {
	raw, err := s.client.LPop(ctx, s.keys.PityPool(gachaID))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSlot(raw)
}

func (s *Store) PityCounter(ctx context.Context, userID int64, gachaID string) (int64, error) {
	return s.getInt64(ctx, s.keys.Pity(userID, gachaID))
}

// PityResetPrizes 缓存中为 JSON 数组
func (s *Store) PityResetPrizes(ctx context.Context, gachaID string) (map[int64]struct{}, error) {
	ids, err := redis.GetObject[[]int64](ctx, s.client, s.keys.PityReset(gachaID))
	if errors.Is(err, redis.ErrNil) {
		return map[int64]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[int64]struct{}, len(*ids))
	for _, id := range *ids {
		out[id] = struct{}{}
	}
	return out, nil
}
