package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/database/redis"
)

// Item 命中进程内缓存时不访问 Redis，缺失的道具不缓存
func (s *Store) Item(ctx context.Context, itemID int64) (*model.ItemInfo, error) {
	if info, ok := s.items.Get(itemID); ok {
		return info, nil
	}
	info, err := redis.GetObject[model.ItemInfo](ctx, s.client, s.keys.Item(itemID))
	if errors.Is(err, redis.ErrNil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.items.Set(itemID, info)
	return info, nil
}

func (s *Store) Video(ctx context.Context, videoID int64) (*model.VideoInfo, error) {
	url, err := s.getString(ctx, s.keys.VideoURL(videoID))
	if err != nil {
		return nil, err
	}
	key, err := s.getString(ctx, s.keys.VideoKey(videoID))
	if err != nil {
		return nil, err
	}
	if url == "" && key == "" {
		s.logger.WarnContext(ctx, "video not configured", "video_id", videoID)
	}
	return &model.VideoInfo{URL: url, Key: key}, nil
}

// ShippingWindow 缓存中以秒为单位
func (s *Store) ShippingWindow(ctx context.Context) (time.Duration, error) {
	secs, err := s.getInt64(ctx, s.keys.ShippingWindow())
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}
