package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const itemLookupConcurrency = 8

// award 一件待发放的奖品
type award struct {
	slot   *model.PrizeSlot
	itemID int64
	point  int64
	pity   bool
}

// compileInput 结算完成后的抽卡数据
type compileInput struct {
	cfg        *model.GachaConfig
	userID     int64
	pattern    model.Pattern
	execNum    int
	cost       int64
	slots      []*model.PrizeSlot
	pity       *model.PrizeSlot
	startPoint int64
	endPoint   int64
	now        time.Time
	settings   *Settings
	// soldOut 提交后奖池已空，由持锁方判定
	soldOut bool
}

// ResultCompiler 持久化奖品并发布事件
type ResultCompiler struct {
	catalog     Catalog
	collections CollectionRepository
	events      EventPort
	notify      NotifyPort
	newID       func() string
	logger      logger.Logger
}

func NewResultCompiler(
	catalog Catalog,
	collections CollectionRepository,
	events EventPort,
	notify NotifyPort,
	newID func() string,
	l logger.Logger,
) *ResultCompiler {
	return &ResultCompiler{
		catalog:     catalog,
		collections: collections,
		events:      events,
		notify:      notify,
		newID:       newID,
		logger:      l.Named("engine.compiler"),
	}
}

// collectAwards 主道具、赠品、保底依次展开
func collectAwards(slots []*model.PrizeSlot, pity *model.PrizeSlot) (awards []award, emissionIDs []int64) {
	for _, s := range slots {
		awards = append(awards, award{slot: s, itemID: s.ItemID, point: s.ItemPoint})
		if s.HasBonus() {
			awards = append(awards, award{slot: s, itemID: s.BonusItemID, point: s.BonusItemPoint})
		}
		emissionIDs = append(emissionIDs, s.EmissionID)
	}
	if pity != nil {
		itemID, point := pity.PityAward()
		awards = append(awards, award{slot: pity, itemID: itemID, point: point, pity: true})
		emissionIDs = append(emissionIDs, pity.EmissionID)
	}
	return awards, emissionIDs
}

// Compile 写入用户收藏、组装响应并发布事件
func (c *ResultCompiler) Compile(ctx context.Context, in *compileInput) (*model.DrawResult, error) {
	window, err := c.catalog.ShippingWindow(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read shipping window")
	}
	if window <= 0 {
		window = in.settings.ShippingWindow
	}
	expiredAt := in.now.Add(window)

	awards, emissionIDs := collectAwards(in.slots, in.pity)
	infos, err := c.lookupItems(ctx, awards)
	if err != nil {
		return nil, err
	}

	prizes := make([]*model.PrizeResult, len(awards))
	records := make([]*model.CollectionRecord, len(awards))
	itemIDs := make([]int64, len(awards))
	for i, a := range awards {
		p := &model.PrizeResult{
			ItemUUID:                a.slot.UUID,
			ItemID:                  a.itemID,
			ItemPoint:               a.point,
			EmissionID:              a.slot.EmissionID,
			ShippingRequestDeadline: expiredAt.UnixMilli(),
			Pity:                    a.pity,
		}
		p.ApplyInfo(infos[a.itemID])
		prizes[i] = p
		records[i] = &model.CollectionRecord{
			UserID:     in.userID,
			ItemID:     a.itemID,
			Point:      a.point,
			EmissionID: a.slot.EmissionID,
			CreatedAt:  in.now,
			ExpiredAt:  expiredAt,
		}
		itemIDs[i] = a.itemID
	}

	ids, err := c.collections.InsertBatch(ctx, records)
	if err != nil {
		return nil, errors.Wrap(err, "insert user collections")
	}
	if len(ids) != len(prizes) {
		return nil, errors.Newf("insert user collections: got %d ids for %d rows", len(ids), len(prizes))
	}
	for i, id := range ids {
		prizes[i].UserCollectionID = id
	}

	res := &model.DrawResult{
		VideoH265Path: in.settings.Video.H265Path,
		VideoMp4Path:  in.settings.Video.Mp4Path,
		VideoWebmPath: in.settings.Video.WebmPath,
		StartPoint:    in.startPoint,
		EndPoint:      in.endPoint,
		Prizes:        prizes,
		PackName:      in.cfg.TranslateName,
		Count:         in.execNum,
		Point:         in.cost,
	}
	videoID, priority := SelectVideo(in.slots, in.pity)
	res.PrizeRarity = priority
	if videoID != 0 {
		video, err := c.catalog.Video(ctx, videoID)
		if err != nil {
			return nil, errors.Wrapf(err, "read video %d", videoID)
		}
		res.VideoURL, res.VideoKey = video.URL, video.Key
	}

	if err := c.publish(ctx, in, itemIDs, emissionIDs); err != nil {
		return nil, err
	}
	return res, nil
}

// lookupItems 并发读取去重后的道具信息，缺失的道具不影响发放
func (c *ResultCompiler) lookupItems(ctx context.Context, awards []award) (map[int64]*model.ItemInfo, error) {
	infos := make(map[int64]*model.ItemInfo, len(awards))
	for _, a := range awards {
		infos[a.itemID] = nil
	}
	ids := make([]int64, 0, len(infos))
	for id := range infos {
		ids = append(ids, id)
	}
	found := make([]*model.ItemInfo, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemLookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			info, err := c.catalog.Item(gctx, id)
			if errors.Is(err, model.ErrNotFound) {
				c.logger.WarnContext(ctx, "item info missing", "item_id", id)
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "read item %d", id)
			}
			found[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, id := range ids {
		infos[id] = found[i]
	}
	return infos, nil
}

func (c *ResultCompiler) publish(ctx context.Context, in *compileInput, itemIDs, emissionIDs []int64) error {
	fail := func(what string, err error) error {
		c.logger.ErrorContext(ctx, "publish draw event failed", "event", what, "gacha_id", in.cfg.ID, "user_id", in.userID, "error", err)
		return errors.WithSecondaryError(model.NewDrawError(model.CodeLedgerPublish, what), err)
	}

	inv := &model.InventoryMessage{DedupID: c.newID(), ItemIDs: itemIDs, InventoryID: model.InventoryReasonDraw}
	if err := c.events.PublishInventory(ctx, inv); err != nil {
		return fail("inventory", err)
	}
	if in.cfg.LoopFlag {
		loop := &model.InventoryMessage{DedupID: c.newID(), ItemIDs: itemIDs, InventoryID: model.InventoryReasonLoop}
		if err := c.events.PublishInventory(ctx, loop); err != nil {
			return fail("loop inventory", err)
		}
	}

	emission := &model.EmissionMessage{
		DedupID:     c.newID(),
		GachaID:     in.cfg.ID,
		UserID:      in.userID,
		EmissionIDs: emissionIDs,
		ExecuteAt:   in.now.Unix(),
	}
	if err := c.events.PublishEmission(ctx, emission); err != nil {
		return fail("emission", err)
	}

	if in.soldOut {
		msg := &model.SoldOutMessage{DedupID: c.newID(), GachaID: in.cfg.ID, NotifyAt: in.now.Unix()}
		if err := c.notify.NotifySoldOut(ctx, msg); err != nil {
			c.logger.ErrorContext(ctx, "notify sold out failed", "gacha_id", in.cfg.ID, "error", err)
		} else {
			c.logger.InfoContext(ctx, "gacha sold out", "gacha_id", in.cfg.ID)
		}
	}

	history := &model.HistoryMessage{
		DedupID:     c.newID(),
		GachaID:     in.cfg.ID,
		UserID:      in.userID,
		EmissionIDs: emissionIDs,
		StartPoint:  in.startPoint,
		EndPoint:    in.endPoint,
		Pattern:     in.pattern,
		ExecutedAt:  in.now.Unix(),
	}
	if err := c.events.PublishHistory(ctx, history); err != nil {
		return fail("history", err)
	}
	return nil
}
