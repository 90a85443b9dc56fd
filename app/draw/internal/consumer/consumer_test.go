package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/app/draw/internal/publisher"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/mq/kafka"
	"github.com/lk2023060901/gachadraw/pkg/notify"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	seen    map[string]bool
	debits  []*model.DebitMessage
	history []*model.HistoryMessage
	items   []int64
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (f *fakeStore) mark(stream, id string) bool {
	key := stream + ":" + id
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

func (f *fakeStore) ApplyDebit(_ context.Context, id string, msg *model.DebitMessage) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if !f.mark("debit", id) {
		return false, nil
	}
	f.debits = append(f.debits, msg)
	return true, nil
}

func (f *fakeStore) ApplyInventory(_ context.Context, id string, msg *model.InventoryMessage) (bool, error) {
	if !f.mark("inventory", id) {
		return false, nil
	}
	f.items = append(f.items, msg.ItemIDs...)
	return true, nil
}

func (f *fakeStore) ApplyEmission(_ context.Context, id string, _ *model.EmissionMessage) (bool, error) {
	return f.mark("emission", id), nil
}

func (f *fakeStore) ApplyHistory(_ context.Context, id string, msg *model.HistoryMessage) (bool, error) {
	if !f.mark("history", id) {
		return false, nil
	}
	f.history = append(f.history, msg)
	return true, nil
}

type fakeNotifier struct {
	alerts []*notify.Alert
	err    error
}

func (f *fakeNotifier) Send(_ context.Context, a *notify.Alert) error {
	f.alerts = append(f.alerts, a)
	return f.err
}

func (f *fakeNotifier) Name() string { return "fake" }

func newTestDispatcher(t *testing.T, store Store) (*Dispatcher, *metrics.DrawMetrics) {
	return newAlertingDispatcher(t, store, nil)
}

func newAlertingDispatcher(t *testing.T, store Store, n notify.Notifier) (*Dispatcher, *metrics.DrawMetrics) {
	t.Helper()
	client, err := prometheus.New(&prometheus.Config{Namespace: "test", Path: "/metrics"})
	require.NoError(t, err)
	m, err := metrics.New(client)
	require.NoError(t, err)
	return NewDispatcher(store, publisher.DefaultTopics(), n, m, logger.NewNoop()), m
}

func message(t *testing.T, topic, id string, v any) *kafka.Message {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	msg := &kafka.Message{Topic: topic, Value: raw, Partition: 1, Offset: 7}
	if id != "" {
		msg.Headers = map[string]string{kafka.HeaderMessageID: id}
	}
	return msg
}

type captureProducer struct {
	topic string
	msg   *kafka.Message
}

func (p *captureProducer) Publish(_ context.Context, topic string, msg *kafka.Message) error {
	p.topic, p.msg = topic, msg
	return nil
}

// published 经过 Publisher 编码的售罄消息
func published(t *testing.T, v *model.SoldOutMessage) *kafka.Message {
	t.Helper()
	p := &captureProducer{}
	require.NoError(t, publisher.New(p, publisher.DefaultTopics()).NotifySoldOut(context.Background(), v))
	require.NotNil(t, p.msg)
	p.msg.Topic = p.topic
	return p.msg
}

func TestDispatcherTopics(t *testing.T) {
	d, _ := newTestDispatcher(t, newFakeStore())
	assert.ElementsMatch(t, []string{
		"gacha.point.debit", "gacha.inventory", "gacha.emission", "gacha.history", "gacha.soldout",
	}, d.Topics())
}

func TestDispatcherAppliesOnce(t *testing.T) {
	store := newFakeStore()
	d, m := newTestDispatcher(t, store)
	ctx := context.Background()
	topic := publisher.DefaultTopics().Debit

	msg := message(t, topic, "dup-1", &model.DebitMessage{UserID: 3, Point: 100, DetailStatus: model.DetailStatusDraw})
	require.NoError(t, d.Handle(ctx, msg))
	require.NoError(t, d.Handle(ctx, msg))

	require.Len(t, store.debits, 1)
	assert.Equal(t, int64(100), store.debits[0].Point)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumeTotal.WithLabelValues(topic, "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumeTotal.WithLabelValues(topic, "duplicate")))
}

func TestDispatcherRoutesByTopic(t *testing.T) {
	store := newFakeStore()
	d, _ := newTestDispatcher(t, store)
	ctx := context.Background()
	topics := publisher.DefaultTopics()

	require.NoError(t, d.Handle(ctx, message(t, topics.Inventory, "a", &model.InventoryMessage{ItemIDs: []int64{4, 4}, InventoryID: 3})))
	require.NoError(t, d.Handle(ctx, message(t, topics.History, "a", &model.HistoryMessage{GachaID: "9", Pattern: model.PatternMulti})))
	require.NoError(t, d.Handle(ctx, message(t, topics.Emission, "a", &model.EmissionMessage{GachaID: "9"})))
	require.NoError(t, d.Handle(ctx, message(t, topics.SoldOut, "", &model.SoldOutMessage{GachaID: "9"})))
	require.NoError(t, d.Handle(ctx, message(t, "other", "a", map[string]int{})))

	assert.Equal(t, []int64{4, 4}, store.items)
	require.Len(t, store.history, 1)
	assert.Equal(t, model.PatternMulti, store.history[0].Pattern)
	assert.True(t, store.seen["emission:a"])
}

func TestDispatcherFallbackID(t *testing.T) {
	store := newFakeStore()
	d, _ := newTestDispatcher(t, store)
	topic := publisher.DefaultTopics().Debit

	require.NoError(t, d.Handle(context.Background(), message(t, topic, "", &model.DebitMessage{UserID: 1})))
	assert.True(t, store.seen["debit:"+topic+"/1/7"])
}

func TestDispatcherMalformedAndFailure(t *testing.T) {
	store := newFakeStore()
	d, m := newTestDispatcher(t, store)
	ctx := context.Background()
	topic := publisher.DefaultTopics().Debit

	bad := &kafka.Message{Topic: topic, Value: []byte("{not json")}
	require.NoError(t, d.Handle(ctx, bad))
	wrongType := &kafka.Message{Topic: topic, Value: []byte(`{"userId":"x"}`)}
	require.NoError(t, d.Handle(ctx, wrongType))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConsumeTotal.WithLabelValues(topic, "malformed")))

	store.err = errors.New("db down")
	err := d.Handle(ctx, message(t, topic, "x", &model.DebitMessage{UserID: 1}))
	assert.ErrorIs(t, err, store.err)
	assert.Empty(t, store.debits)
}

func TestDispatcherSoldOutAlert(t *testing.T) {
	n := &fakeNotifier{}
	d, m := newAlertingDispatcher(t, newFakeStore(), n)
	topic := publisher.DefaultTopics().SoldOut

	soldAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, d.Handle(context.Background(), published(t, &model.SoldOutMessage{GachaID: "12", NotifyAt: soldAt.Unix()})))
	require.Len(t, n.alerts, 1)
	assert.Equal(t, "12", n.alerts[0].Labels["gacha_id"])
	assert.True(t, soldAt.Equal(n.alerts[0].StartsAt), "starts at %s", n.alerts[0].StartsAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumeTotal.WithLabelValues(topic, "applied")))

	n.err = errors.New("webhook down")
	require.NoError(t, d.Handle(context.Background(), message(t, topic, "", &model.SoldOutMessage{GachaID: "12"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumeTotal.WithLabelValues(topic, "failed")))
}
