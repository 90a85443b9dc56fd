package feishu

import (
	"context"
	"fmt"
	"sort"

	"github.com/lk2023060901/gachadraw/pkg/notify"
)

var _ notify.Notifier = (*Adapter)(nil)

// Adapter 把 notify.Alert 转成飞书富文本
type Adapter struct {
	client *Client
}

func NewAdapter(cfg *Config) (*Adapter, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client}, nil
}

func (a *Adapter) Send(ctx context.Context, alert *notify.Alert) error {
	return a.client.Send(ctx, toPost(alert))
}

func (a *Adapter) Name() string { return "feishu" }

var levelText = map[notify.Level]string{
	notify.LevelCritical: "严重",
	notify.LevelWarning:  "警告",
	notify.LevelInfo:     "信息",
}

func toPost(alert *notify.Alert) *PostMessage {
	level, ok := levelText[alert.Level]
	if !ok {
		level = "通知"
	}
	msg := NewPostMessage(fmt.Sprintf("[%s] %s", level, alert.Service))
	msg.AddLine(Text(alert.Summary))

	keys := make([]string, 0, len(alert.Labels))
	for k := range alert.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg.AddLine(Text(fmt.Sprintf("%s: %s", k, alert.Labels[k])))
	}

	if !alert.StartsAt.IsZero() {
		msg.AddLine(Text("时间: " + alert.StartsAt.Format("2006-01-02 15:04:05")))
	}
	if alert.AtAll {
		msg.AddLine(AtAll())
	}
	return msg
}
