package app

import (
	"github.com/google/wire"
)

// AppComponents 收集 Wire 注入的服务与资源
type AppComponents struct {
	Servers []Server
	Closers []Closer
}

// ProviderSet 导出给 Wire 使用
var ProviderSet = wire.NewSet(
	NewBaseApp,
)

// InitApp 将注入的组件绑定到 BaseApp
func InitApp(app *BaseApp, comps AppComponents) *BaseApp {
	app.AppendServer(comps.Servers...)
	app.AppendCloser(comps.Closers...)
	return app
}

// CloserFunc 函数式 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// MapCloser 将任意 Close() error 对象转换为 Closer
func MapCloser(c interface{ Close() error }) Closer {
	return CloserFunc(c.Close)
}
