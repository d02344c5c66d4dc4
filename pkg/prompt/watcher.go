package prompt

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"roadmap_ai_backend/pkg/logger"
)

// Watch 监听提示词目录变更并热加载，开发环境使用
func (l *Loader) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				// 编辑器保存会触发多个事件，去抖后统一重载
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					if err := l.Reload(); err != nil {
						logger.Log.Error("重载提示词目录失败", zap.String("dir", l.dir), zap.Error(err))
						return
					}
					logger.Log.Info("提示词目录已热加载", zap.String("dir", l.dir))
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Error("提示词目录监听错误", zap.Error(err))
			case <-stop:
				return
			}
		}
	}()

	logger.Log.Info("提示词热加载已启用", zap.String("dir", l.dir))
	return nil
}
