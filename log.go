// Logging setup for reactive
// 库内部日志，默认只输出警告以上级别
package reactive

import (
	"github.com/sirupsen/logrus"
)

// Logger 库使用的日志实例，可通过SetLogger替换
var Logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// SetLogger 替换库使用的日志实例
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		Logger = logger
	}
}
