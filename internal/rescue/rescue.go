// Copyright 2025 The kvstored Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rescue 兜住派生 goroutine 的 panic
//
// 进程内的 goroutine 分三类 链接 handler / 存储 actor / 服务循环
// 任何一类 panic 都不应拖垮整个进程 只损失出事的那条链接或组件
// component 标签让计数能定位到具体出事的组件
package rescue

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kvstored/kvstored/common"
	"github.com/kvstored/kvstored/logger"
)

var panicTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "panic_total",
		Help:      "recovered panics total",
	},
	[]string{"component"},
)

// HandleCrash 恢复当前 goroutine 的 panic 计数并记录现场
//
// 必须直接 defer 在派生 goroutine 的最外层
func HandleCrash(component string) {
	r := recover()
	if r == nil {
		return
	}

	panicTotal.WithLabelValues(component).Inc()

	const size = 64 << 10
	stacktrace := make([]byte, size)
	stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
	logger.Errorf("%s: observed a panic: %v\n%s", component, r, stacktrace)
}
