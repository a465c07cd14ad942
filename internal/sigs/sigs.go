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

// Package sigs 处理进程生命周期信号
//
// 服务进程只关心两类信号 终止 (SIGINT/SIGTERM) 和重载 (SIGHUP)
// 重载除了来自操作员 也可由 admin server 的 /-/reload 路由自触发
package sigs

import (
	"os"
	"os/signal"
	"syscall"
)

// Handler 进程信号的统一入口
//
// 两类信号各自注册一次 贯穿整个进程生命周期
// 每次调用都重新 Notify 会导致旧通道继续占用信号投递 所以只建一个
type Handler struct {
	term   chan os.Signal
	reload chan os.Signal
}

// NewHandler 创建并返回 Handler 实例
func NewHandler() *Handler {
	h := &Handler{
		term:   make(chan os.Signal, 1),
		reload: make(chan os.Signal, 1),
	}
	signal.Notify(h.term, os.Interrupt, syscall.SIGTERM)
	signal.Notify(h.reload, syscall.SIGHUP)
	return h
}

// Terminated 收到终止信号时可读
func (h *Handler) Terminated() <-chan os.Signal {
	return h.term
}

// Reloaded 收到重载信号时可读
func (h *Handler) Reloaded() <-chan os.Signal {
	return h.reload
}

// Close 取消信号注册 之后信号恢复默认行为
func (h *Handler) Close() {
	signal.Stop(h.term)
	signal.Stop(h.reload)
}

// SelfReload 向自身进程发送 SIGHUP 触发配置重载
//
// 供 admin server 的 /-/reload 路由使用 与操作员手工 kill -HUP 等价
func SelfReload() error {
	return syscall.Kill(syscall.Getpid(), syscall.SIGHUP)
}
