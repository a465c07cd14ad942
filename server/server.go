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

// Package server 实现协议的 TCP 接入层
//
// acceptor 只做一件事 接受链接并为每条链接派生一个 handler goroutine
// 流式解析和请求分发都在 handler 内完成 见 conn.go
package server

import (
	"context"
	"net"
	"sync"

	"github.com/kvstored/kvstored/confengine"
	"github.com/kvstored/kvstored/logger"
	"github.com/kvstored/kvstored/storage"
)

type Config struct {
	Address string `config:"address"`

	// ReadChunkSize 单次 read 的块大小
	ReadChunkSize int `config:"readChunkSize"`

	// MaxBuffered 累积缓冲区上限 超出视为恶意输入并关闭链接
	MaxBuffered int `config:"maxBuffered"`
}

const defaultAddress = "0.0.0.0:5555"

func (c *Config) Validate() {
	if c.Address == "" {
		c.Address = defaultAddress
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = defaultReadChunkSize
	}
	if c.MaxBuffered <= 0 {
		c.MaxBuffered = defaultMaxBuffered
	}
}

type Server struct {
	config Config
	store  storage.Store

	ctx    context.Context
	cancel context.CancelFunc

	ln net.Listener

	mut   sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New 创建并返回 Server 实例
func New(conf *confengine.Config, store storage.Store) (*Server, error) {
	var config Config
	if err := conf.UnpackSection("server", &config); err != nil {
		return nil, err
	}
	config.Validate()

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config: config,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Listen 绑定监听地址 绑定失败属于启动错误 由调用方决定进程退出
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	s.ln = ln

	logger.Infof("server listening on %s", s.config.Address)
	return nil
}

// Addr 返回实际监听地址 需在 Listen 成功之后调用
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Address 返回配置的监听地址
func (s *Server) Address() string {
	return s.config.Address
}

// Serve 持续接受链接 每条链接运行在独立的 goroutine 中
//
// 监听器被 Close 关闭后返回 nil
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.track(conn)
		connsAcceptedTotal.Inc()
		connsActive.Inc()

		h := newConnHandler(conn, s.store, s.config)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			defer connsActive.Dec()
			h.run(s.ctx)
		}()
	}
}

func (s *Server) track(conn net.Conn) {
	s.mut.Lock()
	s.conns[conn] = struct{}{}
	s.mut.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mut.Lock()
	delete(s.conns, conn)
	s.mut.Unlock()
}

// Close 停止接受新链接并关闭所有活跃链接 等待 handler 全部退出
func (s *Server) Close() error {
	s.cancel()

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	s.mut.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mut.Unlock()

	s.wg.Wait()
	return err
}
