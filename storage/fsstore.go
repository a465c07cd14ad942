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

package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/kvstored/kvstored/internal/rescue"
)

const (
	defaultDir     = "database"
	defaultMailbox = 32

	filePrefix = "key-"
)

type fsOp uint8

const (
	fsOpPut fsOp = iota + 1
	fsOpGet
)

type fsResult struct {
	value string
	err   error
}

type fsCommand struct {
	op    fsOp
	key   string
	value string
	reply chan fsResult
}

// fsStore 文件系统后端
//
// 单个长驻 goroutine 独占 dir 目录 每个键对应一个 key-<key> 文件
// 文件内容即值本身 其余 goroutine 只能通过信箱提交命令并等待应答
//
// actor 串行处理命令 同一个键上的两次写入不可能交错
// 读也只会观察到完整的旧值或完整的新值 文件级别的锁并不可移植
// 串行化是这里保证一致性的唯一手段
//
// 信箱有界 写满时提交方挂起 等价于对该链接的自然背压
type fsStore struct {
	dir     string
	mailbox chan fsCommand

	stop chan struct{} // 通知 actor 退出
	done chan struct{} // actor 已退出
	once sync.Once
}

// NewFSStore 创建文件系统后端并启动 actor
//
// 目录不存在时自动创建
func NewFSStore(config FSConfig) (Store, error) {
	if config.Dir == "" {
		config.Dir = defaultDir
	}
	if config.Mailbox <= 0 {
		config.Mailbox = defaultMailbox
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "storage: create database dir")
	}

	s := &fsStore{
		dir:     config.Dir,
		mailbox: make(chan fsCommand, config.Mailbox),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go s.run()
	return s, nil
}

func (s *fsStore) run() {
	defer rescue.HandleCrash("fsstore")
	defer close(s.done)

	for {
		select {
		case cmd := <-s.mailbox:
			// 应答通道带一个缓冲位 链接先行退出也不会阻塞 actor
			cmd.reply <- s.handle(cmd)

		case <-s.stop:
			return
		}
	}
}

func (s *fsStore) handle(cmd fsCommand) fsResult {
	switch cmd.op {
	case fsOpPut:
		err := os.WriteFile(s.filename(cmd.key), []byte(cmd.value), 0o644)
		if err != nil {
			return fsResult{err: errors.Wrap(err, "storage: write key file")}
		}
		return fsResult{}

	case fsOpGet:
		b, err := os.ReadFile(s.filename(cmd.key))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fsResult{err: ErrNotFound}
			}
			return fsResult{err: errors.Wrap(err, "storage: read key file")}
		}
		return fsResult{value: string(b)}
	}
	return fsResult{err: errors.Errorf("storage: unknown fs op %d", cmd.op)}
}

func (s *fsStore) filename(key string) string {
	return filepath.Join(s.dir, filePrefix+key)
}

// submit 投递命令并等待应答 提交与等待都可被 ctx 或后端关闭打断
func (s *fsStore) submit(ctx context.Context, cmd fsCommand) (fsResult, error) {
	cmd.reply = make(chan fsResult, 1)

	if err := ctx.Err(); err != nil {
		return fsResult{}, err
	}

	select {
	case s.mailbox <- cmd:
	case <-s.done:
		return fsResult{}, ErrClosed
	case <-ctx.Done():
		return fsResult{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-s.done:
		return fsResult{}, ErrClosed
	case <-ctx.Done():
		return fsResult{}, ctx.Err()
	}
}

func (s *fsStore) Put(ctx context.Context, key, value string) error {
	res, err := s.submit(ctx, fsCommand{op: fsOpPut, key: key, value: value})
	if err != nil {
		return err
	}
	return res.err
}

func (s *fsStore) Get(ctx context.Context, key string) (string, error) {
	res, err := s.submit(ctx, fsCommand{op: fsOpGet, key: key})
	if err != nil {
		return "", err
	}
	if res.err != nil {
		return "", res.err
	}
	return res.value, nil
}

func (s *fsStore) Name() string {
	return BackendFS
}

func (s *fsStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
