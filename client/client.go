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

// Package client 实现协议的客户端
//
// Conn 是单条链接上的同步请求应答 Client 在其上叠加链接池
// 服务端从不返回错误响应 链接被对端关闭即意味着请求非法或服务端异常
package client

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/kvstored/kvstored/protocol/dollar"
)

var (
	// ErrInvalidToken 键或值包含小写字母之外的字节
	ErrInvalidToken = errors.New("client: key/value must be lowercase letters")

	// ErrBadReply 服务端响应不符合协议
	ErrBadReply = errors.New("client: malformed reply")
)

const readChunkSize = 1024

// Conn 单条客户端链接
//
// 应答同请求一样可能被传输层任意切分 读取侧同样需要累积和流式解析
type Conn struct {
	nc    net.Conn
	buf   []byte
	chunk []byte
}

// Dial 建立到服务端的链接
func Dial(ctx context.Context, address string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return NewConn(nc), nil
}

// NewConn 从已建立的 net.Conn 创建 Conn
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc:    nc,
		chunk: make([]byte, readChunkSize),
	}
}

func (c *Conn) Close() error {
	return c.nc.Close()
}

// Store 存储键值 成功对应服务端的 DONE 应答
func (c *Conn) Store(key, value string) error {
	if !dollar.ValidToken(key) || !dollar.ValidToken(value) {
		return ErrInvalidToken
	}

	reply, err := c.do(dollar.Request{Op: dollar.OpStore, Key: key, Value: value})
	if err != nil {
		return err
	}
	if reply.Kind != dollar.ReplyDone {
		return ErrBadReply
	}
	return nil
}

// Load 读取键的当前值 键不存在时 found 为 false
func (c *Conn) Load(key string) (value string, found bool, err error) {
	if !dollar.ValidToken(key) {
		return "", false, ErrInvalidToken
	}

	reply, err := c.do(dollar.Request{Op: dollar.OpLoad, Key: key})
	if err != nil {
		return "", false, err
	}
	switch reply.Kind {
	case dollar.ReplyFound:
		return reply.Value, true, nil
	case dollar.ReplyNotFound:
		return "", false, nil
	}
	return "", false, ErrBadReply
}

// SetDeadline 设置链接读写截止时间
func (c *Conn) SetDeadline(t time.Time) error {
	return c.nc.SetDeadline(t)
}

func (c *Conn) do(req dollar.Request) (dollar.Reply, error) {
	b := dollar.AppendRequest(nil, req)
	if _, err := c.nc.Write(b); err != nil {
		return dollar.Reply{}, errors.Wrap(err, "client: write request")
	}
	return c.readReply()
}

func (c *Conn) readReply() (dollar.Reply, error) {
	for {
		reply, n, st := dollar.ParseReply(c.buf)
		switch st {
		case dollar.StateParsed:
			c.buf = append(c.buf[:0], c.buf[n:]...)
			return reply, nil

		case dollar.StateMalformed:
			return dollar.Reply{}, ErrBadReply
		}

		n, err := c.nc.Read(c.chunk)
		if n > 0 {
			c.buf = append(c.buf, c.chunk[:n]...)
			continue
		}
		if err != nil {
			return dollar.Reply{}, errors.Wrap(err, "client: read reply")
		}
	}
}
