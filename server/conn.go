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

package server

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/kvstored/kvstored/common"
	"github.com/kvstored/kvstored/internal/bufbytes"
	"github.com/kvstored/kvstored/internal/rescue"
	"github.com/kvstored/kvstored/logger"
	"github.com/kvstored/kvstored/protocol/dollar"
	"github.com/kvstored/kvstored/storage"
)

const (
	defaultReadChunkSize = common.ReadChunkSize
	defaultMaxBuffered   = common.MaxAccumulateSize
)

// connHandler 单条链接的驱动器
//
// 读取到的字节先进入累积缓冲区 再由解析器反复排空
// 一次 read 可能携带半条请求 也可能携带多条 两种情况都不依赖边界
//
// 任何错误 读写失败 / 非法输入 / 后端失败 都以关闭链接收场
// 协议没有错误响应 静默关闭是唯一的出错信号
type connHandler struct {
	conn  net.Conn
	store storage.Store
	log   logger.Logger

	buf   *bufbytes.Bytes
	chunk []byte
}

func newConnHandler(conn net.Conn, store storage.Store, config Config) *connHandler {
	return &connHandler{
		conn:  conn,
		store: store,
		log:   logger.With("conn", uuid.New().String()),
		buf:   bufbytes.New(config.MaxBuffered),
		chunk: make([]byte, config.ReadChunkSize),
	}
}

func (h *connHandler) run(ctx context.Context) {
	defer rescue.HandleCrash("conn")
	defer h.conn.Close()

	h.log.Debugf("accepted from %s", h.conn.RemoteAddr())

	for {
		n, err := h.conn.Read(h.chunk)
		if n > 0 {
			receivedBytesTotal.Add(float64(n))
			if aerr := h.buf.Append(h.chunk[:n]); aerr != nil {
				overflowClosesTotal.Inc()
				h.log.Warnf("input dropped: %v", aerr)
				return
			}
			if derr := h.drain(ctx); derr != nil {
				h.log.Debugf("closing: %v", derr)
				return
			}
		}
		if err != nil {
			// EOF / 对端重置 / 读失败 统一结束链接
			h.log.Debugf("read finished: %v", err)
			return
		}
	}
}

// drain 排空阶段 尽可能多地从缓冲区解析出完整请求
//
// 响应必须按请求在链接上出现的顺序逐条写出 写完一条才处理下一条
func (h *connHandler) drain(ctx context.Context) error {
	for {
		req, n, st := dollar.ParseRequest(h.buf.Bytes())
		switch st {
		case dollar.StateIncomplete:
			return nil

		case dollar.StateMalformed:
			malformedClosesTotal.Inc()
			return dollar.ErrMalformed
		}

		h.buf.Discard(n)
		if err := h.serve(ctx, req); err != nil {
			return err
		}
	}
}

func (h *connHandler) serve(ctx context.Context, req dollar.Request) error {
	var reply dollar.Reply

	switch req.Op {
	case dollar.OpStore:
		if err := h.store.Put(ctx, req.Key, req.Value); err != nil {
			storeErrorsTotal.Inc()
			return errors.Wrap(err, "store request")
		}
		reply = dollar.Reply{Kind: dollar.ReplyDone}

	case dollar.OpLoad:
		value, err := h.store.Get(ctx, req.Key)
		switch {
		case err == nil:
			reply = dollar.Reply{Kind: dollar.ReplyFound, Value: value}
		case errors.Is(err, storage.ErrNotFound):
			reply = dollar.Reply{Kind: dollar.ReplyNotFound}
		default:
			storeErrorsTotal.Inc()
			return errors.Wrap(err, "load request")
		}
	}
	requestsTotal.WithLabelValues(req.Op.String()).Inc()

	return h.write(reply)
}

func (h *connHandler) write(reply dollar.Reply) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	bb.B = dollar.AppendReply(bb.B[:0], reply)
	n, err := h.conn.Write(bb.B)
	sentBytesTotal.Add(float64(n))
	if err != nil {
		return errors.Wrap(err, "write reply")
	}
	return nil
}
