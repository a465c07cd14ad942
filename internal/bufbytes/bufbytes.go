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

package bufbytes

import "github.com/pkg/errors"

// ErrOverflow 缓冲区超出上限
var ErrOverflow = errors.New("bufbytes: size limit exceeded")

// Bytes 带上限的累积缓冲区
//
// 保存已经从 socket 读取但尚未被解析器消费的字节
// 上限用于约束恶意或失控的客户端 到达上限后 Append 报错
type Bytes struct {
	limit int
	buf   []byte
}

func New(limit int) *Bytes {
	return &Bytes{limit: limit}
}

// Append 追加 p 到缓冲区末尾 超出上限时返回 ErrOverflow
//
// 报错时缓冲区保持原样 调用方应当终止该链接
func (b *Bytes) Append(p []byte) error {
	if len(b.buf)+len(p) > b.limit {
		return ErrOverflow
	}
	b.buf = append(b.buf, p...)
	return nil
}

// Bytes 返回当前未消费的字节 不发生拷贝
func (b *Bytes) Bytes() []byte {
	return b.buf
}

// Discard 丢弃前 n 个已消费的字节
//
// 剩余字节前移复用底层数组 避免缓冲区随消费无限增长
func (b *Bytes) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.buf) {
		b.buf = b.buf[:0]
		return
	}
	m := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:m]
}

func (b *Bytes) Len() int {
	return len(b.buf)
}

func (b *Bytes) Reset() {
	b.buf = b.buf[:0]
}
