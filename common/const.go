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

package common

const (
	// App 应用程序名称
	App = "kvstored"

	// Version 应用程序版本
	Version = "v0.1.0"

	// ReadChunkSize 单次 socket read 的最大字节数
	//
	// 传输层不保证请求边界 一次 read 可能只拿到请求的一个分片
	// 也可能同时拿到多条请求 读多少由解析器决定不了 只能先累积
	ReadChunkSize = 1024

	// MaxAccumulateSize 单条链接累积缓冲区的字节上限
	//
	// 协议本身不限制请求长度 上限仅作为 DoS 防护
	// 超出即按 Malformed 处理并关闭链接 对正常客户端不可见
	MaxAccumulateSize = 1 << 20
)
