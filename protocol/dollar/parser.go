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

package dollar

// State 解析判定结果
//
// 三种判定对任意字节串构成一个完整划分 其中 Incomplete 与 Malformed
// 的区分是流式解析的关键 前者表示继续补充字节仍可能构成合法请求
// 后者表示无论追加什么字节都救不回来了
type State uint8

const (
	StateParsed State = iota
	StateIncomplete
	StateMalformed
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "Parsed"
	case StateIncomplete:
		return "Incomplete"
	}
	return "Malformed"
}

// ParseRequest 尝试从 b 的起始位置解析一条完整请求
//
// 解析只做判定和切分 不做任何 I/O 也不持有状态 调用方自行累积字节
//
// - StateParsed: b 以一条完整请求开头 返回请求体和它占用的字节数
//   剩余后缀可能已经包含下一条请求 调用方应当继续排空
// - StateIncomplete: b 是某条合法请求的严格前缀 需要继续读取
// - StateMalformed: b 的任何扩展都无法以合法请求开头
//
// STORE 与 LOAD 首字母即可区分 不存在需要回溯的歧义
func ParseRequest(b []byte) (Request, int, State) {
	if len(b) == 0 {
		return Request{}, 0, StateIncomplete
	}

	switch b[0] {
	case litStore[0]:
		return parseStore(b)
	case litLoad[0]:
		return parseLoad(b)
	}
	return Request{}, 0, StateMalformed
}

func parseStore(b []byte) (Request, int, State) {
	i, st := matchLiteral(b, litStore)
	if st != StateParsed {
		return Request{}, 0, st
	}

	j, st := scanField(b, i)
	if st != StateParsed {
		return Request{}, 0, st
	}
	k, st := scanField(b, j+1)
	if st != StateParsed {
		return Request{}, 0, st
	}

	req := Request{
		Op:    OpStore,
		Key:   string(b[i:j]),
		Value: string(b[j+1 : k]),
	}
	return req, k + 1, StateParsed
}

func parseLoad(b []byte) (Request, int, State) {
	i, st := matchLiteral(b, litLoad)
	if st != StateParsed {
		return Request{}, 0, st
	}

	j, st := scanField(b, i)
	if st != StateParsed {
		return Request{}, 0, st
	}

	req := Request{
		Op:  OpLoad,
		Key: string(b[i:j]),
	}
	return req, j + 1, StateParsed
}

// ParseReply 尝试从 b 的起始位置解析一条完整响应
//
// 客户端侧使用 判定语义与 ParseRequest 一致
// DONE / FOUND / NOTFOUND 首字母即可区分
func ParseReply(b []byte) (Reply, int, State) {
	if len(b) == 0 {
		return Reply{}, 0, StateIncomplete
	}

	switch b[0] {
	case bytesDone[0]:
		i, st := matchLiteral(b, bytesDone)
		if st != StateParsed {
			return Reply{}, 0, st
		}
		return Reply{Kind: ReplyDone}, i, StateParsed

	case bytesNotFound[0]:
		i, st := matchLiteral(b, bytesNotFound)
		if st != StateParsed {
			return Reply{}, 0, st
		}
		return Reply{Kind: ReplyNotFound}, i, StateParsed

	case bytesFound[0]:
		i, st := matchLiteral(b, bytesFound)
		if st != StateParsed {
			return Reply{}, 0, st
		}
		j, st := scanField(b, i)
		if st != StateParsed {
			return Reply{}, 0, st
		}
		return Reply{Kind: ReplyFound, Value: string(b[i:j])}, j + 1, StateParsed
	}
	return Reply{}, 0, StateMalformed
}

// matchLiteral 匹配固定字面量前缀 返回字面量之后的偏移
func matchLiteral(b []byte, lit string) (int, State) {
	n := len(b)
	if n > len(lit) {
		n = len(lit)
	}
	if string(b[:n]) != lit[:n] {
		return 0, StateMalformed
	}
	if len(b) < len(lit) {
		return 0, StateIncomplete
	}
	return len(lit), StateParsed
}

// scanField 从偏移 i 开始扫描一个以 Term 结尾的小写字母字段
//
// 返回终止符所在偏移 字段内容为 b[i:j]
func scanField(b []byte, i int) (int, State) {
	for j := i; j < len(b); j++ {
		c := b[j]
		if c == Term {
			return j, StateParsed
		}
		if c < 'a' || c > 'z' {
			return 0, StateMalformed
		}
	}
	return 0, StateIncomplete
}
