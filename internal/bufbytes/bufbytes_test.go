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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Append([]byte("abcd")))
	require.NoError(t, b.Append([]byte("efgh")))
	assert.Equal(t, "abcdefgh", string(b.Bytes()))
	assert.Equal(t, 8, b.Len())
}

func TestAppendOverflow(t *testing.T) {
	b := New(4)
	require.NoError(t, b.Append([]byte("abcd")))

	err := b.Append([]byte("e"))
	assert.ErrorIs(t, err, ErrOverflow)

	// 报错后缓冲区保持原样
	assert.Equal(t, "abcd", string(b.Bytes()))
}

func TestDiscard(t *testing.T) {
	b := New(16)
	require.NoError(t, b.Append([]byte("abcdefgh")))

	b.Discard(3)
	assert.Equal(t, "defgh", string(b.Bytes()))

	b.Discard(0)
	assert.Equal(t, "defgh", string(b.Bytes()))

	b.Discard(100)
	assert.Equal(t, 0, b.Len())
}

// TestDiscardFreesLimit 消费过的字节不再占用上限额度
func TestDiscardFreesLimit(t *testing.T) {
	b := New(4)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Append([]byte("abcd")))
		b.Discard(4)
	}
	assert.Equal(t, 0, b.Len())
}

func TestReset(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Append([]byte("abcd")))
	b.Reset()
	assert.Equal(t, 0, b.Len())
	require.NoError(t, b.Append([]byte("abcdefgh")))
}
