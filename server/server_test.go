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
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvstored/kvstored/confengine"
	"github.com/kvstored/kvstored/storage"
)

func newTestStore(t *testing.T, backend string) storage.Store {
	switch backend {
	case storage.BackendFS:
		s, err := storage.NewFSStore(storage.FSConfig{Dir: filepath.Join(t.TempDir(), "database")})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	default:
		return storage.NewMemStore(storage.MemoryConfig{})
	}
}

func startServer(t *testing.T, store storage.Store) string {
	conf, err := confengine.LoadContent([]byte("server:\n  address: \"127.0.0.1:0\"\n"))
	require.NoError(t, err)

	svr, err := New(conf, store)
	require.NoError(t, err)
	require.NoError(t, svr.Listen())

	go svr.Serve()
	t.Cleanup(func() { svr.Close() })

	return svr.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readExact(t *testing.T, conn net.Conn, n int) string {
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return string(buf)
}

// 两种后端必须产生逐字节一致的协议输出
var backends = []string{storage.BackendMemory, storage.BackendFS}

func TestServeStore(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))
			conn := dial(t, addr)

			_, err := conn.Write([]byte("STORE$key$value$"))
			require.NoError(t, err)
			assert.Equal(t, "DONE$", readExact(t, conn, 5))
		})
	}
}

func TestServeStoreThenLoad(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))
			conn := dial(t, addr)

			_, err := conn.Write([]byte("STORE$k$v$"))
			require.NoError(t, err)
			assert.Equal(t, "DONE$", readExact(t, conn, 5))

			_, err = conn.Write([]byte("LOAD$k$"))
			require.NoError(t, err)
			assert.Equal(t, "FOUND$v$", readExact(t, conn, 8))
		})
	}
}

func TestServeLoadMissing(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))
			conn := dial(t, addr)

			_, err := conn.Write([]byte("LOAD$missing$"))
			require.NoError(t, err)
			assert.Equal(t, "NOTFOUND$", readExact(t, conn, 9))
		})
	}
}

// TestServePipelined 单次写入搭载多条请求 响应按请求顺序拼接
func TestServePipelined(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))
			conn := dial(t, addr)

			_, err := conn.Write([]byte("STORE$a$one$STORE$a$two$LOAD$a$"))
			require.NoError(t, err)
			assert.Equal(t, "DONE$DONE$FOUND$two$", readExact(t, conn, 20))
		})
	}
}

// TestServeFragmented 请求被传输层切分为多个分片 间隔到达
func TestServeFragmented(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))
			conn := dial(t, addr)

			for _, fragment := range []string{"STO", "RE$k", "ey$v", "alu", "e$"} {
				_, err := conn.Write([]byte(fragment))
				require.NoError(t, err)
				time.Sleep(10 * time.Millisecond)
			}
			assert.Equal(t, "DONE$", readExact(t, conn, 5))
		})
	}
}

// TestServeMalformed 非法输入直接关闭链接 不写出任何字节
func TestServeMalformed(t *testing.T) {
	inputs := []string{
		"STORE$1$v$",
		"STOE$",
		"aSTORE$k$v$",
		"LOAD$K$a",
		"STORE$A$v$abc",
	}

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))

			for _, input := range inputs {
				conn := dial(t, addr)

				_, err := conn.Write([]byte(input))
				require.NoError(t, err)

				// 静默关闭是唯一的出错信号 对端正常 FIN 或 RST 都算
				buf := make([]byte, 1)
				n, err := conn.Read(buf)
				assert.Equalf(t, 0, n, "input=%q", input)
				assert.Errorf(t, err, "input=%q", input)
			}
		})
	}
}

// TestServeConcurrentWriters 两条链接写同一个键 后写者胜出
func TestServeConcurrentWriters(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))

			connA := dial(t, addr)
			connB := dial(t, addr)

			_, err := connA.Write([]byte("STORE$x$a$"))
			require.NoError(t, err)
			_, err = connB.Write([]byte("STORE$x$b$"))
			require.NoError(t, err)

			assert.Equal(t, "DONE$", readExact(t, connA, 5))
			assert.Equal(t, "DONE$", readExact(t, connB, 5))

			_, err = connA.Write([]byte("LOAD$x$"))
			require.NoError(t, err)
			assert.Equal(t, "FOUND$", readExact(t, connA, 6))

			value := readExact(t, connA, 2)
			assert.Contains(t, []string{"a$", "b$"}, value)
		})
	}
}

func TestServeEmptyKey(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			addr := startServer(t, newTestStore(t, backend))
			conn := dial(t, addr)

			_, err := conn.Write([]byte("STORE$$value$LOAD$$"))
			require.NoError(t, err)
			assert.Equal(t, "DONE$FOUND$value$", readExact(t, conn, 17))
		})
	}
}

// TestServeBufferOverflow 超出累积缓冲区上限的输入按恶意处理
func TestServeBufferOverflow(t *testing.T) {
	store := newTestStore(t, storage.BackendMemory)
	conf, err := confengine.LoadContent([]byte(
		"server:\n  address: \"127.0.0.1:0\"\n  maxBuffered: 64\n"))
	require.NoError(t, err)

	svr, err := New(conf, store)
	require.NoError(t, err)
	require.NoError(t, svr.Listen())
	go svr.Serve()
	t.Cleanup(func() { svr.Close() })

	conn := dial(t, svr.Addr().String())

	// 一条永远不会闭合的超长请求
	payload := []byte("STORE$")
	for len(payload) < 128 {
		payload = append(payload, 'a')
	}
	_, err = conn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	assert.Equal(t, 0, n)
	assert.Error(t, err)
}
