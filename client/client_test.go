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

package client

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvstored/kvstored/confengine"
	"github.com/kvstored/kvstored/server"
	"github.com/kvstored/kvstored/storage"
)

func startServer(t *testing.T) string {
	conf, err := confengine.LoadContent([]byte("server:\n  address: \"127.0.0.1:0\"\n"))
	require.NoError(t, err)

	svr, err := server.New(conf, storage.NewMemStore(storage.MemoryConfig{}))
	require.NoError(t, err)
	require.NoError(t, svr.Listen())

	go svr.Serve()
	t.Cleanup(func() { svr.Close() })

	return svr.Addr().String()
}

func TestClientStoreLoad(t *testing.T) {
	addr := startServer(t)

	c, err := New(Config{Address: addr})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Store(ctx, "key", "value"))

	value, found, err := c.Load(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)
}

func TestClientLoadMissing(t *testing.T) {
	addr := startServer(t)

	c, err := New(Config{Address: addr})
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClientInvalidToken(t *testing.T) {
	addr := startServer(t)

	c, err := New(Config{Address: addr})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	assert.ErrorIs(t, c.Store(ctx, "Key", "value"), ErrInvalidToken)
	assert.ErrorIs(t, c.Store(ctx, "key", "va1ue"), ErrInvalidToken)

	_, _, err = c.Load(ctx, "key$")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClientEmptyKey(t *testing.T) {
	addr := startServer(t)

	c, err := New(Config{Address: addr})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Store(ctx, "", "value"))

	value, found, err := c.Load(ctx, "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)
}

// TestConnFragmentedReply 应答被切分为多个分片时客户端仍能完整解析
func TestConnFragmentedReply(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 64)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		for _, fragment := range []string{"FOU", "ND$val", "ue$"} {
			conn.Write([]byte(fragment))
		}
	}()

	c, err := Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	value, found, err := c.Load("key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)
}
