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

// Package adminserver 提供运维侧的 HTTP 服务
//
// 与协议端口完全隔离 默认关闭 仅在配置启用时监听
package adminserver

import (
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kvstored/kvstored/common"
	"github.com/kvstored/kvstored/confengine"
	"github.com/kvstored/kvstored/internal/sigs"
	"github.com/kvstored/kvstored/logger"
)

type Config struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

type Server struct {
	config Config
	router *mux.Router
	server *http.Server
}

// StatusFunc 返回 /-/status 响应中与运行态相关的字段
type StatusFunc func() Status

type Status struct {
	App     string `json:"app"`
	Version string `json:"version"`
	GitHash string `json:"gitHash,omitempty"`
	Uptime  int64  `json:"uptimeSeconds"`
	Backend string `json:"backend"`
	Address string `json:"address"`
}

// New 创建并返回 Server 实例
//
// 当 .Enabled 为 false 时会返回空指针 调用方需先判断
func New(conf *confengine.Config, statusFn StatusFunc) (*Server, error) {
	var config Config
	if err := conf.UnpackSection("admin", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}

	router := mux.NewRouter()
	s := &Server{
		config: config,
		router: router,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}

	s.registerRoutes(statusFn)
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s, nil
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	logger.Infof("admin server listening on %s", s.config.Address)
	return s.server.Serve(l)
}

func (s *Server) Close() error {
	return s.server.Close()
}

func (s *Server) registerRoutes(statusFn StatusFunc) {
	s.router.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())

	s.router.Methods(http.MethodGet).Path("/-/status").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := Status{
			App:     common.App,
			Version: common.Version,
			GitHash: common.GetBuildInfo().GitHash,
			Uptime:  time.Now().Unix() - common.Started(),
		}
		if statusFn != nil {
			got := statusFn()
			status.Backend = got.Backend
			status.Address = got.Address
		}

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(status)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(b)
	})

	s.router.Methods(http.MethodPost).Path("/-/logger").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.SetLevel(r.FormValue("level"))
		w.Write([]byte(`{"status": "success"}`))
	})

	s.router.Methods(http.MethodPost).Path("/-/reload").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sigs.SelfReload(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(err.Error()))
			return
		}
		w.Write([]byte(`{"status": "success"}`))
	})
}

func (s *Server) registerPprofRoutes() {
	s.router.Methods(http.MethodGet).Path("/debug/pprof/cmdline").HandlerFunc(pprof.Cmdline)
	s.router.Methods(http.MethodGet).Path("/debug/pprof/profile").HandlerFunc(pprof.Profile)
	s.router.Methods(http.MethodGet).Path("/debug/pprof/symbol").HandlerFunc(pprof.Symbol)
	s.router.Methods(http.MethodGet).Path("/debug/pprof/trace").HandlerFunc(pprof.Trace)
	s.router.Methods(http.MethodGet).Path("/debug/pprof/{other}").HandlerFunc(pprof.Index)
}
