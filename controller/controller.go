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

// Package controller 负责组装并驱动所有组件
package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/kvstored/kvstored/adminserver"
	"github.com/kvstored/kvstored/common"
	"github.com/kvstored/kvstored/confengine"
	"github.com/kvstored/kvstored/internal/rescue"
	"github.com/kvstored/kvstored/logger"
	"github.com/kvstored/kvstored/server"
	"github.com/kvstored/kvstored/storage"
)

type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	buildInfo common.BuildInfo

	store storage.Store
	svr   *server.Server
	admin *adminserver.Server
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackSection("logger", &opts); err != nil {
		return err
	}

	logger.SetOptions(opts)
	return nil
}

func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	store, err := storage.New(conf)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	admin, err := adminserver.New(conf, func() adminserver.Status {
		return adminserver.Status{
			Backend: store.Name(),
			Address: svr.Address(),
		}
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		buildInfo: buildInfo,
		store:     store,
		svr:       svr,
		admin:     admin,
	}, nil
}

// Start 启动所有组件 监听失败属于启动错误 直接返回
func (c *Controller) Start() error {
	if err := c.svr.Listen(); err != nil {
		return errors.Wrap(err, "bind protocol listener")
	}

	go func() {
		defer rescue.HandleCrash("server")
		if err := c.svr.Serve(); err != nil {
			logger.Errorf("protocol server exited: %v", err)
		}
	}()

	if c.admin != nil {
		go func() {
			defer rescue.HandleCrash("admin")
			err := c.admin.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("admin server exited: %v", err)
			}
		}()
	}

	bi := c.buildInfo
	buildInfo.WithLabelValues(bi.Version, bi.GitHash, bi.Time).Inc()
	go c.loopUptime()

	logger.Infof("started with %s backend", c.store.Name())
	return nil
}

func (c *Controller) loopUptime() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			uptime.Set(float64(time.Now().Unix() - common.Started()))

		case <-c.ctx.Done():
			return
		}
	}
}

// Reload 重载配置 目前仅日志配置支持热更
func (c *Controller) Reload(conf *confengine.Config) error {
	return setupLogger(conf)
}

// Stop 关闭所有组件 先停接入层再停后端
func (c *Controller) Stop() error {
	c.cancel()

	var errs *multierror.Error
	errs = multierror.Append(errs, c.svr.Close())
	if c.admin != nil {
		errs = multierror.Append(errs, c.admin.Close())
	}
	errs = multierror.Append(errs, c.store.Close())
	return errs.ErrorOrNil()
}
