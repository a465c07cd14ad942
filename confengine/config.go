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

// Package confengine 装载并切分 yaml 配置
//
// 配置按组件分段 logger / server / storage / admin
// 每个组件声明一个带 config tag 的结构体 通过 UnpackSection 取走自己的段
// 所有段都可以缺省 缺省段不报错 组件用零值配置走自身的默认值逻辑
package confengine

import (
	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
)

// 两个入口共用同一组解析选项 嵌套键使用 `.` 访问
var loadOpts = []ucfg.Option{ucfg.PathSep(".")}

// Config 一次装载后的完整配置
type Config struct {
	conf *ucfg.Config
}

// UnpackSection 将 name 段解析到 to 中
//
// 段不存在时不动 to 调用方的零值判断随后落到各自的默认值
// 段存在但类型不符时报错 配置写错了不应该被静默吞掉
func (c *Config) UnpackSection(name string, to any) error {
	ok, err := c.conf.Has(name, -1, loadOpts...)
	if err != nil || !ok {
		return err
	}

	section, err := c.conf.Child(name, -1, loadOpts...)
	if err != nil {
		return err
	}
	return section.Unpack(to, loadOpts...)
}

// LoadConfigPath 从配置文件装载
func LoadConfigPath(path string) (*Config, error) {
	conf, err := yaml.NewConfigWithFile(path, loadOpts...)
	if err != nil {
		return nil, err
	}
	return &Config{conf: conf}, nil
}

// LoadContent 从内存中的 yaml 内容装载 供命令行拼装配置使用
func LoadContent(b []byte) (*Config, error) {
	conf, err := yaml.NewConfig(b, loadOpts...)
	if err != nil {
		return nil, err
	}
	return &Config{conf: conf}, nil
}
