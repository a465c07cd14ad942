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

package cmd

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvstored/kvstored/common"
	"github.com/kvstored/kvstored/confengine"
	"github.com/kvstored/kvstored/controller"
	"github.com/kvstored/kvstored/internal/sigs"
	"github.com/kvstored/kvstored/logger"
)

type serverCmdConfig struct {
	Listen      string
	Backend     string
	Dir         string
	Mailbox     int
	Shards      int
	AdminListen string
	Pprof       bool
	LogLevel    string
}

func (c *serverCmdConfig) Yaml() []byte {
	text := `
logger:
  stdout: true
  level: {{ .LogLevel }}

server:
  address: "{{ .Listen }}"

storage:
  backend: {{ .Backend }}
  memory:
    shards: {{ .Shards }}
  fs:
    dir: {{ .Dir }}
    mailbox: {{ .Mailbox }}

admin:
  enabled: {{ .AdminEnabled }}
  address: "{{ .AdminListen }}"
  pprof: {{ .Pprof }}
`
	tpl, err := template.New("Config").Parse(text)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, map[string]interface{}{
		"Listen":       c.Listen,
		"Backend":      c.Backend,
		"Dir":          c.Dir,
		"Mailbox":      c.Mailbox,
		"Shards":       c.Shards,
		"AdminEnabled": c.AdminListen != "",
		"AdminListen":  c.AdminListen,
		"Pprof":        c.Pprof,
		"LogLevel":     c.LogLevel,
	})
	if err != nil {
		return nil
	}
	return buf.Bytes()
}

var serverConfig serverCmdConfig

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the key-value store server",
	Run: func(cmd *cobra.Command, args []string) {
		var cfg *confengine.Config
		var err error
		if configPath != "" {
			cfg, err = confengine.LoadConfigPath(configPath)
		} else {
			cfg, err = confengine.LoadContent(serverConfig.Yaml())
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		ctr, err := controller.New(cfg, common.BuildInfo{
			Version: version,
			GitHash: gitHash,
			Time:    buildTime,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
			os.Exit(1)
		}
		if err := ctr.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
			os.Exit(1)
		}

		handler := sigs.NewHandler()
		defer handler.Close()

		var reloadTotal int
		for {
			select {
			case <-handler.Terminated():
				if err := ctr.Stop(); err != nil {
					logger.Errorf("failed to stop controller: %v", err)
				}
				return

			case <-handler.Reloaded():
				reloadTotal++
				if configPath == "" {
					continue
				}

				// 需要重新加载配置文件 reload 失败则保持原配置运行
				cfg, err := confengine.LoadConfigPath(configPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to load config (count=%d): %v\n", reloadTotal, err)
					continue
				}

				start := time.Now()
				if err := ctr.Reload(cfg); err != nil {
					logger.Errorf("failed to reload config: %v", err)
				}
				logger.Infof("reload (count=%d) take %s", reloadTotal, time.Since(start))
			}
		}
	},
	Example: "# kvstored server --backend fs --fs.dir database --admin.listen :6066",
}

var configPath string

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "Configuration file path, flags below are ignored when set")
	serverCmd.Flags().StringVar(&serverConfig.Listen, "listen", "0.0.0.0:5555", "Protocol listen address")
	serverCmd.Flags().StringVar(&serverConfig.Backend, "backend", "memory", "Storage backend [memory|fs]")
	serverCmd.Flags().StringVar(&serverConfig.Dir, "fs.dir", "database", "Directory holding key files (fs backend)")
	serverCmd.Flags().IntVar(&serverConfig.Mailbox, "fs.mailbox", 32, "Pending commands allowed in the fs actor mailbox")
	serverCmd.Flags().IntVar(&serverConfig.Shards, "memory.shards", 16, "Map shards (memory backend)")
	serverCmd.Flags().StringVar(&serverConfig.AdminListen, "admin.listen", "", "Admin HTTP listen address, empty disables the admin server")
	serverCmd.Flags().BoolVar(&serverConfig.Pprof, "admin.pprof", false, "Register pprof routes on the admin server")
	serverCmd.Flags().StringVar(&serverConfig.LogLevel, "log.level", "info", "Log level [debug|info|warn|error]")
	rootCmd.AddCommand(serverCmd)
}
