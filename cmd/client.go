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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvstored/kvstored/client"
)

var clientAddr string

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Issue requests against a running server",
}

func newClient() *client.Client {
	c, err := client.New(client.Config{Address: clientAddr, MaxConns: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
		os.Exit(1)
	}
	return c
}

var clientStoreCmd = &cobra.Command{
	Use:   "store <key> <value>",
	Short: "Store a key-value binding",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient()
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.Store(ctx, args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "store failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("DONE")
	},
	Example: "# kvstored client store mykey myvalue",
}

var clientLoadCmd = &cobra.Command{
	Use:   "load <key>",
	Short: "Load the current value of a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient()
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		value, found, err := c.Load(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
			os.Exit(1)
		}
		if !found {
			fmt.Println("NOTFOUND")
			return
		}
		fmt.Println(value)
	},
	Example: "# kvstored client load mykey",
}

func init() {
	clientCmd.PersistentFlags().StringVar(&clientAddr, "addr", "127.0.0.1:5555", "Server address")
	clientCmd.AddCommand(clientStoreCmd)
	clientCmd.AddCommand(clientLoadCmd)
	rootCmd.AddCommand(clientCmd)
}
