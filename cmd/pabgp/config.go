// Copyright (C) 2015 Nippon Telegraph and Telephone Corporation.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pabgp/pabgp/pkg/config"
)

func exampleConfig() *config.Config {
	return &config.Config{
		Codec: config.CodecConfig{
			FourOctetAs:     true,
			ExtendedMessage: true,
			Families:        []string{"ipv4-unicast", "ipv6-unicast"},
			ExtendedNextHop: []config.ExtendedNextHop{
				{
					Family:        "ipv4-unicast",
					NexthopFamily: "ipv6",
				},
			},
		},
		Log: config.LogConfig{
			Level:  config.DEFAULT_LOG_LEVEL,
			Format: config.DEFAULT_LOG_FORMAT,
		},
	}
}

func printConfig(cmd *cobra.Command, c *config.Config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(c); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), buffer.String())
	return nil
}

func newConfigCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   cmdShow,
		Short: "print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd, conf)
		},
	}
	exampleCmd := &cobra.Command{
		Use:   cmdExample,
		Short: "print an example configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd, exampleConfig())
		},
	}
	configCmd := &cobra.Command{
		Use: cmdConfig,
	}
	configCmd.AddCommand(showCmd, exampleCmd)
	return configCmd
}
