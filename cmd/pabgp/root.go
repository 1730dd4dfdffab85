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
	"github.com/spf13/cobra"

	"github.com/pabgp/pabgp/pkg/config"
	"github.com/pabgp/pabgp/pkg/log"
	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

var globalOpts struct {
	ConfigFile      string
	ConfigType      string
	LogLevel        string
	LogJson         bool
	Json            bool
	Pretty          bool
	FourOctetAs     bool
	ExtendedMessage bool
	Families        []string
}

var (
	conf    *config.Config
	options *bgp.MarshallingOption
	logger  = log.NewDefaultLogger()
)

// loadConfig reads the config file, when one is given, and lets the command
// line flags override it.
func loadConfig(cmd *cobra.Command) error {
	c := config.DefaultConfig()
	if globalOpts.ConfigFile != "" {
		var err error
		if c, err = config.ReadConfigfile(globalOpts.ConfigFile, globalOpts.ConfigType); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = globalOpts.LogLevel
	}
	if flags.Changed("log-json") {
		c.Log.Format = "text"
		if globalOpts.LogJson {
			c.Log.Format = "json"
		}
	}
	if flags.Changed("four-octet-as") {
		c.Codec.FourOctetAs = globalOpts.FourOctetAs
	}
	if flags.Changed("extended-message") {
		c.Codec.ExtendedMessage = globalOpts.ExtendedMessage
	}
	if flags.Changed("family") {
		c.Codec.Families = globalOpts.Families
	}

	opt, err := c.Codec.MarshallingOption()
	if err != nil {
		return err
	}
	l := log.NewDefaultLogger()
	l.SetOutput(cmd.ErrOrStderr())
	if err := c.Log.Apply(l); err != nil {
		return err
	}
	conf, options, logger = c, opt, l
	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pabgp",
		Short:         "decode and encode BGP-4 messages",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.HelpFunc()(cmd, args)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalOpts.ConfigFile, "config-file", "f", "", "specifying a config file")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.ConfigType, "config-type", "t", "", "specifying config type (toml, yaml, json), guessed from the file name when empty")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.LogLevel, "log-level", "l", config.DEFAULT_LOG_LEVEL, "specifying log level")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.LogJson, "log-json", "", false, "use json format for logging")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Json, "json", "j", false, "use json format to output format")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Pretty, "pretty", "", false, "dump decoded messages field by field")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.FourOctetAs, "four-octet-as", "4", false, "the session negotiated four-octet AS numbers")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.ExtendedMessage, "extended-message", "x", false, "the session negotiated extended messages")
	rootCmd.PersistentFlags().StringSliceVarP(&globalOpts.Families, "family", "a", nil, "negotiated address families, e.g. ipv4-unicast,ipv6-unicast")

	rootCmd.AddCommand(newDecodeCmd(), newEncodeCmd(), newMrtCmd(), newConfigCmd(), newVersionCmd())
	return rootCmd
}
