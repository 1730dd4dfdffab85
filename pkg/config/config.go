// Copyright (C) 2016 Nippon Telegraph and Telephone Corporation.
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

// Package config loads the negotiation context and logging settings of the
// pabgp tools from a toml, yaml or json file.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/pabgp/pabgp/pkg/log"
	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

const (
	DEFAULT_LOG_LEVEL  = "info"
	DEFAULT_LOG_FORMAT = "text"
)

type ExtendedNextHop struct {
	Family        string `mapstructure:"family" toml:"family"`
	NexthopFamily string `mapstructure:"nexthop-family" toml:"nexthop-family"`
}

// CodecConfig describes what a session negotiated. Families and next hop
// families use the names printed by bgp.Family, e.g. "ipv6-unicast".
type CodecConfig struct {
	FourOctetAs     bool              `mapstructure:"four-octet-as" toml:"four-octet-as"`
	ExtendedMessage bool              `mapstructure:"extended-message" toml:"extended-message"`
	Families        []string          `mapstructure:"families" toml:"families"`
	ExtendedNextHop []ExtendedNextHop `mapstructure:"extended-next-hop" toml:"extended-next-hop"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

type Config struct {
	Codec CodecConfig `mapstructure:"codec" toml:"codec"`
	Log   LogConfig   `mapstructure:"log" toml:"log"`
}

// ReadConfigfile reads path as a config file of the given format ("toml",
// "yaml" or "json"). An empty format is guessed from the file extension.
func ReadConfigfile(path, format string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if format != "" {
		v.SetConfigType(format)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	c := &Config{}
	if err := v.UnmarshalExact(c); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	if err := SetDefaultConfigValues(v, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetDefaultConfigValues fills in what the file left out and checks the
// result.
func SetDefaultConfigValues(v *viper.Viper, c *Config) error {
	if v == nil {
		v = viper.New()
	}
	if !v.IsSet("codec.families") {
		c.Codec.Families = []string{bgp.RF_IPv4_UC.String()}
	}
	if !v.IsSet("log.level") {
		c.Log.Level = DEFAULT_LOG_LEVEL
	}
	if !v.IsSet("log.format") {
		c.Log.Format = DEFAULT_LOG_FORMAT
	}
	if _, err := c.Codec.MarshallingOption(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func afiFromName(name string) (uint16, error) {
	switch strings.ToLower(name) {
	case "ipv4":
		return bgp.AFI_IP, nil
	case "ipv6":
		return bgp.AFI_IP6, nil
	}
	return 0, fmt.Errorf("%s isn't a valid address family name", name)
}

// MarshallingOption converts c into the option handed to the codec.
func (c *CodecConfig) MarshallingOption() (*bgp.MarshallingOption, error) {
	opt := &bgp.MarshallingOption{
		AS4:             c.FourOctetAs,
		ExtendedMessage: c.ExtendedMessage,
	}
	for _, name := range c.Families {
		f, err := bgp.GetFamily(name)
		if err != nil {
			return nil, err
		}
		opt.Families = append(opt.Families, f)
	}
	for _, e := range c.ExtendedNextHop {
		f, err := bgp.GetFamily(e.Family)
		if err != nil {
			return nil, err
		}
		afi, err := afiFromName(e.NexthopFamily)
		if err != nil {
			return nil, err
		}
		if f.Afi() == afi {
			return nil, fmt.Errorf("extended next hop for %s needs a different next hop family, got %s", e.Family, e.NexthopFamily)
		}
		opt.ExtendedNexthop = append(opt.ExtendedNexthop, bgp.NewCapExtendedNexthopTuple(f, afi))
	}
	return opt, nil
}

// Apply sets the level and format of logger.
func (c *LogConfig) Apply(logger *log.DefaultLogger) error {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	logger.SetJSONFormat(c.Format == "json")
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	c := &Config{}
	if err := SetDefaultConfigValues(nil, c); err != nil {
		panic(err)
	}
	return c
}
