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
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

// messageSpec describes one message to build. It is filled either from the
// flags of an encode subcommand or from a [[message]] table of a message
// file.
type messageSpec struct {
	Type string `toml:"type"`

	// OPEN
	AS           uint32   `toml:"as"`
	HoldTime     *uint16  `toml:"hold-time"`
	RouterID     string   `toml:"router-id"`
	Capabilities []string `toml:"capabilities"`

	// NOTIFICATION
	Code     uint8  `toml:"code"`
	Subcode  uint8  `toml:"subcode"`
	Data     string `toml:"data"`
	Shutdown string `toml:"shutdown"`

	// ROUTE-REFRESH
	Family      string `toml:"family"`
	Demarcation uint8  `toml:"demarcation"`

	// UPDATE
	MultiProtocol    bool     `toml:"multiprotocol"`
	Origin           string   `toml:"origin"`
	AsPath           []uint32 `toml:"as-path"`
	AsSet            []uint32 `toml:"as-set"`
	NextHop          string   `toml:"next-hop"`
	LinkLocalNextHop string   `toml:"link-local-next-hop"`
	Med              *uint32  `toml:"med"`
	LocalPref        *uint32  `toml:"local-pref"`
	Communities      []string `toml:"communities"`
	Announce         []string `toml:"announce"`
	Withdraw         []string `toml:"withdraw"`
}

type messageFile struct {
	Messages []messageSpec `toml:"message"`
}

func readMessageFile(path string) ([]messageSpec, error) {
	f := messageFile{}
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read message file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return f.Messages, nil
}

func (s *messageSpec) build(opt *bgp.MarshallingOption) ([]*bgp.BGPMessage, error) {
	var m *bgp.BGPMessage
	var err error
	switch s.Type {
	case cmdKeepalive:
		m, err = bgp.NewKeepaliveBuilder().Build()
	case cmdNotification:
		m, err = s.buildNotification(opt)
	case cmdOpen:
		m, err = s.buildOpen()
	case cmdRouteRefresh:
		m, err = s.buildRouteRefresh()
	case cmdUpdate:
		return s.buildUpdate(opt)
	default:
		return nil, fmt.Errorf("unknown message type %q", s.Type)
	}
	if err != nil {
		return nil, err
	}
	return []*bgp.BGPMessage{m}, nil
}

func (s *messageSpec) buildNotification(opt *bgp.MarshallingOption) (*bgp.BGPMessage, error) {
	b := bgp.NewNotificationBuilder().WithOptions(opt)
	if s.Shutdown != "" {
		if s.Data != "" {
			return nil, fmt.Errorf("shutdown reason and data can't be used together")
		}
		return b.Shutdown(s.Shutdown).Build()
	}
	b.Code(s.Code).Subcode(s.Subcode)
	if s.Data != "" {
		data, err := parseHex([]string{s.Data})
		if err != nil {
			return nil, err
		}
		b.Data(data)
	}
	return b.Build()
}

func (s *messageSpec) buildOpen() (*bgp.BGPMessage, error) {
	caps := bgp.NewCapabilitiesBuilder()
	for _, name := range s.Capabilities {
		switch name {
		case "route-refresh":
			caps.RouteRefresh()
		case "four-octet-as":
			caps.FourOctetAS(s.AS)
		case "extended-message":
			caps.ExtendedMessage()
		case "enh-ipv4-over-ipv6":
			caps.ENHIPv4OverIPv6()
		case "enh-ipv6-over-ipv4":
			caps.ENHIPv6OverIPv4()
		default:
			f, err := bgp.GetFamily(name)
			if err != nil {
				return nil, fmt.Errorf("unknown capability %q", name)
			}
			caps.MultiProtocol(f)
		}
	}
	b := bgp.NewOpenBuilder().AS(s.AS).Capabilities(caps.Build()...)
	if s.HoldTime != nil {
		b.HoldTime(*s.HoldTime)
	}
	if s.RouterID != "" {
		id, err := netip.ParseAddr(s.RouterID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid router id")
		}
		b.RouterID(id)
	}
	return b.Build()
}

func (s *messageSpec) buildRouteRefresh() (*bgp.BGPMessage, error) {
	b := bgp.NewRouteRefreshBuilder().Demarcation(s.Demarcation)
	if s.Family != "" {
		f, err := bgp.GetFamily(s.Family)
		if err != nil {
			return nil, err
		}
		b.Family(f)
	}
	return b.Build()
}

var originNames = map[string]uint8{
	"igp":        bgp.BGP_ORIGIN_ATTR_TYPE_IGP,
	"egp":        bgp.BGP_ORIGIN_ATTR_TYPE_EGP,
	"incomplete": bgp.BGP_ORIGIN_ATTR_TYPE_INCOMPLETE,
}

var wellKnownCommunities = map[string]uint32{
	"no-export":           bgp.COMMUNITY_NO_EXPORT,
	"no-advertise":        bgp.COMMUNITY_NO_ADVERTISE,
	"no-export-subconfed": bgp.COMMUNITY_NO_EXPORT_SUBCONFED,
}

// parseCommunity accepts "AS:VALUE", a plain number or a well-known name.
func parseCommunity(s string) (uint32, error) {
	if v, ok := wellKnownCommunities[strings.ToLower(s)]; ok {
		return v, nil
	}
	if as, value, found := strings.Cut(s, ":"); found {
		hi, err := strconv.ParseUint(as, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid community %q", s)
		}
		lo, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid community %q", s)
		}
		return uint32(hi)<<16 | uint32(lo), nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid community %q", s)
	}
	return uint32(v), nil
}

func parsePrefixes(l []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(l))
	for _, s := range l {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

func (s *messageSpec) buildUpdate(opt *bgp.MarshallingOption) ([]*bgp.BGPMessage, error) {
	b := bgp.NewUpdateBuilder().WithOptions(opt).MultiProtocol(s.MultiProtocol)

	withdrawn, err := parsePrefixes(s.Withdraw)
	if err != nil {
		return nil, err
	}
	announced, err := parsePrefixes(s.Announce)
	if err != nil {
		return nil, err
	}
	b.Withdraw(withdrawn...).Announce(announced...)

	origin := s.Origin
	if origin == "" && len(announced) > 0 {
		origin = "igp"
	}
	if origin != "" {
		v, ok := originNames[strings.ToLower(origin)]
		if !ok {
			return nil, fmt.Errorf("unknown origin %q", origin)
		}
		b.Origin(v)
	}
	if len(s.AsPath) > 0 {
		b.AsPathSegment(bgp.BGP_ASPATH_ATTR_TYPE_SEQ, s.AsPath...)
	}
	if len(s.AsSet) > 0 {
		b.AsPathSegment(bgp.BGP_ASPATH_ATTR_TYPE_SET, s.AsSet...)
	}
	if s.NextHop != "" {
		addr, err := netip.ParseAddr(s.NextHop)
		if err != nil {
			return nil, errors.Wrap(err, "invalid next hop")
		}
		b.NextHop(addr)
	}
	if s.LinkLocalNextHop != "" {
		addr, err := netip.ParseAddr(s.LinkLocalNextHop)
		if err != nil {
			return nil, errors.Wrap(err, "invalid link local next hop")
		}
		b.LinkLocalNextHop(addr)
	}
	if s.Med != nil {
		b.PathAttribute(bgp.NewPathAttributeMultiExitDisc(*s.Med))
	}
	if s.LocalPref != nil {
		b.PathAttribute(bgp.NewPathAttributeLocalPref(*s.LocalPref))
	}
	if len(s.Communities) > 0 {
		values := make([]uint32, 0, len(s.Communities))
		for _, c := range s.Communities {
			v, err := parseCommunity(c)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		b.PathAttribute(bgp.NewPathAttributeCommunities(values))
	}
	return b.BuildAll()
}
