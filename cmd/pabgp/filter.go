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
	"net/netip"
	"strings"

	radix "github.com/armon/go-radix"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

// prefixToRadixkey spells the network bits of p as a string of '0' and '1'.
func prefixToRadixkey(p netip.Prefix) string {
	var buffer strings.Builder
	b := p.Masked().Addr().AsSlice()
	for i := 0; i < p.Bits(); i++ {
		if b[i/8]&(0x80>>(i%8)) != 0 {
			buffer.WriteByte('1')
		} else {
			buffer.WriteByte('0')
		}
	}
	return buffer.String()
}

// prefixFilter selects UPDATE messages carrying a route covered by one of
// its prefixes. A nil filter selects every message.
type prefixFilter struct {
	trees map[bgp.Family]*radix.Tree
}

func newPrefixFilter(l []string) (*prefixFilter, error) {
	if len(l) == 0 {
		return nil, nil
	}
	f := &prefixFilter{
		trees: map[bgp.Family]*radix.Tree{
			bgp.RF_IPv4_UC: radix.New(),
			bgp.RF_IPv6_UC: radix.New(),
		},
	}
	prefixes, err := parsePrefixes(l)
	if err != nil {
		return nil, err
	}
	for _, p := range prefixes {
		p = p.Masked()
		f.tree(p).Insert(prefixToRadixkey(p), p)
	}
	return f, nil
}

func (f *prefixFilter) tree(p netip.Prefix) *radix.Tree {
	if p.Addr().Is4() {
		return f.trees[bgp.RF_IPv4_UC]
	}
	return f.trees[bgp.RF_IPv6_UC]
}

func (f *prefixFilter) covers(routes []*bgp.IPAddrPrefix) bool {
	for _, r := range routes {
		if _, _, found := f.tree(r.Prefix).LongestPrefix(prefixToRadixkey(r.Prefix)); found {
			return true
		}
	}
	return false
}

func (f *prefixFilter) match(msg *bgp.BGPMessage) bool {
	if f == nil {
		return true
	}
	if msg == nil {
		return false
	}
	u, ok := msg.Body.(*bgp.BGPUpdate)
	if !ok {
		return false
	}
	if f.covers(u.WithdrawnRoutes) || f.covers(u.NLRI) {
		return true
	}
	for _, a := range u.PathAttributes {
		switch a := a.(type) {
		case *bgp.PathAttributeMpReachNLRI:
			if f.covers(a.Value) {
				return true
			}
		case *bgp.PathAttributeMpUnreachNLRI:
			if f.covers(a.Value) {
				return true
			}
		}
	}
	return false
}
