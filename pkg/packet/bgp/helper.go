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

package bgp

import (
	"net/netip"
)

func NewTestBGPOpenMessage() *BGPMessage {
	p1 := NewOptionParameterCapability(
		[]ParameterCapabilityInterface{NewCapRouteRefresh()})
	p2 := NewOptionParameterCapability(
		[]ParameterCapabilityInterface{NewCapMultiProtocol(RF_IPv4_UC), NewCapMultiProtocol(RF_IPv6_UC)})
	p3 := NewOptionParameterCapability(
		[]ParameterCapabilityInterface{NewCapFourOctetASNumber(100000)})
	p4 := NewOptionParameterCapability(
		[]ParameterCapabilityInterface{
			NewCapExtendedNexthop([]*CapExtendedNexthopTuple{NewCapExtendedNexthopTuple(RF_IPv4_UC, AFI_IP6)}),
			NewCapExtendedMessage(),
			NewCapUnknown(128, []byte{1, 2, 3}),
		})
	return NewBGPOpenMessage(AS_TRANS, 303, netip.MustParseAddr("100.4.10.3"),
		[]OptionParameterInterface{p1, p2, p3, p4})
}

// NewTestBGPUpdateMessage returns an UPDATE carrying every attribute type
// this package knows. It needs a four-octet AS session to encode.
func NewTestBGPUpdateMessage() *BGPMessage {
	w1, _ := NewIPAddrPrefix(netip.MustParsePrefix("121.1.3.2/23"))
	w2, _ := NewIPAddrPrefix(netip.MustParsePrefix("100.33.3.0/17"))
	w := []*IPAddrPrefix{w1, w2}

	aspath := []*AsPathParam{
		NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{1000000}),
		NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SET, []uint32{1000001, 1002}),
		NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{1003, 100004}),
	}
	as4path := []*AsPathParam{
		NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{1000000, 1003}),
	}

	v6, _ := NewIPAddrPrefix(netip.MustParsePrefix("2001:db8:1234::/48"))
	v6w, _ := NewIPAddrPrefix(netip.MustParsePrefix("2001:db8:ffff::/64"))
	mpReach := NewPathAttributeMpReachNLRI(RF_IPv6_UC, []*IPAddrPrefix{v6}, netip.MustParseAddr("2001:db8::1"))
	mpReach.LinkLocalNexthop = netip.MustParseAddr("fe80::1")

	p := []PathAttributeInterface{
		NewPathAttributeOrigin(BGP_ORIGIN_ATTR_TYPE_EGP),
		NewPathAttributeAsPath(aspath),
		NewPathAttributeNextHop(netip.MustParseAddr("129.1.1.2")),
		NewPathAttributeMultiExitDisc(1 << 20),
		NewPathAttributeLocalPref(1 << 22),
		NewPathAttributeAtomicAggregate(),
		NewPathAttributeAggregator(300020, netip.MustParseAddr("129.0.2.99")),
		NewPathAttributeCommunities([]uint32{1, 3, COMMUNITY_NO_EXPORT}),
		NewPathAttributeOriginatorId(netip.MustParseAddr("10.10.0.1")),
		NewPathAttributeClusterList([]netip.Addr{netip.MustParseAddr("10.10.0.2"), netip.MustParseAddr("10.10.0.3")}),
		mpReach,
		NewPathAttributeMpUnreachNLRI(RF_IPv6_UC, []*IPAddrPrefix{v6w}),
		NewPathAttributeExtendedCommunities([]uint64{0x0002fde800000064}),
		NewPathAttributeAs4Path(as4path),
		NewPathAttributeAs4Aggregator(10000, netip.MustParseAddr("112.22.2.1")),
		NewPathAttributeUnknown(BGP_ATTR_FLAG_TRANSITIVE|BGP_ATTR_FLAG_OPTIONAL, 100, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}),
	}
	n1, _ := NewIPAddrPrefix(netip.MustParsePrefix("13.2.3.1/24"))
	n2, _ := NewIPAddrPrefix(netip.MustParsePrefix("0.0.0.0/0"))
	return NewBGPUpdateMessage(w, p, []*IPAddrPrefix{n1, n2})
}
