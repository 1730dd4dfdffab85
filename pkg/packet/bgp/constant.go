// Copyright (C) 2014 Nippon Telegraph and Telephone Corporation.
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

import "fmt"

const AS_TRANS = 23456

const BGP_PORT = 179

const BGP_VERSION = 4

const (
	BGP_HEADER_LENGTH               = 19
	BGP_MARKER_LENGTH               = 16
	BGP_MAX_MESSAGE_LENGTH          = 4096
	BGP_MAX_EXTENDED_MESSAGE_LENGTH = 65535
)

// minimum total length of each message type, RFC4271 4.2-4.5 and RFC2918 3
const (
	BGP_MIN_OPEN_LENGTH          = 29
	BGP_MIN_UPDATE_LENGTH        = 23
	BGP_MIN_NOTIFICATION_LENGTH  = 21
	BGP_KEEPALIVE_LENGTH         = 19
	BGP_ROUTE_REFRESH_LENGTH     = 23
	BGP_OPEN_FIXED_BODY_LENGTH   = 10
	BGP_UPDATE_FIXED_BODY_LENGTH = 4
)

const (
	_ = iota
	BGP_MSG_OPEN
	BGP_MSG_UPDATE
	BGP_MSG_NOTIFICATION
	BGP_MSG_KEEPALIVE
	BGP_MSG_ROUTE_REFRESH
)

var messageTypeNames = map[uint8]string{
	BGP_MSG_OPEN:          "OPEN",
	BGP_MSG_UPDATE:        "UPDATE",
	BGP_MSG_NOTIFICATION:  "NOTIFICATION",
	BGP_MSG_KEEPALIVE:     "KEEPALIVE",
	BGP_MSG_ROUTE_REFRESH: "ROUTE_REFRESH",
}

// MessageTypeString returns the name of a message type code, or its number
// when the code is not one of the five known types.
func MessageTypeString(t uint8) string {
	if n, ok := messageTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}

const (
	BGP_OPT_CAPABILITY = 2
)

const (
	AFI_IP  = 1
	AFI_IP6 = 2
)

const (
	SAFI_UNICAST   = 1
	SAFI_MULTICAST = 2
)

// Family packs an AFI and a SAFI into one value, AFI in the upper 16 bits.
type Family uint32

func AfiSafiToFamily(afi uint16, safi uint8) Family {
	return Family(int(afi)<<16 | int(safi))
}

func FamilyToAfiSafi(f Family) (uint16, uint8) {
	return uint16(f >> 16), uint8(f & 0xff)
}

func (f Family) Afi() uint16 {
	return uint16(f >> 16)
}

func (f Family) Safi() uint8 {
	return uint8(f & 0xff)
}

const (
	RF_IPv4_UC Family = AFI_IP<<16 | SAFI_UNICAST
	RF_IPv6_UC Family = AFI_IP6<<16 | SAFI_UNICAST
	RF_IPv4_MC Family = AFI_IP<<16 | SAFI_MULTICAST
	RF_IPv6_MC Family = AFI_IP6<<16 | SAFI_MULTICAST
)

var familyNames = map[Family]string{
	RF_IPv4_UC: "ipv4-unicast",
	RF_IPv6_UC: "ipv6-unicast",
	RF_IPv4_MC: "ipv4-multicast",
	RF_IPv6_MC: "ipv6-multicast",
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Family(%d:%d)", f.Afi(), f.Safi())
}

// GetFamily looks a family up by the names printed by Family.String.
func GetFamily(name string) (Family, error) {
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return Family(0), fmt.Errorf("%s isn't a valid route family name", name)
}

type BGPCapabilityCode uint8

const (
	BGP_CAP_MULTIPROTOCOL        BGPCapabilityCode = 1
	BGP_CAP_ROUTE_REFRESH        BGPCapabilityCode = 2
	BGP_CAP_EXTENDED_NEXTHOP     BGPCapabilityCode = 5
	BGP_CAP_EXTENDED_MESSAGE     BGPCapabilityCode = 6
	BGP_CAP_FOUR_OCTET_AS_NUMBER BGPCapabilityCode = 65
)

var capNameMap = map[BGPCapabilityCode]string{
	BGP_CAP_MULTIPROTOCOL:        "multiprotocol",
	BGP_CAP_ROUTE_REFRESH:        "route-refresh",
	BGP_CAP_EXTENDED_NEXTHOP:     "extended-nexthop",
	BGP_CAP_EXTENDED_MESSAGE:     "extended-message",
	BGP_CAP_FOUR_OCTET_AS_NUMBER: "4-octet-as",
}

func (c BGPCapabilityCode) String() string {
	if n, y := capNameMap[c]; y {
		return n
	}
	return fmt.Sprintf("UnknownCapability(%d)", c)
}

type BGPAttrFlag uint8

const (
	BGP_ATTR_FLAG_EXTENDED_LENGTH BGPAttrFlag = 1 << 4
	BGP_ATTR_FLAG_PARTIAL         BGPAttrFlag = 1 << 5
	BGP_ATTR_FLAG_TRANSITIVE      BGPAttrFlag = 1 << 6
	BGP_ATTR_FLAG_OPTIONAL        BGPAttrFlag = 1 << 7
)

func (f BGPAttrFlag) String() string {
	strs := make([]string, 0, 4)
	if f&BGP_ATTR_FLAG_EXTENDED_LENGTH > 0 {
		strs = append(strs, "EXTENDED_LENGTH")
	}
	if f&BGP_ATTR_FLAG_PARTIAL > 0 {
		strs = append(strs, "PARTIAL")
	}
	if f&BGP_ATTR_FLAG_TRANSITIVE > 0 {
		strs = append(strs, "TRANSITIVE")
	}
	if f&BGP_ATTR_FLAG_OPTIONAL > 0 {
		strs = append(strs, "OPTIONAL")
	}
	return fmt.Sprintf("%v", strs)
}

type BGPAttrType uint8

const (
	_ BGPAttrType = iota
	BGP_ATTR_TYPE_ORIGIN
	BGP_ATTR_TYPE_AS_PATH
	BGP_ATTR_TYPE_NEXT_HOP
	BGP_ATTR_TYPE_MULTI_EXIT_DISC
	BGP_ATTR_TYPE_LOCAL_PREF
	BGP_ATTR_TYPE_ATOMIC_AGGREGATE
	BGP_ATTR_TYPE_AGGREGATOR
	BGP_ATTR_TYPE_COMMUNITIES
	BGP_ATTR_TYPE_ORIGINATOR_ID
	BGP_ATTR_TYPE_CLUSTER_LIST
	_
	_
	_
	BGP_ATTR_TYPE_MP_REACH_NLRI // = 14
	BGP_ATTR_TYPE_MP_UNREACH_NLRI
	BGP_ATTR_TYPE_EXTENDED_COMMUNITIES
	BGP_ATTR_TYPE_AS4_PATH
	BGP_ATTR_TYPE_AS4_AGGREGATOR
)

var attrTypeNames = map[BGPAttrType]string{
	BGP_ATTR_TYPE_ORIGIN:               "ORIGIN",
	BGP_ATTR_TYPE_AS_PATH:              "AS_PATH",
	BGP_ATTR_TYPE_NEXT_HOP:             "NEXT_HOP",
	BGP_ATTR_TYPE_MULTI_EXIT_DISC:      "MULTI_EXIT_DISC",
	BGP_ATTR_TYPE_LOCAL_PREF:           "LOCAL_PREF",
	BGP_ATTR_TYPE_ATOMIC_AGGREGATE:     "ATOMIC_AGGREGATE",
	BGP_ATTR_TYPE_AGGREGATOR:           "AGGREGATOR",
	BGP_ATTR_TYPE_COMMUNITIES:          "COMMUNITIES",
	BGP_ATTR_TYPE_ORIGINATOR_ID:        "ORIGINATOR_ID",
	BGP_ATTR_TYPE_CLUSTER_LIST:         "CLUSTER_LIST",
	BGP_ATTR_TYPE_MP_REACH_NLRI:        "MP_REACH_NLRI",
	BGP_ATTR_TYPE_MP_UNREACH_NLRI:      "MP_UNREACH_NLRI",
	BGP_ATTR_TYPE_EXTENDED_COMMUNITIES: "EXTENDED_COMMUNITIES",
	BGP_ATTR_TYPE_AS4_PATH:             "AS4_PATH",
	BGP_ATTR_TYPE_AS4_AGGREGATOR:       "AS4_AGGREGATOR",
}

func (t BGPAttrType) String() string {
	if n, ok := attrTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

const (
	BGP_ORIGIN_ATTR_TYPE_IGP        uint8 = 0
	BGP_ORIGIN_ATTR_TYPE_EGP        uint8 = 1
	BGP_ORIGIN_ATTR_TYPE_INCOMPLETE uint8 = 2
)

const (
	BGP_ASPATH_ATTR_TYPE_SET        = 1
	BGP_ASPATH_ATTR_TYPE_SEQ        = 2
	BGP_ASPATH_ATTR_TYPE_CONFED_SEQ = 3
	BGP_ASPATH_ATTR_TYPE_CONFED_SET = 4
)

// RFC1997 well-known communities
const (
	COMMUNITY_NO_EXPORT           uint32 = 0xffffff01
	COMMUNITY_NO_ADVERTISE        uint32 = 0xffffff02
	COMMUNITY_NO_EXPORT_SUBCONFED uint32 = 0xffffff03
)

// NOTIFICATION error codes, RFC4271 4.5, RFC4486 and RFC7313
const (
	_ = iota
	BGP_ERROR_MESSAGE_HEADER_ERROR
	BGP_ERROR_OPEN_MESSAGE_ERROR
	BGP_ERROR_UPDATE_MESSAGE_ERROR
	BGP_ERROR_HOLD_TIMER_EXPIRED
	BGP_ERROR_FSM_ERROR
	BGP_ERROR_CEASE
	BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR
)

const (
	BGP_ERROR_SUB_UNSPECIFIC = 0
)

// NOTIFICATION Error Subcode for BGP_ERROR_MESSAGE_HEADER_ERROR
const (
	_ = iota
	BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED
	BGP_ERROR_SUB_BAD_MESSAGE_LENGTH
	BGP_ERROR_SUB_BAD_MESSAGE_TYPE
)

// NOTIFICATION Error Subcode for BGP_ERROR_OPEN_MESSAGE_ERROR
const (
	_ = iota
	BGP_ERROR_SUB_UNSUPPORTED_VERSION_NUMBER
	BGP_ERROR_SUB_BAD_PEER_AS
	BGP_ERROR_SUB_BAD_BGP_IDENTIFIER
	BGP_ERROR_SUB_UNSUPPORTED_OPTIONAL_PARAMETER
	BGP_ERROR_SUB_DEPRECATED_AUTHENTICATION_FAILURE
	BGP_ERROR_SUB_UNACCEPTABLE_HOLD_TIME
	BGP_ERROR_SUB_UNSUPPORTED_CAPABILITY
)

// NOTIFICATION Error Subcode for BGP_ERROR_UPDATE_MESSAGE_ERROR
const (
	_ = iota
	BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST
	BGP_ERROR_SUB_UNRECOGNIZED_WELL_KNOWN_ATTRIBUTE
	BGP_ERROR_SUB_MISSING_WELL_KNOWN_ATTRIBUTE
	BGP_ERROR_SUB_ATTRIBUTE_FLAGS_ERROR
	BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR
	BGP_ERROR_SUB_INVALID_ORIGIN_ATTRIBUTE
	BGP_ERROR_SUB_DEPRECATED_ROUTING_LOOP
	BGP_ERROR_SUB_INVALID_NEXT_HOP_ATTRIBUTE
	BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR
	BGP_ERROR_SUB_INVALID_NETWORK_FIELD
	BGP_ERROR_SUB_MALFORMED_AS_PATH
)

// NOTIFICATION Error Subcode for BGP_ERROR_HOLD_TIMER_EXPIRED
const (
	_ = iota
	BGP_ERROR_SUB_HOLD_TIMER_EXPIRED
)

// NOTIFICATION Error Subcode for BGP_ERROR_FSM_ERROR
const (
	_ = iota
	BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENSENT_STATE
	BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENCONFIRM_STATE
	BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_ESTABLISHED_STATE
)

// NOTIFICATION Error Subcode for BGP_ERROR_CEASE (RFC4486)
const (
	_ = iota
	BGP_ERROR_SUB_MAXIMUM_NUMBER_OF_PREFIXES_REACHED
	BGP_ERROR_SUB_ADMINISTRATIVE_SHUTDOWN
	BGP_ERROR_SUB_PEER_DECONFIGURED
	BGP_ERROR_SUB_ADMINISTRATIVE_RESET
	BGP_ERROR_SUB_CONNECTION_REJECTED
	BGP_ERROR_SUB_OTHER_CONFIGURATION_CHANGE
	BGP_ERROR_SUB_CONNECTION_COLLISION_RESOLUTION
	BGP_ERROR_SUB_OUT_OF_RESOURCES
)

// NOTIFICATION Error Subcode for BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR
const (
	_ = iota
	BGP_ERROR_SUB_INVALID_MESSAGE_LENGTH
)
