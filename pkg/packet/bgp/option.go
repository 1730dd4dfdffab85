// Copyright (C) 2018 Nippon Telegraph and Telephone Corporation.
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

// MarshallingOption is the negotiation state of a session as seen by the
// codec. A nil option, or no option at all, means a plain RFC4271 session:
// 2-octet AS numbers, 4096 byte messages and IPv4 unicast only.
type MarshallingOption struct {
	// AS4 is set once both sides advertised the four-octet AS capability.
	AS4 bool
	// ExtendedMessage raises the maximum message length to 65535.
	ExtendedMessage bool
	// Families lists the negotiated address families. Empty means
	// IPv4 unicast only.
	Families []Family
	// ExtendedNexthop lists the negotiated RFC8950 next hop encodings.
	ExtendedNexthop []*CapExtendedNexthopTuple
}

func getOption(options []*MarshallingOption) *MarshallingOption {
	for _, o := range options {
		if o != nil {
			return o
		}
	}
	return nil
}

func IsAS4Enabled(options []*MarshallingOption) bool {
	o := getOption(options)
	return o != nil && o.AS4
}

// MaxMessageLength returns the largest total message length allowed by the
// given options.
func MaxMessageLength(options []*MarshallingOption) int {
	o := getOption(options)
	if o != nil && o.ExtendedMessage {
		return BGP_MAX_EXTENDED_MESSAGE_LENGTH
	}
	return BGP_MAX_MESSAGE_LENGTH
}

func (o *MarshallingOption) HasFamily(f Family) bool {
	if o == nil || len(o.Families) == 0 {
		return f == RF_IPv4_UC
	}
	for _, family := range o.Families {
		if family == f {
			return true
		}
	}
	return false
}

func (o *MarshallingOption) HasExtendedNexthop(f Family, nexthopAFI uint16) bool {
	if o == nil {
		return false
	}
	for _, t := range o.ExtendedNexthop {
		if t.NLRIAFI == f.Afi() && t.NLRISAFI == uint16(f.Safi()) && t.NexthopAFI == nexthopAFI {
			return true
		}
	}
	return false
}
