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

// Capabilities returns every capability of the OPEN message, in order,
// across all capability optional parameters.
func (msg *BGPOpen) Capabilities() []ParameterCapabilityInterface {
	var caps []ParameterCapabilityInterface
	for _, p := range msg.OptParams {
		if paramCap, y := p.(*OptionParameterCapability); y {
			caps = append(caps, paramCap.Capability...)
		}
	}
	return caps
}

// CapabilityMap groups the capabilities of the OPEN message by code. A
// peer that sends no multiprotocol capability is treated as IPv4 unicast
// only.
func (msg *BGPOpen) CapabilityMap() map[BGPCapabilityCode][]ParameterCapabilityInterface {
	capMap := make(map[BGPCapabilityCode][]ParameterCapabilityInterface)
	for _, c := range msg.Capabilities() {
		capMap[c.Code()] = append(capMap[c.Code()], c)
	}

	// squash extended nexthop cap
	if caps, y := capMap[BGP_CAP_EXTENDED_NEXTHOP]; y && len(caps) > 1 {
		tuples := make([]*CapExtendedNexthopTuple, 0, len(caps))
		for _, c := range caps {
			tuples = append(tuples, c.(*CapExtendedNexthop).Tuples...)
		}
		capMap[BGP_CAP_EXTENDED_NEXTHOP] = []ParameterCapabilityInterface{NewCapExtendedNexthop(tuples)}
	}

	if _, y := capMap[BGP_CAP_MULTIPROTOCOL]; !y {
		capMap[BGP_CAP_MULTIPROTOCOL] = []ParameterCapabilityInterface{NewCapMultiProtocol(RF_IPv4_UC)}
	}
	return capMap
}

// FourOctetAS returns the AS number of the four-octet AS capability, if
// any. Otherwise it returns the 2-octet My AS field.
func (msg *BGPOpen) FourOctetAS() (uint32, bool) {
	for _, c := range msg.Capabilities() {
		if as4, y := c.(*CapFourOctetASNumber); y {
			return as4.CapValue, true
		}
	}
	return uint32(msg.MyAS), false
}

func (msg *BGPOpen) families() map[Family]bool {
	m := make(map[Family]bool)
	for _, c := range msg.CapabilityMap()[BGP_CAP_MULTIPROTOCOL] {
		m[c.(*CapMultiProtocol).CapValue] = true
	}
	return m
}

func (msg *BGPOpen) extendedNexthops() []*CapExtendedNexthopTuple {
	var tuples []*CapExtendedNexthopTuple
	for _, c := range msg.CapabilityMap()[BGP_CAP_EXTENDED_NEXTHOP] {
		tuples = append(tuples, c.(*CapExtendedNexthop).Tuples...)
	}
	return tuples
}

func (msg *BGPOpen) hasCapability(code BGPCapabilityCode) bool {
	for _, c := range msg.Capabilities() {
		if c.Code() == code {
			return true
		}
	}
	return false
}

// NegotiateOptions derives the session context from the OPEN messages both
// sides sent. A feature is enabled only when both advertised it.
func NegotiateOptions(local, remote *BGPOpen) *MarshallingOption {
	opt := &MarshallingOption{
		AS4:             local.hasCapability(BGP_CAP_FOUR_OCTET_AS_NUMBER) && remote.hasCapability(BGP_CAP_FOUR_OCTET_AS_NUMBER),
		ExtendedMessage: local.hasCapability(BGP_CAP_EXTENDED_MESSAGE) && remote.hasCapability(BGP_CAP_EXTENDED_MESSAGE),
	}

	remoteFamilies := remote.families()
	for _, c := range local.CapabilityMap()[BGP_CAP_MULTIPROTOCOL] {
		family := c.(*CapMultiProtocol).CapValue
		if remoteFamilies[family] && !opt.HasFamilyExplicit(family) {
			opt.Families = append(opt.Families, family)
		}
	}

	remoteTuples := remote.extendedNexthops()
	for _, t := range local.extendedNexthops() {
		for _, r := range remoteTuples {
			if *t == *r {
				opt.ExtendedNexthop = append(opt.ExtendedNexthop, t)
				break
			}
		}
	}
	return opt
}

// HasFamilyExplicit is HasFamily without the implicit IPv4 unicast default.
func (o *MarshallingOption) HasFamilyExplicit(f Family) bool {
	if o == nil {
		return false
	}
	for _, family := range o.Families {
		if family == f {
			return true
		}
	}
	return false
}
