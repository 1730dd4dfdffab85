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

import (
	"encoding/binary"
	"fmt"
	"strings"
)

type ParameterCapabilityInterface interface {
	DecodeFromBytes([]byte) error
	Serialize() ([]byte, error)
	Len() int
	Code() BGPCapabilityCode
	String() string
}

func capabilityError(data []byte, msg string) *MessageError {
	return newKindError(ErrorKindCapability, BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_UNSPECIFIC, data, msg)
}

type DefaultParameterCapability struct {
	CapCode BGPCapabilityCode
}

func (c *DefaultParameterCapability) Code() BGPCapabilityCode {
	return c.CapCode
}

// decodeValue checks the TLV header of data against code and the expected
// value length, -1 meaning any length, and returns the value.
func (c *DefaultParameterCapability) decodeValue(data []byte, expected int) ([]byte, error) {
	if len(data) < 2 {
		return nil, capabilityError(nil, "capability header is short")
	}
	c.CapCode = BGPCapabilityCode(data[0])
	l := int(data[1])
	if len(data) < 2+l {
		return nil, capabilityError(data, fmt.Sprintf("%s capability declares %d bytes, %d available", c.CapCode, l, len(data)-2))
	}
	if expected >= 0 && l != expected {
		e := capabilityError(data[:2+l], fmt.Sprintf("%s capability length %d, expected %d", c.CapCode, l, expected))
		e.Offset = 1
		return nil, e
	}
	return data[2 : 2+l], nil
}

func (c *DefaultParameterCapability) serialize(value []byte) ([]byte, error) {
	if len(value) > 255 {
		return nil, fmt.Errorf("%s capability value is too long: %d", c.CapCode, len(value))
	}
	buf := make([]byte, 2, 2+len(value))
	buf[0] = uint8(c.CapCode)
	buf[1] = uint8(len(value))
	return append(buf, value...), nil
}

type CapMultiProtocol struct {
	DefaultParameterCapability
	CapValue Family
	// ignored on receipt, kept to re-encode what was received
	Reserved uint8
}

func (c *CapMultiProtocol) DecodeFromBytes(data []byte) error {
	value, err := c.DefaultParameterCapability.decodeValue(data, 4)
	if err != nil {
		return err
	}
	c.CapValue = AfiSafiToFamily(binary.BigEndian.Uint16(value[0:2]), value[3])
	c.Reserved = value[2]
	return nil
}

func (c *CapMultiProtocol) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:], c.CapValue.Afi())
	buf[2] = c.Reserved
	buf[3] = c.CapValue.Safi()
	return c.DefaultParameterCapability.serialize(buf)
}

func (c *CapMultiProtocol) Len() int {
	return 6
}

func (c *CapMultiProtocol) String() string {
	return fmt.Sprintf("%s(%s)", c.CapCode, c.CapValue)
}

func NewCapMultiProtocol(rf Family) *CapMultiProtocol {
	return &CapMultiProtocol{
		DefaultParameterCapability: DefaultParameterCapability{
			CapCode: BGP_CAP_MULTIPROTOCOL,
		},
		CapValue: rf,
	}
}

type CapRouteRefresh struct {
	DefaultParameterCapability
}

func (c *CapRouteRefresh) DecodeFromBytes(data []byte) error {
	_, err := c.DefaultParameterCapability.decodeValue(data, 0)
	return err
}

func (c *CapRouteRefresh) Serialize() ([]byte, error) {
	return c.DefaultParameterCapability.serialize(nil)
}

func (c *CapRouteRefresh) Len() int {
	return 2
}

func (c *CapRouteRefresh) String() string {
	return c.CapCode.String()
}

func NewCapRouteRefresh() *CapRouteRefresh {
	return &CapRouteRefresh{
		DefaultParameterCapability{
			CapCode: BGP_CAP_ROUTE_REFRESH,
		},
	}
}

// CapExtendedNexthopTuple is one RFC8950 entry: NLRI of the given family
// may carry a next hop of NexthopAFI.
type CapExtendedNexthopTuple struct {
	NLRIAFI    uint16
	NLRISAFI   uint16
	NexthopAFI uint16
}

func NewCapExtendedNexthopTuple(af Family, nexthop uint16) *CapExtendedNexthopTuple {
	return &CapExtendedNexthopTuple{
		NLRIAFI:    af.Afi(),
		NLRISAFI:   uint16(af.Safi()),
		NexthopAFI: nexthop,
	}
}

func (c *CapExtendedNexthopTuple) String() string {
	return fmt.Sprintf("nlri: %s, nexthop: %s",
		AfiSafiToFamily(c.NLRIAFI, uint8(c.NLRISAFI)),
		AfiSafiToFamily(c.NexthopAFI, SAFI_UNICAST).String())
}

type CapExtendedNexthop struct {
	DefaultParameterCapability
	Tuples []*CapExtendedNexthopTuple
}

func (c *CapExtendedNexthop) DecodeFromBytes(data []byte) error {
	value, err := c.DefaultParameterCapability.decodeValue(data, -1)
	if err != nil {
		return err
	}
	if len(value)%6 != 0 {
		e := capabilityError(data[:2+len(value)], fmt.Sprintf("extended-nexthop capability length %d isn't a multiple of 6", len(value)))
		e.Offset = 1
		return e
	}
	c.Tuples = nil
	for len(value) >= 6 {
		c.Tuples = append(c.Tuples, &CapExtendedNexthopTuple{
			NLRIAFI:    binary.BigEndian.Uint16(value[0:2]),
			NLRISAFI:   binary.BigEndian.Uint16(value[2:4]),
			NexthopAFI: binary.BigEndian.Uint16(value[4:6]),
		})
		value = value[6:]
	}
	return nil
}

func (c *CapExtendedNexthop) Serialize() ([]byte, error) {
	buf := make([]byte, len(c.Tuples)*6)
	for i, t := range c.Tuples {
		binary.BigEndian.PutUint16(buf[i*6:], t.NLRIAFI)
		binary.BigEndian.PutUint16(buf[i*6+2:], t.NLRISAFI)
		binary.BigEndian.PutUint16(buf[i*6+4:], t.NexthopAFI)
	}
	return c.DefaultParameterCapability.serialize(buf)
}

func (c *CapExtendedNexthop) Len() int {
	return 2 + 6*len(c.Tuples)
}

func (c *CapExtendedNexthop) String() string {
	tuples := make([]string, 0, len(c.Tuples))
	for _, t := range c.Tuples {
		tuples = append(tuples, t.String())
	}
	return fmt.Sprintf("%s(%s)", c.CapCode, strings.Join(tuples, "; "))
}

func NewCapExtendedNexthop(tuples []*CapExtendedNexthopTuple) *CapExtendedNexthop {
	return &CapExtendedNexthop{
		DefaultParameterCapability{
			CapCode: BGP_CAP_EXTENDED_NEXTHOP,
		},
		tuples,
	}
}

type CapExtendedMessage struct {
	DefaultParameterCapability
}

func (c *CapExtendedMessage) DecodeFromBytes(data []byte) error {
	_, err := c.DefaultParameterCapability.decodeValue(data, 0)
	return err
}

func (c *CapExtendedMessage) Serialize() ([]byte, error) {
	return c.DefaultParameterCapability.serialize(nil)
}

func (c *CapExtendedMessage) Len() int {
	return 2
}

func (c *CapExtendedMessage) String() string {
	return c.CapCode.String()
}

func NewCapExtendedMessage() *CapExtendedMessage {
	return &CapExtendedMessage{
		DefaultParameterCapability{
			CapCode: BGP_CAP_EXTENDED_MESSAGE,
		},
	}
}

type CapFourOctetASNumber struct {
	DefaultParameterCapability
	CapValue uint32
}

func (c *CapFourOctetASNumber) DecodeFromBytes(data []byte) error {
	value, err := c.DefaultParameterCapability.decodeValue(data, 4)
	if err != nil {
		return err
	}
	c.CapValue = binary.BigEndian.Uint32(value)
	return nil
}

func (c *CapFourOctetASNumber) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, c.CapValue)
	return c.DefaultParameterCapability.serialize(buf)
}

func (c *CapFourOctetASNumber) Len() int {
	return 6
}

func (c *CapFourOctetASNumber) String() string {
	return fmt.Sprintf("%s(%d)", c.CapCode, c.CapValue)
}

func NewCapFourOctetASNumber(asnum uint32) *CapFourOctetASNumber {
	return &CapFourOctetASNumber{
		DefaultParameterCapability{
			CapCode: BGP_CAP_FOUR_OCTET_AS_NUMBER,
		},
		asnum,
	}
}

// CapUnknown keeps a capability this package does not interpret.
type CapUnknown struct {
	DefaultParameterCapability
	CapValue []byte
}

func (c *CapUnknown) DecodeFromBytes(data []byte) error {
	value, err := c.DefaultParameterCapability.decodeValue(data, -1)
	if err != nil {
		return err
	}
	c.CapValue = append([]byte(nil), value...)
	return nil
}

func (c *CapUnknown) Serialize() ([]byte, error) {
	return c.DefaultParameterCapability.serialize(c.CapValue)
}

func (c *CapUnknown) Len() int {
	return 2 + len(c.CapValue)
}

func (c *CapUnknown) String() string {
	return fmt.Sprintf("%s(%x)", c.CapCode, c.CapValue)
}

func NewCapUnknown(code BGPCapabilityCode, value []byte) *CapUnknown {
	return &CapUnknown{
		DefaultParameterCapability{
			CapCode: code,
		},
		value,
	}
}

// EncodeCapability returns the code, length and value of c.
func EncodeCapability(c ParameterCapabilityInterface) ([]byte, error) {
	return c.Serialize()
}

// DecodeCapability reads one capability TLV from the start of data. Codes
// that are not interpreted here come back as *CapUnknown.
func DecodeCapability(data []byte) (ParameterCapabilityInterface, int, error) {
	if len(data) < 2 {
		return nil, 0, capabilityError(nil, "capability header is short")
	}
	var c ParameterCapabilityInterface
	switch BGPCapabilityCode(data[0]) {
	case BGP_CAP_MULTIPROTOCOL:
		c = &CapMultiProtocol{}
	case BGP_CAP_ROUTE_REFRESH:
		c = &CapRouteRefresh{}
	case BGP_CAP_EXTENDED_NEXTHOP:
		c = &CapExtendedNexthop{}
	case BGP_CAP_EXTENDED_MESSAGE:
		c = &CapExtendedMessage{}
	case BGP_CAP_FOUR_OCTET_AS_NUMBER:
		c = &CapFourOctetASNumber{}
	default:
		c = &CapUnknown{}
	}
	if err := c.DecodeFromBytes(data); err != nil {
		return nil, 0, err
	}
	return c, 2 + int(data[1]), nil
}

type OptionParameterInterface interface {
	Serialize() ([]byte, error)
	Len() int
	String() string
}

type OptionParameterCapability struct {
	ParamType  uint8
	Capability []ParameterCapabilityInterface
}

// DecodeFromBytes reads the capabilities packed in the value of an optional
// parameter. They must fill the value exactly.
func (o *OptionParameterCapability) DecodeFromBytes(data []byte) error {
	o.ParamType = BGP_OPT_CAPABILITY
	o.Capability = nil
	for offset := 0; offset < len(data); {
		c, n, err := DecodeCapability(data[offset:])
		if err != nil {
			return shiftError(err, offset)
		}
		o.Capability = append(o.Capability, c)
		offset += n
	}
	return nil
}

func (o *OptionParameterCapability) Serialize() ([]byte, error) {
	buf := make([]byte, 2)
	buf[0] = o.ParamType
	for _, p := range o.Capability {
		pbuf, err := p.Serialize()
		if err != nil {
			return nil, err
		}
		buf = append(buf, pbuf...)
	}
	if len(buf)-2 > 255 {
		return nil, fmt.Errorf("capability parameter is too long: %d", len(buf)-2)
	}
	buf[1] = uint8(len(buf) - 2)
	return buf, nil
}

func (o *OptionParameterCapability) Len() int {
	l := 2
	for _, c := range o.Capability {
		l += c.Len()
	}
	return l
}

func (o *OptionParameterCapability) String() string {
	caps := make([]string, 0, len(o.Capability))
	for _, c := range o.Capability {
		caps = append(caps, c.String())
	}
	return fmt.Sprintf("capabilities[%s]", strings.Join(caps, ", "))
}

func NewOptionParameterCapability(capability []ParameterCapabilityInterface) *OptionParameterCapability {
	return &OptionParameterCapability{
		ParamType:  BGP_OPT_CAPABILITY,
		Capability: capability,
	}
}

// OptionParameterUnknown keeps an optional parameter other than capabilities.
type OptionParameterUnknown struct {
	ParamType uint8
	Value     []byte
}

func (o *OptionParameterUnknown) Serialize() ([]byte, error) {
	if len(o.Value) > 255 {
		return nil, fmt.Errorf("optional parameter %d is too long: %d", o.ParamType, len(o.Value))
	}
	buf := make([]byte, 2, 2+len(o.Value))
	buf[0] = o.ParamType
	buf[1] = uint8(len(o.Value))
	return append(buf, o.Value...), nil
}

func (o *OptionParameterUnknown) Len() int {
	return 2 + len(o.Value)
}

func (o *OptionParameterUnknown) String() string {
	return fmt.Sprintf("param(%d)[%x]", o.ParamType, o.Value)
}
