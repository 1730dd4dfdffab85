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
	"net/netip"
	"strings"
)

var pathAttrFlags = map[BGPAttrType]BGPAttrFlag{
	BGP_ATTR_TYPE_ORIGIN:               BGP_ATTR_FLAG_TRANSITIVE,
	BGP_ATTR_TYPE_AS_PATH:              BGP_ATTR_FLAG_TRANSITIVE,
	BGP_ATTR_TYPE_NEXT_HOP:             BGP_ATTR_FLAG_TRANSITIVE,
	BGP_ATTR_TYPE_MULTI_EXIT_DISC:      BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_LOCAL_PREF:           BGP_ATTR_FLAG_TRANSITIVE,
	BGP_ATTR_TYPE_ATOMIC_AGGREGATE:     BGP_ATTR_FLAG_TRANSITIVE,
	BGP_ATTR_TYPE_AGGREGATOR:           BGP_ATTR_FLAG_TRANSITIVE | BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_COMMUNITIES:          BGP_ATTR_FLAG_TRANSITIVE | BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_ORIGINATOR_ID:        BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_CLUSTER_LIST:         BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_MP_REACH_NLRI:        BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_MP_UNREACH_NLRI:      BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_EXTENDED_COMMUNITIES: BGP_ATTR_FLAG_TRANSITIVE | BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_AS4_PATH:             BGP_ATTR_FLAG_TRANSITIVE | BGP_ATTR_FLAG_OPTIONAL,
	BGP_ATTR_TYPE_AS4_AGGREGATOR:       BGP_ATTR_FLAG_TRANSITIVE | BGP_ATTR_FLAG_OPTIONAL,
}

// ValidateFlags checks the optional, transitive and partial bits of a known
// attribute type. Unknown types always pass.
func ValidateFlags(t BGPAttrType, flags BGPAttrFlag) (bool, string) {
	f, ok := pathAttrFlags[t]
	if !ok {
		return true, ""
	}
	mask := BGP_ATTR_FLAG_OPTIONAL | BGP_ATTR_FLAG_TRANSITIVE
	if flags&mask != f {
		return false, fmt.Sprintf("flags %s are invalid for %s", flags, t)
	}
	if flags&BGP_ATTR_FLAG_PARTIAL != 0 && f != mask {
		return false, fmt.Sprintf("partial flag is set on %s", t)
	}
	return true, ""
}

type PathAttributeInterface interface {
	DecodeFromBytes([]byte, ...*MarshallingOption) error
	Serialize(...*MarshallingOption) ([]byte, error)
	Len(...*MarshallingOption) int
	GetFlags() BGPAttrFlag
	GetType() BGPAttrType
	String() string
}

func attrTruncated(data []byte, msg string) *MessageError {
	return newKindError(ErrorKindAttributeTruncated, BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data, msg)
}

func attrMalformed(subcode uint8, data []byte, offset int, msg string) *MessageError {
	e := newKindError(ErrorKindAttributeMalformed, BGP_ERROR_UPDATE_MESSAGE_ERROR, subcode, data, msg)
	e.Offset = offset
	return e
}

// attributeSize returns the header size and the total size of the attribute
// at the start of data, failing when either runs past the end of data.
func attributeSize(data []byte) (int, int, error) {
	if len(data) < 3 {
		return 0, 0, attrTruncated(data, "attribute header length is short")
	}
	hdr := 3
	length := int(data[2])
	if BGPAttrFlag(data[0])&BGP_ATTR_FLAG_EXTENDED_LENGTH != 0 {
		if len(data) < 4 {
			return 0, 0, attrTruncated(data, "attribute header length is short")
		}
		hdr = 4
		length = int(binary.BigEndian.Uint16(data[2:4]))
	}
	if len(data) < hdr+length {
		e := attrTruncated(data, fmt.Sprintf("%s declares %d bytes, %d available", BGPAttrType(data[1]), length, len(data)-hdr))
		e.Offset = 2
		return 0, 0, e
	}
	return hdr, hdr + length, nil
}

type PathAttribute struct {
	Flags BGPAttrFlag
	Type  BGPAttrType
}

func (p *PathAttribute) GetFlags() BGPAttrFlag {
	return p.Flags
}

func (p *PathAttribute) GetType() BGPAttrType {
	return p.Type
}

// decodeHeader reads the flags, type and length of the attribute at the
// start of data and returns its value.
func (p *PathAttribute) decodeHeader(data []byte) ([]byte, error) {
	hdr, total, err := attributeSize(data)
	if err != nil {
		return nil, err
	}
	p.Flags = BGPAttrFlag(data[0])
	p.Type = BGPAttrType(data[1])
	if ok, msg := ValidateFlags(p.Type, p.Flags); !ok {
		return nil, attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_FLAGS_ERROR, data[:total], 0, msg)
	}
	return data[hdr:total], nil
}

func (p *PathAttribute) headerLen() int {
	if p.Flags&BGP_ATTR_FLAG_EXTENDED_LENGTH != 0 {
		return 4
	}
	return 3
}

// serialize prepends the attribute header to value. The extended length
// flag is taken as given; a value that does not fit the one octet length
// field without it is an error.
func (p *PathAttribute) serialize(value []byte) ([]byte, error) {
	if len(value) > 0xffff {
		return nil, fmt.Errorf("%s value is too long: %d", p.Type, len(value))
	}
	extended := p.Flags&BGP_ATTR_FLAG_EXTENDED_LENGTH != 0
	if !extended && len(value) > 0xff {
		return nil, fmt.Errorf("%s value of %d bytes needs the extended length flag", p.Type, len(value))
	}
	buf := make([]byte, p.headerLen(), p.headerLen()+len(value))
	buf[0] = uint8(p.Flags)
	buf[1] = uint8(p.Type)
	if extended {
		binary.BigEndian.PutUint16(buf[2:4], uint16(len(value)))
	} else {
		buf[2] = uint8(len(value))
	}
	return append(buf, value...), nil
}

func newPathAttribute(t BGPAttrType) PathAttribute {
	return PathAttribute{
		Flags: pathAttrFlags[t],
		Type:  t,
	}
}

type PathAttributeOrigin struct {
	PathAttribute
	Value uint8
}

func (p *PathAttributeOrigin) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value) != 1 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "origin length isn't correct")
	}
	if value[0] > BGP_ORIGIN_ATTR_TYPE_INCOMPLETE {
		return attrMalformed(BGP_ERROR_SUB_INVALID_ORIGIN_ATTRIBUTE, data[:p.headerLen()+1], p.headerLen(), fmt.Sprintf("invalid origin %d", value[0]))
	}
	p.Value = value[0]
	return nil
}

func (p *PathAttributeOrigin) Serialize(options ...*MarshallingOption) ([]byte, error) {
	return p.PathAttribute.serialize([]byte{p.Value})
}

func (p *PathAttributeOrigin) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 1
}

func (p *PathAttributeOrigin) String() string {
	typ := "-"
	switch p.Value {
	case BGP_ORIGIN_ATTR_TYPE_IGP:
		typ = "i"
	case BGP_ORIGIN_ATTR_TYPE_EGP:
		typ = "e"
	case BGP_ORIGIN_ATTR_TYPE_INCOMPLETE:
		typ = "?"
	}
	return fmt.Sprintf("{Origin: %s}", typ)
}

func NewPathAttributeOrigin(value uint8) *PathAttributeOrigin {
	return &PathAttributeOrigin{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_ORIGIN),
		Value:         value,
	}
}

// AsPathParam is one AS_PATH segment. The AS numbers are held as 32 bit
// values; their width on the wire depends on the session.
type AsPathParam struct {
	Type uint8
	AS   []uint32
}

func NewAsPathParam(segType uint8, as []uint32) *AsPathParam {
	return &AsPathParam{
		Type: segType,
		AS:   as,
	}
}

func (a *AsPathParam) Len(as4 bool) int {
	if as4 {
		return 2 + 4*len(a.AS)
	}
	return 2 + 2*len(a.AS)
}

func (a *AsPathParam) Serialize(as4 bool) ([]byte, error) {
	if len(a.AS) > 255 {
		return nil, fmt.Errorf("AS_PATH segment has %d AS numbers, at most 255 fit", len(a.AS))
	}
	buf := make([]byte, a.Len(as4))
	buf[0] = a.Type
	buf[1] = uint8(len(a.AS))
	for i, as := range a.AS {
		if as4 {
			binary.BigEndian.PutUint32(buf[2+i*4:], as)
			continue
		}
		if as > 0xffff {
			return nil, fmt.Errorf("AS %d doesn't fit in a 2-octet AS_PATH", as)
		}
		binary.BigEndian.PutUint16(buf[2+i*2:], uint16(as))
	}
	return buf, nil
}

func (a *AsPathParam) String() string {
	s := make([]string, 0, len(a.AS))
	for _, as := range a.AS {
		s = append(s, fmt.Sprintf("%d", as))
	}
	switch a.Type {
	case BGP_ASPATH_ATTR_TYPE_SET:
		return fmt.Sprintf("{%s}", strings.Join(s, ","))
	case BGP_ASPATH_ATTR_TYPE_CONFED_SEQ:
		return fmt.Sprintf("(%s)", strings.Join(s, " "))
	case BGP_ASPATH_ATTR_TYPE_CONFED_SET:
		return fmt.Sprintf("[%s]", strings.Join(s, ","))
	}
	return strings.Join(s, " ")
}

func decodeAsPathParams(value []byte, as4 bool) ([]*AsPathParam, error) {
	width := 2
	if as4 {
		width = 4
	}
	var params []*AsPathParam
	for offset := 0; offset < len(value); {
		if len(value)-offset < 2 {
			return nil, attrMalformed(BGP_ERROR_SUB_MALFORMED_AS_PATH, nil, offset, "AS param header length is short")
		}
		segType := value[offset]
		if segType == 0 || segType > BGP_ASPATH_ATTR_TYPE_CONFED_SET {
			return nil, attrMalformed(BGP_ERROR_SUB_MALFORMED_AS_PATH, nil, offset, fmt.Sprintf("unknown AS_PATH seg type %d", segType))
		}
		num := int(value[offset+1])
		if num == 0 {
			return nil, attrMalformed(BGP_ERROR_SUB_MALFORMED_AS_PATH, nil, offset+1, "AS_PATH segment is empty")
		}
		offset += 2
		if len(value)-offset < num*width {
			return nil, attrMalformed(BGP_ERROR_SUB_MALFORMED_AS_PATH, nil, offset-1,
				fmt.Sprintf("AS_PATH segment of %d AS needs %d bytes, %d available", num, num*width, len(value)-offset))
		}
		p := &AsPathParam{Type: segType, AS: make([]uint32, 0, num)}
		for i := 0; i < num; i++ {
			if as4 {
				p.AS = append(p.AS, binary.BigEndian.Uint32(value[offset:]))
			} else {
				p.AS = append(p.AS, uint32(binary.BigEndian.Uint16(value[offset:])))
			}
			offset += width
		}
		params = append(params, p)
	}
	return params, nil
}

func serializeAsPathParams(params []*AsPathParam, as4 bool) ([]byte, error) {
	buf := make([]byte, 0)
	for _, v := range params {
		vbuf, err := v.Serialize(as4)
		if err != nil {
			return nil, err
		}
		buf = append(buf, vbuf...)
	}
	return buf, nil
}

func asPathParamsString(params []*AsPathParam) string {
	s := make([]string, 0, len(params))
	for _, p := range params {
		s = append(s, p.String())
	}
	return strings.Join(s, " ")
}

type PathAttributeAsPath struct {
	PathAttribute
	Value []*AsPathParam
}

func (p *PathAttributeAsPath) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	params, err := decodeAsPathParams(value, IsAS4Enabled(options))
	if err != nil {
		e := shiftError(err, p.headerLen()).(*MessageError)
		e.Data = data[:p.headerLen()+len(value)]
		return e
	}
	p.Value = params
	return nil
}

func (p *PathAttributeAsPath) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf, err := serializeAsPathParams(p.Value, IsAS4Enabled(options))
	if err != nil {
		return nil, err
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeAsPath) Len(options ...*MarshallingOption) int {
	l := 0
	for _, v := range p.Value {
		l += v.Len(IsAS4Enabled(options))
	}
	return p.headerLen() + l
}

func (p *PathAttributeAsPath) String() string {
	return fmt.Sprintf("{AsPath: %s}", asPathParamsString(p.Value))
}

func NewPathAttributeAsPath(value []*AsPathParam) *PathAttributeAsPath {
	return &PathAttributeAsPath{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_AS_PATH),
		Value:         value,
	}
}

// PathAttributeAs4Path carries the real AS path of a route announced over a
// 2-octet session, RFC6793. It is always encoded with 4-octet AS numbers.
type PathAttributeAs4Path struct {
	PathAttribute
	Value []*AsPathParam
}

func (p *PathAttributeAs4Path) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	params, err := decodeAsPathParams(value, true)
	if err != nil {
		e := shiftError(err, p.headerLen()).(*MessageError)
		e.Data = data[:p.headerLen()+len(value)]
		return e
	}
	p.Value = params
	return nil
}

func (p *PathAttributeAs4Path) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf, err := serializeAsPathParams(p.Value, true)
	if err != nil {
		return nil, err
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeAs4Path) Len(options ...*MarshallingOption) int {
	l := 0
	for _, v := range p.Value {
		l += v.Len(true)
	}
	return p.headerLen() + l
}

func (p *PathAttributeAs4Path) String() string {
	return fmt.Sprintf("{As4Path: %s}", asPathParamsString(p.Value))
}

func NewPathAttributeAs4Path(value []*AsPathParam) *PathAttributeAs4Path {
	return &PathAttributeAs4Path{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_AS4_PATH),
		Value:         value,
	}
}

type PathAttributeNextHop struct {
	PathAttribute
	Value netip.Addr
}

func (p *PathAttributeNextHop) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value) != 4 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "nexthop length isn't correct")
	}
	p.Value = netip.AddrFrom4([4]byte(value))
	return nil
}

func (p *PathAttributeNextHop) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if !p.Value.IsValid() {
		return nil, fmt.Errorf("NEXT_HOP has no address")
	}
	if !p.Value.Is4() {
		return nil, fmt.Errorf("NEXT_HOP %s isn't IPv4", p.Value)
	}
	return p.PathAttribute.serialize(p.Value.AsSlice())
}

func (p *PathAttributeNextHop) Len(options ...*MarshallingOption) int {
	return p.headerLen() + p.Value.BitLen()/8
}

func (p *PathAttributeNextHop) String() string {
	return fmt.Sprintf("{Nexthop: %s}", p.Value)
}

func NewPathAttributeNextHop(addr netip.Addr) *PathAttributeNextHop {
	return &PathAttributeNextHop{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_NEXT_HOP),
		Value:         addr,
	}
}

// decodeUint32 reads the single 4 byte value of MED and LOCAL_PREF.
func (p *PathAttribute) decodeUint32(data []byte) (uint32, error) {
	value, err := p.decodeHeader(data)
	if err != nil {
		return 0, err
	}
	if len(value) != 4 {
		return 0, attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2,
			fmt.Sprintf("%s length isn't correct", p.Type))
	}
	return binary.BigEndian.Uint32(value), nil
}

func (p *PathAttribute) serializeUint32(v uint32) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return p.serialize(buf)
}

type PathAttributeMultiExitDisc struct {
	PathAttribute
	Value uint32
}

func (p *PathAttributeMultiExitDisc) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	v, err := p.PathAttribute.decodeUint32(data)
	p.Value = v
	return err
}

func (p *PathAttributeMultiExitDisc) Serialize(options ...*MarshallingOption) ([]byte, error) {
	return p.PathAttribute.serializeUint32(p.Value)
}

func (p *PathAttributeMultiExitDisc) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 4
}

func (p *PathAttributeMultiExitDisc) String() string {
	return fmt.Sprintf("{Med: %d}", p.Value)
}

func NewPathAttributeMultiExitDisc(value uint32) *PathAttributeMultiExitDisc {
	return &PathAttributeMultiExitDisc{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_MULTI_EXIT_DISC),
		Value:         value,
	}
}

type PathAttributeLocalPref struct {
	PathAttribute
	Value uint32
}

func (p *PathAttributeLocalPref) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	v, err := p.PathAttribute.decodeUint32(data)
	p.Value = v
	return err
}

func (p *PathAttributeLocalPref) Serialize(options ...*MarshallingOption) ([]byte, error) {
	return p.PathAttribute.serializeUint32(p.Value)
}

func (p *PathAttributeLocalPref) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 4
}

func (p *PathAttributeLocalPref) String() string {
	return fmt.Sprintf("{LocalPref: %d}", p.Value)
}

func NewPathAttributeLocalPref(value uint32) *PathAttributeLocalPref {
	return &PathAttributeLocalPref{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_LOCAL_PREF),
		Value:         value,
	}
}

type PathAttributeAtomicAggregate struct {
	PathAttribute
}

func (p *PathAttributeAtomicAggregate) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value) != 0 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "atomic aggregate should have no value")
	}
	return nil
}

func (p *PathAttributeAtomicAggregate) Serialize(options ...*MarshallingOption) ([]byte, error) {
	return p.PathAttribute.serialize(nil)
}

func (p *PathAttributeAtomicAggregate) Len(options ...*MarshallingOption) int {
	return p.headerLen()
}

func (p *PathAttributeAtomicAggregate) String() string {
	return "{AtomicAggregate}"
}

func NewPathAttributeAtomicAggregate() *PathAttributeAtomicAggregate {
	return &PathAttributeAtomicAggregate{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_ATOMIC_AGGREGATE),
	}
}

type PathAttributeAggregator struct {
	PathAttribute
	AS      uint32
	Address netip.Addr
}

func (p *PathAttributeAggregator) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if IsAS4Enabled(options) {
		if len(value) != 8 {
			return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "aggregator length isn't correct")
		}
		p.AS = binary.BigEndian.Uint32(value[0:4])
		p.Address = netip.AddrFrom4([4]byte(value[4:8]))
		return nil
	}
	if len(value) != 6 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "aggregator length isn't correct")
	}
	p.AS = uint32(binary.BigEndian.Uint16(value[0:2]))
	p.Address = netip.AddrFrom4([4]byte(value[2:6]))
	return nil
}

func (p *PathAttributeAggregator) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if !p.Address.Is4() {
		return nil, fmt.Errorf("aggregator address %s isn't IPv4", p.Address)
	}
	addr := p.Address.As4()
	if IsAS4Enabled(options) {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint32(buf[0:4], p.AS)
		copy(buf[4:], addr[:])
		return p.PathAttribute.serialize(buf)
	}
	if p.AS > 0xffff {
		return nil, fmt.Errorf("AS %d doesn't fit in a 2-octet AGGREGATOR", p.AS)
	}
	buf := make([]byte, 6)
	binary.BigEndian.PutUint16(buf[0:2], uint16(p.AS))
	copy(buf[2:], addr[:])
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeAggregator) Len(options ...*MarshallingOption) int {
	if IsAS4Enabled(options) {
		return p.headerLen() + 8
	}
	return p.headerLen() + 6
}

func (p *PathAttributeAggregator) String() string {
	return fmt.Sprintf("{Aggregate: {AS: %d, Address: %s}}", p.AS, p.Address)
}

func NewPathAttributeAggregator(as uint32, address netip.Addr) *PathAttributeAggregator {
	return &PathAttributeAggregator{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_AGGREGATOR),
		AS:            as,
		Address:       address,
	}
}

type PathAttributeAs4Aggregator struct {
	PathAttribute
	AS      uint32
	Address netip.Addr
}

func (p *PathAttributeAs4Aggregator) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value) != 8 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "as4 aggregator length isn't correct")
	}
	p.AS = binary.BigEndian.Uint32(value[0:4])
	p.Address = netip.AddrFrom4([4]byte(value[4:8]))
	return nil
}

func (p *PathAttributeAs4Aggregator) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if !p.Address.Is4() {
		return nil, fmt.Errorf("aggregator address %s isn't IPv4", p.Address)
	}
	addr := p.Address.As4()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], p.AS)
	copy(buf[4:], addr[:])
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeAs4Aggregator) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 8
}

func (p *PathAttributeAs4Aggregator) String() string {
	return fmt.Sprintf("{As4Aggregator: {AS: %d, Address: %s}}", p.AS, p.Address)
}

func NewPathAttributeAs4Aggregator(as uint32, address netip.Addr) *PathAttributeAs4Aggregator {
	return &PathAttributeAs4Aggregator{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_AS4_AGGREGATOR),
		AS:            as,
		Address:       address,
	}
}

type PathAttributeCommunities struct {
	PathAttribute
	Value []uint32
}

func (p *PathAttributeCommunities) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value)%4 != 0 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "communities length isn't correct")
	}
	p.Value = make([]uint32, 0, len(value)/4)
	for len(value) >= 4 {
		p.Value = append(p.Value, binary.BigEndian.Uint32(value))
		value = value[4:]
	}
	return nil
}

func (p *PathAttributeCommunities) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf := make([]byte, len(p.Value)*4)
	for i, v := range p.Value {
		binary.BigEndian.PutUint32(buf[i*4:], v)
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeCommunities) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 4*len(p.Value)
}

func communityString(v uint32) string {
	switch v {
	case COMMUNITY_NO_EXPORT:
		return "no-export"
	case COMMUNITY_NO_ADVERTISE:
		return "no-advertise"
	case COMMUNITY_NO_EXPORT_SUBCONFED:
		return "no-export-subconfed"
	}
	return fmt.Sprintf("%d:%d", v>>16, v&0xffff)
}

func (p *PathAttributeCommunities) String() string {
	l := make([]string, 0, len(p.Value))
	for _, v := range p.Value {
		l = append(l, communityString(v))
	}
	return fmt.Sprintf("{Communities: %s}", strings.Join(l, ", "))
}

func NewPathAttributeCommunities(value []uint32) *PathAttributeCommunities {
	return &PathAttributeCommunities{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_COMMUNITIES),
		Value:         value,
	}
}

type PathAttributeOriginatorId struct {
	PathAttribute
	Value netip.Addr
}

func (p *PathAttributeOriginatorId) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value) != 4 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "originatorid length isn't correct")
	}
	p.Value = netip.AddrFrom4([4]byte(value))
	return nil
}

func (p *PathAttributeOriginatorId) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if !p.Value.Is4() {
		return nil, fmt.Errorf("originator id %s isn't IPv4", p.Value)
	}
	return p.PathAttribute.serialize(p.Value.AsSlice())
}

func (p *PathAttributeOriginatorId) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 4
}

func (p *PathAttributeOriginatorId) String() string {
	return fmt.Sprintf("{Originator: %s}", p.Value)
}

func NewPathAttributeOriginatorId(value netip.Addr) *PathAttributeOriginatorId {
	return &PathAttributeOriginatorId{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_ORIGINATOR_ID),
		Value:         value,
	}
}

type PathAttributeClusterList struct {
	PathAttribute
	Value []netip.Addr
}

func (p *PathAttributeClusterList) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value)%4 != 0 {
		return attrMalformed(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR, data[:p.headerLen()+len(value)], 2, "clusterlist length isn't correct")
	}
	p.Value = make([]netip.Addr, 0, len(value)/4)
	for len(value) >= 4 {
		p.Value = append(p.Value, netip.AddrFrom4([4]byte(value[:4])))
		value = value[4:]
	}
	return nil
}

func (p *PathAttributeClusterList) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf := make([]byte, 0, 4*len(p.Value))
	for _, v := range p.Value {
		if !v.Is4() {
			return nil, fmt.Errorf("cluster id %s isn't IPv4", v)
		}
		buf = append(buf, v.AsSlice()...)
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeClusterList) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 4*len(p.Value)
}

func (p *PathAttributeClusterList) String() string {
	l := make([]string, 0, len(p.Value))
	for _, v := range p.Value {
		l = append(l, v.String())
	}
	return fmt.Sprintf("{ClusterList: %s}", strings.Join(l, ", "))
}

func NewPathAttributeClusterList(value []netip.Addr) *PathAttributeClusterList {
	return &PathAttributeClusterList{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_CLUSTER_LIST),
		Value:         value,
	}
}

// PathAttributeExtendedCommunities keeps each RFC4360 community as its raw
// 8 octets packed into a uint64.
type PathAttributeExtendedCommunities struct {
	PathAttribute
	Value []uint64
}

func (p *PathAttributeExtendedCommunities) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	if len(value)%8 != 0 {
		return attrMalformed(BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR, data[:p.headerLen()+len(value)], 2, "extendedcommunities length isn't correct")
	}
	p.Value = make([]uint64, 0, len(value)/8)
	for len(value) >= 8 {
		p.Value = append(p.Value, binary.BigEndian.Uint64(value))
		value = value[8:]
	}
	return nil
}

func (p *PathAttributeExtendedCommunities) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf := make([]byte, 8*len(p.Value))
	for i, v := range p.Value {
		binary.BigEndian.PutUint64(buf[i*8:], v)
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeExtendedCommunities) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 8*len(p.Value)
}

func (p *PathAttributeExtendedCommunities) String() string {
	l := make([]string, 0, len(p.Value))
	for _, v := range p.Value {
		l = append(l, fmt.Sprintf("0x%016x", v))
	}
	return fmt.Sprintf("{Extcomms: [%s]}", strings.Join(l, ", "))
}

func NewPathAttributeExtendedCommunities(value []uint64) *PathAttributeExtendedCommunities {
	return &PathAttributeExtendedCommunities{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_EXTENDED_COMMUNITIES),
		Value:         value,
	}
}

func checkMpFamily(afi uint16, safi uint8) error {
	if afi != AFI_IP && afi != AFI_IP6 {
		return fmt.Errorf("unsupported AFI %d", afi)
	}
	if safi != SAFI_UNICAST && safi != SAFI_MULTICAST {
		return fmt.Errorf("unsupported SAFI %d", safi)
	}
	return nil
}

// mpPrefixError re-labels a prefix error found inside a multiprotocol
// attribute so that it is reported against the attribute.
func mpPrefixError(err error, offset int, attr []byte) error {
	e, ok := shiftError(err, offset).(*MessageError)
	if !ok {
		return err
	}
	e.SubTypeCode = BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR
	e.Data = attr
	return e
}

type PathAttributeMpReachNLRI struct {
	PathAttribute
	AFI              uint16
	SAFI             uint8
	Nexthop          netip.Addr
	LinkLocalNexthop netip.Addr
	// legacy SNPA octet, ignored on receipt
	Reserved uint8
	Value    []*IPAddrPrefix
}

func (p *PathAttributeMpReachNLRI) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	hdr := p.headerLen()
	attr := data[:hdr+len(value)]
	eSubCode := uint8(BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR)
	if len(value) < 5 {
		return attrMalformed(eSubCode, attr, hdr, "mpreach header length is short")
	}
	p.AFI = binary.BigEndian.Uint16(value[0:2])
	p.SAFI = value[2]
	if err := checkMpFamily(p.AFI, p.SAFI); err != nil {
		return attrMalformed(eSubCode, attr, hdr, err.Error())
	}
	nexthopLen := int(value[3])
	if len(value) < 4+nexthopLen+1 {
		return attrMalformed(eSubCode, attr, hdr+3, "mpreach nexthop length is short")
	}
	nexthop := value[4 : 4+nexthopLen]
	switch {
	case nexthopLen == 4 && p.AFI == AFI_IP:
		p.Nexthop = netip.AddrFrom4([4]byte(nexthop))
	case nexthopLen == 16:
		p.Nexthop = netip.AddrFrom16([16]byte(nexthop))
	case nexthopLen == 32:
		p.Nexthop = netip.AddrFrom16([16]byte(nexthop[:16]))
		p.LinkLocalNexthop = netip.AddrFrom16([16]byte(nexthop[16:]))
	default:
		return attrMalformed(eSubCode, attr, hdr+3, fmt.Sprintf("mpreach nexthop length %d is incorrect", nexthopLen))
	}
	p.Reserved = value[4+nexthopLen]
	offset := 4 + nexthopLen + 1
	prefixes, err := decodePrefixes(p.AFI, value[offset:])
	if err != nil {
		return mpPrefixError(err, hdr+offset, attr)
	}
	p.Value = prefixes
	return nil
}

func (p *PathAttributeMpReachNLRI) nexthopBytes() ([]byte, error) {
	if !p.Nexthop.IsValid() {
		return nil, fmt.Errorf("MP_REACH_NLRI has no nexthop")
	}
	if p.LinkLocalNexthop.IsValid() {
		if !p.Nexthop.Is6() || !p.LinkLocalNexthop.Is6() {
			return nil, fmt.Errorf("link local nexthop needs an IPv6 global nexthop")
		}
		buf := make([]byte, 0, 32)
		buf = append(buf, p.Nexthop.AsSlice()...)
		return append(buf, p.LinkLocalNexthop.AsSlice()...), nil
	}
	if p.AFI == AFI_IP6 && p.Nexthop.Is4() {
		return nil, fmt.Errorf("IPv6 NLRI can't have IPv4 nexthop %s", p.Nexthop)
	}
	return p.Nexthop.AsSlice(), nil
}

func (p *PathAttributeMpReachNLRI) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if err := checkMpFamily(p.AFI, p.SAFI); err != nil {
		return nil, err
	}
	nexthop, err := p.nexthopBytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4, 5+len(nexthop)+prefixesLen(p.Value))
	binary.BigEndian.PutUint16(buf[0:], p.AFI)
	buf[2] = p.SAFI
	buf[3] = uint8(len(nexthop))
	buf = append(buf, nexthop...)
	buf = append(buf, p.Reserved)
	for _, prefix := range p.Value {
		if prefix.AFI() != p.AFI {
			return nil, fmt.Errorf("%s doesn't belong to AFI %d", prefix, p.AFI)
		}
		pbuf, err := prefix.Serialize()
		if err != nil {
			return nil, err
		}
		buf = append(buf, pbuf...)
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeMpReachNLRI) Len(options ...*MarshallingOption) int {
	nexthopLen := p.Nexthop.BitLen() / 8
	if p.LinkLocalNexthop.IsValid() {
		nexthopLen += 16
	}
	return p.headerLen() + 5 + nexthopLen + prefixesLen(p.Value)
}

func (p *PathAttributeMpReachNLRI) String() string {
	nexthop := p.Nexthop.String()
	if p.LinkLocalNexthop.IsValid() {
		nexthop = fmt.Sprintf("%s, %s", p.Nexthop, p.LinkLocalNexthop)
	}
	return fmt.Sprintf("{MpReach(%s): {Nexthop: %s, NLRIs: %s}}", AfiSafiToFamily(p.AFI, p.SAFI), nexthop, prefixesString(p.Value))
}

func NewPathAttributeMpReachNLRI(family Family, nlri []*IPAddrPrefix, nexthop netip.Addr) *PathAttributeMpReachNLRI {
	return &PathAttributeMpReachNLRI{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_MP_REACH_NLRI),
		AFI:           family.Afi(),
		SAFI:          family.Safi(),
		Nexthop:       nexthop,
		Value:         nlri,
	}
}

type PathAttributeMpUnreachNLRI struct {
	PathAttribute
	AFI   uint16
	SAFI  uint8
	Value []*IPAddrPrefix
}

func (p *PathAttributeMpUnreachNLRI) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	hdr := p.headerLen()
	attr := data[:hdr+len(value)]
	eSubCode := uint8(BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR)
	if len(value) < 3 {
		return attrMalformed(eSubCode, attr, hdr, "unreach header length is incorrect")
	}
	p.AFI = binary.BigEndian.Uint16(value[0:2])
	p.SAFI = value[2]
	if err := checkMpFamily(p.AFI, p.SAFI); err != nil {
		return attrMalformed(eSubCode, attr, hdr, err.Error())
	}
	prefixes, err := decodePrefixes(p.AFI, value[3:])
	if err != nil {
		return mpPrefixError(err, hdr+3, attr)
	}
	p.Value = prefixes
	return nil
}

func (p *PathAttributeMpUnreachNLRI) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if err := checkMpFamily(p.AFI, p.SAFI); err != nil {
		return nil, err
	}
	buf := make([]byte, 3, 3+prefixesLen(p.Value))
	binary.BigEndian.PutUint16(buf, p.AFI)
	buf[2] = p.SAFI
	for _, prefix := range p.Value {
		if prefix.AFI() != p.AFI {
			return nil, fmt.Errorf("%s doesn't belong to AFI %d", prefix, p.AFI)
		}
		pbuf, err := prefix.Serialize()
		if err != nil {
			return nil, err
		}
		buf = append(buf, pbuf...)
	}
	return p.PathAttribute.serialize(buf)
}

func (p *PathAttributeMpUnreachNLRI) Len(options ...*MarshallingOption) int {
	return p.headerLen() + 3 + prefixesLen(p.Value)
}

func (p *PathAttributeMpUnreachNLRI) String() string {
	return fmt.Sprintf("{MpUnreach(%s): {NLRIs: %s}}", AfiSafiToFamily(p.AFI, p.SAFI), prefixesString(p.Value))
}

func NewPathAttributeMpUnreachNLRI(family Family, nlri []*IPAddrPrefix) *PathAttributeMpUnreachNLRI {
	return &PathAttributeMpUnreachNLRI{
		PathAttribute: newPathAttribute(BGP_ATTR_TYPE_MP_UNREACH_NLRI),
		AFI:           family.Afi(),
		SAFI:          family.Safi(),
		Value:         nlri,
	}
}

// PathAttributeUnknown keeps an attribute this package does not interpret,
// flags and value exactly as received.
type PathAttributeUnknown struct {
	PathAttribute
	Value []byte
}

func (p *PathAttributeUnknown) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	value, err := p.PathAttribute.decodeHeader(data)
	if err != nil {
		return err
	}
	p.Value = append([]byte(nil), value...)
	return nil
}

func (p *PathAttributeUnknown) Serialize(options ...*MarshallingOption) ([]byte, error) {
	return p.PathAttribute.serialize(p.Value)
}

func (p *PathAttributeUnknown) Len(options ...*MarshallingOption) int {
	return p.headerLen() + len(p.Value)
}

func (p *PathAttributeUnknown) String() string {
	return fmt.Sprintf("{Flags: %s, Type: %s, Value: %x}", p.Flags, p.Type, p.Value)
}

func NewPathAttributeUnknown(flags BGPAttrFlag, typ BGPAttrType, value []byte) *PathAttributeUnknown {
	return &PathAttributeUnknown{
		PathAttribute: PathAttribute{
			Flags: flags,
			Type:  typ,
		},
		Value: value,
	}
}

func prefixesString(prefixes []*IPAddrPrefix) string {
	l := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		l = append(l, p.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(l, ", "))
}

func getPathAttribute(data []byte) PathAttributeInterface {
	switch BGPAttrType(data[1]) {
	case BGP_ATTR_TYPE_ORIGIN:
		return &PathAttributeOrigin{}
	case BGP_ATTR_TYPE_AS_PATH:
		return &PathAttributeAsPath{}
	case BGP_ATTR_TYPE_NEXT_HOP:
		return &PathAttributeNextHop{}
	case BGP_ATTR_TYPE_MULTI_EXIT_DISC:
		return &PathAttributeMultiExitDisc{}
	case BGP_ATTR_TYPE_LOCAL_PREF:
		return &PathAttributeLocalPref{}
	case BGP_ATTR_TYPE_ATOMIC_AGGREGATE:
		return &PathAttributeAtomicAggregate{}
	case BGP_ATTR_TYPE_AGGREGATOR:
		return &PathAttributeAggregator{}
	case BGP_ATTR_TYPE_COMMUNITIES:
		return &PathAttributeCommunities{}
	case BGP_ATTR_TYPE_ORIGINATOR_ID:
		return &PathAttributeOriginatorId{}
	case BGP_ATTR_TYPE_CLUSTER_LIST:
		return &PathAttributeClusterList{}
	case BGP_ATTR_TYPE_MP_REACH_NLRI:
		return &PathAttributeMpReachNLRI{}
	case BGP_ATTR_TYPE_MP_UNREACH_NLRI:
		return &PathAttributeMpUnreachNLRI{}
	case BGP_ATTR_TYPE_EXTENDED_COMMUNITIES:
		return &PathAttributeExtendedCommunities{}
	case BGP_ATTR_TYPE_AS4_PATH:
		return &PathAttributeAs4Path{}
	case BGP_ATTR_TYPE_AS4_AGGREGATOR:
		return &PathAttributeAs4Aggregator{}
	}
	return &PathAttributeUnknown{}
}

// DecodePathAttribute reads one attribute from the start of data and returns
// it with the number of bytes it occupied. AS_PATH and AGGREGATOR are read
// with the AS width of options.
func DecodePathAttribute(data []byte, options ...*MarshallingOption) (PathAttributeInterface, int, error) {
	_, total, err := attributeSize(data)
	if err != nil {
		return nil, 0, err
	}
	p := getPathAttribute(data)
	if err := p.DecodeFromBytes(data[:total], options...); err != nil {
		return nil, 0, err
	}
	return p, total, nil
}

// EncodePathAttribute is the inverse of DecodePathAttribute.
func EncodePathAttribute(p PathAttributeInterface, options ...*MarshallingOption) ([]byte, error) {
	return p.Serialize(options...)
}
