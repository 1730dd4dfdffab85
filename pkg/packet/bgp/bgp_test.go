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
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keepalive() *BGPMessage {
	return NewBGPKeepAliveMessage()
}

func notification() *BGPMessage {
	return NewBGPNotificationMessage(1, 2, nil)
}

func refresh() *BGPMessage {
	return NewBGPRouteRefreshMessage(1, 2, 1)
}

var as4Option = &MarshallingOption{AS4: true}

func Test_Message(t *testing.T) {
	l := []*BGPMessage{keepalive(), notification(), refresh(), NewTestBGPOpenMessage(), NewTestBGPUpdateMessage()}

	for _, m1 := range l {
		buf1, err := m1.Serialize(as4Option)
		require.NoError(t, err)

		t.Log("LEN =", len(buf1))
		m2, err := ParseBGPMessage(buf1, as4Option)
		require.NoError(t, err)

		assert.Equal(t, m1.Header.Type, m2.Header.Type)
		assert.Equal(t, uint16(len(buf1)), m2.Header.Len)
		assert.Equal(t, m1.Body, m2.Body)

		buf2, err := m2.Serialize(as4Option)
		require.NoError(t, err)
		assert.Equal(t, buf1, buf2)
	}
}

func Test_MessageWithout4OctetAS(t *testing.T) {
	u := NewTestBGPUpdateMessage()
	_, err := u.Serialize()
	assert.Error(t, err)

	as1, _ := NewIPAddrPrefix(netip.MustParsePrefix("10.10.0.0/16"))
	m1 := NewBGPUpdateMessage(nil, []PathAttributeInterface{
		NewPathAttributeOrigin(BGP_ORIGIN_ATTR_TYPE_IGP),
		NewPathAttributeAsPath([]*AsPathParam{NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{AS_TRANS, 65001})}),
		NewPathAttributeNextHop(netip.MustParseAddr("192.0.2.1")),
		NewPathAttributeAggregator(65001, netip.MustParseAddr("192.0.2.1")),
		NewPathAttributeAs4Path([]*AsPathParam{NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{4200000000, 65001})}),
	}, []*IPAddrPrefix{as1})
	buf, err := m1.Serialize()
	require.NoError(t, err)
	m2, err := ParseBGPMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, m1.Body, m2.Body)
}

func Test_OpenMessage(t *testing.T) {
	assert := assert.New(t)
	caps := []ParameterCapabilityInterface{
		NewCapMultiProtocol(RF_IPv4_UC),
		NewCapFourOctetASNumber(65000),
	}
	m1 := NewBGPOpenMessage(65000, 180, netip.MustParseAddr("1.2.3.4"),
		[]OptionParameterInterface{NewOptionParameterCapability(caps)})
	buf, err := m1.Serialize()
	require.NoError(t, err)

	body := buf[BGP_HEADER_LENGTH:]
	assert.Equal([]byte{
		0x04,       // version
		0xfd, 0xe8, // my as
		0x00, 0xb4, // hold time
		0x01, 0x02, 0x03, 0x04, // id
		0x0e,       // opt param len
		0x02, 0x0c, // capabilities
		0x01, 0x04, 0x00, 0x01, 0x00, 0x01,
		0x41, 0x04, 0x00, 0x00, 0xfd, 0xe8,
	}, body)
	assert.Equal(2+caps[0].Len()+caps[1].Len(), int(body[9]))

	m2, err := ParseBGPMessage(buf)
	require.NoError(t, err)
	assert.Equal(m1.Body, m2.Body)
	as, ok := m2.Body.(*BGPOpen).FourOctetAS()
	assert.True(ok)
	assert.Equal(uint32(65000), as)
}

func Test_OpenMessageErrors(t *testing.T) {
	base := []byte{0x04, 0xfd, 0xe8, 0x00, 0xb4, 0x01, 0x02, 0x03, 0x04, 0x00}

	tests := []struct {
		name    string
		mutate  func(b []byte) []byte
		subcode uint8
		kind    ErrorKind
		offset  int
	}{
		{"version", func(b []byte) []byte { b[0] = 3; return b }, BGP_ERROR_SUB_UNSUPPORTED_VERSION_NUMBER, ErrorKindOpen, 0},
		{"hold time", func(b []byte) []byte { b[4] = 2; b[3] = 0; return b }, BGP_ERROR_SUB_UNACCEPTABLE_HOLD_TIME, ErrorKindOpen, 3},
		{"identifier", func(b []byte) []byte { copy(b[5:9], []byte{0, 0, 0, 0}); return b }, BGP_ERROR_SUB_BAD_BGP_IDENTIFIER, ErrorKindOpen, 5},
		{"opt param length", func(b []byte) []byte { b[9] = 4; return append(b, 0x02, 0x00) }, BGP_ERROR_SUB_UNSPECIFIC, ErrorKindOpen, 9},
		{"opt param overrun", func(b []byte) []byte { b[9] = 2; return append(b, 0x02, 0x06) }, BGP_ERROR_SUB_UNSPECIFIC, ErrorKindOpen, 11},
		{"capability overrun", func(b []byte) []byte { b[9] = 4; return append(b, 0x02, 0x02, 0x41, 0x04) }, BGP_ERROR_SUB_UNSPECIFIC, ErrorKindCapability, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte{}, base...))
			err := (&BGPOpen{}).DecodeFromBytes(data)
			require.Error(t, err)
			e, ok := err.(*MessageError)
			require.True(t, ok)
			assert.Equal(t, uint8(BGP_ERROR_OPEN_MESSAGE_ERROR), e.TypeCode)
			assert.Equal(t, tt.subcode, e.SubTypeCode)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.offset, e.Offset)
		})
	}

	err := (&BGPOpen{}).DecodeFromBytes([]byte{0x03, 0xfd, 0xe8, 0x00, 0xb4, 0x01, 0x02, 0x03, 0x04, 0x00})
	assert.Equal(t, []byte{0x00, 0x04}, err.(*MessageError).Data)
}

func Test_OpenUnknownOptionalParameter(t *testing.T) {
	data := []byte{0x04, 0xfd, 0xe8, 0x00, 0xb4, 0x01, 0x02, 0x03, 0x04, 0x07,
		0x01, 0x01, 0xaa, // authentication, deprecated
		0x02, 0x02, 0x02, 0x00, // route refresh
	}
	open := &BGPOpen{}
	require.NoError(t, open.DecodeFromBytes(data))
	require.Len(t, open.OptParams, 2)
	assert.Equal(t, &OptionParameterUnknown{ParamType: 1, Value: []byte{0xaa}}, open.OptParams[0])
	assert.Equal(t, []ParameterCapabilityInterface{NewCapRouteRefresh()}, open.Capabilities())

	buf, err := open.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, buf)
}

func Test_UpdateWithdrawal(t *testing.T) {
	w, _ := NewIPAddrPrefix(netip.MustParsePrefix("10.0.0.0/8"))
	m := NewBGPUpdateMessage([]*IPAddrPrefix{w}, nil, nil)
	buf, err := m.Serialize()
	require.NoError(t, err)

	body := buf[BGP_HEADER_LENGTH:]
	assert.Equal(t, []byte{0x00, 0x02, 0x08, 0x0a, 0x00, 0x00}, body)
	withdrawnLen := binary.BigEndian.Uint16(body[0:2])
	assert.Equal(t, uint16(2), withdrawnLen)
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(body[2+withdrawnLen:]))

	m2, err := ParseBGPMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, m.Body, m2.Body)
}

func Test_MalformedUpdateMsg(t *testing.T) {
	assert := assert.New(t)
	var bufin []byte
	var u *BGPUpdate
	var err error

	// Invalid AS_PATH
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x16, // Attrs Len(22)
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x03, 0x04, 0xc0, // Attr(NEXT_HOP)
		0xa8, 0x01, 0x64,
		0x40, 0x02, 0x17, // Attr(AS_PATH) - invalid length
		0x02, 0x03, 0xfd, 0xe8,
		0xfd, 0xe8, 0xfd, 0xe8,
		0x08, 0x0a, // NLRI
	}

	u = &BGPUpdate{}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindAttributeTruncated, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR), err.(*MessageError).SubTypeCode)
	assert.Equal(17, err.(*MessageError).Offset)

	// Invalid AGGREGATOR
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x16, // Attrs Len(22)
		0xc0, 0x07, 0x05, // Flag, Type(7), Length(5)
		0x00, 0x00, 0x00, 0x64, // aggregator - invalid length
		0x00,
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x03, 0x04, 0xc0, // Attr(NEXT_HOP)
		0xa8, 0x01, 0x64,
		0x40, 0x02, 0x00, // Attr(AS_PATH)
	}

	u = &BGPUpdate{}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindAttributeMalformed, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR), err.(*MessageError).SubTypeCode)

	// Invalid MP_REACH_NLRI
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x27, // Attrs Len(39)
		0x80, 0x0e, 0x1d, // Flag, Type(14), Length(29)
		0x00, 0x02, 0x01, // afi(2), safi(1)
		0x0f, 0x00, 0x00, 0x00, // nexthop - invalid nexthop length
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0xff,
		0xff, 0x0a, 0x00, 0x00,
		0x00,                   // SNPA(0)
		0x40, 0x20, 0x01, 0x0d, // NLRI
		0xb8, 0x00, 0x01, 0x00,
		0x00,
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x02, 0x00, // Attr(AS_PATH)
	}

	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindAttributeMalformed, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR), err.(*MessageError).SubTypeCode)

	// Invalid flag
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x0e, // Attrs Len(14)
		0xc0, 0x01, 0x01, 0x00, // Attr(ORIGIN) - invalid flag
		0x40, 0x03, 0x04, 0xc0, // Attr(NEXT_HOP)
		0xa8, 0x01, 0x64,
		0x40, 0x02, 0x00, // Attr(AS_PATH)
	}

	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindAttributeMalformed, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_ATTRIBUTE_FLAGS_ERROR), err.(*MessageError).SubTypeCode)
	assert.Equal([]byte{0xc0, 0x01, 0x01, 0x00}, err.(*MessageError).Data)

	// Invalid AGGREGATOR and MULTI_EXIT_DESC
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x1e, // Attrs Len(30)
		0xc0, 0x07, 0x05, 0x00, // Attr(AGGREGATOR) - invalid length
		0x00, 0x00, 0x64, 0x00,
		0x80, 0x04, 0x05, 0x00, // Attr(MULTI_EXIT_DESC)  - invalid length
		0x00, 0x00, 0x00, 0x64,
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x02, 0x00, // Attr(AS_PATH)
		0x40, 0x03, 0x04, 0xc0, // Attr(NEXT_HOP)
		0xa8, 0x01, 0x64,
		0x20, 0xc8, 0xc8, 0xc8, // NLRI
		0xc8,
	}

	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindAttributeMalformed, ErrorKindOf(err))
	assert.Equal(6, err.(*MessageError).Offset)

	// Duplicate ORIGIN
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x08, // Attrs Len(8)
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x01, 0x01, 0x02, // Attr(ORIGIN)
	}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindUpdate, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST), err.(*MessageError).SubTypeCode)
	assert.Equal(8, err.(*MessageError).Offset)

	// Missing NEXT_HOP
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x07, // Attrs Len(7)
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x02, 0x00, // Attr(AS_PATH)
		0x08, 0x0a, // NLRI
	}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(uint8(BGP_ERROR_SUB_MISSING_WELL_KNOWN_ATTRIBUTE), err.(*MessageError).SubTypeCode)
	assert.Equal([]byte{uint8(BGP_ATTR_TYPE_NEXT_HOP)}, err.(*MessageError).Data)

	// Attribute length beyond the body
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x10, // Attrs Len(16)
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
	}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindUpdate, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST), err.(*MessageError).SubTypeCode)

	// Withdrawn length beyond the body
	bufin = []byte{
		0x00, 0x05, // Withdraws(5)
		0x08, 0x0a,
	}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindUpdate, ErrorKindOf(err))

	// Trailing NLRI byte
	bufin = []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x0e, // Attrs Len(14)
		0x40, 0x01, 0x01, 0x00, // Attr(ORIGIN)
		0x40, 0x02, 0x00, // Attr(AS_PATH)
		0x40, 0x03, 0x04, 0xc0, // Attr(NEXT_HOP)
		0xa8, 0x01, 0x64,
		0x18, 0x0a, 0x00, // NLRI, one byte short
	}
	err = u.DecodeFromBytes(bufin)
	assert.Error(err)
	assert.Equal(ErrorKindPrefix, ErrorKindOf(err))
	assert.Equal(uint8(BGP_ERROR_SUB_INVALID_NETWORK_FIELD), err.(*MessageError).SubTypeCode)
	assert.Equal(18, err.(*MessageError).Offset)
}

func Test_MalformedAsPath(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{"segment overrun", []byte{0x40, 0x02, 0x05, 0x02, 0x02, 0xfd, 0xe8, 0xfd}, 4},
		{"half segment header", []byte{0x40, 0x02, 0x05, 0x02, 0x01, 0xfd, 0xe8, 0x02}, 7},
		{"empty segment", []byte{0x40, 0x02, 0x02, 0x02, 0x00}, 4},
		{"bad segment type", []byte{0x40, 0x02, 0x04, 0x05, 0x01, 0xfd, 0xe8}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, n, err := DecodePathAttribute(tt.data)
			assert.Nil(t, p)
			assert.Equal(t, 0, n)
			require.Error(t, err)
			e, ok := err.(*MessageError)
			require.True(t, ok)
			assert.Equal(t, ErrorKindAttributeMalformed, e.Kind)
			assert.Equal(t, uint8(BGP_ERROR_UPDATE_MESSAGE_ERROR), e.TypeCode)
			assert.Equal(t, uint8(BGP_ERROR_SUB_MALFORMED_AS_PATH), e.SubTypeCode)
			assert.Equal(t, tt.offset, e.Offset)
			assert.Equal(t, tt.data, e.Data)
		})
	}

	// 2-octet segment read as 4-octet
	_, _, err := DecodePathAttribute([]byte{0x40, 0x02, 0x06, 0x02, 0x02, 0xfd, 0xe8, 0xfd, 0xe9}, as4Option)
	assert.Equal(t, ErrorKindAttributeMalformed, ErrorKindOf(err))
}

func Test_ASLen(t *testing.T) {
	assert := assert.New(t)
	p := NewPathAttributeAsPath([]*AsPathParam{NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{65000, 65001})})

	buf, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal([]byte{0x40, 0x02, 0x06, 0x02, 0x02, 0xfd, 0xe8, 0xfd, 0xe9}, buf)
	assert.Equal(len(buf), p.Len())

	buf, err = p.Serialize(as4Option)
	require.NoError(t, err)
	assert.Equal([]byte{0x40, 0x02, 0x0a, 0x02, 0x02, 0x00, 0x00, 0xfd, 0xe8, 0x00, 0x00, 0xfd, 0xe9}, buf)
	assert.Equal(len(buf), p.Len(as4Option))

	d, n, err := DecodePathAttribute(buf, as4Option)
	require.NoError(t, err)
	assert.Equal(len(buf), n)
	assert.Equal(p, d)

	large := NewPathAttributeAsPath([]*AsPathParam{NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{4200000000})})
	_, err = large.Serialize()
	assert.Error(err)

	agg := NewPathAttributeAggregator(65000, netip.MustParseAddr("192.0.2.1"))
	buf, err = agg.Serialize()
	require.NoError(t, err)
	assert.Equal([]byte{0xc0, 0x07, 0x06, 0xfd, 0xe8, 192, 0, 2, 1}, buf)
	buf, err = agg.Serialize(as4Option)
	require.NoError(t, err)
	assert.Equal([]byte{0xc0, 0x07, 0x08, 0x00, 0x00, 0xfd, 0xe8, 192, 0, 2, 1}, buf)
	_, _, err = DecodePathAttribute(buf)
	assert.Equal(ErrorKindAttributeMalformed, ErrorKindOf(err))
}

func Test_ExtendedLength(t *testing.T) {
	assert := assert.New(t)

	value := make([]byte, 255)
	p := NewPathAttributeUnknown(BGP_ATTR_FLAG_OPTIONAL|BGP_ATTR_FLAG_TRANSITIVE, 200, value)
	buf, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(3+255, len(buf))
	assert.Equal(byte(255), buf[2])

	p = NewPathAttributeUnknown(BGP_ATTR_FLAG_OPTIONAL|BGP_ATTR_FLAG_TRANSITIVE, 200, make([]byte, 256))
	_, err = p.Serialize()
	assert.Error(err)

	p.Flags |= BGP_ATTR_FLAG_EXTENDED_LENGTH
	buf, err = p.Serialize()
	require.NoError(t, err)
	assert.Equal(4+256, len(buf))
	assert.Equal(uint16(256), binary.BigEndian.Uint16(buf[2:4]))
	assert.Equal(len(buf), p.Len())

	d, n, err := DecodePathAttribute(buf)
	require.NoError(t, err)
	assert.Equal(4+256, n)
	assert.Equal(p, d)

	// a set flag is kept even when the value would fit one octet
	p = NewPathAttributeUnknown(BGP_ATTR_FLAG_OPTIONAL|BGP_ATTR_FLAG_TRANSITIVE|BGP_ATTR_FLAG_EXTENDED_LENGTH, 200, value)
	buf, err = p.Serialize()
	require.NoError(t, err)
	assert.Equal(4+255, len(buf))
	assert.Equal(uint16(255), binary.BigEndian.Uint16(buf[2:4]))

	d, n, err = DecodePathAttribute(buf)
	require.NoError(t, err)
	assert.Equal(4+255, n)
	assert.Equal(p, d)
	out, err := EncodePathAttribute(d)
	require.NoError(t, err)
	assert.Equal(buf, out)

	communities := make([]uint32, 64)
	c := NewPathAttributeCommunities(communities)
	_, err = c.Serialize()
	assert.Error(err)
	c.Flags |= BGP_ATTR_FLAG_EXTENDED_LENGTH
	buf, err = c.Serialize()
	require.NoError(t, err)
	assert.Equal(4+256, len(buf))
}

func Test_UnknownAttribute(t *testing.T) {
	for _, data := range [][]byte{
		{0xe0, 0x63, 0x02, 0xaa, 0xbb},
		{0xd0, 0x63, 0x00, 0x01, 0xaa},
		{0x40, 0xfe, 0x00},
	} {
		p, n, err := DecodePathAttribute(data)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
		u, ok := p.(*PathAttributeUnknown)
		require.True(t, ok)
		assert.Equal(t, BGPAttrFlag(data[0]), u.Flags)
		assert.Equal(t, BGPAttrType(data[1]), u.Type)

		buf, err := EncodePathAttribute(p)
		require.NoError(t, err)
		assert.Equal(t, data, buf)
	}
}

func Test_AttributeTruncated(t *testing.T) {
	for _, data := range [][]byte{
		{0x40},
		{0x40, 0x01},
		{0x50, 0x01, 0x00},
		{0x40, 0x01, 0x02, 0x00},
		{0x50, 0x02, 0x01, 0x00, 0x02},
	} {
		_, _, err := DecodePathAttribute(data)
		require.Error(t, err)
		assert.Equal(t, ErrorKindAttributeTruncated, ErrorKindOf(err))
		assert.Equal(t, uint8(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR), err.(*MessageError).SubTypeCode)
	}
}

func Test_PathAttributeValues(t *testing.T) {
	tests := []struct {
		name string
		attr PathAttributeInterface
		data []byte
	}{
		{"origin", NewPathAttributeOrigin(BGP_ORIGIN_ATTR_TYPE_INCOMPLETE), []byte{0x40, 0x01, 0x01, 0x02}},
		{"nexthop", NewPathAttributeNextHop(netip.MustParseAddr("192.168.1.100")), []byte{0x40, 0x03, 0x04, 0xc0, 0xa8, 0x01, 0x64}},
		{"med", NewPathAttributeMultiExitDisc(100), []byte{0x80, 0x04, 0x04, 0x00, 0x00, 0x00, 0x64}},
		{"localpref", NewPathAttributeLocalPref(200), []byte{0x40, 0x05, 0x04, 0x00, 0x00, 0x00, 0xc8}},
		{"atomic", NewPathAttributeAtomicAggregate(), []byte{0x40, 0x06, 0x00}},
		{"communities", NewPathAttributeCommunities([]uint32{0xfde80001, COMMUNITY_NO_EXPORT}), []byte{0xc0, 0x08, 0x08, 0xfd, 0xe8, 0x00, 0x01, 0xff, 0xff, 0xff, 0x01}},
		{"originator", NewPathAttributeOriginatorId(netip.MustParseAddr("10.0.0.1")), []byte{0x80, 0x09, 0x04, 0x0a, 0x00, 0x00, 0x01}},
		{"cluster", NewPathAttributeClusterList([]netip.Addr{netip.MustParseAddr("10.0.0.2")}), []byte{0x80, 0x0a, 0x04, 0x0a, 0x00, 0x00, 0x02}},
		{"extcomm", NewPathAttributeExtendedCommunities([]uint64{0x0002fde800000064}), []byte{0xc0, 0x10, 0x08, 0x00, 0x02, 0xfd, 0xe8, 0x00, 0x00, 0x00, 0x64}},
		{"as4path", NewPathAttributeAs4Path([]*AsPathParam{NewAsPathParam(BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{4200000000})}), []byte{0xc0, 0x11, 0x06, 0x02, 0x01, 0xfa, 0x56, 0xea, 0x00}},
		{"as4aggregator", NewPathAttributeAs4Aggregator(4200000000, netip.MustParseAddr("10.0.0.1")), []byte{0xc0, 0x12, 0x08, 0xfa, 0x56, 0xea, 0x00, 0x0a, 0x00, 0x00, 0x01}},
		{"mp unreach", NewPathAttributeMpUnreachNLRI(RF_IPv6_UC, nil), []byte{0x80, 0x0f, 0x03, 0x00, 0x02, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.attr.Serialize()
			require.NoError(t, err)
			assert.Equal(t, tt.data, buf)
			assert.Equal(t, len(buf), tt.attr.Len())

			p, n, err := DecodePathAttribute(tt.data)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), n)
			assert.Equal(t, tt.attr.GetType(), p.GetType())
			assert.Equal(t, tt.attr.String(), p.String())
		})
	}
}

func Test_InvalidOrigin(t *testing.T) {
	_, _, err := DecodePathAttribute([]byte{0x40, 0x01, 0x01, 0x03})
	require.Error(t, err)
	assert.Equal(t, uint8(BGP_ERROR_SUB_INVALID_ORIGIN_ATTRIBUTE), err.(*MessageError).SubTypeCode)
	assert.Equal(t, 3, err.(*MessageError).Offset)
}

func Test_MpReachNLRIWithIPv6(t *testing.T) {
	assert := assert.New(t)
	prefix, _ := NewIPAddrPrefix(netip.MustParsePrefix("2001:db8:53::/64"))
	p := NewPathAttributeMpReachNLRI(RF_IPv6_UC, []*IPAddrPrefix{prefix}, netip.MustParseAddr("2001:db8::1"))
	buf, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal([]byte{
		0x80, 0x0e, 0x1e, // flags, type, length
		0x00, 0x02, 0x01, // afi, safi
		0x10, // nexthop length
		0x20, 0x01, 0x0d, 0xb8, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x00, // reserved
		0x40, 0x20, 0x01, 0x0d, 0xb8, 0x00, 0x53, 0x00, 0x00,
	}, buf)

	d, _, err := DecodePathAttribute(buf)
	require.NoError(t, err)
	assert.Equal(p, d)
	assert.Equal(RF_IPv6_UC, AfiSafiToFamily(d.(*PathAttributeMpReachNLRI).AFI, d.(*PathAttributeMpReachNLRI).SAFI))
}

func Test_MpReachNLRIWithIPv6PrefixWithLinkLocalNexthop(t *testing.T) {
	prefix, _ := NewIPAddrPrefix(netip.MustParsePrefix("2001:db8::/32"))
	p := NewPathAttributeMpReachNLRI(RF_IPv6_UC, []*IPAddrPrefix{prefix}, netip.MustParseAddr("2001:db8::1"))
	p.LinkLocalNexthop = netip.MustParseAddr("fe80::1")
	buf, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, byte(32), buf[6])
	assert.Equal(t, len(buf), p.Len())

	d, _, err := DecodePathAttribute(buf)
	require.NoError(t, err)
	assert.Equal(t, p, d)
}

func Test_MpReachNLRIWithIPv4PrefixWithIPv6Nexthop(t *testing.T) {
	prefix, _ := NewIPAddrPrefix(netip.MustParsePrefix("10.0.0.0/24"))
	p := NewPathAttributeMpReachNLRI(RF_IPv4_UC, []*IPAddrPrefix{prefix}, netip.MustParseAddr("2001:db8::1"))
	buf, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, byte(16), buf[6])

	d, _, err := DecodePathAttribute(buf)
	require.NoError(t, err)
	assert.Equal(t, p, d)
}

func Test_MpReachNLRIReserved(t *testing.T) {
	assert := assert.New(t)
	buf := []byte{
		0x80, 0x0e, 0x0d,
		0x00, 0x01, 0x01,
		0x04, 0x0a, 0x00, 0x00, 0x01,
		0x01, // reserved
		0x18, 0x0a, 0x01, 0x02,
	}
	d, n, err := DecodePathAttribute(buf)
	require.NoError(t, err)
	assert.Equal(len(buf), n)
	p := d.(*PathAttributeMpReachNLRI)
	assert.Equal(uint8(1), p.Reserved)
	assert.Equal(len(buf), p.Len())

	out, err := EncodePathAttribute(p)
	require.NoError(t, err)
	assert.Equal(buf, out)
}

func Test_MpReachNLRIErrors(t *testing.T) {
	// IPv4 family with a 16 byte prefix length
	buf := []byte{
		0x80, 0x0e, 0x0b,
		0x00, 0x01, 0x01,
		0x04, 0x0a, 0x00, 0x00, 0x01,
		0x00,
		0x21, 0x0a,
	}
	_, _, err := DecodePathAttribute(buf)
	require.Error(t, err)
	e := err.(*MessageError)
	assert.Equal(t, ErrorKindPrefix, e.Kind)
	assert.Equal(t, uint8(BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR), e.SubTypeCode)
	assert.Equal(t, 12, e.Offset)

	// unknown AFI
	_, _, err = DecodePathAttribute([]byte{0x80, 0x0f, 0x03, 0x00, 0x19, 0x01})
	assert.Equal(t, ErrorKindAttributeMalformed, ErrorKindOf(err))

	// IPv6 prefix in an IPv4 attribute
	v6, _ := NewIPAddrPrefix(netip.MustParsePrefix("2001:db8::/32"))
	_, err = NewPathAttributeMpUnreachNLRI(RF_IPv4_UC, []*IPAddrPrefix{v6}).Serialize()
	assert.Error(t, err)

	// no nexthop
	_, err = NewPathAttributeMpReachNLRI(RF_IPv6_UC, []*IPAddrPrefix{v6}, netip.Addr{}).Serialize()
	assert.Error(t, err)
}

func Test_PathAttributeNextHop(t *testing.T) {
	b, err := NewPathAttributeNextHop(netip.MustParseAddr("192.0.2.1")).Serialize()
	require.NoError(t, err)
	p := PathAttributeNextHop{}
	require.NoError(t, p.DecodeFromBytes(b))
	assert.Equal(t, "192.0.2.1", p.Value.String())

	_, err = NewPathAttributeNextHop(netip.MustParseAddr("2001:db8::68")).Serialize()
	assert.Error(t, err)

	// IPv6 next hops only travel in MP_REACH_NLRI
	buf := append([]byte{0x40, 0x03, 0x10}, netip.MustParseAddr("2001:db8::68").AsSlice()...)
	_, _, err = DecodePathAttribute(buf)
	require.Error(t, err)
	e := err.(*MessageError)
	assert.Equal(t, ErrorKindAttributeMalformed, e.Kind)
	assert.Equal(t, uint8(BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR), e.SubTypeCode)
	assert.Equal(t, buf, e.Data)
}

func Test_Notification(t *testing.T) {
	assert := assert.New(t)

	m := NewBGPNotificationMessage(99, 42, []byte{1, 2, 3})
	buf, err := m.Serialize()
	require.NoError(t, err)
	assert.Equal([]byte{99, 42, 1, 2, 3}, buf[BGP_HEADER_LENGTH:])
	m2, err := ParseBGPMessage(buf)
	require.NoError(t, err)
	assert.Equal(m.Body, m2.Body)
	assert.Equal("{Code: unknown(99), Subcode: unknown(42), Data: 010203}", m2.Body.String())

	buf, err = notification().Serialize()
	require.NoError(t, err)
	m2, err = ParseBGPMessage(buf)
	require.NoError(t, err)
	assert.Nil(m2.Body.(*BGPNotification).Data)
	assert.Equal("{Code: header, Subcode: bad message length}", m2.Body.String())

	n := NewBGPNotificationMessage(BGP_ERROR_CEASE, BGP_ERROR_SUB_ADMINISTRATIVE_SHUTDOWN, NewAdministrativeCommunication("maintenance"))
	assert.Equal(`{Code: cease, Subcode: administrative shutdown, Reason: "maintenance"}`, n.Body.String())

	err = (&BGPNotification{}).DecodeFromBytes([]byte{6})
	assert.Equal(ErrorKindNotification, ErrorKindOf(err))
}

func Test_NotificationErrorCode(t *testing.T) {
	// boundary check
	NotificationSubcodeString(BGP_ERROR_MESSAGE_HEADER_ERROR, BGP_ERROR_SUB_BAD_MESSAGE_TYPE+1)
	NotificationSubcodeString(0xff, 0xff)
	assert.Equal(t, "unspecific", NotificationSubcodeString(BGP_ERROR_CEASE, 0))
	assert.Equal(t, "hold timer expired", NotificationCodeString(BGP_ERROR_HOLD_TIMER_EXPIRED))
}

func Test_KeepaliveAndRouteRefresh(t *testing.T) {
	buf, err := keepalive().Serialize()
	require.NoError(t, err)
	assert.Equal(t, 19, len(buf))

	err = (&BGPKeepAlive{}).DecodeFromBytes([]byte{0})
	assert.Equal(t, ErrorKindKeepalive, ErrorKindOf(err))
	assert.Equal(t, []byte{0x00, 0x14}, err.(*MessageError).Data)

	buf, err = refresh().Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x01}, buf[BGP_HEADER_LENGTH:])

	err = (&BGPRouteRefresh{}).DecodeFromBytes([]byte{0x00, 0x01, 0x00, 0x01, 0x00})
	require.Error(t, err)
	assert.Equal(t, ErrorKindRouteRefresh, ErrorKindOf(err))
	assert.Equal(t, uint8(BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR), err.(*MessageError).TypeCode)
	assert.Equal(t, uint8(BGP_ERROR_SUB_INVALID_MESSAGE_LENGTH), err.(*MessageError).SubTypeCode)
}

func Test_MessageErrorNotification(t *testing.T) {
	_, _, err := DecodePathAttribute([]byte{0x40, 0x01, 0x01, 0x05})
	require.Error(t, err)
	n := err.(*MessageError).Notification()
	body := n.Body.(*BGPNotification)
	assert.Equal(t, uint8(BGP_ERROR_UPDATE_MESSAGE_ERROR), body.ErrorCode)
	assert.Equal(t, uint8(BGP_ERROR_SUB_INVALID_ORIGIN_ATTRIBUTE), body.ErrorSubcode)
	assert.Equal(t, []byte{0x40, 0x01, 0x01, 0x05}, body.Data)
}

func Test_EndOfRib(t *testing.T) {
	for _, f := range []Family{RF_IPv4_UC, RF_IPv6_UC} {
		buf, err := NewEndOfRib(f).Serialize()
		require.NoError(t, err)
		m, err := ParseBGPMessage(buf)
		require.NoError(t, err)
		eor, family := m.Body.(*BGPUpdate).IsEndOfRib()
		assert.True(t, eor)
		assert.Equal(t, f, family)
	}
}

func Test_MessageTooLong(t *testing.T) {
	m := NewBGPNotificationMessage(BGP_ERROR_CEASE, 0, make([]byte, BGP_MAX_MESSAGE_LENGTH))
	_, err := m.Serialize()
	assert.Error(t, err)

	_, err = m.Serialize(&MarshallingOption{ExtendedMessage: true})
	assert.NoError(t, err)
}

func TestParseBogusShortData(t *testing.T) {
	var bodies = []BGPBody{
		&BGPOpen{},
		&BGPUpdate{},
		&BGPNotification{},
		&BGPKeepAlive{},
		&BGPRouteRefresh{},
	}

	for _, b := range bodies {
		b.DecodeFromBytes([]byte{0})
		b.DecodeFromBytes(nil)
	}
}

func TestFuzzCrashers(t *testing.T) {
	var crashers = []string{
		"000000000000000000\x01",
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\x00\x1d\x01\x04\x00\x00\x00\x00\x01\x01\x01\x01\xff",
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\x00\x1b\x02\x00\x00\x00\x04\x50\x0e\x00",
	}

	for _, f := range crashers {
		ParseBGPMessage([]byte(f))
	}
}

// prefixesMasked reports whether every NLRI entry in data has its bits past
// the prefix length cleared. Decoding clears them, so only such input can
// come back byte for byte.
func prefixesMasked(data []byte) bool {
	for len(data) > 0 {
		bits := int(data[0])
		n := (bits + 7) / 8
		if bits%8 != 0 && data[n]&(0xff>>(bits%8)) != 0 {
			return false
		}
		data = data[1+n:]
	}
	return true
}

// updatePrefixesMasked applies prefixesMasked to every route of an UPDATE
// that ParseBGPMessage accepted.
func updatePrefixesMasked(data []byte) bool {
	if data[18] != BGP_MSG_UPDATE {
		return true
	}
	body := data[BGP_HEADER_LENGTH:]
	wlen := int(binary.BigEndian.Uint16(body))
	if !prefixesMasked(body[2 : 2+wlen]) {
		return false
	}
	body = body[2+wlen:]
	alen := int(binary.BigEndian.Uint16(body))
	attrs := body[2 : 2+alen]
	for len(attrs) > 0 {
		hdr, l := 3, int(attrs[2])
		if BGPAttrFlag(attrs[0])&BGP_ATTR_FLAG_EXTENDED_LENGTH != 0 {
			hdr, l = 4, int(binary.BigEndian.Uint16(attrs[2:4]))
		}
		value := attrs[hdr : hdr+l]
		switch BGPAttrType(attrs[1]) {
		case BGP_ATTR_TYPE_MP_REACH_NLRI:
			if !prefixesMasked(value[5+int(value[3]):]) {
				return false
			}
		case BGP_ATTR_TYPE_MP_UNREACH_NLRI:
			if !prefixesMasked(value[3:]) {
				return false
			}
		}
		attrs = attrs[hdr+l:]
	}
	return prefixesMasked(body[2+alen:])
}

func FuzzParseBGPMessage(f *testing.F) {
	open := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x25, 0x01,
		0x04, 0xfd, 0xe9, 0x00, 0xb4, 0xc0, 0x00, 0x02, 0x01,
		0x08, 0x02, 0x06, 0x01, 0x04, 0x00, 0x01, 0x30, 0x01, // reserved octet set
	}
	f.Add(open)
	for _, m := range []*BGPMessage{keepalive(), notification(), refresh(), NewTestBGPOpenMessage(), NewTestBGPUpdateMessage()} {
		if buf, err := m.Serialize(&MarshallingOption{AS4: true}); err == nil {
			f.Add(buf)
		}
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := ParseBGPMessage(data)
		if err != nil {
			return
		}
		buf, err := m.Serialize()
		require.NoError(t, err)
		if updatePrefixesMasked(data) {
			assert.Equal(t, data, buf)
		}
		m2, err := ParseBGPMessage(buf)
		require.NoError(t, err)
		assert.Equal(t, m, m2)
	})
}
