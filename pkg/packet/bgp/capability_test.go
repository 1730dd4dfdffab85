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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Capabilities(t *testing.T) {
	tests := []struct {
		name string
		cap  ParameterCapabilityInterface
		data []byte
	}{
		{"multiprotocol", NewCapMultiProtocol(RF_IPv6_UC), []byte{0x01, 0x04, 0x00, 0x02, 0x00, 0x01}},
		{"route refresh", NewCapRouteRefresh(), []byte{0x02, 0x00}},
		{"extended nexthop", NewCapExtendedNexthop([]*CapExtendedNexthopTuple{
			NewCapExtendedNexthopTuple(RF_IPv4_UC, AFI_IP6),
		}), []byte{0x05, 0x06, 0x00, 0x01, 0x00, 0x01, 0x00, 0x02}},
		{"extended message", NewCapExtendedMessage(), []byte{0x06, 0x00}},
		{"four octet as", NewCapFourOctetASNumber(4200000000), []byte{0x41, 0x04, 0xfa, 0x56, 0xea, 0x00}},
		{"unknown", NewCapUnknown(128, []byte{0xde, 0xad}), []byte{0x80, 0x02, 0xde, 0xad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := EncodeCapability(tt.cap)
			require.NoError(t, err)
			assert.Equal(t, tt.data, buf)
			assert.Equal(t, len(buf), tt.cap.Len())

			c, n, err := DecodeCapability(append(tt.data, 0xff))
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), n)
			assert.Equal(t, tt.cap, c)
		})
	}
}

func Test_CapabilityErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{"short header", []byte{0x01}, 0},
		{"value overrun", []byte{0x41, 0x04, 0x00, 0x00}, 0},
		{"multiprotocol length", []byte{0x01, 0x03, 0x00, 0x01, 0x00}, 1},
		{"four octet as length", []byte{0x41, 0x02, 0x00, 0x01}, 1},
		{"route refresh length", []byte{0x02, 0x01, 0x00}, 1},
		{"extended nexthop length", []byte{0x05, 0x05, 0x00, 0x01, 0x00, 0x01, 0x00}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeCapability(tt.data)
			require.Error(t, err)
			e, ok := err.(*MessageError)
			require.True(t, ok)
			assert.Equal(t, ErrorKindCapability, e.Kind)
			assert.Equal(t, uint8(BGP_ERROR_OPEN_MESSAGE_ERROR), e.TypeCode)
			assert.Equal(t, tt.offset, e.Offset)
		})
	}
}

func Test_OptionParameterCapability(t *testing.T) {
	value := []byte{
		0x01, 0x04, 0x00, 0x01, 0x00, 0x01, // ipv4-unicast
		0x01, 0x04, 0x00, 0x02, 0x00, 0x01, // ipv6-unicast
		0x02, 0x00, // route refresh
	}
	p := &OptionParameterCapability{}
	require.NoError(t, p.DecodeFromBytes(value))
	require.Len(t, p.Capability, 3)
	assert.Equal(t, NewCapMultiProtocol(RF_IPv6_UC), p.Capability[1])

	buf, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, append([]byte{BGP_OPT_CAPABILITY, byte(len(value))}, value...), buf)
	assert.Equal(t, len(buf), p.Len())

	err = p.DecodeFromBytes(append(value, 0x41, 0x04, 0x00))
	require.Error(t, err)
	assert.Equal(t, len(value), err.(*MessageError).Offset)
}

func Test_CapMultiProtocolReserved(t *testing.T) {
	assert := assert.New(t)

	data := []byte{0x01, 0x04, 0x00, 0x01, 0x30, 0x01}
	c, n, err := DecodeCapability(data)
	require.NoError(t, err)
	assert.Equal(len(data), n)
	mp := c.(*CapMultiProtocol)
	assert.Equal(RF_IPv4_UC, mp.CapValue)
	assert.Equal(uint8(0x30), mp.Reserved)

	buf, err := EncodeCapability(c)
	require.NoError(t, err)
	assert.Equal(data, buf)

	body := []byte{
		0x04, 0xfd, 0xe9, 0x00, 0xb4, 0xc0, 0x00, 0x02, 0x01,
		0x08, 0x02, 0x06,
	}
	body = append(body, data...)
	msg := &BGPOpen{}
	require.NoError(t, msg.DecodeFromBytes(body))
	out, err := msg.Serialize()
	require.NoError(t, err)
	assert.Equal(body, out)
}
