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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawHeader(length uint16, typ uint8) []byte {
	buf := make([]byte, BGP_HEADER_LENGTH)
	for i := 0; i < BGP_MARKER_LENGTH; i++ {
		buf[i] = 0xff
	}
	binary.BigEndian.PutUint16(buf[16:18], length)
	buf[18] = typ
	return buf
}

func Test_ReadHeader(t *testing.T) {
	h, err := ReadHeader(rawHeader(19, BGP_MSG_KEEPALIVE))
	require.NoError(t, err)
	assert.Equal(t, &BGPHeader{Len: 19, Type: BGP_MSG_KEEPALIVE}, h)

	h, err = ReadHeader(rawHeader(4097, BGP_MSG_UPDATE), &MarshallingOption{ExtendedMessage: true})
	require.NoError(t, err)
	assert.Equal(t, uint16(4097), h.Len)
}

func Test_HeaderErrors(t *testing.T) {
	badMarker := rawHeader(19, BGP_MSG_KEEPALIVE)
	badMarker[3] = 0

	tests := []struct {
		name    string
		data    []byte
		subcode uint8
		edata   []byte
		offset  int
	}{
		{"marker", badMarker, BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED, nil, 3},
		{"length below header", rawHeader(18, BGP_MSG_KEEPALIVE), BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{0x00, 0x12}, 16},
		{"length above maximum", rawHeader(4097, BGP_MSG_UPDATE), BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{0x10, 0x01}, 16},
		{"type", rawHeader(19, 7), BGP_ERROR_SUB_BAD_MESSAGE_TYPE, []byte{7}, 18},
		{"keepalive length", rawHeader(20, BGP_MSG_KEEPALIVE), BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{0x00, 0x14}, 16},
		{"short open", rawHeader(28, BGP_MSG_OPEN), BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{0x00, 0x1c}, 16},
		{"short update", rawHeader(22, BGP_MSG_UPDATE), BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{0x00, 0x16}, 16},
		{"short notification", rawHeader(20, BGP_MSG_NOTIFICATION), BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{0x00, 0x14}, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(tt.data)
			require.Error(t, err)
			e, ok := err.(*MessageError)
			require.True(t, ok)
			assert.Equal(t, ErrorKindHeader, e.Kind)
			assert.Equal(t, uint8(BGP_ERROR_MESSAGE_HEADER_ERROR), e.TypeCode)
			assert.Equal(t, tt.subcode, e.SubTypeCode)
			assert.Equal(t, tt.edata, e.Data)
			assert.Equal(t, tt.offset, e.Offset)
		})
	}
}

func Test_HeaderIncomplete(t *testing.T) {
	buf, err := keepalive().Serialize()
	require.NoError(t, err)

	for i := 0; i < len(buf); i++ {
		_, err := ReadHeader(buf[:i])
		require.Error(t, err)
		assert.True(t, IsIncomplete(err))
		assert.Equal(t, BGP_HEADER_LENGTH-i, err.(*IncompleteError).Need)
	}
}

func Test_ParseBGPMessageLength(t *testing.T) {
	buf, err := refresh().Serialize()
	require.NoError(t, err)

	_, err = ParseBGPMessage(buf[:len(buf)-1])
	require.Error(t, err)
	assert.True(t, IsIncomplete(err))
	assert.Equal(t, 1, err.(*IncompleteError).Need)

	_, err = ParseBGPMessage(append(buf, 0))
	require.Error(t, err)
	assert.False(t, IsIncomplete(err))
	assert.Equal(t, uint8(BGP_ERROR_SUB_BAD_MESSAGE_LENGTH), err.(*MessageError).SubTypeCode)

	// the header allows a longer route refresh but the body must be 4 bytes
	long := rawHeader(24, BGP_MSG_ROUTE_REFRESH)
	long = append(long, 0x00, 0x01, 0x00, 0x01, 0x00)
	_, err = ParseBGPMessage(long)
	require.Error(t, err)
	assert.Equal(t, ErrorKindRouteRefresh, ErrorKindOf(err))
	assert.Equal(t, BGP_HEADER_LENGTH, err.(*MessageError).Offset)
}

func Test_ParseBGPMessageOffset(t *testing.T) {
	body := []byte{
		0x00, 0x00, // Withdraws(0)
		0x00, 0x04, // Attrs Len(4)
		0x40, 0x01, 0x01, 0x07, // Attr(ORIGIN) - invalid value
	}
	buf := append(rawHeader(uint16(BGP_HEADER_LENGTH+len(body)), BGP_MSG_UPDATE), body...)

	_, err := ParseBGPMessage(buf)
	require.Error(t, err)
	e := err.(*MessageError)
	assert.Equal(t, uint8(BGP_ERROR_SUB_INVALID_ORIGIN_ATTRIBUTE), e.SubTypeCode)
	assert.Equal(t, BGP_HEADER_LENGTH+4+3, e.Offset)
	assert.Equal(t, byte(0x07), buf[e.Offset])

	h, err := ReadHeader(buf)
	require.NoError(t, err)
	_, err = ParseBGPBody(h, buf[BGP_HEADER_LENGTH:])
	require.Error(t, err)
	assert.Equal(t, 4+3, err.(*MessageError).Offset)
}

func Test_WriteHeader(t *testing.T) {
	buf, err := WriteHeader(BGP_MSG_KEEPALIVE, 0)
	require.NoError(t, err)
	assert.Equal(t, rawHeader(19, BGP_MSG_KEEPALIVE), buf)

	_, err = WriteHeader(BGP_MSG_UPDATE, BGP_MAX_EXTENDED_MESSAGE_LENGTH)
	assert.Error(t, err)
}
