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
)

type BGPHeader struct {
	Len  uint16
	Type uint8
}

func headerError(subcode uint8, data []byte, offset int, msg string) error {
	e := newKindError(ErrorKindHeader, BGP_ERROR_MESSAGE_HEADER_ERROR, subcode, data, msg)
	e.Offset = offset
	return e
}

func (msg *BGPHeader) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	if len(data) < BGP_HEADER_LENGTH {
		return &IncompleteError{Need: BGP_HEADER_LENGTH - len(data)}
	}
	for i := 0; i < BGP_MARKER_LENGTH; i++ {
		if data[i] != 0xff {
			return headerError(BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED, nil, i, "marker is not all ones")
		}
	}
	length := binary.BigEndian.Uint16(data[16:18])
	lengthField := []byte{data[16], data[17]}
	if int(length) < BGP_HEADER_LENGTH || int(length) > MaxMessageLength(options) {
		return headerError(BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, lengthField, 16,
			fmt.Sprintf("message length %d is out of range", length))
	}
	typ := data[18]
	var tooShort bool
	switch typ {
	case BGP_MSG_OPEN:
		tooShort = length < BGP_MIN_OPEN_LENGTH
	case BGP_MSG_UPDATE:
		tooShort = length < BGP_MIN_UPDATE_LENGTH
	case BGP_MSG_NOTIFICATION:
		tooShort = length < BGP_MIN_NOTIFICATION_LENGTH
	case BGP_MSG_KEEPALIVE:
		tooShort = length != BGP_KEEPALIVE_LENGTH
	case BGP_MSG_ROUTE_REFRESH:
		tooShort = length < BGP_ROUTE_REFRESH_LENGTH
	default:
		return headerError(BGP_ERROR_SUB_BAD_MESSAGE_TYPE, []byte{typ}, 18,
			fmt.Sprintf("unknown message type %d", typ))
	}
	if tooShort {
		return headerError(BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, lengthField, 16,
			fmt.Sprintf("bad length %d for %s message", length, MessageTypeString(typ)))
	}
	msg.Len = length
	msg.Type = typ
	return nil
}

func (msg *BGPHeader) Serialize() ([]byte, error) {
	buf := make([]byte, BGP_HEADER_LENGTH)
	for i := range buf[:BGP_MARKER_LENGTH] {
		buf[i] = 0xff
	}
	binary.BigEndian.PutUint16(buf[16:18], msg.Len)
	buf[18] = msg.Type
	return buf, nil
}

// ReadHeader validates the fixed preamble at the start of data.
func ReadHeader(data []byte, options ...*MarshallingOption) (*BGPHeader, error) {
	h := &BGPHeader{}
	if err := h.DecodeFromBytes(data, options...); err != nil {
		return nil, err
	}
	return h, nil
}

// WriteHeader returns the preamble of a message of the given type carrying
// bodyLen bytes of body.
func WriteHeader(typ uint8, bodyLen int) ([]byte, error) {
	total := BGP_HEADER_LENGTH + bodyLen
	if bodyLen < 0 || total > BGP_MAX_EXTENDED_MESSAGE_LENGTH {
		return nil, fmt.Errorf("message length %d can't be encoded", total)
	}
	h := &BGPHeader{Len: uint16(total), Type: typ}
	return h.Serialize()
}
