// Copyright (C) 2015 Nippon Telegraph and Telephone Corporation.
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

// Package mrt reads and writes the BGP4MP records of RFC6396 dumps so that
// captured sessions can be replayed through the codec.
package mrt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

const (
	MRT_COMMON_HEADER_LEN = 12
	MRT_ET_HEADER_LEN     = 16
)

type MRTType uint16

const (
	TABLE_DUMP   MRTType = 12
	TABLE_DUMPv2 MRTType = 13
	BGP4MP       MRTType = 16
	BGP4MP_ET    MRTType = 17
)

func (t MRTType) HasExtendedTimestamp() bool {
	return t == BGP4MP_ET
}

func (t MRTType) String() string {
	switch t {
	case TABLE_DUMP:
		return "TABLE_DUMP"
	case TABLE_DUMPv2:
		return "TABLE_DUMPv2"
	case BGP4MP:
		return "BGP4MP"
	case BGP4MP_ET:
		return "BGP4MP_ET"
	}
	return fmt.Sprintf("MRTType(%d)", uint16(t))
}

type MRTSubTypeBGP4MP uint16

const (
	STATE_CHANGE              MRTSubTypeBGP4MP = 0
	MESSAGE                   MRTSubTypeBGP4MP = 1
	MESSAGE_AS4               MRTSubTypeBGP4MP = 4
	STATE_CHANGE_AS4          MRTSubTypeBGP4MP = 5
	MESSAGE_LOCAL             MRTSubTypeBGP4MP = 6
	MESSAGE_AS4_LOCAL         MRTSubTypeBGP4MP = 7
	MESSAGE_ADDPATH           MRTSubTypeBGP4MP = 8  // RFC8050
	MESSAGE_AS4_ADDPATH       MRTSubTypeBGP4MP = 9  // RFC8050
	MESSAGE_LOCAL_ADDPATH     MRTSubTypeBGP4MP = 10 // RFC8050
	MESSAGE_AS4_LOCAL_ADDPATH MRTSubTypeBGP4MP = 11 // RFC8050
)

func (t MRTSubTypeBGP4MP) isAS4() bool {
	switch t {
	case MESSAGE_AS4, STATE_CHANGE_AS4, MESSAGE_AS4_LOCAL, MESSAGE_AS4_ADDPATH, MESSAGE_AS4_LOCAL_ADDPATH:
		return true
	}
	return false
}

func (t MRTSubTypeBGP4MP) isLocal() bool {
	switch t {
	case MESSAGE_LOCAL, MESSAGE_AS4_LOCAL, MESSAGE_LOCAL_ADDPATH, MESSAGE_AS4_LOCAL_ADDPATH:
		return true
	}
	return false
}

func (t MRTSubTypeBGP4MP) isAddPath() bool {
	return t >= MESSAGE_ADDPATH && t <= MESSAGE_AS4_LOCAL_ADDPATH
}

type BGPState uint16

const (
	IDLE        BGPState = 1
	CONNECT     BGPState = 2
	ACTIVE      BGPState = 3
	OPENSENT    BGPState = 4
	OPENCONFIRM BGPState = 5
	ESTABLISHED BGPState = 6
)

var bgpStateNames = map[BGPState]string{
	IDLE:        "Idle",
	CONNECT:     "Connect",
	ACTIVE:      "Active",
	OPENSENT:    "OpenSent",
	OPENCONFIRM: "OpenConfirm",
	ESTABLISHED: "Established",
}

func (s BGPState) String() string {
	if n, ok := bgpStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("BGPState(%d)", uint16(s))
}

func packValues(values ...any) ([]byte, error) {
	b := new(bytes.Buffer)
	for _, v := range values {
		err := binary.Write(b, binary.BigEndian, v)
		if err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

// MRTHeader is the common record header. For BGP4MP_ET records Len counts
// the microsecond field, as it does on the wire.
type MRTHeader struct {
	Timestamp                     uint32
	Type                          MRTType
	SubType                       uint16
	Len                           uint32
	ExtendedTimestampMicroseconds uint32
}

func (h *MRTHeader) headerLen() int {
	if h.Type.HasExtendedTimestamp() {
		return MRT_ET_HEADER_LEN
	}
	return MRT_COMMON_HEADER_LEN
}

func ParseHeader(data []byte) (*MRTHeader, error) {
	if len(data) < MRT_COMMON_HEADER_LEN {
		return nil, fmt.Errorf("not all MRTHeader bytes are available. expected: %d, actual: %d", MRT_COMMON_HEADER_LEN, len(data))
	}
	h := &MRTHeader{}
	h.Timestamp = binary.BigEndian.Uint32(data[:4])
	h.Type = MRTType(binary.BigEndian.Uint16(data[4:6]))
	h.SubType = binary.BigEndian.Uint16(data[6:8])
	h.Len = binary.BigEndian.Uint32(data[8:12])
	if h.Type.HasExtendedTimestamp() {
		if len(data) < MRT_ET_HEADER_LEN {
			return nil, fmt.Errorf("not all MRTHeader bytes are available. expected: %d, actual: %d", MRT_ET_HEADER_LEN, len(data))
		}
		if h.Len < 4 {
			return nil, fmt.Errorf("%s record length %d can't hold the microsecond timestamp", h.Type, h.Len)
		}
		h.ExtendedTimestampMicroseconds = binary.BigEndian.Uint32(data[12:16])
	}
	return h, nil
}

func (h *MRTHeader) Serialize() ([]byte, error) {
	fields := []any{h.Timestamp, h.Type, h.SubType, h.Len}
	if h.Type.HasExtendedTimestamp() {
		fields = append(fields, h.ExtendedTimestampMicroseconds)
	}
	return packValues(fields...)
}

func NewMRTHeader(timestamp time.Time, t MRTType, subtype MRTSubTypeBGP4MP, l uint32) *MRTHeader {
	ms := uint32(0)
	if t.HasExtendedTimestamp() {
		ms = uint32(timestamp.UnixMicro() - timestamp.Unix()*1000000)
	}
	return &MRTHeader{
		Timestamp:                     uint32(timestamp.Unix()),
		Type:                          t,
		SubType:                       uint16(subtype),
		Len:                           l,
		ExtendedTimestampMicroseconds: ms,
	}
}

func (h *MRTHeader) GetTime() time.Time {
	t := int64(h.Timestamp)
	ms := int64(h.ExtendedTimestampMicroseconds)
	return time.Unix(t, ms*1000)
}

type MRTMessage struct {
	Header MRTHeader
	Body   Body
}

// Serialize computes the record length from the body, the Len field of
// m.Header is left untouched.
func (m *MRTMessage) Serialize() ([]byte, error) {
	buf, err := m.Body.Serialize()
	if err != nil {
		return nil, err
	}
	h := m.Header
	h.Len = uint32(len(buf))
	if h.Type.HasExtendedTimestamp() {
		h.Len += 4
	}
	bbuf, err := h.Serialize()
	if err != nil {
		return nil, err
	}
	return append(bbuf, buf...), nil
}

func (m *MRTMessage) String() string {
	return fmt.Sprintf("%s %s %s", m.Header.GetTime().UTC().Format(time.RFC3339Nano), m.Header.Type, m.Body)
}

func NewMRTMessage(timestamp time.Time, t MRTType, subtype MRTSubTypeBGP4MP, body Body) (*MRTMessage, error) {
	if t != BGP4MP && t != BGP4MP_ET {
		return nil, fmt.Errorf("unsupported type: %s", t)
	}
	return &MRTMessage{
		Header: *NewMRTHeader(timestamp, t, subtype, 0),
		Body:   body,
	}, nil
}

type Body interface {
	Serialize() ([]byte, error)
	String() string
}

type BGP4MPHeader struct {
	PeerAS         uint32
	LocalAS        uint32
	InterfaceIndex uint16
	AddressFamily  uint16
	PeerIpAddress  netip.Addr
	LocalIpAddress netip.Addr
	isAS4          bool
}

func (m *BGP4MPHeader) decodeFromBytes(data []byte) ([]byte, error) {
	if m.isAS4 && len(data) < 12 {
		return nil, errors.New("not all BGP4MPMessageAS4 bytes available")
	} else if !m.isAS4 && len(data) < 8 {
		return nil, errors.New("not all BGP4MPMessageAS bytes available")
	}

	if m.isAS4 {
		m.PeerAS = binary.BigEndian.Uint32(data[:4])
		m.LocalAS = binary.BigEndian.Uint32(data[4:8])
		data = data[8:]
	} else {
		m.PeerAS = uint32(binary.BigEndian.Uint16(data[:2]))
		m.LocalAS = uint32(binary.BigEndian.Uint16(data[2:4]))
		data = data[4:]
	}
	m.InterfaceIndex = binary.BigEndian.Uint16(data[:2])
	m.AddressFamily = binary.BigEndian.Uint16(data[2:4])
	switch m.AddressFamily {
	case bgp.AFI_IP:
		if len(data) < 12 {
			return nil, errors.New("not all IPv4 peer bytes available")
		}
		m.PeerIpAddress, _ = netip.AddrFromSlice(data[4:8])
		m.LocalIpAddress, _ = netip.AddrFromSlice(data[8:12])
		data = data[12:]
	case bgp.AFI_IP6:
		if len(data) < 36 {
			return nil, errors.New("not all IPv6 peer bytes available")
		}
		m.PeerIpAddress, _ = netip.AddrFromSlice(data[4:20])
		m.LocalIpAddress, _ = netip.AddrFromSlice(data[20:36])
		data = data[36:]
	default:
		return nil, fmt.Errorf("unsupported address family: %d", m.AddressFamily)
	}
	return data, nil
}

func (m *BGP4MPHeader) serialize() ([]byte, error) {
	var values []any
	if m.isAS4 {
		values = []any{m.PeerAS, m.LocalAS, m.InterfaceIndex, m.AddressFamily}
	} else {
		if m.PeerAS > math.MaxUint16 || m.LocalAS > math.MaxUint16 {
			return nil, fmt.Errorf("AS number is beyond 2 octet. peer %d local %d", m.PeerAS, m.LocalAS)
		}
		values = []any{uint16(m.PeerAS), uint16(m.LocalAS), m.InterfaceIndex, m.AddressFamily}
	}
	buf, err := packValues(values...)
	if err != nil {
		return nil, err
	}
	switch m.AddressFamily {
	case bgp.AFI_IP, bgp.AFI_IP6:
		buf = append(buf, m.PeerIpAddress.AsSlice()...)
		buf = append(buf, m.LocalIpAddress.AsSlice()...)
	default:
		return nil, fmt.Errorf("unsupported address family: %d", m.AddressFamily)
	}
	return buf, nil
}

func newBGP4MPHeader(peeras, localas uint32, intfindex uint16, peerip, localip netip.Addr, isAS4 bool) (*BGP4MPHeader, error) {
	var af uint16

	if !peerip.IsValid() || !localip.IsValid() {
		return nil, fmt.Errorf("peer IP Address and Local IP Address must be valid")
	}

	if peerip.Is4() && localip.Is4() {
		af = bgp.AFI_IP
	} else if peerip.Is6() && localip.Is6() {
		af = bgp.AFI_IP6
	} else {
		return nil, fmt.Errorf("peer IP Address and Local IP Address must have the same address family")
	}

	return &BGP4MPHeader{
		PeerAS:         peeras,
		LocalAS:        localas,
		InterfaceIndex: intfindex,
		AddressFamily:  af,
		PeerIpAddress:  peerip,
		LocalIpAddress: localip,
		isAS4:          isAS4,
	}, nil
}

type BGP4MPStateChange struct {
	*BGP4MPHeader
	OldState BGPState
	NewState BGPState
}

func parseBGP4MPStateChange(hdr *BGP4MPHeader, data []byte) (*BGP4MPStateChange, error) {
	m := &BGP4MPStateChange{
		BGP4MPHeader: hdr,
	}
	rest, err := m.decodeFromBytes(data)
	if err != nil {
		return nil, err
	}
	if len(rest) < 4 {
		return nil, fmt.Errorf("not all BGP4MPStateChange bytes available")
	}
	m.OldState = BGPState(binary.BigEndian.Uint16(rest[:2]))
	m.NewState = BGPState(binary.BigEndian.Uint16(rest[2:4]))
	return m, nil
}

func (m *BGP4MPStateChange) Serialize() ([]byte, error) {
	buf, err := m.serialize()
	if err != nil {
		return nil, err
	}
	bbuf, err := packValues(m.OldState, m.NewState)
	if err != nil {
		return nil, err
	}
	return append(buf, bbuf...), nil
}

// SubType returns the subtype matching the AS number width of m.
func (m *BGP4MPStateChange) SubType() MRTSubTypeBGP4MP {
	if m.isAS4 {
		return STATE_CHANGE_AS4
	}
	return STATE_CHANGE
}

func (m *BGP4MPStateChange) String() string {
	return fmt.Sprintf("BGP4MP_STATE_CHANGE: PeerAS [%d] LocalAS [%d] PeerIP [%s] LocalIP [%s] %s -> %s", m.PeerAS, m.LocalAS, m.PeerIpAddress, m.LocalIpAddress, m.OldState, m.NewState)
}

func NewBGP4MPStateChange(peeras, localas uint32, intfindex uint16, peerip, localip netip.Addr, isAS4 bool, oldstate, newstate BGPState) (*BGP4MPStateChange, error) {
	header, err := newBGP4MPHeader(peeras, localas, intfindex, peerip, localip, isAS4)
	if err != nil {
		return nil, err
	}

	return &BGP4MPStateChange{
		BGP4MPHeader: header,
		OldState:     oldstate,
		NewState:     newstate,
	}, nil
}

// BGP4MPMessage carries one BGP message as seen on a session. BGPMessage
// is nil for ADD-PATH records, whose NLRI the codec does not decode; the
// raw message is then kept in BGPMessagePayload.
type BGP4MPMessage struct {
	*BGP4MPHeader
	BGPMessage        *bgp.BGPMessage
	BGPMessagePayload []byte
	isLocal           bool
	isAddPath         bool
}

// Option returns the marshalling option the enclosed message is encoded
// with. Collectors store whatever the session carried, so extended
// messages are always allowed.
func (m *BGP4MPMessage) Option() *bgp.MarshallingOption {
	return &bgp.MarshallingOption{AS4: m.isAS4, ExtendedMessage: true}
}

func parseBGP4MPMessage(hdr *BGP4MPHeader, isLocal bool, isAddPath bool, data []byte) (*BGP4MPMessage, error) {
	m := &BGP4MPMessage{
		BGP4MPHeader: hdr,
		isLocal:      isLocal,
		isAddPath:    isAddPath,
	}
	rest, err := m.decodeFromBytes(data)
	if err != nil {
		return nil, err
	}

	if len(rest) < bgp.BGP_HEADER_LENGTH {
		return nil, fmt.Errorf("not all BGP4MPMessage bytes available")
	}
	if isAddPath {
		m.BGPMessagePayload = rest
		return m, nil
	}

	msg, err := bgp.ParseBGPMessage(rest, m.Option())
	if err != nil {
		return nil, err
	}
	m.BGPMessage = msg
	return m, nil
}

func (m *BGP4MPMessage) Serialize() ([]byte, error) {
	buf, err := m.serialize()
	if err != nil {
		return nil, err
	}
	if m.BGPMessagePayload != nil {
		return append(buf, m.BGPMessagePayload...), nil
	}
	bbuf, err := m.BGPMessage.Serialize(m.Option())
	if err != nil {
		return nil, err
	}
	return append(buf, bbuf...), nil
}

// SubType returns the BGP4MP subtype describing m.
func (m *BGP4MPMessage) SubType() MRTSubTypeBGP4MP {
	var t MRTSubTypeBGP4MP
	switch {
	case m.isLocal && m.isAS4:
		t = MESSAGE_AS4_LOCAL
	case m.isLocal:
		t = MESSAGE_LOCAL
	case m.isAS4:
		t = MESSAGE_AS4
	default:
		t = MESSAGE
	}
	if m.isAddPath {
		switch t {
		case MESSAGE:
			t = MESSAGE_ADDPATH
		case MESSAGE_AS4:
			t = MESSAGE_AS4_ADDPATH
		case MESSAGE_LOCAL:
			t = MESSAGE_LOCAL_ADDPATH
		case MESSAGE_AS4_LOCAL:
			t = MESSAGE_AS4_LOCAL_ADDPATH
		}
	}
	return t
}

func (m *BGP4MPMessage) IsLocal() bool {
	return m.isLocal
}

func NewBGP4MPMessage(peeras, localas uint32, intfindex uint16, peerip, localip netip.Addr, isAS4 bool, msg *bgp.BGPMessage) (*BGP4MPMessage, error) {
	header, err := newBGP4MPHeader(peeras, localas, intfindex, peerip, localip, isAS4)
	if err != nil {
		return nil, err
	}
	return &BGP4MPMessage{
		BGP4MPHeader: header,
		BGPMessage:   msg,
	}, nil
}

func NewBGP4MPMessageLocal(peeras, localas uint32, intfindex uint16, peerip, localip netip.Addr, isAS4 bool, msg *bgp.BGPMessage) (*BGP4MPMessage, error) {
	m, err := NewBGP4MPMessage(peeras, localas, intfindex, peerip, localip, isAS4, msg)
	if err != nil {
		return nil, err
	}
	m.isLocal = true
	return m, nil
}

func (m *BGP4MPMessage) String() string {
	title := "BGP4MP_MSG"
	if m.isAS4 {
		title += "_AS4"
	}
	if m.isLocal {
		title += "_LOCAL"
	}
	if m.isAddPath {
		title += "_ADDPATH"
		return fmt.Sprintf("%s: PeerAS [%d] LocalAS [%d] InterfaceIndex [%d] PeerIP [%s] LocalIP [%s] Payload [%d bytes]", title, m.PeerAS, m.LocalAS, m.InterfaceIndex, m.PeerIpAddress, m.LocalIpAddress, len(m.BGPMessagePayload))
	}
	return fmt.Sprintf("%s: PeerAS [%d] LocalAS [%d] InterfaceIndex [%d] PeerIP [%s] LocalIP [%s] BGPMessage [%v]", title, m.PeerAS, m.LocalAS, m.InterfaceIndex, m.PeerIpAddress, m.LocalIpAddress, m.BGPMessage)
}

// SplitMrt can be passed into a bufio.Scanner.Split() to read buffered
// MRT records.
func SplitMrt(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if len(data) < MRT_COMMON_HEADER_LEN {
		if atEOF {
			return 0, nil, fmt.Errorf("truncated MRT header: %d bytes", len(data))
		}
		return 0, nil, nil
	}
	totlen := int(binary.BigEndian.Uint32(data[8:12])) + MRT_COMMON_HEADER_LEN
	if len(data) < totlen {
		if atEOF {
			return 0, nil, fmt.Errorf("truncated MRT record: expected %d bytes, got %d", totlen, len(data))
		}
		return 0, nil, nil
	}
	return totlen, data[:totlen], nil
}

// ParseBody decodes the record body following h. data starts right after
// the header, including the microsecond field for BGP4MP_ET.
func ParseBody(data []byte, h *MRTHeader) (*MRTMessage, error) {
	bodyLen := int(h.Len) - (h.headerLen() - MRT_COMMON_HEADER_LEN)
	if bodyLen < 0 {
		return nil, fmt.Errorf("invalid MRT record length %d", h.Len)
	}
	if len(data) < bodyLen {
		return nil, fmt.Errorf("not all MRT message bytes available. expected: %d, actual: %d", bodyLen, len(data))
	}
	data = data[:bodyLen]
	var err error
	var body Body
	msg := &MRTMessage{Header: *h}
	switch h.Type {
	case BGP4MP, BGP4MP_ET:
		subType := MRTSubTypeBGP4MP(h.SubType)
		hdr := &BGP4MPHeader{isAS4: subType.isAS4()}
		switch subType {
		case STATE_CHANGE, STATE_CHANGE_AS4:
			body, err = parseBGP4MPStateChange(hdr, data)
		case MESSAGE, MESSAGE_AS4, MESSAGE_LOCAL, MESSAGE_AS4_LOCAL,
			MESSAGE_ADDPATH, MESSAGE_AS4_ADDPATH, MESSAGE_LOCAL_ADDPATH, MESSAGE_AS4_LOCAL_ADDPATH:
			body, err = parseBGP4MPMessage(hdr, subType.isLocal(), subType.isAddPath(), data)
		default:
			return nil, fmt.Errorf("unsupported bgp4mp subtype: %d", subType)
		}
	default:
		return nil, fmt.Errorf("unsupported type: %s", h.Type)
	}

	if err != nil {
		return nil, err
	}
	msg.Body = body
	return msg, nil
}

// ParseMRTMessage decodes one whole record, as returned by SplitMrt.
func ParseMRTMessage(data []byte) (*MRTMessage, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return ParseBody(data[h.headerLen():], h)
}
