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

type BGPBody interface {
	DecodeFromBytes([]byte, ...*MarshallingOption) error
	Serialize(...*MarshallingOption) ([]byte, error)
	String() string
}

func bodyLengthError(kind ErrorKind, body []byte, msg string) *MessageError {
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(BGP_HEADER_LENGTH+len(body)))
	return newKindError(kind, BGP_ERROR_MESSAGE_HEADER_ERROR, BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, l, msg)
}

func openError(subcode uint8, data []byte, offset int, msg string) *MessageError {
	e := newKindError(ErrorKindOpen, BGP_ERROR_OPEN_MESSAGE_ERROR, subcode, data, msg)
	e.Offset = offset
	return e
}

type BGPOpen struct {
	Version   uint8
	MyAS      uint16
	HoldTime  uint16
	ID        netip.Addr
	OptParams []OptionParameterInterface
}

func (msg *BGPOpen) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	if len(data) < BGP_OPEN_FIXED_BODY_LENGTH {
		return bodyLengthError(ErrorKindOpen, data, "open message is too short")
	}
	msg.Version = data[0]
	if msg.Version != BGP_VERSION {
		return openError(BGP_ERROR_SUB_UNSUPPORTED_VERSION_NUMBER, []byte{0, BGP_VERSION}, 0,
			fmt.Sprintf("unsupported version %d", msg.Version))
	}
	msg.MyAS = binary.BigEndian.Uint16(data[1:3])
	msg.HoldTime = binary.BigEndian.Uint16(data[3:5])
	if msg.HoldTime == 1 || msg.HoldTime == 2 {
		return openError(BGP_ERROR_SUB_UNACCEPTABLE_HOLD_TIME, nil, 3,
			fmt.Sprintf("unacceptable hold time %d", msg.HoldTime))
	}
	msg.ID = netip.AddrFrom4([4]byte(data[5:9]))
	if msg.ID.IsUnspecified() {
		return openError(BGP_ERROR_SUB_BAD_BGP_IDENTIFIER, nil, 5, "bgp identifier is zero")
	}
	optlen := int(data[9])
	rest := data[BGP_OPEN_FIXED_BODY_LENGTH:]
	if len(rest) != optlen {
		return openError(BGP_ERROR_SUB_UNSPECIFIC, nil, 9,
			fmt.Sprintf("optional parameter length %d doesn't match the %d remaining bytes", optlen, len(rest)))
	}
	msg.OptParams = nil
	for offset := 0; offset < len(rest); {
		base := BGP_OPEN_FIXED_BODY_LENGTH + offset
		if len(rest)-offset < 2 {
			return openError(BGP_ERROR_SUB_UNSPECIFIC, nil, base, "optional parameter header is short")
		}
		paramType := rest[offset]
		paramLen := int(rest[offset+1])
		if len(rest)-offset-2 < paramLen {
			return openError(BGP_ERROR_SUB_UNSPECIFIC, nil, base+1,
				fmt.Sprintf("optional parameter declares %d bytes, %d available", paramLen, len(rest)-offset-2))
		}
		value := rest[offset+2 : offset+2+paramLen]
		if paramType == BGP_OPT_CAPABILITY {
			p := &OptionParameterCapability{}
			if err := p.DecodeFromBytes(value); err != nil {
				return shiftError(err, base+2)
			}
			msg.OptParams = append(msg.OptParams, p)
		} else {
			msg.OptParams = append(msg.OptParams, &OptionParameterUnknown{
				ParamType: paramType,
				Value:     append([]byte(nil), value...),
			})
		}
		offset += 2 + paramLen
	}
	return nil
}

func (msg *BGPOpen) Serialize(options ...*MarshallingOption) ([]byte, error) {
	if !msg.ID.Is4() {
		return nil, fmt.Errorf("bgp identifier %s isn't IPv4", msg.ID)
	}
	buf := make([]byte, BGP_OPEN_FIXED_BODY_LENGTH)
	buf[0] = msg.Version
	binary.BigEndian.PutUint16(buf[1:3], msg.MyAS)
	binary.BigEndian.PutUint16(buf[3:5], msg.HoldTime)
	id := msg.ID.As4()
	copy(buf[5:9], id[:])
	for _, p := range msg.OptParams {
		pbuf, err := p.Serialize()
		if err != nil {
			return nil, err
		}
		buf = append(buf, pbuf...)
	}
	optlen := len(buf) - BGP_OPEN_FIXED_BODY_LENGTH
	if optlen > 255 {
		return nil, fmt.Errorf("optional parameters are too long: %d", optlen)
	}
	buf[9] = uint8(optlen)
	return buf, nil
}

func (msg *BGPOpen) String() string {
	params := make([]string, 0, len(msg.OptParams))
	for _, p := range msg.OptParams {
		params = append(params, p.String())
	}
	return fmt.Sprintf("{Version: %d, MyAS: %d, HoldTime: %d, ID: %s, OptParams: [%s]}",
		msg.Version, msg.MyAS, msg.HoldTime, msg.ID, strings.Join(params, ", "))
}

func NewBGPOpenMessage(myas uint16, holdtime uint16, id netip.Addr, optparams []OptionParameterInterface) *BGPMessage {
	return &BGPMessage{
		Header: BGPHeader{Type: BGP_MSG_OPEN},
		Body: &BGPOpen{
			Version:   BGP_VERSION,
			MyAS:      myas,
			HoldTime:  holdtime,
			ID:        id,
			OptParams: optparams,
		},
	}
}

func updateError(subcode uint8, data []byte, offset int, msg string) *MessageError {
	e := newKindError(ErrorKindUpdate, BGP_ERROR_UPDATE_MESSAGE_ERROR, subcode, data, msg)
	e.Offset = offset
	return e
}

// BGPUpdate holds IPv4 unicast routes in its classic fields. Other families
// travel in MP_REACH_NLRI and MP_UNREACH_NLRI attributes.
type BGPUpdate struct {
	WithdrawnRoutes []*IPAddrPrefix
	PathAttributes  []PathAttributeInterface
	NLRI            []*IPAddrPrefix
}

func (msg *BGPUpdate) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	if len(data) < 2 {
		return updateError(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST, nil, 0, "withdrawn routes length is missing")
	}
	withdrawnLen := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data)-2 < withdrawnLen {
		return updateError(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST, nil, 0,
			fmt.Sprintf("withdrawn routes length %d exceeds the %d remaining bytes", withdrawnLen, len(data)-2))
	}
	withdrawn, err := decodePrefixes(AFI_IP, data[2:2+withdrawnLen])
	if err != nil {
		return shiftError(err, 2)
	}
	offset := 2 + withdrawnLen
	if len(data)-offset < 2 {
		return updateError(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST, nil, offset, "path attribute length is missing")
	}
	attrLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data)-offset < attrLen {
		return updateError(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST, nil, offset-2,
			fmt.Sprintf("path attribute length %d exceeds the %d remaining bytes", attrLen, len(data)-offset))
	}
	attrs := data[offset : offset+attrLen]
	var pathAttributes []PathAttributeInterface
	seen := make(map[BGPAttrType]bool)
	for a := 0; a < len(attrs); {
		p, n, err := DecodePathAttribute(attrs[a:], options...)
		if err != nil {
			return shiftError(err, offset+a)
		}
		if seen[p.GetType()] {
			return updateError(BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST, nil, offset+a,
				fmt.Sprintf("duplicate attribute %s", p.GetType()))
		}
		seen[p.GetType()] = true
		pathAttributes = append(pathAttributes, p)
		a += n
	}
	offset += attrLen
	nlri, err := decodePrefixes(AFI_IP, data[offset:])
	if err != nil {
		return shiftError(err, offset)
	}

	var missing []BGPAttrType
	if len(nlri) > 0 || seen[BGP_ATTR_TYPE_MP_REACH_NLRI] {
		for _, t := range []BGPAttrType{BGP_ATTR_TYPE_ORIGIN, BGP_ATTR_TYPE_AS_PATH} {
			if !seen[t] {
				missing = append(missing, t)
			}
		}
	}
	if len(nlri) > 0 && !seen[BGP_ATTR_TYPE_NEXT_HOP] {
		missing = append(missing, BGP_ATTR_TYPE_NEXT_HOP)
	}
	if len(missing) > 0 {
		return updateError(BGP_ERROR_SUB_MISSING_WELL_KNOWN_ATTRIBUTE, []byte{uint8(missing[0])}, 2+withdrawnLen,
			fmt.Sprintf("missing well-known attribute %s", missing[0]))
	}

	msg.WithdrawnRoutes = withdrawn
	msg.PathAttributes = pathAttributes
	msg.NLRI = nlri
	return nil
}

func serializeIPv4Prefixes(name string, prefixes []*IPAddrPrefix) ([]byte, error) {
	for _, p := range prefixes {
		if p.AFI() != AFI_IP {
			return nil, fmt.Errorf("%s %s must be carried in a multiprotocol attribute", name, p)
		}
	}
	buf, err := serializePrefixes(prefixes)
	if err != nil {
		return nil, err
	}
	if len(buf) > 0xffff {
		return nil, fmt.Errorf("%s are too long: %d", name, len(buf))
	}
	return buf, nil
}

func (msg *BGPUpdate) Serialize(options ...*MarshallingOption) ([]byte, error) {
	wbuf, err := serializeIPv4Prefixes("withdrawn routes", msg.WithdrawnRoutes)
	if err != nil {
		return nil, err
	}
	abuf := make([]byte, 0)
	for _, p := range msg.PathAttributes {
		pbuf, err := p.Serialize(options...)
		if err != nil {
			return nil, err
		}
		abuf = append(abuf, pbuf...)
	}
	if len(abuf) > 0xffff {
		return nil, fmt.Errorf("path attributes are too long: %d", len(abuf))
	}
	nbuf, err := serializeIPv4Prefixes("nlri", msg.NLRI)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 2, BGP_UPDATE_FIXED_BODY_LENGTH+len(wbuf)+len(abuf)+len(nbuf))
	binary.BigEndian.PutUint16(buf, uint16(len(wbuf)))
	buf = append(buf, wbuf...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(abuf)))
	buf = append(buf, abuf...)
	return append(buf, nbuf...), nil
}

// Len returns the body length Serialize would produce.
func (msg *BGPUpdate) Len(options ...*MarshallingOption) int {
	l := BGP_UPDATE_FIXED_BODY_LENGTH + prefixesLen(msg.WithdrawnRoutes) + prefixesLen(msg.NLRI)
	for _, p := range msg.PathAttributes {
		l += p.Len(options...)
	}
	return l
}

// PathAttribute returns the attribute of the given type, or nil.
func (msg *BGPUpdate) PathAttribute(t BGPAttrType) PathAttributeInterface {
	for _, p := range msg.PathAttributes {
		if p.GetType() == t {
			return p
		}
	}
	return nil
}

// IsEndOfRib reports whether the update is an RFC4724 End-of-RIB marker and
// for which family.
func (msg *BGPUpdate) IsEndOfRib() (bool, Family) {
	if len(msg.WithdrawnRoutes) != 0 || len(msg.NLRI) != 0 {
		return false, 0
	}
	if len(msg.PathAttributes) == 0 {
		return true, RF_IPv4_UC
	}
	if len(msg.PathAttributes) == 1 {
		if u, ok := msg.PathAttributes[0].(*PathAttributeMpUnreachNLRI); ok && len(u.Value) == 0 {
			return true, AfiSafiToFamily(u.AFI, u.SAFI)
		}
	}
	return false, 0
}

func (msg *BGPUpdate) String() string {
	attrs := make([]string, 0, len(msg.PathAttributes))
	for _, p := range msg.PathAttributes {
		attrs = append(attrs, p.String())
	}
	return fmt.Sprintf("{Withdrawn: %s, Attributes: [%s], NLRI: %s}",
		prefixesString(msg.WithdrawnRoutes), strings.Join(attrs, ", "), prefixesString(msg.NLRI))
}

func NewBGPUpdateMessage(withdrawnRoutes []*IPAddrPrefix, pathattrs []PathAttributeInterface, nlri []*IPAddrPrefix) *BGPMessage {
	return &BGPMessage{
		Header: BGPHeader{Type: BGP_MSG_UPDATE},
		Body: &BGPUpdate{
			WithdrawnRoutes: withdrawnRoutes,
			PathAttributes:  pathattrs,
			NLRI:            nlri,
		},
	}
}

func NewEndOfRib(family Family) *BGPMessage {
	if family == RF_IPv4_UC {
		return NewBGPUpdateMessage(nil, nil, nil)
	}
	return NewBGPUpdateMessage(nil, []PathAttributeInterface{NewPathAttributeMpUnreachNLRI(family, nil)}, nil)
}

type BGPNotification struct {
	ErrorCode    uint8
	ErrorSubcode uint8
	Data         []byte
}

func (msg *BGPNotification) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	if len(data) < 2 {
		return bodyLengthError(ErrorKindNotification, data, "notification message is too short")
	}
	msg.ErrorCode = data[0]
	msg.ErrorSubcode = data[1]
	msg.Data = nil
	if len(data) > 2 {
		msg.Data = append([]byte(nil), data[2:]...)
	}
	return nil
}

func (msg *BGPNotification) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf := make([]byte, 2, 2+len(msg.Data))
	buf[0] = msg.ErrorCode
	buf[1] = msg.ErrorSubcode
	return append(buf, msg.Data...), nil
}

func NewBGPNotificationMessage(errcode uint8, errsubcode uint8, data []byte) *BGPMessage {
	return &BGPMessage{
		Header: BGPHeader{Type: BGP_MSG_NOTIFICATION},
		Body: &BGPNotification{
			ErrorCode:    errcode,
			ErrorSubcode: errsubcode,
			Data:         data,
		},
	}
}

type BGPKeepAlive struct{}

func (msg *BGPKeepAlive) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	if len(data) != 0 {
		return bodyLengthError(ErrorKindKeepalive, data, fmt.Sprintf("keepalive carries %d bytes of body", len(data)))
	}
	return nil
}

func (msg *BGPKeepAlive) Serialize(options ...*MarshallingOption) ([]byte, error) {
	return []byte{}, nil
}

func (msg *BGPKeepAlive) String() string {
	return "{}"
}

func NewBGPKeepAliveMessage() *BGPMessage {
	return &BGPMessage{
		Header: BGPHeader{Len: BGP_KEEPALIVE_LENGTH, Type: BGP_MSG_KEEPALIVE},
		Body:   &BGPKeepAlive{},
	}
}

// BGPRouteRefresh is RFC2918 with the RFC7313 message subtype kept in
// Demarcation.
type BGPRouteRefresh struct {
	AFI         uint16
	Demarcation uint8
	SAFI        uint8
}

func (msg *BGPRouteRefresh) DecodeFromBytes(data []byte, options ...*MarshallingOption) error {
	if len(data) != 4 {
		return newKindError(ErrorKindRouteRefresh, BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR, BGP_ERROR_SUB_INVALID_MESSAGE_LENGTH,
			append([]byte(nil), data...), fmt.Sprintf("route refresh body must be 4 bytes, got %d", len(data)))
	}
	msg.AFI = binary.BigEndian.Uint16(data[0:2])
	msg.Demarcation = data[2]
	msg.SAFI = data[3]
	return nil
}

func (msg *BGPRouteRefresh) Serialize(options ...*MarshallingOption) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], msg.AFI)
	buf[2] = msg.Demarcation
	buf[3] = msg.SAFI
	return buf, nil
}

func (msg *BGPRouteRefresh) String() string {
	return fmt.Sprintf("{Family: %s, Demarcation: %d}", AfiSafiToFamily(msg.AFI, msg.SAFI), msg.Demarcation)
}

func NewBGPRouteRefreshMessage(afi uint16, demarcation uint8, safi uint8) *BGPMessage {
	return &BGPMessage{
		Header: BGPHeader{Type: BGP_MSG_ROUTE_REFRESH},
		Body: &BGPRouteRefresh{
			AFI:         afi,
			Demarcation: demarcation,
			SAFI:        safi,
		},
	}
}

// BGPMessage is a decoded message. Header.Len is set by the decoder only;
// Serialize always computes the length from the body.
type BGPMessage struct {
	Header BGPHeader
	Body   BGPBody
}

func messageType(body BGPBody) (uint8, error) {
	switch body.(type) {
	case *BGPOpen:
		return BGP_MSG_OPEN, nil
	case *BGPUpdate:
		return BGP_MSG_UPDATE, nil
	case *BGPNotification:
		return BGP_MSG_NOTIFICATION, nil
	case *BGPKeepAlive:
		return BGP_MSG_KEEPALIVE, nil
	case *BGPRouteRefresh:
		return BGP_MSG_ROUTE_REFRESH, nil
	}
	return 0, fmt.Errorf("unknown message body %T", body)
}

// ParseBGPBody decodes a message body whose header has already been read.
// Error offsets are relative to the body.
func ParseBGPBody(h *BGPHeader, data []byte, options ...*MarshallingOption) (*BGPMessage, error) {
	msg := &BGPMessage{Header: *h}

	switch msg.Header.Type {
	case BGP_MSG_OPEN:
		msg.Body = &BGPOpen{}
	case BGP_MSG_UPDATE:
		msg.Body = &BGPUpdate{}
	case BGP_MSG_NOTIFICATION:
		msg.Body = &BGPNotification{}
	case BGP_MSG_KEEPALIVE:
		msg.Body = &BGPKeepAlive{}
	case BGP_MSG_ROUTE_REFRESH:
		msg.Body = &BGPRouteRefresh{}
	default:
		return nil, headerError(BGP_ERROR_SUB_BAD_MESSAGE_TYPE, []byte{h.Type}, 0,
			fmt.Sprintf("unknown message type %d", h.Type))
	}
	if err := msg.Body.DecodeFromBytes(data, options...); err != nil {
		return nil, err
	}
	return msg, nil
}

// ParseBGPMessage decodes exactly one message occupying all of data. When
// data ends before the declared length an *IncompleteError is returned.
func ParseBGPMessage(data []byte, options ...*MarshallingOption) (*BGPMessage, error) {
	h := &BGPHeader{}
	if err := h.DecodeFromBytes(data, options...); err != nil {
		return nil, err
	}
	if len(data) < int(h.Len) {
		return nil, &IncompleteError{Need: int(h.Len) - len(data)}
	}
	if len(data) > int(h.Len) {
		return nil, headerError(BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, []byte{data[16], data[17]}, 16,
			fmt.Sprintf("%d bytes follow a message of length %d", len(data)-int(h.Len), h.Len))
	}
	msg, err := ParseBGPBody(h, data[BGP_HEADER_LENGTH:h.Len], options...)
	if err != nil {
		return nil, shiftError(err, BGP_HEADER_LENGTH)
	}
	return msg, nil
}

func (msg *BGPMessage) Serialize(options ...*MarshallingOption) ([]byte, error) {
	typ, err := messageType(msg.Body)
	if err != nil {
		return nil, err
	}
	b, err := msg.Body.Serialize(options...)
	if err != nil {
		return nil, err
	}
	total := BGP_HEADER_LENGTH + len(b)
	if limit := MaxMessageLength(options); total > limit {
		return nil, fmt.Errorf("%s message length %d exceeds the maximum %d", MessageTypeString(typ), total, limit)
	}
	h, err := WriteHeader(typ, len(b))
	if err != nil {
		return nil, err
	}
	return append(h, b...), nil
}

func (msg *BGPMessage) String() string {
	typ, err := messageType(msg.Body)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s %s", MessageTypeString(typ), msg.Body)
}
