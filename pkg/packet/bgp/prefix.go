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
	"fmt"
	"net/netip"
)

func addrLenForAfi(afi uint16) (int, error) {
	switch afi {
	case AFI_IP:
		return 4, nil
	case AFI_IP6:
		return 16, nil
	}
	return 0, fmt.Errorf("unsupported address family %d", afi)
}

func prefixError(data []byte, msg string) *MessageError {
	return newKindError(ErrorKindPrefix, BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_INVALID_NETWORK_FIELD, data, msg)
}

// EncodePrefix packs bits of addr into the NLRI wire form: one length octet
// followed by the minimum number of address octets. Bits past the prefix
// length are cleared.
func EncodePrefix(afi uint16, bits uint8, addr []byte) ([]byte, error) {
	addrlen, err := addrLenForAfi(afi)
	if err != nil {
		return nil, err
	}
	if int(bits) > addrlen*8 {
		return nil, fmt.Errorf("prefix length %d exceeds %d bits", bits, addrlen*8)
	}
	bytelen := (int(bits) + 7) / 8
	if len(addr) < bytelen {
		return nil, fmt.Errorf("prefix length %d needs %d address bytes, got %d", bits, bytelen, len(addr))
	}
	buf := make([]byte, 1+bytelen)
	buf[0] = bits
	copy(buf[1:], addr[:bytelen])
	if bits%8 != 0 {
		buf[bytelen] &= ^byte(0xff >> (bits % 8))
	}
	return buf, nil
}

// DecodePrefix reads one NLRI entry from the start of data and returns it
// with the number of bytes it occupied.
func DecodePrefix(afi uint16, data []byte) (*IPAddrPrefix, int, error) {
	addrlen, err := addrLenForAfi(afi)
	if err != nil {
		return nil, 0, prefixError(nil, err.Error())
	}
	if len(data) < 1 {
		return nil, 0, prefixError(nil, "prefix misses length field")
	}
	bits := data[0]
	if int(bits) > addrlen*8 {
		e := prefixError([]byte{bits}, fmt.Sprintf("prefix length %d exceeds %d bits", bits, addrlen*8))
		return nil, 0, e
	}
	bytelen := (int(bits) + 7) / 8
	if len(data)-1 < bytelen {
		e := prefixError(nil, fmt.Sprintf("prefix length %d needs %d bytes, %d available", bits, bytelen, len(data)-1))
		return nil, 0, e
	}
	var addr netip.Addr
	if addrlen == 4 {
		var b [4]byte
		copy(b[:], data[1:1+bytelen])
		addr = netip.AddrFrom4(b)
	} else {
		var b [16]byte
		copy(b[:], data[1:1+bytelen])
		addr = netip.AddrFrom16(b)
	}
	prefix, err := addr.Prefix(int(bits))
	if err != nil {
		return nil, 0, prefixError(nil, err.Error())
	}
	return &IPAddrPrefix{Prefix: prefix}, 1 + bytelen, nil
}

// IPAddrPrefix is a unicast NLRI. The prefix is always kept masked.
type IPAddrPrefix struct {
	Prefix netip.Prefix
}

func NewIPAddrPrefix(prefix netip.Prefix) (*IPAddrPrefix, error) {
	if !prefix.IsValid() {
		return nil, fmt.Errorf("invalid prefix %s", prefix)
	}
	addr := prefix.Addr()
	if addr.Is4In6() {
		addr = addr.Unmap()
		if prefix.Bits() < 96 {
			return nil, fmt.Errorf("invalid prefix %s", prefix)
		}
		prefix = netip.PrefixFrom(addr, prefix.Bits()-96)
	}
	return &IPAddrPrefix{Prefix: prefix.Masked()}, nil
}

// ParseIPAddrPrefix parses "a.b.c.d/n" or "x::/n".
func ParseIPAddrPrefix(s string) (*IPAddrPrefix, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return nil, err
	}
	return NewIPAddrPrefix(prefix)
}

func (r *IPAddrPrefix) DecodeFromBytes(data []byte, afi uint16) error {
	p, _, err := DecodePrefix(afi, data)
	if err != nil {
		return err
	}
	r.Prefix = p.Prefix
	return nil
}

func (r *IPAddrPrefix) Serialize() ([]byte, error) {
	return EncodePrefix(r.AFI(), uint8(r.Prefix.Bits()), r.Prefix.Addr().AsSlice())
}

func (r *IPAddrPrefix) Len() int {
	return 1 + (r.Prefix.Bits()+7)/8
}

func (r *IPAddrPrefix) AFI() uint16 {
	if r.Prefix.Addr().Is6() {
		return AFI_IP6
	}
	return AFI_IP
}

func (r *IPAddrPrefix) SAFI() uint8 {
	return SAFI_UNICAST
}

func (r *IPAddrPrefix) Family() Family {
	return AfiSafiToFamily(r.AFI(), r.SAFI())
}

func (r *IPAddrPrefix) String() string {
	return r.Prefix.String()
}

func decodePrefixes(afi uint16, data []byte) ([]*IPAddrPrefix, error) {
	var prefixes []*IPAddrPrefix
	for offset := 0; offset < len(data); {
		p, n, err := DecodePrefix(afi, data[offset:])
		if err != nil {
			return nil, shiftError(err, offset)
		}
		prefixes = append(prefixes, p)
		offset += n
	}
	return prefixes, nil
}

func serializePrefixes(prefixes []*IPAddrPrefix) ([]byte, error) {
	buf := make([]byte, 0, prefixesLen(prefixes))
	for _, p := range prefixes {
		pbuf, err := p.Serialize()
		if err != nil {
			return nil, err
		}
		buf = append(buf, pbuf...)
	}
	return buf, nil
}

func prefixesLen(prefixes []*IPAddrPrefix) int {
	l := 0
	for _, p := range prefixes {
		l += p.Len()
	}
	return l
}
