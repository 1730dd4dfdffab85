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
	"sort"

	"github.com/hashicorp/go-multierror"
)

const DEFAULT_HOLDTIME = 90

// CapabilitiesBuilder collects the capabilities advertised in an OPEN.
// Extended next hop tuples are merged into a single capability.
type CapabilitiesBuilder struct {
	caps   []ParameterCapabilityInterface
	tuples []*CapExtendedNexthopTuple
}

func NewCapabilitiesBuilder() *CapabilitiesBuilder {
	return &CapabilitiesBuilder{}
}

func (b *CapabilitiesBuilder) MultiProtocol(family Family) *CapabilitiesBuilder {
	b.caps = append(b.caps, NewCapMultiProtocol(family))
	return b
}

func (b *CapabilitiesBuilder) MpIPv4Unicast() *CapabilitiesBuilder {
	return b.MultiProtocol(RF_IPv4_UC)
}

func (b *CapabilitiesBuilder) MpIPv6Unicast() *CapabilitiesBuilder {
	return b.MultiProtocol(RF_IPv6_UC)
}

func (b *CapabilitiesBuilder) RouteRefresh() *CapabilitiesBuilder {
	b.caps = append(b.caps, NewCapRouteRefresh())
	return b
}

func (b *CapabilitiesBuilder) ExtendedNextHop(tuples ...*CapExtendedNexthopTuple) *CapabilitiesBuilder {
	b.tuples = append(b.tuples, tuples...)
	return b
}

// ENHIPv4OverIPv6 advertises IPv4 unicast routes with IPv6 next hops.
func (b *CapabilitiesBuilder) ENHIPv4OverIPv6() *CapabilitiesBuilder {
	return b.ExtendedNextHop(NewCapExtendedNexthopTuple(RF_IPv4_UC, AFI_IP6))
}

// ENHIPv6OverIPv4 advertises IPv6 unicast routes with IPv4 next hops.
func (b *CapabilitiesBuilder) ENHIPv6OverIPv4() *CapabilitiesBuilder {
	return b.ExtendedNextHop(NewCapExtendedNexthopTuple(RF_IPv6_UC, AFI_IP))
}

func (b *CapabilitiesBuilder) ExtendedMessage() *CapabilitiesBuilder {
	b.caps = append(b.caps, NewCapExtendedMessage())
	return b
}

func (b *CapabilitiesBuilder) FourOctetAS(as uint32) *CapabilitiesBuilder {
	b.caps = append(b.caps, NewCapFourOctetASNumber(as))
	return b
}

// FourOctetASIfNeeded adds the four-octet AS capability only when as does
// not fit in 2 octets.
func (b *CapabilitiesBuilder) FourOctetASIfNeeded(as uint32) *CapabilitiesBuilder {
	if as > 0xffff {
		return b.FourOctetAS(as)
	}
	return b
}

func (b *CapabilitiesBuilder) Other(code BGPCapabilityCode, value []byte) *CapabilitiesBuilder {
	b.caps = append(b.caps, NewCapUnknown(code, value))
	return b
}

func (b *CapabilitiesBuilder) Build() []ParameterCapabilityInterface {
	caps := make([]ParameterCapabilityInterface, 0, len(b.caps)+1)
	caps = append(caps, b.caps...)
	if len(b.tuples) > 0 {
		caps = append(caps, NewCapExtendedNexthop(b.tuples))
	}
	return caps
}

type OpenBuilder struct {
	as       uint32
	holdTime uint16
	id       netip.Addr
	caps     []ParameterCapabilityInterface
}

func NewOpenBuilder() *OpenBuilder {
	return &OpenBuilder{
		holdTime: DEFAULT_HOLDTIME,
	}
}

// AS sets the local AS. Values above 65535 are sent as AS_TRANS in the
// My AS field and need the four-octet AS capability.
func (b *OpenBuilder) AS(as uint32) *OpenBuilder {
	b.as = as
	return b
}

func (b *OpenBuilder) HoldTime(holdTime uint16) *OpenBuilder {
	b.holdTime = holdTime
	return b
}

func (b *OpenBuilder) RouterID(id netip.Addr) *OpenBuilder {
	b.id = id
	return b
}

func (b *OpenBuilder) Capabilities(caps ...ParameterCapabilityInterface) *OpenBuilder {
	b.caps = append(b.caps, caps...)
	return b
}

func (b *OpenBuilder) Build() (*BGPMessage, error) {
	var errs *multierror.Error
	if b.as == 0 {
		errs = multierror.Append(errs, fmt.Errorf("local AS is not set"))
	}
	switch {
	case !b.id.IsValid():
		errs = multierror.Append(errs, fmt.Errorf("router id is not set"))
	case !b.id.Is4():
		errs = multierror.Append(errs, fmt.Errorf("router id %s isn't IPv4", b.id))
	case b.id.IsUnspecified():
		errs = multierror.Append(errs, fmt.Errorf("router id must not be %s", b.id))
	}
	if b.holdTime == 1 || b.holdTime == 2 {
		errs = multierror.Append(errs, fmt.Errorf("hold time %d must be 0 or at least 3", b.holdTime))
	}

	var as4 *CapFourOctetASNumber
	for _, c := range b.caps {
		if v, y := c.(*CapFourOctetASNumber); y {
			as4 = v
		}
	}
	if b.as > 0xffff && as4 == nil {
		errs = multierror.Append(errs, fmt.Errorf("AS %d needs the four-octet AS capability", b.as))
	}
	if as4 != nil && b.as != 0 && as4.CapValue != b.as {
		errs = multierror.Append(errs, fmt.Errorf("four-octet AS capability %d doesn't match local AS %d", as4.CapValue, b.as))
	}

	var params []OptionParameterInterface
	if len(b.caps) > 0 {
		p := NewOptionParameterCapability(b.caps)
		if p.Len()-2 > 255 {
			errs = multierror.Append(errs, fmt.Errorf("capabilities are too long: %d", p.Len()-2))
		}
		params = append(params, p)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, newValidationError("open message", errs)
	}

	myas := uint16(b.as)
	if b.as > 0xffff {
		myas = AS_TRANS
	}
	return NewBGPOpenMessage(myas, b.holdTime, b.id, params), nil
}

type NotificationBuilder struct {
	code    uint8
	subcode uint8
	data    []byte
	options *MarshallingOption
}

func NewNotificationBuilder() *NotificationBuilder {
	return &NotificationBuilder{}
}

func (b *NotificationBuilder) Code(code uint8) *NotificationBuilder {
	b.code = code
	return b
}

func (b *NotificationBuilder) Subcode(subcode uint8) *NotificationBuilder {
	b.subcode = subcode
	return b
}

func (b *NotificationBuilder) Data(data []byte) *NotificationBuilder {
	b.data = data
	return b
}

// Shutdown sets Cease / Administrative Shutdown with an RFC9003 reason.
func (b *NotificationBuilder) Shutdown(reason string) *NotificationBuilder {
	b.code = BGP_ERROR_CEASE
	b.subcode = BGP_ERROR_SUB_ADMINISTRATIVE_SHUTDOWN
	b.data = NewAdministrativeCommunication(reason)
	return b
}

func (b *NotificationBuilder) WithOptions(options *MarshallingOption) *NotificationBuilder {
	b.options = options
	return b
}

func (b *NotificationBuilder) Build() (*BGPMessage, error) {
	var errs *multierror.Error
	if b.code == 0 {
		errs = multierror.Append(errs, fmt.Errorf("error code is not set"))
	}
	if limit := MaxMessageLength([]*MarshallingOption{b.options}) - BGP_MIN_NOTIFICATION_LENGTH; len(b.data) > limit {
		errs = multierror.Append(errs, fmt.Errorf("data of %d bytes exceeds %d", len(b.data), limit))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, newValidationError("notification message", errs)
	}
	return NewBGPNotificationMessage(b.code, b.subcode, b.data), nil
}

type KeepaliveBuilder struct{}

func NewKeepaliveBuilder() *KeepaliveBuilder {
	return &KeepaliveBuilder{}
}

func (b *KeepaliveBuilder) Build() (*BGPMessage, error) {
	return NewBGPKeepAliveMessage(), nil
}

type RouteRefreshBuilder struct {
	family      Family
	demarcation uint8
}

func NewRouteRefreshBuilder() *RouteRefreshBuilder {
	return &RouteRefreshBuilder{}
}

func (b *RouteRefreshBuilder) Family(family Family) *RouteRefreshBuilder {
	b.family = family
	return b
}

// Demarcation sets the RFC7313 message subtype: 1 for BoRR, 2 for EoRR.
func (b *RouteRefreshBuilder) Demarcation(d uint8) *RouteRefreshBuilder {
	b.demarcation = d
	return b
}

func (b *RouteRefreshBuilder) Build() (*BGPMessage, error) {
	var errs *multierror.Error
	if b.family == 0 {
		errs = multierror.Append(errs, fmt.Errorf("address family is not set"))
	}
	if b.demarcation > 2 {
		errs = multierror.Append(errs, fmt.Errorf("unknown route refresh subtype %d", b.demarcation))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, newValidationError("route refresh message", errs)
	}
	return NewBGPRouteRefreshMessage(b.family.Afi(), b.demarcation, b.family.Safi()), nil
}

// UpdateBuilder accumulates routes and attributes and packs them into
// UPDATE messages. In multiprotocol mode every route, IPv4 included, is
// carried in MP_REACH_NLRI and MP_UNREACH_NLRI; otherwise only IPv4 unicast
// routes with an IPv4 next hop can be built.
type UpdateBuilder struct {
	withdrawn []*IPAddrPrefix
	nlri      []*IPAddrPrefix
	origin    *uint8
	asPath    []*AsPathParam
	nexthop   netip.Addr
	linkLocal netip.Addr
	attrs     []PathAttributeInterface
	mp        bool
	options   *MarshallingOption
	errs      *multierror.Error
}

func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{}
}

// WithOptions sets the session context the messages are built for. It
// decides the AS number width, the maximum message length and, when it
// lists families, which families may be sent.
func (b *UpdateBuilder) WithOptions(options *MarshallingOption) *UpdateBuilder {
	b.options = options
	return b
}

func (b *UpdateBuilder) MultiProtocol(enable bool) *UpdateBuilder {
	b.mp = enable
	return b
}

func (b *UpdateBuilder) addPrefixes(dst []*IPAddrPrefix, prefixes []netip.Prefix) []*IPAddrPrefix {
	for _, p := range prefixes {
		r, err := NewIPAddrPrefix(p)
		if err != nil {
			b.errs = multierror.Append(b.errs, err)
			continue
		}
		dst = append(dst, r)
	}
	return dst
}

func (b *UpdateBuilder) Withdraw(prefixes ...netip.Prefix) *UpdateBuilder {
	b.withdrawn = b.addPrefixes(b.withdrawn, prefixes)
	return b
}

func (b *UpdateBuilder) Announce(prefixes ...netip.Prefix) *UpdateBuilder {
	b.nlri = b.addPrefixes(b.nlri, prefixes)
	return b
}

func (b *UpdateBuilder) Origin(origin uint8) *UpdateBuilder {
	b.origin = &origin
	return b
}

// AsPathSegment appends a segment to AS_PATH.
func (b *UpdateBuilder) AsPathSegment(segType uint8, as ...uint32) *UpdateBuilder {
	b.asPath = append(b.asPath, NewAsPathParam(segType, as))
	return b
}

func (b *UpdateBuilder) NextHop(addr netip.Addr) *UpdateBuilder {
	b.nexthop = addr
	return b
}

// LinkLocalNextHop sets the second IPv6 next hop of MP_REACH_NLRI.
func (b *UpdateBuilder) LinkLocalNextHop(addr netip.Addr) *UpdateBuilder {
	b.linkLocal = addr
	return b
}

// PathAttribute adds an attribute other than ORIGIN, AS_PATH, NEXT_HOP and
// the multiprotocol ones, which have their own setters.
func (b *UpdateBuilder) PathAttribute(attrs ...PathAttributeInterface) *UpdateBuilder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

func (b *UpdateBuilder) validate() *multierror.Error {
	var errs *multierror.Error
	if b.errs != nil {
		errs = multierror.Append(errs, b.errs.Errors...)
	}
	as4 := b.options != nil && b.options.AS4

	if b.origin != nil && *b.origin > BGP_ORIGIN_ATTR_TYPE_INCOMPLETE {
		errs = multierror.Append(errs, fmt.Errorf("invalid origin %d", *b.origin))
	}
	for _, seg := range b.asPath {
		if seg.Type == 0 || seg.Type > BGP_ASPATH_ATTR_TYPE_CONFED_SET {
			errs = multierror.Append(errs, fmt.Errorf("unknown AS_PATH segment type %d", seg.Type))
		}
		if len(seg.AS) == 0 || len(seg.AS) > 255 {
			errs = multierror.Append(errs, fmt.Errorf("AS_PATH segment must hold 1 to 255 AS numbers, got %d", len(seg.AS)))
		}
		for _, as := range seg.AS {
			if !as4 && as > 0xffff {
				errs = multierror.Append(errs, fmt.Errorf("AS %d needs a four-octet AS session, use AS_TRANS with AS4_PATH", as))
			}
		}
	}

	seen := make(map[BGPAttrType]bool)
	for _, a := range b.attrs {
		switch a.GetType() {
		case BGP_ATTR_TYPE_ORIGIN, BGP_ATTR_TYPE_AS_PATH, BGP_ATTR_TYPE_NEXT_HOP, BGP_ATTR_TYPE_MP_REACH_NLRI, BGP_ATTR_TYPE_MP_UNREACH_NLRI:
			errs = multierror.Append(errs, fmt.Errorf("%s must be set with its own setter", a.GetType()))
		}
		if seen[a.GetType()] {
			errs = multierror.Append(errs, fmt.Errorf("duplicate attribute %s", a.GetType()))
		}
		seen[a.GetType()] = true
		if agg, y := a.(*PathAttributeAggregator); y && !as4 && agg.AS > 0xffff {
			errs = multierror.Append(errs, fmt.Errorf("aggregator AS %d needs a four-octet AS session", agg.AS))
		}
	}

	families := make(map[Family]bool)
	for _, r := range append(append([]*IPAddrPrefix{}, b.withdrawn...), b.nlri...) {
		families[r.Family()] = true
	}
	if !b.mp {
		if families[RF_IPv6_UC] {
			errs = multierror.Append(errs, fmt.Errorf("IPv6 routes need multiprotocol mode"))
		}
		if len(b.nlri) > 0 && b.nexthop.IsValid() && !b.nexthop.Is4() {
			errs = multierror.Append(errs, fmt.Errorf("next hop %s needs multiprotocol mode", b.nexthop))
		}
		if b.linkLocal.IsValid() {
			errs = multierror.Append(errs, fmt.Errorf("link local next hop needs multiprotocol mode"))
		}
	} else if b.options != nil && len(b.options.Families) > 0 {
		for f := range families {
			if !b.options.HasFamilyExplicit(f) {
				errs = multierror.Append(errs, fmt.Errorf("family %s isn't negotiated", f))
			}
		}
	}

	if len(b.nlri) > 0 {
		if b.origin == nil {
			errs = multierror.Append(errs, fmt.Errorf("announced routes need ORIGIN"))
		}
		if !b.nexthop.IsValid() {
			errs = multierror.Append(errs, fmt.Errorf("announced routes need a next hop"))
		}
	}
	if b.mp && b.nexthop.IsValid() {
		for _, r := range b.nlri {
			if r.AFI() == AFI_IP6 && !b.nexthop.Is6() {
				errs = multierror.Append(errs, fmt.Errorf("IPv6 routes can't use IPv4 next hop %s", b.nexthop))
				break
			}
		}
		for _, r := range b.nlri {
			if r.AFI() == AFI_IP && b.nexthop.Is6() && !b.options.HasExtendedNexthop(RF_IPv4_UC, AFI_IP6) {
				errs = multierror.Append(errs, fmt.Errorf("IPv4 routes with IPv6 next hop need the extended next hop capability"))
				break
			}
		}
	}
	if b.linkLocal.IsValid() && (!b.linkLocal.Is6() || !b.nexthop.Is6()) {
		errs = multierror.Append(errs, fmt.Errorf("link local next hop %s needs an IPv6 global next hop", b.linkLocal))
	}
	return errs
}

func (b *UpdateBuilder) commonAttributes() []PathAttributeInterface {
	var attrs []PathAttributeInterface
	if b.origin != nil {
		attrs = append(attrs, NewPathAttributeOrigin(*b.origin))
	}
	attrs = append(attrs, NewPathAttributeAsPath(b.asPath))
	if !b.mp {
		attrs = append(attrs, NewPathAttributeNextHop(b.nexthop))
	}
	return append(attrs, b.attrs...)
}

// Build returns the routes as a single UPDATE message and fails when they
// need more than one.
func (b *UpdateBuilder) Build() (*BGPMessage, error) {
	msgs, err := b.BuildAll()
	if err != nil {
		return nil, err
	}
	if len(msgs) != 1 {
		return nil, newValidationError("update message", multierror.Append(nil,
			fmt.Errorf("routes need %d messages, use BuildAll", len(msgs))))
	}
	return msgs[0], nil
}

// BuildAll packs the routes into as many UPDATE messages as the maximum
// message length requires. Withdrawals come first, then announcements.
// A builder without routes yields a single empty UPDATE.
func (b *UpdateBuilder) BuildAll() ([]*BGPMessage, error) {
	if errs := b.validate(); errs.ErrorOrNil() != nil {
		return nil, newValidationError("update message", errs)
	}
	options := []*MarshallingOption{b.options}
	p := &updatePacker{
		mp:        b.mp,
		limit:     MaxMessageLength(options) - BGP_HEADER_LENGTH - BGP_UPDATE_FIXED_BODY_LENGTH,
		nexthop:   b.nexthop,
		linkLocal: b.linkLocal,
	}
	if len(b.nlri) > 0 {
		p.common = b.commonAttributes()
		for _, a := range p.common {
			p.commonLen += a.Len(options...)
		}
		if p.announceCost(&IPAddrPrefix{Prefix: netip.MustParsePrefix("::/0")})+16 > p.limit {
			return nil, newValidationError("update message", multierror.Append(nil,
				fmt.Errorf("path attributes of %d bytes leave no room for routes", p.commonLen)))
		}
	}

	for _, family := range []Family{RF_IPv4_UC, RF_IPv6_UC} {
		for _, r := range b.withdrawn {
			if r.Family() == family {
				p.withdraw(r)
			}
		}
	}
	for _, family := range []Family{RF_IPv4_UC, RF_IPv6_UC} {
		for _, r := range b.nlri {
			if r.Family() == family {
				p.announce(r)
			}
		}
	}
	p.flush()
	if len(p.updates) == 0 {
		return []*BGPMessage{NewBGPUpdateMessage(nil, nil, nil)}, nil
	}
	return p.updates, nil
}

const mpUnreachOverhead = 4 + 3

type updatePacker struct {
	mp        bool
	limit     int
	common    []PathAttributeInterface
	commonLen int
	nexthop   netip.Addr
	linkLocal netip.Addr
	updates   []*BGPMessage

	withdrawn     []*IPAddrPrefix
	nlri          []*IPAddrPrefix
	unreachFamily Family
	reachFamily   Family
	size          int
}

func (p *updatePacker) mpReachOverhead() int {
	l := 4 + 5 + p.nexthop.BitLen()/8
	if p.linkLocal.IsValid() {
		l += 16
	}
	return l
}

func (p *updatePacker) withdrawCost(r *IPAddrPrefix) int {
	c := r.Len()
	if p.mp && len(p.withdrawn) == 0 {
		c += mpUnreachOverhead
	}
	return c
}

func (p *updatePacker) announceCost(r *IPAddrPrefix) int {
	c := r.Len()
	if len(p.nlri) == 0 {
		c += p.commonLen
		if p.mp {
			c += p.mpReachOverhead()
		}
	}
	return c
}

func (p *updatePacker) withdraw(r *IPAddrPrefix) {
	f := r.Family()
	if p.mp && len(p.withdrawn) > 0 && p.unreachFamily != f {
		p.flush()
	}
	if p.size+p.withdrawCost(r) > p.limit {
		p.flush()
	}
	p.size += p.withdrawCost(r)
	p.withdrawn = append(p.withdrawn, r)
	p.unreachFamily = f
}

func (p *updatePacker) announce(r *IPAddrPrefix) {
	f := r.Family()
	if p.mp && len(p.nlri) > 0 && p.reachFamily != f {
		p.flush()
	}
	if p.size+p.announceCost(r) > p.limit {
		p.flush()
	}
	p.size += p.announceCost(r)
	p.nlri = append(p.nlri, r)
	p.reachFamily = f
}

func (p *updatePacker) flush() {
	if len(p.withdrawn) == 0 && len(p.nlri) == 0 {
		return
	}
	u := &BGPUpdate{}
	var attrs []PathAttributeInterface
	if len(p.nlri) > 0 {
		attrs = append(attrs, p.common...)
	}
	if p.mp {
		if len(p.nlri) > 0 {
			reach := NewPathAttributeMpReachNLRI(p.reachFamily, p.nlri, p.nexthop)
			reach.LinkLocalNexthop = p.linkLocal
			reach.Flags |= BGP_ATTR_FLAG_EXTENDED_LENGTH
			attrs = append(attrs, reach)
		}
		if len(p.withdrawn) > 0 {
			unreach := NewPathAttributeMpUnreachNLRI(p.unreachFamily, p.withdrawn)
			unreach.Flags |= BGP_ATTR_FLAG_EXTENDED_LENGTH
			attrs = append(attrs, unreach)
		}
	} else {
		u.WithdrawnRoutes = p.withdrawn
		u.NLRI = p.nlri
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].GetType() < attrs[j].GetType()
	})
	u.PathAttributes = attrs
	p.updates = append(p.updates, &BGPMessage{
		Header: BGPHeader{Type: BGP_MSG_UPDATE},
		Body:   u,
	})

	p.withdrawn = nil
	p.nlri = nil
	p.size = 0
}
