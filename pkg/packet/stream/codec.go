// Copyright (C) 2014-2016 Nippon Telegraph and Telephone Corporation.
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

// Package stream frames BGP messages on top of a byte stream owned by the
// caller.
package stream

import (
	"github.com/pkg/errors"

	"github.com/pabgp/pabgp/pkg/log"
	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

// Observer is told about every message that crosses a Codec.
type Observer interface {
	Decoded(msgType uint8)
	Encoded(msgType uint8)
	DecodeFailed(kind bgp.ErrorKind)
	Incomplete()
}

type options struct {
	logger   log.Logger
	observer Observer
	name     string
}

type CodecOption func(*options)

func LoggerOption(logger log.Logger) CodecOption {
	return func(o *options) {
		o.logger = logger
	}
}

func ObserverOption(observer Observer) CodecOption {
	return func(o *options) {
		o.observer = observer
	}
}

// NameOption sets the Key field of log entries, usually the peer address.
func NameOption(name string) CodecOption {
	return func(o *options) {
		o.name = name
	}
}

// Codec decodes and encodes the messages of one connection. It keeps the
// negotiated marshalling option and, when Feed is used, the bytes received
// so far. A Codec must not be used from more than one goroutine.
type Codec struct {
	opt      *bgp.MarshallingOption
	buf      []byte
	logger   log.Logger
	observer Observer
	name     string
}

func NewCodec(opt *bgp.MarshallingOption, opts ...CodecOption) *Codec {
	o := &options{}
	for _, f := range opts {
		f(o)
	}
	if o.logger == nil {
		o.logger = log.NewDefaultLogger()
	}
	return &Codec{
		opt:      opt,
		logger:   o.logger,
		observer: o.observer,
		name:     o.name,
	}
}

// SetOptions replaces the negotiation state, typically after the OPEN
// exchange completed.
func (c *Codec) SetOptions(opt *bgp.MarshallingOption) {
	c.opt = opt
	if c.logger.GetLevel() >= log.DebugLevel {
		c.logger.Debug("marshalling option updated", log.Fields{
			"Topic":           "Stream",
			"Key":             c.name,
			"AS4":             opt != nil && opt.AS4,
			"ExtendedMessage": opt != nil && opt.ExtendedMessage,
		})
	}
}

func (c *Codec) Options() *bgp.MarshallingOption {
	return c.opt
}

// Decode parses the first message in buf. On success it returns the message
// and the number of bytes it occupied. When buf holds only part of a
// message the error is a *bgp.IncompleteError and nothing is consumed; any
// other error is fatal for the connection.
func (c *Codec) Decode(buf []byte) (*bgp.BGPMessage, int, error) {
	h, err := bgp.ReadHeader(buf, c.opt)
	if err != nil {
		return nil, 0, c.failed(err)
	}
	if len(buf) < int(h.Len) {
		return nil, 0, c.failed(&bgp.IncompleteError{Need: int(h.Len) - len(buf)})
	}
	msg, err := bgp.ParseBGPMessage(buf[:h.Len], c.opt)
	if err != nil {
		return nil, 0, c.failed(err)
	}
	if c.observer != nil {
		c.observer.Decoded(h.Type)
	}
	if c.logger.GetLevel() >= log.DebugLevel {
		c.logger.Debug("received", log.Fields{
			"Topic": "Stream",
			"Key":   c.name,
			"Type":  bgp.MessageTypeString(h.Type),
			"Len":   h.Len,
		})
	}
	return msg, int(h.Len), nil
}

func (c *Codec) failed(err error) error {
	if bgp.IsIncomplete(err) {
		if c.observer != nil {
			c.observer.Incomplete()
		}
		return err
	}
	kind := bgp.ErrorKindOf(err)
	if c.observer != nil {
		c.observer.DecodeFailed(kind)
	}
	c.logger.Warn("failed to decode message", log.Fields{
		"Topic": "Stream",
		"Key":   c.name,
		"Kind":  kind.String(),
		"Error": err,
	})
	return err
}

// Feed appends received bytes to the internal buffer.
func (c *Codec) Feed(p []byte) {
	c.buf = append(c.buf, p...)
}

// Buffered returns the number of bytes fed but not consumed yet.
func (c *Codec) Buffered() int {
	return len(c.buf)
}

// Next decodes the next message from the bytes given to Feed. When the
// buffer does not hold a complete message a *bgp.IncompleteError is
// returned and the partial bytes are kept.
func (c *Codec) Next() (*bgp.BGPMessage, error) {
	msg, n, err := c.Decode(c.buf)
	if err != nil {
		return nil, err
	}
	// decoded values may alias the consumed bytes
	c.buf = append([]byte(nil), c.buf[n:]...)
	return msg, nil
}

// Reset drops any buffered bytes.
func (c *Codec) Reset() {
	c.buf = nil
}

// Encode serializes msg with the current negotiation state.
func (c *Codec) Encode(msg *bgp.BGPMessage) ([]byte, error) {
	b, err := msg.Serialize(c.opt)
	if err != nil {
		c.logger.Warn("failed to serialize", log.Fields{
			"Topic": "Stream",
			"Key":   c.name,
			"Data":  msg,
			"Error": err,
		})
		return nil, errors.Wrap(err, "failed to serialize message")
	}
	typ := b[bgp.BGP_HEADER_LENGTH-1]
	if c.observer != nil {
		c.observer.Encoded(typ)
	}
	if c.logger.GetLevel() >= log.DebugLevel {
		c.logger.Debug("sent", log.Fields{
			"Topic": "Stream",
			"Key":   c.name,
			"Type":  bgp.MessageTypeString(typ),
			"Len":   len(b),
		})
	}
	return b, nil
}
