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

package stream

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

// Reader reads whole messages from r, one header and then one body at a
// time, so that it never reads past the end of a message.
type Reader struct {
	r     io.Reader
	codec *Codec
}

func NewReader(r io.Reader, codec *Codec) *Reader {
	return &Reader{r: r, codec: codec}
}

func readAll(r io.Reader, length int) ([]byte, error) {
	buf := make([]byte, length)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

// ReadMsg returns the next message. io.EOF is returned unwrapped when the
// stream ends cleanly between two messages.
func (r *Reader) ReadMsg() (*bgp.BGPMessage, error) {
	headerBuf, err := readAll(r.r, bgp.BGP_HEADER_LENGTH)
	if err == io.EOF {
		return nil, err
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	hd, err := bgp.ReadHeader(headerBuf, r.codec.Options())
	if err != nil {
		return nil, r.codec.failed(err)
	}
	bodyBuf, err := readAll(r.r, int(hd.Len)-bgp.BGP_HEADER_LENGTH)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s body", bgp.MessageTypeString(hd.Type))
	}
	msg, _, err := r.codec.Decode(append(headerBuf, bodyBuf...))
	return msg, err
}

// Writer serializes messages with a Codec and writes them to w.
type Writer struct {
	w     io.Writer
	codec *Codec
}

func NewWriter(w io.Writer, codec *Codec) *Writer {
	return &Writer{w: w, codec: codec}
}

func (w *Writer) WriteMsg(msg *bgp.BGPMessage) error {
	b, err := w.codec.Encode(msg)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}
