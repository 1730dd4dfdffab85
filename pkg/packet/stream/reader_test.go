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
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

func Test_ReaderWriter(t *testing.T) {
	assert := assert.New(t)
	var conn bytes.Buffer
	c, o, _ := newTestCodec(&bgp.MarshallingOption{AS4: true})

	w := NewWriter(&conn, c)
	msgs := []*bgp.BGPMessage{
		bgp.NewTestBGPOpenMessage(),
		bgp.NewBGPKeepAliveMessage(),
		bgp.NewTestBGPUpdateMessage(),
		bgp.NewBGPRouteRefreshMessage(bgp.AFI_IP6, 0, bgp.SAFI_UNICAST),
		bgp.NewBGPNotificationMessage(bgp.BGP_ERROR_CEASE, bgp.BGP_ERROR_SUB_ADMINISTRATIVE_SHUTDOWN, nil),
	}
	for _, m := range msgs {
		require.NoError(t, w.WriteMsg(m))
	}
	assert.Equal(1, o.encoded[bgp.BGP_MSG_OPEN])

	r := NewReader(&conn, c)
	for _, want := range msgs {
		got, err := r.ReadMsg()
		require.NoError(t, err)
		wantBuf, err := want.Serialize(c.Options())
		require.NoError(t, err)
		gotBuf, err := got.Serialize(c.Options())
		require.NoError(t, err)
		assert.Equal(wantBuf, gotBuf)
	}
	_, err := r.ReadMsg()
	assert.Equal(io.EOF, err)
	assert.Equal(1, o.decoded[bgp.BGP_MSG_NOTIFICATION])
}

func Test_ReaderTruncated(t *testing.T) {
	assert := assert.New(t)
	buf := update40(t)
	c, _, _ := newTestCodec(nil)

	_, err := NewReader(bytes.NewReader(buf[:10]), c).ReadMsg()
	require.Error(t, err)
	assert.Equal(io.ErrUnexpectedEOF, errors.Cause(err))
	assert.Contains(err.Error(), "failed to read header")

	_, err = NewReader(bytes.NewReader(buf[:30]), c).ReadMsg()
	require.Error(t, err)
	assert.Equal(io.ErrUnexpectedEOF, errors.Cause(err))
	assert.Contains(err.Error(), "failed to read UPDATE body")
}

func Test_ReaderBadHeader(t *testing.T) {
	buf := update40(t)
	buf[18] = 9
	c, o, _ := newTestCodec(nil)
	_, err := NewReader(bytes.NewReader(buf), c).ReadMsg()
	var e *bgp.MessageError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, uint8(bgp.BGP_ERROR_SUB_BAD_MESSAGE_TYPE), e.SubTypeCode)
	assert.Equal(t, []byte{9}, e.Data)
	assert.Equal(t, 1, o.failed[bgp.ErrorKindHeader])
}

type brokenConn struct{}

func (brokenConn) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("connection reset")
}

func Test_WriterError(t *testing.T) {
	c, _, _ := newTestCodec(nil)
	err := NewWriter(brokenConn{}, c).WriteMsg(bgp.NewBGPKeepAliveMessage())
	require.Error(t, err)
	assert.Equal(t, "failed to send message: connection reset", err.Error())
}
