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

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kr/pretty"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
)

const (
	cmdDecode       = "decode"
	cmdEncode       = "encode"
	cmdMrt          = "mrt"
	cmdDump         = "dump"
	cmdConfig       = "config"
	cmdShow         = "show"
	cmdExample      = "example"
	cmdVersion      = "version"
	cmdKeepalive    = "keepalive"
	cmdNotification = "notification"
	cmdOpen         = "open"
	cmdUpdate       = "update"
	cmdRouteRefresh = "route-refresh"
	cmdFile         = "file"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

func printError(w io.Writer, err error) {
	if globalOpts.Json {
		j, _ := json.Marshal(struct {
			Error string `json:"error"`
		}{Error: err.Error()})
		fmt.Fprintln(w, string(j))
	} else {
		fmt.Fprintln(w, red("error:"), err)
	}
}

func exitWithError(err error) {
	printError(os.Stderr, err)
	os.Exit(1)
}

type messageRecord struct {
	Type   string `json:"type"`
	Length uint16 `json:"length"`
	Body   string `json:"body"`
}

func printMessage(w io.Writer, msg *bgp.BGPMessage) {
	switch {
	case globalOpts.Json:
		j, _ := json.Marshal(messageRecord{
			Type:   bgp.MessageTypeString(msg.Header.Type),
			Length: msg.Header.Len,
			Body:   fmt.Sprint(msg.Body),
		})
		fmt.Fprintln(w, string(j))
	case globalOpts.Pretty:
		pretty.Fprintf(w, "%# v\n", msg)
	default:
		fmt.Fprintln(w, green(bgp.MessageTypeString(msg.Header.Type)), msg.Body)
	}
}

// describeError adds the NOTIFICATION a speaker would send back for a
// decoding error.
func describeError(err error) error {
	var e *bgp.MessageError
	if !errors.As(err, &e) {
		return err
	}
	n := e.Notification().Body.(*bgp.BGPNotification)
	return fmt.Errorf("%w (%s at offset %d, notification %s/%s data %x)", err, e.Kind, e.Offset,
		bgp.NotificationCodeString(n.ErrorCode), bgp.NotificationSubcodeString(n.ErrorCode, n.ErrorSubcode), n.Data)
}

// parseHex accepts hex with optional "0x" prefix, spaces and colons.
func parseHex(args []string) ([]byte, error) {
	s := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(strings.Join(args, ""))
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}
