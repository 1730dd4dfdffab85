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
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pabgp/pabgp/pkg/log"
	"github.com/pabgp/pabgp/pkg/packet/stream"
)

var encodeOpts struct {
	Out string
}

// encodeMessages builds specs and prints each message as a hex line, or
// writes the raw bytes to --out.
func encodeMessages(cmd *cobra.Command, specs []messageSpec) error {
	codec := stream.NewCodec(options, stream.LoggerOption(logger))

	var writer *stream.Writer
	if encodeOpts.Out != "" {
		f, err := os.OpenFile(encodeOpts.Out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", encodeOpts.Out)
		}
		defer f.Close()
		writer = stream.NewWriter(f, codec)
	}

	count := 0
	for i := range specs {
		msgs, err := specs[i].build(options)
		if err != nil {
			return errors.Wrapf(err, "failed to build message %d (%s)", i+1, specs[i].Type)
		}
		for _, m := range msgs {
			if writer != nil {
				if err := writer.WriteMsg(m); err != nil {
					return err
				}
			} else {
				b, err := codec.Encode(m)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(b))
			}
			count++
		}
	}
	logger.Info("encoded messages", log.Fields{
		"Topic": "Encode",
		"Count": count,
	})
	return nil
}

func newKeepaliveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   cmdKeepalive,
		Short: "encode a KEEPALIVE message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return encodeMessages(cmd, []messageSpec{{Type: cmdKeepalive}})
		},
	}
}

func newNotificationCmd() *cobra.Command {
	spec := messageSpec{Type: cmdNotification}
	notificationCmd := &cobra.Command{
		Use:   cmdNotification,
		Short: "encode a NOTIFICATION message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return encodeMessages(cmd, []messageSpec{spec})
		},
	}
	notificationCmd.Flags().Uint8VarP(&spec.Code, "code", "c", 0, "error code")
	notificationCmd.Flags().Uint8VarP(&spec.Subcode, "subcode", "s", 0, "error subcode")
	notificationCmd.Flags().StringVarP(&spec.Data, "data", "d", "", "data in hex")
	notificationCmd.Flags().StringVarP(&spec.Shutdown, "shutdown", "", "", "send Cease/Administrative Shutdown with this reason")
	return notificationCmd
}

func newOpenCmd() *cobra.Command {
	spec := messageSpec{Type: cmdOpen}
	var holdTime uint16
	openCmd := &cobra.Command{
		Use:   cmdOpen,
		Short: "encode an OPEN message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("hold-time") {
				spec.HoldTime = &holdTime
			}
			return encodeMessages(cmd, []messageSpec{spec})
		},
	}
	openCmd.Flags().Uint32VarP(&spec.AS, "as", "", 0, "local AS number")
	openCmd.Flags().Uint16VarP(&holdTime, "hold-time", "", 90, "hold time in seconds")
	openCmd.Flags().StringVarP(&spec.RouterID, "router-id", "", "", "router id")
	openCmd.Flags().StringSliceVarP(&spec.Capabilities, "capability", "c", nil,
		"capabilities: a family name, route-refresh, four-octet-as, extended-message, enh-ipv4-over-ipv6, enh-ipv6-over-ipv4")
	return openCmd
}

func newRouteRefreshCmd() *cobra.Command {
	spec := messageSpec{Type: cmdRouteRefresh}
	routeRefreshCmd := &cobra.Command{
		Use:   cmdRouteRefresh,
		Short: "encode a ROUTE-REFRESH message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return encodeMessages(cmd, []messageSpec{spec})
		},
	}
	routeRefreshCmd.Flags().StringVarP(&spec.Family, "route-family", "r", "ipv4-unicast", "address family")
	routeRefreshCmd.Flags().Uint8VarP(&spec.Demarcation, "demarcation", "", 0, "1 for BoRR, 2 for EoRR")
	return routeRefreshCmd
}

func newUpdateCmd() *cobra.Command {
	spec := messageSpec{Type: cmdUpdate}
	var med, localPref uint32
	var asPath, asSet []string
	updateCmd := &cobra.Command{
		Use:   cmdUpdate,
		Short: "encode UPDATE messages, split as the maximum message length requires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("med") {
				spec.Med = &med
			}
			if cmd.Flags().Changed("local-pref") {
				spec.LocalPref = &localPref
			}
			var err error
			if spec.AsPath, err = parseASList(asPath); err != nil {
				return err
			}
			if spec.AsSet, err = parseASList(asSet); err != nil {
				return err
			}
			return encodeMessages(cmd, []messageSpec{spec})
		},
	}
	f := updateCmd.Flags()
	f.StringSliceVarP(&spec.Announce, "announce", "", nil, "prefixes to announce")
	f.StringSliceVarP(&spec.Withdraw, "withdraw", "", nil, "prefixes to withdraw")
	f.BoolVarP(&spec.MultiProtocol, "multiprotocol", "m", false, "carry routes in MP_REACH_NLRI and MP_UNREACH_NLRI")
	f.StringVarP(&spec.Origin, "origin", "o", "", "igp, egp or incomplete (igp when announcing)")
	f.StringSliceVarP(&asPath, "as-path", "", nil, "AS_SEQUENCE segment")
	f.StringSliceVarP(&asSet, "as-set", "", nil, "AS_SET segment")
	f.StringVarP(&spec.NextHop, "nexthop", "n", "", "next hop")
	f.StringVarP(&spec.LinkLocalNextHop, "link-local-nexthop", "", "", "IPv6 link local next hop")
	f.Uint32VarP(&med, "med", "", 0, "MULTI_EXIT_DISC")
	f.Uint32VarP(&localPref, "local-pref", "", 0, "LOCAL_PREF")
	f.StringSliceVarP(&spec.Communities, "community", "", nil, "communities, AS:VALUE or a well-known name")
	return updateCmd
}

func parseASList(l []string) ([]uint32, error) {
	var path []uint32
	for _, s := range l {
		as, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid AS number %q", s)
		}
		path = append(path, uint32(as))
	}
	return path, nil
}

func newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <path>", cmdFile),
		Short: "encode the [[message]] tables of a toml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := readMessageFile(args[0])
			if err != nil {
				return err
			}
			return encodeMessages(cmd, specs)
		},
	}
}

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   cmdEncode,
		Short: "encode BGP messages",
	}
	encodeCmd.PersistentFlags().StringVarP(&encodeOpts.Out, "out", "O", "", "write raw messages to the file instead of printing hex")
	encodeCmd.AddCommand(newKeepaliveCmd(), newNotificationCmd(), newOpenCmd(), newRouteRefreshCmd(), newUpdateCmd(), newFileCmd())
	return encodeCmd
}
