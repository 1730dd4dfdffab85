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
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/pabgp/pabgp/pkg/log"
	"github.com/pabgp/pabgp/pkg/metrics"
	"github.com/pabgp/pabgp/pkg/packet/bgp"
	"github.com/pabgp/pabgp/pkg/packet/stream"
)

func decodeHex(w io.Writer, codec *stream.Codec, filter *prefixFilter, args []string) error {
	data, err := parseHex(args)
	if err != nil {
		return err
	}
	codec.Feed(data)
	for {
		msg, err := codec.Next()
		if bgp.IsIncomplete(err) {
			break
		} else if err != nil {
			return describeError(err)
		}
		if filter.match(msg) {
			printMessage(w, msg)
		}
	}
	if n := codec.Buffered(); n > 0 {
		return fmt.Errorf("%d trailing bytes don't make a complete message", n)
	}
	return nil
}

func decodeStream(w io.Writer, codec *stream.Codec, filter *prefixFilter, r io.Reader) error {
	reader := stream.NewReader(r, codec)
	for {
		msg, err := reader.ReadMsg()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return describeError(err)
		}
		if filter.match(msg) {
			printMessage(w, msg)
		}
	}
}

func printStats(w io.Writer, collector metrics.CodecCollector) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return err
	}
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func newDecodeCmd() *cobra.Command {
	var (
		file     string
		peer     string
		stats    bool
		prefixes []string
	)
	decodeCmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [<hex>...]", cmdDecode),
		Short: "decode BGP messages given in hex or read from a file",
		Args: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) == 0 {
				return fmt.Errorf("usage: pabgp %s [<hex>...] | --file <path>", cmdDecode)
			}
			if file != "" && len(args) > 0 {
				return fmt.Errorf("hex arguments can't be used with --file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := newPrefixFilter(prefixes)
			if err != nil {
				return err
			}
			collector := metrics.NewCodecCollector()
			codec := stream.NewCodec(options,
				stream.LoggerOption(logger),
				stream.ObserverOption(collector.Observer(peer)),
				stream.NameOption(peer))

			switch {
			case file == "-":
				err = decodeStream(cmd.OutOrStdout(), codec, filter, cmd.InOrStdin())
			case file != "":
				f, ferr := os.Open(file)
				if ferr != nil {
					return errors.Wrapf(ferr, "failed to open %s", file)
				}
				defer f.Close()
				err = decodeStream(cmd.OutOrStdout(), codec, filter, f)
			default:
				err = decodeHex(cmd.OutOrStdout(), codec, filter, args)
			}
			if err != nil {
				logger.Debug("decode stopped", log.Fields{
					"Topic": "Decode",
					"Key":   peer,
					"Error": err,
				})
			}
			if stats {
				if serr := printStats(cmd.OutOrStdout(), collector); serr != nil && err == nil {
					err = serr
				}
			}
			return err
		},
	}
	decodeCmd.Flags().StringVarP(&file, "file", "i", "", "read a raw message stream from the file, - for stdin")
	decodeCmd.Flags().StringVarP(&peer, "peer", "", "", "peer name used in logs and statistics")
	decodeCmd.Flags().StringSliceVarP(&prefixes, "prefix", "p", nil, "only print UPDATE messages with routes covered by these prefixes")
	decodeCmd.Flags().BoolVarP(&stats, "stats", "s", false, "print codec statistics after decoding")
	return decodeCmd
}
