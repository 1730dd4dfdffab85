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
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pabgp/pabgp/pkg/log"
	"github.com/pabgp/pabgp/pkg/packet/mrt"
)

// records carry at most one extended BGP message
const mrtMaxRecordLength = 1 << 17

var mrtOpts struct {
	SkipErrors bool
	Prefixes   []string
}

func dumpMrt(w, ew io.Writer, r io.Reader) error {
	filter, err := newPrefixFilter(mrtOpts.Prefixes)
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), mrtMaxRecordLength)
	scanner.Split(mrt.SplitMrt)

	idx := 0
	for scanner.Scan() {
		idx++
		msg, err := mrt.ParseMRTMessage(scanner.Bytes())
		if err != nil {
			err = errors.Wrapf(describeError(err), "record %d", idx)
			if !mrtOpts.SkipErrors {
				return err
			}
			printError(ew, err)
			continue
		}
		if filter != nil {
			if m, ok := msg.Body.(*mrt.BGP4MPMessage); !ok || !filter.match(m.BGPMessage) {
				continue
			}
		}
		if globalOpts.Pretty {
			pretty.Fprintf(w, "%# v\n", msg)
		} else {
			fmt.Fprintln(w, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read MRT records")
	}
	logger.Debug("dumped MRT records", log.Fields{
		"Topic": "Mrt",
		"Count": idx,
	})
	return nil
}

func newMrtCmd() *cobra.Command {
	dumpCmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <path>", cmdDump),
		Short: "print the BGP4MP records of an MRT file, - for stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" {
				return dumpMrt(cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
			}
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %s", err)
			}
			defer file.Close()
			return dumpMrt(cmd.OutOrStdout(), cmd.ErrOrStderr(), file)
		},
	}
	dumpCmd.Flags().StringSliceVarP(&mrtOpts.Prefixes, "prefix", "p", nil, "only print records with routes covered by these prefixes")
	dumpCmd.Flags().BoolVarP(&mrtOpts.SkipErrors, "skip-errors", "", false, "report broken records and keep going")

	mrtCmd := &cobra.Command{
		Use:   cmdMrt,
		Short: "read MRT files",
	}
	mrtCmd.AddCommand(dumpCmd)
	return mrtCmd
}
