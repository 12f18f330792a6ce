// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

func newTailCommand(opts *rootOptions) *cobra.Command {
	var (
		fromStart bool
		after     int64
		swimlanes []string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the log and print every new event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eventLog, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, eventLog.Close()) }()

			var from eventlog.Position = eventlog.End{}
			switch {
			case fromStart:
				from = eventlog.Start{}
			case after >= 0:
				from = eventlog.After{Position: uint64(after)}
			}

			filter := make([]identity.Swimlane, 0, len(swimlanes))
			for _, swimlane := range swimlanes {
				filter = append(filter, identity.Swimlane(swimlane))
			}

			sub, err := eventLog.SubscribeAll(ctx, from, filter...)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, sub.Close()) }()

			for printed := 0; limit <= 0 || printed < limit; {
				item, err := sub.Next(ctx)
				switch {
				case errors.Is(err, context.Canceled):
					return nil
				case err != nil:
					return err
				}
				switch item := item.(type) {
				case eventlog.ReadingStarted:
					opts.logger.Infof("tailing from %v", from)
				case eventlog.EventAppeared:
					if err := printRecord(cmd.OutOrStdout(), item.Record); err != nil {
						return err
					}
					printed++
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", false, "replay the whole log before following it")
	cmd.Flags().Int64Var(&after, "after", -1, "start after this global position")
	cmd.Flags().StringSliceVar(&swimlanes, "swimlane", nil, "only print events of these swimlanes")
	cmd.Flags().IntVar(&limit, "limit", 0, "exit after printing this many events, 0 to follow forever")
	return cmd
}
