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
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newReadCommand(opts *rootOptions) *cobra.Command {
	var (
		from  uint64
		limit int
	)

	cmd := &cobra.Command{
		Use:   "read <stream>",
		Short: "Print the events of a stream, one JSON object per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cancel := context.WithTimeout(cmd.Context(), readTimeout)
			defer cancel()

			eventLog, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, eventLog.Close()) }()

			cursor, err := eventLog.ReadStream(ctx, args[0], from)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, cursor.Close()) }()

			for printed := 0; limit <= 0 || printed < limit; printed++ {
				record, err := cursor.Next(ctx)
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := printRecord(cmd.OutOrStdout(), record); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "first stream position to print")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events to print, 0 for all")
	return cmd
}
