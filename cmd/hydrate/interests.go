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

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/tochemey/hydrate/interest"
)

type interestsView struct {
	StreamName string         `json:"streamName"`
	DependsOn  []string       `json:"dependsOn"`
	Dependants []interest.Ref `json:"dependants"`
	Revision   int64          `json:"revision"`
}

func newInterestsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interests <stream>",
		Short: "Print the streams a stream depends on and the streams depending on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cancel := context.WithTimeout(cmd.Context(), readTimeout)
			defer cancel()

			eventLog, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, eventLog.Close()) }()

			registry, err := interest.NewRegistry(eventLog, interest.WithLogger(opts.logger), interest.WithCache(opts.cfg.CacheOptions()...))
			if err != nil {
				return err
			}

			interested, err := registry.Interested(ctx, args[0])
			if err != nil {
				return err
			}
			concerned, err := registry.Concerned(ctx, args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), interestsView{
				StreamName: args[0],
				DependsOn:  interested.State.Dependencies(),
				Dependants: concerned.State.Dependants(),
				Revision:   interested.Revision,
			})
		},
	}
}
