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
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tochemey/hydrate/config"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/log"
)

type rootOptions struct {
	configPath string
	backend    string
	path       string
	cfg        *config.Config
	logger     log.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "hydrate",
		Short:         "Inspect an event log and its interest registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.logger != nil {
				return opts.logger.Flush()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "override the backend kind (boltdb|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "override the backend path")

	cmd.AddCommand(newHeadCommand(opts))
	cmd.AddCommand(newReadCommand(opts))
	cmd.AddCommand(newTailCommand(opts))
	cmd.AddCommand(newInterestsCommand(opts))
	return cmd
}

func (o *rootOptions) load() error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if o.backend != "" {
		cfg.Backend.Kind = o.backend
	}
	if o.path != "" {
		cfg.Backend.Path = o.path
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = cfg.Logger(os.Stderr)
	return nil
}

func (o *rootOptions) open(ctx context.Context) (eventlog.Log, error) {
	return o.cfg.OpenLog(ctx)
}

// recordView is the printed form of a record.
type recordView struct {
	GlobalPosition uint64            `json:"globalPosition"`
	StreamName     string            `json:"streamName"`
	StreamPosition uint64            `json:"streamPosition"`
	EventType      string            `json:"eventType"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	RawPayload     []byte            `json:"rawPayload,omitempty"`
	Metadata       eventlog.Metadata `json:"metadata"`
}

func printRecord(w io.Writer, record *eventlog.Record) error {
	view := recordView{
		GlobalPosition: record.GlobalPosition,
		StreamName:     record.StreamName,
		StreamPosition: record.StreamPosition,
		EventType:      record.EventType,
		Metadata:       record.Metadata,
	}
	if json.Valid(record.Payload) {
		view.Payload = record.Payload
	} else {
		view.RawPayload = record.Payload
	}
	return json.NewEncoder(w).Encode(view)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const readTimeout = 30 * time.Second
