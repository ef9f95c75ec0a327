package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/clientengine/engine"
)

func newDescribeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the engine configuration resolved from file and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Validation and TLS material loading only; no executor is started.
			s := root.settings
			s.Client.MaxConcurrent = 0
			cfg, err := s.ToClientConfiguration()
			if err != nil {
				return err
			}
			d := engine.NewComponent("engine", nil, cfg).Describe()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %s\n", d.Name, d.Type, d.Details)
			fmt.Fprintf(out, "connection_timeout_ms=%d read_timeout_ms=%d connection_ttl_ms=%d\n",
				cfg.ConnectionTimeout, cfg.ReadTimeout, cfg.ConnectionTTL)
			if root.settings.Client.MaxConcurrent > 0 {
				fmt.Fprintf(out, "executor: pool max_concurrent=%d queue_size=%d\n",
					root.settings.Client.MaxConcurrent, root.settings.Client.QueueSize)
			}
			if len(cfg.SNIHostNames) > 0 {
				fmt.Fprintf(out, "sni_host_names=%v\n", cfg.SNIHostNames)
			}
			return nil
		},
	}
}
