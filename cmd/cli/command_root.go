package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:   "netdiag",
		Short: "Run network diagnostic tools and parse their output",
		Long: `netdiag runs ping, tracert, ipconfig, route and arp as child processes,
streams their output and turns it into tables of replies, routes, adapters and
ARP entries. Press Ctrl+C to cancel a running tool.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(opts, cmd.Flags(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default ./netdiag.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	flags.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while running")

	appRef := func() *app { return a }
	root.AddCommand(newPingCmd(appRef))
	root.AddCommand(newTracertCmd(appRef))
	root.AddCommand(newIpconfigCmd(appRef))
	root.AddCommand(newRouteCmd(appRef))
	root.AddCommand(newArpCmd(appRef))

	return root
}

// splitToolArgs separates positional arguments from the ones after "--",
// which are passed to the tool unchanged.
func splitToolArgs(cmd *cobra.Command, args []string) (positional, passthrough []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}
