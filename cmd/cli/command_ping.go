package main

import (
	"github.com/spf13/cobra"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/diag"
)

func newPingCmd(appRef func() *app) *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "ping [target] [-- tool args...]",
		Short: "Ping a host (default 8.8.8.8)",
		Example: `  netdiag ping
  netdiag ping 192.168.1.1 --params "-n 10"
  netdiag ping dns.google -- -c 2`,
		Args: targetArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, extra := targetAndArgs(cmd, args, params)
			tk := appRef().toolkit
			return appRef().run(cmd.Context(), lib.ToolPing, func() error {
				return tk.RunPing(target, extra)
			})
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "extra tool parameters, split on whitespace")
	return cmd
}

func newTracertCmd(appRef func() *app) *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:     "tracert [target] [-- tool args...]",
		Aliases: []string{"traceroute"},
		Short:   "Trace the route to a host (default 8.8.8.8)",
		Args:    targetArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, extra := targetAndArgs(cmd, args, params)
			tk := appRef().toolkit
			return appRef().run(cmd.Context(), lib.ToolTracert, func() error {
				return tk.RunTracert(target, extra)
			})
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "extra tool parameters, split on whitespace")
	return cmd
}

func newIpconfigCmd(appRef func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ipconfig [-- tool args...]",
		Short: "Show adapter configuration (default /all)",
		Args: func(cmd *cobra.Command, args []string) error {
			positional, _ := splitToolArgs(cmd, args)
			return cobra.NoArgs(cmd, positional)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, extra := splitToolArgs(cmd, args)
			tk := appRef().toolkit
			return appRef().run(cmd.Context(), lib.ToolIpconfig, func() error {
				return tk.RunIpconfig(extra)
			})
		},
	}
	return cmd
}

func targetArgs(cmd *cobra.Command, args []string) error {
	positional, _ := splitToolArgs(cmd, args)
	return cobra.MaximumNArgs(1)(cmd, positional)
}

func targetAndArgs(cmd *cobra.Command, args []string, params string) (string, []string) {
	positional, extra := splitToolArgs(cmd, args)
	target := ""
	if len(positional) > 0 {
		target = positional[0]
	}
	return target, append(diag.SplitParams(params), extra...)
}
