package main

import (
	"github.com/spf13/cobra"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/diag"
)

func newRouteCmd(appRef func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show or change the routing table",
	}

	runRoute := func(cmd *cobra.Command, sub diag.RouteSubcommand, fields diag.RouteFields) error {
		tk := appRef().toolkit
		return appRef().run(cmd.Context(), lib.ToolRoute, func() error {
			return tk.RunRoute(sub, fields)
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the routing table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, diag.RoutePrint, diag.RouteFields{})
		},
	})

	for _, sub := range []diag.RouteSubcommand{diag.RouteAdd, diag.RouteChange} {
		var fields diag.RouteFields
		c := &cobra.Command{
			Use:   string(sub) + " <destination> --mask <mask> --gateway <gateway>",
			Short: string(sub) + " a route",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f := fields
				f.Destination = args[0]
				return runRoute(cmd, sub, f)
			},
		}
		c.Flags().StringVar(&fields.Mask, "mask", "", "network mask")
		c.Flags().StringVar(&fields.Gateway, "gateway", "", "gateway address")
		c.Flags().StringVar(&fields.Metric, "metric", "", "route metric (optional)")
		c.Flags().StringVar(&fields.Interface, "if", "", "interface index or address (optional)")
		_ = c.MarkFlagRequired("mask")
		_ = c.MarkFlagRequired("gateway")
		cmd.AddCommand(c)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <destination>",
		Short: "Delete a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, diag.RouteDelete, diag.RouteFields{Destination: args[0]})
		},
	})

	return cmd
}
