package main

import (
	"github.com/spf13/cobra"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

func newArpCmd(appRef func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arp",
		Short: "Show or change the ARP table",
	}

	show := &cobra.Command{
		Use:   "show [-- tool args...]",
		Short: "List ARP entries (default -a)",
		Args: func(cmd *cobra.Command, args []string) error {
			positional, _ := splitToolArgs(cmd, args)
			return cobra.NoArgs(cmd, positional)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, extra := splitToolArgs(cmd, args)
			tk := appRef().toolkit
			return appRef().run(cmd.Context(), lib.ToolArp, func() error {
				return tk.RunArp(extra)
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <ip> <mac>",
		Short: "Add a static ARP entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk := appRef().toolkit
			return appRef().run(cmd.Context(), lib.ToolArp, func() error {
				return tk.AddArpEntry(args[0], args[1])
			})
		},
	}

	del := &cobra.Command{
		Use:     "delete <ip>",
		Aliases: []string{"remove"},
		Short:   "Delete an ARP entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk := appRef().toolkit
			return appRef().run(cmd.Context(), lib.ToolArp, func() error {
				return tk.RemoveArpEntry(args[0])
			})
		},
	}

	cmd.AddCommand(show, add, del)
	return cmd
}
