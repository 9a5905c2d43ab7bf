package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/startup"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the registered services",
	Long: `Build the service container from the configuration and print every
registration with its lifetime and implementation, in registration order.`,
	RunE: runServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	s := startup.New(cfg, zerolog.Nop())
	if err := s.ConfigureServices(cmd.Context(), di.NewServiceCollection()); err != nil {
		return err
	}
	defer func() { _ = s.Container().Shutdown() }()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLIFETIME\tINSTANCE")
	for _, d := range s.Registry().Descriptors() {
		impl := d.ImplementationType
		if impl == "" {
			impl = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ServiceType, d.Lifetime, impl)
	}
	return w.Flush()
}
