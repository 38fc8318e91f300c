package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCommand(st *state) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled scripture corpus",
		Long:  "Ingests every file listed in the seed manifest. An already populated\nknowledge base is left alone unless --force is given, which clears it first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), st.cfg, st.logger)
			if err != nil {
				return err
			}
			defer a.close()

			seeder, err := a.newSeeder()
			if err != nil {
				return err
			}
			report, err := seeder.Seed(cmd.Context(), force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.Skipped {
				fmt.Fprintln(out, "Knowledge base already populated; use --force to reload.")
				return nil
			}
			fmt.Fprintf(out, "Seeded %d chunks from %d files\n", report.Chunks, report.Files)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "clear the knowledge base before seeding")
	return cmd
}
