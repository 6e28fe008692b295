// =============================================================================
// SEPA Export - List Command
// =============================================================================
//
// Defines the 'list' command: shows the SEPA files previously generated,
// most recent first, with their payment back-references.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finbatch/sepa-export/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List previously generated SEPA files",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()

		artifacts, err := st.ListArtifacts(cmd.Context())
		if err != nil {
			return err
		}
		if len(artifacts) == 0 {
			fmt.Println("No SEPA files generated yet.")
			return nil
		}
		for _, a := range artifacts {
			fmt.Printf("%-35s  %s  %d payments  %d bytes\n",
				a.Name, a.CreatedAt.Format("2006-01-02 15:04:05"), len(a.PaymentIDs), len(a.XML))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
