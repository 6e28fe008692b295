// =============================================================================
// SEPA Export - Validate Command
// =============================================================================
//
// Defines the 'validate' command: re-checks an existing XML file against
// the canonical message schema. Useful for files edited by hand or
// received from elsewhere; the export command itself always validates
// before committing.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finbatch/sepa-export/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.xml>",
	Short: "Validate an XML file against the pain.001.001.03 schema",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sch, err := schema.Load(cfg.SchemaPath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		err = schema.NewValidator(sch).Validate(data)
		var schemaErr *schema.SchemaError
		switch {
		case err == nil:
			fmt.Printf("%s: valid\n", args[0])
			return nil
		case errors.As(err, &schemaErr):
			fmt.Printf("%s: %d violation(s)\n", args[0], len(schemaErr.Violations))
			for _, v := range schemaErr.Violations {
				fmt.Printf("  %s\n", v)
			}
			return errors.New("validation failed")
		default:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
