// =============================================================================
// SEPA Export - Main Entry Point
// =============================================================================
//
// Generates ISO 20022 pain.001.001.03 credit transfer files from posted
// vendor payments. Command execution is delegated to the cmd package.
//
// USAGE:
//   sepa-export export --ids 1,2,3   - Export the selected payments
//   sepa-export list                 - List generated files
//   sepa-export validate <file>      - Validate an XML file against the schema
//   sepa-export version              - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : core business logic (not for external import)
//   - pkg/        : shared utilities
//   - schemas/    : ISO 20022 XSD
//   - templates/  : XML message template
//
// =============================================================================

package main

import (
	"github.com/finbatch/sepa-export/cmd"
)

func main() {
	cmd.Execute()
}
