package cmd

import (
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"supplyguard/internal/domain/risk"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print JSON Schemas for integration contracts",
}

var schemaEventCmd = &cobra.Command{
	Use:   "event",
	Short: "JSON Schema of the classified event accepted by the pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(cmd, classifiedEventSchema())
	},
}

func classifiedEventSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{DoNotReference: true, RequiredFromJSONSchemaTags: true}
	schema := reflector.Reflect(&risk.ClassifiedEvent{})
	schema.Title = "ClassifiedEvent"
	schema.Description = "Output of the upstream message classifier"
	return schema
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaEventCmd)
}
