package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gateflow/gateflow/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		output  string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Emit the OpenAPI 3.1 document for the REST API",
		Long:  "Generate the OpenAPI description of the GateFlow API, to stdout or a file.",
		Example: `  gateflow openapi
  gateflow openapi -o openapi.json
  gateflow openapi --base-url https://api.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(output, baseURL)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to embed in the document")

	return cmd
}

func runOpenAPI(output, baseURL string) error {
	if baseURL == "" {
		baseURL = viper.GetString("server.base_url")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	doc := openapi.Generate(baseURL, versionString())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Printf("Wrote OpenAPI document to %s\n", output)
	return nil
}
