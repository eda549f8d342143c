// Command generate-schema writes the JSON Schema of the DittoHTTP config file,
// for editor completion and validation of config.yaml.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/marmos91/dittohttp/pkg/config"
)

func main() {
	output := flag.String("o", "config.schema.json", `Output file ("-" for stdout)`)
	flag.Parse()

	if *output == "-" {
		if err := writeSchema(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		return
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating schema file: %v\n", err)
		os.Exit(1)
	}
	if err := writeSchema(f); err != nil {
		_ = f.Close()
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", *output)
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		// Property names are the YAML keys, which differ from the Go field names.
		FieldNameTag: "yaml",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "DittoHTTP Configuration"
	schema.Description = "Logging, server, HTTP adapter and key/value store settings for dittohttp"
	return schema
}

func writeSchema(w io.Writer) error {
	data, err := json.MarshalIndent(buildSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
