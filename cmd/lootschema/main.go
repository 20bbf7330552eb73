package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/invopop/jsonschema"

	"project-hunter/server/internal/items"
	"project-hunter/server/internal/loot"
	"project-hunter/server/internal/lootdb"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the registry and table schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for name, schema := range buildSchemas() {
		if err := writeSchema(filepath.Join(outDir, name), schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	// Documents are YAML: keys are the snake_case forms of the json names and
	// every key may be omitted in favour of the decoder defaults.
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		KeyNamer:                   yamlKey,
		Mapper:                     enumSchema,
	}

	registry := reflector.Reflect(new(lootdb.RegistryDocument))
	registry.Title = "Project Hunter Loot Sources"
	registry.Description = "Validates the loot source registry in data/loot/sources.yaml"

	tables := reflector.Reflect(new(lootdb.TableDocument))
	tables.Title = "Project Hunter Loot Tables"
	tables.Description = "Validates loot table documents under data/loot/tables/"

	return map[string]*jsonschema.Schema{
		"sources.schema.json": registry,
		"tables.schema.json":  tables,
	}
}

// yamlKey turns a json field name such as "scaleWithPlayers" into the yaml key
// "scale_with_players".
func yamlKey(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// enumSchema renders the text-marshalled enums as their accepted names.
func enumSchema(t reflect.Type) *jsonschema.Schema {
	var names []any
	switch t {
	case reflect.TypeOf(loot.Policy(0)):
		for p := loot.PolicyWeighted; p <= loot.PolicyAll; p++ {
			names = append(names, p.String())
		}
	case reflect.TypeOf(loot.SourceRarity(0)):
		for r := loot.SourceTrash; r <= loot.SourceBoss; r++ {
			names = append(names, r.String())
		}
	case reflect.TypeOf(items.Rarity(0)):
		for r := items.RarityCommon; r <= items.RarityTop; r++ {
			names = append(names, r.String())
		}
	default:
		return nil
	}
	return &jsonschema.Schema{Type: "string", Enum: names}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
