// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Command gen-schema generates the Identity API response JSON Schema files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
)

func main() {
	outDir := flag.String("out", "schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	for _, name := range identity.SchemaNames() {
		schema, err := identity.GenerateSchema(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema %s: %v\n", name, err)
			os.Exit(1)
		}

		outPath := filepath.Join(*outDir, name+".schema.json")
		if err := os.WriteFile(outPath, schema, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
}
