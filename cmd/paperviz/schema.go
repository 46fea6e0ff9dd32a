// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperviz/internal/schema"
	"github.com/pdiddy/paperviz/pkg/types"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [kind]",
	Short: "Print the JSON Schema the model must follow for a kind",
	Long: `Schema prints the structured-output contract for one output kind, or
lists every kind with its required fields when no kind is given. Analysis
is free text and has no schema.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, kind := range types.AllKinds {
				sch, err := schema.Lookup(kind)
				if err != nil {
					return err
				}
				if !sch.Structured() {
					fmt.Printf("%-14s free text\n", kind.Flag())
					continue
				}
				fmt.Printf("%-14s %v\n", kind.Flag(), sch.Required())
			}
			return nil
		}

		kind, err := types.ParseOutputKind(args[0])
		if err != nil {
			return err
		}
		sch, err := schema.Lookup(kind)
		if err != nil {
			return err
		}
		if !sch.Structured() {
			fmt.Fprintf(os.Stderr, "%s is free text; it has no schema\n", kind.Flag())
			return nil
		}
		data, err := sch.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
