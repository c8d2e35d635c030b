/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notargets/spmat/matrix"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the format conversion graph",
	Long: `
Lists which formats convert directly into which, and the staging path used by
convert and apply for the pairs that have no direct conversion.`,
	Run: func(cmd *cobra.Command, args []string) {
		printConversionGraph()
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func printConversionGraph() {
	fmt.Printf("%-8s", "dst\\src")
	for _, src := range matrix.Formats {
		fmt.Printf("%6s", src)
	}
	fmt.Println()
	for _, dst := range matrix.Formats {
		fmt.Printf("%-8s", dst)
		for _, src := range matrix.Formats {
			mark := "."
			if matrix.CanConvert(dst, src) {
				mark = "x"
			}
			fmt.Printf("%6s", mark)
		}
		fmt.Println()
	}
	fmt.Println("\nStaged conversions:")
	for _, src := range matrix.Formats {
		for _, dst := range matrix.Formats {
			if matrix.CanConvert(dst, src) {
				continue
			}
			fmt.Printf("  %s\n", formatPath(src, stagePath(dst, src)))
		}
	}
}

func formatPath(src matrix.Format, path []matrix.Format) string {
	names := []string{src.String()}
	for _, f := range path {
		names = append(names, f.String())
	}
	return strings.Join(names, " -> ")
}
