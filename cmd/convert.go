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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/notargets/spmat/InputParameters"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a test matrix between formats",
	Long: `
Builds the test matrix described by the bench file, encodes it on the host in
the --from format and converts it into the --to format on the selected
device. Formats without a direct conversion are staged through COO or CSR.

spmat convert --from CSR --to DIA -s laplace2d -n 32`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			benchFile, _ = cmd.Flags().GetString("benchFile")
			from, _      = cmd.Flags().GetString("from")
			to, _        = cmd.Flags().GetString("to")
		)
		bp := readBenchFile(benchFile)
		overrideBench(cmd, bp)
		src, err := matrix.ParseFormat(from)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		dst, err := matrix.ParseFormat(to)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		host := device.NewHost(device.Config{Threads: bp.Device.Threads})
		defer host.Close()
		dev, err := device.New(bp.Device)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer dev.Close()
		if err = runConvert(src, dst, host, dev, bp); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringP("benchFile", "I", "", "YAML file describing the test matrix")
	convertCmd.Flags().StringP("stencil", "s", "", "test matrix: laplace1d, laplace2d, banded or random")
	convertCmd.Flags().IntP("size", "n", 0, "test matrix size parameter")
	convertCmd.Flags().String("reorder", "", "row ordering: none, rcm or partition")
	convertCmd.Flags().String("from", "CSR", "source format, encoded on the host")
	convertCmd.Flags().String("to", "ELL", "destination format, encoded on the device")
}

func runConvert(from, to matrix.Format, host, dev device.Device, bp *InputParameters.BenchParameters) error {
	coo, err := buildHostMatrix(host, bp)
	if err != nil {
		return err
	}
	defer coo.Clear()
	src, err := convertStaged(from, host, coo, bp.FillLimit)
	if err != nil {
		return err
	}
	defer src.Clear()
	fmt.Println("source:", src.Info())

	start := time.Now()
	dst, err := convertStaged(to, dev, src, bp.FillLimit)
	if err != nil {
		return err
	}
	defer dst.Clear()
	if err = dev.Finish(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Println("result:", dst.Info())
	if err = dst.Check(); err != nil {
		return err
	}
	if dia, ok := dst.(*matrix.DIA[float64]); ok {
		fill := float64(dia.NNZ()) / float64(max(coo.NNZ(), 1))
		fmt.Printf("DIA diagonals %d, fill ratio %.2f\n", dia.NumDiag(), fill)
	}
	fmt.Printf("converted %s -> %s in %v\n", from, to, elapsed)
	return nil
}
