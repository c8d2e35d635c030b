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
	"math"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/spmat/InputParameters"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
	"github.com/notargets/spmat/vector"
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Time the sparse matrix-vector product in each format",
	Long: `
Generates a test matrix on the host, converts it into each requested format,
copies it to the selected device and times repeated Apply calls. Every result
is checked against a host CSR reference product.

spmat apply -I bench.yaml --device queue --threads 8`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("apply called")
		var (
			benchFile, _ = cmd.Flags().GetString("benchFile")
			prof, _      = cmd.Flags().GetString("profile")
			counters, _  = cmd.Flags().GetBool("counters")
		)
		bp := readBenchFile(benchFile)
		overrideBench(cmd, bp)
		bp.Print()
		switch prof {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
		default:
			fmt.Printf("unknown profile mode %q\n", prof)
			os.Exit(1)
		}
		if err := runApply(bp, counters); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringP("benchFile", "I", "", "YAML file describing the benchmark")
	applyCmd.Flags().StringP("stencil", "s", "", "test matrix: laplace1d, laplace2d, banded or random")
	applyCmd.Flags().IntP("size", "n", 0, "test matrix size parameter")
	applyCmd.Flags().StringSliceP("format", "f", nil, "formats to benchmark")
	applyCmd.Flags().Int("iterations", 0, "timed Apply calls per format")
	applyCmd.Flags().String("reorder", "", "row ordering: none, rcm or partition")
	applyCmd.Flags().String("profile", "", "write a pprof profile: cpu or mem")
	applyCmd.Flags().Bool("counters", false, "count CPU instructions of the timed loop")
}

// overrideBench applies command line flags on top of the bench file.
func overrideBench(cmd *cobra.Command, bp *InputParameters.BenchParameters) {
	flags := cmd.Flags()
	if flags.Changed("stencil") {
		bp.Stencil, _ = flags.GetString("stencil")
	}
	if flags.Changed("size") {
		bp.Size, _ = flags.GetInt("size")
	}
	if flags.Changed("format") {
		bp.Formats, _ = flags.GetStringSlice("format")
	}
	if flags.Changed("iterations") {
		bp.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("reorder") {
		bp.Reorder, _ = flags.GetString("reorder")
	}
}

type applyResult struct {
	format    matrix.Format
	nnz       int
	elapsed   time.Duration
	instr     uint64
	maxErr    float64
	addPassed bool
}

func runApply(bp *InputParameters.BenchParameters, counters bool) error {
	host := device.NewHost(device.Config{Threads: bp.Device.Threads})
	defer host.Close()
	dev, err := device.New(bp.Device)
	if err != nil {
		return err
	}
	defer dev.Close()

	src, err := buildHostMatrix(host, bp)
	if err != nil {
		return err
	}
	defer src.Clear()
	fmt.Println(src.Info())

	// Reference product from the host CSR image.
	ref, err := convertStaged(matrix.FormatCSR, host, src, bp.FillLimit)
	if err != nil {
		return err
	}
	sc, err := matrix.ToSparseCSR(ref.(*matrix.CSR[float64]))
	ref.Clear()
	if err != nil {
		return err
	}
	xs := make([]float64, src.Ncol())
	for i := range xs {
		xs[i] = 1 + float64(i%7)/7
	}
	want := matrix.ReferenceApply(sc, xs)

	x, err := vector.FromSlice(dev, xs)
	if err != nil {
		return err
	}
	defer x.Clear()
	y := vector.New[float64](dev)
	defer y.Clear()

	var results []applyResult
	for _, name := range bp.Formats {
		f, err := matrix.ParseFormat(name)
		if err != nil {
			return err
		}
		res, err := benchFormat(f, dev, host, src, x, y, want, bp, counters)
		if err != nil {
			fmt.Printf("%s: %v\n", f, err)
			continue
		}
		results = append(results, res)
	}
	printResults(results, bp.Iterations, counters)
	return nil
}

func benchFormat(f matrix.Format, dev, host device.Device, src *matrix.COO[float64],
	x, y *vector.Vector[float64], want []float64,
	bp *InputParameters.BenchParameters, counters bool) (res applyResult, err error) {
	res.format = f
	staged, err := convertStaged(f, host, src, bp.FillLimit)
	if err != nil {
		return
	}
	defer staged.Clear()
	m, err := matrix.New[float64](f, dev)
	if err != nil {
		return
	}
	defer m.Clear()
	if err = m.CopyFromHost(staged); err != nil {
		return
	}
	res.nnz = m.NNZ()

	loop := func() error {
		for i := 0; i < bp.Iterations; i++ {
			if err := m.Apply(x, y); err != nil {
				return err
			}
		}
		return dev.Finish()
	}
	start := time.Now()
	if counters {
		res.instr, err = countInstructions(loop)
	} else {
		err = loop()
	}
	if err != nil {
		return
	}
	res.elapsed = time.Since(start)

	got, err := y.Data()
	if err != nil {
		return
	}
	res.maxErr = maxAbsDiff(got, want)

	// out += scalar·A·x starting from out = A·x
	if err = m.ApplyAdd(x, bp.Scalar, y); err != nil {
		return
	}
	if got, err = y.Data(); err != nil {
		return
	}
	scaled := make([]float64, len(want))
	floats.AddScaled(scaled, 1+bp.Scalar, want)
	res.addPassed = floats.EqualApprox(got, scaled, 1e-10*max(1, floats.Norm(scaled, 2)))
	return
}

func maxAbsDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		return -1
	}
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, math.Inf(1))
}

func printResults(results []applyResult, iterations int, counters bool) {
	fmt.Printf("%-6s %10s %14s %12s %8s", "Format", "NNZ", "per Apply", "max error", "ApplyAdd")
	if counters {
		fmt.Printf(" %14s", "instructions")
	}
	fmt.Println()
	for _, r := range results {
		per := r.elapsed / time.Duration(max(iterations, 1))
		fmt.Printf("%-6s %10d %14v %12.3g %8v", r.format, r.nnz, per, r.maxErr, r.addPassed)
		if counters {
			fmt.Printf(" %14d", r.instr)
		}
		fmt.Println()
	}
}
