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

	"github.com/spf13/viper"

	"github.com/notargets/spmat/InputParameters"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/gallery"
	"github.com/notargets/spmat/matrix"
	"github.com/notargets/spmat/reorder"
	"github.com/notargets/spmat/vector"
)

const exampleBenchFile = `
########################################
Title: "Test Case"
Device:
  Mode: queue    # host, queue or occa
  Threads: 4
Formats: [COO, CSR, DIA, ELL, HYB]
Stencil: laplace2d # laplace1d, banded, random
Size: 64
Iterations: 10
Scalar: 1.
Reorder: rcm     # none, partition
########################################
`

func readBenchFile(fileName string) (bp *InputParameters.BenchParameters) {
	var (
		data []byte
		err  error
	)
	bp = &InputParameters.BenchParameters{}
	if len(fileName) == 0 {
		_ = bp.Parse(nil)
		bp.Device = deviceConfig()
		bp.FillLimit = viper.GetFloat64("dia.fillLimit")
		return
	}
	if data, err = os.ReadFile(fileName); err != nil {
		fmt.Printf("error: %s\nExample File:%s\n", err.Error(), exampleBenchFile)
		os.Exit(1)
	}
	if err = bp.Parse(data); err != nil {
		panic(err)
	}
	if bp.Device.Mode == "" {
		bp.Device = deviceConfig()
	}
	if bp.FillLimit == 0 {
		bp.FillLimit = viper.GetFloat64("dia.fillLimit")
	}
	return
}

// buildHostMatrix generates the stencil on the host and applies the
// requested reordering.
func buildHostMatrix(host device.Device, bp *InputParameters.BenchParameters) (*matrix.COO[float64], error) {
	var (
		m   *matrix.COO[float64]
		err error
	)
	switch bp.Stencil {
	case "laplace1d":
		m, err = gallery.Laplace1D[float64](host, bp.Size)
	case "laplace2d":
		m, err = gallery.Laplace2D[float64](host, bp.Size, bp.Size)
	case "banded":
		m, err = gallery.Banded[float64](host, bp.Size, max(bp.Bandwidth, 1))
	case "random":
		density := bp.Density
		if density == 0 {
			density = 0.01
		}
		m, err = gallery.Random[float64](host, bp.Size, bp.Size, density, bp.Seed)
	default:
		return nil, fmt.Errorf("unknown stencil %q", bp.Stencil)
	}
	if err != nil {
		return nil, err
	}
	var p []int32
	switch bp.Reorder {
	case "", "none":
		return m, nil
	case "rcm":
		var g *reorder.Graph
		if g, err = reorder.GraphOf(m); err != nil {
			break
		}
		p = reorder.RCM(g)
		fmt.Printf("RCM bandwidth %d -> %d\n", reorder.Bandwidth(g, nil), reorder.Bandwidth(g, p))
	case "partition":
		var g *reorder.Graph
		if g, err = reorder.GraphOf(m); err != nil {
			break
		}
		p, _, err = reorder.Partition(g, reorder.DefaultPartitionConfig(bp.Partitions))
	default:
		err = fmt.Errorf("unknown reordering %q", bp.Reorder)
	}
	if err == nil {
		var pv *vector.Vector[int32]
		if pv, err = vector.FromSlice(host, p); err == nil {
			err = m.Permute(pv)
			pv.Clear()
		}
	}
	if err != nil {
		m.Clear()
		return nil, err
	}
	return m, nil
}

// stagePath is the shortest chain of direct conversions from src to dst,
// excluding src.
func stagePath(dst, src matrix.Format) []matrix.Format {
	prev := map[matrix.Format]matrix.Format{src: src}
	queue := []matrix.Format{src}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if f == dst {
			var path []matrix.Format
			for ; f != src; f = prev[f] {
				path = append([]matrix.Format{f}, path...)
			}
			return path
		}
		for _, next := range matrix.Formats {
			if _, seen := prev[next]; !seen && matrix.CanConvert(next, f) {
				prev[next] = f
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// convertStaged re-encodes src as format f on dev, passing through
// intermediate formats when there is no direct conversion.
func convertStaged(f matrix.Format, dev device.Device, src matrix.Matrix[float64], fillLimit float64) (matrix.Matrix[float64], error) {
	path := stagePath(f, src.Format())
	if f == src.Format() {
		path = []matrix.Format{f}
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: no path from %s to %s", matrix.ErrConversionUnsupported, src.Format(), f)
	}
	cur := src
	for _, step := range path {
		next, err := matrix.New[float64](step, dev)
		if err != nil {
			return nil, err
		}
		if dia, ok := next.(*matrix.DIA[float64]); ok {
			dia.FillLimit = fillLimit
		}
		if err = next.ConvertFrom(cur); err != nil {
			if cur != src {
				cur.Clear()
			}
			return nil, err
		}
		if len(path) > 1 {
			fmt.Printf("  staged %s -> %s\n", cur.Format(), step)
		}
		if cur != src {
			cur.Clear()
		}
		cur = next
	}
	return cur, nil
}
