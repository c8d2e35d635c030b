package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/spmat/device"
)

// Parameters obtained from the YAML bench file
type BenchParameters struct {
	Title      string        `yaml:"Title"`
	Device     device.Config `yaml:"Device"`
	Formats    []string      `yaml:"Formats"`
	Stencil    string        `yaml:"Stencil"` // laplace1d, laplace2d, banded, random
	Size       int           `yaml:"Size"`
	Bandwidth  int           `yaml:"Bandwidth"`
	Density    float64       `yaml:"Density"`
	Seed       uint64        `yaml:"Seed"`
	Iterations int           `yaml:"Iterations"`
	Scalar     float64       `yaml:"Scalar"`
	Reorder    string        `yaml:"Reorder"` // none, rcm, partition
	Partitions int32         `yaml:"Partitions"`
	FillLimit  float64       `yaml:"FillLimit"`
}

func (bp *BenchParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, bp); err != nil {
		return err
	}
	bp.setDefaults()
	return nil
}

func (bp *BenchParameters) setDefaults() {
	if len(bp.Formats) == 0 {
		bp.Formats = []string{"COO", "CSR", "DIA", "ELL", "HYB"}
	}
	if bp.Stencil == "" {
		bp.Stencil = "laplace2d"
	}
	if bp.Size == 0 {
		bp.Size = 64
	}
	if bp.Iterations == 0 {
		bp.Iterations = 10
	}
	if bp.Scalar == 0 {
		bp.Scalar = 1
	}
	if bp.Reorder == "" {
		bp.Reorder = "none"
	}
	if bp.Partitions == 0 {
		bp.Partitions = 4
	}
}

func (bp *BenchParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", bp.Title)
	fmt.Printf("[%s]\t\t\t= Device Mode\n", bp.Device.Mode)
	fmt.Printf("[%d]\t\t\t= Device Threads\n", bp.Device.Threads)
	fmt.Printf("[%s]\t\t= Stencil\n", bp.Stencil)
	fmt.Printf("[%d]\t\t\t= Size\n", bp.Size)
	fmt.Printf("[%d]\t\t\t= Iterations\n", bp.Iterations)
	fmt.Printf("%8.5f\t\t= Scalar\n", bp.Scalar)
	fmt.Printf("[%s]\t\t\t= Reorder\n", bp.Reorder)
	formats := append([]string{}, bp.Formats...)
	sort.Strings(formats)
	fmt.Printf("[%s]\t= Formats\n", strings.Join(formats, ", "))
}
