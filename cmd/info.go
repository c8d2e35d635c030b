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
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
	"github.com/notargets/spmat/utils"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the configured device and kernels",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := deviceConfig()
		dev, err := device.New(cfg)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer dev.Close()
		fmt.Printf("Device:            %s\n", dev.Mode())
		fmt.Printf("Host resident:     %v\n", dev.IsHost())
		fmt.Printf("Kernel threads:    %d (of %d CPUs)\n", dev.Threads(), runtime.NumCPU())
		_, native := dev.(device.NativeRunner)
		fmt.Printf("Native kernels:    %v\n", native)
		if cfg.MemoryLimit > 0 {
			fmt.Printf("Memory limit:      %d bytes\n", cfg.MemoryLimit)
		}
		fmt.Printf("BLAS:              %s\n", utils.BlasImplementation())
		fmt.Printf("DIA fill limit:    %g\n", viper.GetFloat64("dia.fillLimit"))
		fmt.Printf("Formats:           %v\n", matrix.Formats)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
