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
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spmat",
	Short: "Sparse matrix formats on host and accelerator devices",
	Long: `
Builds sparse test matrices, converts them between the COO, CSR, DIA, ELL and
HYB encodings, moves them between host and accelerator devices and measures
the matrix-vector product.

spmat apply -I bench.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.spmat.yaml)")
	rootCmd.PersistentFlags().String("device", "host", "device mode: host, queue or occa")
	rootCmd.PersistentFlags().Int("threads", 0, "parallel degree of host kernels, 0 for all CPUs")
	rootCmd.PersistentFlags().Int64("memoryLimit", 0, "device memory limit in bytes, 0 for unlimited")
	rootCmd.PersistentFlags().Int("queueDepth", 0, "queue device command buffer depth")
	rootCmd.PersistentFlags().Float64("fillLimit", matrix.DefaultDIAFillLimit, "largest DIA slots per entry ratio accepted by conversion")
	for key, flag := range map[string]string{
		"device.mode":        "device",
		"device.threads":     "threads",
		"device.memoryLimit": "memoryLimit",
		"device.queueDepth":  "queueDepth",
		"dia.fillLimit":      "fillLimit",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".spmat")
	}
	viper.SetEnvPrefix("spmat")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// deviceConfig assembles the device selection from flags, config file and
// environment.
func deviceConfig() device.Config {
	return device.Config{
		Mode:        viper.GetString("device.mode"),
		Threads:     viper.GetInt("device.threads"),
		MemoryLimit: viper.GetInt64("device.memoryLimit"),
		QueueDepth:  viper.GetInt("device.queueDepth"),
	}
}
