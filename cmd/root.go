/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"lumenlang.dev/runtime/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lumen-runtime",
	Short: "Interactive execution runtime for the Lumen language server",
	Long: `Hosts execution contexts for a connected graphical front-end: stacks of
in-flight invocations, per-expression value caches, live visualizations, and
an incrementally maintained suggestions database.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// expandPath expands ~, handles relative and absolute paths
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = filepath.Join(home, path[2:])
		}
	}
	return filepath.Abs(path)
}

func initConfig() {
	cfgFile := viper.GetString("configFile")
	projectDir := viper.GetString("projectDir")
	if projectDir == "" {
		cwd, err := os.Getwd()
		cobra.CheckErr(err)
		projectDir = cwd
	} else {
		abs, err := expandPath(projectDir)
		if err != nil {
			pterm.Fatal.Printf("Invalid --project-dir: %v", err)
		}
		projectDir = abs
	}
	viper.Set("projectDir", projectDir)

	if viper.GetBool("verbose") {
		pterm.EnableDebugMessages()
		logging.SetDebugEnabled(true)
	}
	if viper.GetBool("quiet") {
		logging.SetQuietEnabled(true)
	}

	if cfgFile != "" {
		expanded, err := expandPath(cfgFile)
		cobra.CheckErr(err)
		viper.SetConfigFile(expanded)
	} else {
		viper.AddConfigPath(filepath.Join(projectDir, ".config"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("lumen-runtime")
	}
	if err := viper.ReadInConfig(); err == nil {
		pterm.Debug.Println("Using config file: ", viper.ConfigFileUsed())
	}

	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "config file (default is $CWD/.config/lumen-runtime.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "Path to project directory (default: current working directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress info and debug output")
	viper.BindPFlag("configFile", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("projectDir", rootCmd.PersistentFlags().Lookup("project-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}
