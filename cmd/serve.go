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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/evaluator/evaltest"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/platform"
	"lumenlang.dev/runtime/server"
)

// backendEvaluator is the evaluator the serve command drives. Embedders link
// the Lumen interpreter in through SetEvaluator before Execute; without one,
// serve falls back to the scripted development evaluator.
var backendEvaluator evaluator.Evaluator

// SetEvaluator injects the language evaluator used by serve.
func SetEvaluator(eval evaluator.Evaluator) {
	backendEvaluator = eval
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive execution runtime",
	Long: `Starts the runtime protocol server. Front-ends connect over a websocket:
text frames carry commands and notifications, binary frames carry
visualization payloads. Liveness is exposed at /healthz and prometheus
metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eval := backendEvaluator
		if eval == nil {
			logging.Warning("no evaluator linked in; using the scripted development evaluator")
			eval = &evaltest.Scripted{}
		}

		runtime := server.NewRuntime(eval)
		defer runtime.Shutdown()

		if viper.GetBool("watch") {
			watcher, err := platform.NewFSNotifyFileWatcher()
			if err != nil {
				return fmt.Errorf("failed to create file watcher: %w", err)
			}
			projectDir := viper.GetString("projectDir")
			sourceDir := filepath.Join(projectDir, "src")
			if err := watcher.Add(sourceDir); err != nil {
				logging.Warning("watch: cannot watch %s: %v", sourceDir, err)
			}
			runtime.StartWatching(watcher, dirResolver{root: projectDir})
			logging.Info("watching %s for source changes", sourceDir)
		}

		addr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
		srv := server.NewServer(runtime, addr)

		// Serve until interrupted, then drain.
		errs := make(chan error, 1)
		go func() { errs <- srv.ListenAndServe() }()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errs:
			return err
		case sig := <-signals:
			logging.Info("received %s, shutting down", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Close(ctx)
		}
	},
}

// dirResolver maps files under the project source tree to dotted module
// names: src/Main.lum becomes Main, src/Data/Vector.lum becomes
// Data.Vector.
type dirResolver struct {
	root string
}

func (r dirResolver) ResolveModule(path string) (string, bool) {
	rel, err := filepath.Rel(filepath.Join(r.root, "src"), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	ext := filepath.Ext(rel)
	if ext != ".lum" {
		return "", false
	}
	module := strings.TrimSuffix(rel, ext)
	return strings.ReplaceAll(module, string(filepath.Separator), "."), true
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "127.0.0.1", "Interface to listen on")
	serveCmd.Flags().IntP("port", "p", 30615, "Port to listen on")
	serveCmd.Flags().Bool("watch", false, "Watch project sources and invalidate edited modules")
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("watch", serveCmd.Flags().Lookup("watch"))
}
