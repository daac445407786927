// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tombee/lingohub-upload/internal/cli"
	"github.com/tombee/lingohub-upload/internal/commands/auth"
	"github.com/tombee/lingohub-upload/internal/commands/config"
	"github.com/tombee/lingohub-upload/internal/commands/upload"
	versioncmd "github.com/tombee/lingohub-upload/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	rootCmd.AddCommand(upload.NewCommand())
	rootCmd.AddCommand(auth.NewLoginCommand())
	rootCmd.AddCommand(auth.NewLogoutCommand())
	rootCmd.AddCommand(config.NewConfigCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// A GitHub Action invokes the binary without arguments.
	if len(os.Args) == 1 && os.Getenv("GITHUB_ACTIONS") == "true" {
		rootCmd.SetArgs([]string{"upload"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.HandleExitError(err)
	}
}
