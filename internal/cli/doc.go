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

/*
Package cli provides the root command and shared configuration for the
lingohub-upload CLI.

This package creates the Cobra command tree root and handles global concerns
like version information, persistent flags, and error handling. Individual
commands are implemented in the internal/commands subpackages.

# Command Tree

	lingohub-upload
	├── upload        Upload resource files (default when run as an Action)
	├── login         Store the API key in the system keychain
	├── logout        Remove the stored API key
	├── config        Show the effective configuration
	│   ├── show
	│   └── path
	└── version       Show version

# Global Flags

	--verbose, -v     Debug logging
	--quiet, -q       Errors only
	--json            Machine-readable output
	--config          Config file (default: ./.lingohub.yaml, then the per-user file)
	--log-format      text, json or actions

# Exit Codes

	0  success
	1  upload failed (API error, archive error, I/O)
	2  no files matched the patterns
	3  missing or invalid input
*/
package cli
