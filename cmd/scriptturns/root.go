/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scriptturns",
		Short:         "Segment screenplays into attributed dialogue turns",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cc.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path (YAML or TOML)")

	rootCmd.AddCommand(newParseCommand(cc))
	rootCmd.AddCommand(newClassifyCommand(cc))
	rootCmd.AddCommand(newBatchCommand(cc))
	rootCmd.AddCommand(newSampleCommand(cc))
	rootCmd.AddCommand(newLabelsCommand(cc))
	rootCmd.AddCommand(newRunsCommand(cc))
	rootCmd.AddCommand(newSearchCommand(cc))
	rootCmd.AddCommand(newPublishCommand(cc))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newConfigCommand(cc))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}
