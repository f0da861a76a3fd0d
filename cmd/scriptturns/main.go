/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command scriptturns turns screenplay text files into a corpus of speech acts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"scriptturns/internal/crash"
)

func main() {
	cc := newCommandContext()
	defer func() {
		if r := recover(); r != nil {
			crash.Report(cc.crashDir(), r)
		}
	}()
	cmd := newRootCommand(cc)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
