/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scriptturns/internal/backend"
	"scriptturns/internal/config"
	"scriptturns/internal/storage"
)

func openIndex(cfg config.AppConfig) (*storage.Index, error) {
	ix, err := storage.Open(cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", cfg.IndexPath(), err)
	}
	return ix, nil
}

// resolveRun returns the run with id, or the latest run when id is empty.
func resolveRun(ctx context.Context, ix *storage.Index, id string) (storage.Run, error) {
	if id == "" {
		return ix.LatestRun(ctx)
	}
	runs, err := ix.Runs(ctx)
	if err != nil {
		return storage.Run{}, err
	}
	for _, r := range runs {
		if r.ID == id || strings.HasPrefix(r.ID, id) {
			return r, nil
		}
	}
	return storage.Run{}, fmt.Errorf("run %q not found", id)
}

func newRunsCommand(cc *commandContext) *cobra.Command {
	var characters bool
	var runID string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List batch runs recorded in the local index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			ix, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer ix.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if characters {
				run, err := resolveRun(ctx, ix, runID)
				if err != nil {
					return err
				}
				counts, err := ix.CharacterCounts(ctx, run.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(counts))
				for _, c := range counts {
					rows = append(rows, []string{c.Character, itoa(c.Count)})
				}
				fmt.Fprintln(out, renderTable([]string{"Character", "Speech acts"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			}
			runs, err := ix.Runs(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID, r.Started.Local().Format(time.DateTime), r.Finished.Sub(r.Started).Round(time.Millisecond).String(),
					itoa(r.Documents), itoa(r.Records), r.App,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Took", "Documents", "Records", "Version"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&characters, "characters", false, "Show speech acts per character instead")
	cmd.Flags().StringVar(&runID, "run", "", "Run id or prefix (default: latest)")
	return cmd
}

func newSearchCommand(cc *commandContext) *cobra.Command {
	var (
		q      storage.SearchQuery
		remote bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over indexed speech acts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				q.Text = args[0]
			}
			var results []storage.SearchResult
			if remote {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout())
				defer cancel()
				pub, err := openBackend(ctx, cfg, cc.password)
				if err != nil {
					return err
				}
				defer pub.Close()
				results, err = pub.Search(ctx, q)
				if err != nil {
					return err
				}
			} else {
				ix, err := openIndex(cfg)
				if err != nil {
					return err
				}
				defer ix.Close()
				results, err = ix.Search(cmd.Context(), q)
				if err != nil {
					return err
				}
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				text := r.Snippet
				if text == "" {
					text = r.Text
				}
				rows = append(rows, []string{r.Document, r.CharacterID(), truncate(text, width)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Document", "Speech act", "Text"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Character, "character", "", "Only this character")
	cmd.Flags().StringVar(&q.Document, "document", "", "Only this document")
	cmd.Flags().StringVar(&q.RunID, "run", "", "Run id (default: latest locally, all runs remotely)")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 20, "Maximum results")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Skip this many results")
	cmd.Flags().BoolVar(&remote, "remote", false, "Search the shared database instead of the local index")
	cmd.Flags().IntVar(&width, "width", 80, "Truncate text to this many characters (0 keeps everything)")
	return cmd
}

func openBackend(ctx context.Context, cfg config.AppConfig, password string) (*backend.Publisher, error) {
	if strings.TrimSpace(cfg.Backend.DSN) == "" {
		return nil, errors.New("backend.dsn is not configured (set it or export " + config.EnvBackendDSN + ")")
	}
	dsn, err := backend.WithPassword(cfg.Backend.DSN, password)
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, dsn)
}

func newPublishCommand(cc *commandContext) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Copy an indexed run into the shared PostgreSQL database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			ix, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer ix.Close()
			run, err := resolveRun(cmd.Context(), ix, runID)
			if errors.Is(err, storage.ErrNoRuns) {
				return errors.New("nothing to publish: run `scriptturns batch --index` first")
			}
			if err != nil {
				return err
			}
			recs, err := ix.RunRecords(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout())
			defer cancel()
			pub, err := openBackend(ctx, cfg, cc.password)
			if err != nil {
				return err
			}
			defer pub.Close()
			n, err := pub.Publish(ctx, run, recs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published run %s: %d new of %d speech acts\n", run.ID, n, len(recs))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run id or prefix (default: latest)")
	return cmd
}
