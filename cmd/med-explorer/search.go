// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/med-explorer/internal/pubmed"
	"github.com/pdiddy/med-explorer/internal/report"
	"github.com/pdiddy/med-explorer/internal/search"
	"github.com/pdiddy/med-explorer/internal/secrets"
	"github.com/pdiddy/med-explorer/pkg/types"
)

var errNoAuthors = errors.New("no authors matching the criteria were found")

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search PubMed for candidate authors",
	Long: `Search builds a PubMed query requiring at least --min-matches of the
given keywords within the last five years, pages through the results, and
collects authors whose affiliation mentions Ukraine. A candidate is kept when
they have at least --min-articles recent articles and no joint publication
with --student. The search stops once --authors candidates are found.

Progress goes to stderr; the result goes to stdout.`,
	Example: `  med-explorer search --email me@example.org \
    --keyword CRISPR --keyword leukemia --keyword biomarker \
    --min-matches 2 --authors 3 --student "Vasylenko M"`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("email", "", "contact email sent to NCBI (required)")
	f.StringArrayP("keyword", "k", nil, "search keyword (repeatable)")
	f.IntP("authors", "n", 1, "number of authors to find")
	f.IntP("min-matches", "m", 1, "keywords an article must contain")
	f.String("student", "", "student name for the co-authorship check (e.g. \"Vasylenko M\")")
	f.StringP("format", "o", report.FormatTableName, "output format: table, json, or yaml")
	f.StringP("query-file", "f", "", "YAML file with saved criteria; flags override its criteria fields")

	_ = viper.BindPFlag("email", f.Lookup("email"))
	_ = viper.BindPFlag("student", f.Lookup("student"))

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	criteria, discovery, err := resolveSearch(cmd)
	if err != nil {
		return err
	}
	if err := criteria.Validate(); err != nil {
		return fmt.Errorf("invalid search: %w", err)
	}
	format, _ := cmd.Flags().GetString("format")

	cfg := pubmedConfig(criteria.Email)
	client := pubmed.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := report.NewProgress(cmd.ErrOrStderr())
	res := search.Run(ctx, client, criteria, discovery, progress.Event, search.WithLogger(logger))

	logger.Info("search finished",
		zap.Int("found", len(res.Order)),
		zap.Int("retrieved", res.Retrieved),
		zap.Int("total", res.Total))

	if err := report.Format(res, format, cmd.OutOrStdout()); err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	if len(res.Order) == 0 {
		return errNoAuthors
	}
	return nil
}

// resolveSearch combines the optional query file with the command-line
// flags. A flag set on the command line wins over the file.
func resolveSearch(cmd *cobra.Command) (types.SearchCriteria, types.DiscoveryConfig, error) {
	var criteria types.SearchCriteria
	discovery := discoveryConfig()

	if path, _ := cmd.Flags().GetString("query-file"); path != "" {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return criteria, discovery, err
		}
		criteria = qf.SearchCriteria
		discovery = overrideDiscovery(cmd, qf.Merge(discovery))
		logger.Info("loaded query file", zap.String("path", path), zap.Int("keywords", len(qf.Keywords)))
	}

	f := cmd.Flags()
	if f.Changed("keyword") || len(criteria.Keywords) == 0 {
		criteria.Keywords, _ = f.GetStringArray("keyword")
	}
	if f.Changed("authors") || criteria.RequiredAuthors == 0 {
		criteria.RequiredAuthors, _ = f.GetInt("authors")
	}
	if f.Changed("min-matches") || criteria.MinKeywordMatches == 0 {
		criteria.MinKeywordMatches, _ = f.GetInt("min-matches")
	}
	if v := viper.GetString("email"); v != "" {
		criteria.Email = v
	}
	if v := viper.GetString("student"); v != "" {
		criteria.StudentName = v
	}
	criteria.Email = secretDefault(secrets.EmailKey, criteria.Email)
	return criteria, discovery, nil
}

// overrideDiscovery reapplies the discovery flags given on the command line.
func overrideDiscovery(cmd *cobra.Command, d types.DiscoveryConfig) types.DiscoveryConfig {
	f := cmd.Flags()
	if f.Changed("batch-size") {
		d.BatchSize, _ = f.GetInt("batch-size")
	}
	if f.Changed("delay") {
		d.PageDelay, _ = f.GetDuration("delay")
	}
	if f.Changed("min-articles") {
		d.MinArticles, _ = f.GetInt("min-articles")
	}
	return d
}
