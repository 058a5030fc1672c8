// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Command objwatch tracks bucket sizes from object notifications and evicts
// the largest eligible object when a bucket grows past its threshold.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-objwatch/pkg/cli"
	"github.com/jeremyhahn/go-objwatch/pkg/version"
)

var (
	cfgFile      string
	viperConfig  *viper.Viper
	globalConfig *cli.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func outputFormat() cli.OutputFormat {
	return cli.OutputFormat(globalConfig.OutputFormat)
}

// withContext builds the command context, runs fn and prints any error in
// the configured output format.
func withContext(fn func(c context.Context, ctx *cli.CommandContext) (string, error)) error {
	ctx, err := cli.NewCommandContext(globalConfig, nil)
	if err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, outputFormat()))
		return err
	}
	defer func() { _ = ctx.Close() }()

	c, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := fn(c, ctx)
	if out != "" {
		fmt.Print(out)
	}
	if err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, outputFormat()))
		return err
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "objwatch",
	Short: "Track bucket sizes and keep buckets under a size threshold",
	Long: `objwatch records the total size of a bucket every time an object is
created or removed, and deletes the largest eligible object whenever the
bucket grows past the configured threshold.

Supported Object Sources:
  - local      : Local filesystem, one directory per bucket
  - memory     : In-process buckets (testing and the driver scenario)
  - s3         : AWS S3 or S3-compatible endpoints
  - gcs        : Google Cloud Storage
  - azure      : Azure Blob Storage

Record Stores:
  - memory     : In-process, lost on exit
  - badger     : BadgerDB directory
  - sqlite     : SQLite database file

Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (OBJWATCH_*)
  - Configuration file (~/.objwatch.yaml or ./.objwatch.yaml)
  - Default values (lowest priority)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize viper configuration
		var err error
		viperConfig, err = cli.InitConfig(cfgFile)
		if err != nil {
			return err
		}

		// Bind flags to viper
		if err := viperConfig.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}

		// Get the configuration
		globalConfig = cli.GetConfig(viperConfig)

		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and notification workers",
	Long: `Start the REST API, which accepts S3 event notifications (optionally wrapped
in SNS and SQS envelopes), serves size records and reports, and exposes
Prometheus metrics. With --watch and the local source, file changes under
the source path are ingested directly.`,
	Example: `  objwatch serve                                           # Serve on :8080
  objwatch serve --listen 127.0.0.1:9000 --store sqlite --store-path records.db
  objwatch serve --source local --source-path ./buckets --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			return "", ctx.ServeCommand(c)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Process a notification document",
	Long: `Decode an S3 event document, an SNS or SQS envelope around one, or a JSON
array of notifications, and process it as a single batch.
Use '-' or omit the file to read from stdin.`,
	Example: `  objwatch ingest event.json                     # Ingest from file
  cat event.json | objwatch ingest -             # Ingest from stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			res, err := ctx.IngestCommand(c, path)
			if err != nil {
				return "", err
			}
			return cli.FormatIngestResult(res, outputFormat()), nil
		})
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size [bucket]",
	Short: "Compute the current size of a bucket",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			bucket, summary, err := ctx.SizeCommand(c, firstArg(args))
			if err != nil {
				return "", err
			}
			return cli.FormatSizeResult(bucket, summary, outputFormat()), nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [bucket]",
	Short: "Evict the largest eligible object if the bucket is over threshold",
	Example: `  objwatch cleanup --bucket assignment-bucket     # Use the configured threshold
  objwatch cleanup assignment-bucket --limit 10   # One-off threshold`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt64("limit") //nolint:errcheck // flags are validated by cobra
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			outcome, err := ctx.CleanupCommand(c, firstArg(args), limit)
			if err != nil {
				return "", err
			}
			return cli.FormatOutcome(outcome, outputFormat()), nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [bucket]",
	Short: "Show the recent size history of a bucket",
	Example: `  objwatch report assignment-bucket              # Print the report
  objwatch report assignment-bucket --publish    # Also write size-history.json to the bucket`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		publish, _ := cmd.Flags().GetBool("publish") //nolint:errcheck // flags are validated by cobra
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			rep, err := ctx.ReportCommand(c, firstArg(args), publish)
			if err != nil {
				return "", err
			}
			return cli.FormatReport(rep, outputFormat()), nil
		})
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records [bucket]",
	Short: "List size records of a bucket",
	Example: `  objwatch records assignment-bucket                       # All records
  objwatch records assignment-bucket --from 1730000000      # Records since a unix time`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt64("from") //nolint:errcheck // flags are validated by cobra
		to, _ := cmd.Flags().GetInt64("to")     //nolint:errcheck // flags are validated by cobra
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			records, err := ctx.RecordsCommand(c, firstArg(args), from, to)
			if err != nil {
				return "", err
			}
			bucket := firstArg(args)
			if bucket == "" {
				bucket = globalConfig.Bucket
			}
			return cli.FormatRecords(bucket, records, outputFormat()), nil
		})
	},
}

var maxCmd = &cobra.Command{
	Use:   "max",
	Short: "Show the largest size ever recorded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			rec, err := ctx.MaxCommand(c)
			if err != nil {
				return "", err
			}
			return cli.FormatMaxResult(rec, outputFormat()), nil
		})
	},
}

var driverCmd = &cobra.Command{
	Use:   "driver [bucket]",
	Short: "Run the end-to-end eviction scenario",
	Long: `Write assignment1.txt, assignment2.txt and assignment3.txt into the bucket
with pauses in between, processing each write through the pipeline, then
publish the size history report. With the default threshold of 20 bytes the
second and third writes each trigger one eviction.`,
	Example: `  objwatch driver --source memory --bucket demo --no-wait
  objwatch driver demo --source local --source-path ./buckets`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noWait, _ := cmd.Flags().GetBool("no-wait") //nolint:errcheck // flags are validated by cobra
		return withContext(func(c context.Context, ctx *cli.CommandContext) (string, error) {
			summary, err := ctx.DriverCommand(c, firstArg(args), noWait)
			if summary == nil {
				return "", err
			}
			return cli.FormatDriverSummary(summary, outputFormat()), err
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings, including source, store and threshold.`,
	Example: `  objwatch config                                # Show current config
  objwatch config -o json                        # Show config as JSON
  objwatch --source s3 --bucket mybucket config  # Preview config`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// For config command, we don't need to create the source
		fmt.Print(cli.DisplayConfig(globalConfig, globalConfig.OutputFormat))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetInfo().String())
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.objwatch.yaml)")
	rootCmd.PersistentFlags().String("source", "local", "object source (local, memory, s3, gcs, azure)")
	rootCmd.PersistentFlags().String("source-path", "./buckets", "root directory for the local source")
	rootCmd.PersistentFlags().String("bucket", "", "bucket to operate on")
	rootCmd.PersistentFlags().String("region", "", "region for the s3 source")
	rootCmd.PersistentFlags().String("endpoint", "", "custom endpoint URL for cloud sources")
	rootCmd.PersistentFlags().String("access-key", "", "access key for the s3 source")
	rootCmd.PersistentFlags().String("secret-key", "", "secret key for the s3 source")
	rootCmd.PersistentFlags().String("account-name", "", "storage account for the azure source")
	rootCmd.PersistentFlags().String("account-key", "", "storage account key for the azure source")
	rootCmd.PersistentFlags().String("store", "memory", "record store (memory, badger, sqlite)")
	rootCmd.PersistentFlags().String("store-path", "", "path for persistent record stores")
	rootCmd.PersistentFlags().Int64("threshold", 20, "bucket size in bytes above which cleanup runs, 0 disables")
	rootCmd.PersistentFlags().String("include-prefix", "assignment", "key prefix of objects eligible for eviction")
	rootCmd.PersistentFlags().String("include-suffix", ".txt", "key suffix of objects eligible for eviction")
	rootCmd.PersistentFlags().Bool("follow-evictions", true, "record a bucket's size again after each eviction")
	rootCmd.PersistentFlags().String("report-key", "size-history.json", "object key the report is published to")
	rootCmd.PersistentFlags().Duration("window", 0, "report lookback window (default 10s)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, zerolog)")
	rootCmd.PersistentFlags().StringP("output-format", "o", "text", "output format (text, json, table)")

	// serve command flags
	serveCmd.Flags().String("listen", ":8080", "address the REST API listens on")
	serveCmd.Flags().Int("workers", 4, "number of notification workers")
	serveCmd.Flags().Float64("rate-limit", 0, "requests per second per client, 0 disables")
	serveCmd.Flags().Bool("watch", false, "ingest file changes under the local source path")

	cleanupCmd.Flags().Int64("limit", -1, "threshold for this run, defaults to --threshold")
	reportCmd.Flags().Bool("publish", false, "write the report into the bucket")
	recordsCmd.Flags().Int64("from", 0, "inclusive lower bound in unix seconds")
	recordsCmd.Flags().Int64("to", 0, "inclusive upper bound in unix seconds, 0 for none")
	driverCmd.Flags().Bool("no-wait", false, "skip the pauses between writes")

	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(maxCmd)
	rootCmd.AddCommand(driverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
