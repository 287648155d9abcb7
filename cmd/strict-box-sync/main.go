package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yuya-takeyama/strict-box-sync/internal/config"
	"github.com/yuya-takeyama/strict-box-sync/internal/logging"
	"github.com/yuya-takeyama/strict-box-sync/internal/walker"
	"github.com/yuya-takeyama/strict-box-sync/pkg/confirm"
	"github.com/yuya-takeyama/strict-box-sync/pkg/executor"
	"github.com/yuya-takeyama/strict-box-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-box-sync/pkg/prune"
	"github.com/yuya-takeyama/strict-box-sync/pkg/reconciler"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote/dropbox"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote/s3store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its error to a process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, confirm.ErrQuit):
		fmt.Fprintln(stderr, "Quit requested, stopping.")
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, confirm.ErrQuit) {
		return 0
	}
	return 1
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "strict-box-sync <source> <destination>",
		Short: "Careful one-way upload of a local directory to Dropbox or S3",
		Long: `strict-box-sync walks a local directory and uploads new or changed files
to a Dropbox folder or an s3://bucket/prefix. Files whose content differs
from the remote copy are never overwritten without an explicit confirmation.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args[0], args[1], stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringP("token", "t", "", "Dropbox access token")
	f.BoolP("yes", "y", false, "Answer yes to all questions")
	f.BoolP("no", "n", false, "Answer no to all questions")
	f.BoolP("default", "d", false, "Take the default answer on all questions")
	f.Bool("dryrun", false, "Shows operations without executing")
	f.Bool("quiet", false, "Suppress non-error output")
	f.Bool("verbose", false, "Enable debug output")
	f.StringSlice("exclude", nil, "Exclude patterns on the relative path (multiple allowed)")
	f.StringSlice("generated-file", nil, "Name patterns of generated files to skip (default *.pyc,*.pyo)")
	f.StringSlice("generated-dir", nil, "Names of generated directories to skip (default __pycache__)")
	f.Int("concurrency", s3store.DefaultConcurrency, "Number of concurrent S3 metadata requests")
	f.String("region", "", "AWS region (uses default if not specified)")
	f.String("profile", "", "AWS profile to use")
	f.String("result-json-file", "", "Path to output result as JSON file")
	f.String("config", "", "Path to a config file (yaml, json or toml)")
	f.String("api-url", "", "Dropbox RPC endpoint")
	f.String("content-url", "", "Dropbox content endpoint")
	_ = f.MarkHidden("api-url")
	_ = f.MarkHidden("content-url")

	cmd.MarkFlagsMutuallyExclusive("yes", "no", "default")

	for name, key := range config.FlagKeys {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	return cmd
}

func run(ctx context.Context, v *viper.Viper, source, destination string, stdin io.Reader, stdout, stderr io.Writer) error {
	start := time.Now()

	w, err := walker.NewWalker(source)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v, w.Root(), destination)
	if err != nil {
		return err
	}

	policy, err := prune.New(prune.Options{
		GeneratedFiles: cfg.GeneratedFiles,
		GeneratedDirs:  cfg.GeneratedDirs,
		Excludes:       cfg.Excludes,
	})
	if err != nil {
		return err
	}

	confirmer, err := confirm.New(cfg.Confirm, stdin, stdout)
	if err != nil {
		return err
	}

	store, root, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	syncLogger := &logger.SyncLogger{
		Log:      slog.New(logging.NewHandler(stderr, logging.Options{Verbose: cfg.Verbose})),
		IsDryRun: cfg.DryRun,
		IsQuiet:  cfg.Quiet,
	}

	rec := reconciler.New(reconciler.Options{
		Walker:          w,
		Store:           store,
		Prune:           policy,
		Confirm:         confirmer,
		Uploader:        executor.NewExecutor(store, syncLogger, cfg.DryRun),
		Logger:          syncLogger,
		DestinationRoot: root,
	})

	report, runErr := rec.Run(ctx)

	counts := report.Counts()
	logging.PrintSummary(stderr, logging.Summary(counts), cfg.Quiet, time.Since(start))

	if cfg.ResultJSONFile != "" {
		result := buildSyncResult(report, w.Root(), targetFormatter(cfg))
		if err := writeSyncResult(cfg.ResultJSONFile, result); err != nil {
			return fmt.Errorf("failed to write result JSON: %w", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if counts.Failed > 0 {
		return fmt.Errorf("%d operations failed", counts.Failed)
	}
	return nil
}

// newStore selects the backend from the destination and returns it together
// with the remote root the walk starts from.
func newStore(ctx context.Context, cfg *config.Config) (remote.Store, string, error) {
	if !cfg.IsS3() {
		client, err := dropbox.New(dropbox.Options{
			Token:      cfg.Token,
			APIURL:     cfg.APIURL,
			ContentURL: cfg.ContentURL,
			UserAgent:  "strict-box-sync/" + version,
		})
		if err != nil {
			return nil, "", err
		}
		return client, cfg.Destination, nil
	}

	bucket, prefix, err := s3store.ParseURI(cfg.Destination)
	if err != nil {
		return nil, "", err
	}

	var configOpts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3store.New(s3.NewFromConfig(awsCfg), bucket, prefix, cfg.Concurrency), "/", nil
}
