// Package ctl implements bkashctl, the operator tool for checking a bKash
// setup, fetching tokens and exporting the ledger.
package ctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
)

// tokenPreview is how many leading characters of a token are ever printed.
const tokenPreview = 20

type options struct {
	configFile string
	envFile    string
	sandbox    bool
	dsn        string
	tokenDSN   string
	logLevel   string
}

// configArgs turns the persistent flags into the argument list
// config.LoadConfig understands. Unset flags are left out so lower layers win.
func (o *options) configArgs(cmd *cobra.Command) []string {
	var args []string
	flags := cmd.Flags()
	if flags.Changed("config") {
		args = append(args, "-c", o.configFile)
	}
	if flags.Changed("env") {
		args = append(args, "-env", o.envFile)
	}
	if flags.Changed("sandbox") {
		args = append(args, fmt.Sprintf("-sandbox=%t", o.sandbox))
	}
	if flags.Changed("dsn") {
		args = append(args, "-d", o.dsn)
	}
	if flags.Changed("token-cache") {
		args = append(args, "-t", o.tokenDSN)
	}
	return args
}

func (o *options) load(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfig(o.configArgs(cmd))
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = o.logLevel
	}
	return cfg, logging.New(cmd.ErrOrStderr(), level, "text"), nil
}

// NewRootCommand returns the bkashctl command tree.
func NewRootCommand(version string) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "bkashctl",
		Short:         "bkashctl - set up and operate the bKash checkout gateway",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "JSON config file")
	pf.StringVar(&o.envFile, "env", "", ".env file (default ./.env when present)")
	pf.BoolVar(&o.sandbox, "sandbox", true, "use the bKash sandbox")
	pf.StringVarP(&o.dsn, "dsn", "d", "", "ledger PostgreSQL DSN")
	pf.StringVarP(&o.tokenDSN, "token-cache", "t", "", "token cache SQLite DSN")
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level")

	root.AddCommand(setupCmd(o), tokenCmd(o), exportCmd(o))
	return root
}

// Execute runs bkashctl with os.Args and returns the process exit code.
func Execute(ctx context.Context, version string) int {
	root := NewRootCommand(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func setupCmd(o *options) *cobra.Command {
	var test, prompt bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Check credentials, apply ledger migrations and optionally test the connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			if prompt {
				if err := promptCredentials(cfg, bufio.NewReader(cmd.InOrStdin()), out); err != nil {
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				if errors.Is(err, common.ErrMissingCredentials) {
					printCredentialHelp(out)
				}
				return err
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			fmt.Fprintln(out, "✓ Ledger migrations applied")

			if !test {
				fmt.Fprintln(out, "bKash integration is properly set up!")
				fmt.Fprintln(out, "Run `bkashctl setup --test` to test the connection to bKash API.")
				return nil
			}

			fmt.Fprintln(out, "Testing connection to bKash API...")
			token, err := rt.GetToken(ctx, "")
			if err != nil {
				return fmt.Errorf("failed to connect to bKash API: %w", err)
			}
			fmt.Fprintln(out, "✓ Successfully connected to bKash API")
			fmt.Fprintln(out, "Token: "+common.MaskSecret(token, tokenPreview))
			fmt.Fprintln(out, "bKash integration is properly set up and working!")
			return nil
		},
	}

	cmd.Flags().BoolVar(&test, "test", false, "fetch a token to test the connection to bKash API")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "ask for credentials missing from the configuration")
	return cmd
}

func tokenCmd(o *options) *cobra.Command {
	var tenant string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch (or refresh) a bearer token and print its prefix",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			get := rt.GetToken
			if refresh {
				get = rt.RefreshToken
			}
			token, err := get(ctx, tenant)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token: "+common.MaskSecret(token, tokenPreview))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant scope")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "use the cached refresh token")
	return cmd
}

func exportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export payments and refunds to the configured S3 bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			if cfg.S3Bucket == "" {
				return fmt.Errorf("%w: S3 bucket is not configured", common.ErrorValidation)
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Export(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %d payments and %d refunds to s3://%s/%s\n", res.Payments, res.Refunds, cfg.S3Bucket, res.Prefix)
			fmt.Fprintln(out, "payments: "+res.PaymentsURL)
			fmt.Fprintln(out, "refunds:  "+res.RefundsURL)
			return nil
		},
	}
}

func printCredentialHelp(w io.Writer) {
	fmt.Fprintln(w, "bKash credentials are not properly configured.")
	fmt.Fprintln(w, "Add the following to your environment or .env file:")
	for _, line := range []string{
		"BKASH_SANDBOX=true",
		"BKASH_APP_KEY=your-app-key",
		"BKASH_APP_SECRET=your-app-secret",
		"BKASH_USERNAME=your-username",
		"BKASH_PASSWORD=your-password",
	} {
		fmt.Fprintln(w, line)
	}
}

// promptCredentials asks for every empty credential. Secrets are read without
// echo.
func promptCredentials(cfg *config.Config, reader *bufio.Reader, w io.Writer) error {
	var err error
	if cfg.AppKey == "" {
		if cfg.AppKey, err = GetSimpleText(reader, "bKash app key", w); err != nil {
			return err
		}
	}
	if cfg.Username == "" {
		if cfg.Username, err = GetSimpleText(reader, "bKash username", w); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"bKash app secret", &cfg.AppSecret},
		{"bKash password", &cfg.Password},
	} {
		if *f.dst != "" {
			continue
		}
		b, err := GetSecret(w, f.prompt)
		if err != nil {
			return err
		}
		*f.dst = string(b)
		common.WipeByteArray(b)
	}
	return nil
}
