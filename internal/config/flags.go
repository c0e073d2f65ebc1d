package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/bkashgate/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-sandbox bool  use the sandbox environment
//	-a string      HTTP listen address (e.g. ":8080")
//	-g string      gRPC health listen address
//	-d string      PostgreSQL DSN for the payment ledger
//	-t string      token cache DSN (SQLite file); empty keeps tokens in memory
//
// Only these flags are considered; everything else in args is ignored so that
// the same argument list can be shared with other layers.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-sandbox", "-a", "-g", "-d", "-t"})

	fs := flag.NewFlagSet("bkash", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&config.Sandbox, "sandbox", config.Sandbox, "use the bKash sandbox")
	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "gRPC health listen address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "ledger database DSN")
	fs.StringVar(&config.TokenCacheDSN, "t", config.TokenCacheDSN, "token cache DSN")

	return fs.Parse(args)
}
