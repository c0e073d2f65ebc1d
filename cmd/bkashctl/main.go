package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/bkashgate/internal/ctl"
)

var Version = "dev"

func main() {
	os.Exit(ctl.Execute(context.Background(), Version))
}
