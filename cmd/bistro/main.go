// Command bistro is the restaurant ordering client.
package main

import (
	"context"
	"os"

	"github.com/roach88/bistro/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), nil, os.Args[1:], os.Stdout, os.Stderr))
}
