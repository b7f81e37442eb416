package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/keygen/cmds"
)

func main() {
	ctx := context.Background()

	if err := cmds.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
