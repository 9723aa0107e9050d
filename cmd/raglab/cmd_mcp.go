package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlxlab/raglab/cmd/raglab/internal"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/mcpserver"
)

// handleMCP implements the MCP stdio server subcommand
func handleMCP(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab mcp

DESCRIPTION:
    Run an MCP stdio server exposing:
      - raglab_query
      - raglab_ask
      - raglab_status

    The global -bank flag sets the default bank for tool calls that
    do not name one.
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	server := mcpserver.New(cfg, bankName, internal.Version)
	if err := server.Run(context.Background()); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
