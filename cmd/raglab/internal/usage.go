package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.0"

// PrintUsage writes the top-level help to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `raglab - Local retrieval-augmented generation over document banks

Version: %s

USAGE:
    raglab [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.raglab/config/raglab.yaml)

    -bank <name>
        Knowledge bank to operate on (default: "default")

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Parse, chunk, embed, and store documents into a bank

    query
        Retrieve the most relevant chunks for a question

    ask
        Answer a question grounded in the bank (requires a chat model)

    docs
        List ingested documents and their chunk counts

    stats
        Show bank statistics

    export
        Write a bank snapshot (vectors.bin + meta.json)

    import
        Load a bank snapshot

    mcp
        Run MCP stdio server (tools: raglab_query, raglab_ask, raglab_status)

EXAMPLES:
    # Ingest a directory of notes into the default bank
    raglab ingest ./notes

    # Ingest papers into a dedicated bank, replacing prior versions
    raglab -bank papers ingest -replace ./papers

    # Retrieve chunks
    raglab -bank papers query "what is flash attention?"

    # Grounded answer with citations
    raglab -bank papers ask "what is flash attention?"

    # Move a bank between machines
    raglab -bank papers export ./papers-snapshot
    raglab -bank papers import ./papers-snapshot

For detailed help on each command, use:
    raglab <command> -help
`, Version)
}
