// Command loxone-mcp bridges an MCP host to a Loxone Generation-1
// Miniserver: it authenticates once, keeps a live state mirror and
// structure catalogue warm in the background, and exposes the tool roster
// over either stdio or HTTP+SSE, per spec.md §5/§6.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "setup":
		err = runSetup(ctx, os.Args[2:])
	case "verify":
		err = runVerify(ctx, os.Args[2:])
	case "clear":
		err = runClear(ctx, os.Args[2:])
	case "server":
		err = runServe(ctx, os.Args[2:], transportStdio)
	case "sse":
		err = runServe(ctx, os.Args[2:], transportHTTP)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `loxone-mcp: bridge between an MCP host and a Loxone Generation-1 Miniserver

Usage:
  loxone-mcp setup   [--config path]    store Miniserver credentials
  loxone-mcp verify  [--config path]    check stored credentials resolve and the Miniserver is reachable
  loxone-mcp clear   [--config path]    remove stored credentials
  loxone-mcp server  [--config path]    run the MCP server over stdio
  loxone-mcp sse     [--config path]    run the MCP server over HTTP+SSE
`)
}
