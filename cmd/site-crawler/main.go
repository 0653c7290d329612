// Package main provides the entry point for the site-crawler CLI.
//
// Usage:
//
//	site-crawler crawl <host> [--port-scan] [--disrespect-robots]
//	site-crawler history
//	site-crawler history show <file>
//
// See --help for all available options.
package main

import cmd "github.com/rohmanhakim/site-crawler/internal/cli"

func main() {
	cmd.Execute()
}
