// Package cmd provides the folio CLI commands.
//
// Commands:
//   - serve: HTTP chat API server with streaming responses
//   - ingest: embed repository files into the knowledge base
//
// Signal handling and graceful shutdown are implemented for all
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/salmanfarse/folio/internal/log"
)

// Execute is the main entry point for the folio application.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest(os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// newLogger builds the process logger from the environment before the
// config is loaded, so config errors are logged consistently too.
func newLogger(jsonOut, debug bool) log.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: jsonOut})
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("folio - portfolio chat backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  folio serve            Start the HTTP chat API server")
	fmt.Println("  folio ingest [repo...] Index repositories into the knowledge base")
	fmt.Println("                         (defaults to every project in the catalog)")
	fmt.Println("  folio version          Show version information")
	fmt.Println("  folio help             Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY         Required: OpenAI API key")
	fmt.Println("  DATABASE_URL           PostgreSQL connection URL")
	fmt.Println("  GITHUB_TOKEN           Optional: raises the GitHub API rate limit")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}
