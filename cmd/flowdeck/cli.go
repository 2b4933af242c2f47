package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/flowdeck/internal/auth"
	"github.com/hpungsan/flowdeck/internal/config"
	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/ops"
	"github.com/hpungsan/flowdeck/internal/reconcile"
	"github.com/hpungsan/flowdeck/internal/record"
	"github.com/hpungsan/flowdeck/internal/remote"
	"github.com/hpungsan/flowdeck/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "flowdeck",
		Usage:   "Personal record sync core",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(cfg),
			todoCmd(cfg),
			inspectCmd(db),
			reconcileCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			addr := c.String("addr")
			if addr == "" {
				addr = cfg.ListenAddr
			}
			srv := web.NewServer(buildDeps(cfg), addr)
			return web.Run(srv)
		},
	}
}

// todoCmd creates the todo command.
func todoCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "todo",
		Usage: "Query outstanding todos from the remote sync document",
		Flags: []cli.Flag{
			tokenFlag(),
			&cli.StringFlag{Name: "doc-id", Usage: "Sync document id (defaults to configured id)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "unclassified", Usage: "Projection mode: all|unclassified|ai_done|ai_high|ai_mid|self"},
			&cli.IntFlag{Name: "cursor", Usage: "Absolute position to start from"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Items to return (1-100)"},
		},
		Action: func(c *cli.Context) error {
			token, err := requireToken(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.TodoList(c.Context, buildDeps(cfg), ops.TodoListInput{
				Token:  token,
				DocID:  c.String("doc-id"),
				Mode:   c.String("mode"),
				Cursor: c.Int("cursor"),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// inspectCmd creates the inspect command.
func inspectCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show one cached record by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}

			output, err := ops.Inspect(db, ops.InspectInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// reconcileCmd creates the reconcile command.
func reconcileCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Merge remote records into the local cache (runs legacy migration first)",
		Flags: []cli.Flag{
			tokenFlag(),
			&cli.BoolFlag{Name: "watch", Usage: "Keep polling on the configured interval"},
		},
		Action: func(c *cli.Context) error {
			token, err := requireToken(c)
			if err != nil {
				return outputError(err)
			}
			uid, err := auth.Subject(token)
			if err != nil {
				return outputError(err)
			}

			client := remote.NewClient(remote.Config{
				ProjectID: cfg.ProjectID,
				BaseURL:   cfg.BaseURL,
				Retries:   cfg.Retries,
				BaseDelay: time.Duration(cfg.BaseDelayMillis) * time.Millisecond,
			})
			rec := reconcile.New(client, db)

			records, err := rec.Reconcile(c.Context, token, uid)
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(reconcileSummary(records)); err != nil {
				return err
			}

			if !c.Bool("watch") {
				return nil
			}

			interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
			rec.Watch(c.Context, token, uid, interval, func(records []record.Record, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
					return
				}
				_ = outputJSON(reconcileSummary(records))
			})
			return nil
		},
	}
}

func reconcileSummary(records []record.Record) map[string]any {
	return map[string]any{
		"count":    len(records),
		"syncedAt": time.Now().UTC().Format(time.RFC3339),
	}
}

// Helper functions

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token",
		Usage:   "Bearer identity token",
		EnvVars: []string{"FLOWDECK_TOKEN"},
	}
}

func requireToken(c *cli.Context) (string, error) {
	token := c.String("token")
	if token == "" {
		return "", errors.NewAuth("missing bearer token (--token or FLOWDECK_TOKEN)")
	}
	return token, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if flowErr, ok := err.(*errors.FlowError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", flowErr.Code, flowErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
