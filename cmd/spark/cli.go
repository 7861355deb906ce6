package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/spark/internal/api"
	"github.com/hpungsan/spark/internal/config"
	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/mcp"
	"github.com/hpungsan/spark/internal/ops"
)

// maxStdinBytes bounds prompts and import data read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(svc *ops.Service, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "spark",
		Usage:   "Project recommendations from a sentence",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(svc, cfg),
			mcpCmd(svc, cfg),
			recommendCmd(svc),
			checkCmd(svc),
			listCmd(svc),
			getCmd(svc),
			importCmd(svc),
			deleteCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(svc *ops.Service, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Bind address (overrides server.bind)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (overrides server.port)"},
		},
		Action: func(c *cli.Context) error {
			serverCfg := cfg.Server
			if c.IsSet("bind") {
				serverCfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				port := c.Int("port")
				if port < 1 || port > 65535 {
					return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
				}
				serverCfg.Port = port
			}

			srv := api.NewServer(svc, serverCfg)
			return api.Run(c.Context, srv, serverCfg.ShutdownTimeout)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(svc *ops.Service, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(svc, cfg.MCP, Version)
		},
	}
}

// recommendCmd creates the recommend command.
func recommendCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "recommend",
		Usage:     "Recommend projects for a prompt (argument or stdin)",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "explain", Aliases: []string{"e"}, Usage: "Include the reasoning trace"},
		},
		Action: func(c *cli.Context) error {
			prompt, err := promptArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := svc.Recommend(c.Context, ops.RecommendInput{
				Prompt:  prompt,
				Explain: c.Bool("explain"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// checkCmd creates the check command.
func checkCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Run the prompt quality gate without searching",
		ArgsUsage: "<prompt>",
		Action: func(c *cli.Context) error {
			prompt, err := promptArg(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(svc.CheckPrompt(prompt))
		},
	}
}

// listCmd creates the list command.
func listCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List catalog projects",
		Action: func(c *cli.Context) error {
			projects, err := svc.ListProjects(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"projects": projects, "count": len(projects)})
		},
	}
}

// getCmd creates the get command.
func getCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a catalog project by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			p, err := svc.GetProject(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(p)
		},
	}
}

// importCmd creates the import command.
func importCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import projects from a JSONL or JSON array file (or stdin)",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			mode := ops.ImportMode(c.String("mode"))

			var (
				output *ops.ImportOutput
				err    error
			)
			switch {
			case c.NArg() > 0:
				output, err = svc.ImportFile(c.Context, ops.ImportInput{Path: c.Args().First(), Mode: mode})
			case stdinHasData():
				output, err = svc.Import(c.Context, io.LimitReader(os.Stdin, maxStdinBytes*64), mode)
			default:
				return outputError(errors.NewInvalidRequest("a file path or piped input is required"))
			}
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}
			if len(output.Errors) > 0 && output.Imported == 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a catalog project",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if err := svc.DeleteProject(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": strings.TrimSpace(id), "deleted": true})
		},
	}
}

// Helper functions

// promptArg joins positional arguments, or reads stdin when none are given.
func promptArg(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if stdinHasData() {
		text, err := readStdin(maxStdinBytes)
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return "", errors.NewPromptRequired()
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		msg := sErr.Message
		if !sErr.Public() {
			msg = errors.MsgInternal
			if sErr.Cause != nil {
				msg = fmt.Sprintf("%s: %v", msg, sErr.Cause)
			}
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads up to limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}
