package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/errsolve/errsolve/internal/config"
	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/ops"
	"github.com/errsolve/errsolve/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "errsolve",
		Usage:   "Personal error-resolution knowledge base",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(env),
			getCmd(env),
			getManyCmd(env),
			searchCmd(env),
			listCmd(env),
			deleteCmd(env),
			countCmd(env),
			pushCmd(env),
			reindexCmd(env),
			healthCmd(env),
			webCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command.
func saveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save an error and its resolution (solution text from --solution or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Short descriptive title", Required: true},
			&cli.StringFlag{Name: "error-message", Aliases: []string{"e"}, Usage: "The error message as observed", Required: true},
			&cli.StringFlag{Name: "error-type", Usage: "Category: compile|runtime|configuration|dependency|network|logic|performance|security|other", Required: true},
			&cli.StringFlag{Name: "root-cause", Aliases: []string{"r"}, Usage: "Underlying cause", Required: true},
			&cli.StringFlag{Name: "solution", Aliases: []string{"s"}, Usage: "Resolution text (or pipe via stdin)"},
			&cli.StringFlag{Name: "context", Aliases: []string{"c"}, Usage: "What was happening when it occurred"},
			&cli.StringFlag{Name: "code-changes", Usage: "Code diff or snippet showing the fix"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "labels", Usage: "Comma-separated classification labels"},
			&cli.StringFlag{Name: "library", Usage: "Versioned library reference"},
			&cli.StringFlag{Name: "project", Usage: "Project identifier or path"},
			&cli.StringSliceFlag{Name: "env", Usage: "Environment entry as key=value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			solutionText := c.String("solution")
			if solutionText == "" && stdinHasData() {
				var err error
				solutionText, err = readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			if solutionText == "" {
				return outputError(errors.NewInvalidRequest("solution text is required (use --solution or pipe via stdin)"))
			}

			environment, err := parseEnvPairs(c.StringSlice("env"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			output, err := ops.Save(c.Context, env, ops.SaveInput{
				Title:        c.String("title"),
				ErrorMessage: c.String("error-message"),
				ErrorType:    c.String("error-type"),
				Context:      c.String("context"),
				RootCause:    c.String("root-cause"),
				Solution:     solutionText,
				CodeChanges:  c.String("code-changes"),
				Tags:         parseCSV(c.String("tags")),
				Labels:       parseCSV(c.String("labels")),
				CLILibraryID: c.String("library"),
				Environment:  environment,
				ProjectPath:  c.String("project"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a solution by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			output, err := ops.Fetch(c.Context, env, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// getManyCmd creates the get-many command.
func getManyCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "get-many",
		Usage:     "Fetch multiple solutions by id",
		ArgsUsage: "<id> [id...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("at least one id argument is required"))
			}
			output, err := ops.FetchMany(c.Context, env, c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"solutions": output,
				"count":     len(output),
			})
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search saved solutions",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum results"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Ranking mode: hybrid|sparse|semantic"},
			&cli.StringFlag{Name: "vector-file", Usage: "Rank against a precomputed query vector (JSON float array)"},
		},
		Action: func(c *cli.Context) error {
			if path := c.String("vector-file"); path != "" {
				vec, err := readVectorFile(path)
				if err != nil {
					return outputError(err)
				}
				results, err := ops.SearchByVector(c.Context, env, vec, c.Int("limit"))
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{
					"results":  results,
					"total":    len(results),
					"strategy": "vector",
				})
			}
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query argument is required"))
			}
			output, err := ops.Search(c.Context, env, ops.SearchInput{
				Query: strings.Join(c.Args().Slice(), " "),
				Limit: c.Int("limit"),
				Mode:  c.String("mode"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List solutions, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Records to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a solution by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			id := c.Args().First()
			existed, err := ops.Delete(c.Context, env, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"deleted": existed, "id": id})
		},
	}
}

// countCmd creates the count command.
func countCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Report the number of saved solutions",
		Action: func(c *cli.Context) error {
			n, err := ops.Count(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"count": n})
		},
	}
}

// pushCmd creates the push command.
func pushCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Upload local solutions to the configured remote",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Re-upload records even if already synced"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be pushed without uploading"},
			&cli.BoolFlag{Name: "continue-on-error", Usage: "Keep uploading after individual failures"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Push(c.Context, env, ops.PushInput{
				Force:           c.Bool("force"),
				DryRun:          c.Bool("dry-run"),
				ContinueOnError: c.Bool("continue-on-error"),
			})
			if err != nil {
				if output != nil {
					_ = outputJSON(output)
				}
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reindexCmd creates the reindex command.
func reindexCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the lexical index and backfill missing embeddings",
		Action: func(c *cli.Context) error {
			output, err := ops.Reindex(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// healthCmd creates the health command.
func healthCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check knowledge-base integrity",
		Action: func(c *cli.Context) error {
			output, err := ops.HealthCheck(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			if rc := env.Cfg.ResolveRemote("", ""); rc != nil {
				fmt.Fprintf(os.Stderr, "remote: %s (key %s)\n", rc.BaseURL, config.MaskAPIKey(rc.APIKey))
			}
			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the browser UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8978, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if kbErr, ok := err.(*errors.KBError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", kbErr.Code, kbErr.Message), 1)
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

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseCSV splits a comma-separated string into a trimmed slice.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// readVectorFile loads a JSON float array from path.
func readVectorFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read vector file: %v", err))
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("vector file is not a JSON float array: %v", err))
	}
	return vec, nil
}

// parseEnvPairs converts repeated key=value flags into a map.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid env entry %q, expected key=value", p)
		}
		env[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return env, nil
}
