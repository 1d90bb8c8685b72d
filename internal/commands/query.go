// Package commands implements the nodequery subcommands.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/nodeclient/config"
	"github.com/gaborage/nodeclient/exchange"
	"github.com/gaborage/nodeclient/logger"
	"github.com/gaborage/nodeclient/observability"
)

// observabilityKey holds the observability.Config section.
const observabilityKey = "observability"

// QueryOptions holds options for the query command
type QueryOptions struct {
	ConfigFile string
	Body       string
	Timeout    time.Duration
	Parallel   int
}

// NewQueryCommand creates the query command
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query COMMAND [COMMAND...]",
		Short: "Send one or more API commands to the node",
		Long: `Sends each named API command as a separate exchange and prints the response bodies
in argument order.

The request body of a command is taken from the commands.<name> configuration key
when present, and otherwise defaults to {"command":"<name>"}.`,
		Example: `  # Query node info using defaults and environment variables
  nodequery query getNodeInfo

  # Run several commands concurrently against a configured node
  nodequery query -c nodeclient.yaml getNodeInfo getNeighbors getTips

  # Send a literal body
  nodequery query getBalances --body '{"command":"getBalances","addresses":["A9"],"threshold":100}'`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (YAML)")
	cmd.Flags().StringVarP(&opts.Body, "body", "b", "", "Literal request body; only valid with a single command")
	cmd.Flags().DurationVarP(&opts.Timeout, "timeout", "t", 0, "Overall deadline for all commands (0 disables)")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 4, "Maximum number of concurrent exchanges")

	return cmd
}

type result struct {
	name     string
	response exchange.Buffer
}

func runQuery(ctx context.Context, out, errOut io.Writer, opts *QueryOptions, names []string) error {
	if err := validateQueryOptions(opts, names); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(errOut, cfg.Log.Level, cfg.Log.Pretty, nil)

	var obsCfg observability.Config
	if err := cfg.Unmarshal(observabilityKey, &obsCfg); err != nil {
		return fmt.Errorf("failed to read observability config: %w", err)
	}
	provider, err := observability.NewProvider(&obsCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(provider, observability.DefaultShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	client, err := exchange.NewClientFromConfig(cfg,
		exchange.WithLogger(log),
		exchange.WithTracerProvider(provider.TracerProvider()),
		exchange.WithMeterProvider(provider.MeterProvider()),
	)
	if err != nil {
		return err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	bodies := make([][]byte, len(names))
	for i, name := range names {
		if bodies[i], err = requestBody(cfg, opts, name); err != nil {
			return err
		}
	}

	results := make([]result, len(names))
	errs := make([]error, len(names))
	var g errgroup.Group
	g.SetLimit(opts.Parallel)
	for i, name := range names {
		results[i].name = name
		body := bodies[i]
		g.Go(func() error {
			if err := client.Query(ctx, body, &results[i].response); err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
			return errs[i]
		})
	}
	waitErr := g.Wait()

	for i := range results {
		if errs[i] != nil {
			continue
		}
		if len(results) == 1 {
			fmt.Fprintln(out, results[i].response.String())
		} else {
			fmt.Fprintf(out, "%s: %s\n", results[i].name, results[i].response.String())
		}
	}
	if waitErr == nil {
		return nil
	}
	return errors.Join(errs...)
}

// requestBody returns the body for a named command: the --body flag, then the
// commands.<name> key, then a bare {"command":"<name>"} object.
func requestBody(cfg *config.Config, opts *QueryOptions, name string) ([]byte, error) {
	if opts.Body != "" {
		return []byte(opts.Body), nil
	}
	body, ok, err := cfg.CommandBody(name)
	if err != nil {
		return nil, err
	}
	if ok {
		return []byte(body), nil
	}
	return json.Marshal(map[string]string{"command": name})
}

func validateQueryOptions(opts *QueryOptions, names []string) error {
	if opts.Body != "" && len(names) > 1 {
		return fmt.Errorf("--body applies to a single command, got %d", len(names))
	}
	if opts.Parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1, got %d", opts.Parallel)
	}
	if opts.Timeout < 0 {
		return fmt.Errorf("--timeout must not be negative, got %s", opts.Timeout)
	}
	for _, name := range names {
		if name == "" {
			return errors.New("command name must not be empty")
		}
	}
	return nil
}
