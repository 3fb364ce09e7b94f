// caprun is the capability runtime CLI: it hosts tools, environments, and
// agents behind the runtime facades and exposes them for one-shot calls or a
// JSON-lines serving loop.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"caprun/internal/capability"
	"caprun/internal/components"
	"caprun/internal/config"
	"caprun/internal/facade"
	"caprun/internal/logging"
)

var (
	configPath string
	debug      bool
	kindFlag   string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "caprun",
	Short: "caprun - capability runtime for tools, environments, and agents",
	Long: `caprun hosts typed components behind per-kind facades with schema
validation, category-tiered result caching, and retry-with-backoff applied
to every invocation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		return logging.Init(debug || cfg.Logging.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered components of one kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		f, err := rt.Facade(capability.Kind(kindFlag))
		if err != nil {
			return err
		}
		for _, desc := range f.List() {
			fmt.Printf("%-20s %-12s %s\n", desc.Name, desc.TypeTag, desc.Status)
		}
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <component> <action> [args...]",
	Short: "Invoke one action and print the result as JSON",
	Long: `Invokes one action against a component created on the fly from a
registered type. Positional arguments bind in declared parameter order;
--kwargs takes a JSON object for named arguments.

Example:
  caprun call e1 say hello --type echo
  caprun call c1 add --type calc --kind environment --kwargs '{"a": 2, "b": 3}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCall,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve JSON-lines requests on stdin, responses on stdout",
	Long: `Reads one JSON request envelope per line from stdin and writes one
JSON response per line to stdout. The cache TTL table is hot-reloaded when
the config file changes.`,
	RunE: runServe,
}

var (
	typeFlag    string
	kwargsFlag  string
	timeoutFlag time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&kindFlag, "kind", "k", "tool", "component kind: tool, environment, or agent")

	callCmd.Flags().StringVarP(&typeFlag, "type", "t", "", "component type to create the component from")
	callCmd.Flags().StringVar(&kwargsFlag, "kwargs", "", "named arguments as a JSON object")
	callCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "per-invocation timeout")

	rootCmd.AddCommand(listCmd, callCmd, serveCmd)
}

func buildRuntime() (*facade.Runtime, error) {
	store, err := cfg.BuildStore()
	if err != nil {
		return nil, err
	}
	rt := facade.NewRuntime(facade.Options{
		Cache:          store,
		Resilience:     cfg.RetrySettings(),
		MaxConcurrency: cfg.Invoke.MaxConcurrency,
		SweepInterval:  time.Duration(cfg.Cache.SweepInterval),
	})
	if err := components.RegisterDefaults(rt, components.Providers{}); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func runCall(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	f, err := rt.Facade(capability.Kind(kindFlag))
	if err != nil {
		return err
	}

	name, action := args[0], args[1]
	if typeFlag != "" {
		if _, err := f.Create(name, typeFlag, nil); err != nil {
			return err
		}
	}

	positional := make([]any, 0, len(args)-2)
	for _, a := range args[2:] {
		positional = append(positional, a)
	}
	var kwargs map[string]any
	if kwargsFlag != "" {
		if err := json.Unmarshal([]byte(kwargsFlag), &kwargs); err != nil {
			return fmt.Errorf("parsing --kwargs: %w", err)
		}
	}

	ctx := cmd.Context()
	if timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
		defer cancel()
	}

	res := f.Execute(ctx, name, action, positional, kwargs)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !res.Success {
		os.Exit(1)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hot-reload the TTL table while serving.
	if configPath != "" {
		w, err := config.Watch(configPath, func(next config.Config) {
			rt.SetTTLs(next.CacheSettings().Tiers)
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	log := logging.Get(logging.CategoryCLI)
	log.Infof("serving on stdin/stdout")

	enc := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req facade.Request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(map[string]any{"success": false, "error": map[string]any{
				"kind": "validation_error", "message": fmt.Sprintf("invalid request: %v", err),
			}})
			continue
		}
		enc.Encode(rt.Handle(ctx, req))
	}
	return scanner.Err()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
