package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trustfall/trustfall-go/internal/adapters/numbers"
	"github.com/trustfall/trustfall-go/internal/eventbus"
	"github.com/trustfall/trustfall-go/internal/frontend"
	"github.com/trustfall/trustfall-go/internal/interpreter"
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/otel"
	"github.com/trustfall/trustfall-go/internal/schema"
)

const rootUsage = `trustfall — query engine tools over the numbers data source

USAGE:
  trustfall <command> [flags]

COMMANDS:
  query            Execute a query and print result rows as JSON lines
  compile-ir       Compile a query and print its IR as JSON
  trace            Execute a query and print the recorded trace
  help             Show help for any command
`

const queryUsage = `query FLAGS:
  -query <file>           Query file (required)
  -args <file>            YAML file with argument bindings
  -schema <file>          SDL schema file (default: built-in numbers schema)
  -max <n>                Stop after n rows (default: unlimited)
  -otel.endpoint <addr>   OTLP collector endpoint
  -otel.service <name>    OpenTelemetry service name (default: trustfall)
`

const compileIRUsage = `compile-ir FLAGS:
  -query <file>           Query file (required)
  -schema <file>          SDL schema file (default: built-in numbers schema)
`

const traceUsage = `trace FLAGS:
  -query <file>           Query file (required)
  -args <file>            YAML file with argument bindings
  -schema <file>          SDL schema file (default: built-in numbers schema)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "query":
		return runQuery(args[1:])
	case "compile-ir":
		return runCompileIR(args[1:])
	case "trace":
		return runTrace(args[1:])
	case "help":
		printHelp(args[1:])
		return nil
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printHelp(args []string) {
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	switch topic {
	case "query":
		fmt.Print(queryUsage)
	case "compile-ir":
		fmt.Print(compileIRUsage)
	case "trace":
		fmt.Print(traceUsage)
	default:
		fmt.Print(rootUsage)
	}
}

type commonFlags struct {
	queryFile  string
	argsFile   string
	schemaFile string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.queryFile, "query", "", "query file")
	fs.StringVar(&c.argsFile, "args", "", "YAML argument bindings")
	fs.StringVar(&c.schemaFile, "schema", "", "SDL schema file")
}

func (c *commonFlags) compile() (*ir.Query, map[string]ir.Value, error) {
	if c.queryFile == "" {
		return nil, nil, fmt.Errorf("-query is required")
	}
	queryText, err := os.ReadFile(c.queryFile)
	if err != nil {
		return nil, nil, err
	}

	var sch *schema.Schema
	if c.schemaFile != "" {
		sdl, err := os.ReadFile(c.schemaFile)
		if err != nil {
			return nil, nil, err
		}
		sch, err = schema.Parse(c.schemaFile, string(sdl))
		if err != nil {
			return nil, nil, err
		}
	} else {
		sch, err = numbers.Schema()
		if err != nil {
			return nil, nil, err
		}
	}

	query, err := frontend.Parse(sch, string(queryText))
	if err != nil {
		return nil, nil, fmt.Errorf("compile %s: %w", c.queryFile, err)
	}

	args := map[string]ir.Value{}
	if c.argsFile != "" {
		raw, err := os.ReadFile(c.argsFile)
		if err != nil {
			return nil, nil, err
		}
		var decoded map[string]any
		if err := yaml.Unmarshal(raw, &decoded); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", c.argsFile, err)
		}
		for name, rawValue := range decoded {
			v, err := ir.FromAny(rawValue)
			if err != nil {
				return nil, nil, fmt.Errorf("argument %s: %w", name, err)
			}
			args[name] = v
		}
	}
	return query, args, nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	var common commonFlags
	common.register(fs)
	maxRows := fs.Int("max", 0, "stop after n rows")
	otelEndpoint := fs.String("otel.endpoint", "", "OTLP collector endpoint")
	otelService := fs.String("otel.service", "trustfall", "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, queryUsage)
		return err
	}

	query, bindings, err := common.compile()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *otelEndpoint != "" {
		eventbus.Use(eventbus.New())
		shutdown, err := otel.Setup(*otelEndpoint, *otelService)
		if err != nil {
			return err
		}
		defer shutdown(ctx)
	}

	results, err := interpreter.Execute[numbers.Vertex](ctx, numbers.New(), query, bindings)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	count := 0
	for {
		row, ok := results.Next()
		if !ok {
			break
		}
		out := make(map[string]any, len(row))
		for name, value := range row {
			out[name] = value.Transparent()
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
		count++
		if *maxRows > 0 && count >= *maxRows {
			break
		}
	}
	return results.Err()
}

func runCompileIR(args []string) error {
	fs := flag.NewFlagSet("compile-ir", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, compileIRUsage)
		return err
	}
	query, _, err := common.compile()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(query)
}

func runTrace(args []string) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, traceUsage)
		return err
	}
	query, bindings, err := common.compile()
	if err != nil {
		return err
	}

	recorder := interpreter.NewRecorder[numbers.Vertex](numbers.New(), bindings)
	results, err := interpreter.Execute[numbers.Vertex](context.Background(), recorder, query, bindings)
	if err != nil {
		return err
	}
	for {
		if _, ok := results.Next(); !ok {
			break
		}
	}
	if err := results.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(recorder.Trace())
}
