package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adda-Baaj/dcu-client/internal/app"
	"github.com/Adda-Baaj/dcu-client/internal/config"
	"github.com/Adda-Baaj/dcu-client/internal/logger"
)

const usage = `usage: dcu [flags] <command> [args]

commands:
  info <product_id>...     resolve episode metadata and manifest urls
  license <request_b64|->  exchange a base64 license request ("-" reads stdin)

flags:
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "dcu: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("dcu", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("dcu starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize client", "error", err.Error())
		return err
	}
	defer client.Close()

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "info":
		if len(rest) == 0 {
			fs.Usage()
			return errUsage
		}
		results, err := client.Info(ctx, rest)
		if len(results) > 0 {
			if encErr := writeJSON(stdout, results); encErr != nil {
				return errors.Join(err, encErr)
			}
		}
		return err
	case "license":
		if len(rest) != 1 {
			fs.Usage()
			return errUsage
		}
		request, err := licenseRequest(rest[0], stdin)
		if err != nil {
			return err
		}
		license, err := client.License(ctx, request)
		if license != "" {
			fmt.Fprintln(stdout, license)
		}
		return err
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func licenseRequest(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read license request: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
