package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("tenant server failed")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries what the sub-commands share once the root command has loaded it.
type app struct {
	envFile string
	config  config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tenant-server",
		Short:         "Multi-tenant identity and company selection service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(a.envFile)
			if err != nil {
				return fmt.Errorf("load %s: %w", a.envFile, err)
			}
			a.config = c
			logging.Init(c.GetEnv(), c.GetLogLevel())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional dotenv file read before the environment")
	root.AddCommand(newServeCmd(a), newMigrateCmd(a))
	return root
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
