package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/sensorhub/cmd"
)

func main() {
	app := &cli.App{
		Name:   "sensorhub",
		Usage:  "multi-tenant store for sensors and their readings",
		Action: cmd.ServeCommand,
		Flags:  serveFlags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: cmd.ServeCommand,
				Flags:  serveFlags,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: cmd.MigrateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "database-url",
						EnvVars:  []string{"DATABASE_URL"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "migrations-folder",
						EnvVars: []string{"MIGRATIONS_FOLDER"},
						Value:   "",
					},
					&cli.StringFlag{
						Name:    "log-level",
						EnvVars: []string{"LOG_LEVEL"},
						Value:   "INFO",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "import a long-format readings CSV for a demo user",
				Action: cmd.SeedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						EnvVars: []string{"SEED_PATH"},
						Value:   "sensor_readings_long.csv",
					},
					&cli.StringFlag{
						Name:  "username",
						Value: "demo",
					},
					&cli.StringFlag{
						Name:  "password",
						Value: "demo1234",
					},
					&cli.StringFlag{
						Name:  "email",
						Value: "demo@example.com",
					},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

var serveFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "http-addr",
		Usage: "listen address, overrides HTTP_ADDR",
	},
}
