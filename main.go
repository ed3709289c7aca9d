package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/unimailhq/unimail/config"
	"github.com/unimailhq/unimail/internal/crypto"
	"github.com/unimailhq/unimail/internal/database"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/repository"
	"github.com/unimailhq/unimail/server"
)

func main() {
	app := &cli.App{
		Name:  "unimail",
		Usage: "per-account mail synchronization and unification service",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "run the API server",
				Action: func(c *cli.Context) error {
					cfg, appLogger, err := bootstrap()
					if err != nil {
						return err
					}
					return server.New(cfg, appLogger).Run(context.Background())
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations and exit",
				Action: func(c *cli.Context) error {
					cfg, appLogger, err := bootstrap()
					if err != nil {
						return err
					}
					db, err := database.NewConnection(cfg.DatabaseConfig)
					if err != nil {
						return err
					}
					if err := repository.MigrateDB(db); err != nil {
						return err
					}
					appLogger.Info("migrations applied")
					return nil
				},
			},
			{
				Name:  "generate-key",
				Usage: "print a fresh token encryption key",
				Action: func(c *cli.Context) error {
					key, err := crypto.GenerateKey()
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				},
			},
		},
		DefaultCommand: "server",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func bootstrap() (*config.Config, logger.Logger, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, err
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	return cfg, appLogger, nil
}
