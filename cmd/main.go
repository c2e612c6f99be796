/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	bancocred "github.com/webedmilson/bancoCred"
	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/database"
	"github.com/webedmilson/bancoCred/internal/notification"
)

// BancoCredCLI wraps the root cobra command.
type BancoCredCLI struct {
	cmd *cobra.Command
}

// appInstance holds the service and configuration shared by every command.
type appInstance struct {
	bancocred *bancocred.BancoCred
	cnf       *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the service before any command
// runs. Migrations only need the configuration.
func preRun(app *appInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config ", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		if cmd.Parent() != nil && cmd.Parent().Name() == "migrate" {
			return nil
		}

		service, err := setupBancoCred(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}
		app.bancocred = service
		return nil
	}
}

func setupBancoCred(cfg *config.Configuration) (*bancocred.BancoCred, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := bancocred.NewBancoCred(db)
	if err != nil {
		return nil, fmt.Errorf("error creating bancocred: %v", err)
	}
	return service, nil
}

func NewCLI() *BancoCredCLI {
	var configFile string
	app := &appInstance{}

	rootCmd := &cobra.Command{
		Use:   "bancocred",
		Short: "Digital bank ledger with currency exchange",
		Run:   func(cmd *cobra.Command, args []string) {},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./bancocred.json", "Configuration file for bancocred")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(ratesCommands(app))
	rootCmd.AddCommand(replayCommands(app))

	return &BancoCredCLI{cmd: rootCmd}
}

func (b BancoCredCLI) executeCLI() {
	if err := b.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
