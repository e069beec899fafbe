// Outreach CLI — инструмент командной строки для волонтёров
// и координаторов выездов.
//
// Использование:
//
//	outreach [--api-url URL] [--token TOKEN | --user UUID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	run       Выезды: создание, секвенсор остановок, контекст, доставки
//	team      Команда выезда
//	request   Запросы friends и журнал статусов
//	sighting  Встречи с friends
//	events    Хвост событий из RabbitMQ
//	token     Выпуск bearer-токена
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Outreach/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var (
		apiURL, token, userID string
		jsonOutput            bool
	)

	rootCmd := &cobra.Command{
		Use:           "outreach",
		Short:         "Outreach CLI — run execution and friend requests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("OUTREACH_TOKEN"), "Bearer token (env OUTREACH_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("OUTREACH_USER"), "User ID for dev-mode servers (env OUTREACH_USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client {
		return cli.NewClient(cli.ClientConfig{BaseURL: apiURL, Token: token, UserID: userID})
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(clientFn, outputFn),
		cli.NewTeamCmd(clientFn, outputFn),
		cli.NewRequestCmd(clientFn, outputFn),
		cli.NewSightingCmd(clientFn, outputFn),
		cli.NewEventsCmd(outputFn),
		cli.NewTokenCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		cli.NewOutput(jsonOutput).Error(err)
		os.Exit(1)
	}
}
