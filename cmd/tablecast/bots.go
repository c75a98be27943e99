package main

import (
	"errors"

	"github.com/aretw0/tablecast/internal/cli"
	"github.com/aretw0/tablecast/pkg/adapters/discord"
	"github.com/aretw0/tablecast/pkg/adapters/telegram"
	"github.com/spf13/cobra"
)

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Run the Discord bot",
	Long:  `Answers the chat trigger command (maketable by default) in Discord channels.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := settings.GetString(cli.KeyDiscordToken)
		if token == "" {
			return errors.New("discord token required (--token or TABLECAST_DISCORD_TOKEN)")
		}

		cfg, logger, r, err := setup(nil)
		if err != nil {
			return err
		}
		defer r.Close()

		session, err := discord.NewSession(token)
		if err != nil {
			return err
		}
		handler := chatHandler(cfg, r, discord.NewMessenger(session), logger)
		bot := discord.NewBot(session, handler, discord.WithLogger(logger))

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if err := bot.Open(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return bot.Close()
	},
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot",
	Long:  `Answers the chat trigger command (/maketable by default) in Telegram chats.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := settings.GetString(cli.KeyTelegramToken)
		if token == "" {
			return errors.New("telegram token required (--token or TABLECAST_TELEGRAM_TOKEN)")
		}

		cfg, logger, r, err := setup(nil)
		if err != nil {
			return err
		}
		defer r.Close()

		api, err := telegram.NewAPI(token)
		if err != nil {
			return err
		}
		handler := chatHandler(cfg, r, telegram.NewMessenger(api), logger)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return telegram.NewBot(api, handler, telegram.WithLogger(logger)).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(discordCmd, telegramCmd)
	discordCmd.Flags().String("token", "", "Discord bot token")
	telegramCmd.Flags().String("token", "", "Telegram bot token")
	bind(discordCmd.Flags().Lookup("token"), cli.KeyDiscordToken)
	bind(telegramCmd.Flags().Lookup("token"), cli.KeyTelegramToken)
}
