package app

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/slack-go/slack"

	"copbot/internal/config"
	"copbot/internal/httpapi"
	slackbot "copbot/internal/integrations/slack"
	"copbot/internal/parse"
	"copbot/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	log.Printf("Config loaded. HTTPAddr=%s DBPath=%s Timezone=%s SlackEnabled=%v Channels=%d",
		cfg.HTTPAddr, cfg.DBPath, cfg.Timezone, cfg.SlackEnabled, len(cfg.SlackChannels))

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dispatcher := parse.NewDispatcher(cfg.Lexicon(), cfg.Rules(), logger)

	StartPruneScheduler(cfg, db)

	if cfg.SlackEnabled {
		api := slack.New(
			cfg.SlackBotToken,
			slack.OptionAppLevelToken(cfg.SlackAppToken),
		)
		go func() {
			if err := slackbot.StartSlackBot(cfg, db, dispatcher, api); err != nil {
				log.Fatalf("Slack bot error: %v", err)
			}
		}()
	} else {
		log.Println("Slack intake disabled; serving the dashboard API only")
	}

	server := httpapi.NewServer(db)
	log.Printf("Dashboard API listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, server.Router()); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
