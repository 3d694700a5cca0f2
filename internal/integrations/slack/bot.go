package slackbot

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"copbot/internal/config"
	"copbot/internal/domain"
	"copbot/internal/parse"
	"copbot/internal/storage/sqlite"
)

// StartSlackBot connects via Socket Mode and feeds every watched channel
// message through the dispatcher. Blocks until the connection dies.
func StartSlackBot(cfg config.Config, db *sql.DB, d *parse.Dispatcher, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				go handleSlashCommand(db, api, cmd)

			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go handleEventsAPI(cfg, db, d, eventsAPIEvent)

			case socketmode.EventTypeConnectionError:
				log.Printf("Slack connection error: %v", evt.Data)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleEventsAPI(cfg config.Config, db *sql.DB, d *parse.Dispatcher, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Only fresh human messages count: edits, deletions and bot posts
	// carry a subtype or a bot id.
	if ev.SubType != "" || ev.BotID != "" || ev.Text == "" {
		return
	}
	if !cfg.WatchesChannel(ev.Channel) {
		return
	}

	msg := domain.Message{
		ID:         messageID(ev.Channel, ev.TimeStamp),
		Text:       ev.Text,
		ReceivedAt: slackTimestamp(ev.TimeStamp),
	}

	res := d.Process(msg)
	if res == nil {
		return
	}
	stored, err := sqlite.SaveResult(db, res)
	if err != nil {
		log.Printf("Error storing %s record for message %s: %v", res.Kind, msg.ID, err)
		return
	}
	if stored {
		log.Printf("Stored %s record from message %s", res.Kind, msg.ID)
	}
}

func handleSlashCommand(db *sql.DB, api *slack.Client, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/areas":
		summary, err := sqlite.GetLatestSummary(db)
		if err == sql.ErrNoRows {
			postEphemeral(api, cmd, "Nenhum resumo COP REDE INFORMA registrado ainda.")
			return
		}
		if err != nil {
			log.Printf("Error loading latest summary: %v", err)
			postEphemeral(api, cmd, "Erro ao consultar os resumos.")
			return
		}
		postEphemeral(api, cmd, formatAreasReply(summary))

	case "/alertas":
		status := strings.TrimSpace(strings.ToLower(cmd.Text))
		alerts, err := sqlite.GetAlerts(db, status, 10)
		if err != nil {
			log.Printf("Error loading alerts: %v", err)
			postEphemeral(api, cmd, "Erro ao consultar os alertas.")
			return
		}
		postEphemeral(api, cmd, formatAlertsReply(alerts, status))
	}
}

// messageID builds the store dedup key. Slack timestamps are unique per
// channel, not globally.
func messageID(channel, ts string) string {
	if channel == "" {
		return ts
	}
	return channel + "-" + ts
}

// slackTimestamp converts a Slack "1700000000.123456" event timestamp.
// Falls back to now when the value is malformed.
func slackTimestamp(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	secs, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Now()
	}
	var micros int64
	if frac != "" {
		micros, _ = strconv.ParseInt(frac, 10, 64)
	}
	return time.Unix(secs, micros*int64(time.Microsecond))
}

func formatAreasReply(s domain.IncidentSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Volumetria por área* (%d eventos", s.TotalEvents)
	if s.GeneratedAt != "" {
		fmt.Fprintf(&b, ", gerado em %s", s.GeneratedAt)
	}
	b.WriteString(")\n")

	if len(s.VolumeByArea) == 0 {
		b.WriteString("Nenhuma área mapeada no último resumo.")
		return b.String()
	}
	for _, area := range s.Areas {
		fmt.Fprintf(&b, "• %s: %d\n", area, s.VolumeByArea[area])
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAlertsReply(alerts []domain.Alert, status string) string {
	if len(alerts) == 0 {
		if status != "" {
			return fmt.Sprintf("Nenhum alerta com status `%s`.", status)
		}
		return "Nenhum alerta registrado."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Últimos %d alertas*\n", len(alerts))
	for _, a := range alerts {
		label := a.Ticket
		if label == "" {
			label = a.ID
		}
		fmt.Fprintf(&b, "• `%s` [%s]", label, a.Status)
		if a.Type != "" {
			fmt.Fprintf(&b, " %s", a.Type)
		}
		if a.Cluster != "" {
			fmt.Fprintf(&b, " - %s", a.Cluster)
			if a.Area != "" {
				fmt.Fprintf(&b, " (%s)", a.Area)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	_, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral message: %v", err)
	}
}
