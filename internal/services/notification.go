package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// NotificationService pushes operator messages to a Telegram chat. With
// no bot token configured it stays disabled and every send is a no-op.
type NotificationService struct {
	bot    *bot.Bot
	chatID string
}

// NewNotificationService creates the notifier. An empty token or chat ID
// disables delivery.
func NewNotificationService(botToken, chatID string) *NotificationService {
	var telegramBot *bot.Bot
	if botToken != "" && chatID != "" {
		var err error
		telegramBot, err = bot.New(botToken)
		if err != nil {
			logrus.WithError(err).Warn("Failed to initialize Telegram bot, notifications disabled")
			telegramBot = nil
		}
	}

	return &NotificationService{
		bot:    telegramBot,
		chatID: chatID,
	}
}

// Enabled reports whether messages will actually be delivered.
func (ns *NotificationService) Enabled() bool {
	return ns.bot != nil
}

// SendAlert delivers one alert to the operator chat.
func (ns *NotificationService) SendAlert(ctx context.Context, alert *models.Alert) error {
	if ns.bot == nil {
		return nil
	}
	return ns.send(ctx, ns.FormatAlert(alert))
}

// SendPlanSummary delivers a compact plan digest to the operator chat.
func (ns *NotificationService) SendPlanSummary(ctx context.Context, plan *models.DispatchPlan) error {
	if ns.bot == nil {
		return nil
	}
	return ns.send(ctx, ns.FormatPlanSummary(plan))
}

// SendReport delivers a preformatted report to the operator chat.
func (ns *NotificationService) SendReport(ctx context.Context, report string) error {
	if ns.bot == nil {
		return nil
	}
	return ns.send(ctx, report)
}

func (ns *NotificationService) send(ctx context.Context, text string) error {
	_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.chatID,
		Text:      text,
		ParseMode: botmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatAlert renders an alert as a Telegram Markdown message.
func (ns *NotificationService) FormatAlert(alert *models.Alert) string {
	emoji := "ℹ️"
	switch alert.Level {
	case models.AlertLevelWarning:
		emoji = "⚠️"
	case models.AlertLevelCritical:
		emoji = "🚨"
	}

	caser := cases.Title(language.English)
	title := caser.String(strings.ReplaceAll(alert.Name, "_", " "))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *%s* [%s]\n\n", emoji, title, alert.Level))
	sb.WriteString(alert.Message + "\n\n")
	sb.WriteString(fmt.Sprintf("Site: %s\n", alert.SiteID))
	if alert.Node != "" {
		sb.WriteString(fmt.Sprintf("Node: %s\n", alert.Node))
	}
	sb.WriteString(fmt.Sprintf("Fired: %s", alert.FiredAt.Format("2006-01-02 15:04:05 MST")))
	return sb.String()
}

// FormatPlanSummary renders a plan digest as a Telegram Markdown message.
func (ns *NotificationService) FormatPlanSummary(plan *models.DispatchPlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔋 *Dispatch Plan — %s*\n\n", plan.Node))
	sb.WriteString(fmt.Sprintf("Charge hours: %d\n", plan.NChargeHours))
	sb.WriteString(fmt.Sprintf("Discharge hours: %d\n", plan.NDischargeHours))
	sb.WriteString(fmt.Sprintf("Projected revenue: %.0f CLP\n", plan.ProjectedRevenue))
	sb.WriteString(fmt.Sprintf("Projected cost: %.0f CLP\n", plan.ProjectedCost))
	sb.WriteString(fmt.Sprintf("Projected net: *%.0f CLP*\n\n", plan.ProjectedNet))

	if plan.IsAllHold() {
		sb.WriteString("No trades scheduled: spread below threshold.\n")
	} else {
		for _, slot := range plan.HourlySchedule {
			if slot.Action == models.ActionHold {
				continue
			}
			sb.WriteString(fmt.Sprintf("%02d:00 %s @ %.1f (SOC %.0f%%→%.0f%%)\n",
				slot.Hour, strings.ToUpper(slot.Action), slot.Price, slot.SocBefore, slot.SocAfter))
		}
	}

	sb.WriteString(fmt.Sprintf("\nGenerated: %s", plan.GeneratedAt.Format("2006-01-02 15:04 MST")))
	return sb.String()
}
