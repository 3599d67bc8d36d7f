package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxscan/internal/notify"
	"github.com/wonny/krxscan/pkg/httputil"
)

// notifyTestCmd represents the notify-test command
var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "웹훅 전송 확인",
	Long: `DISCORD_WEBHOOK_URL로 짧은 확인 메시지를 보냅니다.

Example:
  go run ./cmd/screener notify-test
  go run ./cmd/screener notify-test --message "배포 확인"`,
	RunE: runNotifyTest,
}

var notifyMessage string

func init() {
	rootCmd.AddCommand(notifyTestCmd)

	notifyTestCmd.Flags().StringVarP(&notifyMessage, "message", "m", "", "보낼 메시지 (기본: 확인 문구)")
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, log, _, hash, err := loadBase()
	if err != nil {
		return err
	}
	if cfg.Notify.WebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required")
	}

	msg := notifyMessage
	if msg == "" {
		msg = fmt.Sprintf("🔔 [%s] 스크리너 알림 테스트 (cfg %s)",
			time.Now().In(cfg.Location()).Format("2006-01-02 15:04"), hash[:8])
	}

	webhook := notify.NewWebhook(httputil.NewWithTimeout(log, cfg.Notify.Timeout), log, cfg.Notify.WebhookURL, cfg.Notify.ChunkSize)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Notify.Timeout)
	defer cancel()

	if err := webhook.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify test: %w", err)
	}

	fmt.Println("✅ Webhook delivered")
	return nil
}
