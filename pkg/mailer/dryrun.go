package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DryRun is a Client that logs instead of sending, used when no mail
// API key is configured. Every call succeeds with a fabricated handle.
type DryRun struct{}

// NewDryRun creates a logging-only mail client.
func NewDryRun() *DryRun {
	return &DryRun{}
}

func (d *DryRun) SendMatchNotification(ctx context.Context, to string, projectID, vendorID int64, score float64) (*Delivery, error) {
	id := uuid.New().String()
	zap.L().Info("mailer dry-run: match notification",
		zap.String("to", to),
		zap.Int64("project_id", projectID),
		zap.Int64("vendor_id", vendorID),
		zap.Float64("score", score),
		zap.String("message_id", id),
	)
	return &Delivery{MessageID: id}, nil
}

func (d *DryRun) SendReport(ctx context.Context, to, subject, htmlBody string) (*Delivery, error) {
	id := uuid.New().String()
	zap.L().Info("mailer dry-run: report",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body_preview", preview(htmlBody)),
		zap.String("message_id", id),
	)
	return &Delivery{MessageID: id}, nil
}

func preview(s string) string {
	if len(s) > 120 {
		return fmt.Sprintf("%s...", s[:120])
	}
	return s
}
