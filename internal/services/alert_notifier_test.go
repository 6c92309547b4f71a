package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlert(sev models.Severity) models.Alert {
	return models.Alert{
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Type:        models.EventBruteForceAttempt,
		Description: "5 failed login attempts",
		Severity:    sev,
		Source:      "ip:10.0.0.1",
	}
}

func waitNotifier(t *testing.T, n *SESAlertNotifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n.Wait(ctx)
}

func TestSESAlertNotifier_SendsAboveMinimum(t *testing.T) {
	client := &MockSESClient{}
	n := newSESAlertNotifier(client, SESAlertNotifierConfig{
		To: "ops@example.com", From: "alerts@example.com", MinSeverity: models.SeverityHigh, PerMinute: 10,
	}, discardLogger())

	n.Notify(context.Background(), testAlert(models.SeverityMedium))
	n.Notify(context.Background(), testAlert(models.SeverityHigh))
	waitNotifier(t, n)

	require.Equal(t, 1, client.sent())
	in := client.Inputs[0]
	assert.Equal(t, "alerts@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"ops@example.com"}, in.Destination.ToAddresses)
	assert.True(t, strings.Contains(aws.ToString(in.Message.Subject.Data), "brute_force_attempt"))
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "ip:10.0.0.1")
}

func TestSESAlertNotifier_Throttles(t *testing.T) {
	client := &MockSESClient{}
	n := newSESAlertNotifier(client, SESAlertNotifierConfig{
		To: "ops@example.com", From: "alerts@example.com", PerMinute: 2,
	}, discardLogger())

	for i := 0; i < 5; i++ {
		n.Notify(context.Background(), testAlert(models.SeverityCritical))
	}
	waitNotifier(t, n)

	assert.Equal(t, 2, client.sent())
}
