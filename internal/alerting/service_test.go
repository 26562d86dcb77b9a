package alerting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
)

func validRequest() CreateAlertRequest {
	return CreateAlertRequest{
		UserID:    "user-1",
		AssetID:   strPtr("GGAL"),
		Kind:      models.AlertKindPrice,
		Condition: models.ConditionAbove,
		Threshold: "8000",
		Channels:  []models.Channel{models.ChannelEmail, models.ChannelInApp},
		Recurring: true,
	}
}

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, logging.Discard())

	a, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Status != models.AlertStatusActive || a.Threshold.String() != "8000" {
		t.Errorf("created alert = %+v", a)
	}
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateAlertRequest)
		wantErr error
	}{
		{"malformed threshold", func(r *CreateAlertRequest) { r.Threshold = "8k" }, ErrInvalidThreshold},
		{"negative price", func(r *CreateAlertRequest) { r.Threshold = "-1" }, ErrInvalidThreshold},
		{"zero price", func(r *CreateAlertRequest) { r.Threshold = "0" }, ErrInvalidThreshold},
		{"unknown kind", func(r *CreateAlertRequest) { r.Kind = "VOLUME" }, ErrInvalidAlert},
		{"unknown condition", func(r *CreateAlertRequest) { r.Condition = "EQUALS" }, ErrInvalidAlert},
		{"price without asset", func(r *CreateAlertRequest) { r.AssetID = nil }, ErrInvalidAlert},
		{"no channels", func(r *CreateAlertRequest) { r.Channels = nil }, ErrInvalidAlert},
		{"bad channel", func(r *CreateAlertRequest) { r.Channels = []models.Channel{"FAX"} }, ErrInvalidAlert},
		{"missing user", func(r *CreateAlertRequest) { r.UserID = " " }, ErrInvalidAlert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := NewService(newFakeRepo(), logging.Discard()).Create(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_NegativePercentThresholdAllowed(t *testing.T) {
	req := validRequest()
	req.Kind, req.Condition, req.Threshold = models.AlertKindPercentChange, models.ConditionPctDown, "-5"
	if _, err := NewService(newFakeRepo(), logging.Discard()).Create(context.Background(), req); err != nil {
		t.Errorf("Create() error = %v", err)
	}
}

func TestService_ActiveAlertCeiling(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < models.MaxActiveAlertsPerUser; i++ {
		a := priceAlert(fmt.Sprintf("a%d", i), models.ConditionAbove, "1", true)
		repo.alerts[a.ID] = a
	}
	svc := NewService(repo, logging.Discard())

	if _, err := svc.Create(context.Background(), validRequest()); !errors.Is(err, ErrAlertLimitReached) {
		t.Fatalf("Create() error = %v, want ErrAlertLimitReached", err)
	}

	// A paused alert does not count.
	if err := svc.Pause(context.Background(), "user-1", "a0"); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if _, err := svc.Create(context.Background(), validRequest()); err != nil {
		t.Fatalf("Create() after pause error = %v", err)
	}
	if err := svc.Resume(context.Background(), "user-1", "a0"); !errors.Is(err, ErrAlertLimitReached) {
		t.Errorf("Resume() error = %v, want ErrAlertLimitReached", err)
	}
}

func TestService_Transitions(t *testing.T) {
	spent := priceAlert("spent", models.ConditionAbove, "1", false)
	spent.Status = models.AlertStatusTriggered
	repo := newFakeRepo(priceAlert("live", models.ConditionAbove, "1", true), spent)
	svc := NewService(repo, logging.Discard())
	ctx := context.Background()

	if err := svc.Resume(ctx, "user-1", "live"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume(active) error = %v, want ErrInvalidTransition", err)
	}
	if err := svc.Pause(ctx, "user-1", "spent"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause(triggered) error = %v, want ErrInvalidTransition", err)
	}
	if err := svc.Pause(ctx, "user-1", "live"); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := svc.Resume(ctx, "user-1", "live"); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := repo.get("live").Status; got != models.AlertStatusActive {
		t.Errorf("status = %s, want ACTIVE", got)
	}
}

func TestService_Delete(t *testing.T) {
	repo := newFakeRepo(priceAlert("a", models.ConditionAbove, "1", true))
	svc := NewService(repo, logging.Discard())
	ctx := context.Background()

	if err := svc.Delete(ctx, "someone-else", "a"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Delete() by another user error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "user-1", "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	list, _ := svc.List(ctx, "user-1")
	if len(list) != 0 {
		t.Errorf("deleted alert still listed: %+v", list)
	}
	fired, _ := newTestEngine(repo, time.Now()).Evaluate(ctx, quoteChange("GGAL", "5"))
	if len(fired) != 0 {
		t.Error("a deleted alert must not be evaluated")
	}
}
