package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/code-studio/internal/account"
	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/model"
)

// Dashboard defaults.
const (
	DashboardDays       = 30
	DashboardActivities = 10
)

// AccountClient is the subset of account.Client the settings screen uses.
type AccountClient interface {
	Stats(ctx context.Context, userID string, days int) (*account.Stats, error)
	Activity(ctx context.Context, userID string, limit int) ([]account.Activity, error)
	Range(ctx context.Context, userID, startDate, endDate string) (*account.Stats, error)
	Dashboard(ctx context.Context, userID string) (json.RawMessage, error)
	KeyStatus(ctx context.Context, userID string) (*model.APIKeyStatus, error)
	SaveKey(ctx context.Context, userID, apiKey string) error
	DeleteKey(ctx context.Context, userID string) error
}

// Dashboard is everything the settings screen shows in one payload.
type Dashboard struct {
	Stats    *account.Stats       `json:"stats"`
	Chart    []account.ChartPoint `json:"chart"`
	Trend    *account.Trend       `json:"trend"`
	Insights []account.Insight    `json:"insights"`
	Activity []account.Activity   `json:"activity"`
	APIKey   *model.APIKeyStatus  `json:"apiKey"`
}

// SettingsService backs the settings screen: usage statistics and the
// user's own assistant API key.
type SettingsService struct {
	account AccountClient
	logger  *slog.Logger
}

func NewSettingsService(acct AccountClient, logger *slog.Logger) *SettingsService {
	return &SettingsService{account: acct, logger: logger}
}

// Dashboard fetches stats, recent activity and key status concurrently.
// Any failure fails the whole dashboard; the other requests are cancelled.
func (s *SettingsService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.account.Stats(gctx, userID, DashboardDays)
		d.Stats = stats
		return err
	})
	g.Go(func() error {
		activity, err := s.account.Activity(gctx, userID, DashboardActivities)
		d.Activity = activity
		return err
	})
	g.Go(func() error {
		status, err := s.account.KeyStatus(gctx, userID)
		d.APIKey = status
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("settings dashboard failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, upstream("usage", err)
	}

	d.Chart = account.ChartPoints(d.Stats.DailyUsage)
	d.Trend = account.Trends(d.Stats.DailyUsage)
	d.Insights = account.Insights(d.Stats)
	return &d, nil
}

// Stats returns usage over the last days days.
func (s *SettingsService) Stats(ctx context.Context, userID string, days int) (*account.Stats, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	stats, err := s.account.Stats(ctx, userID, days)
	if err != nil {
		return nil, upstream("usage", err)
	}
	return stats, nil
}

// Activity returns the most recent assistant calls.
func (s *SettingsService) Activity(ctx context.Context, userID string, limit int) ([]account.Activity, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	items, err := s.account.Activity(ctx, userID, limit)
	if err != nil {
		return nil, upstream("usage", err)
	}
	return items, nil
}

// Range returns usage between two YYYY-MM-DD dates.
func (s *SettingsService) Range(ctx context.Context, userID, start, end string) (*account.Stats, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if start == "" || end == "" {
		return nil, apperror.ValidationFailed("startDate", "startDate and endDate are required")
	}
	if start > end {
		return nil, apperror.ValidationFailed("startDate", "startDate must not be after endDate")
	}
	stats, err := s.account.Range(ctx, userID, start, end)
	if err != nil {
		return nil, upstream("usage", err)
	}
	return stats, nil
}

// UsageSummary relays the backend's own dashboard summary as-is.
func (s *SettingsService) UsageSummary(ctx context.Context, userID string) (json.RawMessage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	raw, err := s.account.Dashboard(ctx, userID)
	if err != nil {
		return nil, upstream("usage", err)
	}
	return raw, nil
}

// KeyStatus reports whether the user runs on their own key.
func (s *SettingsService) KeyStatus(ctx context.Context, userID string) (*model.APIKeyStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	status, err := s.account.KeyStatus(ctx, userID)
	if err != nil {
		return nil, upstream("api key", err)
	}
	return status, nil
}

// SaveKey stores the user's key and returns the refreshed status. The raw
// key is never logged or returned.
func (s *SettingsService) SaveKey(ctx context.Context, userID, apiKey string) (*model.APIKeyStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperror.ValidationFailed("apiKey", "API key is required")
	}
	if err := s.account.SaveKey(ctx, userID, apiKey); err != nil {
		return nil, upstream("api key", err)
	}
	s.logger.Info("api key saved",
		slog.String("userID", userID),
		slog.String("key", account.MaskKey(apiKey)),
	)
	return s.KeyStatus(ctx, userID)
}

// DeleteKey reverts the user to the shared key.
func (s *SettingsService) DeleteKey(ctx context.Context, userID string) (*model.APIKeyStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.account.DeleteKey(ctx, userID); err != nil {
		return nil, upstream("api key", err)
	}
	s.logger.Info("api key deleted", slog.String("userID", userID))
	return s.KeyStatus(ctx, userID)
}

// upstream wraps collaborator failures that are not already classified.
func upstream(service string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Upstream(service, err)
}
