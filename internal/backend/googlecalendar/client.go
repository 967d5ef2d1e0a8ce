// Package googlecalendar implements the service.Calendar interface using Google Calendar API.
package googlecalendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"notioncal/internal/config"
	"notioncal/internal/service"
)

const (
	// PageSize is the number of calendars per list page.
	PageSize = 250

	// APITimeout is the timeout for API calls.
	APITimeout = 30 * time.Second

	// RedirectURL is the redirect the refresh token was issued for.
	RedirectURL = "https://developers.google.com/oauthplayground"

	serviceName = "calendar"
)

// Client implements service.Calendar using Google Calendar API.
type Client struct {
	svc *calendar.Service
}

// New creates a Google Calendar client authenticated with a refresh token.
// The access token is refreshed automatically.
func New(ctx context.Context, cfg config.GoogleConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("google oauth client is not configured")
	}
	if cfg.RefreshToken == "" {
		return nil, errors.New("google refresh token is not set")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  RedirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}

	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	svc, err := calendar.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// ListCalendars returns all calendars on the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]service.CalendarInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.CalendarInfo
	err := c.svc.CalendarList.List().MaxResults(PageSize).Pages(ctx, func(resp *calendar.CalendarList) error {
		for _, entry := range resp.Items {
			result = append(result, service.CalendarInfo{
				ID:   entry.Id,
				Name: entry.Summary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return result, nil
}

// CreateCalendar creates a secondary calendar.
func (c *Client) CreateCalendar(ctx context.Context, name, timeZone string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	cal, err := c.svc.Calendars.Insert(&calendar.Calendar{
		Summary:  name,
		TimeZone: timeZone,
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return cal.Id, nil
}

// InsertEvent creates an event and returns its id.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event service.Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Events.Insert(calendarID, toAPIEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return created.Id, nil
}

// UpdateEvent replaces an event's summary, description and times.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, event service.Event) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Events.Update(calendarID, eventID, toAPIEvent(event)).Context(ctx).Do()
	if err != nil {
		return wrapError(err)
	}
	return nil
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return wrapError(err)
	}
	return nil
}

func toAPIEvent(e service.Event) *calendar.Event {
	return &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Start:       toAPITime(e.Start),
		End:         toAPITime(e.End),
	}
}

func toAPITime(t service.EventTime) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		Date:     t.Date,
		DateTime: t.DateTime,
		TimeZone: t.TimeZone,
	}
}

// wrapError converts API errors into service.APIError so callers can branch
// on the status code.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("calendar request timed out: %w", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		apiErr := &service.APIError{
			Service: serviceName,
			Code:    gerr.Code,
			Message: gerr.Message,
			Body:    gerr.Body,
			Err:     err,
		}
		if len(gerr.Errors) > 0 {
			apiErr.Reason = gerr.Errors[0].Reason
		}
		return apiErr
	}

	return err
}
