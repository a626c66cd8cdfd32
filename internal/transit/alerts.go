package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/comfortablemove/internal/cache"
)

// ServiceAlert represents an active service alert
type ServiceAlert struct {
	ID          string   `json:"id"`
	Routes      []string `json:"routes"`
	Header      string   `json:"header"`
	Description string   `json:"description"`
}

// AlertService fetches and caches a GTFS-Realtime alerts feed
type AlertService struct {
	feedURL string
	client  *http.Client
	cache   *cache.Cache[string, []ServiceAlert]
	now     func() time.Time
}

// NewAlertService creates a new alert service. An empty feedURL disables alerts.
func NewAlertService(feedURL string, timeout time.Duration, cacheTTL time.Duration) *AlertService {
	return &AlertService{
		feedURL: feedURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New[string, []ServiceAlert](cacheTTL),
		now:     time.Now,
	}
}

// Enabled reports whether a feed is configured
func (s *AlertService) Enabled() bool {
	return s.feedURL != ""
}

// Close releases the alert cache
func (s *AlertService) Close() {
	s.cache.Close()
}

// GetAlerts returns active service alerts, optionally filtered by route name
func (s *AlertService) GetAlerts(ctx context.Context, routes []string) ([]ServiceAlert, error) {
	if !s.Enabled() {
		return nil, nil
	}

	allAlerts, err := s.fetchAlerts(ctx)
	if err != nil {
		return nil, err
	}

	if len(routes) == 0 {
		return allAlerts, nil
	}

	routeSet := make(map[string]bool, len(routes))
	for _, r := range routes {
		routeSet[r] = true
	}

	var filtered []ServiceAlert
	for _, alert := range allAlerts {
		for _, r := range alert.Routes {
			if routeSet[r] {
				filtered = append(filtered, alert)
				break
			}
		}
	}
	return filtered, nil
}

func (s *AlertService) fetchAlerts(ctx context.Context) ([]ServiceAlert, error) {
	if cached, ok := s.cache.Get(s.feedURL); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building alerts request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching alerts feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alerts feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading alerts response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parsing alerts protobuf: %w", err)
	}

	alerts := s.parseAlerts(feed)
	s.cache.Set(s.feedURL, alerts)
	return alerts, nil
}

func (s *AlertService) parseAlerts(feed *gtfs.FeedMessage) []ServiceAlert {
	var alerts []ServiceAlert
	now := s.now().Unix()

	for _, entity := range feed.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		active := len(alert.GetActivePeriod()) == 0
		for _, period := range alert.GetActivePeriod() {
			start := int64(period.GetStart())
			end := int64(period.GetEnd())
			if now >= start && (end == 0 || now < end) {
				active = true
				break
			}
		}
		if !active {
			continue
		}

		var routes []string
		seen := make(map[string]bool)
		for _, ie := range alert.GetInformedEntity() {
			if routeID := ie.GetRouteId(); routeID != "" && !seen[routeID] {
				seen[routeID] = true
				routes = append(routes, routeID)
			}
		}

		header := translatedText(alert.GetHeaderText())
		if header == "" {
			continue
		}

		alerts = append(alerts, ServiceAlert{
			ID:          entity.GetId(),
			Routes:      routes,
			Header:      header,
			Description: translatedText(alert.GetDescriptionText()),
		})
	}

	return alerts
}

// translatedText prefers Korean, then English or untagged text, then whatever is first
func translatedText(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}

	translations := ts.GetTranslation()
	for _, lang := range []string{"ko", "en", ""} {
		for _, t := range translations {
			if t.GetLanguage() == lang {
				return t.GetText()
			}
		}
	}
	if len(translations) > 0 {
		return translations[0].GetText()
	}
	return ""
}
