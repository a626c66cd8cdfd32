package transit

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/comfortablemove/internal/cache"
	"github.com/randytsao24/comfortablemove/internal/models"
)

const (
	// NoArrivalMessage stands in for routes without arrival data
	NoArrivalMessage = "도착 정보 없음"

	maxConcurrentLookups = 4
)

type arrivalKey struct {
	stopID  int
	routeID int
}

// ArrivalService looks up the next arrival of a route at a stop from the
// city bus arrival API
type ArrivalService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *cache.Cache[arrivalKey, string]
	logger  *slog.Logger
}

// NewArrivalService creates a new arrival service
func NewArrivalService(apiKey, baseURL string, timeout, cacheTTL time.Duration, logger *slog.Logger) *ArrivalService {
	return &ArrivalService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New[arrivalKey, string](cacheTTL),
		logger:  logger,
	}
}

// HasAPIKey returns true if the service has an API key configured
func (s *ArrivalService) HasAPIKey() bool {
	return s.apiKey != ""
}

// Close releases the arrival cache
func (s *ArrivalService) Close() {
	s.cache.Close()
}

// Arrival returns the first arrival message for a route at a stop.
// Any failure is reported as no data.
func (s *ArrivalService) Arrival(ctx context.Context, stopID, routeID int) (string, bool) {
	if s.apiKey == "" {
		return "", false
	}

	return s.cache.Fetch(arrivalKey{stopID, routeID}, func() (string, bool) {
		msg, err := s.fetchArrival(ctx, stopID, routeID)
		if err != nil {
			s.logger.Warn("arrival lookup failed", "stop", stopID, "route", routeID, "error", err)
			return "", false
		}
		return msg, msg != ""
	})
}

// ArrivalsForStop looks up every route serving stop concurrently. The result
// follows stop.Routes order; routes without data carry NoArrivalMessage.
func (s *ArrivalService) ArrivalsForStop(ctx context.Context, stop models.ResolvedStop) []models.RouteArrival {
	arrivals := make([]models.RouteArrival, len(stop.Routes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for i, name := range stop.Routes {
		routeID, ok := stop.RouteIDs[name]
		arrivals[i] = models.RouteArrival{RouteName: name, RouteID: routeID, Message: NoArrivalMessage}
		if !ok {
			continue
		}

		g.Go(func() error {
			if msg, ok := s.Arrival(ctx, stop.ID, routeID); ok {
				arrivals[i].Message = msg
				arrivals[i].HasData = true
			}
			return nil
		})
	}

	// Lookups never fail the group
	_ = g.Wait()
	return arrivals
}

func (s *ArrivalService) fetchArrival(ctx context.Context, stopID, routeID int) (string, error) {
	params := url.Values{}
	params.Set("ServiceKey", s.apiKey)
	params.Set("stId", strconv.Itoa(stopID))
	params.Set("busRouteId", strconv.Itoa(routeID))
	params.Set("ord", "1")

	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+sep+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching arrival data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arrival API returned status %d", resp.StatusCode)
	}

	var result arrivalResponse
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	header := result.MsgHeader
	s.logger.Debug("arrival API response", "stop", stopID, "route", routeID,
		"header_code", header.HeaderCd, "header_msg", header.HeaderMsg, "items", len(result.MsgBody.ItemList))

	if len(result.MsgBody.ItemList) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.MsgBody.ItemList[0].Arrmsg1), nil
}

// API response structures
type arrivalResponse struct {
	XMLName   xml.Name `xml:"ServiceResult"`
	MsgHeader struct {
		HeaderCd  string `xml:"headerCd"`
		HeaderMsg string `xml:"headerMsg"`
	} `xml:"msgHeader"`
	MsgBody struct {
		ItemList []struct {
			Arrmsg1 string `xml:"arrmsg1"`
		} `xml:"itemList"`
	} `xml:"msgBody"`
}
