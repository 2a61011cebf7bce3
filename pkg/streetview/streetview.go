package streetview

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/net/context"

	"UrbanScout/pkg/response"
)

// ErrImageNotFound means no imagery exists for the requested coordinate.
var ErrImageNotFound = errors.New("no street view imagery for location")

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/streetview"
	defaultSize    = "600x400"
)

type FetchOptions struct {
	Heading int
	FOV     int
	Pitch   int
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Heading: 0,
		FOV:     90,
		Pitch:   0,
	}
}

type ItfStreetView interface {
	Fetch(ctx context.Context, latitude, longitude float64, opts FetchOptions) ([]byte, error)
}

type streetViewClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func New() ItfStreetView {
	baseURL := os.Getenv("STREET_VIEW_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &streetViewClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     os.Getenv("STREET_VIEW_API_KEY"),
	}
}

func (c *streetViewClient) Fetch(ctx context.Context, latitude, longitude float64, opts FetchOptions) ([]byte, error) {
	params := url.Values{}
	params.Set("size", defaultSize)
	params.Set("location", fmt.Sprintf("%f,%f", latitude, longitude))
	params.Set("fov", fmt.Sprintf("%d", opts.FOV))
	params.Set("heading", fmt.Sprintf("%d", opts.Heading))
	params.Set("pitch", fmt.Sprintf("%d", opts.Pitch))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrImageNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, response.NewError(resp.StatusCode, fmt.Sprintf("street view request failed with status %d", resp.StatusCode))
	}

	imageBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(imageBytes) == 0 {
		return nil, ErrImageNotFound
	}

	return imageBytes, nil
}
