// Package weatherctx fetches the work-window weather for a drying day
// from the Open-Meteo archive and reduces the hourly series to the four
// features the quality classifier and the model consume.
package weatherctx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"github.com/rishirikelp/kelpdry/internal/httputil"
	"github.com/rishirikelp/kelpdry/internal/models"
)

const DefaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// Work-window hour bounds, local time. Kombu is laid out around 04:00
// and brought in by 16:00; radiation only matters in the midday band.
const (
	workStartHour      = 4
	workEndHour        = 16
	radiationStartHour = 10
	windEndHour        = 10
)

type Client struct {
	baseURL   string
	latitude  float64
	longitude float64
	client    *http.Client
}

func NewClient(latitude, longitude float64) *Client {
	return &Client{
		baseURL:   DefaultBaseURL,
		latitude:  latitude,
		longitude: longitude,
		client:    httputil.NewClient(),
	}
}

// NewClientWithBaseURL is for tests pointing at a local server.
func NewClientWithBaseURL(baseURL string, latitude, longitude float64) *Client {
	c := NewClient(latitude, longitude)
	c.baseURL = baseURL
	return c
}

// FetchContext returns the aggregated work-window weather for one
// calendar day, or (nil, nil) when the archive has no data for it.
func (c *Client) FetchContext(ctx context.Context, date time.Time) (*models.WeatherContext, error) {
	day := date.Format("2006-01-02")
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&start_date=%s&end_date=%s"+
		"&hourly=shortwave_radiation,wind_speed_10m,relative_humidity_2m,precipitation_probability"+
		"&timezone=Asia%%2FTokyo&wind_speed_unit=ms",
		c.baseURL, c.latitude, c.longitude, day, day)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch weather context: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch weather context: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	return aggregate(body)
}

// aggregate reduces the hourly response to the work-window features:
// radiation is summed over the midday band, wind averaged over the
// morning layout hours, humidity and precipitation chance are the worst
// values seen across the whole working day.
func aggregate(body []byte) (*models.WeatherContext, error) {
	times := gjson.GetBytes(body, "hourly.time").Array()
	if len(times) == 0 {
		return nil, nil
	}
	radiation := gjson.GetBytes(body, "hourly.shortwave_radiation").Array()
	wind := gjson.GetBytes(body, "hourly.wind_speed_10m").Array()
	humidity := gjson.GetBytes(body, "hourly.relative_humidity_2m").Array()
	precip := gjson.GetBytes(body, "hourly.precipitation_probability").Array()

	var wctx models.WeatherContext
	var windSum float64
	windCount := 0
	sawValue := false

	for i, t := range times {
		ts, err := time.Parse("2006-01-02T15:04", t.String())
		if err != nil {
			return nil, fmt.Errorf("parse hourly time %q: %w", t.String(), err)
		}
		hour := ts.Hour()
		if hour < workStartHour || hour >= workEndHour {
			continue
		}

		if i < len(radiation) && radiation[i].Exists() && hour >= radiationStartHour {
			wctx.RadiationSum += radiation[i].Float()
			sawValue = true
		}
		if i < len(wind) && wind[i].Exists() && hour < windEndHour {
			windSum += wind[i].Float()
			windCount++
			sawValue = true
		}
		if i < len(humidity) && humidity[i].Exists() {
			if v := humidity[i].Float(); v > wctx.HumidityMax {
				wctx.HumidityMax = v
			}
			sawValue = true
		}
		if i < len(precip) && precip[i].Exists() {
			if v := precip[i].Float(); v > wctx.PrecipitationMax {
				wctx.PrecipitationMax = v
			}
			sawValue = true
		}
	}

	if !sawValue {
		return nil, nil
	}
	if windCount > 0 {
		wctx.WindAvg = windSum / float64(windCount)
	}
	return &wctx, nil
}
