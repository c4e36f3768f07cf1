package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"challenge-tracking-system/utils"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const weatherBaseURL = "http://api.weatherapi.com/v1"

// WeatherService is a thin WeatherAPI.com client used for location
// geocoding and short forecasts around a user's stored coordinates.
type WeatherService struct {
	APIKey  string
	BaseURL string
	Client  *http.Client

	titler cases.Caser
}

func NewWeatherService() *WeatherService {
	return &WeatherService{
		APIKey:  os.Getenv("WEATHERAPI_API_KEY"),
		BaseURL: weatherBaseURL,
		Client:  utils.HTTPClient,
		titler:  cases.Title(language.English),
	}
}

// GeocodedLocation is the first autocomplete hit for a location query.
type GeocodedLocation struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
}

type HourForecast struct {
	Datetime    string  `json:"datetime"`
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

type WeatherForecast struct {
	Current  CurrentWeather   `json:"current"`
	Forecast []HourForecast   `json:"forecast"`
	Location GeocodedLocation `json:"location"`
}

type searchResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type forecastResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		FeelsLike float64 `json:"feelslike_c"`
		Humidity  int     `json:"humidity"`
		WindKph   float64 `json:"wind_kph"`
		Condition struct {
			Text string `json:"text"`
			Icon string `json:"icon"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Hour []struct {
				Time      string  `json:"time"`
				TempC     float64 `json:"temp_c"`
				Humidity  int     `json:"humidity"`
				WindKph   float64 `json:"wind_kph"`
				Condition struct {
					Text string `json:"text"`
					Icon string `json:"icon"`
				} `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// GeocodeLocation resolves a free-form location string to coordinates via
// the autocomplete endpoint. Returns nil when there is no match or no API
// key is configured.
func (s *WeatherService) GeocodeLocation(location string) (*GeocodedLocation, error) {
	if s.APIKey == "" {
		return nil, nil
	}

	q := url.Values{"q": {location}, "key": {s.APIKey}}
	resp, err := s.Client.Get(s.BaseURL + "/search.json?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding %q: unexpected status %d", location, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", location, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]
	return &GeocodedLocation{
		City:      first.Name,
		Country:   first.Country,
		Latitude:  first.Lat,
		Longitude: first.Lon,
	}, nil
}

// GetForecast fetches the current conditions plus the next 8 forecast hours
// for the coordinates. Wind speeds are converted from km/h to m/s.
func (s *WeatherService) GetForecast(latitude, longitude float64) (*WeatherForecast, error) {
	if s.APIKey == "" {
		return nil, validationErrorf("weather service is not configured")
	}

	q := url.Values{
		"q":      {strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)},
		"key":    {s.APIKey},
		"days":   {"3"},
		"aqi":    {"no"},
		"alerts": {"no"},
	}
	resp, err := s.Client.Get(s.BaseURL + "/forecast.json?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching forecast: unexpected status %d", resp.StatusCode)
	}

	var data forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}

	out := &WeatherForecast{
		Current: CurrentWeather{
			Temperature: data.Current.TempC,
			FeelsLike:   data.Current.FeelsLike,
			Humidity:    data.Current.Humidity,
			Description: s.titler.String(data.Current.Condition.Text),
			Icon:        data.Current.Condition.Icon,
			WindSpeed:   data.Current.WindKph / 3.6,
			City:        data.Location.Name,
			Country:     data.Location.Country,
		},
		Location: GeocodedLocation{
			City:      data.Location.Name,
			Country:   data.Location.Country,
			Latitude:  data.Location.Lat,
			Longitude: data.Location.Lon,
		},
	}

	for _, day := range data.Forecast.Forecastday {
		hours := day.Hour
		if len(hours) > 8 {
			hours = hours[:8]
		}
		for _, h := range hours {
			out.Forecast = append(out.Forecast, HourForecast{
				Datetime:    h.Time,
				Temperature: h.TempC,
				Description: h.Condition.Text,
				Icon:        h.Condition.Icon,
				Humidity:    h.Humidity,
				WindSpeed:   h.WindKph / 3.6,
			})
		}
	}
	if len(out.Forecast) > 8 {
		out.Forecast = out.Forecast[:8]
	}
	return out, nil
}
