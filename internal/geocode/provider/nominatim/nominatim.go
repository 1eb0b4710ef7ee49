// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/geocode"
	"github.com/mercatocomunale/navigator/internal/http"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	APITimeout     = time.Second * 10
	name           = "nominatim"

	// Nominatim returns a JSON error object instead of a result when nothing is found.
	errorNotFound = "Unable to geocode"
)

type Nominatim struct {
	http    *http.Client
	lang    language.Tag
	baseURL string
}

type Result struct {
	APILat      string  `json:"lat"`
	APILon      string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
	Error       string  `json:"error"`
}

type Address struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Pedestrian  string `json:"pedestrian"`
	Square      string `json:"square"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
}

// New returns a Nominatim geocoder. An empty baseURL selects the public OSM instance.
func New(client *http.Client, lang language.Tag, baseURL string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Nominatim{
		http:    client,
		lang:    lang,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (n *Nominatim) Name() string {
	return name
}

func (n *Nominatim) Reverse(ctx context.Context, coord geo.Coordinate) (geocode.Address, error) {
	var result Result

	query := n.query()
	query.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(coord.Lng, 'f', 6, 64))

	if _, err := n.http.GetWithTimeout(ctx, n.baseURL+"/reverse", &result, query, nil, APITimeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to fetch reverse address details from Nominatim API: %w", err)
	}
	if result.Error != "" {
		if strings.Contains(result.Error, errorNotFound) {
			return geocode.Address{Coordinate: coord}, nil
		}
		return geocode.Address{}, fmt.Errorf("Nominatim API returned an error: %s", result.Error)
	}
	return toAddress(result)
}

func (n *Nominatim) Search(ctx context.Context, address string) (geocode.Address, error) {
	var results []Result

	query := n.query()
	query.Set("q", address)
	query.Set("limit", "1")

	if _, err := n.http.GetWithTimeout(ctx, n.baseURL+"/search", &results, query, nil, APITimeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to fetch address details from Nominatim API: %w", err)
	}
	if len(results) < 1 {
		return geocode.Address{}, fmt.Errorf("%w: %q", geocode.ErrNotFound, address)
	}
	return toAddress(results[0])
}

func (n *Nominatim) query() url.Values {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("addressdetails", "1")
	query.Set("accept-language", n.lang.String())
	return query
}

func toAddress(result Result) (geocode.Address, error) {
	var err error
	address := geocode.Address{
		AddressFound: true,
		DisplayName:  result.DisplayName,
		Name:         result.Name,
		Street:       firstOf(result.Address.Road, result.Address.Pedestrian, result.Address.Square),
		HouseNumber:  result.Address.HouseNumber,
		Suburb:       result.Address.Suburb,
		City:         firstOf(result.Address.City, result.Address.Town, result.Address.Village),
		Postcode:     result.Address.Postcode,
		State:        result.Address.State,
		Country:      result.Address.Country,
	}
	address.Coordinate.Lat, err = strconv.ParseFloat(result.APILat, 64)
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to parse latitude from Nominatim API response: %w", err)
	}
	address.Coordinate.Lng, err = strconv.ParseFloat(result.APILon, 64)
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to parse longitude from Nominatim API response: %w", err)
	}
	return address, nil
}

func firstOf(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
