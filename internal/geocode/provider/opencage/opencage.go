// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/geocode"
	"github.com/mercatocomunale/navigator/internal/http"
)

const (
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

type OpenCage struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Results      []Result `json:"results"`
	Status       Status   `json:"status"`
	TotalResults int      `json:"total_results"`
}

type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	Category       string `json:"_category"`
	Type           string `json:"_type"`
	NormalizedCity string `json:"_normalized_city"`
	Marketplace    string `json:"marketplace"`
	City           string `json:"city"`
	Country        string `json:"country"`
	HouseNumber    string `json:"house_number"`
	Postcode       string `json:"postcode"`
	Road           string `json:"road"`
	State          string `json:"state"`
	Suburb         string `json:"suburb"`
	Town           string `json:"town"`
	Village        string `json:"village"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func New(client *http.Client, lang language.Tag, apikey string) *OpenCage {
	return &OpenCage{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Reverse(ctx context.Context, coord geo.Coordinate) (geocode.Address, error) {
	response, err := o.lookup(ctx, coord.String())
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	if len(response.Results) == 0 {
		return geocode.Address{Coordinate: coord}, nil
	}
	return toAddress(response.Results[0]), nil
}

func (o *OpenCage) Search(ctx context.Context, address string) (geocode.Address, error) {
	response, err := o.lookup(ctx, address)
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve coordinates from OpenCage API: %w", err)
	}
	if len(response.Results) == 0 {
		return geocode.Address{}, fmt.Errorf("%w: %q", geocode.ErrNotFound, address)
	}
	return toAddress(response.Results[0]), nil
}

func (o *OpenCage) lookup(ctx context.Context, q string) (Response, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", q)
	query.Set("limit", "1")
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", o.lang.String())

	if _, err := o.http.GetWithTimeout(ctx, APIEndpoint, &response, query, nil, APITimeout); err != nil {
		return response, err
	}
	if response.Status.Code != 0 && response.Status.Code != 200 {
		return response, fmt.Errorf("API returned status %d: %s", response.Status.Code, response.Status.Message)
	}
	return response, nil
}

func toAddress(result Result) geocode.Address {
	components := result.Components
	address := geocode.Address{
		AddressFound: true,
		Coordinate:   geo.Coordinate{Lat: result.Geometry.Lat, Lng: result.Geometry.Lng},
		DisplayName:  result.DisplayName,
		Name:         components.Marketplace,
		Street:       components.Road,
		HouseNumber:  components.HouseNumber,
		Suburb:       components.Suburb,
		City:         components.NormalizedCity,
		Postcode:     components.Postcode,
		State:        components.State,
		Country:      components.Country,
	}
	for _, city := range []string{components.City, components.Town, components.Village} {
		if address.City == "" && city != "" {
			address.City = city
		}
	}
	return address
}
