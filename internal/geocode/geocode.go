// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geocode resolves destination labels and addresses.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/mercatocomunale/navigator/internal/geo"
)

// ErrNotFound is returned by Search when no place matches the query.
var ErrNotFound = errors.New("no matching place found")

type Address struct {
	AddressFound bool
	CacheHit     bool
	Coordinate   geo.Coordinate
	DisplayName  string
	Name         string
	Street       string
	HouseNumber  string
	Suburb       string
	City         string
	Postcode     string
	State        string
	Country      string
}

type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coord geo.Coordinate) (Address, error)
	Search(ctx context.Context, query string) (Address, error)
}

// Label returns a short human readable name of the address, suitable as a destination
// label: the place name if set, otherwise street and house number followed by the city.
func (a Address) Label() string {
	if !a.AddressFound {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}

	street := strings.TrimSpace(a.Street + " " + a.HouseNumber)
	switch {
	case street != "" && a.City != "":
		return street + ", " + a.City
	case street != "":
		return street
	case a.City != "":
		return a.City
	default:
		return a.DisplayName
	}
}
