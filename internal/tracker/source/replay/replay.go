// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package replay plays back a recorded track of positions, for simulations and demos.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

const (
	name            = "replay"
	DefaultInterval = time.Second
	defaultAccuracy = 5
)

var ErrEmptyTrack = errors.New("track contains no points")

// Track is the YAML representation of a recorded route.
//
//	interval: 1s
//	loop: false
//	points:
//	  - {lat: 42.76, lng: 11.11, heading: 0, accuracy: 5}
//	  - {error: unavailable}
type Track struct {
	Interval time.Duration `yaml:"interval"`
	Loop     bool          `yaml:"loop"`
	Points   []Point       `yaml:"points"`
}

// Point is a single track entry. If Error is set, the entry replays a position error of
// that kind instead of a fix.
type Point struct {
	Lat      float64  `yaml:"lat"`
	Lng      float64  `yaml:"lng"`
	Heading  *float64 `yaml:"heading,omitempty"`
	Accuracy float64  `yaml:"accuracy,omitempty"`
	Error    string   `yaml:"error,omitempty"`
}

// Source replays a Track. When the track ends the stream stays open without further
// readings, unless the track loops.
type Source struct {
	track Track
}

// New returns a Source for the given track.
func New(track Track) (*Source, error) {
	if len(track.Points) == 0 {
		return nil, ErrEmptyTrack
	}
	if track.Interval <= 0 {
		track.Interval = DefaultInterval
	}
	for i, point := range track.Points {
		if point.Error != "" {
			if _, err := tracker.ParseErrorKind(point.Error); err != nil {
				return nil, fmt.Errorf("invalid track point %d: %w", i, err)
			}
			continue
		}
		if !(geo.Coordinate{Lat: point.Lat, Lng: point.Lng}).Valid() {
			return nil, fmt.Errorf("invalid track point %d: coordinate out of range", i)
		}
	}
	return &Source{track: track}, nil
}

// Load reads a YAML track from r.
func Load(r io.Reader) (*Source, error) {
	var track Track
	if err := yaml.NewDecoder(r).Decode(&track); err != nil {
		return nil, fmt.Errorf("failed to decode track: %w", err)
	}
	return New(track)
}

// LoadFile reads a YAML track file.
func LoadFile(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return Load(file)
}

func (s *Source) Name() string {
	return name
}

// Len returns the number of track points.
func (s *Source) Len() int {
	return len(s.track.Points)
}

// Stream emits the first point immediately and the following points at the track
// interval.
func (s *Source) Stream(ctx context.Context) <-chan tracker.Reading {
	out := make(chan tracker.Reading)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.track.Interval)
		defer ticker.Stop()

		for {
			for i, point := range s.track.Points {
				if i > 0 {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
				select {
				case <-ctx.Done():
					return
				case out <- point.reading():
				}
			}
			if !s.track.Loop {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		<-ctx.Done()
	}()
	return out
}

func (p Point) reading() tracker.Reading {
	if p.Error != "" {
		err, _ := tracker.ParseErrorKind(p.Error)
		return tracker.Reading{Err: fmt.Errorf("%w: replayed", err)}
	}
	fix := tracker.Fix{Lat: p.Lat, Lng: p.Lng, Accuracy: p.Accuracy, At: time.Now()}
	if fix.Accuracy <= 0 {
		fix.Accuracy = defaultAccuracy
	}
	if p.Heading != nil {
		fix.Heading.Set(*p.Heading)
	}
	return tracker.Reading{Fix: fix}
}
