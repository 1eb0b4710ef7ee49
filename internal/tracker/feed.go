// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package tracker

import (
	"context"
	"time"
)

const feedBuffer = 64

// Feed is a Source for positions pushed by the host, e.g. a device reporting its
// fixes over the API. Readings pushed before the stream is opened are buffered.
type Feed struct {
	name     string
	readings chan Reading
}

// NewFeed returns an empty Feed.
func NewFeed(name string) *Feed {
	if name == "" {
		name = "feed"
	}
	return &Feed{name: name, readings: make(chan Reading, feedBuffer)}
}

func (f *Feed) Name() string {
	return f.name
}

// Push queues a fix. It returns false if the buffer is full and the fix was dropped.
func (f *Feed) Push(fix Fix) bool {
	if fix.At.IsZero() {
		fix.At = time.Now()
	}
	return f.push(Reading{Fix: fix})
}

// Fail queues an error reading. It returns false if the buffer is full.
func (f *Feed) Fail(err error) bool {
	if err == nil {
		return false
	}
	return f.push(Reading{Err: err})
}

func (f *Feed) push(reading Reading) bool {
	select {
	case f.readings <- reading:
		return true
	default:
		return false
	}
}

// Stream forwards the pushed readings until ctx is done.
func (f *Feed) Stream(ctx context.Context) <-chan Reading {
	out := make(chan Reading)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case reading := <-f.readings:
				select {
				case <-ctx.Done():
					return
				case out <- reading:
				}
			}
		}
	}()
	return out
}
