// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/navigation"
	"github.com/mercatocomunale/navigator/internal/presenter"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/tracker"
	"github.com/mercatocomunale/navigator/internal/vartype"
)

type createRequest struct {
	Lat             *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng             *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	DestinationName string   `json:"destination_name" validate:"max=200"`
	Mode            string   `json:"mode" validate:"omitempty,oneof=walking cycling driving"`
	VoiceEnabled    *bool    `json:"voice_enabled"`
	SpeechLocale    string   `json:"speech_locale" validate:"omitempty,bcp47_language_tag"`
	SpeechRate      float64  `json:"speech_rate" validate:"omitempty,gt=0,lte=3"`
}

type fixRequest struct {
	Lat      *float64           `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng      *float64           `json:"lng" validate:"required,gte=-180,lte=180"`
	Heading  vartype.VarFloat64 `json:"heading"`
	Accuracy float64            `json:"accuracy" validate:"gte=0"`
	At       time.Time          `json:"at"`
}

type gpsErrorRequest struct {
	Kind string `json:"kind" validate:"required,oneof=permission_denied unavailable timeout"`
}

type retryRequest struct {
	Target string `json:"target" validate:"omitempty,oneof=gps route"`
}

type voiceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// sessionResponse is a snapshot with its host-facing texts.
type sessionResponse struct {
	navigation.Snapshot
	StateText    string `json:"state_text"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func RegisterRoutes(r fiber.Router, s *Server) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req createRequest
		if err := s.parse(c, &req); err != nil {
			return err
		}
		voice := true
		if req.VoiceEnabled != nil {
			voice = *req.VoiceEnabled
		}
		mode := route.ModeWalking
		if req.Mode != "" {
			mode = route.Mode(req.Mode)
		}
		entry, err := s.Manager.Create(SessionOptions{
			Destination:     geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng},
			DestinationName: req.DestinationName,
			Mode:            mode,
			VoiceEnabled:    voice,
			SpeechLocale:    req.SpeechLocale,
			SpeechRate:      req.SpeechRate,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(s.response(entry.Session.Snapshot()))
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		return c.JSON(s.response(entry.Session.Snapshot()))
	})

	r.Get("/:id/announcements", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		after, err := strconv.ParseUint(c.Query("after", "0"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "after must be a sequence number")
		}
		return c.JSON(entry.Announcements(after))
	})

	r.Post("/:id/fixes", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		var req fixRequest
		if err = s.parse(c, &req); err != nil {
			return err
		}
		accepted := entry.Feed.Push(tracker.Fix{
			Lat:      *req.Lat,
			Lng:      *req.Lng,
			Heading:  req.Heading,
			Accuracy: req.Accuracy,
			At:       req.At,
		})
		if !accepted {
			return fiber.NewError(fiber.StatusTooManyRequests, "position buffer is full")
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/gps-errors", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		var req gpsErrorRequest
		if err = s.parse(c, &req); err != nil {
			return err
		}
		gpsErr, err := tracker.ParseErrorKind(req.Kind)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !entry.Feed.Fail(gpsErr) {
			return fiber.NewError(fiber.StatusTooManyRequests, "position buffer is full")
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/recalculate", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		if err = entry.Session.Recalculate(); err != nil {
			return sessionError(err)
		}
		return c.JSON(s.response(entry.Session.Snapshot()))
	})

	r.Post("/:id/retry", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		var req retryRequest
		if len(c.Body()) > 0 {
			if err = s.parse(c, &req); err != nil {
				return err
			}
		}
		target := req.Target
		if target == "" {
			target = "route"
			if state := entry.Session.Snapshot().State; state == navigation.StateGPSError ||
				state == navigation.StateAcquiringGPS {
				target = "gps"
			}
		}
		if target == "gps" {
			err = entry.Session.RetryGPS()
		} else {
			err = entry.Session.RetryRoute()
		}
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(s.response(entry.Session.Snapshot()))
	})

	r.Put("/:id/voice", func(c *fiber.Ctx) error {
		entry, err := s.entry(c)
		if err != nil {
			return err
		}
		var req voiceRequest
		if err = s.parse(c, &req); err != nil {
			return err
		}
		if err = entry.Session.SetVoiceEnabled(*req.Enabled); err != nil {
			return sessionError(err)
		}
		return c.JSON(fiber.Map{"voice_enabled": *req.Enabled})
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := s.Manager.Delete(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// parse decodes and validates the request body into target.
func (s *Server) parse(c *fiber.Ctx, target any) error {
	if err := c.BodyParser(target); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.validate.Struct(target); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) entry(c *fiber.Ctx) (*Entry, error) {
	entry, err := s.Manager.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return entry, nil
}

func (s *Server) response(snap navigation.Snapshot) sessionResponse {
	resp := sessionResponse{
		Snapshot:  snap,
		StateText: s.t.Get(presenter.StateTexts[snap.State]),
	}
	if msgID, ok := presenter.ErrorTexts[snap.ErrorKind]; ok {
		resp.ErrorMessage = s.t.Get(msgID)
	}
	return resp
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, navigation.ErrClosed):
		return fiber.NewError(fiber.StatusGone, err.Error())
	case errors.Is(err, navigation.ErrInvalidState), errors.Is(err, navigation.ErrNoPosition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
