package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/services"
)

type GeocodeHandler struct {
	lookup services.AddressLookup
}

func NewGeocodeHandler(lookup services.AddressLookup) *GeocodeHandler {
	return &GeocodeHandler{lookup: lookup}
}

// Reverse never fails upstream: lookup errors come back as fallback text.
func (h *GeocodeHandler) Reverse(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || !models.ValidLatitude(lat) {
		return badRequest(c, "lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil || !models.ValidLongitude(lon) {
		return badRequest(c, "lon must be a number between -180 and 180")
	}

	address := services.DescribeLocation(c.UserContext(), h.lookup, lat, lon)
	return c.JSON(dto.GeocodeResponse{Success: true, Address: address})
}
