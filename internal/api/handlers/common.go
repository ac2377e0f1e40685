package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func currentUserID(c *fiber.Ctx) uint {
	raw, _ := c.Locals("user_id").(string)
	id, _ := strconv.ParseUint(raw, 10, 64)
	return uint(id)
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func parsePagination(c *fiber.Ctx) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	return page, limit
}
