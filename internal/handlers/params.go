package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bookshelf/internal/apierror"
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// queryInt reads an optional integer query parameter.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter '%s' must be an integer", key)
	}
	return v, nil
}

// queryFloat reads an optional float query parameter; nil means absent.
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("query parameter '%s' must be a number", key)
	}
	return &v, nil
}

// pagination reads page and page_size. limit is accepted as an alias of
// page_size.
func pagination(c *fiber.Ctx) (services.Pagination, error) {
	page, err := queryInt(c, "page", services.DefaultPage)
	if err != nil {
		return services.Pagination{}, err
	}
	sizeKey := "page_size"
	if c.Query(sizeKey) == "" && c.Query("limit") != "" {
		sizeKey = "limit"
	}
	size, err := queryInt(c, sizeKey, services.DefaultPageSize)
	if err != nil {
		return services.Pagination{}, err
	}
	return services.NewPagination(page, size), nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, err.Error())
}

// serviceError maps a service error to its HTTP response. Unknown errors
// come from the store and are logged.
func serviceError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return badRequest(c, err)
	case errors.Is(err, services.ErrNotFound):
		return apierror.Respond(c, fiber.StatusNotFound, apierror.NotFound, err.Error())
	case errors.Is(err, services.ErrCatalogFile):
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.CatalogFileError, err.Error())
	case errors.Is(err, services.ErrStoreUnavailable):
		log.WithError(err).Error("Ingestion rolled back")
		return apierror.Respond(c, fiber.StatusServiceUnavailable, apierror.StoreUnavailable,
			"ingestion failed and was rolled back, nothing was committed; trigger a new load")
	default:
		log.WithError(err).WithField("path", c.Path()).Error("Store request failed")
		return apierror.Respond(c, fiber.StatusServiceUnavailable, apierror.StoreUnavailable,
			"the catalog store is unavailable, try again later")
	}
}
