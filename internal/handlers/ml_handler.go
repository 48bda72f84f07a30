package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"bookshelf/internal/apierror"
	"bookshelf/internal/features"
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// MLHandler serves the feature views and the placeholder price prediction.
type MLHandler struct {
	featureService *services.FeatureService
	log            logrus.FieldLogger
}

// NewMLHandler creates a new MLHandler.
func NewMLHandler(featureService *services.FeatureService, log logrus.FieldLogger) *MLHandler {
	return &MLHandler{featureService: featureService, log: log}
}

// RegisterRoutes registers the /ml routes.
func (h *MLHandler) RegisterRoutes(router fiber.Router) {
	mlRoutes := router.Group("/ml")
	mlRoutes.Get("/features", h.Features)
	mlRoutes.Get("/training-data", h.TrainingData)
	mlRoutes.Post("/predictions", h.Predict)
}

// Features handles GET /ml/features.
func (h *MLHandler) Features(c *fiber.Ctx) error {
	p, err := pagination(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, err := h.featureService.Features(c.UserContext(), p)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(page)
}

// TrainingData handles GET /ml/training-data?sample_size=&train_split=&random_state=.
func (h *MLHandler) TrainingData(c *fiber.Ctx) error {
	sampleSize, err := queryInt(c, "sample_size", features.DefaultSampleSize)
	if err != nil {
		return badRequest(c, err)
	}
	ratio := features.DefaultTrainRatio
	if f, err := queryFloat(c, "train_split"); err != nil {
		return badRequest(c, err)
	} else if f != nil {
		ratio = *f
	}
	seed := int64(features.DefaultSeed)
	if raw := strings.TrimSpace(c.Query("random_state")); raw != "" {
		seed, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest,
				"query parameter 'random_state' must be an integer")
		}
	}

	set, err := h.featureService.TrainingData(c.UserContext(), sampleSize, ratio, seed)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(set)
}

// Predict handles POST /ml/predictions. The request body is echoed back
// unchanged as "input".
func (h *MLHandler) Predict(c *fiber.Ctx) error {
	body := c.Body()
	var in features.PredictionInput
	if err := json.Unmarshal(body, &in); err != nil {
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, "request body must be a JSON feature object")
	}

	price, err := h.featureService.Predict(in)
	if err != nil {
		var verr *features.ValidationError
		if !errors.As(err, &verr) {
			return serviceError(c, h.log, err)
		}
		extra := fiber.Map{}
		if len(verr.Missing) > 0 {
			extra["missing_fields"] = verr.Missing
		}
		if len(verr.Invalid) > 0 {
			extra["errors"] = verr.Invalid
		}
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.ValidationFailed, verr.Error(), extra)
	}

	return c.JSON(fiber.Map{
		"predicted_price": price,
		"input":           json.RawMessage(append([]byte(nil), body...)),
	})
}
