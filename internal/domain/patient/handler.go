package patient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Self-service – any authenticated user manages their own record
	my := api.Group("/my-patient")
	my.POST("", h.CreateMine)
	my.GET("", h.GetMine)
	my.PATCH("", h.UpdateMine)

	// Admin surface – staff roles plus per-route permission levels
	admin := api.Group("/admin/patients", auth.RequireRole("Admin", "Super Admin"))
	admin.POST("", h.Create, auth.RequirePermission("patients", 2))
	admin.GET("", h.List, auth.RequirePermission("patients", 1))
	admin.GET("/stats", h.Stats, auth.RequirePermission("patients", 1))
	admin.GET("/:id", h.Get, auth.RequirePermission("patients", 1))
	admin.PATCH("/:id", h.Update, auth.RequirePermission("patients", 3))
	admin.DELETE("/:id", h.Delete, auth.RequireRole("Super Admin"), auth.RequirePermission("patients", 4))
}

func validationHTTPError(ve *ValidationError) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
		"message": "Validation failed",
		"errors":  ve.Fields,
	})
}

// mapCreateErr translates service sentinels for the create operation.
func mapCreateErr(err error, userID string) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("User with ID %q not found", userID))
	case errors.Is(err, ErrNotPatientRole):
		return echo.NewHTTPError(http.StatusBadRequest, "User must have Patient role")
	case errors.Is(err, ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "Patient record already exists for this user")
	}
	return err
}

// ── Admin handlers ──

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := in.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return validationHTTPError(ve)
		}
		return err
	}

	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return mapCreateErr(err, in.UserID)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Patient record created successfully",
		"data":    p,
	})
}

func (h *Handler) List(c echo.Context) error {
	q, err := ParseListQuery(c)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return validationHTTPError(ve)
		}
		return err
	}

	patients, total, err := h.svc.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total,
		pagination.Params{Page: q.Page, Limit: q.Limit}))
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	if stats.BloodTypeDistribution == nil {
		stats.BloodTypeDistribution = []BloodTypeCount{}
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Patient with ID %q not found", id))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": p})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch UpdateInput
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := patch.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return validationHTTPError(ve)
		}
		return err
	}

	p, err := h.svc.Update(c.Request().Context(), id, patch)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Patient with ID %q not found", id))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Patient record updated successfully",
		"data":    p,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	name, err := h.svc.Remove(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Patient with ID %q not found", id))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Patient record for %q has been deleted successfully", name),
	})
}

// ── Self-service handlers ──

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	return id, nil
}

// CreateMine creates the caller's own record. Any userId in the body is
// ignored and replaced with the authenticated caller's id.
func (h *Handler) CreateMine(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.UserID = uid.String()
	if err := in.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return validationHTTPError(ve)
		}
		return err
	}

	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return mapCreateErr(err, in.UserID)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Patient record created successfully",
		"data":    p,
	})
}

// GetMine returns the caller's record, or a 200 with a null body when the
// record does not exist yet.
func (h *Handler) GetMine(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}

	p, err := h.svc.GetByUserID(c.Request().Context(), uid)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data":    nil,
			"message": "No patient record found. Please create one.",
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": p})
}

func (h *Handler) UpdateMine(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}

	var patch UpdateInput
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := patch.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return validationHTTPError(ve)
		}
		return err
	}

	p, err := h.svc.UpdateByUserID(c.Request().Context(), uid, patch)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("Patient record not found for user %q", uid))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Patient record updated successfully",
		"data":    p,
	})
}
