package schedule

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cmd/doctor/internal/platform/auth"
	"github.com/cmd/doctor/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff, auth.RoleViewer))
	readGroup.GET("/doctors/:id/schedules", h.List)
	readGroup.GET("/doctors/:id/schedules.ics", h.Calendar)
	readGroup.GET("/doctors/:id/schedules/:scheduleId", h.Get)
	readGroup.GET("/doctors/:id/availability", h.Availability)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	writeGroup.POST("/doctors/:id/schedules", h.Create)
	writeGroup.PUT("/doctors/:id/schedules/:scheduleId", h.Update)
}

func (h *Handler) Create(c echo.Context) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.Create(c.Request().Context(), actor, doctorID, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) Update(c echo.Context) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	entryID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.Edit(c.Request().Context(), actor, doctorID, entryID, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Get(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	entryID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	entry, err := h.svc.Get(c.Request().Context(), doctorID, entryID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) List(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	pg, err := pagination.FromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var f ListFilter
	if w := c.QueryParam("weekday"); w != "" {
		day, err := ParseWeekday(w)
		if err != nil {
			return httpError(err)
		}
		f.Weekday = day
	}
	f.ActiveOnly = c.QueryParam("active") == "true"

	items, total, err := h.svc.List(c.Request().Context(), doctorID, f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var exclude *uuid.UUID
	if ex := c.QueryParam("exclude"); ex != "" {
		id, err := uuid.Parse(ex)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid exclude id")
		}
		exclude = &id
	}
	result, err := h.svc.CheckAvailability(c.Request().Context(), doctorID,
		c.QueryParam("weekday"), c.QueryParam("start"), c.QueryParam("end"), exclude)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Calendar(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	body, err := h.svc.Calendar(c.Request().Context(), doctorID)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="schedule-`+doctorID.String()+`.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidWeekday), errors.Is(err, ErrInvalidTimeRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrScheduleConflict), errors.Is(err, ErrPersistenceConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrMissingActor):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}
