package handler

import (
	"net/http"
	"strconv"

	"github.com/bibliotek/biblioteca-service/biblioteca/internal/errs"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	md "github.com/bibliotek/biblioteca-service/pkg/middleware"
	"github.com/bibliotek/biblioteca-service/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Handler struct {
	circulationSvc CirculationService
	catalogSvc     CatalogService
	log            *zap.Logger
}

func New(circulationSvc CirculationService, catalogSvc CatalogService, log *zap.Logger) *Handler {
	return &Handler{
		circulationSvc: circulationSvc,
		catalogSvc:     catalogSvc,
		log:            log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.GetBooks)
	api.GET("/books/:bookUid", h.GetBook)
	api.DELETE("/books/:bookUid", h.DeleteBook)
	api.GET("/books/:bookUid/available", h.AvailableCopies)
	api.POST("/books/:bookUid/enrich", h.EnrichBook)

	api.POST("/patrons", h.CreatePatron)
	api.GET("/patrons/:patronUid", h.GetPatron)
	api.POST("/staff", h.CreateStaff)

	api.POST("/loans", h.CreateLoan)
	api.GET("/loans/:loanUid", h.GetLoan)
	api.GET("/loans/:loanUid/fines", h.GetLoanFines)
	api.POST("/loans/:loanUid/activate", h.ActivateLoan)
	api.POST("/loans/:loanUid/return", h.ReturnLoan)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps domain sentinels onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrPrecondition),
		errors.Is(err, errs.ErrInvalidState),
		errors.Is(err, errs.ErrHasReferences),
		errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	book, err := h.circulationSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.circulationSvc.GetBook(c.Request().Context(), c.Param("bookUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) GetBooks(c echo.Context) error {
	var (
		err  error
		page int
		size int
	)
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if page, err = strconv.Atoi(pageParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("page is invalid"))
		}
	}
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		if size, err = strconv.Atoi(sizeParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("size is invalid"))
		}
	}

	books, err := h.circulationSvc.ListBooks(c.Request().Context(), page, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	if err := h.circulationSvc.DeleteBook(c.Request().Context(), c.Param("bookUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AvailableCopies(c echo.Context) error {
	available, err := h.circulationSvc.AvailableCopies(c.Request().Context(), c.Param("bookUid"))
	if err != nil {
		return httpError(err)
	}
	type resp struct {
		AvailableCopies int `json:"availableCopies"`
	}
	return c.JSON(http.StatusOK, resp{AvailableCopies: available})
}

func (h *Handler) EnrichBook(c echo.Context) error {
	book, err := h.catalogSvc.Resolve(c.Request().Context(), c.Param("bookUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreatePatron(c echo.Context) error {
	var req model.CreatePatronRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	patron, err := h.circulationSvc.CreatePatron(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, patron)
}

func (h *Handler) GetPatron(c echo.Context) error {
	patron, err := h.circulationSvc.GetPatron(c.Request().Context(), c.Param("patronUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patron)
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var req model.CreateStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	st, err := h.circulationSvc.CreateStaff(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	loan, err := h.circulationSvc.CreateLoan(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) GetLoan(c echo.Context) error {
	loan, err := h.circulationSvc.GetLoan(c.Request().Context(), c.Param("loanUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) GetLoanFines(c echo.Context) error {
	fines, err := h.circulationSvc.ListFines(c.Request().Context(), c.Param("loanUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, fines)
}

func (h *Handler) ActivateLoan(c echo.Context) error {
	loan, err := h.circulationSvc.Activate(c.Request().Context(), c.Param("loanUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ReturnLoan(c echo.Context) error {
	loan, err := h.circulationSvc.Return(c.Request().Context(), c.Param("loanUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}
