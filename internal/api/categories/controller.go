package categories

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sparklens/tweetgrab/internal/api/util"
	"github.com/sparklens/tweetgrab/internal/category"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

var log = logger.Get("CategoryController")

type (
	Store interface {
		CreateCategory(name string) (*category.Category, error)
		ListCategories() ([]*category.Category, error)
	}

	createRequest struct {
		Name string `json:"name" validate:"required,min=1,max=128"`
	}

	categoryDto struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}

	Controller struct {
		store    Store
		validate *validator.Validate
	}
)

func New(validate *validator.Validate, store Store) *Controller {
	return &Controller{store: store, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
}

func (controller *Controller) SetProtectedRoutes(eg *echo.Group) {
	eg.POST("/", controller.create)
}

func (controller *Controller) create(ec echo.Context) error {
	var request createRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is malformed")
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := controller.store.CreateCategory(request.Name)
	if err != nil {
		if errors.Is(err, category.ErrCategoryAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}

		log.Errorf("Failed to create category: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return ec.JSON(http.StatusCreated, categoryToDto(created))
}

func (controller *Controller) list(ec echo.Context) error {
	categories, err := controller.store.ListCategories()
	if err != nil {
		log.Errorf("Failed to list categories: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(categories, categoryToDto))
}

func categoryToDto(c *category.Category) categoryDto {
	return categoryDto{ID: c.ID, Name: c.Name}
}
