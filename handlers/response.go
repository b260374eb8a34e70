package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/sirupsen/logrus"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var notFoundErrors = []error{
	models.ErrCustomerNotFound,
	models.ErrProductNotFound,
	models.ErrInvoiceNotFound,
	models.ErrLoanNotFound,
	models.ErrKarigarNotFound,
	models.ErrJobNotFound,
	models.ErrVendorNotFound,
	models.ErrPurchaseNotFound,
	utils.ErrorRecordNotFound,
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
}

// fail maps validation errors to 400, 401 or 404 with their message. Anything
// else is logged and reported as a generic 500.
func fail(c *gin.Context, logger *logrus.Logger, funcName string, err error) {
	if utils.IsValidationError(err) {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrInvalidCredential) {
			status = http.StatusUnauthorized
		}
		for _, nf := range notFoundErrors {
			if errors.Is(err, nf) {
				status = http.StatusNotFound
				break
			}
		}
		c.JSON(status, Response{Success: false, Message: err.Error()})
		return
	}
	config.LogError(logger, "handlers", funcName, c.Request.Method+" "+c.FullPath(), c.Param("id"), err)
	c.JSON(http.StatusInternalServerError, Response{Success: false, Message: "operation failed"})
}

// bind decodes the JSON body into dest, answering 400 itself on failure.
func bind(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return false
	}
	return true
}
