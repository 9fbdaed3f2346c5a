package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"saferoute-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// statusClientClosedRequest клиент закрыл соединение до ответа
const statusClientClosedRequest = 499

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields,omitempty"`
}

var registerTagNames sync.Once

// useJSONFieldNames заставляет валидатор gin называть поля так же, как в JSON
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
}

// bindError переводит ошибку привязки запроса в ответ 400
func bindError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: validationMessage(fe),
			})
		}
		return ErrorResponse{Error: "Некорректные параметры запроса", Fields: fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return ErrorResponse{
			Error:  "Некорректные параметры запроса",
			Fields: []models.FieldError{{Field: typeErr.Field, Message: fmt.Sprintf("ожидается %s", typeErr.Type)}},
		}
	}

	return ErrorResponse{Error: "Некорректное тело запроса"}
}

// fieldPath отбрасывает имя корневой структуры: "planRoutesRequest.start.lat" -> "start.lat"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		return fmt.Sprintf("должно быть не меньше %s", fe.Param())
	case "max":
		return fmt.Sprintf("должно быть не больше %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("допустимые значения: %s", fe.Param())
	default:
		return fmt.Sprintf("не прошло проверку %s", fe.Tag())
	}
}

// writeError отвечает клиенту по ошибке сервиса
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationTitle(verr.Cause), Fields: verr.Fields})
	case errors.Is(err, models.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Маршрут не найден"})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "Превышено время обработки запроса"})
	default:
		logger.WithField("path", c.FullPath()).Errorf("Ошибка обработки запроса: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Внутренняя ошибка сервера"})
	}
}

func validationTitle(cause error) string {
	switch {
	case errors.Is(cause, models.ErrInvalidCoordinate):
		return "Некорректные координаты"
	case errors.Is(cause, models.ErrInvalidTransportMode):
		return "Неизвестный способ передвижения"
	case errors.Is(cause, models.ErrBatchSizeExceeded):
		return "Слишком много точек в запросе"
	case errors.Is(cause, models.ErrEmptyBatch):
		return "Список точек пуст"
	default:
		return "Некорректные параметры запроса"
	}
}
