package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"movers-dispatch/internal/usecase"
	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Booking *BookingHandler
	Driver  *DriverHandler
	Vehicle *VehicleHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Booking: NewBookingHandler(service.Booking, service.Dispatch, log),
		Driver:  NewDriverHandler(service.Driver, service.Location, service.Ranker, log),
		Vehicle: NewVehicleHandler(service.Vehicle, log),
	}
}

var errEmptyBody = errors.New("empty request body")

// decodeBody reads a JSON body into dst. An empty body is accepted when
// optional is true and leaves dst untouched.
func decodeBody(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		if optional {
			return nil
		}
		return errEmptyBody
	}
	return err
}

// writeError renders a service error in the response envelope. Internal
// causes are logged and replaced with a generic message.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var appErr *usecase.AppError
	if !errors.As(err, &appErr) {
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("error_code", string(appErr.Code)))
		message := "Internal server error"
		if appErr.Code == usecase.CodeConsistencyWarning {
			message = appErr.Message
		}
		utils.ResponseError(w, status, string(appErr.Code), message, nil)
		return
	}

	logFields := []zap.Field{
		zap.String("error_code", string(appErr.Code)),
		zap.String("reason", appErr.Message),
	}

	var fields any
	if len(appErr.Fields) > 0 {
		fields = appErr.Fields
		logFields = append(logFields, zap.String("fields", utils.FormatValidationErrors(appErr.Fields)))
	}
	log.Warn(operation+" failed", logFields...)
	utils.ResponseError(w, status, string(appErr.Code), appErr.Message, fields)
}

func principal(r *http.Request) *utils.Principal {
	p, _ := utils.GetPrincipal(r.Context())
	return p
}
