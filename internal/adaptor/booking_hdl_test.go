package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/internal/usecase"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type stubBookingService struct {
	changeStatus func(id string, req *request.ChangeStatusRequest) (*response.StatusChangeResponse, error)
	list         func(req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

func (s *stubBookingService) CreateBooking(context.Context, *utils.Principal, *request.CreateBookingRequest) (*response.BookingResponse, error) {
	return &response.BookingResponse{ID: "b-1"}, nil
}

func (s *stubBookingService) GetBooking(context.Context, string) (*response.BookingDetailResponse, error) {
	return nil, &usecase.AppError{Code: usecase.CodeBookingNotFound, Message: "Booking not found"}
}

func (s *stubBookingService) ListBookings(_ context.Context, req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return s.list(req)
}

func (s *stubBookingService) ChangeStatus(_ context.Context, _ *utils.Principal, id string, req *request.ChangeStatusRequest) (*response.StatusChangeResponse, error) {
	return s.changeStatus(id, req)
}

type stubDispatchService struct {
	assign        func(actor *utils.Principal, id string, req *request.AssignDriverRequest) (*response.AssignmentResponse, error)
	assignNearest func(req *request.AssignNearestRequest) (*response.AssignmentResponse, error)
}

func (s *stubDispatchService) Assign(_ context.Context, actor *utils.Principal, id string, req *request.AssignDriverRequest) (*response.AssignmentResponse, error) {
	return s.assign(actor, id, req)
}

func (s *stubDispatchService) AssignNearest(_ context.Context, _ *utils.Principal, _ string, req *request.AssignNearestRequest) (*response.AssignmentResponse, error) {
	return s.assignNearest(req)
}

func (s *stubDispatchService) Unassign(context.Context, *utils.Principal, string, *request.UnassignRequest) (*response.UnassignResponse, error) {
	return nil, errors.New("connection reset by peer")
}

type envelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	ErrorCode string            `json:"error_code"`
	Data      json.RawMessage   `json:"data"`
	Errors    map[string]string `json:"errors"`
}

func bookingRouter(bookings *stubBookingService, dispatch *stubDispatchService) *chi.Mux {
	h := NewBookingHandler(bookings, dispatch, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/bookings", h.ListBookings)
	r.Get("/api/bookings/{id}", h.GetBooking)
	r.Post("/api/bookings/{id}/assign", h.Assign)
	r.Post("/api/bookings/{id}/assign-nearest", h.AssignNearest)
	r.Post("/api/bookings/{id}/unassign", h.Unassign)
	r.Post("/api/bookings/{id}/status", h.ChangeStatus)
	return r
}

func serve(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not a JSON envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestAssign_PassesPathAndBody(t *testing.T) {
	var gotID, gotDriver string
	dispatch := &stubDispatchService{
		assign: func(_ *utils.Principal, id string, req *request.AssignDriverRequest) (*response.AssignmentResponse, error) {
			gotID, gotDriver = id, req.DriverID
			return &response.AssignmentResponse{BookingID: id, DriverID: req.DriverID, Status: "confirmed"}, nil
		},
	}
	router := bookingRouter(&stubBookingService{}, dispatch)

	rec, env := serve(t, router, http.MethodPost, "/api/bookings/b-42/assign", `{"driver_id":"d-7"}`)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, envelope = %+v", rec.Code, env)
	}
	if gotID != "b-42" || gotDriver != "d-7" {
		t.Errorf("service saw id %q driver %q", gotID, gotDriver)
	}
}

func TestAssign_ResponseCarriesDriverAndVehicle(t *testing.T) {
	km, eta := 1.2, 3
	dispatch := &stubDispatchService{
		assignNearest: func(*request.AssignNearestRequest) (*response.AssignmentResponse, error) {
			return &response.AssignmentResponse{
				BookingID:  "b-1",
				DriverID:   "d-7",
				VehicleID:  "v-3",
				Driver:     &response.DriverResponse{ID: "d-7", FullName: "Juan Dela Cruz", Status: "busy"},
				Vehicle:    &response.VehicleResponse{ID: "v-3", PlateNumber: "ABC-1234"},
				Status:     "confirmed",
				DistanceKm: &km,
				EtaMinutes: &eta,
			}, nil
		},
	}
	router := bookingRouter(&stubBookingService{}, dispatch)

	rec, env := serve(t, router, http.MethodPost, "/api/bookings/b-1/assign-nearest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var data struct {
		Driver struct {
			ID       string `json:"id"`
			FullName string `json:"full_name"`
		} `json:"driver"`
		Vehicle struct {
			ID          string `json:"id"`
			PlateNumber string `json:"plate_number"`
		} `json:"vehicle"`
		DistanceKm float64 `json:"distance_km"`
		EtaMinutes int     `json:"eta_minutes"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("data: %v", err)
	}
	if data.Driver.ID != "d-7" || data.Driver.FullName != "Juan Dela Cruz" {
		t.Errorf("driver = %+v", data.Driver)
	}
	if data.Vehicle.ID != "v-3" || data.Vehicle.PlateNumber != "ABC-1234" {
		t.Errorf("vehicle = %+v", data.Vehicle)
	}
	if data.DistanceKm != 1.2 || data.EtaMinutes != 3 {
		t.Errorf("distance/eta = %v/%v", data.DistanceKm, data.EtaMinutes)
	}
}

func TestServiceErrorsMapToEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "conflict",
			err:        &usecase.AppError{Code: usecase.CodeAlreadyAssigned, Message: "Booking already has a driver"},
			wantStatus: http.StatusConflict,
			wantCode:   "ALREADY_ASSIGNED",
			wantMsg:    "Booking already has a driver",
		},
		{
			name:       "not found",
			err:        &usecase.AppError{Code: usecase.CodeDriverNotFound, Message: "Driver not found"},
			wantStatus: http.StatusNotFound,
			wantCode:   "DRIVER_NOT_FOUND",
			wantMsg:    "Driver not found",
		},
		{
			name:       "internal cause is hidden",
			err:        &usecase.AppError{Code: usecase.CodeInternal, Message: "Internal server error", Err: errors.New(`pq: relation "drivers" does not exist`)},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "Internal server error",
		},
		{
			name:       "consistency warning",
			err:        &usecase.AppError{Code: usecase.CodeConsistencyWarning, Message: "Operation flagged for review"},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "CONSISTENCY_WARNING",
			wantMsg:    "Operation flagged for review",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatch := &stubDispatchService{
				assign: func(*utils.Principal, string, *request.AssignDriverRequest) (*response.AssignmentResponse, error) {
					return nil, tt.err
				},
			}
			rec, env := serve(t, bookingRouter(&stubBookingService{}, dispatch), http.MethodPost, "/api/bookings/b-1/assign", `{"driver_id":"d-1"}`)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if env.Success || env.ErrorCode != tt.wantCode || env.Message != tt.wantMsg {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestValidationFieldsAreReturned(t *testing.T) {
	bookings := &stubBookingService{
		changeStatus: func(string, *request.ChangeStatusRequest) (*response.StatusChangeResponse, error) {
			return nil, &usecase.AppError{Code: usecase.CodeValidation, Message: "Validation failed", Fields: map[string]string{"Status": "This field is required"}}
		},
	}
	rec, env := serve(t, bookingRouter(bookings, &stubDispatchService{}), http.MethodPost, "/api/bookings/b-1/status", `{}`)

	if rec.Code != http.StatusBadRequest || env.ErrorCode != "VALIDATION_FAILED" {
		t.Fatalf("status = %d, envelope = %+v", rec.Code, env)
	}
	if env.Errors["Status"] == "" {
		t.Errorf("field errors = %v", env.Errors)
	}
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	rec, env := serve(t, bookingRouter(&stubBookingService{}, &stubDispatchService{}), http.MethodPost, "/api/bookings/b-1/unassign", "")
	if rec.Code != http.StatusInternalServerError || env.ErrorCode != "INTERNAL_ERROR" {
		t.Fatalf("status = %d, envelope = %+v", rec.Code, env)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("internal cause leaked to the client")
	}
}

func TestBodyHandling(t *testing.T) {
	var nearest *request.AssignNearestRequest
	dispatch := &stubDispatchService{
		assign: func(*utils.Principal, string, *request.AssignDriverRequest) (*response.AssignmentResponse, error) {
			t.Fatal("service called with a bad body")
			return nil, nil
		},
		assignNearest: func(req *request.AssignNearestRequest) (*response.AssignmentResponse, error) {
			nearest = req
			return &response.AssignmentResponse{}, nil
		},
	}
	router := bookingRouter(&stubBookingService{}, dispatch)

	if rec, env := serve(t, router, http.MethodPost, "/api/bookings/b-1/assign", `{"driver_id":`); rec.Code != http.StatusBadRequest || env.ErrorCode != "VALIDATION_FAILED" {
		t.Errorf("malformed body: status = %d, envelope = %+v", rec.Code, env)
	}
	if rec, _ := serve(t, router, http.MethodPost, "/api/bookings/b-1/assign", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing body: status = %d", rec.Code)
	}

	if rec, _ := serve(t, router, http.MethodPost, "/api/bookings/b-1/assign-nearest", ""); rec.Code != http.StatusOK {
		t.Fatalf("assign-nearest without body: status = %d", rec.Code)
	}
	if nearest == nil || nearest.MaxDistanceKm != nil {
		t.Errorf("assign-nearest request = %+v, want empty", nearest)
	}
}

func TestListBookings_QueryDefaults(t *testing.T) {
	var got *request.BookingListRequest
	bookings := &stubBookingService{
		list: func(req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
			got = req
			return response.NewPaginatedResponse([]response.BookingResponse{}, req.Page, req.PerPage, 0), nil
		},
	}
	router := bookingRouter(bookings, &stubDispatchService{})

	serve(t, router, http.MethodGet, "/api/bookings?status=pending&page=abc", "")
	if got == nil || got.Page != 1 || got.PerPage != 10 || got.Status != "pending" {
		t.Errorf("list request = %+v", got)
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	rec, env := serve(t, bookingRouter(&stubBookingService{}, &stubDispatchService{}), http.MethodGet, "/api/bookings/b-404", "")
	if rec.Code != http.StatusNotFound || env.ErrorCode != "BOOKING_NOT_FOUND" {
		t.Fatalf("status = %d, envelope = %+v", rec.Code, env)
	}
}
