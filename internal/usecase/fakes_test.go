package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store unavailable")

// world is an in-memory stand-in for both stores. Every write takes the lock
// and applies the same conditions as the SQL it replaces.
type world struct {
	mu sync.Mutex

	drivers     map[uuid.UUID]*entity.Driver
	vehicles    map[uuid.UUID]*entity.Vehicle
	assignments []*entity.AssignmentHistory
	locHistory  []*entity.DriverLocationHistory
	warnings    []*entity.ConsistencyWarning

	users    map[uuid.UUID]*entity.User
	sessions map[uuid.UUID]*entity.Session
	perms    map[entity.UserRole][]string
	bookings map[uuid.UUID]*entity.Booking
	history  []*entity.BookingStatusHistory
	payments map[uuid.UUID]*entity.Payment

	// hooks run with the lock held
	beforeClaim      func(w *world, driverID uuid.UUID)
	beforeAttach     func(w *world, driverID uuid.UUID)
	beforeTransition func(w *world, change repository.StatusChange)
	assignErr        error
	releaseErr       error
	restoreErr       error
	revertErr        error
	auditErr         error
	candidatesErr    error
}

func newWorld() *world {
	return &world{
		drivers:  map[uuid.UUID]*entity.Driver{},
		vehicles: map[uuid.UUID]*entity.Vehicle{},
		users:    map[uuid.UUID]*entity.User{},
		sessions: map[uuid.UUID]*entity.Session{},
		perms:    map[entity.UserRole][]string{},
		bookings: map[uuid.UUID]*entity.Booking{},
		payments: map[uuid.UUID]*entity.Payment{},
	}
}

func (w *world) repository() *repository.Repository {
	return &repository.Repository{
		Driver:     &fakeDriverRepo{w},
		Vehicle:    &fakeVehicleRepo{w},
		Assignment: &fakeAssignmentRepo{w},
		Location:   &fakeLocationRepo{w},
		Audit:      &fakeAuditRepo{w},
		User:       &fakeUserRepo{w},
		Session:    &fakeSessionRepo{w},
		Permission: &fakePermissionRepo{w},
		Booking:    &fakeBookingRepo{w},
		Payment:    &fakePaymentRepo{w},
	}
}

// ---- seeding ----

func ptr[T any](v T) *T { return &v }

func (w *world) addDriver(status entity.DriverStatus, lat, lng *float64) *entity.Driver {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := &entity.Driver{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		FullName:     "Driver",
		Status:       status,
		CurrentLat:   lat,
		CurrentLng:   lng,
		Rating:       5,
	}
	if lat != nil {
		d.LocationUpdatedAt = ptr(testNow.Add(-time.Minute))
	}
	w.drivers[d.ID] = d
	return d
}

func (w *world) addVehicle(driverID *uuid.UUID, status entity.VehicleStatus) *entity.Vehicle {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := &entity.Vehicle{
		BaseNoDelete:     entity.BaseNoDelete{ID: uuid.New()},
		PlateNumber:      "ABC-" + uuid.NewString()[:4],
		Model:            "Van",
		Capacity:         6,
		Status:           status,
		AssignedDriverID: driverID,
	}
	w.vehicles[v.ID] = v
	return v
}

// addDispatchable seeds an available driver at lat,lng with an active vehicle.
func (w *world) addDispatchable(lat, lng float64) (*entity.Driver, *entity.Vehicle) {
	d := w.addDriver(entity.DriverStatusAvailable, ptr(lat), ptr(lng))
	id := d.ID
	v := w.addVehicle(&id, entity.VehicleStatusActive)
	return d, v
}

func (w *world) addBooking(status entity.BookingStatus, lat, lng *float64) *entity.Booking {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := &entity.Booking{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		BookingNumber: "MOV-TEST",
		CustomerID:    uuid.New(),
		PickupAddress: "Ayala Ave, Makati",
		PickupLat:     lat,
		PickupLng:     lng,
		Status:        status,
		EstimatedFare: 150,
		StatusVersion: 1,
	}
	w.bookings[b.ID] = b
	return b
}

func (w *world) addUser(role entity.UserRole, active bool) *entity.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := &entity.User{
		Base:     entity.Base{ID: uuid.New()},
		Username: "user-" + uuid.NewString()[:6],
		Email:    uuid.NewString()[:6] + "@example.com",
		Role:     role,
		IsActive: active,
	}
	w.users[u.ID] = u
	return u
}

// ---- snapshots ----

func (w *world) driver(id uuid.UUID) entity.Driver {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.drivers[id]
}

func (w *world) booking(id uuid.UUID) entity.Booking {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.bookings[id]
}

func (w *world) openDispatchRecords(bookingID uuid.UUID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, h := range w.assignments {
		if h.BookingID != nil && *h.BookingID == bookingID && h.IsOpen() {
			n++
		}
	}
	return n
}

func (w *world) dispatchRecords(bookingID uuid.UUID) []entity.AssignmentHistory {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []entity.AssignmentHistory
	for _, h := range w.assignments {
		if h.BookingID != nil && *h.BookingID == bookingID {
			out = append(out, *h)
		}
	}
	return out
}

func (w *world) historyOf(bookingID uuid.UUID) []entity.BookingStatusHistory {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []entity.BookingStatusHistory
	for _, h := range w.history {
		if h.BookingID == bookingID {
			out = append(out, *h)
		}
	}
	return out
}

func (w *world) warningCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.warnings)
}

func (w *world) appendHistory(bookingID uuid.UUID, from *entity.BookingStatus, to entity.BookingStatus, by *uuid.UUID, reason *string, at time.Time) {
	w.history = append(w.history, &entity.BookingStatusHistory{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: at},
		BookingID:  bookingID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  by,
		Reason:     reason,
	})
}

// ---- core1 ----

type fakeDriverRepo struct{ w *world }

func (r *fakeDriverRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Driver, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	d, ok := r.w.drivers[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDriverRepo) FindAvailableCandidates(_ context.Context, f repository.CandidateFilter) ([]entity.DriverCandidate, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.candidatesErr != nil {
		return nil, r.w.candidatesErr
	}

	var allowed map[uuid.UUID]bool
	if f.DriverIDs != nil {
		allowed = map[uuid.UUID]bool{}
		for _, id := range f.DriverIDs {
			allowed[id] = true
		}
	}

	var out []entity.DriverCandidate
	for _, d := range r.w.drivers {
		if d.Status != entity.DriverStatusAvailable || d.CurrentLat == nil || d.CurrentLng == nil {
			continue
		}
		if *d.CurrentLat == 0 && *d.CurrentLng == 0 {
			continue
		}
		if *d.CurrentLat < f.Box.MinLat || *d.CurrentLat > f.Box.MaxLat {
			continue
		}
		if f.Box.LngBounded && (*d.CurrentLng < f.Box.MinLng || *d.CurrentLng > f.Box.MaxLng) {
			continue
		}
		if allowed != nil && !allowed[d.ID] {
			continue
		}
		c := entity.DriverCandidate{Driver: *d}
		for _, v := range r.w.vehicles {
			if v.AssignedDriverID != nil && *v.AssignedDriverID == d.ID && v.Status == entity.VehicleStatusActive {
				cp := *v
				c.Vehicle = &cp
			}
		}
		if f.RequireVehicle && c.Vehicle == nil {
			continue
		}
		out = append(out, c)
	}
	// map order is random; the ranker must not depend on it
	sort.Slice(out, func(i, j int) bool { return out[i].Driver.ID.String() > out[j].Driver.ID.String() })
	return out, nil
}

func (r *fakeDriverRepo) ListLocated(_ context.Context) ([]entity.DriverLocation, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []entity.DriverLocation
	for _, d := range r.w.drivers {
		if d.Status == entity.DriverStatusInactive || d.CurrentLat == nil || d.CurrentLng == nil {
			continue
		}
		out = append(out, entity.DriverLocation{DriverID: d.ID, Lat: *d.CurrentLat, Lng: *d.CurrentLng, Status: d.Status})
	}
	return out, nil
}

func (r *fakeDriverRepo) ClaimForBooking(_ context.Context, driverID, vehicleID, bookingID uuid.UUID, at time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.beforeClaim != nil {
		r.w.beforeClaim(r.w, driverID)
	}
	d, ok := r.w.drivers[driverID]
	if !ok || d.Status != entity.DriverStatusAvailable {
		return false, nil
	}
	v, ok := r.w.vehicles[vehicleID]
	if !ok || v.Status != entity.VehicleStatusActive || v.AssignedDriverID == nil || *v.AssignedDriverID != driverID {
		return false, nil
	}
	d.Status = entity.DriverStatusBusy
	bid := bookingID
	r.w.assignments = append(r.w.assignments, &entity.AssignmentHistory{
		BaseSimple:   entity.BaseSimple{ID: uuid.New(), CreatedAt: at},
		VehicleID:    vehicleID,
		DriverID:     driverID,
		BookingID:    &bid,
		AssignedDate: at,
	})
	return true, nil
}

func (r *fakeDriverRepo) ReleaseFromBooking(_ context.Context, driverID, bookingID uuid.UUID, reason string, at time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.releaseErr != nil {
		return false, r.w.releaseErr
	}
	released := false
	if d, ok := r.w.drivers[driverID]; ok && d.Status == entity.DriverStatusBusy {
		d.Status = entity.DriverStatusAvailable
		released = true
	}
	for _, h := range r.w.assignments {
		if h.DriverID == driverID && h.BookingID != nil && *h.BookingID == bookingID && h.IsOpen() {
			h.UnassignedDate = ptr(at)
			h.Notes = ptr(reason)
		}
	}
	return released, nil
}

func (r *fakeDriverRepo) SetAvailability(_ context.Context, id uuid.UUID, from, to entity.DriverStatus, _ time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	d, ok := r.w.drivers[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	return true, nil
}

func (r *fakeDriverRepo) Deactivate(_ context.Context, id uuid.UUID, at time.Time) (*uuid.UUID, bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	d, ok := r.w.drivers[id]
	if !ok || (d.Status != entity.DriverStatusAvailable && d.Status != entity.DriverStatusOffline) {
		return nil, false, nil
	}
	d.Status = entity.DriverStatusInactive
	var detached *uuid.UUID
	for _, v := range r.w.vehicles {
		if v.AssignedDriverID != nil && *v.AssignedDriverID == id {
			v.AssignedDriverID = nil
			vid := v.ID
			detached = &vid
		}
	}
	for _, h := range r.w.assignments {
		if h.DriverID == id && h.IsOpen() {
			h.UnassignedDate = ptr(at)
		}
	}
	return detached, true, nil
}

type fakeVehicleRepo struct{ w *world }

func (r *fakeVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Vehicle, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	v, ok := r.w.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVehicleRepo) FindByDriverID(_ context.Context, driverID uuid.UUID) (*entity.Vehicle, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, v := range r.w.vehicles {
		if v.AssignedDriverID != nil && *v.AssignedDriverID == driverID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeVehicleRepo) AttachDriver(_ context.Context, vehicleID, driverID uuid.UUID, at time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.beforeAttach != nil {
		r.w.beforeAttach(r.w, driverID)
	}
	if d, ok := r.w.drivers[driverID]; !ok || d.Status == entity.DriverStatusInactive {
		return false, repository.ErrDriverInactive
	}
	for _, v := range r.w.vehicles {
		if v.AssignedDriverID != nil && *v.AssignedDriverID == driverID {
			return false, repository.ErrDriverHasVehicle
		}
	}
	v, ok := r.w.vehicles[vehicleID]
	if !ok || v.AssignedDriverID != nil || v.Status != entity.VehicleStatusActive {
		return false, nil
	}
	id := driverID
	v.AssignedDriverID = &id
	r.w.assignments = append(r.w.assignments, &entity.AssignmentHistory{
		BaseSimple:   entity.BaseSimple{ID: uuid.New(), CreatedAt: at},
		VehicleID:    vehicleID,
		DriverID:     driverID,
		AssignedDate: at,
	})
	return true, nil
}

func (r *fakeVehicleRepo) DetachDriver(_ context.Context, vehicleID uuid.UUID, at time.Time) (*uuid.UUID, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	v, ok := r.w.vehicles[vehicleID]
	if !ok || v.AssignedDriverID == nil {
		return nil, nil
	}
	if d, ok := r.w.drivers[*v.AssignedDriverID]; ok && d.Status == entity.DriverStatusBusy {
		return nil, nil
	}
	driverID := *v.AssignedDriverID
	v.AssignedDriverID = nil
	for _, h := range r.w.assignments {
		if h.VehicleID == vehicleID && h.BookingID == nil && h.IsOpen() {
			h.UnassignedDate = ptr(at)
		}
	}
	return &driverID, nil
}

type fakeAssignmentRepo struct{ w *world }

func (r *fakeAssignmentRepo) FindOpenByBooking(_ context.Context, bookingID uuid.UUID) (*entity.AssignmentHistory, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, h := range r.w.assignments {
		if h.BookingID != nil && *h.BookingID == bookingID && h.IsOpen() {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAssignmentRepo) ListByDriver(_ context.Context, driverID uuid.UUID, limit int) ([]*entity.AssignmentHistory, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*entity.AssignmentHistory
	for i := len(r.w.assignments) - 1; i >= 0 && len(out) < limit; i-- {
		if h := r.w.assignments[i]; h.DriverID == driverID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeLocationRepo struct{ w *world }

func (r *fakeLocationRepo) Update(_ context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) (*entity.DriverLocation, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	d, ok := r.w.drivers[driverID]
	if !ok {
		return nil, nil
	}
	ts := at
	if d.LocationUpdatedAt != nil && !at.After(*d.LocationUpdatedAt) {
		ts = d.LocationUpdatedAt.Add(time.Microsecond)
	}
	d.CurrentLat, d.CurrentLng, d.LocationUpdatedAt = ptr(lat), ptr(lng), ptr(ts)
	r.w.locHistory = append(r.w.locHistory, &entity.DriverLocationHistory{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: ts},
		DriverID:   driverID,
		Lat:        lat,
		Lng:        lng,
		RecordedAt: ts,
	})
	return &entity.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng, Status: d.Status, UpdatedAt: ts}, nil
}

func (r *fakeLocationRepo) History(_ context.Context, driverID uuid.UUID, limit int) ([]*entity.DriverLocationHistory, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*entity.DriverLocationHistory
	for i := len(r.w.locHistory) - 1; i >= 0 && len(out) < limit; i-- {
		if h := r.w.locHistory[i]; h.DriverID == driverID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAuditRepo struct{ w *world }

func (r *fakeAuditRepo) RecordConsistencyWarning(_ context.Context, cw *entity.ConsistencyWarning) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.auditErr != nil {
		return r.w.auditErr
	}
	cp := *cw
	r.w.warnings = append(r.w.warnings, &cp)
	return nil
}

// ---- core2 ----

type fakeUserRepo struct{ w *world }

func (r *fakeUserRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, u := range r.w.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == username })
}

type fakeSessionRepo struct{ w *world }

func (r *fakeSessionRepo) Create(_ context.Context, s *entity.Session) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	cp := *s
	r.w.sessions[s.Token] = &cp
	return nil
}

func (r *fakeSessionRepo) FindValidSession(_ context.Context, token uuid.UUID) (*entity.Session, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	s, ok := r.w.sessions[token]
	if !ok || s.RevokedAt != nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, token uuid.UUID) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	s, ok := r.w.sessions[token]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	s.RevokedAt = ptr(testNow)
	return true, nil
}

type fakePermissionRepo struct{ w *world }

func (r *fakePermissionRepo) ListByRole(_ context.Context, role entity.UserRole) ([]string, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return append([]string{}, r.w.perms[role]...), nil
}

type fakeBookingRepo struct{ w *world }

func (r *fakeBookingRepo) Create(_ context.Context, b *entity.Booking, by *uuid.UUID) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	cp := *b
	r.w.bookings[b.ID] = &cp
	r.w.appendHistory(b.ID, nil, b.Status, by, nil, b.CreatedAt)
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	b, ok := r.w.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) filtered(status *entity.BookingStatus) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.w.bookings {
		if status == nil || b.Status == *status {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *fakeBookingRepo) FindAll(_ context.Context, status *entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	all := r.filtered(status)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeBookingRepo) Count(_ context.Context, status *entity.BookingStatus) (int64, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return int64(len(r.filtered(status))), nil
}

func (r *fakeBookingRepo) History(_ context.Context, bookingID uuid.UUID) ([]*entity.BookingStatusHistory, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*entity.BookingStatusHistory
	for _, h := range r.w.history {
		if h.BookingID == bookingID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) AssignDriver(_ context.Context, bookingID, driverID, vehicleID uuid.UUID, by *uuid.UUID, at time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.assignErr != nil {
		return false, r.w.assignErr
	}
	b, ok := r.w.bookings[bookingID]
	if !ok || b.DriverID != nil || !b.Status.Assignable() {
		return false, nil
	}
	previous := b.Status
	b.DriverID, b.VehicleID = ptr(driverID), ptr(vehicleID)
	b.Status = entity.BookingStatusConfirmed
	b.StatusVersion++
	if previous != entity.BookingStatusConfirmed {
		r.w.appendHistory(bookingID, &previous, b.Status, by, ptr("driver assigned"), at)
	}
	return true, nil
}

func (r *fakeBookingRepo) ClearDriver(_ context.Context, bookingID, driverID uuid.UUID, by *uuid.UUID, at time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	b, ok := r.w.bookings[bookingID]
	if !ok || b.DriverID == nil || *b.DriverID != driverID || b.Status.Terminal() {
		return false, nil
	}
	previous := b.Status
	b.DriverID, b.VehicleID = nil, nil
	b.Status = entity.BookingStatusPending
	b.StatusVersion++
	if previous != entity.BookingStatusPending {
		r.w.appendHistory(bookingID, &previous, b.Status, by, ptr("driver unassigned"), at)
	}
	return true, nil
}

func (r *fakeBookingRepo) RestoreDriver(_ context.Context, bookingID, driverID, vehicleID uuid.UUID, status entity.BookingStatus, at time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.restoreErr != nil {
		return false, r.w.restoreErr
	}
	b, ok := r.w.bookings[bookingID]
	if !ok || b.DriverID != nil || b.Status != entity.BookingStatusPending {
		return false, nil
	}
	b.DriverID, b.VehicleID = ptr(driverID), ptr(vehicleID)
	b.Status = status
	b.StatusVersion++
	return true, nil
}

func (r *fakeBookingRepo) TransitionStatus(_ context.Context, c repository.StatusChange) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.beforeTransition != nil {
		r.w.beforeTransition(r.w, c)
	}
	if r.w.revertErr != nil && c.From.Terminal() {
		return false, r.w.revertErr
	}
	b, ok := r.w.bookings[c.BookingID]
	if !ok || b.Status != c.From || b.StatusVersion != c.Version {
		return false, nil
	}
	b.Status = c.To
	b.StatusVersion++
	switch {
	case c.To == entity.BookingStatusCancelled:
		b.CancellationReason = c.Reason
	case c.From == entity.BookingStatusCancelled:
		b.CancellationReason = nil
	}
	from := c.From
	r.w.appendHistory(c.BookingID, &from, c.To, c.ChangedBy, c.Reason, c.At)
	if c.Payment != nil {
		cp := *c.Payment
		r.w.payments[c.BookingID] = &cp
	}
	if c.VoidPayment {
		delete(r.w.payments, c.BookingID)
	}
	return true, nil
}

type fakePaymentRepo struct{ w *world }

func (r *fakePaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	p, ok := r.w.payments[bookingID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ---- collaborators ----

type publishedEvent struct {
	key     string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	return nil
}

func (p *fakePublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.key == key {
			n++
		}
	}
	return n
}

type fakeLocator struct {
	mu        sync.Mutex
	positions map[uuid.UUID][2]float64
	nearby    []uuid.UUID
	nearbyErr error
	removed   []uuid.UUID
}

func newFakeLocator() *fakeLocator {
	return &fakeLocator{positions: map[uuid.UUID][2]float64{}}
}

func (l *fakeLocator) Upsert(_ context.Context, id uuid.UUID, lat, lng float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[id] = [2]float64{lat, lng}
	return nil
}

func (l *fakeLocator) Remove(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.positions, id)
	l.removed = append(l.removed, id)
	return nil
}

func (l *fakeLocator) Nearby(context.Context, float64, float64, float64) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.nearbyErr != nil {
		return nil, l.nearbyErr
	}
	return append([]uuid.UUID{}, l.nearby...), nil
}

type fakeGeocoder struct {
	lat, lng float64
	err      error
	calls    int
}

func (g *fakeGeocoder) Geocode(context.Context, string) (float64, float64, error) {
	g.calls++
	return g.lat, g.lng, g.err
}

// ---- harness ----

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testConfig() *utils.Config {
	return &utils.Config{
		Dispatch: utils.DispatchConfig{
			DefaultRadiusKm: 50,
			DefaultLimit:    10,
			NearestAttempts: 1,
			BaseFare:        40,
			PerKmRate:       13.5,
		},
		Session: utils.SessionConfig{ExpiryHours: 24},
	}
}

type harness struct {
	w       *world
	events  *fakePublisher
	deps    Dependencies
	config  *utils.Config
	service *Service
}

func newHarness(opts ...func(*harness)) *harness {
	h := &harness{
		w:      newWorld(),
		events: &fakePublisher{},
		config: testConfig(),
	}
	h.deps = Dependencies{Events: h.events, Now: func() time.Time { return testNow }}
	for _, opt := range opts {
		opt(h)
	}
	h.service = NewService(h.w.repository(), h.deps, h.config, zap.NewNop())
	return h
}

func withLocator(l DriverLocator) func(*harness) {
	return func(h *harness) { h.deps.Locator = l }
}

func withGeocoder(g Geocoder) func(*harness) {
	return func(h *harness) { h.deps.Geocoder = g }
}

func withAttempts(n int) func(*harness) {
	return func(h *harness) { h.config.Dispatch.NearestAttempts = n }
}

func dispatcher() *utils.Principal {
	return utils.NewPrincipal(uuid.New(), string(entity.RoleDispatcher),
		[]string{utils.PermManageBookings, utils.PermViewDrivers})
}

func codeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return CodeOf(err)
}
