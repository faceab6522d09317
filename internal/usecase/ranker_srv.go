package usecase

import (
	"context"
	"math"
	"sort"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/pkg/geo"
	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

const maxRankLimit = 100

// locatorRadiusPad widens the index search a little: Redis uses a slightly
// different earth radius, and the exact cut happens here.
const locatorRadiusPad = 1.01

// NearestQuery selects available drivers around a point. Zero MaxDistanceKm
// and Limit use the configured defaults.
type NearestQuery struct {
	Lat            float64
	Lng            float64
	MaxDistanceKm  float64
	Limit          int
	RequireVehicle bool
}

type RankedDriver struct {
	Driver     entity.Driver
	Vehicle    *entity.Vehicle
	DistanceKm float64
	EtaMinutes int
}

type RankerService interface {
	// Nearest returns available drivers within the radius ordered by distance,
	// ties broken by driver id.
	Nearest(ctx context.Context, q NearestQuery) ([]RankedDriver, error)
	NearestDrivers(ctx context.Context, req *request.NearestDriversRequest) ([]response.NearestDriverResponse, error)
}

type rankerService struct {
	repo    *repository.Repository
	locator DriverLocator
	config  utils.DispatchConfig
	log     *zap.Logger
}

func NewRankerService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) RankerService {
	return &rankerService{
		repo:    repo,
		locator: deps.Locator,
		config:  config.Dispatch,
		log:     log.With(zap.String("service", "ranker")),
	}
}

func (s *rankerService) Nearest(ctx context.Context, q NearestQuery) ([]RankedDriver, error) {
	if !geo.ValidCoordinates(q.Lat, q.Lng) {
		return nil, newError(CodeInvalidCoordinates, "Coordinates out of range: lat %v, lng %v", q.Lat, q.Lng)
	}

	if math.IsNaN(q.MaxDistanceKm) || math.IsInf(q.MaxDistanceKm, 0) {
		return nil, validationError(map[string]string{"max_distance": "Must be a positive number"})
	}

	radius := q.MaxDistanceKm
	if radius <= 0 {
		radius = s.config.DefaultRadiusKm
	}
	limit := q.Limit
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > maxRankLimit {
		limit = maxRankLimit
	}

	filter := repository.CandidateFilter{
		Box:            geo.BoundingBoxAround(q.Lat, q.Lng, radius),
		RequireVehicle: q.RequireVehicle,
	}

	if s.locator != nil {
		ids, err := s.locator.Nearby(ctx, q.Lat, q.Lng, radius*locatorRadiusPad)
		if err != nil {
			s.log.Warn("Driver index unavailable, scanning database", zap.Error(err))
		} else {
			if len(ids) == 0 {
				return []RankedDriver{}, nil
			}
			filter.DriverIDs = ids
		}
	}

	candidates, err := s.repo.Driver.FindAvailableCandidates(ctx, filter)
	if err != nil {
		return nil, internalError("find available candidates", err)
	}

	ranked := make([]RankedDriver, 0, len(candidates))
	for _, c := range candidates {
		if c.Driver.Status != entity.DriverStatusAvailable {
			continue
		}
		if !geo.HasLocation(c.Driver.CurrentLat, c.Driver.CurrentLng) {
			continue
		}
		if q.RequireVehicle && (c.Vehicle == nil || c.Vehicle.Status != entity.VehicleStatusActive) {
			continue
		}

		d := geo.HaversineKm(q.Lat, q.Lng, *c.Driver.CurrentLat, *c.Driver.CurrentLng)
		if d > radius {
			continue
		}
		ranked = append(ranked, RankedDriver{
			Driver:     c.Driver,
			Vehicle:    c.Vehicle,
			DistanceKm: d,
			EtaMinutes: geo.EstimatedMinutes(d),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return ranked[i].Driver.ID.String() < ranked[j].Driver.ID.String()
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *rankerService) NearestDrivers(ctx context.Context, req *request.NearestDriversRequest) ([]response.NearestDriverResponse, error) {
	ranked, err := s.Nearest(ctx, NearestQuery{
		Lat:           req.Lat,
		Lng:           req.Lng,
		MaxDistanceKm: req.MaxDistanceKm,
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, err
	}

	result := make([]response.NearestDriverResponse, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, response.NearestDriverResponse{
			Driver:     response.DriverToResponse(&r.Driver, r.Vehicle),
			DistanceKm: response.RoundKm(r.DistanceKm),
			EtaMinutes: r.EtaMinutes,
		})
	}
	return result, nil
}
