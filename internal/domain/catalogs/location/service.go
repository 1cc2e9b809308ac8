package location

import (
	"context"
	"fmt"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/tx"
	"repairpos/internal/domain/audit"
	"repairpos/pkg/logger"
)

const entityLocation = "inventory_location"

// Service provides business logic for the location catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new location service.
func NewService(repo Repository, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{repo: repo, txManager: txManager, audit: recorder}
}

// EnsureSystemLocations creates missing system locations and the default
// "Stock" location. Safe to run on every start.
func (s *Service) EnsureSystemLocations(ctx context.Context) error {
	created := 0
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		created = 0
		for _, sys := range SystemLocations {
			_, err := s.repo.GetBySystemKey(ctx, sys.Key)
			if err == nil {
				continue
			}
			if !apperror.IsNotFound(err) {
				return err
			}
			if err := s.repo.Create(ctx, NewSystemLocation(sys.Key, sys.Name)); err != nil {
				return fmt.Errorf("create system location %s: %w", sys.Key, err)
			}
			created++
		}

		_, err := s.repo.GetDefault(ctx)
		if err == nil {
			return nil
		}
		if !apperror.IsNotFound(err) {
			return err
		}
		def := NewLocation(DefaultLocationName)
		def.DefaultLocation = true
		def.CanBeRemoved = false
		if err := s.repo.Create(ctx, def); err != nil {
			return fmt.Errorf("create default location: %w", err)
		}
		created++
		return nil
	})
	if err != nil {
		return err
	}

	if created > 0 {
		logger.Info(ctx, "system locations initialized", "created", created)
	}
	return nil
}

// GetSystem resolves a system location. Absence after initialization is a
// configuration error.
func (s *Service) GetSystem(ctx context.Context, key SystemKey) (*Location, error) {
	loc, err := s.repo.GetBySystemKey(ctx, key)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewConfiguration(apperror.CodeSystemLocationMissing, "system location not found").
			WithDetail("key", string(key))
	}
	return loc, err
}

// GetDefault resolves the user-visible default location.
func (s *Service) GetDefault(ctx context.Context) (*Location, error) {
	loc, err := s.repo.GetDefault(ctx)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewConfiguration(apperror.CodeSystemLocationMissing, "default location not found")
	}
	return loc, err
}

// Get retrieves a location by ID.
func (s *Service) Get(ctx context.Context, locationID id.ID) (*Location, error) {
	return s.repo.GetByID(ctx, locationID)
}

// ListSelectable returns the locations a user may choose.
func (s *Service) ListSelectable(ctx context.Context) ([]*Location, error) {
	return s.repo.ListSelectable(ctx)
}

// Create stores a user location. System flags cannot be set by callers.
func (s *Service) Create(ctx context.Context, loc *Location) error {
	loc.SystemUseOnly = false
	loc.SystemKey = nil
	if err := loc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if loc.DefaultLocation {
			if err := s.repo.ClearDefault(ctx, loc.ID); err != nil {
				return fmt.Errorf("clear default location: %w", err)
			}
		}
		if err := s.repo.Create(ctx, loc); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.NewEntry(ctx, entityLocation, loc.ID, audit.ActionCreate))
	})
}

// SetDefault makes a user location the single default.
func (s *Service) SetDefault(ctx context.Context, locationID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, err := s.repo.GetForUpdate(ctx, locationID)
		if err != nil {
			return err
		}
		if loc.SystemUseOnly {
			return apperror.NewValidation("system location cannot be the default").
				WithDetail("locationId", loc.ID.String())
		}
		if loc.DefaultLocation {
			return nil
		}

		if err := s.repo.ClearDefault(ctx, loc.ID); err != nil {
			return fmt.Errorf("clear default location: %w", err)
		}
		loc.DefaultLocation = true
		loc.Touch()
		if err := s.repo.Update(ctx, loc); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.NewEntry(ctx, entityLocation, loc.ID, audit.ActionDefault))
	})
}

// Delete tombstones a removable location.
func (s *Service) Delete(ctx context.Context, locationID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, err := s.repo.GetForUpdate(ctx, locationID)
		if err != nil {
			return err
		}
		if !loc.CanBeRemoved || loc.DefaultLocation {
			return apperror.NewState(apperror.CodeNotRemovable, "location cannot be removed").
				WithDetail("locationId", loc.ID.String())
		}

		loc.MarkDeleted()
		loc.Touch()
		if err := s.repo.Update(ctx, loc); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.NewEntry(ctx, entityLocation, loc.ID, audit.ActionDelete))
	})
}
