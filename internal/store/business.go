package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"spa-booking-backend/internal/model"
)

func (s *gormStore) GetBusinessBySubdomain(ctx context.Context, subdomain string) (*model.Business, error) {
	var b model.Business
	if err := s.db.WithContext(ctx).First(&b, "subdomain = ?", strings.ToLower(subdomain)).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *gormStore) CreateBusiness(ctx context.Context, b *model.Business) error {
	if b.ID == "" {
		b.ID = newID()
	}
	b.Subdomain = strings.ToLower(b.Subdomain)
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create business %q: %w", b.Subdomain, err)
	}
	return nil
}

// UpdateBranding applies the non-nil fields of branding.
func (s *gormStore) UpdateBranding(ctx context.Context, businessID string, branding Branding) (*model.Business, error) {
	updates := map[string]any{}
	if branding.Name != nil {
		updates["name"] = *branding.Name
	}
	if branding.LogoURL != nil {
		updates["logo_url"] = *branding.LogoURL
	}
	if branding.PrimaryColor != nil {
		updates["primary_color"] = *branding.PrimaryColor
	}
	if branding.SecondaryColor != nil {
		updates["secondary_color"] = *branding.SecondaryColor
	}
	if branding.Tagline != nil {
		updates["tagline"] = *branding.Tagline
	}

	var b model.Business
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", businessID).Error; err != nil {
			return notFound(err)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update branding for business %s: %w", businessID, err)
		}
		return tx.First(&b, "id = ?", businessID).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *gormStore) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Business{}).
		Where("subdomain = ?", strings.ToLower(subdomain)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) CreateLocation(ctx context.Context, l *model.Location) error {
	if l.ID == "" {
		l.ID = newID()
	}
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *gormStore) CreateService(ctx context.Context, svc *model.Service) error {
	if svc.ID == "" {
		svc.ID = newID()
	}
	return s.db.WithContext(ctx).Create(svc).Error
}

func (s *gormStore) GetLocation(ctx context.Context, businessID, locationID string) (*model.Location, error) {
	var l model.Location
	if err := s.db.WithContext(ctx).Preload("Hours").
		First(&l, "id = ? AND business_id = ?", locationID, businessID).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *gormStore) GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error) {
	var svc model.Service
	if err := s.db.WithContext(ctx).
		First(&svc, "id = ? AND business_id = ? AND active = ?", serviceID, businessID, true).Error; err != nil {
		return nil, notFound(err)
	}
	return &svc, nil
}

func (s *gormStore) GetBusinessHours(ctx context.Context, locationID string, weekday time.Weekday) (*model.BusinessHours, error) {
	var h model.BusinessHours
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND weekday = ?", locationID, int(weekday)).
		Take(&h).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// ReplaceBusinessHours swaps the whole weekly schedule of a location.
func (s *gormStore) ReplaceBusinessHours(ctx context.Context, locationID string, hours []model.BusinessHours) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", locationID).Delete(&model.BusinessHours{}).Error; err != nil {
			return fmt.Errorf("failed to clear business hours for location %s: %w", locationID, err)
		}
		if len(hours) == 0 {
			return nil
		}
		rows := make([]model.BusinessHours, len(hours))
		for i, h := range hours {
			h.LocationID = locationID
			rows[i] = h
		}
		if err := tx.Create(&rows).Error; err != nil {
			if isUniqueViolation(err) {
				return errors.New("duplicate weekday in business hours")
			}
			return fmt.Errorf("failed to save business hours for location %s: %w", locationID, err)
		}
		return nil
	})
}
