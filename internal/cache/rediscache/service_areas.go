package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

const serviceAreaPrefix = "courierbridge:service-area:"

// ServiceAreaCache stores resolved service areas as JSON.
type ServiceAreaCache struct {
	cache *RedisCache
	ttl   time.Duration
}

func NewServiceAreaCache(cache *RedisCache, ttl time.Duration) *ServiceAreaCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ServiceAreaCache{cache: cache, ttl: ttl}
}

func (s *ServiceAreaCache) Get(ctx context.Context, key string) (*models.ServiceArea, bool, error) {
	b, ok, err := s.cache.Get(ctx, serviceAreaPrefix+key)
	if err != nil || !ok {
		return nil, false, err
	}
	var area models.ServiceArea
	if err := json.Unmarshal(b, &area); err != nil {
		return nil, false, errors.Wrap(err, "decode cached service area")
	}
	return &area, true, nil
}

func (s *ServiceAreaCache) Set(ctx context.Context, key string, area *models.ServiceArea) error {
	b, err := json.Marshal(area)
	if err != nil {
		return errors.Wrap(err, "encode service area")
	}
	return s.cache.Set(ctx, serviceAreaPrefix+key, b, s.ttl)
}

// Invalidate drops every cached service area.
func (s *ServiceAreaCache) Invalidate(ctx context.Context) error {
	_, err := s.cache.DeletePrefix(ctx, serviceAreaPrefix)
	return err
}
