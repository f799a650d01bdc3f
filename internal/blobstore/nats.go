// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/marquee/internal/logging"
)

// NATSStore maps each collection onto a JetStream object store bucket named
// <prefix>_<collection>. Buckets are created on first use.
type NATSStore struct {
	js     jetstream.JetStream
	prefix string

	mu      sync.Mutex
	buckets map[string]jetstream.ObjectStore
}

// NewNATSStore creates a store over an existing JetStream context.
func NewNATSStore(js jetstream.JetStream, bucketPrefix string) (*NATSStore, error) {
	if js == nil {
		return nil, errors.New("jetstream context is required")
	}
	if bucketPrefix == "" {
		bucketPrefix = "marquee"
	}
	if !validBucketToken(bucketPrefix) {
		return nil, fmt.Errorf("invalid bucket prefix %q", bucketPrefix)
	}
	return &NATSStore{
		js:      js,
		prefix:  bucketPrefix,
		buckets: make(map[string]jetstream.ObjectStore),
	}, nil
}

// validBucketToken reports whether s only uses characters JetStream accepts
// in bucket names.
func validBucketToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// BucketName returns the object store bucket used for collection.
func (s *NATSStore) BucketName(collection string) string {
	return s.prefix + "_" + collection
}

func (s *NATSStore) bucket(ctx context.Context, collection string) (jetstream.ObjectStore, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if !validBucketToken(collection) {
		return nil, fmt.Errorf("%w: collection %q is not a valid bucket token", ErrInvalidName, collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if obs, ok := s.buckets[collection]; ok {
		return obs, nil
	}

	name := s.BucketName(collection)
	obs, err := s.js.ObjectStore(ctx, name)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		obs, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      name,
			Description: "marquee " + collection + " collection",
			Storage:     jetstream.FileStorage,
		})
		if err == nil {
			logging.Info().Str("bucket", name).Msg("Created object store bucket")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open object store %s: %w", name, err)
	}

	s.buckets[collection] = obs
	return obs, nil
}

// List implements Store.
func (s *NATSStore) List(ctx context.Context, collection string) ([]ObjectInfo, error) {
	obs, err := s.bucket(ctx, collection)
	if err != nil {
		return nil, err
	}

	objects, err := obs.List(ctx)
	if errors.Is(err, jetstream.ErrNoObjectsFound) {
		return []ObjectInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	infos := make([]ObjectInfo, 0, len(objects))
	for _, o := range objects {
		if o.Deleted {
			continue
		}
		infos = append(infos, ObjectInfo{
			Key:          o.Name,
			LastModified: o.ModTime,
			Size:         int64(o.Size),
		})
	}
	return infos, nil
}

// Get implements Store.
func (s *NATSStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := validateName(collection, key); err != nil {
		return nil, err
	}
	obs, err := s.bucket(ctx, collection)
	if err != nil {
		return nil, err
	}

	data, err := obs.GetBytes(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return data, nil
}

// Put implements Store.
func (s *NATSStore) Put(ctx context.Context, collection, key string, data []byte) error {
	if err := validateName(collection, key); err != nil {
		return err
	}
	obs, err := s.bucket(ctx, collection)
	if err != nil {
		return err
	}

	if _, err := obs.PutBytes(ctx, key, data); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Delete implements Store.
func (s *NATSStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateName(collection, key); err != nil {
		return err
	}
	obs, err := s.bucket(ctx, collection)
	if err != nil {
		return err
	}

	err = obs.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}
