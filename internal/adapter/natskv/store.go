// Package natskv implements the configuration store port on a NATS
// JetStream KeyValue bucket. The whole document lives under one key so
// the read-whole/write-whole contract maps directly onto KV puts.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/openherd/agentd/internal/port/configstore"
)

const docKey = "agents"

// Store persists the configuration document in a JetStream KV bucket.
type Store struct {
	kv jetstream.KeyValue
}

// New creates a NATS KV-backed configuration store, creating the bucket
// when it does not exist yet.
func New(ctx context.Context, js jetstream.JetStream, bucket string) (*Store, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return &Store{kv: kv}, nil
}

// Load reads the whole document. A missing key yields an empty document.
func (s *Store) Load(ctx context.Context) (configstore.Document, error) {
	entry, err := s.kv.Get(ctx, docKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return configstore.Document{}, nil
		}
		return nil, fmt.Errorf("kv get %s: %w", docKey, err)
	}

	var doc configstore.Document
	if err := json.Unmarshal(entry.Value(), &doc); err != nil {
		return nil, fmt.Errorf("parse kv document: %w", err)
	}
	if doc == nil {
		doc = configstore.Document{}
	}
	return doc, nil
}

// Save replaces the whole document. KV puts are atomic per key.
func (s *Store) Save(ctx context.Context, doc configstore.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if _, err := s.kv.Put(ctx, docKey, data); err != nil {
		return fmt.Errorf("kv put %s: %w", docKey, err)
	}
	return nil
}
