package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/yaobase/tenantd/pkg/types"
)

var bucketTenants = []byte("tenants")

// Catalog is a bbolt-backed store of tenant specifications. It belongs
// to the server layer: the core keeps all tenant state in process, and
// the server replays the catalog into the core at boot so tenants
// survive restarts of the demo server.
type Catalog struct {
	db *bolt.DB
}

// Open opens (or creates) the catalog database in dataDir
func Open(dataDir string) (*Catalog, error) {
	dbPath := filepath.Join(dataDir, "tenantd.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTenants)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tenants bucket: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// SaveTenant upserts a tenant specification
func (c *Catalog) SaveTenant(spec types.TenantSpec) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTenants)
		data, err := json.Marshal(spec)
		if err != nil {
			return err
		}
		return b.Put([]byte(spec.ID), data)
	})
}

// GetTenant returns one tenant specification
func (c *Catalog) GetTenant(id string) (*types.TenantSpec, error) {
	var spec types.TenantSpec
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTenants)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("tenant not found: %s", id)
		}
		return json.Unmarshal(data, &spec)
	})
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

// ListTenants returns all stored tenant specifications
func (c *Catalog) ListTenants() ([]types.TenantSpec, error) {
	var specs []types.TenantSpec
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTenants)
		return b.ForEach(func(k, v []byte) error {
			var spec types.TenantSpec
			if err := json.Unmarshal(v, &spec); err != nil {
				return err
			}
			specs = append(specs, spec)
			return nil
		})
	})
	return specs, err
}

// DeleteTenant removes a tenant specification; deleting an absent
// tenant is a no-op.
func (c *Catalog) DeleteTenant(id string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTenants).Delete([]byte(id))
	})
}
