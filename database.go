package nosqlite

import (
	"context"
	"fmt"
	"time"
)

// Database is a named database: one storage unit holding collections.
type Database struct {
	name   string
	client *Client
}

// Name returns the database name as given to Client.Database.
func (d *Database) Name() string { return d.name }

// Collection returns a handle for the named collection. The table is
// created on first insert.
func (d *Database) Collection(name string) *Collection {
	return &Collection{db: d, name: name}
}

// Collections lists the collections of the database, sorted by name.
func (d *Database) Collections(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() { d.client.obs.observe("collections", d.name, start, err) }()

	names, err = d.client.svc.Collections(ctx, physicalName(d.name))
	if err != nil {
		return nil, fmt.Errorf("list collections of %q: %w", d.name, err)
	}
	return names, nil
}

// Vacuum rebuilds the database file, reclaiming free pages.
func (d *Database) Vacuum(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { d.client.obs.observe("vacuum", d.name, start, err) }()

	if err = d.client.svc.Vacuum(ctx, physicalName(d.name)); err != nil {
		return fmt.Errorf("vacuum %q: %w", d.name, err)
	}
	return nil
}
