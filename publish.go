package cosmoweb

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/hupe1980/cosmoweb/blobstore"
	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/filament"
	"github.com/hupe1980/cosmoweb/twopoint"
	"github.com/hupe1980/cosmoweb/voids"
)

// Run bundles the results of one analysis pass for publication. ID and
// Data are required; nil statistics are simply not published.
type Run struct {
	ID      string
	Data    *catalog.Catalog
	Profile *twopoint.Profile
	Graph   *filament.Graph
	Mesh    *filament.Mesh
	Voids   *voids.Distribution
}

// Manifest describes a published run. It is the unit the CURRENT
// pointer commits to, so a reader resolving CURRENT always sees a
// complete, internally consistent artifact set.
type Manifest struct {
	RunID       string            `json:"run_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Compression string            `json:"compression"`
	DataPoints  int               `json:"data_points"`
	Artifacts   map[string]string `json:"artifacts"`
	GraphStats  *filament.Stats   `json:"graph_stats,omitempty"`
}

// PublishRun writes the run's artifact tables to the store under
// runs/<id>/, then the manifest, and finally commits CURRENT to the
// manifest key. Ordering matters: artifacts before manifest before
// pointer, so a crash mid-publish never leaves CURRENT referencing
// missing data.
func (e *Engine) PublishRun(ctx context.Context, store blobstore.BlobStore, run Run) (*Manifest, error) {
	start := time.Now()
	m, err := e.publishRun(ctx, store, run)

	artifacts := 0
	if m != nil {
		artifacts = len(m.Artifacts)
	}
	e.metrics.RecordPublish(time.Since(start), err)
	e.logger.LogPublish(ctx, run.ID, artifacts, err)
	return m, err
}

func (e *Engine) publishRun(ctx context.Context, store blobstore.BlobStore, run Run) (*Manifest, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("%w: run id must not be empty", ErrInvalidConfig)
	}
	if run.Data == nil || run.Data.Len() == 0 {
		return nil, fmt.Errorf("cosmoweb: publish: %w", ErrEmptyCatalog)
	}

	comp := e.opts.compression
	prefix := path.Join("runs", run.ID)
	m := &Manifest{
		RunID:       run.ID,
		CreatedAt:   time.Now().UTC(),
		Compression: comp.Name(),
		DataPoints:  run.Data.Len(),
		Artifacts:   make(map[string]string),
	}

	write := func(kind, base string, fn func(w io.Writer) error) error {
		name := path.Join(prefix, base+comp.Ext())
		if err := e.writeArtifact(ctx, store, name, fn); err != nil {
			return fmt.Errorf("cosmoweb: publish %s: %w", kind, err)
		}
		m.Artifacts[kind] = name
		return nil
	}

	if err := write("catalog", "catalog.txt", func(w io.Writer) error {
		return catalog.WriteTable(w, run.Data)
	}); err != nil {
		return nil, err
	}
	if run.Profile != nil {
		if err := write("profile", "profile.txt", func(w io.Writer) error {
			return twopoint.WriteTable(w, run.Profile)
		}); err != nil {
			return nil, err
		}
	}
	if run.Mesh != nil {
		if err := write("mesh", "mesh.obj", func(w io.Writer) error {
			return filament.WriteOBJ(w, run.Mesh)
		}); err != nil {
			return nil, err
		}
	}
	if run.Voids != nil {
		if err := write("voids", "voids.txt", func(w io.Writer) error {
			return voids.WriteTable(w, run.Voids)
		}); err != nil {
			return nil, err
		}
	}
	if run.Graph != nil {
		stats := run.Graph.Stats
		m.GraphStats = &stats
	}

	payload, err := e.opts.codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("cosmoweb: publish manifest: %w", err)
	}
	manifestKey := path.Join(prefix, "manifest.json")
	if err := store.Put(ctx, manifestKey, payload); err != nil {
		return nil, fmt.Errorf("cosmoweb: publish manifest: %w", err)
	}

	if err := store.Put(ctx, "CURRENT", []byte(manifestKey)); err != nil {
		return nil, fmt.Errorf("cosmoweb: commit run pointer: %w", err)
	}
	return m, nil
}

// writeArtifact streams one table through the configured compression
// into the store.
func (e *Engine) writeArtifact(ctx context.Context, store blobstore.BlobStore, name string, fn func(w io.Writer) error) error {
	blob, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	cw, err := e.opts.compression.WrapWriter(blob)
	if err != nil {
		_ = blob.Close()
		return err
	}
	if err := fn(cw); err != nil {
		_ = cw.Close()
		_ = blob.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		_ = blob.Close()
		return err
	}
	return blob.Close()
}

// LoadCurrentManifest resolves the CURRENT pointer and decodes the
// manifest it references.
func (e *Engine) LoadCurrentManifest(ctx context.Context, store blobstore.BlobStore) (*Manifest, error) {
	key, err := blobstore.ReadAll(ctx, store, "CURRENT")
	if err != nil {
		return nil, err
	}
	payload, err := blobstore.ReadAll(ctx, store, string(key))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := e.opts.codec.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("cosmoweb: decode manifest: %w", err)
	}
	return &m, nil
}
