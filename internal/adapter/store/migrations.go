package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"greencheck/config"
)

// indexFormat changes whenever the tokenizer or posting layout changes in a
// way that invalidates stored postings.
const indexFormat = "bm25-v1"

var keySchema = []byte("schema")

type boltMigration struct {
	version int
	name    string
	buckets [][]byte
}

// boltMigrations lists schema versions in order. Each step only adds
// buckets, so replaying one is harmless.
var boltMigrations = []boltMigration{
	{1, "reference corpus", [][]byte{bucketDocuments, bucketChunks, bucketSourceChunks, bucketTerms, bucketStats}},
	{2, "detection audit log", [][]byte{bucketDetections}},
}

// CurrentSchemaVersion is the version a freshly migrated store reports.
var CurrentSchemaVersion = boltMigrations[len(boltMigrations)-1].version

// SchemaInfo is persisted in the stats bucket.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltStore) GetSchemaInfo() (SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		if b == nil {
			return nil
		}
		data := b.Get(keySchema)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return SchemaInfo{}, fmt.Errorf("failed to read schema info: %w", err)
	}
	return info, nil
}

func (s *BoltStore) setSchemaInfo(tx *bbolt.Tx, info SchemaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketStats).Put(keySchema, data)
}

// ComputeConfigHash fingerprints the settings baked into stored chunks and
// postings. A different hash means the corpus must be ingested again.
func ComputeConfigHash(cfg *config.Config) string {
	shape := struct {
		ChunkSize   int    `json:"chunk_size"`
		IndexFormat string `json:"index_format"`
	}{cfg.Ingest.ChunkSize, indexFormat}

	data, _ := json.Marshal(shape)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration compares the stored schema with this build and cfg.
func (s *BoltStore) CheckMigration(cfg *config.Config) (MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return MigrationResult{}, err
	}

	res := MigrationResult{OldVersion: info.Version, NewVersion: CurrentSchemaVersion}
	switch {
	case info.Version > CurrentSchemaVersion:
		res.NeedsRebuild = true
		res.Reason = fmt.Sprintf("store written by a newer schema (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return res, nil
	case info.Version == 0:
		res.NeedsMigration = true
		res.Reason = "new store"
	case info.Version < CurrentSchemaVersion:
		res.NeedsMigration = true
		res.Reason = fmt.Sprintf("schema upgrade v%d -> v%d", info.Version, CurrentSchemaVersion)
	}

	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		res.NeedsRebuild = true
		res.Reason = "chunk size or index format changed since the corpus was ingested"
	}
	return res, nil
}

// Migrate applies every pending step and records cfg's hash, all in one
// transaction.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, m := range boltMigrations {
			if m.version <= info.Version {
				continue
			}
			for _, name := range m.buckets {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("migration v%d (%s): %w", m.version, m.name, err)
				}
			}
		}
		return s.setSchemaInfo(tx, SchemaInfo{
			Version:    CurrentSchemaVersion,
			ConfigHash: ComputeConfigHash(cfg),
		})
	})
}

// NeedsRebuild is CheckMigration reduced to the rebuild decision.
func (s *BoltStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	res, err := s.CheckMigration(cfg)
	if err != nil {
		return false, "", err
	}
	return res.NeedsRebuild, res.Reason, nil
}

// Clear drops every corpus and its postings. The audit log and schema
// record survive.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketChunks, bucketSourceChunks, bucketTerms} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		stats := tx.Bucket(bucketStats)
		if stats == nil {
			return nil
		}
		var stale [][]byte
		c := stats.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if !bytes.Equal(k, keySchema) {
				stale = append(stale, bytes.Clone(k))
			}
		}
		for _, k := range stale {
			if err := stats.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
