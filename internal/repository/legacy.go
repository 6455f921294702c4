package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// legacyRecord accepts the per-user exports of the previous system. Older
// exports carry a single "embedding", newer ones "embeddings" and
// "mean_embedding"; any combination may be present.
type legacyRecord struct {
	Name          string      `json:"name"`
	Acc           string      `json:"acc"`
	AccountID     string      `json:"account_id"`
	Embeddings    [][]float32 `json:"embeddings"`
	MeanEmbedding []float32   `json:"mean_embedding"`
	Embedding     []float32   `json:"embedding"`
	RegisteredAt  string      `json:"registered_at"`
}

// LegacyOptions controls legacy normalization.
type LegacyOptions struct {
	// AllowSparse accepts records with fewer than domain.MinValidSamples
	// embeddings.
	AllowSparse bool
	// FallbackTime is used when a record has no usable registered_at.
	FallbackTime time.Time
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseLegacyRecord normalizes one exported record into an identity.
// fallbackAccount is used when the record carries no account id; the old
// system named files after the account.
func ParseLegacyRecord(data []byte, fallbackAccount string, opts LegacyOptions) (*domain.EnrolledIdentity, error) {
	var rec legacyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse legacy record: %w", err)
	}

	account := firstNonEmpty(rec.AccountID, rec.Acc, fallbackAccount)
	if account == "" {
		return nil, fmt.Errorf("legacy record has no account id")
	}
	name := firstNonEmpty(rec.Name, account)

	// Every vector the record carries is a sample; a lone mean stands in
	// for the samples it was computed from.
	raw := make([][]float32, 0, len(rec.Embeddings)+1)
	for _, v := range rec.Embeddings {
		if len(v) > 0 {
			raw = append(raw, v)
		}
	}
	if len(rec.Embedding) > 0 {
		raw = append(raw, rec.Embedding)
	}
	if len(raw) == 0 && len(rec.MeanEmbedding) > 0 {
		raw = append(raw, rec.MeanEmbedding)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("legacy record %s has no embeddings", account)
	}

	samples := make([]domain.Embedding, 0, len(raw))
	for i, v := range raw {
		e, err := domain.NormalizeEmbedding(v)
		if err != nil {
			return nil, fmt.Errorf("legacy record %s embedding %d: %w", account, i, err)
		}
		if len(samples) > 0 && len(e) != len(samples[0]) {
			return nil, fmt.Errorf("legacy record %s embedding %d: dimension %d, want %d", account, i, len(e), len(samples[0]))
		}
		samples = append(samples, e)
	}
	if len(samples) < domain.MinValidSamples && !opts.AllowSparse {
		return nil, fmt.Errorf("legacy record %s has %d embeddings, need %d", account, len(samples), domain.MinValidSamples)
	}
	if len(samples) > domain.MaxEnrollImages {
		samples = samples[:domain.MaxEnrollImages]
	}

	var mean domain.Embedding
	var err error
	if len(rec.MeanEmbedding) == len(samples[0]) {
		mean, err = domain.NormalizeEmbedding(rec.MeanEmbedding)
	} else {
		mean, err = domain.MeanEmbedding(samples)
	}
	if err != nil {
		return nil, fmt.Errorf("legacy record %s mean: %w", account, err)
	}

	enrolledAt := opts.FallbackTime
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(rec.RegisteredAt)); err == nil {
			enrolledAt = t
			break
		}
	}

	identity := &domain.EnrolledIdentity{
		Name:          name,
		AccountID:     account,
		Embeddings:    samples,
		MeanEmbedding: mean,
		EnrolledAt:    enrolledAt.UTC(),
	}
	return identity, nil
}

// LegacyFile is the outcome of importing one file.
type LegacyFile struct {
	Path     string
	Identity *domain.EnrolledIdentity
	Err      error
}

// ReadLegacyDir parses every *.json file in dir, sorted by name. Parse
// failures are reported per file and do not stop the scan.
func ReadLegacyDir(dir string, opts LegacyOptions) ([]LegacyFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list legacy records: %w", err)
	}
	sort.Strings(paths)

	files := make([]LegacyFile, 0, len(paths))
	for _, path := range paths {
		lf := LegacyFile{Path: path}

		data, err := os.ReadFile(path)
		if err != nil {
			lf.Err = fmt.Errorf("read %s: %w", filepath.Base(path), err)
		} else {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			lf.Identity, lf.Err = ParseLegacyRecord(data, stem, opts)
		}
		files = append(files, lf)
	}

	return files, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
