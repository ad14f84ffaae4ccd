package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"lessonrec/internal/collab"
	"lessonrec/internal/content"
	"lessonrec/internal/features"
	"lessonrec/internal/logger"
	"lessonrec/internal/vsm"
)

// File names inside a snapshot directory. The layout is stable; a reader
// and a writer on different versions of the binary still agree on it.
const (
	manifestFile  = "manifest.json"
	contentFile   = "content_model.json"
	itemMetaFile  = "item_meta.json"
	vocabFile     = "vocab.json"
	itemFeatsFile = "item_features.json"
	quizFeatsFile = "quiz_features.json"
	collabFile    = "als_model.json"
	lockFile      = ".lessonrec.lock"
)

// Bundle is the full set of trained artifacts for one snapshot generation.
type Bundle struct {
	Model        *vsm.Model
	Items        []content.ItemMeta
	Vocab        *features.Vocabulary
	ItemFeatures *features.Matrix
	QuizFeatures *features.Matrix
	Collab       *collab.Model // nil when no collaborative model was trained
}

// Manifest records snapshot provenance and the shape of its artifacts.
type Manifest struct {
	CreatedAt  time.Time `json:"created_at"`
	Items      int       `json:"items"`
	Quizzes    int       `json:"quizzes"`
	FeatureDim int       `json:"feature_dim"`
	Users      int       `json:"users"`
	Factors    int       `json:"factors"`
}

// Save writes every artifact of the bundle into dir. Each file is written
// to a temporary name and renamed into place, so a concurrent reader never
// observes a partially written artifact; a file lock keeps two trainers
// from interleaving their writes.
func Save(dir string, b *Bundle) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire snapshot lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	manifest := Manifest{
		CreatedAt:  time.Now().UTC(),
		Items:      len(b.Items),
		FeatureDim: b.Vocab.Dim(),
	}
	if b.QuizFeatures != nil {
		manifest.Quizzes = b.QuizFeatures.Len()
	}
	if b.Collab != nil {
		manifest.Users = len(b.Collab.UserIDs)
		if len(b.Collab.V) > 0 {
			manifest.Factors = len(b.Collab.V[0])
		}
	}

	files := map[string]any{
		contentFile:   b.Model,
		itemMetaFile:  b.Items,
		vocabFile:     b.Vocab,
		itemFeatsFile: b.ItemFeatures,
		quizFeatsFile: b.QuizFeatures,
		manifestFile:  manifest,
	}
	if b.Collab != nil {
		files[collabFile] = b.Collab
	}
	for name, v := range files {
		if err := writeAtomic(dir, name, v); err != nil {
			return err
		}
	}
	return nil
}

func writeAtomic(dir, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Load reads a snapshot directory back into a bundle and validates it.
// A missing collaborative model is fine (the serving layer degrades to its
// fallback chain); inconsistent dimensions between stored artifacts are
// fatal. The U/V orientation repair runs here, with a logged outcome.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{}

	if err := readJSON(dir, contentFile, &b.Model); err != nil {
		return nil, err
	}
	if err := readJSON(dir, itemMetaFile, &b.Items); err != nil {
		return nil, err
	}
	if err := readJSON(dir, vocabFile, &b.Vocab); err != nil {
		return nil, err
	}
	if err := readJSON(dir, itemFeatsFile, &b.ItemFeatures); err != nil {
		return nil, err
	}
	if err := readJSON(dir, quizFeatsFile, &b.QuizFeatures); err != nil {
		return nil, err
	}

	// Optional: collaborative model may not have been trained yet.
	if err := readJSON(dir, collabFile, &b.Collab); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		b.Collab = nil
	}

	if err := validate(b); err != nil {
		return nil, err
	}
	return b, nil
}

func readJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", name, os.ErrNotExist)
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

// validate enforces the cross-artifact invariants before the bundle goes
// live: feature rows must match the vocabulary dimension on both matrices,
// item metadata must align with the document matrix, and factor matrices
// must agree with their identifier maps (repairing a swapped orientation).
func validate(b *Bundle) error {
	dim := b.Vocab.Dim()
	for _, m := range []*features.Matrix{b.ItemFeatures, b.QuizFeatures} {
		if m == nil {
			continue
		}
		for _, row := range m.Rows {
			if len(row) != dim {
				return fmt.Errorf("%w: feature row width %d, vocabulary dimension %d",
					collab.ErrDimensionMismatch, len(row), dim)
			}
		}
	}
	if b.Model.Loaded() && len(b.Model.RowToID) != len(b.Items) {
		return fmt.Errorf("%w: %d document rows for %d item metadata records",
			collab.ErrDimensionMismatch, len(b.Model.RowToID), len(b.Items))
	}
	if b.Collab != nil {
		b.Collab.RepairOrientation(logger.Get())
		if err := b.Collab.Validate(); err != nil {
			return err
		}
	}
	return nil
}
