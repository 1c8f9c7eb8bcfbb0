package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/answer-engine/internal/model"
)

const (
	manifestFile = "manifest.yaml"
	examplesFile = "examples.json"
	vectorExt    = ".vec"

	formatVersion = 1
	headerSize    = 16
)

var vectorMagic = [4]byte{'A', 'E', 'V', 'X'}

// ErrCorrupt marks persisted index state that failed validation.
var ErrCorrupt = eris.New("index: corrupt cache")

// ErrNotFound marks a directory without a persisted index.
var ErrNotFound = eris.New("index: no cached index")

type manifest struct {
	Version   int                `yaml:"version"`
	Dimension int                `yaml:"dimension"`
	Model     string             `yaml:"model"`
	Source    string             `yaml:"source,omitempty"`
	CreatedAt time.Time          `yaml:"created_at"`
	Entries   []manifestCategory `yaml:"categories"`
}

// vectorFile names the vector file of the i-th category. Names are ordinal
// so distinct categories never share a file.
func vectorFile(i int) string {
	return fmt.Sprintf("cat-%03d%s", i, vectorExt)
}

type manifestCategory struct {
	Type    string `yaml:"type"`
	Level   string `yaml:"level"`
	Count   int    `yaml:"count"`
	Vectors string `yaml:"vectors"`
}

// Save writes the index to dir: a YAML manifest, one binary vector file per
// category and a JSON file of example payloads in manifest order.
func (x *Index[P]) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "index: save: mkdir")
	}

	m := manifest{
		Version:   formatVersion,
		Dimension: x.dim,
		Model:     x.model,
		Source:    x.source,
		CreatedAt: time.Now().UTC(),
	}
	payloads := make([][]model.IndexedExample[P], 0, len(x.order))

	for i, c := range x.order {
		p := x.parts[c]
		name := vectorFile(i)
		if err := writeVectors(filepath.Join(dir, name), p.examples, x.dim); err != nil {
			return err
		}
		m.Entries = append(m.Entries, manifestCategory{
			Type:    c.Type,
			Level:   c.Level,
			Count:   len(p.examples),
			Vectors: name,
		})
		payloads = append(payloads, p.examples)
	}

	data, err := json.Marshal(payloads)
	if err != nil {
		return eris.Wrap(err, "index: save: marshal examples")
	}
	if err := os.WriteFile(filepath.Join(dir, examplesFile), data, 0o644); err != nil {
		return eris.Wrap(err, "index: save: write examples")
	}

	// The manifest goes last so a partial save never looks complete.
	out, err := yaml.Marshal(&m)
	if err != nil {
		return eris.Wrap(err, "index: save: marshal manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), out, 0o644); err != nil {
		return eris.Wrap(err, "index: save: write manifest")
	}
	return nil
}

func writeVectors[P any](path string, examples []model.IndexedExample[P], dim int) error {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(examples)*dim*4))
	buf.Write(vectorMagic[:])
	_ = binary.Write(buf, binary.LittleEndian, uint32(formatVersion))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(examples)))
	_ = binary.Write(buf, binary.LittleEndian, uint32(dim))
	for _, ex := range examples {
		if err := binary.Write(buf, binary.LittleEndian, ex.Embedding); err != nil {
			return eris.Wrap(err, "index: save: encode vectors")
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "index: save: write %s", filepath.Base(path))
	}
	return nil
}

// Load reads an index saved by Save. The stored dimension must equal dim and,
// when embeddingModel is non-empty, the stored model must match it. Any
// shape, type or count inconsistency yields ErrCorrupt.
func Load[P any](dir string, dim int, embeddingModel string) (*Index[P], error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrNotFound, "index: load %s", dir)
	}
	if err != nil {
		return nil, eris.Wrap(err, "index: load: read manifest")
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, corrupt("manifest: %v", err)
	}
	if m.Version != formatVersion {
		return nil, corrupt("manifest version %d, want %d", m.Version, formatVersion)
	}
	if m.Dimension != dim {
		return nil, corrupt("manifest dimension %d, want %d", m.Dimension, dim)
	}
	if embeddingModel != "" && m.Model != embeddingModel {
		return nil, corrupt("manifest model %q, want %q", m.Model, embeddingModel)
	}

	raw, err = os.ReadFile(filepath.Join(dir, examplesFile))
	if err != nil {
		return nil, corrupt("examples: %v", err)
	}
	var payloads [][]model.IndexedExample[P]
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, corrupt("examples: %v", err)
	}
	if len(payloads) != len(m.Entries) {
		return nil, corrupt("examples: %d categories, manifest says %d", len(payloads), len(m.Entries))
	}

	x := New[P](dim, m.Model)
	x.source = m.Source
	files := make(map[string]bool, len(m.Entries))
	for i, e := range m.Entries {
		c := model.Category{Type: e.Type, Level: e.Level}
		if _, dup := x.parts[c]; dup {
			return nil, corrupt("category %s listed twice", c.Key())
		}
		if e.Vectors == "" || e.Vectors != filepath.Base(e.Vectors) || e.Vectors == "." || e.Vectors == ".." {
			return nil, corrupt("category %s: bad vector file name %q", c.Key(), e.Vectors)
		}
		if files[e.Vectors] {
			return nil, corrupt("vector file %s shared by several categories", e.Vectors)
		}
		files[e.Vectors] = true

		examples := payloads[i]
		if len(examples) != e.Count {
			return nil, corrupt("category %s: %d examples, manifest says %d", c.Key(), len(examples), e.Count)
		}
		vectors, err := readVectors(filepath.Join(dir, e.Vectors), e.Count, dim)
		if err != nil {
			return nil, err
		}

		p := &partition[P]{matrix: make([]float32, 0, e.Count*dim)}
		for j := range examples {
			examples[j].Category = c
			examples[j].Embedding = vectors[j*dim : (j+1)*dim : (j+1)*dim]
			p.matrix = append(p.matrix, normalized(examples[j].Embedding)...)
		}
		p.examples = examples
		x.parts[c] = p
		x.order = append(x.order, c)
	}
	return x, nil
}

func readVectors(path string, rows, dim int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, corrupt("vectors %s: %v", filepath.Base(path), err)
	}
	if len(data) < headerSize || !bytes.Equal(data[:4], vectorMagic[:]) {
		return nil, corrupt("vectors %s: bad header", filepath.Base(path))
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	gotRows := binary.LittleEndian.Uint32(data[8:12])
	gotDim := binary.LittleEndian.Uint32(data[12:16])
	switch {
	case version != formatVersion:
		return nil, corrupt("vectors %s: version %d", filepath.Base(path), version)
	case int(gotRows) != rows:
		return nil, corrupt("vectors %s: %d rows, want %d", filepath.Base(path), gotRows, rows)
	case int(gotDim) != dim:
		return nil, corrupt("vectors %s: %d dims, want %d", filepath.Base(path), gotDim, dim)
	}
	need := rows * dim * 4
	if len(data)-headerSize != need {
		return nil, corrupt("vectors %s: %d payload bytes, want %d", filepath.Base(path), len(data)-headerSize, need)
	}

	out := make([]float32, rows*dim)
	if err := binary.Read(bytes.NewReader(data[headerSize:]), binary.LittleEndian, out); err != nil {
		return nil, corrupt("vectors %s: %v", filepath.Base(path), err)
	}
	return out, nil
}

func corrupt(format string, args ...any) error {
	return eris.Wrapf(ErrCorrupt, format, args...)
}

// Check validates a loaded index against the data it was built from.
type Check[P any] func(*Index[P]) error

// ExpectSize fails a loaded index that does not hold exactly n examples.
func ExpectSize[P any](n int) Check[P] {
	return func(x *Index[P]) error {
		if x.Size() != n {
			return corrupt("holds %d examples, source has %d", x.Size(), n)
		}
		return nil
	}
}

// ExpectSource fails a loaded index whose source fingerprint differs from
// fingerprint.
func ExpectSource[P any](fingerprint string) Check[P] {
	return func(x *Index[P]) error {
		if x.Source() != fingerprint {
			return corrupt("built from source %q, want %q", x.Source(), fingerprint)
		}
		return nil
	}
}

// LoadOrRebuild loads the index cached in dir, or calls rebuild and saves
// the result when the cache is missing or fails validation, including any
// checks. rebuilt reports which path was taken. A failed save is logged and
// does not fail the call.
func LoadOrRebuild[P any](dir string, dim int, embeddingModel string, rebuild func() (*Index[P], error), checks ...Check[P]) (idx *Index[P], rebuilt bool, err error) {
	log := zap.L().With(zap.String("dir", dir))

	idx, err = Load[P](dir, dim, embeddingModel)
	for _, check := range checks {
		if err != nil {
			break
		}
		err = check(idx)
	}
	if err == nil {
		log.Info("index: loaded from cache", zap.Int("examples", idx.Size()))
		return idx, false, nil
	}
	if eris.Is(err, ErrNotFound) {
		log.Info("index: no cache, building")
	} else {
		log.Warn("index: cache invalid, rebuilding", zap.Error(err))
	}

	idx, err = rebuild()
	if err != nil {
		return nil, false, eris.Wrap(err, "index: rebuild")
	}
	if dir != "" {
		if err := idx.Save(dir); err != nil {
			log.Warn("index: save rebuilt cache failed", zap.Error(err))
		}
	}
	return idx, true, nil
}
