package nvm

import (
	"hash/fnv"
	"sort"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
)

// IndexEntry maps a model name to its payload location inside the
// uncompressed MODL chunk, for O(1) lookup without decoding every model.
type IndexEntry struct {
	ModelName string
	// Offset is relative to the start of the uncompressed models payload.
	Offset uint64
	Size   uint32
	// ContextHash is a fast pre-filter over the model's current phoneme.
	// It is not a cryptographic guarantee.
	ContextHash uint32
}

func (e *IndexEntry) write(w *binio.Writer) error {
	if err := w.String(e.ModelName); err != nil {
		return err
	}
	if err := w.Uint64(e.Offset); err != nil {
		return err
	}
	if err := w.Uint32(e.Size); err != nil {
		return err
	}
	return w.Uint32(e.ContextHash)
}

func readIndexEntry(r *binio.Reader) (IndexEntry, error) {
	var e IndexEntry
	var err error
	if e.ModelName, err = r.String(); err != nil {
		return IndexEntry{}, err
	}
	if e.Offset, err = r.Uint64(); err != nil {
		return IndexEntry{}, err
	}
	if e.Size, err = r.Uint32(); err != nil {
		return IndexEntry{}, err
	}
	if e.ContextHash, err = r.Uint32(); err != nil {
		return IndexEntry{}, err
	}
	return e, nil
}

// HashContext returns the 32-bit FNV-1a hash used for index pre-filtering.
func HashContext(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// buildIndex regenerates the index from the model map. Entries are sorted
// by name so repeated saves of the same content are byte-identical.
// Offsets and sizes are filled in during the models-chunk encode.
func buildIndex(models map[string]*SerializedModel) []IndexEntry {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make([]IndexEntry, 0, len(names))
	for _, name := range names {
		m := models[name]
		index = append(index, IndexEntry{
			ModelName:   name,
			ContextHash: HashContext(m.Context.CurrentPhoneme),
		})
	}
	return index
}
