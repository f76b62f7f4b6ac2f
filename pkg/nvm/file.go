package nvm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
	"github.com/nexussynth/nexusvoice/pkg/nvm/checksum"
	"github.com/nexussynth/nexusvoice/pkg/nvm/compress"
	"github.com/nexussynth/nexusvoice/pkg/voicebank"
	"github.com/nexussynth/nexusvoice/pkg/voicebank/hmm"
)

// File is a handle over one NVM container. A handle moves through
// Closed -> Open(clean) -> Open(dirty) -> Closed; a failed Open never
// produces a partially populated handle.
//
// A File is not safe for concurrent use. Concurrent readers of the same
// on-disk file may use separate handles.
type File struct {
	path     string
	header   FileHeader
	metadata *voicebank.Metadata
	models   map[string]*SerializedModel
	index    []IndexEntry

	isOpen  bool
	isDirty bool
	nextID  uint32

	// rawPayloadBytes is the total uncompressed payload size of the last
	// parse or encode, for compression-ratio reporting.
	rawPayloadBytes uint64

	checksumAlg checksum.Algorithm
	compressAlg compress.Algorithm
}

// Create returns a new empty container handle bound to path. Nothing is
// written until Save.
func Create(path string) *File {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &File{
		path:     path,
		header:   NewFileHeader(uint64(time.Now().Unix())),
		metadata: voicebank.New(name),
		models:   make(map[string]*SerializedModel),
		isOpen:   true,
		isDirty:  true,
	}
}

// Open reads and validates an existing container. On any failure the
// returned error identifies the check that failed and no handle is
// produced.
func Open(path string) (*File, error) {
	data, cleanup, err := readFileBytes(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	f, err := parseFile(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	f.path = path
	return f, nil
}

func parseFile(data []byte) (*File, error) {
	if len(data) < FileHeaderSize {
		return nil, fmt.Errorf("%w: file is %d bytes, smaller than the header", ErrCorruptFile, len(data))
	}
	r := binio.NewReader(bytes.NewReader(data))
	header, err := DecodeFileHeader(r)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	if header.FileSize != uint64(len(data)) {
		return nil, fmt.Errorf("%w: header declares %d bytes, file has %d",
			ErrCorruptFile, header.FileSize, len(data))
	}

	cc, err := newChunkCodecs(checksum.Algorithm(header.ChecksumType), compress.Algorithm(header.CompressionType))
	if err != nil {
		return nil, err
	}

	chunkAt := func(offset uint64, wantType uint32) ([]byte, error) {
		if offset < FileHeaderSize || offset >= uint64(len(data)) {
			return nil, fmt.Errorf("%w: %s chunk offset %d out of range",
				ErrCorruptFile, ChunkTypeString(wantType), offset)
		}
		cr := binio.NewReader(bytes.NewReader(data[offset:]))
		payload, _, err := cc.readChunk(cr, wantType)
		return payload, err
	}

	metaPayload, err := chunkAt(header.MetadataOffset, ChunkMetadata)
	if err != nil {
		return nil, err
	}
	indexPayload, err := chunkAt(header.IndexOffset, ChunkIndex)
	if err != nil {
		return nil, err
	}
	modelsPayload, err := chunkAt(header.ModelsOffset, ChunkModels)
	if err != nil {
		return nil, err
	}

	metadata, err := voicebank.FromJSON(metaPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata chunk: %v", ErrCorruptFile, err)
	}
	index, err := decodeIndexPayload(indexPayload)
	if err != nil {
		return nil, err
	}
	models, nextID, err := decodeModelsPayload(modelsPayload)
	if err != nil {
		return nil, err
	}
	if len(index) != len(models) {
		return nil, fmt.Errorf("%w: index has %d entries for %d models",
			ErrCorruptFile, len(index), len(models))
	}
	for _, e := range index {
		if _, ok := models[e.ModelName]; !ok {
			return nil, fmt.Errorf("%w: index entry %q has no model", ErrCorruptFile, e.ModelName)
		}
	}

	return &File{
		header:          header,
		metadata:        metadata,
		models:          models,
		index:           index,
		isOpen:          true,
		nextID:          nextID,
		rawPayloadBytes: uint64(len(metaPayload) + len(indexPayload) + len(modelsPayload)),
		checksumAlg:     checksum.Algorithm(header.ChecksumType),
		compressAlg:     compress.Algorithm(header.CompressionType),
	}, nil
}

func decodeIndexPayload(payload []byte) ([]IndexEntry, error) {
	r := binio.NewReader(bytes.NewReader(payload))
	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: index count: %v", ErrCorruptFile, err)
	}
	if count > MaxModelsPerFile {
		return nil, fmt.Errorf("%w: index declares %d entries", ErrCorruptFile, count)
	}
	index := make([]IndexEntry, 0, count)
	seen := make(map[string]struct{}, count)
	for i := uint32(0); i < count; i++ {
		e, err := readIndexEntry(r)
		if err != nil {
			return nil, fmt.Errorf("%w: index entry %d: %v", ErrCorruptFile, i, err)
		}
		if _, dup := seen[e.ModelName]; dup {
			return nil, fmt.Errorf("%w: duplicate index entry %q", ErrCorruptFile, e.ModelName)
		}
		seen[e.ModelName] = struct{}{}
		index = append(index, e)
	}
	return index, nil
}

func decodeModelsPayload(payload []byte) (map[string]*SerializedModel, uint32, error) {
	r := binio.NewReader(bytes.NewReader(payload))
	count, err := r.Uint32()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: model count: %v", ErrCorruptFile, err)
	}
	if count > MaxModelsPerFile {
		return nil, 0, fmt.Errorf("%w: %d models exceeds format limit", ErrCorruptFile, count)
	}
	models := make(map[string]*SerializedModel, count)
	var nextID uint32
	for i := uint32(0); i < count; i++ {
		m, err := readSerializedModel(r)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: model %d: %v", ErrCorruptFile, i, err)
		}
		if _, dup := models[m.ModelName]; dup {
			return nil, 0, fmt.Errorf("%w: duplicate model %q", ErrCorruptFile, m.ModelName)
		}
		models[m.ModelName] = m
		if m.ModelID >= nextID {
			nextID = m.ModelID + 1
		}
	}
	return models, nextID, nil
}

// IsOpen reports whether the handle is usable.
func (f *File) IsOpen() bool { return f != nil && f.isOpen }

// IsDirty reports whether in-memory state differs from disk.
func (f *File) IsDirty() bool { return f != nil && f.isDirty }

// Path returns the file path bound to the handle.
func (f *File) Path() string { return f.path }

// Header returns a copy of the current file header.
func (f *File) Header() FileHeader { return f.header }

// FormatVersion returns the container's format version.
func (f *File) FormatVersion() SemanticVersion { return f.header.SemVer() }

// SetFormatVersion stamps the version written into the header on the next
// save. Versions below the minimum supported are rejected since the
// resulting file could not be reopened.
func (f *File) SetFormatVersion(v SemanticVersion) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if v.Less(MinSupportedVersion) {
		return fmt.Errorf("%w: %s below minimum %s", ErrUnsupportedVersion, v, MinSupportedVersion)
	}
	f.header.Version = v.Uint32()
	f.isDirty = true
	return nil
}

// SetCompression selects the per-file compression algorithm applied to
// every chunk on the next save.
func (f *File) SetCompression(alg compress.Algorithm) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if err := alg.Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	f.compressAlg = alg
	f.isDirty = true
	return nil
}

// SetChecksum selects the per-file checksum algorithm applied to every
// chunk on the next save.
func (f *File) SetChecksum(alg checksum.Algorithm) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if err := alg.Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	f.checksumAlg = alg
	f.isDirty = true
	return nil
}

// Metadata returns the voice metadata document stored in the META chunk.
func (f *File) Metadata() *voicebank.Metadata { return f.metadata }

// SetMetadata replaces the voice metadata document.
func (f *File) SetMetadata(m *voicebank.Metadata) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	f.metadata = m
	f.isDirty = true
	return nil
}

// AddModel stores a model in the container, replacing any model with the
// same name. The index is regenerated and the handle marked dirty.
func (f *File) AddModel(m *hmm.PhonemeHmm) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if len(m.ModelName) == 0 || len(m.ModelName) > MaxModelNameLength {
		return fmt.Errorf("%w: %q", ErrNameTooLong, m.ModelName)
	}
	if _, exists := f.models[m.ModelName]; !exists && len(f.models) >= MaxModelsPerFile {
		return ErrTooManyModels
	}
	s := FromPhonemeHmm(m)
	s.ModelID = f.nextID
	f.nextID++
	f.models[m.ModelName] = s
	f.index = buildIndex(f.models)
	f.isDirty = true
	return nil
}

// AddModels adds a batch of models, stopping on the first failure.
func (f *File) AddModels(models []*hmm.PhonemeHmm) error {
	for _, m := range models {
		if err := f.AddModel(m); err != nil {
			return fmt.Errorf("add model %q: %w", m.ModelName, err)
		}
	}
	return nil
}

// RemoveModel deletes a model by name.
func (f *File) RemoveModel(name string) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if _, ok := f.models[name]; !ok {
		return fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	delete(f.models, name)
	f.index = buildIndex(f.models)
	f.isDirty = true
	return nil
}

// HasModel reports whether a model with the given name is present.
func (f *File) HasModel(name string) bool {
	_, ok := f.models[name]
	return ok
}

// Model returns the named model reconstructed as a runtime PhonemeHmm.
func (f *File) Model(name string) (*hmm.PhonemeHmm, error) {
	s, ok := f.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	return s.ToPhonemeHmm(), nil
}

// ModelNames returns the sorted model names.
func (f *File) ModelNames() []string {
	names := make([]string, 0, len(f.models))
	for name := range f.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelCount returns the number of models in the container.
func (f *File) ModelCount() int { return len(f.models) }

// Models returns every model, ordered by name.
func (f *File) Models() []*hmm.PhonemeHmm {
	out := make([]*hmm.PhonemeHmm, 0, len(f.models))
	for _, name := range f.ModelNames() {
		out = append(out, f.models[name].ToPhonemeHmm())
	}
	return out
}

// Index returns a copy of the current index entries.
func (f *File) Index() []IndexEntry {
	out := make([]IndexEntry, len(f.index))
	copy(out, f.index)
	return out
}

// Save writes the container to its bound path. The write goes to a
// temporary file renamed into place, so a failed save leaves any previous
// file intact.
func (f *File) Save() error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if f.path == "" {
		return ErrNoPath
	}

	encoded, header, err := f.encode()
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	f.header = header
	f.isDirty = false
	return nil
}

// SaveAs rebinds the handle to a new path and saves there.
func (f *File) SaveAs(path string) error {
	if !f.IsOpen() {
		return ErrClosed
	}
	f.path = path
	f.isDirty = true
	return f.Save()
}

// Close releases the handle. In-memory changes that were not saved are
// discarded.
func (f *File) Close() {
	if f == nil {
		return
	}
	f.isOpen = false
	f.isDirty = false
	f.models = nil
	f.index = nil
	f.metadata = nil
}

// encode renders the complete file image: header, META, INDX, MODL chunks
// in that order, with the header's offset fields matching the physical
// chunk positions.
func (f *File) encode() ([]byte, FileHeader, error) {
	cc, err := newChunkCodecs(f.checksumAlg, f.compressAlg)
	if err != nil {
		return nil, FileHeader{}, err
	}

	metaPayload, err := f.metadata.ToJSON()
	if err != nil {
		return nil, FileHeader{}, fmt.Errorf("encode metadata: %w", err)
	}

	modelsPayload, index, err := f.encodeModelsPayload()
	if err != nil {
		return nil, FileHeader{}, err
	}
	indexPayload, err := encodeIndexPayload(index)
	if err != nil {
		return nil, FileHeader{}, err
	}

	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := w.Bytes(make([]byte, FileHeaderSize)); err != nil {
		return nil, FileHeader{}, err
	}

	metaOff, err := cc.writeChunk(w, ChunkMetadata, 1, metaPayload)
	if err != nil {
		return nil, FileHeader{}, err
	}
	indexOff, err := cc.writeChunk(w, ChunkIndex, 1, indexPayload)
	if err != nil {
		return nil, FileHeader{}, err
	}
	modelsOff, err := cc.writeChunk(w, ChunkModels, 1, modelsPayload)
	if err != nil {
		return nil, FileHeader{}, err
	}

	header := f.header
	header.Magic = MagicNumber
	header.HeaderSize = FileHeaderSize
	header.NumChunks = 3
	header.FileSize = uint64(buf.Len())
	header.MetadataOffset = uint64(metaOff)
	header.IndexOffset = uint64(indexOff)
	header.ModelsOffset = uint64(modelsOff)
	header.ChecksumType = uint32(f.checksumAlg)
	header.CompressionType = uint32(f.compressAlg)
	if header.CreationTime == 0 {
		header.CreationTime = uint64(time.Now().Unix())
	}

	headerBytes, err := header.Encode()
	if err != nil {
		return nil, FileHeader{}, err
	}
	out := buf.Bytes()
	copy(out[:FileHeaderSize], headerBytes)

	f.index = index
	f.rawPayloadBytes = uint64(len(metaPayload) + len(indexPayload) + len(modelsPayload))
	return out, header, nil
}

// encodeModelsPayload writes the MODL payload (count + models, ordered by
// name) and produces the matching index with real offsets and sizes.
func (f *File) encodeModelsPayload() ([]byte, []IndexEntry, error) {
	index := buildIndex(f.models)

	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := w.Uint32(uint32(len(index))); err != nil {
		return nil, nil, err
	}
	for i := range index {
		m := f.models[index[i].ModelName]
		start := w.Position()
		if err := m.write(w); err != nil {
			return nil, nil, fmt.Errorf("encode model %q: %w", m.ModelName, err)
		}
		index[i].Offset = uint64(start)
		index[i].Size = uint32(w.Position() - start)
	}
	return buf.Bytes(), index, nil
}

func encodeIndexPayload(index []IndexEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := w.Uint32(uint32(len(index))); err != nil {
		return nil, err
	}
	for i := range index {
		if err := index[i].write(w); err != nil {
			return nil, fmt.Errorf("encode index entry %q: %w", index[i].ModelName, err)
		}
	}
	return buf.Bytes(), nil
}

// VerifyIntegrity checks that the handle's header is valid and the model
// set is non-empty.
func (f *File) VerifyIntegrity() error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if err := f.header.Validate(); err != nil {
		return err
	}
	if len(f.models) == 0 {
		return fmt.Errorf("%w: container holds no models", ErrCorruptFile)
	}
	return nil
}

// VerifyChecksums re-reads the bound file and verifies the stored digest
// of every chunk against a fresh computation. With checksums disabled in
// the header there is nothing to verify and it returns nil.
func (f *File) VerifyChecksums() error {
	if !f.IsOpen() {
		return ErrClosed
	}
	if f.path == "" {
		return ErrNoPath
	}
	return VerifyFileChecksums(f.path)
}

// Stats summarizes the container contents.
type Stats struct {
	TotalModels      int
	TotalStates      int
	TotalGaussians   int
	CompressedSize   uint64
	UncompressedSize uint64
	CompressionRatio float64
}

// Stats computes summary statistics for the current model set. Sizes
// reflect the last parse or save; for a dirty handle they describe the
// previous on-disk state. UncompressedSize counts header, chunk headers,
// and raw payloads, excluding digests and padding.
func (f *File) Stats() Stats {
	var s Stats
	s.TotalModels = len(f.models)
	for _, m := range f.models {
		s.TotalStates += len(m.States)
		for i := range m.States {
			if gmm := m.States[i].OutputDistribution; gmm != nil {
				s.TotalGaussians += gmm.NumComponents()
			}
		}
	}
	s.CompressedSize = f.header.FileSize
	s.UncompressedSize = FileHeaderSize + uint64(f.header.NumChunks)*ChunkHeaderSize + f.rawPayloadBytes
	if s.UncompressedSize > 0 {
		s.CompressionRatio = float64(s.CompressedSize) / float64(s.UncompressedSize)
	}
	return s
}
