package storage

import (
	"fmt"
	"handsoff/internal/models"
	"handsoff/internal/providers"
	"handsoff/internal/services"
	"handsoff/internal/storage/interfaces"
	"os"

	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
)

// FileManager keeps the pending-send queue on disk between runs.
type FileManager struct {
	sync       services.SyncManagerInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	clock      clockwork.Clock
}

func NewFileManager(compressor interfaces.CompressorInterface, sync services.SyncManagerInterface, logger providers.Logger, clk clockwork.Clock) *FileManager {
	return &FileManager{
		compressor: compressor,
		sync:       sync,
		logger:     logger,
		clock:      clk,
	}
}

// SaveToFile writes the current pending queue, replacing fileName atomically.
func (f *FileManager) SaveToFile(fileName string) (int, error) {
	snapshot := models.PendingFile{
		Version: models.PendingFileVersion,
		SavedAt: f.clock.Now(),
		Records: f.sync.PendingRecords(),
	}

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return 0, err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return 0, err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return 0, err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return 0, err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return 0, err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return 0, err
	}

	return len(snapshot.Records), os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile hands the records saved by a previous run back to the sync
// manager. A missing file restores nothing.
func (f *FileManager) LoadFromFile(fileName string) (int, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return 0, err
	}

	var snapshot models.PendingFile
	if err := json.Unmarshal(decompressedData, &snapshot); err != nil {
		return 0, err
	}
	if snapshot.Version > models.PendingFileVersion {
		return 0, fmt.Errorf("pending file version %d is newer than supported %d", snapshot.Version, models.PendingFileVersion)
	}

	valid := snapshot.Records[:0]
	for _, rec := range snapshot.Records {
		if rec.Timestamp.IsZero() {
			f.logger.Warnf(providers.TypeSync, "Skipping pending record %s without timestamp", rec.ID)
			continue
		}
		rec.Origin = models.OriginLocal
		valid = append(valid, rec)
	}
	f.sync.RestorePending(valid)
	return len(valid), nil
}
