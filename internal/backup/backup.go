// Package backup crea y restaura copias zip del ledger.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"

	"go.uber.org/zap"
)

const (
	filePrefix     = "inventory_backup_"
	timestampStamp = "20060102_150405"

	itemsEntry        = "items.json"
	transactionsEntry = "transactions.json"
)

var filenamePattern = regexp.MustCompile(`^inventory_backup_\d{8}_\d{6}(_\d+)?\.zip$`)

// ErrInvalidBackup el archivo no es un backup válido
var ErrInvalidBackup = errors.New("invalid backup file")

// Store origen y destino de los snapshots
type Store interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Restore(ctx context.Context, snapshot *models.Snapshot) error
}

// Manager administra los backups de un directorio
type Manager struct {
	dir    string
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewManager crea el manager y el directorio si no existe
func NewManager(dir string, store Store, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}
	return &Manager{dir: dir, store: store, now: time.Now, logger: logger}, nil
}

// Create escribe inventory_backup_<YYYYmmdd_HHMMSS>.zip con el snapshot actual
func (m *Manager) Create(ctx context.Context) (*models.BackupInfo, error) {
	snapshot, err := m.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	path := m.nextPath()
	if err := writeArchive(path, snapshot); err != nil {
		os.Remove(path)
		return nil, err
	}

	info, err := describe(path)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Backup creado",
		zap.String("file", info.Filename),
		zap.Int("items", len(snapshot.Items)),
		zap.Int("transactions", len(snapshot.Transactions)))
	return info, nil
}

// List backups disponibles, el más reciente primero
func (m *Manager) List() ([]models.BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	backups := []models.BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !filenamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := describe(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			m.logger.Warn("No se pudo leer backup", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Created.Equal(backups[j].Created) {
			return backups[i].Created.After(backups[j].Created)
		}
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// Restore reemplaza el ledger con el contenido del backup indicado
func (m *Manager) Restore(ctx context.Context, filename string) error {
	if filepath.Base(filename) != filename || !filenamePattern.MatchString(filename) {
		return &ledger.ValidationError{Field: "filename", Reason: "not a backup file name"}
	}

	path := filepath.Join(m.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ledger.NotFoundError{Resource: "backup", Key: filename}
		}
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	snapshot, err := readArchive(path)
	if err != nil {
		return &ledger.ValidationError{Field: "filename", Reason: err.Error()}
	}

	if err := m.store.Restore(ctx, snapshot); err != nil {
		return err
	}

	m.logger.Info("Backup restaurado", zap.String("file", filename))
	return nil
}

// nextPath evita pisar un backup creado en el mismo segundo
func (m *Manager) nextPath() string {
	base := filePrefix + m.now().Format(timestampStamp)
	path := filepath.Join(m.dir, base+".zip")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s_%d.zip", base, i))
	}
}

func writeArchive(path string, snapshot *models.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	if err := writeEntry(zw, itemsEntry, snapshot.Items); err != nil {
		return err
	}
	if err := writeEntry(zw, transactionsEntry, snapshot.Transactions); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish backup archive: %w", err)
	}
	return file.Close()
}

func writeEntry(zw *zip.Writer, name string, v interface{}) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}

func readArchive(path string) (*models.Snapshot, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer zr.Close()

	snapshot := &models.Snapshot{}
	found := map[string]bool{}
	for _, f := range zr.File {
		var target interface{}
		switch f.Name {
		case itemsEntry:
			target = &snapshot.Items
		case transactionsEntry:
			target = &snapshot.Transactions
		default:
			continue
		}
		if err := readEntry(f, target); err != nil {
			return nil, err
		}
		found[f.Name] = true
	}

	if !found[itemsEntry] || !found[transactionsEntry] {
		return nil, fmt.Errorf("%w: missing %s or %s", ErrInvalidBackup, itemsEntry, transactionsEntry)
	}
	return snapshot, nil
}

func readEntry(f *zip.File, target interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBackup, f.Name, err)
	}
	return nil
}

// describe la fecha de creación sale del nombre; si no se puede leer, de la fecha de modificación
func describe(path string) (*models.BackupInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	name := filepath.Base(path)
	created := stat.ModTime()
	if stamp := strings.TrimPrefix(name, filePrefix); len(stamp) >= len(timestampStamp) {
		if t, err := time.ParseInLocation(timestampStamp, stamp[:len(timestampStamp)], time.Local); err == nil {
			created = t
		}
	}

	return &models.BackupInfo{
		Filename: name,
		Path:     path,
		Created:  created,
		Size:     stat.Size(),
	}, nil
}
