// Package store реализует локальное хранилище корзины в JSON-файле.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmeshcher/worldcup-storefront/internal/model"
)

// SchemaVersion — текущая версия схемы файла состояния. Файл с другой
// версией считается несовместимым и читается как пустая корзина.
const SchemaVersion = 1

// stateFile — формат сериализованного состояния. Корзина лежит под
// фиксированным ключом worldcup_cart, рядом — версия схемы.
type stateFile struct {
	Version int              `json:"version"`
	Cart    []model.CartLine `json:"worldcup_cart"`
}

// FileStore хранит корзину в одном JSON-файле на диске.
// Единственный пишущий — владеющий им Cart Engine.
type FileStore struct {
	path string
}

// NewFileStore создаёт хранилище по указанному пути и готовит каталог под файл.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state file path is empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	return &FileStore{path: path}, nil
}

// Load читает корзину из файла. Отсутствующий файл, повреждённый JSON или
// несовпадение версии схемы дают пустую корзину без ошибки: локальное
// состояние носит рекомендательный характер и восстанавливается с нуля.
func (s *FileStore) Load() ([]model.CartLine, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}

	if state.Version != SchemaVersion {
		return nil, nil
	}

	return state.Cart, nil
}

// Save записывает корзину в файл атомарно: сначала во временный файл,
// затем rename, чтобы прерванная запись не испортила предыдущее состояние.
func (s *FileStore) Save(lines []model.CartLine) error {
	if lines == nil {
		lines = []model.CartLine{}
	}

	state := stateFile{
		Version: SchemaVersion,
		Cart:    lines,
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
