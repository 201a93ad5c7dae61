package camconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store persists the currently applied CamConfig as a base-10 integer
type Store struct {
	fs   afero.Fs
	path string
	log  *zap.SugaredLogger
}

func NewStore(fs afero.Fs, path string, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{fs: fs, path: path, log: log}
}

// Load always yields a usable configuration. A missing file is created with
// Default; unreadable or invalid content is logged and reported as Default.
func (s *Store) Load() CamConfig {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		s.log.Errorf("Cannot stat %s: %v", s.path, err)
		return Default
	}
	if !exists {
		// Images ship with mmal, unlike the stock OS
		if err := s.Save(Default); err != nil {
			s.log.Errorf("Cannot create %s: %v", s.path, err)
		}
		return Default
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		s.log.Errorf("Cannot read %s: %v", s.path, err)
		return Default
	}
	content := strings.TrimSpace(string(data))
	v, err := strconv.Atoi(content)
	if err != nil {
		s.log.Errorf("Invalid value inside %s [%s]", filepath.Base(s.path), content)
		return Default
	}
	c, err := FromInt(v)
	if err != nil {
		s.log.Errorf("Invalid value inside %s: %v", filepath.Base(s.path), err)
		return Default
	}
	return c
}

func (s *Store) Save(c CamConfig) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCamConfig, int(c))
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(strconv.Itoa(int(c))), 0644); err != nil {
		return fmt.Errorf("failed to write cam config: %w", err)
	}
	return nil
}
