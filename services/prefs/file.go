//go:build !rp2040

package prefs

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// FileStore keeps preferences in a YAML file under a namespace key.
//
//	aircube:
//	  led_brightness: 2
type FileStore struct {
	path      string
	namespace string
	mu        sync.Mutex
}

func NewFileStore(path, namespace string) *FileStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &FileStore{path: path, namespace: namespace}
}

func (s *FileStore) read() (map[string]map[string]int, error) {
	doc := map[string]map[string]int{}
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read prefs")
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse prefs %s", s.path)
	}
	return doc, nil
}

func (s *FileStore) LoadInt(key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return 0, false, err
	}
	v, ok := doc[s.namespace][key]
	return v, ok, nil
}

// SaveInt rewrites the file atomically.
func (s *FileStore) SaveInt(key string, v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	if doc[s.namespace] == nil {
		doc[s.namespace] = map[string]int{}
	}
	doc[s.namespace][key] = v

	b, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode prefs")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*")
	if err != nil {
		return errors.Wrap(err, "write prefs")
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write prefs")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write prefs")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "write prefs")
}
