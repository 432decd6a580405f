package prefs

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
)

// DefaultNamespace groups the appliance's keys.
const DefaultNamespace = "aircube"

// BlockDevice is the subset of tinygo's machine.BlockDevice used here.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

var blockMagic = [4]byte{'A', 'C', 'P', 'F'}

// BlockStore keeps all keys in one erase block at the start of dev.
// Layout: magic, uint16 count, then per entry a length-prefixed key and an
// int32, all little endian.
type BlockStore struct {
	dev  BlockDevice
	mu   sync.Mutex
	m    map[string]int
	done bool
}

func NewBlockStore(dev BlockDevice) *BlockStore {
	return &BlockStore{dev: dev}
}

func (s *BlockStore) load() error {
	if s.done {
		return nil
	}
	s.m = map[string]int{}
	size := s.dev.EraseBlockSize()
	if size <= 0 || size > 4096 {
		size = 4096
	}
	buf := make([]byte, size)
	if _, err := s.dev.ReadAt(buf, 0); err != nil {
		return errors.Wrap(err, "read prefs block")
	}
	s.done = true
	if [4]byte(buf[:4]) != blockMagic {
		return nil // blank or foreign block
	}
	n := int(binary.LittleEndian.Uint16(buf[4:6]))
	p := buf[6:]
	for i := 0; i < n; i++ {
		if len(p) < 1 {
			break
		}
		kl := int(p[0])
		if len(p) < 1+kl+4 {
			break
		}
		key := string(p[1 : 1+kl])
		s.m[key] = int(int32(binary.LittleEndian.Uint32(p[1+kl:])))
		p = p[1+kl+4:]
	}
	return nil
}

func (s *BlockStore) LoadInt(key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return 0, false, err
	}
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *BlockStore) SaveInt(key string, v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if len(key) > 255 {
		return errors.Errorf("prefs key too long: %d", len(key))
	}
	old, had := s.m[key]
	if had && old == v {
		return nil
	}
	s.m[key] = v
	if err := s.flush(); err != nil {
		if had {
			s.m[key] = old
		} else {
			delete(s.m, key)
		}
		return err
	}
	return nil
}

func (s *BlockStore) flush() error {
	buf := append([]byte(nil), blockMagic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s.m)))
	for k, x := range s.m {
		buf = append(buf, byte(len(k)))
		buf = append(buf, k...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(x)))
	}
	if size := s.dev.EraseBlockSize(); size > 0 && int64(len(buf)) > size {
		return errors.New("prefs block full")
	}
	if err := s.dev.EraseBlocks(0, 1); err != nil {
		return errors.Wrap(err, "erase prefs block")
	}
	if _, err := s.dev.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "write prefs block")
	}
	return nil
}
