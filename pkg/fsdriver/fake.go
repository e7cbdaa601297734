package fsdriver

import (
	"fmt"
	"sync"
)

// FakeMounter is an in-memory Mounter for tests
type FakeMounter struct {
	mu      sync.Mutex
	mounts  map[string]string // target -> source
	MountFn func(source, target string) error
	// UnmountErr, when set, fails every Unmount
	UnmountErr error
}

// NewFakeMounter creates an empty FakeMounter
func NewFakeMounter() *FakeMounter {
	return &FakeMounter{mounts: make(map[string]string)}
}

func (m *FakeMounter) Mount(source, target, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MountFn != nil {
		if err := m.MountFn(source, target); err != nil {
			return err
		}
	}
	if _, busy := m.mounts[target]; busy {
		return fmt.Errorf("%s already mounted", target)
	}
	m.mounts[target] = source
	return nil
}

func (m *FakeMounter) Unmount(target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UnmountErr != nil {
		return m.UnmountErr
	}
	if _, ok := m.mounts[target]; !ok {
		return fmt.Errorf("%s not mounted", target)
	}
	delete(m.mounts, target)
	return nil
}

func (m *FakeMounter) IsMounted(target string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.mounts[target]
	return ok, nil
}

func (m *FakeMounter) MountPoints(source string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for target, src := range m.mounts {
		if sameDevice(src, source) {
			out = append(out, target)
		}
	}
	return out, nil
}

// SetMounted records a mount without going through Mount
func (m *FakeMounter) SetMounted(source, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounts[target] = source
}
