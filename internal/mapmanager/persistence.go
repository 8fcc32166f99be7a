package mapmanager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// persisted is the on-disk shape: every profile plus which one was
// active, matching MapManager.hpp's SaveProfiles/LoadProfiles pair.
type persisted struct {
	ActiveProfileID string     `json:"activeProfileId"`
	Profiles        []*Profile `json:"profiles"`
}

// SaveProfiles writes every profile to path as JSON. The write is
// atomic: data is written to a temporary file and renamed into place,
// the same pattern internal/config uses for the daemon's own TOML file,
// so a crash mid-write cannot corrupt an existing profile set.
func (m *Manager) SaveProfiles(path string) error {
	m.mu.RLock()
	out := persisted{ActiveProfileID: m.activeID}
	for _, id := range m.sortedProfileIDs() {
		out.Profiles = append(out.Profiles, m.profiles[id])
	}
	m.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".havel-profiles-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadProfiles replaces the Manager's profile set with the contents of
// path. If the file does not exist, it is a no-op (a fresh daemon
// starts with zero profiles).
func (m *Manager) LoadProfiles(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var in persisted
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("mapmanager: decoding %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearAppliedLocked()
	m.profiles = make(map[string]*Profile, len(in.Profiles))
	m.order = m.order[:0]
	for _, p := range in.Profiles {
		m.profiles[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	m.activeID = in.ActiveProfileID
	return nil
}

// SaveProfile writes a single profile to path, for exporting one
// profile independent of the rest of the Manager's state.
func SaveProfile(path string, p *Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".havel-profile-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadProfile reads a single exported profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("mapmanager: decoding %s: %w", path, err)
	}
	return &p, nil
}
