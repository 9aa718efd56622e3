package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FiresideFS is where config files are looked up and read. The OS one is
// used when running on the Pi; tests use NewMemFS.
type FiresideFS interface {
	afero.Fs
	Abs(string) (string, error)
	HomeDir() (string, error)
}

// configSearchPath lists the files tried, in order, when no -config flag is
// given. Room files come first so one checkout can serve several rooms.
func configSearchPath(fs FiresideFS, room string) []string {
	paths := []string{
		filepath.Join("config", room+".toml"),
		filepath.Join("config", room+".yaml"),
		"fireside.toml",
		"fireside.yaml",
	}
	if home, err := fs.HomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "fireside", "config.toml"))
	}
	return append(paths, "/etc/fireside/config.toml")
}

// findConfigFile returns the first regular file on the search path.
// A directory that happens to carry a config name is skipped.
func findConfigFile(fs FiresideFS, room string) (string, bool) {
	for _, path := range configSearchPath(fs, room) {
		if info, err := fs.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

type osFS struct {
	afero.Fs
}

func NewOSFS() FiresideFS {
	return osFS{afero.NewOsFs()}
}

func (osFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (osFS) HomeDir() (string, error) {
	return os.UserHomeDir()
}

// memFS keeps paths as given so a reload finds the same file again.
type memFS struct {
	afero.Fs
	home string
}

func NewMemFS() FiresideFS {
	return memFS{Fs: afero.NewMemMapFs(), home: "/home/pi"}
}

func (memFS) Abs(path string) (string, error) {
	return path, nil
}

func (m memFS) HomeDir() (string, error) {
	return m.home, nil
}
