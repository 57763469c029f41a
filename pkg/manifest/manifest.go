// Package manifest records the identity and geometry of a pair of drive
// images so that a volume is never reopened with a configuration it was not
// formatted with.
package manifest

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"github.com/weberc2/sectorfs/pkg/config"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const (
	FileName = "manifest.yaml"

	GeometryMismatchErr ConstError = "image geometry does not match configuration"
)

type Manifest struct {
	VolumeID string              `yaml:"volumeID"`
	Version  uint32              `yaml:"version"`
	NAND     config.NANDConfig   `yaml:"nand"`
	EEPROM   config.EEPROMConfig `yaml:"eeprom"`
}

func New(c *config.Config) Manifest {
	return Manifest{
		VolumeID: uuid.NewString(),
		Version:  SuperblockVersion,
		NAND:     c.NAND,
		EEPROM:   c.EEPROM,
	}
}

// Salt is the per-volume salt the passphrase key is derived with.
func (m *Manifest) Salt() ([]byte, error) {
	id, err := uuid.Parse(m.VolumeID)
	if err != nil {
		return nil, fmt.Errorf("parsing volume id `%s`: %w", m.VolumeID, err)
	}
	return id[:], nil
}

func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("loading manifest `%s`: %w", path, err)
	}
	if _, err := m.Salt(); err != nil {
		return nil, fmt.Errorf("loading manifest `%s`: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// Check reports whether the images described by m can be opened with c.
func (m *Manifest) Check(c *config.Config) error {
	if m.Version != SuperblockVersion {
		return fmt.Errorf(
			"%w: manifest version `%d`, expected `%d`",
			VersionMismatchErr,
			m.Version,
			SuperblockVersion,
		)
	}
	if m.NAND != c.NAND {
		return fmt.Errorf(
			"%w: nand formatted as %+v, configured as %+v",
			GeometryMismatchErr,
			m.NAND,
			c.NAND,
		)
	}
	if m.EEPROM != c.EEPROM {
		return fmt.Errorf(
			"%w: eeprom formatted as %+v, configured as %+v",
			GeometryMismatchErr,
			m.EEPROM,
			c.EEPROM,
		)
	}
	return nil
}
