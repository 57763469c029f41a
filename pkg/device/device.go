// Package device opens the image files of a volume and assembles the
// backends, cipher and filesystem over them.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/weberc2/sectorfs/pkg/backend/eeprom"
	"github.com/weberc2/sectorfs/pkg/backend/nand"
	"github.com/weberc2/sectorfs/pkg/config"
	"github.com/weberc2/sectorfs/pkg/crypt"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/io"
	"github.com/weberc2/sectorfs/pkg/manifest"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const (
	NANDImage   = "nand.img"
	EEPROMImage = "eeprom.img"

	ImageMissingErr ConstError = "image missing"
)

// Files lists everything a volume keeps in its image directory.
var Files = []string{manifest.FileName, NANDImage, EEPROMImage}

type Device struct {
	FileSystem *fs.FileSystem
	Manifest   manifest.Manifest
	FTL        *nand.FTL
	EEPROM     *eeprom.Device

	volumes []*io.FileVolume
}

// Open assembles the volume in c.ImageDir. With create set a fresh manifest
// (and volume id) is written and missing images are created erased; the
// caller is expected to format. Otherwise every file must already exist and
// the manifest must match c. The filesystem is returned unmounted.
func Open(c *config.Config, logger *log.Logger, create bool) (*Device, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}
	manifestPath := filepath.Join(c.ImageDir, manifest.FileName)

	var m manifest.Manifest
	if create {
		if err := os.MkdirAll(c.ImageDir, 0o755); err != nil {
			return nil, fmt.Errorf("opening device: %w", err)
		}
		m = manifest.New(c)
		if err := m.Save(manifestPath); err != nil {
			return nil, fmt.Errorf("opening device: %w", err)
		}
	} else {
		for _, name := range Files {
			if _, err := os.Stat(filepath.Join(c.ImageDir, name)); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil, fmt.Errorf(
						"opening device: %w: `%s` in `%s`",
						ImageMissingErr,
						name,
						c.ImageDir,
					)
				}
				return nil, fmt.Errorf("opening device: %w", err)
			}
		}
		loaded, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("opening device: %w", err)
		}
		if err := loaded.Check(c); err != nil {
			return nil, fmt.Errorf("opening device: %w", err)
		}
		m = *loaded
	}

	d := Device{Manifest: m}
	if err := d.open(c, logger); err != nil {
		d.Close()
		return nil, fmt.Errorf("opening device `%s`: %w", m.VolumeID, err)
	}
	logger.Debug(
		"opened device",
		"volume", m.VolumeID,
		"dir", c.ImageDir,
		"encrypted", c.Passphrase != "",
	)
	return &d, nil
}

func (d *Device) open(c *config.Config, logger *log.Logger) error {
	nandGeometry := c.NANDGeometry()
	nandVolume, err := d.openVolume(c, NANDImage, nandGeometry.VolumeSize())
	if err != nil {
		return err
	}
	if d.FTL, err = nand.New(nandVolume, nandGeometry); err != nil {
		return err
	}

	eepromVolume, err := d.openVolume(c, EEPROMImage, c.EEPROM.Size)
	if err != nil {
		return err
	}
	if d.EEPROM, err = eeprom.New(
		eepromVolume,
		c.EEPROM.PageSize,
		c.EEPROM.SectorSize,
	); err != nil {
		return err
	}

	var cipher crypt.Cipher = crypt.PassThrough{}
	if c.Passphrase != "" {
		salt, err := d.Manifest.Salt()
		if err != nil {
			return err
		}
		if cipher, err = crypt.NewChaCha20(c.Passphrase, salt); err != nil {
			return err
		}
	}

	d.FileSystem, err = fs.New(&fs.Params{
		Primary:                fs.Drive{Geometry: c.PrimaryGeometry(), Backend: d.FTL},
		Secondary:              fs.Drive{Geometry: c.SecondaryGeometry(), Backend: d.EEPROM},
		Cipher:                 cipher,
		Logger:                 logger,
		DefragThresholdPercent: c.DefragThresholdPercent,
	})
	return err
}

func (d *Device) openVolume(
	c *config.Config,
	name string,
	size Byte,
) (*io.FileVolume, error) {
	volume, _, err := io.OpenFileVolume(filepath.Join(c.ImageDir, name), size)
	if err != nil {
		return nil, err
	}
	d.volumes = append(d.volumes, volume)
	return volume, nil
}

// Close flushes and closes the image files.
func (d *Device) Close() error {
	var errs []error
	for _, volume := range d.volumes {
		if err := volume.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := volume.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.volumes = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing device: %w", err)
	}
	return nil
}
