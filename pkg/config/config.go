// Package config loads sectorfs settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/nbutton23/zxcvbn-go"
	"gopkg.in/yaml.v2"

	"github.com/weberc2/sectorfs/pkg/backend/nand"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const (
	EnvVarPrefix = "ESFS"
	appName      = "esfs"

	// minPassphraseScore is the lowest zxcvbn score accepted for a
	// passphrase.
	minPassphraseScore = 3
)

type NANDConfig struct {
	Blocks           int  `yaml:"blocks"`
	PagesPerBlock    int  `yaml:"pagesPerBlock"    split_words:"true"`
	PageSize         Byte `yaml:"pageSize"         split_words:"true"`
	DirectorySectors int  `yaml:"directorySectors" split_words:"true"`
	LogicalSectors   int  `yaml:"logicalSectors"   split_words:"true"`
}

type EEPROMConfig struct {
	Size             Byte `yaml:"size"`
	PageSize         Byte `yaml:"pageSize"         split_words:"true"`
	SectorSize       Byte `yaml:"sectorSize"       split_words:"true"`
	DirectorySectors int  `yaml:"directorySectors" split_words:"true"`
	DataEnd          int  `yaml:"dataEnd"          split_words:"true"`
}

type BackupConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

type Config struct {
	ImageDir               string       `yaml:"imageDir"               split_words:"true"`
	LogLevel               string       `yaml:"logLevel"               split_words:"true"`
	Passphrase             string       `yaml:"passphrase"`
	DefragThresholdPercent int          `yaml:"defragThresholdPercent" split_words:"true"`
	NAND                   NANDConfig   `yaml:"nand"`
	EEPROM                 EEPROMConfig `yaml:"eeprom"`
	Backup                 BackupConfig `yaml:"backup"`
}

// Default mirrors the original device: a 64 block NAND part with 512 byte
// pages and a 128 KiB EEPROM.
func Default() Config {
	return Config{
		ImageDir:               ".",
		LogLevel:               "info",
		DefragThresholdPercent: 10,
		NAND: NANDConfig{
			Blocks:           64,
			PagesPerBlock:    32,
			PageSize:         512,
			DirectorySectors: 32,
			LogicalSectors:   1920,
		},
		EEPROM: EEPROMConfig{
			Size:             128 * Kibibyte,
			PageSize:         256,
			SectorSize:       512,
			DirectorySectors: 8,
			DataEnd:          256,
		},
		Backup: BackupConfig{Prefix: appName},
	}
}

// FilePath picks the config file: $ESFS_CONFIG_FILE, then the explicit
// path, then $HOME/.config/esfs.yaml.
func FilePath(explicit string) string {
	if path := os.Getenv(EnvVarPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName+".yaml")
}

// Load layers the YAML file (when it exists) and then ESFS_* environment
// variables over the defaults and validates the result.
func Load(configFile string) (*Config, error) {
	c := Default()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.ImageDir == "" {
			return "imageDir", "IMAGE_DIR"
		}
		if c.NAND.Blocks == 0 {
			return "nand.blocks", "NAND_BLOCKS"
		}
		if c.NAND.PagesPerBlock == 0 {
			return "nand.pagesPerBlock", "NAND_PAGES_PER_BLOCK"
		}
		if c.NAND.PageSize == 0 {
			return "nand.pageSize", "NAND_PAGE_SIZE"
		}
		if c.EEPROM.Size == 0 {
			return "eeprom.size", "EEPROM_SIZE"
		}
		if c.EEPROM.SectorSize == 0 {
			return "eeprom.sectorSize", "EEPROM_SECTOR_SIZE"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			EnvVarPrefix,
			e,
		)
	}

	nandGeometry := c.NANDGeometry()
	if err := nandGeometry.Validate(); err != nil {
		return fmt.Errorf("validating nand configuration: %w", err)
	}
	primary := c.PrimaryGeometry()
	if err := primary.Validate(c.NAND.LogicalSectors); err != nil {
		return fmt.Errorf("validating nand configuration: %w", err)
	}
	secondary := c.SecondaryGeometry()
	if err := secondary.Validate(int(c.EEPROM.Size / c.EEPROM.SectorSize)); err != nil {
		return fmt.Errorf("validating eeprom configuration: %w", err)
	}
	if c.DefragThresholdPercent < 0 || c.DefragThresholdPercent > 100 {
		return fmt.Errorf(
			"validating configuration: defrag threshold `%d` not a percentage",
			c.DefragThresholdPercent,
		)
	}
	if c.Passphrase != "" {
		if err := CheckPassphrase(c.Passphrase); err != nil {
			return fmt.Errorf("validating configuration: %w", err)
		}
	}
	return nil
}

const PassphraseTooSimpleErr ConstError = "passphrase is too simple"

func CheckPassphrase(passphrase string) error {
	if zxcvbn.PasswordStrength(
		passphrase,
		[]string{appName, "sectorfs", "eeprom", "nand"},
	).Score < minPassphraseScore {
		return PassphraseTooSimpleErr
	}
	return nil
}

func (c *Config) NANDGeometry() nand.Geometry {
	return nand.Geometry{
		Blocks:         c.NAND.Blocks,
		PagesPerBlock:  c.NAND.PagesPerBlock,
		PageSize:       c.NAND.PageSize,
		LogicalSectors: c.NAND.LogicalSectors,
	}
}

// PrimaryGeometry lays the filesystem over every logical NAND sector.
func (c *Config) PrimaryGeometry() Geometry {
	return Geometry{
		DirectorySectors: Sector(c.NAND.DirectorySectors),
		DataStart:        Sector(c.NAND.DirectorySectors),
		DataEnd:          Sector(c.NAND.LogicalSectors),
		SectorSize:       c.NAND.PageSize,
	}
}

func (c *Config) SecondaryGeometry() Geometry {
	return Geometry{
		DirectorySectors: Sector(c.EEPROM.DirectorySectors),
		DataStart:        Sector(c.EEPROM.DirectorySectors),
		DataEnd:          Sector(c.EEPROM.DataEnd),
		SectorSize:       c.EEPROM.SectorSize,
	}
}
