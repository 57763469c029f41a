package fs

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/weberc2/sectorfs/pkg/crypt"
	"github.com/weberc2/sectorfs/pkg/logging"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// DefaultDefragThresholdPercent is the share of flash pages in use above
// which mount considers defragmenting the primary drive.
const DefaultDefragThresholdPercent = 10

// FileSystem is the two-drive sector filesystem. Every exported operation
// holds mutex for its whole duration.
type FileSystem struct {
	mutex    sync.Mutex
	mounted  bool
	Registry Registry
	Cache    Cache
	Cipher   crypt.Cipher
	Logger   *log.Logger

	DefragThresholdPercent int
}

type Params struct {
	Primary   Drive
	Secondary Drive
	// Cipher defaults to crypt.PassThrough.
	Cipher crypt.Cipher
	// Logger defaults to a discarding logger.
	Logger *log.Logger
	// DefragThresholdPercent defaults to DefaultDefragThresholdPercent.
	DefragThresholdPercent int
}

func New(params *Params) (*FileSystem, error) {
	fs := FileSystem{
		Cipher:                 params.Cipher,
		Logger:                 params.Logger,
		DefragThresholdPercent: params.DefragThresholdPercent,
	}
	fs.Registry.drives[DrivePrimary] = params.Primary
	fs.Registry.drives[DriveSecondary] = params.Secondary
	for i := range fs.Registry.drives {
		if err := fs.Registry.drives[i].Validate(); err != nil {
			return nil, fmt.Errorf("creating filesystem: drive `%d`: %w", i, err)
		}
	}
	if fs.Cipher == nil {
		fs.Cipher = crypt.PassThrough{}
	}
	if fs.Logger == nil {
		fs.Logger = logging.Discard()
	}
	if fs.DefragThresholdPercent <= 0 {
		fs.DefragThresholdPercent = DefaultDefragThresholdPercent
	}
	fs.Cache = NewCache(&fs.Registry)
	return &fs, nil
}

func (fs *FileSystem) drive(id DriveID) (*Drive, error) {
	return fs.Registry.Drive(id)
}

func checkMounted(fs *FileSystem) error {
	if !fs.mounted {
		return NotMountedErr
	}
	return nil
}
