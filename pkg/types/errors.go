package types

import "errors"

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	InvalidArgumentErr ConstError = "invalid argument"
	NotFoundErr        ConstError = "not found"
	DirectoryFullErr   ConstError = "directory full"
	StoreFullErr       ConstError = "store full"
	VersionMismatchErr ConstError = "superblock version mismatch"
	BackendIOErr       ConstError = "backend i/o failure"
	CorruptErr         ConstError = "corrupt sector chain"
	CrossDriveErr      ConstError = "cross-drive rename"
	NameTakenErr       ConstError = "name already taken"
	OutOfRangeErr      ConstError = "sector out of range"
	NameTooLongErr     ConstError = "name too long"
	NotMountedErr      ConstError = "filesystem not mounted"
	ClosedErr          ConstError = "file session closed"
	StaleSessionErr    ConstError = "file session is stale"
)

// Codes returned by Code. Zero means success.
const (
	CodeOK              = 0
	CodeInvalidArgument = -1
	CodeNotFound        = -2
	CodeDirectoryFull   = -3
	CodeStoreFull       = -4
	CodeVersionMismatch = -5
	CodeBackendIO       = -6
	CodeCorrupt         = -7
	CodeCrossDrive      = -8
	CodeNameTaken       = -9
	CodeOutOfRange      = -10
	CodeUnknown         = -127
)

var codes = []struct {
	err  error
	code int
}{
	{InvalidArgumentErr, CodeInvalidArgument},
	{NameTooLongErr, CodeInvalidArgument},
	{NotMountedErr, CodeInvalidArgument},
	{ClosedErr, CodeInvalidArgument},
	{NotFoundErr, CodeNotFound},
	{DirectoryFullErr, CodeDirectoryFull},
	{StoreFullErr, CodeStoreFull},
	{VersionMismatchErr, CodeVersionMismatch},
	{CorruptErr, CodeCorrupt},
	{StaleSessionErr, CodeCorrupt},
	{CrossDriveErr, CodeCrossDrive},
	{NameTakenErr, CodeNameTaken},
	{OutOfRangeErr, CodeOutOfRange},
	{BackendIOErr, CodeBackendIO},
}

// Code maps an error onto the negative status codes the filesystem reports
// across its call boundary.
func Code(err error) int {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}
