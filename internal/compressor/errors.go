package compressor

import "errors"

var (
	// ErrUnsupportedImage marks a file that could not be read or decoded.
	ErrUnsupportedImage = errors.New("unsupported or corrupt image")

	// ErrWriteOutput marks a filesystem failure while writing a result.
	ErrWriteOutput = errors.New("cannot write output file")

	// ErrTargetExists marks a destination file that is already present and
	// would be clobbered without the overwrite option.
	ErrTargetExists = errors.New("target file already exists")

	// ErrRunInFlight is returned by configuration setters and by Compress
	// itself while a run is already in progress.
	ErrRunInFlight = errors.New("compression run already in flight")
)
