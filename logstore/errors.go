package logstore

import "errors"

var (
	ErrArgsNotAvailable = errors.New("logstore: args not available")
	ErrFileExist        = errors.New("logstore: file already exists")
	ErrFileNotExist     = errors.New("logstore: file does not exist")
	ErrCrcNotMatch      = errors.New("logstore: crc32 values do not match")
	ErrTornWrite        = errors.New("logstore: file ends in a torn write")
	ErrSegmentClosed    = errors.New("logstore: segment is closed")
	ErrNotAllowWrite    = errors.New("logstore: segment does not allow writes")
	ErrBadSegmentName   = errors.New("logstore: bad segment file name")
	// ErrAheadOfUpstream is returned by ReplicatedAppend when records start
	// before nextOffset: this replica already holds everything up to
	// nextOffset-1, so the caller should drive write-repair rather than
	// append.
	ErrAheadOfUpstream = errors.New("logstore: replicated append starts before next offset")
	// ErrBehindUpstream is returned by ReplicatedAppend when records start
	// after nextOffset: there is a gap this replica cannot fill from its
	// own state, which is fatal to the replication stream.
	ErrBehindUpstream   = errors.New("logstore: replicated append starts after next offset")
	ErrUnknownPartition = errors.New("logstore: unknown topic or partition")
	ErrNotSequential    = errors.New("logstore: records are not sequential")
)
