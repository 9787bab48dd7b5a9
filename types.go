// Package nfsgaze parses the kernel's NFS mountstats report and derives
// iostat-style rate and latency statistics from successive snapshots of it.
//
// The package is split into three pieces: the record types in this file, a
// line-oriented snapshot parser (ParseMountstats), and the delta engine
// (CalculateDeltaStats). All of them are pure data-in/data-out; file access,
// polling, rendering and metrics export live under internal/.
package nfsgaze

// NFSOperation holds the cumulative counters for one RPC operation type on
// one mount, as reported on a per-op statistics line. All counters are
// monotonically non-decreasing for the lifetime of a mount; they reset to
// zero when the filesystem is remounted.
type NFSOperation struct {
	Name        string
	Ops         int64
	Ntrans      int64
	Timeouts    int64
	BytesSent   int64
	BytesRecv   int64
	QueueTime   int64 // milliseconds
	RTT         int64 // milliseconds
	ExecuteTime int64 // milliseconds
	Errors      int64
}

// NFSEvents holds the counters from the "events:" line. The first 25 fields
// are present in every report version; the two pNFS fields only appear on
// newer kernels and stay zero otherwise.
type NFSEvents struct {
	InodeRevalidate  int64 // index 0
	DentryRevalidate int64 // index 1
	DataInvalidate   int64 // index 2
	AttrInvalidate   int64 // index 3
	VFSOpen          int64 // index 4
	VFSLookup        int64 // index 5
	VFSAccess        int64 // index 6
	VFSUpdatePage    int64 // index 7
	VFSReadPage      int64 // index 8
	VFSReadPages     int64 // index 9
	VFSWritePage     int64 // index 10
	VFSWritePages    int64 // index 11
	VFSGetdents      int64 // index 12
	VFSSetattr       int64 // index 13
	VFSFlush         int64 // index 14
	VFSFsync         int64 // index 15
	VFSLock          int64 // index 16
	VFSRelease       int64 // index 17
	CongestionWait   int64 // index 18
	SetattrTrunc     int64 // index 19
	ExtendWrite      int64 // index 20
	SillyRename      int64 // index 21
	ShortRead        int64 // index 22
	ShortWrite       int64 // index 23
	Delay            int64 // index 24
	PNFSRead         int64 // index 25, optional
	PNFSWrite        int64 // index 26, optional
}

// EventCounter is one named event counter, used when handing the full event
// block to consumers that want to iterate it (the metrics exporter).
type EventCounter struct {
	Name  string
	Value int64
}

// Counters returns every event counter with its report field name, in report
// order.
func (e *NFSEvents) Counters() []EventCounter {
	return []EventCounter{
		{"inode_revalidate", e.InodeRevalidate},
		{"dentry_revalidate", e.DentryRevalidate},
		{"data_invalidate", e.DataInvalidate},
		{"attr_invalidate", e.AttrInvalidate},
		{"vfs_open", e.VFSOpen},
		{"vfs_lookup", e.VFSLookup},
		{"vfs_access", e.VFSAccess},
		{"vfs_update_page", e.VFSUpdatePage},
		{"vfs_read_page", e.VFSReadPage},
		{"vfs_read_pages", e.VFSReadPages},
		{"vfs_write_page", e.VFSWritePage},
		{"vfs_write_pages", e.VFSWritePages},
		{"vfs_getdents", e.VFSGetdents},
		{"vfs_setattr", e.VFSSetattr},
		{"vfs_flush", e.VFSFlush},
		{"vfs_fsync", e.VFSFsync},
		{"vfs_lock", e.VFSLock},
		{"vfs_release", e.VFSRelease},
		{"congestion_wait", e.CongestionWait},
		{"setattr_trunc", e.SetattrTrunc},
		{"extend_write", e.ExtendWrite},
		{"silly_rename", e.SillyRename},
		{"short_read", e.ShortRead},
		{"short_write", e.ShortWrite},
		{"delay", e.Delay},
		{"pnfs_read", e.PNFSRead},
		{"pnfs_write", e.PNFSWrite},
	}
}

// NFSMount is one NFS mount at one point in time. Server and Export are
// derived from the device string by splitting on the first colon; Export
// defaults to "/" when the device string has no colon. Events and Transport
// are nil when the report omitted the corresponding line for this mount.
type NFSMount struct {
	Device     string
	MountPoint string
	Server     string
	Export     string
	StatVers   string
	Age        int64 // seconds
	Operations map[string]*NFSOperation
	Events     *NFSEvents
	Transport  TransportCounters
	BytesRead  int64
	BytesWrite int64
}

// DeltaStats is the derived per-operation record for one polling interval,
// computed from two snapshots of the same mount. Raw deltas are signed: a
// counter reset (unmount/remount) shows up as a negative delta and is passed
// through rather than hidden. The per-op averages and KB figures guard their
// denominators and report 0 instead of a nonsense value.
type DeltaStats struct {
	Operation    string
	DeltaOps     int64
	DeltaBytes   int64
	DeltaSent    int64
	DeltaRecv    int64
	DeltaRTT     int64
	DeltaExec    int64
	DeltaQueue   int64
	DeltaErrors  int64
	DeltaRetrans int64
	AvgRTT       float64 // milliseconds per op
	AvgExec      float64 // milliseconds per op
	AvgQueue     float64 // milliseconds per op
	KBPerOp      float64
	KBPerSec     float64
	IOPS         float64
}
