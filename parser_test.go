package nfsgaze_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nfsgaze "github.com/blakegolliher/nfs-gaze"
)

const singleMountReport = `device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
	opts:	rw,vers=4.2,rsize=1048576,wsize=1048576,hard,proto=tcp
	age:	12345
	caps:	caps=0xfffbc0b7,wtmult=512,dtsize=1048576,bsize=0,namlen=255
	sec:	flavor=1,pseudoflavor=1
	events:	1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16 17 18 19 20 21 22 23 24 25 26 27
	bytes:	1048576 0 0 0 0 2097152 0 0
	RPC iostats version: 1.1  p/v: 100003/4 (nfs)
	xprt:	tcp 0 1 6 0 10 28063 28031 3 653569 0 31 9925 9193
	per-op statistics
	READ: 100 95 5 1024 2048 10 20 30 2
	WRITE: 50 50 0 512 0 5 15 25 1
`

func TestParseMountstatsSingleMount(t *testing.T) {
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(singleMountReport))
	require.NoError(t, err)
	require.Len(t, mounts, 1)

	mount := mounts["/mnt/nfs"]
	require.NotNil(t, mount)
	assert.Equal(t, "server:/export", mount.Device)
	assert.Equal(t, "/mnt/nfs", mount.MountPoint)
	assert.Equal(t, "server", mount.Server)
	assert.Equal(t, "/export", mount.Export)
	assert.Equal(t, "1.1", mount.StatVers)
	assert.Equal(t, int64(12345), mount.Age)
	assert.Equal(t, int64(1048576), mount.BytesRead)
	assert.Equal(t, int64(2097152), mount.BytesWrite)
	require.Len(t, mount.Operations, 2)

	read := mount.Operations["READ"]
	require.NotNil(t, read)
	assert.Equal(t, int64(100), read.Ops)
	assert.Equal(t, int64(95), read.Ntrans)
	assert.Equal(t, int64(5), read.Timeouts)
	assert.Equal(t, int64(1024), read.BytesSent)
	assert.Equal(t, int64(2048), read.BytesRecv)
	assert.Equal(t, int64(10), read.QueueTime)
	assert.Equal(t, int64(20), read.RTT)
	assert.Equal(t, int64(30), read.ExecuteTime)
	assert.Equal(t, int64(2), read.Errors)
}

func TestParseMountstatsIsIdempotent(t *testing.T) {
	first, err := nfsgaze.ParseMountstats(strings.NewReader(singleMountReport))
	require.NoError(t, err)
	second, err := nfsgaze.ParseMountstats(strings.NewReader(singleMountReport))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseMountstatsMultipleMounts(t *testing.T) {
	report := `device server1:/export1 mounted on /mnt/nfs1 with fstype nfs statvers=1.1
age: 1000
READ: 10 10 0 100 200 1 2 3 0

device server2:/export2 mounted on /mnt/nfs2 with fstype nfs statvers=1.1
age: 2000
WRITE: 20 20 0 300 400 2 3 4 0
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, mounts, 2)

	mount1 := mounts["/mnt/nfs1"]
	require.NotNil(t, mount1)
	assert.Equal(t, int64(1000), mount1.Age)
	assert.Contains(t, mount1.Operations, "READ")
	assert.NotContains(t, mount1.Operations, "WRITE")

	mount2 := mounts["/mnt/nfs2"]
	require.NotNil(t, mount2)
	assert.Equal(t, int64(2000), mount2.Age)
	assert.Contains(t, mount2.Operations, "WRITE")
}

func TestParseMountstatsIgnoresPreambleAndLocalMounts(t *testing.T) {
	report := `device rootfs mounted on / with fstype rootfs
device /dev/sda1 mounted on /boot with fstype ext4
age: not-parsed-because-no-mount-is-open
device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
age: 7
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, mounts, 1)
	assert.Equal(t, int64(7), mounts["/mnt/nfs"].Age)
}

// The kernel's rpc_pipefs line matches the device-header shape because its
// mount path contains "nfs". It must yield a zeroed but valid entry rather
// than an error.
func TestParseMountstatsHeaderOnlyBlock(t *testing.T) {
	report := `device sunrpc mounted on /var/lib/nfs/rpc_pipefs with fstype rpc_pipefs
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.NoError(t, err)

	mount := mounts["/var/lib/nfs/rpc_pipefs"]
	require.NotNil(t, mount)
	assert.Equal(t, "sunrpc", mount.Device)
	assert.Equal(t, "sunrpc", mount.Server)
	assert.Equal(t, "/", mount.Export) // no colon in the device string
	assert.Zero(t, mount.Age)
	assert.Nil(t, mount.Events)
	assert.Empty(t, mount.Operations)
}

func TestParseEvents(t *testing.T) {
	parts := make([]string, 27)
	for i := range parts {
		parts[i] = fmt.Sprint(i + 1)
	}

	events, err := nfsgaze.ParseEvents(parts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), events.InodeRevalidate)
	assert.Equal(t, int64(2), events.DentryRevalidate)
	assert.Equal(t, int64(13), events.VFSGetdents)
	assert.Equal(t, int64(25), events.Delay)
	assert.Equal(t, int64(26), events.PNFSRead)
	assert.Equal(t, int64(27), events.PNFSWrite)
}

func TestParseEventsWithoutPNFSFields(t *testing.T) {
	parts := make([]string, 25)
	for i := range parts {
		parts[i] = fmt.Sprint(i + 1)
	}

	events, err := nfsgaze.ParseEvents(parts)
	require.NoError(t, err)
	assert.Equal(t, int64(25), events.Delay)
	assert.Zero(t, events.PNFSRead)
	assert.Zero(t, events.PNFSWrite)
}

func TestParseEventsInsufficientCounters(t *testing.T) {
	_, err := nfsgaze.ParseEvents([]string{"1", "2", "3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need at least 25")
}

func TestParseEventsInvalidNumber(t *testing.T) {
	parts := make([]string, 25)
	for i := range parts {
		parts[i] = "1"
	}
	parts[4] = "bogus"

	_, err := nfsgaze.ParseEvents(parts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VFSOpen")
}

func TestParseBytesLineSevenFieldLayout(t *testing.T) {
	report := `device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
bytes: 1048576 0 0 0 0 2097152 0 0
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), mounts["/mnt/nfs"].BytesRead)
	// 7th field wins when present and nonzero.
	assert.Equal(t, int64(2097152), mounts["/mnt/nfs"].BytesWrite)
}

func TestParseBytesLineSixFieldFallback(t *testing.T) {
	report := `device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.0
bytes: 500 0 0 0 900
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.NoError(t, err)
	assert.Equal(t, int64(500), mounts["/mnt/nfs"].BytesRead)
	assert.Equal(t, int64(900), mounts["/mnt/nfs"].BytesWrite)
}

func TestParseBytesLineZeroSeventhFieldFallsBack(t *testing.T) {
	report := `device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
bytes: 500 0 0 0 900 0 0 0
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.NoError(t, err)
	assert.Equal(t, int64(900), mounts["/mnt/nfs"].BytesWrite)
}

func TestParseBytesLineTooShort(t *testing.T) {
	report := `device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
bytes: 1 2 3
`
	_, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bytes")
}

func TestParseOperation(t *testing.T) {
	op, err := nfsgaze.ParseOperation("READ", []string{"100", "95", "5", "1024", "2048", "10", "20", "30", "2"})
	require.NoError(t, err)
	assert.Equal(t, "READ", op.Name)
	assert.Equal(t, int64(100), op.Ops)
	assert.Equal(t, int64(95), op.Ntrans)
	assert.Equal(t, int64(5), op.Timeouts)
	assert.Equal(t, int64(1024), op.BytesSent)
	assert.Equal(t, int64(2048), op.BytesRecv)
	assert.Equal(t, int64(10), op.QueueTime)
	assert.Equal(t, int64(20), op.RTT)
	assert.Equal(t, int64(30), op.ExecuteTime)
	assert.Equal(t, int64(2), op.Errors)
}

func TestParseOperationWithoutErrorsField(t *testing.T) {
	op, err := nfsgaze.ParseOperation("GETATTR", []string{"8", "8", "0", "100", "200", "1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), op.Ops)
	assert.Zero(t, op.Errors)
}

func TestParseOperationInsufficientCounters(t *testing.T) {
	_, err := nfsgaze.ParseOperation("READ", []string{"100", "95"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ")
	assert.Contains(t, err.Error(), "2 counters")
}

func TestParseOperationInvalidNumber(t *testing.T) {
	_, err := nfsgaze.ParseOperation("READ", []string{"100", "95", "5", "oops", "2048", "10", "20", "30"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ")
	assert.Contains(t, err.Error(), "bytes_sent")
}

// A failed parse must not return a partial mapping.
func TestParseMountstatsAllOrNothing(t *testing.T) {
	report := `device server1:/export1 mounted on /mnt/nfs1 with fstype nfs statvers=1.1
READ: 10 10 0 100 200 1 2 3 0

device server2:/export2 mounted on /mnt/nfs2 with fstype nfs statvers=1.1
WRITE: 20 20 broken 300 400 2 3 4 0
`
	mounts, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.Error(t, err)
	assert.Nil(t, mounts)
	assert.Contains(t, err.Error(), "WRITE")
	assert.Contains(t, err.Error(), "timeouts")
}

func TestParseMountstatsMalformedAge(t *testing.T) {
	report := `device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
age: soon
`
	_, err := nfsgaze.ParseMountstats(strings.NewReader(report))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}
