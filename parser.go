package nfsgaze

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// opLineExclusions are section labels which contain a colon but are not
// per-operation counter lines.
var opLineExclusions = []string{"RPC", "xprt", "per-op", "opts", "caps", "sec", "nfsv4", "nfsv3"}

// eventFieldNames maps event counter positions to names, used only for error
// reporting. Order matches the report.
var eventFieldNames = []string{
	"InodeRevalidate", "DentryRevalidate", "DataInvalidate", "AttrInvalidate",
	"VFSOpen", "VFSLookup", "VFSAccess", "VFSUpdatePage", "VFSReadPage",
	"VFSReadPages", "VFSWritePage", "VFSWritePages", "VFSGetdents",
	"VFSSetattr", "VFSFlush", "VFSFsync", "VFSLock", "VFSRelease",
	"CongestionWait", "SetattrTrunc", "ExtendWrite", "SillyRename",
	"ShortRead", "ShortWrite", "Delay", "PNFSRead", "PNFSWrite",
}

// operationFieldNames maps per-op counter positions to names, used for error
// reporting.
var operationFieldNames = []string{
	"ops", "ntrans", "timeouts", "bytes_sent", "bytes_recv",
	"queue_time", "rtt", "execute_time", "errors",
}

// parser is the line state machine: a cursor for the mount block currently
// being read, plus the accumulating result map keyed by mount path.
type parser struct {
	mounts  map[string]*NFSMount
	current *NFSMount
}

// ParseMountstats reads a mountstats report and returns every NFS mount in
// it, keyed by mount path. Parsing is all-or-nothing: any malformed counter
// line aborts with an error naming the offending line kind and field, and no
// partial result is returned.
func ParseMountstats(r io.Reader) (map[string]*NFSMount, error) {
	p := &parser{mounts: make(map[string]*NFSMount)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := p.parseLine(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mountstats: %w", err)
	}

	return p.mounts, nil
}

// ParseMountstatsBytes is ParseMountstats over an in-memory report.
func ParseMountstatsBytes(content []byte) (map[string]*NFSMount, error) {
	return ParseMountstats(bytes.NewReader(content))
}

func (p *parser) parseLine(line string) error {
	if strings.HasPrefix(line, "device") && strings.Contains(line, "nfs") && strings.Contains(line, " on ") {
		return p.parseDeviceLine(line)
	}
	if p.current != nil {
		return p.parseStatsLine(line)
	}
	// Preamble and non-NFS device blocks.
	return nil
}

// parseDeviceLine opens a new mount block from a header like
//
//	device server:/export mounted on /mnt/nfs with fstype nfs statvers=1.1
//
// The new mount immediately lands in the result map, keyed by mount path, and
// becomes the cursor that subsequent counter lines write into.
func (p *parser) parseDeviceLine(line string) error {
	left, right, _ := strings.Cut(line, " on ")
	deviceInfo := strings.Fields(left)
	mountInfo := strings.Fields(right)
	if len(deviceInfo) < 2 || len(mountInfo) == 0 {
		return fmt.Errorf("malformed device line: %q", line)
	}

	serverExport := deviceInfo[1]
	server, export, found := strings.Cut(serverExport, ":")
	if !found {
		export = "/"
	}

	mount := &NFSMount{
		Device:     serverExport,
		MountPoint: mountInfo[0],
		Server:     server,
		Export:     export,
		Operations: make(map[string]*NFSOperation),
	}
	for _, f := range mountInfo {
		if v, ok := strings.CutPrefix(f, "statvers="); ok {
			mount.StatVers = v
		}
	}

	p.mounts[mount.MountPoint] = mount
	p.current = mount
	return nil
}

func (p *parser) parseStatsLine(line string) error {
	switch {
	case strings.HasPrefix(line, "age:"):
		return p.parseAgeLine(line)
	case strings.HasPrefix(line, "events:"):
		return p.parseEventsLine(line)
	case strings.HasPrefix(line, "bytes:"):
		return p.parseBytesLine(line)
	case strings.HasPrefix(line, "xprt:"):
		return p.parseTransportLine(line)
	case isOperationLine(line):
		return p.parseOperationLine(line)
	}
	return nil
}

func isOperationLine(line string) bool {
	if !strings.Contains(line, ":") {
		return false
	}
	for _, prefix := range opLineExclusions {
		if strings.HasPrefix(line, prefix) {
			return false
		}
	}
	return true
}

func (p *parser) parseAgeLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("malformed age line: %q", line)
	}
	age, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing age: %w", err)
	}
	p.current.Age = age
	return nil
}

func (p *parser) parseEventsLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("malformed events line: %q", line)
	}
	events, err := ParseEvents(fields[1:])
	if err != nil {
		return err
	}
	p.current.Events = events
	return nil
}

// ParseEvents parses the whitespace-split counter tokens of an "events:"
// line (label excluded) positionally. At least 25 counters are required;
// counters 26 and 27 are the pNFS pair and default to zero when the report
// predates them.
func ParseEvents(parts []string) (*NFSEvents, error) {
	if len(parts) < 25 {
		return nil, fmt.Errorf("events line has %d counters, need at least 25", len(parts))
	}

	n := len(parts)
	if n > len(eventFieldNames) {
		n = len(eventFieldNames)
	}
	vals := make([]int64, len(eventFieldNames))
	for i := 0; i < n; i++ {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing events field %s: %w", eventFieldNames[i], err)
		}
		vals[i] = v
	}

	return &NFSEvents{
		InodeRevalidate:  vals[0],
		DentryRevalidate: vals[1],
		DataInvalidate:   vals[2],
		AttrInvalidate:   vals[3],
		VFSOpen:          vals[4],
		VFSLookup:        vals[5],
		VFSAccess:        vals[6],
		VFSUpdatePage:    vals[7],
		VFSReadPage:      vals[8],
		VFSReadPages:     vals[9],
		VFSWritePage:     vals[10],
		VFSWritePages:    vals[11],
		VFSGetdents:      vals[12],
		VFSSetattr:       vals[13],
		VFSFlush:         vals[14],
		VFSFsync:         vals[15],
		VFSLock:          vals[16],
		VFSRelease:       vals[17],
		CongestionWait:   vals[18],
		SetattrTrunc:     vals[19],
		ExtendWrite:      vals[20],
		SillyRename:      vals[21],
		ShortRead:        vals[22],
		ShortWrite:       vals[23],
		Delay:            vals[24],
		PNFSRead:         vals[25],
		PNFSWrite:        vals[26],
	}, nil
}

// parseBytesLine reads the read and write totals from a "bytes:" line.
// Report layouts disagree on where the server write counter sits: newer
// reports carry it in the 7th field, older ones in the 6th. The 7th field
// wins when it is present and nonzero; this dual-index fallback is
// deliberate, do not collapse it to a single index.
func (p *parser) parseBytesLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return fmt.Errorf("malformed bytes line: %q", line)
	}

	bytesRead, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing bytes_read: %w", err)
	}

	var bytesWrite int64
	switch {
	case len(fields) > 6 && fields[6] != "0":
		bytesWrite, err = strconv.ParseInt(fields[6], 10, 64)
	case len(fields) > 5:
		bytesWrite, err = strconv.ParseInt(fields[5], 10, 64)
	}
	if err != nil {
		return fmt.Errorf("parsing bytes_write: %w", err)
	}

	p.current.BytesRead = bytesRead
	p.current.BytesWrite = bytesWrite
	return nil
}

func (p *parser) parseOperationLine(line string) error {
	name, rest, _ := strings.Cut(line, ":")
	op, err := ParseOperation(strings.TrimSpace(name), strings.Fields(rest))
	if err != nil {
		return err
	}
	p.current.Operations[op.Name] = op
	return nil
}

// ParseOperation parses the counter tokens of one per-op statistics line.
// Eight counters are required; the ninth (errors) only exists on newer
// report versions and defaults to zero.
func ParseOperation(opName string, stats []string) (*NFSOperation, error) {
	if len(stats) < 8 {
		return nil, fmt.Errorf("operation %s has %d counters, need at least 8", opName, len(stats))
	}

	n := len(stats)
	if n > len(operationFieldNames) {
		n = len(operationFieldNames)
	}
	vals := make([]int64, len(operationFieldNames))
	for i := 0; i < n; i++ {
		v, err := strconv.ParseInt(stats[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing operation %s field %s: %w", opName, operationFieldNames[i], err)
		}
		vals[i] = v
	}

	return &NFSOperation{
		Name:        opName,
		Ops:         vals[0],
		Ntrans:      vals[1],
		Timeouts:    vals[2],
		BytesSent:   vals[3],
		BytesRecv:   vals[4],
		QueueTime:   vals[5],
		RTT:         vals[6],
		ExecuteTime: vals[7],
		Errors:      vals[8],
	}, nil
}
