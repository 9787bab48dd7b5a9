// Package display renders delta statistics as text tables.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	nfsgaze "github.com/blakegolliher/nfs-gaze"
)

// ClearScreen is the ANSI sequence that wipes the terminal and homes the
// cursor, written between iterations when requested.
const ClearScreen = "\033[H\033[2J"

// RenderSummary writes the startup banner listing which mounts will be
// monitored and any active operation filter.
func RenderSummary(w io.Writer, mountPoint string, mounts []*nfsgaze.NFSMount, filter map[string]bool) error {
	if _, err := fmt.Fprintf(w, "NFS I/O Statistics Monitor\n==========================\n\n"); err != nil {
		return err
	}

	if mountPoint != "" {
		fmt.Fprintf(w, "Monitoring mount point: %s\n", mountPoint)
	} else {
		fmt.Fprintf(w, "Monitoring %d NFS mount(s):\n", len(mounts))
		for _, mount := range mounts {
			fmt.Fprintf(w, "  %s -> %s\n", mount.Device, mount.MountPoint)
		}
	}

	if len(filter) > 0 {
		names := make([]string, 0, len(filter))
		for name := range filter {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Filtering operations: %s\n", strings.Join(names, ","))
	}

	_, err := fmt.Fprintln(w)
	return err
}

// RenderSimple writes the default per-interval table: one row per operation
// with IOPS and latency columns, plus bandwidth columns when requested.
// Nothing is written when stats is empty.
func RenderSimple(w io.Writer, mount *nfsgaze.NFSMount, stats []nfsgaze.DeltaStats, showBandwidth bool, timestamp time.Time) error {
	if len(stats) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n%s mounted on %s:\n", mount.Device, mount.MountPoint)
	fmt.Fprintf(w, "Timestamp: %s\n", timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	if showBandwidth {
		fmt.Fprintf(w, "\n%-15s %10s %12s %12s %10s %10s %8s\n",
			"Operation", "IOPS", "Avg RTT(ms)", "Avg Exec(ms)", "MB/s", "KB/op", "Errors")
		fmt.Fprintln(w, strings.Repeat("-", 82))
	} else {
		fmt.Fprintf(w, "\n%-15s %10s %12s %12s %8s\n",
			"Operation", "IOPS", "Avg RTT(ms)", "Avg Exec(ms)", "Errors")
		fmt.Fprintln(w, strings.Repeat("-", 61))
	}

	for _, stat := range stats {
		if showBandwidth {
			fmt.Fprintf(w, "%-15s %10.1f %12.3f %12.3f %10.3f %10.2f %8d\n",
				stat.Operation, stat.IOPS, stat.AvgRTT, stat.AvgExec,
				stat.KBPerSec/1024, stat.KBPerOp, stat.DeltaErrors)
		} else {
			fmt.Fprintf(w, "%-15s %10.1f %12.3f %12.3f %8d\n",
				stat.Operation, stat.IOPS, stat.AvgRTT, stat.AvgExec, stat.DeltaErrors)
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// RenderNfsiostat writes stats the way nfsiostat(8) lays them out: a
// summary ops/s line for the mount followed by a labeled block per
// operation with retransmission and error percentages. previous supplies
// the event counters for the attribute-cache footer and may be nil.
func RenderNfsiostat(w io.Writer, mount *nfsgaze.NFSMount, stats []nfsgaze.DeltaStats, previous *nfsgaze.NFSMount, showAttr bool) error {
	totalOps := 0.0
	for _, stat := range stats {
		totalOps += stat.IOPS
	}

	fmt.Fprintf(w, "\n%s mounted on %s:\n\n", mount.Device, mount.MountPoint)
	fmt.Fprintf(w, "%16s\n", "ops/s")
	fmt.Fprintf(w, "%16.3f\n\n", totalOps)

	for _, stat := range stats {
		retransPct := 0.0
		errorPct := 0.0
		if stat.DeltaOps > 0 {
			retransPct = float64(stat.DeltaRetrans) / float64(stat.DeltaOps) * 100
			errorPct = float64(stat.DeltaErrors) / float64(stat.DeltaOps) * 100
		}

		fmt.Fprintf(w, "%s:\n", strings.ToLower(stat.Operation))
		fmt.Fprintf(w, "%16s %16s %16s %16s %16s %16s %16s %16s\n",
			"ops/s", "kB/s", "kB/op", "retrans", "avg RTT (ms)", "avg exe (ms)", "avg queue (ms)", "errors")
		fmt.Fprintf(w, "%16.3f %16.3f %16.3f %8d (%.1f%%) %16.3f %16.3f %16.3f %8d (%.1f%%)\n",
			stat.IOPS, stat.KBPerSec, stat.KBPerOp, stat.DeltaRetrans, retransPct,
			stat.AvgRTT, stat.AvgExec, stat.AvgQueue, stat.DeltaErrors, errorPct)
	}

	if showAttr && mount.Events != nil && previous != nil && previous.Events != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d VFS opens\n", mount.Events.VFSOpen-previous.Events.VFSOpen)
		fmt.Fprintf(w, "%d inoderevalidates (forced GETATTRs)\n", mount.Events.InodeRevalidate-previous.Events.InodeRevalidate)
		fmt.Fprintf(w, "%d page cache invalidations\n", mount.Events.DataInvalidate-previous.Events.DataInvalidate)
		fmt.Fprintf(w, "%d attribute cache invalidations\n", mount.Events.AttrInvalidate-previous.Events.AttrInvalidate)
	}

	return nil
}
