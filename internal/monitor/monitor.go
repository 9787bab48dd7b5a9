// Package monitor drives the poll loop: parse a snapshot, diff it against
// the previous one, render and export, rotate.
package monitor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	nfsgaze "github.com/blakegolliher/nfs-gaze"
	"github.com/blakegolliher/nfs-gaze/internal/config"
	"github.com/blakegolliher/nfs-gaze/internal/display"
	"github.com/blakegolliher/nfs-gaze/internal/metrics"
	"github.com/blakegolliher/nfs-gaze/internal/procfs"
)

// Monitor owns the previous-snapshot map across iterations. It is the
// single writer of that state: Run executes strictly sequentially, and
// shutdown happens via context cancellation only, never by another
// goroutine touching the snapshots.
type Monitor struct {
	cfg      config.Config
	logger   log.Logger
	out      io.Writer
	exporter *metrics.Exporter // nil when the metrics endpoint is off
	filter   map[string]bool

	previous  map[string]*nfsgaze.NFSMount
	lastTick  time.Time
	iteration int
}

// New builds a Monitor. exporter may be nil.
func New(cfg config.Config, logger log.Logger, out io.Writer, exporter *metrics.Exporter) *Monitor {
	return &Monitor{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		exporter: exporter,
		filter:   cfg.OperationsFilter(),
	}
}

// Run performs the initial snapshot, prints the startup summary, then polls
// until the context is cancelled or the configured iteration count is
// reached. A parse failure during polling is transient (a mount can vanish
// mid-write); it is logged and the iteration skipped.
func (m *Monitor) Run(ctx context.Context) error {
	mounts, err := m.readSnapshot()
	if err != nil {
		return err
	}
	if len(mounts) == 0 {
		return fmt.Errorf("no NFS mounts found in %s", m.cfg.MountstatsPath)
	}
	if m.cfg.MountPoint != "" {
		if _, ok := mounts[m.cfg.MountPoint]; !ok {
			return fmt.Errorf("mount point %s not found", m.cfg.MountPoint)
		}
	}

	if err := display.RenderSummary(m.out, m.cfg.MountPoint, sortedMounts(mounts), m.filter); err != nil {
		return err
	}

	// In nfsiostat mode the first view rates the cumulative counters over
	// the mount age, matching nfsiostat(8)'s since-boot first report.
	if m.cfg.NfsiostatMode {
		for _, mount := range m.selectMounts(mounts) {
			stats := nfsgaze.CalculateDeltaStats(&nfsgaze.NFSMount{}, mount, float64(mount.Age))
			stats = nfsgaze.FilterOperations(stats, m.filter)
			if len(stats) > 0 {
				if err := display.RenderNfsiostat(m.out, mount, stats, nil, m.cfg.ShowAttr); err != nil {
					return err
				}
			}
		}
	}

	m.previous = mounts
	m.lastTick = time.Now()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := m.Step(now); err != nil {
				return err
			}
			if m.cfg.Count > 0 && m.iteration >= m.cfg.Count {
				return nil
			}
		}
	}
}

// Step runs one poll iteration at the given time: parse, diff against the
// previous snapshot, render, export, rotate. It only fails on render
// errors; parse failures are logged and leave the previous snapshot in
// place for the next interval.
func (m *Monitor) Step(now time.Time) error {
	current, err := m.readSnapshot()
	if err != nil {
		level.Warn(m.logger).Log("msg", "skipping interval, mountstats unreadable", "err", err)
		return nil
	}

	elapsed := now.Sub(m.lastTick).Seconds()
	m.lastTick = now
	m.iteration++

	if m.cfg.ClearScreen {
		fmt.Fprint(m.out, display.ClearScreen)
	}

	for _, mount := range m.selectMounts(current) {
		previousMount := m.previous[mount.MountPoint]
		if previousMount == nil {
			// Newly appeared mount: nothing to diff against yet.
			level.Debug(m.logger).Log("msg", "new mount observed", "mountpoint", mount.MountPoint)
			continue
		}

		stats := nfsgaze.CalculateDeltaStats(previousMount, mount, elapsed)
		stats = nfsgaze.FilterOperations(stats, m.filter)

		if m.cfg.NfsiostatMode {
			if err := display.RenderNfsiostat(m.out, mount, stats, previousMount, m.cfg.ShowAttr); err != nil {
				return err
			}
		} else if len(stats) > 0 {
			if err := display.RenderSimple(m.out, mount, stats, m.cfg.ShowBandwidth, now); err != nil {
				return err
			}
		}

		if m.exporter != nil {
			m.exporter.ObserveDeltas(mount, stats)
			m.exporter.ObserveMount(mount)
		}
	}

	m.previous = current
	return nil
}

// Iteration reports how many poll steps have completed.
func (m *Monitor) Iteration() int {
	return m.iteration
}

func (m *Monitor) readSnapshot() (map[string]*nfsgaze.NFSMount, error) {
	f, err := procfs.Open(m.cfg.MountstatsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return nfsgaze.ParseMountstats(f)
}

// selectMounts narrows a snapshot to the configured mount point, or all
// mounts in stable order when none is configured.
func (m *Monitor) selectMounts(mounts map[string]*nfsgaze.NFSMount) []*nfsgaze.NFSMount {
	if m.cfg.MountPoint != "" {
		if mount, ok := mounts[m.cfg.MountPoint]; ok {
			return []*nfsgaze.NFSMount{mount}
		}
		return nil
	}
	return sortedMounts(mounts)
}

func sortedMounts(mounts map[string]*nfsgaze.NFSMount) []*nfsgaze.NFSMount {
	selected := make([]*nfsgaze.NFSMount, 0, len(mounts))
	for _, mount := range mounts {
		selected = append(selected, mount)
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].MountPoint < selected[j].MountPoint
	})
	return selected
}
