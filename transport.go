package nfsgaze

import (
	"fmt"
	"strconv"
	"strings"
)

// TransportCounters is the per-protocol counter block from an "xprt:" line.
// The concrete type depends on the transport the mount uses.
type TransportCounters interface {
	Protocol() string
}

// TCPTransportCounters holds the xprt counters for a tcp transport. The
// last three fields were added in statvers 1.1 and stay zero on 1.0
// reports.
type TCPTransportCounters struct {
	Port          int64
	BindCount     int64
	ConnectCount  int64
	ConnectTime   int64
	IdleTime      int64
	Sends         int64
	Receives      int64
	BadXIDs       int64
	InflightSends int64
	BacklogUtil   int64
	MaxRPCSlots   int64
	SendingQueue  int64
	PendingQueue  int64
}

func (t *TCPTransportCounters) Protocol() string { return "tcp" }

// UDPTransportCounters holds the xprt counters for a udp transport.
type UDPTransportCounters struct {
	Port          int64
	BindCount     int64
	Sends         int64
	Receives      int64
	BadXIDs       int64
	InflightSends int64
	BacklogUtil   int64
}

func (u *UDPTransportCounters) Protocol() string { return "udp" }

// RDMATransportCounters holds the xprt counters for an rdma transport.
type RDMATransportCounters struct {
	Port          int64
	BindCount     int64
	ConnectCount  int64
	ConnectTime   int64
	IdleTime      int64
	Sends         int64
	Receives      int64
	BadXIDs       int64
	BacklogUtil   int64
	ReadChunks    int64
	WriteChunks   int64
	ReplyChunks   int64
	TotalRdmaReq  int64
	TotalRdmaRep  int64
	Pullup        int64
	Fixup         int64
	Hardway       int64
	FailedMarshal int64
	BadReply      int64
}

func (r *RDMATransportCounters) Protocol() string { return "rdma" }

// parseTransportLine attaches transport counters to the current mount.
// Unknown protocols (and lines too short to carry one) are skipped rather
// than failed: the monitor works fine without transport data. Malformed
// integers inside a recognized protocol block are a parse failure like any
// other counter line.
func (p *parser) parseTransportLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil
	}

	protocol := fields[1]
	vals := make([]int64, len(fields)-2)
	switch protocol {
	case "tcp", "udp", "rdma":
		for i, raw := range fields[2:] {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing xprt %s counter %d: %w", protocol, i, err)
			}
			vals[i] = v
		}
	default:
		return nil
	}

	transport, err := newTransportCounters(protocol, vals)
	if err != nil {
		return err
	}
	p.current.Transport = transport
	return nil
}

func newTransportCounters(protocol string, vals []int64) (TransportCounters, error) {
	switch protocol {
	case "udp":
		if len(vals) < 7 {
			return nil, fmt.Errorf("xprt udp line has %d counters, need at least 7", len(vals))
		}
		return &UDPTransportCounters{
			Port:          vals[0],
			BindCount:     vals[1],
			Sends:         vals[2],
			Receives:      vals[3],
			BadXIDs:       vals[4],
			InflightSends: vals[5],
			BacklogUtil:   vals[6],
		}, nil
	case "tcp":
		if len(vals) < 10 {
			return nil, fmt.Errorf("xprt tcp line has %d counters, need at least 10", len(vals))
		}
		t := &TCPTransportCounters{
			Port:          vals[0],
			BindCount:     vals[1],
			ConnectCount:  vals[2],
			ConnectTime:   vals[3],
			IdleTime:      vals[4],
			Sends:         vals[5],
			Receives:      vals[6],
			BadXIDs:       vals[7],
			InflightSends: vals[8],
			BacklogUtil:   vals[9],
		}
		// statvers 1.1 extends the tcp block; reports claiming 1.0 have
		// been seen carrying the extra fields too, so take whatever is
		// there.
		if len(vals) > 10 {
			t.MaxRPCSlots = vals[10]
		}
		if len(vals) > 11 {
			t.SendingQueue = vals[11]
		}
		if len(vals) > 12 {
			t.PendingQueue = vals[12]
		}
		return t, nil
	case "rdma":
		if len(vals) < 19 {
			return nil, fmt.Errorf("xprt rdma line has %d counters, need at least 19", len(vals))
		}
		return &RDMATransportCounters{
			Port:          vals[0],
			BindCount:     vals[1],
			ConnectCount:  vals[2],
			ConnectTime:   vals[3],
			IdleTime:      vals[4],
			Sends:         vals[5],
			Receives:      vals[6],
			BadXIDs:       vals[7],
			BacklogUtil:   vals[8],
			ReadChunks:    vals[9],
			WriteChunks:   vals[10],
			ReplyChunks:   vals[11],
			TotalRdmaReq:  vals[12],
			TotalRdmaRep:  vals[13],
			Pullup:        vals[14],
			Fixup:         vals[15],
			Hardway:       vals[16],
			FailedMarshal: vals[17],
			BadReply:      vals[18],
		}, nil
	}
	return nil, fmt.Errorf("unsupported xprt protocol: %s", protocol)
}
