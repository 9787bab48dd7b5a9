package nfsgaze

import "sort"

// CalculateDeltaStats compares two snapshots of the same mount taken
// elapsedSeconds apart and returns one DeltaStats per operation that saw new
// activity, sorted by operation name. Operations absent from the previous
// snapshot are treated as starting from zero. Operations whose op count did
// not grow this interval (including counter resets, where it shrank) are
// omitted.
func CalculateDeltaStats(previous, current *NFSMount, elapsedSeconds float64) []DeltaStats {
	deltas := make([]DeltaStats, 0, len(current.Operations))

	for name, currentOp := range current.Operations {
		previousOp := previous.Operations[name]
		if previousOp == nil {
			previousOp = &NFSOperation{Name: name}
		}
		delta := operationDelta(previousOp, currentOp, elapsedSeconds)
		if delta.DeltaOps > 0 {
			deltas = append(deltas, delta)
		}
	}

	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].Operation < deltas[j].Operation
	})
	return deltas
}

// operationDelta computes the raw counter deltas and derived rates for one
// operation. Deltas are plain subtractions and may go negative after a
// remount; they are reported as-is. Only the derived rates guard their
// denominators.
func operationDelta(previous, current *NFSOperation, elapsedSeconds float64) DeltaStats {
	delta := DeltaStats{
		Operation:    current.Name,
		DeltaOps:     current.Ops - previous.Ops,
		DeltaSent:    current.BytesSent - previous.BytesSent,
		DeltaRecv:    current.BytesRecv - previous.BytesRecv,
		DeltaRTT:     current.RTT - previous.RTT,
		DeltaExec:    current.ExecuteTime - previous.ExecuteTime,
		DeltaQueue:   current.QueueTime - previous.QueueTime,
		DeltaErrors:  current.Errors - previous.Errors,
		DeltaRetrans: current.Timeouts - previous.Timeouts,
	}
	delta.DeltaBytes = delta.DeltaSent + delta.DeltaRecv

	if elapsedSeconds > 0 {
		delta.IOPS = float64(delta.DeltaOps) / elapsedSeconds
		delta.KBPerSec = float64(delta.DeltaBytes) / 1024 / elapsedSeconds
	}
	if delta.DeltaOps > 0 {
		ops := float64(delta.DeltaOps)
		delta.AvgRTT = float64(delta.DeltaRTT) / ops
		delta.AvgExec = float64(delta.DeltaExec) / ops
		delta.AvgQueue = float64(delta.DeltaQueue) / ops
		delta.KBPerOp = float64(delta.DeltaBytes) / 1024 / ops
	}

	return delta
}

// FilterOperations narrows stats to the operations named in allowed. An
// empty (or nil) set means "no filter": the input is returned unchanged.
// Matching is exact and case-sensitive.
func FilterOperations(stats []DeltaStats, allowed map[string]bool) []DeltaStats {
	if len(allowed) == 0 {
		return stats
	}

	filtered := make([]DeltaStats, 0, len(stats))
	for _, stat := range stats {
		if _, ok := allowed[stat.Operation]; ok {
			filtered = append(filtered, stat)
		}
	}
	return filtered
}
