package mine

import "encoding/binary"

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file is the batch-accelerator boundary. Devices (GPUs, or the host reference device below)
// participate in the search only through Accelerator; all buffer-marshalling stays behind it so
// the coordinator neither knows nor cares what is driving a batch.

// Batch is the outcome of one accelerator call: either no index in the scanned range matched, or
// the first match in the device's ascending scan order.
type Batch struct {
	Found     bool
	Index     uint64
	Candidate Candidate
}

// Accelerator is the contract an external batch compute device must satisfy. Implementations are
// driven by a single dedicated worker; they need not be safe for concurrent use.
type Accelerator interface {
	// SearchBatch scans indices [start, start+batch) in ascending order, reproducing Generate and
	// the digest on-device, and reports the first match if any. The call blocks for the full
	// batch; partial progress is not observable mid-call.
	SearchBatch(prefix string, start, batch uint64) (Batch, error)
	// Device describes the device for logs.
	Device() string
	// Close releases device resources. The coordinator calls it exactly once per run.
	Close() error
}

// OpenAccelerator brings up a device, reporting an InitError on failure. It runs before any
// worker starts so that a mandatory device failing fails the whole run up front.
type OpenAccelerator func() (Accelerator, error)

// InitError is the closed set of device bring-up failures. The values mirror the status codes
// returned by the C-side init routine.
type InitError int8

const (
	ErrNoDevice     InitError = -1 - iota /* no compatible device found */
	ErrDeviceProps                        /* device-properties query failed */
	ErrDeviceSelect                       /* device selection failed */
	ErrResultsAlloc                       /* results-buffer allocation failed */
	ErrPrefixAlloc                        /* prefix-buffer allocation failed */
)

func (e InitError) Error() string {
	switch e {
	case ErrNoDevice:
		return "accelerator: no compatible device found"
	case ErrDeviceProps:
		return "accelerator: failed to query device properties"
	case ErrDeviceSelect:
		return "accelerator: failed to select device"
	case ErrResultsAlloc:
		return "accelerator: failed to allocate results buffer"
	case ErrPrefixAlloc:
		return "accelerator: failed to allocate prefix buffer"
	}
	return "accelerator: unknown initialization failure"
}

// RuntimeError is the closed set of mid-run device failures. A RuntimeError aborts only the
// accelerator worker; remaining CPU workers keep searching.
type RuntimeError int8

const (
	ErrNotReady   RuntimeError = -1 - iota /* device used before init or after close */
	ErrTransfer                            /* host-to-device data transfer failed */
	ErrBufferInit                          /* device results-buffer reset failed */
	ErrKernel                              /* kernel execution failed */
	ErrRetrieve                            /* device-to-host result retrieval failed */
)

func (e RuntimeError) Error() string {
	switch e {
	case ErrNotReady:
		return "accelerator: device not initialized"
	case ErrTransfer:
		return "accelerator: data transfer failed"
	case ErrBufferInit:
		return "accelerator: results-buffer reset failed"
	case ErrKernel:
		return "accelerator: kernel execution failed"
	case ErrRetrieve:
		return "accelerator: result retrieval failed"
	}
	return "accelerator: unknown runtime failure"
}

/* Device kernels report through an 11-word buffer: found flag, the matching index split into two
32-bit halves, then the candidate as 8 little-endian 32-bit words. The host device keeps that
layout so its results are bit-compatible with an external kernel's. */

func packResults(res *[11]uint32, index uint64, c *Candidate) {
	res[0] = 1
	res[1], res[2] = uint32(index), uint32(index>>32)
	for i := 0; i < 8; i++ {
		res[3+i] = binary.LittleEndian.Uint32(c[i*4:])
	}
}

func unpackResults(res *[11]uint32) (index uint64, c Candidate) {
	index = uint64(res[1]) | uint64(res[2])<<32
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint32(c[i*4:], res[3+i])
	}
	return index, c
}

// hostAccelerator reproduces the device scan on the CPU. It stands in for a GPU in hybrid runs on
// machines without one and doubles as the coordinator's deterministic test device.
type hostAccelerator struct {
	algo    Algo
	results [11]uint32
	closed  bool
}

// NewHostAccelerator returns an always-available Accelerator backed by the host CPU.
func NewHostAccelerator(algo Algo) OpenAccelerator {
	return func() (Accelerator, error) { return &hostAccelerator{algo: algo}, nil }
}

func (h *hostAccelerator) Device() string { return "host (" + h.algo.String() + ")" }

func (h *hostAccelerator) SearchBatch(prefix string, start, batch uint64) (Batch, error) {
	if h.closed {
		return Batch{}, ErrNotReady
	}
	for i := range h.results {
		h.results[i] = 0
	}
	for n, index := batch, start; n != 0; n, index = n-1, index+1 {
		c := Generate(index)
		if MatchesPrefix(h.algo.Sum(&c), prefix) {
			packResults(&h.results, index, &c)
			break
		}
	}
	if h.results[0] == 0 {
		return Batch{}, nil
	}
	index, c := unpackResults(&h.results)
	return Batch{Found: true, Index: index, Candidate: c}, nil
}

func (h *hostAccelerator) Close() error {
	if h.closed {
		return ErrNotReady
	}
	h.closed = true
	return nil
}
