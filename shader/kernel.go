package shader

import (
	"encoding/binary"

	"github.com/gogpu/multidraw/glcore"
)

// UpperBound returns the smallest i with prefix[i] > x, searching the
// monotonically non-decreasing prefix. It returns len(prefix)-1 when no
// element exceeds x, matching the kernel's clamped search.
func UpperBound(prefix []uint32, x uint32) int {
	if len(prefix) == 0 {
		return 0
	}
	low, high := 0, len(prefix)-1
	for low < high {
		mid := low + (high-low)/2
		if prefix[mid] > x {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}

// Locate maps a flattened output position to its owning draw and the
// element position inside the source buffer.
//
//	low      = UpperBound(prefix, outIdx)
//	localIdx = outIdx - prefix[low-1]   (0 when low == 0)
//	inIndex  = localIdx + firstIndex[low]
func Locate(prefix, firstIndex []uint32, outIdx uint32) (low int, localIdx, inIndex uint32) {
	low = UpperBound(prefix, outIdx)
	var start uint32
	if low > 0 {
		start = prefix[low-1]
	}
	localIdx = outIdx - start
	inIndex = localIdx + firstIndex[low]
	return low, localIdx, inIndex
}

// ReadPacked reads element e of width elementSize from a buffer viewed as
// little-endian 32-bit words. Reads past the end of words return 0, the
// robust-access result for out-of-range storage reads.
func ReadPacked(words []byte, element, elementSize uint32) uint32 {
	var wordIdx, shift, mask uint32
	switch elementSize {
	case 4:
		wordIdx, shift, mask = element, 0, 0xFFFFFFFF
	case 2:
		wordIdx, shift, mask = element>>1, (element&1)*16, 0xFFFF
	default:
		wordIdx, shift, mask = element>>2, (element&3)*8, 0xFF
	}
	off := uint64(wordIdx) * 4
	if off+4 > uint64(len(words)) {
		return 0
	}
	word := binary.LittleEndian.Uint32(words[off:])
	return (word >> shift) & mask
}

// FlattenKernel returns the CPU port of the flattening kernel specialized
// for elementSize. It reads and writes the buffers bound at the Binding*
// points exactly as the WGSL program does.
func FlattenKernel(elementSize uint32) glcore.Kernel {
	return func(outIdx uint32, bindings [][]byte) {
		if len(bindings) < NumBindings {
			return
		}
		prefixBuf := bindings[BindingPrefixSum]
		drawCount := uint32(len(prefixBuf) / 4)
		if drawCount == 0 {
			return
		}
		total := word(prefixBuf, drawCount-1)
		if outIdx >= total {
			return
		}

		low, high := uint32(0), drawCount-1
		for low < high {
			mid := low + (high-low)/2
			if word(prefixBuf, mid) > outIdx {
				high = mid
			} else {
				low = mid + 1
			}
		}

		var start uint32
		if low > 0 {
			start = word(prefixBuf, low-1)
		}
		inIndex := outIdx - start + word(bindings[BindingFirstIndex], low)
		value := int32(ReadPacked(bindings[BindingSource], inIndex, elementSize)) +
			int32(word(bindings[BindingBaseVertex], low))

		out := bindings[BindingOutput]
		if off := uint64(outIdx) * 4; off+4 <= uint64(len(out)) {
			binary.LittleEndian.PutUint32(out[off:], uint32(value))
		}
	}
}

func word(buf []byte, i uint32) uint32 {
	off := uint64(i) * 4
	if off+4 > uint64(len(buf)) {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[off:])
}
