// Package shader holds the index flattening compute kernel used by the
// multidraw Compute strategy.
//
// The kernel is authored once in WGSL and specialized per index width
// ([FlattenWGSL]). GL backends receive GLSL produced from it by naga
// ([FlattenGLSL]); backends without a shader compiler run [FlattenKernel],
// a bit-exact CPU port of the same program.
//
// # Binary contract
//
// The source element buffer is bound as an array of 32-bit words. Index data
// is packed little-endian: element e of an index type of size s (1, 2 or 4
// bytes) occupies bits [8*s*(e mod 4/s), 8*s*(e mod 4/s + 1)) of word
// e*s/4. This is the std430 view every GL implementation exposes of a
// little-endian index buffer, so sub-32-bit buffers must have a byte size
// that is a multiple of 4 to be fully addressable.
package shader

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"

	"github.com/gogpu/multidraw/glcore"
	"github.com/gogpu/multidraw/internal/cache"
)

//go:embed flatten.wgsl
var flattenTemplate string

// readIndexMarker is replaced by the width-specific read_index function.
const readIndexMarker = "// {{read_index}}"

// readIndex holds read_index for each element size. Words are unpacked
// little-endian, as described in the package documentation.
var readIndex = map[uint32]string{
	4: `fn read_index(element: u32) -> u32 {
    return in_indices[element];
}`,
	2: `fn read_index(element: u32) -> u32 {
    let word = in_indices[element >> 1u];
    let shift = (element & 1u) * 16u;
    return (word >> shift) & 65535u;
}`,
	1: `fn read_index(element: u32) -> u32 {
    let word = in_indices[element >> 2u];
    let shift = (element & 3u) * 8u;
    return (word >> shift) & 255u;
}`,
}

// WorkgroupSize is the local size in X of the flattening kernel.
const WorkgroupSize = 64

// Shader storage binding points used by the flattening kernel.
const (
	BindingSource     = 0 // element buffer, read as packed u32 words
	BindingFirstIndex = 1 // per-draw first element, u32
	BindingBaseVertex = 2 // per-draw base vertex, i32
	BindingPrefixSum  = 3 // inclusive prefix sum of draw counts, u32
	BindingOutput     = 4 // flattened u32 indices

	NumBindings = 5
)

// FlattenWGSL returns the WGSL source of the flattening kernel for
// elementSize (1, 2 or 4).
func FlattenWGSL(elementSize uint32) (string, error) {
	body, ok := readIndex[elementSize]
	if !ok {
		return "", fmt.Errorf("shader: unsupported element size %d", elementSize)
	}
	return strings.Replace(flattenTemplate, readIndexMarker, body, 1), nil
}

type variant struct {
	version     glcore.ShaderVersion
	elementSize uint32
}

// translations holds GLSL already produced for a variant. A process
// rarely sees more than one shading language version, so three entries per
// version is the common case.
var translations = cache.New[variant, string](12)

// FlattenGLSL translates the flattening kernel to GLSL for the given
// shading language version, specialized for elementSize (1, 2 or 4).
//
// Storage buffers are emitted with explicit binding qualifiers matching the
// Binding* constants. Results are cached per variant; failures are not.
func FlattenGLSL(version glcore.ShaderVersion, elementSize uint32) (string, error) {
	if _, ok := readIndex[elementSize]; !ok {
		return "", fmt.Errorf("shader: unsupported element size %d", elementSize)
	}
	if !version.SupportsCompute() {
		return "", fmt.Errorf("shader: GLSL %s has no compute shaders", version)
	}
	return translations.GetOrCreate(variant{version, elementSize}, func() (string, error) {
		return translate(version, elementSize)
	})
}

func translate(version glcore.ShaderVersion, elementSize uint32) (string, error) {
	wgsl, err := FlattenWGSL(elementSize)
	if err != nil {
		return "", err
	}
	ast, err := naga.Parse(wgsl)
	if err != nil {
		return "", fmt.Errorf("shader: parse flatten kernel: %w", err)
	}
	module, err := naga.LowerWithSource(ast, wgsl)
	if err != nil {
		return "", fmt.Errorf("shader: lower flatten kernel: %w", err)
	}

	bindings := make(map[glsl.BindingMapKey]uint8, NumBindings)
	for b := uint32(0); b < NumBindings; b++ {
		bindings[glsl.BindingMapKey{Group: 0, Binding: b}] = uint8(b)
	}

	src, _, err := glsl.Compile(module, glsl.Options{
		LangVersion: glsl.Version{
			Major: version.Major,
			Minor: version.Minor,
			ES:    version.ES,
		},
		ForceHighPrecision: true,
		BindingMap:         bindings,
	})
	if err != nil {
		return "", fmt.Errorf("shader: translate flatten kernel to GLSL %s: %w", version, err)
	}
	return src, nil
}

// FlattenProgram returns the program description of the flattening kernel
// for one index type: GLSL source for version plus the CPU kernel.
func FlattenProgram(version glcore.ShaderVersion, typ glcore.IndexType) (*glcore.ComputeProgramDesc, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("shader: unsupported index type %v", typ)
	}
	size := uint32(typ.Size())
	src, err := FlattenGLSL(version, size)
	if err != nil {
		return nil, err
	}
	return &glcore.ComputeProgramDesc{
		Label:         fmt.Sprintf("multidraw_flatten_u%d", size*8),
		Source:        src,
		WorkgroupSize: WorkgroupSize,
		Kernel:        FlattenKernel(size),
	}, nil
}
