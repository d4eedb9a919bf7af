package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// RootConstantsType is the WGSL struct name that marks a uniform binding as root constants.
const RootConstantsType = "RootConstants"

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	computeEntryRegex  = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindingDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindingDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Binding is one resource declaration.
type Binding struct {
	Group   int
	Binding int
	Name    string
	Type    string

	// Sampler marks sampler declarations; Kind is meaningless for them.
	Sampler bool
	Kind    gpu.BindingKind

	// Size is the minimum binding size of buffer bindings, 0 for handles.
	Size uint64
}

// Reflection is what the renderer needs to know about one WGSL module.
type Reflection struct {
	Bindings []Binding

	VertexEntry   string
	FragmentEntry string
	ComputeEntry  string
	WorkgroupSize [3]uint32

	// VertexStride is the packed size of the vertex input struct, 0 when vertices are
	// generated in the shader.
	VertexStride uint64

	structs map[string]typeLayout
}

// Reflect parses binding declarations, entry points, the workgroup size and struct layouts
// out of WGSL source. It recognizes the subset of WGSL the engine's shaders use.
//
// Parameters:
//   - source: WGSL source
//
// Returns:
//   - Reflection: the reflected module
func Reflect(source string) Reflection {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)
	r := Reflection{
		VertexEntry:   findEntry(vertexEntryRegex, cleaned),
		FragmentEntry: findEntry(fragmentEntryRegex, cleaned),
		ComputeEntry:  findEntry(computeEntryRegex, cleaned),
		WorkgroupSize: parseWorkgroupSize(cleaned),
		structs:       computeStructSizes(structs),
	}

	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		if stride, ok := vertexStride(ps); ok {
			r.VertexStride = stride
			break
		}
	}

	for _, m := range bindingDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		b := classify(strings.TrimSpace(m[3]), strings.TrimSpace(m[5]))
		b.Group, b.Binding, b.Name = group, binding, strings.TrimSpace(m[4])
		if b.Kind == gpu.BindConstantBuffer || b.Kind == gpu.BindRootConstants ||
			b.Kind == gpu.BindStorageRead || b.Kind == gpu.BindStorageReadWrite {
			if layout, ok := resolveTypeLayout(b.Type, r.structs); ok {
				b.Size = layout.size
			}
		}
		r.Bindings = append(r.Bindings, b)
	}
	sort.Slice(r.Bindings, func(i, j int) bool {
		if r.Bindings[i].Group != r.Bindings[j].Group {
			return r.Bindings[i].Group < r.Bindings[j].Group
		}
		return r.Bindings[i].Binding < r.Bindings[j].Binding
	})
	return r
}

// StructSize returns the WGSL size of the named struct.
func (r Reflection) StructSize(name string) (uint64, bool) {
	layout, ok := r.structs[name]
	return layout.size, ok
}

// Stage returns the pipeline stage the module's entry points describe.
func (r Reflection) Stage() gpu.PipelineStage {
	if r.ComputeEntry != "" && r.VertexEntry == "" {
		return gpu.StageCompute
	}
	return gpu.StageRender
}

// Slots returns the binding kind of every bind group in order. Each group holds one
// resource at binding 0, optionally followed by its sampler.
//
// Returns:
//   - []gpu.BindingKind: kind per slot
//   - error: a group is missing or does not start with a resource
func (r Reflection) Slots() ([]gpu.BindingKind, error) {
	var slots []gpu.BindingKind
	for _, b := range r.Bindings {
		if b.Binding != 0 {
			continue
		}
		if b.Group != len(slots) {
			return nil, fmt.Errorf("shader: bind group %d declared without group %d", b.Group, len(slots))
		}
		if b.Sampler {
			return nil, fmt.Errorf("shader: bind group %d starts with sampler %q", b.Group, b.Name)
		}
		slots = append(slots, b.Kind)
	}
	return slots, nil
}

func classify(addressSpace, typeName string) Binding {
	b := Binding{Type: typeName}
	switch {
	case addressSpace == "uniform" && typeName == RootConstantsType:
		b.Kind = gpu.BindRootConstants
	case addressSpace == "uniform":
		b.Kind = gpu.BindConstantBuffer
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		b.Kind = gpu.BindStorageReadWrite
	case strings.HasPrefix(addressSpace, "storage"):
		b.Kind = gpu.BindStorageRead
	case typeName == "sampler" || typeName == "sampler_comparison":
		b.Sampler = true
	case strings.HasPrefix(typeName, "texture_depth_"):
		b.Kind = gpu.BindDepthTexture
	case strings.HasPrefix(typeName, "texture_"):
		b.Kind = gpu.BindTexture
	}
	return b
}

func findEntry(re *regexp.Regexp, source string) string {
	if m := re.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

// parseWorkgroupSize extracts @workgroup_size(x, y, z). Omitted dimensions default to 1;
// [1, 1, 1] is returned when no annotation is present.
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	m := workgroupSizeRegex.FindStringSubmatch(source)
	if m == nil {
		return result
	}
	for i := range 3 {
		if m[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(m[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseStructBlocks finds all struct blocks and parses their fields.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

// parseStructFields parses a struct body into fields with their @location and @builtin
// attributes.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1, isBuiltin: builtinRegex.MatchString(line)}
		if loc := locationRegex.FindStringSubmatch(line); loc != nil {
			if n, err := strconv.Atoi(loc[1]); err == nil {
				field.location = n
			}
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}
