package template

import (
	"bytes"
	"fmt"

	"github.com/oriys/golem/internal/domain"
	"gopkg.in/yaml.v3"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}
var wasmVersion1 = []byte{0x01, 0x00, 0x00, 0x00}

// BinaryParser validates the WASM binary header and, optionally, decodes
// a YAML export manifest appended after the module (a side channel
// standing in for full component-model introspection — see
// SPEC_FULL.md §4.1). A module with a valid header and no manifest is
// still accepted with zero discovered exports.
type BinaryParser struct{}

// manifestSeparator delimits the WASM module bytes from an optional
// trailing YAML exports manifest within the same uploaded artifact.
var manifestSeparator = []byte("\n---golem-exports---\n")

type exportsManifest struct {
	CallingConvention string `yaml:"calling_convention"`
	Exports           []struct {
		Name   string `yaml:"name"`
		Arity  int    `yaml:"arity"`
		Result bool   `yaml:"result"`
	} `yaml:"exports"`
}

func (BinaryParser) Parse(wasmBytes []byte) (domain.TemplateMetadata, error) {
	moduleBytes := wasmBytes
	var manifestBytes []byte
	if idx := bytes.Index(wasmBytes, manifestSeparator); idx >= 0 {
		moduleBytes = wasmBytes[:idx]
		manifestBytes = wasmBytes[idx+len(manifestSeparator):]
	}

	if len(moduleBytes) < 8 {
		return domain.TemplateMetadata{}, fmt.Errorf("%w: too short to be a WASM module (%d bytes)", ErrParseFailed, len(moduleBytes))
	}
	if !bytes.Equal(moduleBytes[0:4], wasmMagic) {
		return domain.TemplateMetadata{}, fmt.Errorf("%w: missing WASM magic header", ErrParseFailed)
	}
	if !bytes.Equal(moduleBytes[4:8], wasmVersion1) {
		return domain.TemplateMetadata{}, fmt.Errorf("%w: unsupported WASM binary version", ErrParseFailed)
	}

	meta := domain.TemplateMetadata{
		CallingConvention: domain.ConventionComponent,
		SizeBytes:         len(moduleBytes),
	}

	if len(manifestBytes) == 0 {
		return meta, nil
	}

	var m exportsManifest
	if err := yaml.Unmarshal(manifestBytes, &m); err != nil {
		return domain.TemplateMetadata{}, fmt.Errorf("%w: invalid exports manifest: %v", ErrParseFailed, err)
	}
	if m.CallingConvention != "" {
		meta.CallingConvention = domain.CallingConvention(m.CallingConvention)
	}
	for _, e := range m.Exports {
		meta.Exports = append(meta.Exports, domain.ExportSignature{Name: e.Name, Arity: e.Arity, Result: e.Result})
	}
	return meta, nil
}
