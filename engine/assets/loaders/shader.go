package loaders

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/resources"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// ShaderLoader reads a compiled SPIR-V stage and returns it as words.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, params interface{}) (*resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	code, err := ParseSPIRV(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &resources.Resource{
		Name:     resourceName(path, params),
		FullPath: path,
		Type:     resources.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

// ParseSPIRV checks alignment and the magic number of a SPIR-V blob.
func ParseSPIRV(data []byte) ([]uint32, error) {
	code, err := BytesToBytecode(data)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 || code[0] != SPIRVMagic {
		return nil, errors.New("missing SPIR-V magic number")
	}
	return code, nil
}

const (
	spirvHeaderWords  = 5
	opDecorate        = 71
	opMemberDecorate  = 72
	decorationBuiltIn = 11
	builtInPointSize  = 1
)

// WritesPointSize reports whether a module decorates any output with the
// PointSize built-in, either directly or as a gl_PerVertex block member.
// Point list pipelines need it unless the device enables maintenance5.
func WritesPointSize(code []uint32) bool {
	for i := spirvHeaderWords; i < len(code); {
		count := int(code[i] >> 16)
		opcode := code[i] & 0xffff
		if count == 0 || i+count > len(code) {
			return false
		}
		switch {
		case opcode == opDecorate && count >= 4:
			if code[i+2] == decorationBuiltIn && code[i+3] == builtInPointSize {
				return true
			}
		case opcode == opMemberDecorate && count >= 5:
			if code[i+3] == decorationBuiltIn && code[i+4] == builtInPointSize {
				return true
			}
		}
		i += count
	}
	return false
}
