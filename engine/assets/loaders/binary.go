package loaders

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
	"github.com/spaghettifunk/scop/engine/resources"
)

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params interface{}) (*resources.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open binary")
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	return &resources.Resource{
		Name:     resourceName(path, params),
		FullPath: path,
		Type:     resources.ResourceTypeBinary,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

// BytesToBytecode converts a little-endian byte blob into 32-bit words.
// The length must be a multiple of 4; anything else is core.ErrAlignment.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, errors.Wrapf(core.ErrAlignment, "%d bytes", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = uint32(b[byteIndex]) |
			uint32(b[byteIndex+1])<<8 |
			uint32(b[byteIndex+2])<<16 |
			uint32(b[byteIndex+3])<<24
	}
	return byteCode, nil
}

// resourceName takes params["name"] when given, the file name otherwise.
func resourceName(path string, params interface{}) string {
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		return p["name"]
	}
	return filepath.Base(path)
}
