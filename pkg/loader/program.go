package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/vm"
)

// LoadProgram reads a program from path. Files starting with the ELFB magic
// (or named *.elfb) are decoded as bytecode; anything else is parsed as text.
func LoadProgram(path string) (*vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".elfb") || bytes.HasPrefix(data, []byte(vm.BytecodeMagic)) {
		log.Debugf("loading bytecode from %s", path)
		p, err := vm.DeserializeProgram(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	}

	log.Debugf("parsing program from %s", path)
	p, err := compiler.ParseProgram(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadCalibration reads samples followed by a numeric program from a text
// file.
func LoadCalibration(path string) ([]vm.Sample, []vm.RawInstruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	samples, raw, err := compiler.ParseCalibration(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, raw, nil
}
