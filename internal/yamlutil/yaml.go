// Package yamlutil wraps YAML decoding to isolate the external dependency.
package yamlutil

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize int64 = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

// DecodeStrict decodes data into v, rejecting unknown fields.
func DecodeStrict(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if int64(len(data)) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// DecodeFile reads at most MaxInputSize+1 bytes from path and decodes them
// strictly into v. Errors from opening the file are returned unwrapped so
// callers can test them with os.IsNotExist.
func DecodeFile(path string, v any) error {
	f, err := os.Open(path) // #nosec G304 -- config path is operator-provided
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxInputSize+1))
	if err != nil {
		return fmt.Errorf("yamlutil: reading %s: %w", path, err)
	}
	return DecodeStrict(data, v)
}
