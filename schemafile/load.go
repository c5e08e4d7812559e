package schemafile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wirecodec/errors"
)

// Format is a declaration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks a format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".json", ".jsonc":
		return FormatJSON, true
	}
	return "", false
}

// Load reads and parses a declaration file.
func Load(path string) (*File, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.Load("unrecognized declaration file extension: "+path, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	return Parse(data, format, path)
}

// Parse parses declaration data. name is used in error positions.
func Parse(data []byte, format Format, name string) (*File, error) {
	f := &File{Path: name}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && err != io.EOF {
			return nil, errors.ParseFailed(name, "yaml declarations", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, errors.ParseFailed(name, "toml declarations", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.PhaseParse, errors.KindUnknownOption).
				Pos(name).
				Value(undecoded[0].String()).
				Detail("unknown key %q", undecoded[0].String()).
				Build()
		}
		f.index()
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(f); err != nil {
			return nil, errors.ParseFailed(name, "json declarations", err)
		}
		f.index()
	default:
		return nil, errors.Load("unknown declaration format "+string(format), nil)
	}
	return f, nil
}
